package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/go-github/v62/github"
	"github.com/naka-gawa/pr-tracker/internal/domain"
)

const unknownAuthor = "unknown"

// DetailRequest identifies a single pull request.
type DetailRequest struct {
	Owner  string `validate:"required"`
	Repo   string `validate:"required"`
	Number int    `validate:"gt=0"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// ValidateDetailRequest rejects empty coordinates and non-positive numbers.
func ValidateDetailRequest(owner, repo string, number int) error {
	err := validate.Struct(DetailRequest{Owner: strings.TrimSpace(owner), Repo: strings.TrimSpace(repo), Number: number})
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("failed to validate request: %w", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s is required", strings.ToLower(fe.Field())))
		case "gt":
			msgs = append(msgs, fmt.Sprintf("%s must be a positive integer", strings.ToLower(fe.Field())))
		default:
			msgs = append(msgs, fmt.Sprintf("%s is not valid", strings.ToLower(fe.Field())))
		}
	}
	return domain.NewValidationError("%s", strings.Join(msgs, ", "))
}

// DetailFetcher loads the full record of one pull request.
type DetailFetcher struct {
	api     API
	retrier *Retrier
	logger  *slog.Logger
}

// NewDetailFetcher creates a DetailFetcher.
func NewDetailFetcher(api API, retrier *Retrier, logger *slog.Logger) *DetailFetcher {
	return &DetailFetcher{api: api, retrier: retrier, logger: logger}
}

// Detail validates the request before issuing any call, then fetches the pull request.
func (f *DetailFetcher) Detail(ctx context.Context, owner, repo string, number int) (*domain.PullRequestDetail, error) {
	if err := ValidateDetailRequest(owner, repo, number); err != nil {
		return nil, err
	}

	f.logger.Debug("fetching pull request",
		slog.String("owner", owner),
		slog.String("repo", repo),
		slog.Int("number", number),
	)
	pr, err := Retry(ctx, f.retrier, func(ctx context.Context) (*github.PullRequest, error) {
		return f.api.GetPullRequest(ctx, owner, repo, number)
	})
	if err != nil {
		var respErr *github.ErrorResponse
		if errors.As(err, &respErr) && respErr.Response != nil && respErr.Response.StatusCode == http.StatusNotFound {
			return nil, domain.NewNotFoundError(fmt.Sprintf("pull request %s/%s#%d not found", owner, repo, number), err)
		}
		return nil, fmt.Errorf("failed to fetch pull request %s/%s#%d: %w", owner, repo, number, err)
	}
	return pullRequestToDetail(pr, owner, repo), nil
}

// pullRequestToDetail tolerates missing nested objects; the author falls back to "unknown".
func pullRequestToDetail(pr *github.PullRequest, owner, repo string) *domain.PullRequestDetail {
	mergedAt := pr.MergedAt.GetTime()
	baseRepo := pr.GetBase().GetRepo()

	repository := domain.Repository{
		Name:        baseRepo.GetFullName(),
		Description: nonEmpty(baseRepo.GetDescription()),
		Language:    nonEmpty(baseRepo.GetLanguage()),
		URL:         baseRepo.GetHTMLURL(),
	}
	if repository.Name == "" {
		repository.Name = owner + "/" + repo
	}
	if repository.URL == "" {
		repository.URL = repoHTMLURL(pr.GetHTMLURL())
	}

	author := domain.Author{Login: unknownAuthor}
	if user := pr.GetUser(); user != nil {
		if login := user.GetLogin(); login != "" {
			author.Login = login
		}
		author.AvatarURL = user.GetAvatarURL()
		author.URL = user.GetHTMLURL()
	}

	return &domain.PullRequestDetail{
		PullRequestSummary: domain.PullRequestSummary{
			ID:          pr.GetID(),
			Number:      pr.GetNumber(),
			Title:       pr.GetTitle(),
			Description: pr.Body,
			CreatedAt:   pr.GetCreatedAt().Time,
			MergedAt:    mergedAt,
			State:       domain.DeriveState(pr.GetState(), mergedAt),
			URL:         pr.GetHTMLURL(),
			Repository:  repository,
		},
		UpdatedAt:    pr.GetUpdatedAt().Time,
		ClosedAt:     pr.ClosedAt.GetTime(),
		Draft:        pr.GetDraft(),
		Commits:      pr.GetCommits(),
		Additions:    pr.GetAdditions(),
		Deletions:    pr.GetDeletions(),
		ChangedFiles: pr.GetChangedFiles(),
		Author:       author,
	}
}
