package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/go-github/v62/github"
	"github.com/naka-gawa/pr-tracker/internal/domain"
)

// SearchResultWindow is the number of results GitHub search will page through
// for a single query.
const SearchResultWindow = 1000

const searchDateLayout = "2006-01-02"

// BuildSearchQuery returns the issue search query for pull requests authored by username
// and created between start and end, inclusive.
func BuildSearchQuery(username string, start, end time.Time) string {
	return fmt.Sprintf("author:%s is:pr created:%s..%s",
		username, start.UTC().Format(searchDateLayout), end.UTC().Format(searchDateLayout))
}

// SearchFetcher pages through a user's pull requests with the REST search endpoint.
type SearchFetcher struct {
	api     API
	retrier *Retrier
	logger  *slog.Logger
}

// NewSearchFetcher creates a SearchFetcher.
func NewSearchFetcher(api API, retrier *Retrier, logger *slog.Logger) *SearchFetcher {
	return &SearchFetcher{api: api, retrier: retrier, logger: logger}
}

// Search fetches one page, oldest first. Pages past the search window are not requested.
func (f *SearchFetcher) Search(ctx context.Context, username string, start, end time.Time, page, perPage int) (*domain.SearchPage, error) {
	if page < 1 || perPage < 1 {
		return nil, domain.NewValidationError("page and perPage must be positive, got %d and %d", page, perPage)
	}
	if (page-1)*perPage >= SearchResultWindow {
		return &domain.SearchPage{Items: []domain.PullRequestSummary{}}, nil
	}

	query := BuildSearchQuery(username, start, end)
	opts := &github.SearchOptions{
		Sort:        "created",
		Order:       "asc",
		ListOptions: github.ListOptions{Page: page, PerPage: perPage},
	}
	f.logger.Debug("searching pull requests",
		slog.String("query", query),
		slog.Int("page", page),
		slog.Int("per_page", perPage),
	)

	result, err := Retry(ctx, f.retrier, func(ctx context.Context) (*github.IssuesSearchResult, error) {
		return f.api.SearchIssues(ctx, query, opts)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search pull requests: %w", err)
	}

	items := make([]domain.PullRequestSummary, 0, len(result.Issues))
	for _, issue := range result.Issues {
		items = append(items, issueToSummary(issue))
	}
	return &domain.SearchPage{
		Items:      items,
		TotalCount: result.GetTotal(),
		HasMore:    len(items) == perPage && page*perPage < SearchResultWindow,
	}, nil
}

func issueToSummary(issue *github.Issue) domain.PullRequestSummary {
	var mergedAt *time.Time
	if links := issue.GetPullRequestLinks(); links != nil {
		mergedAt = links.MergedAt.GetTime()
	}
	htmlURL := issue.GetHTMLURL()
	return domain.PullRequestSummary{
		ID:          issue.GetID(),
		Number:      issue.GetNumber(),
		Title:       issue.GetTitle(),
		Description: issue.Body,
		CreatedAt:   issue.GetCreatedAt().Time,
		MergedAt:    mergedAt,
		State:       domain.DeriveState(issue.GetState(), mergedAt),
		URL:         htmlURL,
		Repository: domain.Repository{
			Name: repoFromURL(issue.GetRepositoryURL()),
			URL:  repoHTMLURL(htmlURL),
		},
	}
}

// repoHTMLURL trims "/pull/<n>" from a pull request's HTML URL.
func repoHTMLURL(prURL string) string {
	if i := strings.LastIndex(prURL, "/pull/"); i >= 0 {
		return prURL[:i]
	}
	return ""
}
