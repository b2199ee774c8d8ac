// Package gateway provides a gateway to the GitHub API,
// abstracting away the underlying REST and GraphQL clients.
package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/go-github/v62/github"
	"github.com/shurcooL/githubv4"
	"golang.org/x/oauth2"

	"github.com/gofri/go-github-ratelimit/github_ratelimit"
	"github.com/naka-gawa/pr-tracker/internal/domain"
)

// Fetcher defines the behavior of a gateway for fetching information from GitHub.
type Fetcher interface {
	CheckQuota(ctx context.Context, resource domain.QuotaResource) domain.QuotaStatus
	// EnsureQuota returns an insufficient_quota error when op cannot be afforded.
	EnsureQuota(ctx context.Context, op domain.Operation, itemCount int) error
	SearchPullRequests(ctx context.Context, username string, start, end time.Time, page, perPage int) (*domain.SearchPage, error)
	GetPullRequest(ctx context.Context, owner, repo string, number int) (*domain.PullRequestDetail, error)
	ListPullRequests(ctx context.Context, username string, limit int) ([]domain.PullRequestSummary, error)
}

// Options configures the GitHub clients.
type Options struct {
	Token string
	// BaseURL and GraphQLURL point at a GitHub Enterprise Server when set.
	BaseURL    string
	GraphQLURL string
	Timeout    time.Duration
	// SecondaryLimitSleep bounds how long the transport itself may wait on a secondary
	// rate limit. Longer waits are returned to the caller and handled by Retry.
	SecondaryLimitSleep time.Duration
	MaxAttempts         int
	BaseDelay           time.Duration
}

// GitHubGateway is the concrete implementation of the Fetcher interface.
type GitHubGateway struct {
	quota  *QuotaTracker
	search *SearchFetcher
	detail *DetailFetcher
	list   *ListFetcher
	logger *slog.Logger
}

// NewGitHubGateway is a constructor that creates a new instance of GitHubGateway.
func NewGitHubGateway(opts Options, logger *slog.Logger) (*GitHubGateway, error) {
	rateLimitWaiter, err := github_ratelimit.NewRateLimitWaiter(nil,
		github_ratelimit.WithSingleSleepLimit(opts.SecondaryLimitSleep, func(cbc *github_ratelimit.CallbackContext) {
			attrs := []any{}
			if cbc.Request != nil {
				attrs = append(attrs, slog.String("url", cbc.Request.URL.String()))
			}
			if cbc.SleepUntil != nil {
				attrs = append(attrs, slog.Time("sleep_until", *cbc.SleepUntil))
			}
			logger.Warn("secondary rate limit wait exceeds transport limit, deferring to retry", attrs...)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create rate limit waiter: %w", err)
	}
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: opts.Token})
	httpClient := &http.Client{
		Timeout: opts.Timeout,
		Transport: &oauth2.Transport{
			Base:   rateLimitWaiter,
			Source: ts,
		},
	}

	restClient := github.NewClient(httpClient)
	graphqlClient := githubv4.NewClient(httpClient)
	if opts.BaseURL != "" {
		restClient, err = restClient.WithEnterpriseURLs(opts.BaseURL, opts.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to configure enterprise URL: %w", err)
		}
	}
	if opts.GraphQLURL != "" {
		graphqlClient = githubv4.NewEnterpriseClient(opts.GraphQLURL, httpClient)
	}

	retrier := NewRetrier(opts.MaxAttempts, opts.BaseDelay, logger)
	return NewGitHubGatewayFromAPI(NewAPI(restClient, graphqlClient), retrier, logger), nil
}

// NewGitHubGatewayFromAPI assembles a gateway around an existing API.
func NewGitHubGatewayFromAPI(api API, retrier *Retrier, logger *slog.Logger) *GitHubGateway {
	return &GitHubGateway{
		quota:  NewQuotaTracker(api, logger),
		search: NewSearchFetcher(api, retrier, logger),
		detail: NewDetailFetcher(api, retrier, logger),
		list:   NewListFetcher(api, retrier, logger),
		logger: logger,
	}
}

func (g *GitHubGateway) CheckQuota(ctx context.Context, resource domain.QuotaResource) domain.QuotaStatus {
	return g.quota.Check(ctx, resource)
}

func (g *GitHubGateway) EnsureQuota(ctx context.Context, op domain.Operation, itemCount int) error {
	ok, cost, status := g.quota.Evaluate(ctx, op, itemCount)
	if !ok {
		return domain.NewInsufficientQuotaError(op, cost, status)
	}
	return nil
}

func (g *GitHubGateway) SearchPullRequests(ctx context.Context, username string, start, end time.Time, page, perPage int) (*domain.SearchPage, error) {
	return g.search.Search(ctx, username, start, end, page, perPage)
}

func (g *GitHubGateway) GetPullRequest(ctx context.Context, owner, repo string, number int) (*domain.PullRequestDetail, error) {
	return g.detail.Detail(ctx, owner, repo, number)
}

func (g *GitHubGateway) ListPullRequests(ctx context.Context, username string, limit int) ([]domain.PullRequestSummary, error) {
	return g.list.List(ctx, username, limit)
}
