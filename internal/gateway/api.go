package gateway

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/go-github/v62/github"
	"github.com/naka-gawa/pr-tracker/internal/domain"
	"github.com/shurcooL/githubv4"
)

// API is the set of remote calls the fetchers make. Each method issues exactly one request,
// so retries and quota accounting stay in the callers.
type API interface {
	RateLimits(ctx context.Context) (*github.RateLimits, error)
	SearchIssues(ctx context.Context, query string, opts *github.SearchOptions) (*github.IssuesSearchResult, error)
	GetPullRequest(ctx context.Context, owner, repo string, number int) (*github.PullRequest, error)
	SearchPullRequests(ctx context.Context, query string, first int, cursor *string) (*PullRequestConnection, error)
}

// PullRequestConnection is one page of a GraphQL pull request search.
type PullRequestConnection struct {
	PullRequests []domain.PullRequestSummary
	EndCursor    string
	HasNextPage  bool
}

type githubAPI struct {
	restClient    *github.Client
	graphqlClient *githubv4.Client
}

// NewAPI wraps a REST and a GraphQL client.
func NewAPI(restClient *github.Client, graphqlClient *githubv4.Client) API {
	return &githubAPI{restClient: restClient, graphqlClient: graphqlClient}
}

func (a *githubAPI) RateLimits(ctx context.Context) (*github.RateLimits, error) {
	limits, _, err := a.restClient.RateLimit.Get(ctx)
	if err != nil {
		return nil, err
	}
	return limits, nil
}

func (a *githubAPI) SearchIssues(ctx context.Context, query string, opts *github.SearchOptions) (*github.IssuesSearchResult, error) {
	result, _, err := a.restClient.Search.Issues(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (a *githubAPI) GetPullRequest(ctx context.Context, owner, repo string, number int) (*github.PullRequest, error) {
	pr, _, err := a.restClient.PullRequests.Get(ctx, owner, repo, number)
	if err != nil {
		return nil, err
	}
	return pr, nil
}

// pullRequestNode carries the summary fields of a pull request in one GraphQL round trip.
type pullRequestNode struct {
	DatabaseID int64 `graphql:"databaseId"`
	Number     int
	Title      string
	Body       string
	CreatedAt  githubv4.DateTime
	MergedAt   *githubv4.DateTime
	State      string
	URL        string `graphql:"url"`
	Repository struct {
		NameWithOwner   string
		Description     *string
		URL             string `graphql:"url"`
		PrimaryLanguage *struct {
			Name string
		}
	}
}

type pullRequestSearchQuery struct {
	Search struct {
		PageInfo struct {
			HasNextPage bool
			EndCursor   githubv4.String
		}
		Nodes []struct {
			Typename    string          `graphql:"__typename"`
			PullRequest pullRequestNode `graphql:"... on PullRequest"`
		}
	} `graphql:"search(query: $query, type: ISSUE, first: $first, after: $cursor)"`
}

func (a *githubAPI) SearchPullRequests(ctx context.Context, query string, first int, cursor *string) (*PullRequestConnection, error) {
	variables := map[string]interface{}{
		"query":  githubv4.String(query),
		"first":  githubv4.Int(first),
		"cursor": (*githubv4.String)(nil),
	}
	if cursor != nil {
		variables["cursor"] = githubv4.NewString(githubv4.String(*cursor))
	}

	var q pullRequestSearchQuery
	if err := a.graphqlClient.Query(ctx, &q, variables); err != nil {
		return nil, err
	}

	conn := &PullRequestConnection{
		PullRequests: make([]domain.PullRequestSummary, 0, len(q.Search.Nodes)),
		EndCursor:    string(q.Search.PageInfo.EndCursor),
		HasNextPage:  q.Search.PageInfo.HasNextPage,
	}
	for _, node := range q.Search.Nodes {
		if node.Typename != "PullRequest" {
			continue
		}
		conn.PullRequests = append(conn.PullRequests, node.PullRequest.toSummary())
	}
	return conn, nil
}

func (n pullRequestNode) toSummary() domain.PullRequestSummary {
	var mergedAt *time.Time
	if n.MergedAt != nil {
		t := n.MergedAt.Time
		mergedAt = &t
	}
	repo := domain.Repository{
		Name:        n.Repository.NameWithOwner,
		Description: n.Repository.Description,
		URL:         n.Repository.URL,
	}
	if n.Repository.PrimaryLanguage != nil && n.Repository.PrimaryLanguage.Name != "" {
		lang := n.Repository.PrimaryLanguage.Name
		repo.Language = &lang
	}
	return domain.PullRequestSummary{
		ID:          n.DatabaseID,
		Number:      n.Number,
		Title:       n.Title,
		Description: nonEmpty(n.Body),
		CreatedAt:   n.CreatedAt.Time,
		MergedAt:    mergedAt,
		State:       domain.DeriveState(n.State, mergedAt),
		URL:         n.URL,
		Repository:  repo,
	}
}

func nonEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// repoFromURL extracts "owner/name" from an API or HTML repository URL.
func repoFromURL(raw string) string {
	path := raw
	if i := strings.Index(path, "://"); i >= 0 {
		path = path[i+3:]
	}
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) < 3 {
		return ""
	}
	return fmt.Sprintf("%s/%s", parts[len(parts)-2], parts[len(parts)-1])
}
