package gateway

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/naka-gawa/pr-tracker/internal/domain"
	"github.com/naka-gawa/pr-tracker/internal/logging"
)

// maxGraphQLPageSize is the largest "first" GitHub accepts on a connection.
const maxGraphQLPageSize = 100

// ListFetcher returns a user's most recent pull requests using GraphQL search,
// which carries repository language and description without extra calls.
type ListFetcher struct {
	api     API
	retrier *Retrier
	logger  *slog.Logger
}

// NewListFetcher creates a ListFetcher.
func NewListFetcher(api API, retrier *Retrier, logger *slog.Logger) *ListFetcher {
	return &ListFetcher{api: api, retrier: retrier, logger: logger}
}

// List collects up to limit pull requests, newest first. A page that still fails after
// retries ends the walk; what was collected so far is returned. The error surfaces only
// when nothing was collected.
func (f *ListFetcher) List(ctx context.Context, username string, limit int) ([]domain.PullRequestSummary, error) {
	if limit < 1 {
		return nil, domain.NewValidationError("limit must be positive, got %d", limit)
	}
	query := fmt.Sprintf("author:%s is:pr sort:created-desc", username)

	items := make([]domain.PullRequestSummary, 0, limit)
	var cursor *string
	for len(items) < limit {
		first := min(limit-len(items), maxGraphQLPageSize)
		conn, err := Retry(ctx, f.retrier, func(ctx context.Context) (*PullRequestConnection, error) {
			return f.api.SearchPullRequests(ctx, query, first, cursor)
		})
		if err != nil {
			if len(items) == 0 {
				return nil, fmt.Errorf("failed to list pull requests: %w", err)
			}
			f.logger.Warn("returning partial pull request list",
				slog.String("username", username),
				slog.Int("collected", len(items)),
				logging.Err(err),
			)
			break
		}

		items = append(items, conn.PullRequests...)
		if !conn.HasNextPage || len(conn.PullRequests) == 0 {
			break
		}
		next := conn.EndCursor
		cursor = &next
		f.logger.Debug("fetching next page of pull requests", slog.Int("collected", len(items)))
	}

	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}
