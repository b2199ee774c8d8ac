// Package usecase contains the business logic of the application.
package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/naka-gawa/pr-tracker/internal/domain"
	"github.com/naka-gawa/pr-tracker/internal/gateway"
)

// Listing limits.
const (
	DefaultListLimit = 30
	MaxListLimit     = 100
	DefaultPerPage   = 30
	MaxPerPage       = 100

	// habitPageSize is the page size of the habit tracker's search walk.
	habitPageSize = 100
)

// SearchResult is one page of search results with its pagination metadata.
type SearchResult struct {
	Items      []domain.PullRequestSummary `json:"data"`
	Pagination domain.PaginationMeta       `json:"pagination"`
}

// PullRequestService is the use case layer over the GitHub gateway.
// It checks the quota before every batch and validates input before any remote call.
type PullRequestService struct {
	fetcher gateway.Fetcher
	habit   *HabitAggregator
	logger  *slog.Logger
}

// NewPullRequestService creates a new PullRequestService instance.
func NewPullRequestService(fetcher gateway.Fetcher, habit *HabitAggregator, logger *slog.Logger) *PullRequestService {
	return &PullRequestService{
		fetcher: fetcher,
		habit:   habit,
		logger:  logger,
	}
}

// ListPullRequests returns the user's most recent pull requests. A zero limit means the default.
func (s *PullRequestService) ListPullRequests(ctx context.Context, username string, limit int) ([]domain.PullRequestSummary, error) {
	username, err := requireUsername(username)
	if err != nil {
		return nil, err
	}
	if limit == 0 {
		limit = DefaultListLimit
	}
	if limit < 1 || limit > MaxListLimit {
		return nil, domain.NewValidationError("limit must be between 1 and %d, got %d", MaxListLimit, limit)
	}

	if err := s.fetcher.EnsureQuota(ctx, domain.OperationList, limit); err != nil {
		return nil, err
	}
	items, err := s.fetcher.ListPullRequests(ctx, username, limit)
	if err != nil {
		return nil, err
	}
	s.logger.Info("listed pull requests", slog.String("username", username), slog.Int("count", len(items)))
	return items, nil
}

// SearchPullRequests returns one page of the user's pull requests created within period.
// Zero page and perPage mean the defaults.
func (s *PullRequestService) SearchPullRequests(ctx context.Context, username, period string, page, perPage int) (*SearchResult, error) {
	username, err := requireUsername(username)
	if err != nil {
		return nil, err
	}
	p, err := domain.ParsePeriod(period)
	if err != nil {
		return nil, err
	}
	if page == 0 {
		page = 1
	}
	if perPage == 0 {
		perPage = DefaultPerPage
	}
	if page < 1 {
		return nil, domain.NewValidationError("page must be a positive integer, got %d", page)
	}
	if perPage < 1 || perPage > MaxPerPage {
		return nil, domain.NewValidationError("per_page must be between 1 and %d, got %d", MaxPerPage, perPage)
	}

	if err := s.fetcher.EnsureQuota(ctx, domain.OperationSearch, perPage); err != nil {
		return nil, err
	}
	start, end := s.habit.ResolveWindow(p)
	result, err := s.fetcher.SearchPullRequests(ctx, username, start, end, page, perPage)
	if err != nil {
		return nil, err
	}
	return &SearchResult{
		Items:      result.Items,
		Pagination: ComputePagination(min(result.TotalCount, gateway.SearchResultWindow), page, perPage),
	}, nil
}

// GetPullRequest returns the detail of one pull request.
func (s *PullRequestService) GetPullRequest(ctx context.Context, owner, repo string, number int) (*domain.PullRequestDetail, error) {
	if err := gateway.ValidateDetailRequest(owner, repo, number); err != nil {
		return nil, err
	}
	if err := s.fetcher.EnsureQuota(ctx, domain.OperationDetail, 1); err != nil {
		return nil, err
	}
	return s.fetcher.GetPullRequest(ctx, owner, repo, number)
}

// HabitTracker walks every search page for the period in order and aggregates the result.
// Any page failure aborts the walk.
func (s *PullRequestService) HabitTracker(ctx context.Context, username, period string) (*domain.HabitTrackerData, error) {
	username, err := requireUsername(username)
	if err != nil {
		return nil, err
	}
	p, err := domain.ParsePeriod(period)
	if err != nil {
		return nil, err
	}
	start, end := s.habit.ResolveWindow(p)

	if err := s.fetcher.EnsureQuota(ctx, domain.OperationSearch, habitPageSize); err != nil {
		return nil, err
	}

	items, err := s.collectWindow(ctx, username, start, end)
	if err != nil {
		return nil, err
	}

	data := s.habit.AggregateWindow(username, start, end, items)
	s.logger.Info("built habit tracker",
		slog.String("username", username),
		slog.String("period", string(p)),
		slog.Int("total_prs", data.TotalPRs),
	)
	return &data, nil
}

// collectWindow pages through [start, end]. A window holding more results than the search
// window can reach is split in two by date and each half is walked on its own.
func (s *PullRequestService) collectWindow(ctx context.Context, username string, start, end time.Time) ([]domain.PullRequestSummary, error) {
	var items []domain.PullRequestSummary
	for page := 1; ; page++ {
		result, err := s.fetcher.SearchPullRequests(ctx, username, start, end, page, habitPageSize)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch page %d of pull requests for %s: %w", page, username, err)
		}
		if page == 1 && result.TotalCount > gateway.SearchResultWindow {
			return s.splitWindow(ctx, username, start, end, result.TotalCount)
		}
		items = append(items, result.Items...)
		if !result.HasMore || len(result.Items) == 0 {
			break
		}
		s.logger.Debug("fetching next page for habit tracker", slog.Int("page", page+1))
	}
	return items, nil
}

func (s *PullRequestService) splitWindow(ctx context.Context, username string, start, end time.Time, total int) ([]domain.PullRequestSummary, error) {
	first, last := domain.DateOf(start), domain.DateOf(end)
	if !first.Before(last) {
		return nil, domain.NewSearchWindowExceededError(username, first, total, gateway.SearchResultWindow)
	}
	days := int(last.Time().Sub(first.Time()).Hours() / 24)
	mid := first.AddDays(days / 2)
	s.logger.Debug("splitting habit tracker window",
		slog.String("start", first.String()),
		slog.String("end", last.String()),
		slog.Int("total_count", total),
	)

	left, err := s.collectWindow(ctx, username, start, mid.Time())
	if err != nil {
		return nil, err
	}
	right, err := s.collectWindow(ctx, username, mid.AddDays(1).Time(), end)
	if err != nil {
		return nil, err
	}
	return append(left, right...), nil
}

func requireUsername(username string) (string, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return "", domain.NewValidationError("username is required")
	}
	return username, nil
}
