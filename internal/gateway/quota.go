package gateway

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/go-github/v62/github"
	"github.com/naka-gawa/pr-tracker/internal/domain"
	"github.com/naka-gawa/pr-tracker/internal/logging"
)

// defaultQuotaLimit is GitHub's documented hourly limit for authenticated requests.
// It stands in for the real limit when the rate_limit endpoint cannot be reached.
const defaultQuotaLimit = 5000

// Cost table, in API calls.
const (
	searchBaseCost    = 1
	searchPerItemCost = 2
	detailCost        = 2
	listBaseCost      = 1
	listPerItemCost   = 2
)

// QuotaTracker reads the remaining GitHub quota and decides whether a batch may start.
// It never caches: every check is a fresh remote read.
type QuotaTracker struct {
	api    API
	now    func() time.Time
	logger *slog.Logger
}

// NewQuotaTracker creates a QuotaTracker backed by api.
func NewQuotaTracker(api API, logger *slog.Logger) *QuotaTracker {
	return &QuotaTracker{api: api, now: time.Now, logger: logger}
}

// Check returns the current status of resource. Failures are logged and reported as an
// empty quota so callers refuse work instead of guessing.
func (q *QuotaTracker) Check(ctx context.Context, resource domain.QuotaResource) domain.QuotaStatus {
	limits, err := q.api.RateLimits(ctx)
	if err != nil {
		q.logger.Error("failed to check rate limit",
			slog.String("resource", string(resource)),
			logging.Err(err),
		)
		return domain.NewQuotaStatus(resource, defaultQuotaLimit, 0, q.now())
	}

	var rate *github.Rate
	switch resource {
	case domain.QuotaResourceGraphQL:
		rate = limits.GetGraphQL()
	default:
		rate = limits.GetCore()
	}
	if rate == nil {
		q.logger.Error("rate limit response has no entry for resource", slog.String("resource", string(resource)))
		return domain.NewQuotaStatus(resource, defaultQuotaLimit, 0, q.now())
	}
	return domain.NewQuotaStatus(resource, rate.Limit, rate.Remaining, rate.Reset.Time)
}

// EstimateCost returns the conservative number of API calls a batch of itemCount items may use.
func (q *QuotaTracker) EstimateCost(op domain.Operation, itemCount int) int {
	if itemCount < 0 {
		itemCount = 0
	}
	switch op {
	case domain.OperationSearch:
		return searchBaseCost + searchPerItemCost*itemCount
	case domain.OperationDetail:
		return detailCost
	case domain.OperationList:
		return listBaseCost + listPerItemCost*itemCount
	default:
		return searchBaseCost + searchPerItemCost*itemCount
	}
}

// Evaluate checks the quota for op and reports whether the estimated cost fits.
func (q *QuotaTracker) Evaluate(ctx context.Context, op domain.Operation, itemCount int) (bool, int, domain.QuotaStatus) {
	cost := q.EstimateCost(op, itemCount)
	status := q.Check(ctx, op.Resource())

	attrs := []any{
		slog.String("operation", string(op)),
		slog.String("resource", string(status.Resource)),
		slog.Int("remaining", status.Remaining),
		slog.Int("limit", status.Limit),
		slog.Int("cost", cost),
		slog.Time("reset_at", status.ResetAt),
	}
	switch status.Severity() {
	case domain.QuotaSeverityCritical:
		q.logger.Error("quota critically low", attrs...)
	case domain.QuotaSeverityWarning:
		q.logger.Warn("quota running low", attrs...)
	default:
		q.logger.Info("quota status", attrs...)
	}

	return status.Remaining >= cost, cost, status
}

// EnsureSufficient reports whether the remaining quota covers the estimated cost of op.
func (q *QuotaTracker) EnsureSufficient(ctx context.Context, op domain.Operation, itemCount int) bool {
	ok, _, _ := q.Evaluate(ctx, op, itemCount)
	return ok
}
