package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/go-github/v62/github"
	"github.com/naka-gawa/pr-tracker/internal/domain"
	"github.com/naka-gawa/pr-tracker/internal/logging"
)

// Retry configuration defaults.
const (
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = 1 * time.Second

	primaryQuotaMaxWait   = 30 * time.Second
	secondaryQuotaMaxWait = 60 * time.Second
)

// FailureCause classifies why a remote call failed.
type FailureCause string

const (
	CausePrimaryQuota   FailureCause = "primary-quota"
	CauseSecondaryQuota FailureCause = "secondary-quota"
	CauseTransient      FailureCause = "transient-other"
	// CausePermanent failures are returned without retrying.
	CausePermanent FailureCause = "permanent"
)

// RetryAttempt describes one failed attempt that is about to be retried.
type RetryAttempt struct {
	Attempt int
	Delay   time.Duration
	Cause   FailureCause
}

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// Retrier holds the retry policy shared by every fetcher.
type Retrier struct {
	maxAttempts int
	baseDelay   time.Duration
	sleep       Sleeper
	now         func() time.Time
	onRetry     func(RetryAttempt)
	logger      *slog.Logger
}

// RetrierOption customizes a Retrier.
type RetrierOption func(*Retrier)

// WithSleeper replaces the timer-based sleep, mainly for tests.
func WithSleeper(s Sleeper) RetrierOption {
	return func(r *Retrier) { r.sleep = s }
}

// WithClock replaces time.Now when computing waits until a quota reset.
func WithClock(now func() time.Time) RetrierOption {
	return func(r *Retrier) { r.now = now }
}

// WithRetryObserver is called before every backoff sleep.
func WithRetryObserver(fn func(RetryAttempt)) RetrierOption {
	return func(r *Retrier) { r.onRetry = fn }
}

// NewRetrier creates a Retrier. Non-positive values fall back to the defaults.
func NewRetrier(maxAttempts int, baseDelay time.Duration, logger *slog.Logger, opts ...RetrierOption) *Retrier {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	if baseDelay <= 0 {
		baseDelay = DefaultBaseDelay
	}
	r := &Retrier{
		maxAttempts: maxAttempts,
		baseDelay:   baseDelay,
		sleep:       sleepContext,
		now:         time.Now,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Retry executes call until it succeeds, fails permanently, or the attempt budget is spent.
// Quota failures that exhaust the budget become domain quota errors; any other failure on the
// final attempt is returned unchanged.
func Retry[T any](ctx context.Context, r *Retrier, call func(context.Context) (T, error)) (T, error) {
	var zero T
	for attempt := 1; ; attempt++ {
		result, err := call(ctx)
		if err == nil {
			return result, nil
		}

		f := classify(err)
		if f.cause == CausePermanent {
			return zero, err
		}
		if attempt >= r.maxAttempts {
			return zero, r.exhausted(f, attempt, err)
		}

		delay := r.delayFor(f, attempt)
		r.logger.Warn("remote call failed, retrying",
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", r.maxAttempts),
			slog.String("cause", string(f.cause)),
			slog.Duration("delay", delay),
			logging.Err(err),
		)
		if r.onRetry != nil {
			r.onRetry(RetryAttempt{Attempt: attempt, Delay: delay, Cause: f.cause})
		}
		if err := r.sleep(ctx, delay); err != nil {
			return zero, fmt.Errorf("retry aborted after %d attempts: %w", attempt, err)
		}
	}
}

func (r *Retrier) delayFor(f failure, attempt int) time.Duration {
	switch f.cause {
	case CausePrimaryQuota:
		if f.resetAt != nil {
			if wait := f.resetAt.Sub(r.now()); wait > 0 {
				return min(wait, primaryQuotaMaxWait)
			}
		}
		return backoffDelay(attempt, r.baseDelay, primaryQuotaMaxWait)
	case CauseSecondaryQuota:
		if f.retryAfter > 0 {
			return min(f.retryAfter, secondaryQuotaMaxWait)
		}
		return backoffDelay(attempt, r.baseDelay, secondaryQuotaMaxWait)
	default:
		return backoffDelay(attempt, r.baseDelay, 0)
	}
}

func (r *Retrier) exhausted(f failure, attempts int, err error) error {
	switch f.cause {
	case CausePrimaryQuota:
		return domain.NewQuotaExhaustedError(domain.ErrorKindPrimaryQuotaExhausted, attempts, f.resetAt, err)
	case CauseSecondaryQuota:
		var resetAt *time.Time
		if f.retryAfter > 0 {
			t := r.now().Add(f.retryAfter)
			resetAt = &t
		}
		return domain.NewQuotaExhaustedError(domain.ErrorKindSecondaryQuotaExhausted, attempts, resetAt, err)
	default:
		return err
	}
}

// backoffDelay returns base * 2^(attempt-1), limited to maxDelay when maxDelay > 0.
func backoffDelay(attempt int, base, maxDelay time.Duration) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := base
	for i := 1; i < attempt; i++ {
		if d > math.MaxInt64/2 {
			d = math.MaxInt64
			break
		}
		d *= 2
	}
	if maxDelay > 0 && d > maxDelay {
		return maxDelay
	}
	return d
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

type failure struct {
	cause      FailureCause
	resetAt    *time.Time
	retryAfter time.Duration
}

// classify inspects go-github's typed errors first, then falls back to the
// message text the GraphQL client produces.
func classify(err error) failure {
	var de *domain.Error
	if errors.As(err, &de) {
		return failure{cause: CausePermanent}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return failure{cause: CausePermanent}
	}

	var rateErr *github.RateLimitError
	if errors.As(err, &rateErr) {
		f := failure{cause: CausePrimaryQuota}
		if reset := rateErr.Rate.Reset.Time; !reset.IsZero() {
			f.resetAt = &reset
		}
		return f
	}

	var abuseErr *github.AbuseRateLimitError
	if errors.As(err, &abuseErr) {
		f := failure{cause: CauseSecondaryQuota}
		if abuseErr.RetryAfter != nil {
			f.retryAfter = *abuseErr.RetryAfter
		}
		return f
	}

	var respErr *github.ErrorResponse
	if errors.As(err, &respErr) && respErr.Response != nil {
		header := respErr.Response.Header
		switch respErr.Response.StatusCode {
		case http.StatusTooManyRequests:
			f := failure{cause: CauseSecondaryQuota}
			if d, ok := parseRetryAfter(header.Get("Retry-After")); ok {
				f.retryAfter = d
			}
			return f
		case http.StatusForbidden:
			if header.Get("X-RateLimit-Remaining") == "0" {
				return failure{cause: CausePrimaryQuota, resetAt: parseResetHeader(header.Get("X-RateLimit-Reset"))}
			}
			return failure{cause: CausePermanent}
		case http.StatusUnauthorized, http.StatusNotFound, http.StatusGone, http.StatusUnprocessableEntity:
			return failure{cause: CausePermanent}
		}
		return failure{cause: CauseTransient}
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "secondary rate limit"),
		strings.Contains(msg, "abuse"),
		strings.Contains(msg, "status code: 429"):
		return failure{cause: CauseSecondaryQuota}
	case strings.Contains(msg, "api rate limit exceeded"),
		strings.Contains(msg, "rate_limited"):
		return failure{cause: CausePrimaryQuota}
	}
	return failure{cause: CauseTransient}
}

// parseRetryAfter accepts either delay-seconds or an HTTP date.
func parseRetryAfter(value string) (time.Duration, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}
	if seconds, err := strconv.Atoi(value); err == nil && seconds >= 0 {
		return time.Duration(seconds) * time.Second, true
	}
	if t, err := http.ParseTime(value); err == nil {
		if d := time.Until(t); d > 0 {
			return d, true
		}
	}
	return 0, false
}

func parseResetHeader(value string) *time.Time {
	epoch, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil || epoch <= 0 {
		return nil
	}
	t := time.Unix(epoch, 0)
	return &t
}
