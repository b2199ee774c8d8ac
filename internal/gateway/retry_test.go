package gateway

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/go-github/v62/github"
	"github.com/naka-gawa/pr-tracker/internal/domain"
	"github.com/naka-gawa/pr-tracker/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC)

// sleepRecorder records requested delays instead of sleeping.
type sleepRecorder struct {
	delays []time.Duration
}

func (s *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	s.delays = append(s.delays, d)
	return ctx.Err()
}

func newTestRetrier(rec *sleepRecorder, maxAttempts int) *Retrier {
	return NewRetrier(maxAttempts, time.Second, logging.Discard(),
		WithSleeper(rec.sleep),
		WithClock(func() time.Time { return testNow }),
	)
}

func fakeResponse(status int, header http.Header) *http.Response {
	if header == nil {
		header = http.Header{}
	}
	return &http.Response{
		StatusCode: status,
		Header:     header,
		Request:    httptest.NewRequest(http.MethodGet, "https://api.github.com/search/issues", nil),
	}
}

func primaryErr(reset time.Time) error {
	return &github.RateLimitError{
		Rate:     github.Rate{Limit: 5000, Remaining: 0, Reset: github.Timestamp{Time: reset}},
		Response: fakeResponse(http.StatusForbidden, http.Header{"X-Ratelimit-Remaining": []string{"0"}}),
		Message:  "API rate limit exceeded",
	}
}

func secondaryErr(retryAfter time.Duration) error {
	e := &github.AbuseRateLimitError{
		Response: fakeResponse(http.StatusForbidden, nil),
		Message:  "You have exceeded a secondary rate limit",
	}
	if retryAfter > 0 {
		e.RetryAfter = &retryAfter
	}
	return e
}

func statusErr(status int) error {
	return &github.ErrorResponse{Response: fakeResponse(status, nil), Message: http.StatusText(status)}
}

func TestRetry(t *testing.T) {
	transient := statusErr(http.StatusBadGateway)

	testCases := []struct {
		name           string
		maxAttempts    int
		errs           []error
		expectedCalls  int
		expectedDelays []time.Duration
		expectedKind   domain.ErrorKind
		expectedErr    error
		expectedErrMsg string
	}{
		{
			name:          "success on first attempt does not sleep",
			maxAttempts:   3,
			errs:          nil,
			expectedCalls: 1,
		},
		{
			name:           "transient failure then success",
			maxAttempts:    3,
			errs:           []error{transient},
			expectedCalls:  2,
			expectedDelays: []time.Duration{time.Second},
		},
		{
			name:           "two transient failures then success",
			maxAttempts:    3,
			errs:           []error{transient, transient},
			expectedCalls:  3,
			expectedDelays: []time.Duration{time.Second, 2 * time.Second},
		},
		{
			name:           "primary quota never recovers",
			maxAttempts:    3,
			errs:           []error{primaryErr(testNow.Add(10 * time.Second)), primaryErr(testNow.Add(10 * time.Second)), primaryErr(testNow.Add(10 * time.Second))},
			expectedCalls:  3,
			expectedDelays: []time.Duration{10 * time.Second, 10 * time.Second},
			expectedKind:   domain.ErrorKindPrimaryQuotaExhausted,
			expectedErrMsg: "after 3 attempts",
		},
		{
			name:           "primary quota wait is capped",
			maxAttempts:    2,
			errs:           []error{primaryErr(testNow.Add(time.Hour)), primaryErr(testNow.Add(time.Hour))},
			expectedCalls:  2,
			expectedDelays: []time.Duration{30 * time.Second},
			expectedKind:   domain.ErrorKindPrimaryQuotaExhausted,
			expectedErrMsg: "resets at 2024-03-05T13:00:00Z",
		},
		{
			name:           "primary quota with past reset falls back to backoff",
			maxAttempts:    3,
			errs:           []error{primaryErr(testNow.Add(-time.Minute))},
			expectedCalls:  2,
			expectedDelays: []time.Duration{time.Second},
		},
		{
			name:           "secondary quota honors retry-after",
			maxAttempts:    3,
			errs:           []error{secondaryErr(5 * time.Second), secondaryErr(5 * time.Second), secondaryErr(5 * time.Second)},
			expectedCalls:  3,
			expectedDelays: []time.Duration{5 * time.Second, 5 * time.Second},
			expectedKind:   domain.ErrorKindSecondaryQuotaExhausted,
			expectedErrMsg: "secondary quota exhausted after 3 attempts",
		},
		{
			name:           "secondary quota retry-after is capped",
			maxAttempts:    3,
			errs:           []error{secondaryErr(2 * time.Minute)},
			expectedCalls:  2,
			expectedDelays: []time.Duration{60 * time.Second},
		},
		{
			name:           "secondary quota without retry-after backs off",
			maxAttempts:    3,
			errs:           []error{secondaryErr(0), secondaryErr(0)},
			expectedCalls:  3,
			expectedDelays: []time.Duration{time.Second, 2 * time.Second},
		},
		{
			name:           "transient failures return the original error",
			maxAttempts:    3,
			errs:           []error{transient, transient, transient},
			expectedCalls:  3,
			expectedDelays: []time.Duration{time.Second, 2 * time.Second},
			expectedErr:    transient,
		},
		{
			name:          "not found is not retried",
			maxAttempts:   3,
			errs:          []error{statusErr(http.StatusNotFound)},
			expectedCalls: 1,
			expectedErr:   nil,
		},
		{
			name:           "single attempt never sleeps",
			maxAttempts:    1,
			errs:           []error{primaryErr(testNow.Add(10 * time.Second))},
			expectedCalls:  1,
			expectedKind:   domain.ErrorKindPrimaryQuotaExhausted,
			expectedErrMsg: "after 1 attempts",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rec := &sleepRecorder{}
			retrier := newTestRetrier(rec, tc.maxAttempts)

			calls := 0
			result, err := Retry(context.Background(), retrier, func(ctx context.Context) (string, error) {
				calls++
				if calls <= len(tc.errs) {
					return "", tc.errs[calls-1]
				}
				return "ok", nil
			})

			assert.Equal(t, tc.expectedCalls, calls)
			assert.Equal(t, tc.expectedDelays, rec.delays)

			if calls > len(tc.errs) {
				require.NoError(t, err)
				assert.Equal(t, "ok", result)
				return
			}
			require.Error(t, err)
			assert.Empty(t, result)
			if tc.expectedKind != "" {
				assert.True(t, domain.IsKind(err, tc.expectedKind), "unexpected error: %v", err)
			}
			if tc.expectedErrMsg != "" {
				assert.Contains(t, err.Error(), tc.expectedErrMsg)
			}
			if tc.expectedErr != nil {
				assert.Same(t, tc.expectedErr, err)
			}
		})
	}
}

func TestRetry_ContextCanceledDuringSleep(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	retrier := NewRetrier(3, time.Second, logging.Discard(), WithSleeper(func(ctx context.Context, d time.Duration) error {
		cancel()
		return ctx.Err()
	}))

	calls := 0
	_, err := Retry(ctx, retrier, func(ctx context.Context) (int, error) {
		calls++
		return 0, statusErr(http.StatusInternalServerError)
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestRetry_ObserverSeesEveryRetry(t *testing.T) {
	var seen []RetryAttempt
	retrier := NewRetrier(3, time.Second, logging.Discard(),
		WithSleeper((&sleepRecorder{}).sleep),
		WithRetryObserver(func(a RetryAttempt) { seen = append(seen, a) }),
	)

	_, err := Retry(context.Background(), retrier, func(ctx context.Context) (int, error) {
		return 0, secondaryErr(3 * time.Second)
	})

	require.Error(t, err)
	assert.Equal(t, []RetryAttempt{
		{Attempt: 1, Delay: 3 * time.Second, Cause: CauseSecondaryQuota},
		{Attempt: 2, Delay: 3 * time.Second, Cause: CauseSecondaryQuota},
	}, seen)
}

func TestBackoffDelay(t *testing.T) {
	testCases := []struct {
		name     string
		attempt  int
		base     time.Duration
		maxDelay time.Duration
		expected time.Duration
	}{
		{name: "first attempt is the base delay", attempt: 1, base: time.Second, expected: time.Second},
		{name: "second attempt doubles", attempt: 2, base: time.Second, expected: 2 * time.Second},
		{name: "fourth attempt", attempt: 4, base: time.Second, expected: 8 * time.Second},
		{name: "capped", attempt: 10, base: time.Second, maxDelay: 30 * time.Second, expected: 30 * time.Second},
		{name: "zero cap means uncapped", attempt: 7, base: time.Second, expected: 64 * time.Second},
		{name: "attempt below one is treated as one", attempt: 0, base: 500 * time.Millisecond, expected: 500 * time.Millisecond},
		{name: "huge attempt does not overflow", attempt: 200, base: time.Second, maxDelay: time.Minute, expected: time.Minute},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, backoffDelay(tc.attempt, tc.base, tc.maxDelay))
		})
	}
}

func TestClassify(t *testing.T) {
	testCases := []struct {
		name     string
		err      error
		expected FailureCause
	}{
		{name: "rate limit error", err: primaryErr(testNow), expected: CausePrimaryQuota},
		{name: "abuse rate limit error", err: secondaryErr(time.Second), expected: CauseSecondaryQuota},
		{name: "too many requests", err: statusErr(http.StatusTooManyRequests), expected: CauseSecondaryQuota},
		{
			name: "forbidden with exhausted quota header",
			err: &github.ErrorResponse{Response: fakeResponse(http.StatusForbidden, http.Header{
				"X-Ratelimit-Remaining": []string{"0"},
				"X-Ratelimit-Reset":     []string{"1709640000"},
			})},
			expected: CausePrimaryQuota,
		},
		{name: "plain forbidden", err: statusErr(http.StatusForbidden), expected: CausePermanent},
		{name: "unauthorized", err: statusErr(http.StatusUnauthorized), expected: CausePermanent},
		{name: "not found", err: statusErr(http.StatusNotFound), expected: CausePermanent},
		{name: "unprocessable", err: statusErr(http.StatusUnprocessableEntity), expected: CausePermanent},
		{name: "server error", err: statusErr(http.StatusInternalServerError), expected: CauseTransient},
		{name: "validation error", err: domain.NewValidationError("bad"), expected: CausePermanent},
		{name: "canceled context", err: context.Canceled, expected: CausePermanent},
		{name: "graphql secondary limit", err: errors.New("You have exceeded a secondary rate limit"), expected: CauseSecondaryQuota},
		{name: "graphql 429", err: errors.New("non-200 OK status code: 429 Too Many Requests body: \"\""), expected: CauseSecondaryQuota},
		{name: "graphql primary limit", err: errors.New("API rate limit exceeded for user ID 1."), expected: CausePrimaryQuota},
		{name: "network error", err: errors.New("connection reset by peer"), expected: CauseTransient},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, classify(tc.err).cause)
		})
	}
}

func TestParseRetryAfter(t *testing.T) {
	d, ok := parseRetryAfter("17")
	assert.True(t, ok)
	assert.Equal(t, 17*time.Second, d)

	_, ok = parseRetryAfter("")
	assert.False(t, ok)

	_, ok = parseRetryAfter("soon")
	assert.False(t, ok)

	future := time.Now().Add(time.Hour).UTC().Format(http.TimeFormat)
	d, ok = parseRetryAfter(future)
	assert.True(t, ok)
	assert.Greater(t, d, 59*time.Minute)
}
