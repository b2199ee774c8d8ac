package usecase

import (
	"testing"
	"time"

	"github.com/naka-gawa/pr-tracker/internal/domain"
	"github.com/naka-gawa/pr-tracker/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixedNow is a Wednesday.
var fixedNow = time.Date(2024, 3, 6, 15, 30, 0, 0, time.UTC)

func newTestAggregator() *HabitAggregator {
	return NewHabitAggregator(func() time.Time { return fixedNow }, logging.Discard())
}

func prAt(number int, createdAt time.Time) domain.PullRequestSummary {
	return domain.PullRequestSummary{
		Number:     number,
		Title:      "PR",
		CreatedAt:  createdAt,
		State:      domain.PRStateOpen,
		URL:        "https://github.com/octo/app/pull/1",
		Repository: domain.Repository{Name: "octo/app"},
	}
}

func mustDate(t *testing.T, s string) domain.Date {
	t.Helper()
	d, err := domain.ParseDate(s)
	require.NoError(t, err)
	return d
}

func TestHabitAggregator_ResolveWindow(t *testing.T) {
	testCases := []struct {
		name          string
		period        domain.Period
		expectedStart time.Time
	}{
		{name: "last year", period: domain.PeriodLastYear, expectedStart: time.Date(2023, 3, 6, 15, 30, 0, 0, time.UTC)},
		{name: "last six months", period: domain.PeriodLast6Months, expectedStart: time.Date(2023, 9, 6, 15, 30, 0, 0, time.UTC)},
		{name: "last three months", period: domain.PeriodLast3Months, expectedStart: time.Date(2023, 12, 6, 15, 30, 0, 0, time.UTC)},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			start, end := newTestAggregator().ResolveWindow(tc.period)
			assert.Equal(t, tc.expectedStart, start)
			assert.Equal(t, fixedNow, end)
		})
	}
}

func TestHabitAggregator_BucketByDay(t *testing.T) {
	aggregator := newTestAggregator()
	items := []domain.PullRequestSummary{
		prAt(1, time.Date(2024, 3, 5, 1, 0, 0, 0, time.UTC)),
		prAt(2, time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC)),
		prAt(3, time.Date(2024, 3, 5, 23, 59, 59, 0, time.UTC)),
		// 2024-03-06 01:00 in UTC+9 is still 2024-03-05 in UTC.
		prAt(4, time.Date(2024, 3, 6, 1, 0, 0, 0, time.FixedZone("JST", 9*60*60))),
		prAt(5, time.Date(2024, 2, 29, 8, 0, 0, 0, time.UTC)),
	}

	buckets := aggregator.BucketByDay(items)

	assert.Equal(t, []domain.Date{mustDate(t, "2024-02-29"), mustDate(t, "2024-03-05")}, buckets.Days())
	assert.Len(t, buckets.Get(mustDate(t, "2024-03-05")), 4)
	assert.Len(t, buckets.Get(mustDate(t, "2024-02-29")), 1)
	missing := buckets.Get(mustDate(t, "2024-03-01"))
	assert.NotNil(t, missing)
	assert.Empty(t, missing)
}

func TestHabitAggregator_BuildWeeks(t *testing.T) {
	testCases := []struct {
		name          string
		start         string
		end           string
		expectedWeeks int
		expectedFirst string
	}{
		{name: "start on a Sunday", start: "2024-03-03", end: "2024-03-09", expectedWeeks: 1, expectedFirst: "2024-03-03"},
		{name: "start mid-week pads back to Sunday", start: "2024-03-06", end: "2024-03-06", expectedWeeks: 1, expectedFirst: "2024-03-03"},
		{name: "end on a Sunday opens a new week", start: "2024-03-03", end: "2024-03-10", expectedWeeks: 2, expectedFirst: "2024-03-03"},
		{name: "three months", start: "2023-12-06", end: "2024-03-06", expectedWeeks: 14, expectedFirst: "2023-12-03"},
		{name: "leap year", start: "2023-03-06", end: "2024-03-06", expectedWeeks: 53, expectedFirst: "2023-03-05"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			start, end := mustDate(t, tc.start), mustDate(t, tc.end)

			weeks := newTestAggregator().BuildWeeks(start, end, domain.NewDayBuckets())

			require.Len(t, weeks, tc.expectedWeeks)
			assert.Equal(t, mustDate(t, tc.expectedFirst), weeks[0][0].Date)
			assert.Equal(t, time.Sunday, weeks[0][0].Date.Weekday())
			assert.False(t, weeks[0][0].Date.After(start))
			last := weeks[len(weeks)-1]
			assert.False(t, last[0].Date.After(end))
			assert.True(t, last[6].Date.After(end) || last[6].Date == end)

			prev := weeks[0][0].Date.AddDays(-1)
			for _, week := range weeks {
				assert.Equal(t, time.Sunday, week[0].Date.Weekday())
				for _, day := range week {
					assert.Equal(t, prev.AddDays(1), day.Date)
					assert.Equal(t, 0, day.Count)
					assert.NotNil(t, day.PullRequests)
					prev = day.Date
				}
			}
		})
	}
}

func TestHabitAggregator_Aggregate(t *testing.T) {
	t.Run("three pull requests on one day", func(t *testing.T) {
		items := []domain.PullRequestSummary{
			prAt(1, time.Date(2024, 3, 5, 9, 0, 0, 0, time.UTC)),
			prAt(2, time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)),
			prAt(3, time.Date(2024, 3, 5, 11, 0, 0, 0, time.UTC)),
		}

		data := newTestAggregator().Aggregate("octocat", domain.PeriodLast3Months, items)

		assert.Equal(t, "octocat", data.Username)
		assert.Equal(t, mustDate(t, "2023-12-06"), data.StartDate)
		assert.Equal(t, mustDate(t, "2024-03-06"), data.EndDate)
		assert.Equal(t, 3, data.TotalPRs)
		assert.Equal(t, 3, data.MaxDailyPRs)
		assert.Equal(t, 1, data.ActiveDays)
		assert.Equal(t, 3.0, data.AverageDailyPRs)
		assert.Equal(t, 1, data.LongestStreak)
		assert.Equal(t, 1, data.CurrentStreak)

		day := findDay(t, data, mustDate(t, "2024-03-05"))
		assert.Equal(t, 3, day.Count)
		assert.Len(t, day.PullRequests, 3)
		assert.Equal(t, 1, day.Level)
	})

	t.Run("empty period still yields a full grid", func(t *testing.T) {
		data := newTestAggregator().Aggregate("octocat", domain.PeriodLastYear, nil)

		assert.Equal(t, 0, data.TotalPRs)
		assert.Equal(t, 0, data.MaxDailyPRs)
		assert.Equal(t, 0, data.ActiveDays)
		assert.Equal(t, 0.0, data.AverageDailyPRs)
		assert.Equal(t, 0, data.CurrentStreak)
		assert.Len(t, data.Weeks, 53)
		for _, week := range data.Weeks {
			for _, day := range week {
				assert.Equal(t, 0, day.Count)
				assert.Equal(t, 0, day.Level)
				assert.NotNil(t, day.PullRequests)
			}
		}
	})

	t.Run("totals, levels and streaks", func(t *testing.T) {
		items := []domain.PullRequestSummary{}
		add := func(date string, n int) {
			d := mustDate(t, date)
			for i := 0; i < n; i++ {
				items = append(items, prAt(len(items)+1, d.Time().Add(time.Duration(i)*time.Hour)))
			}
		}
		add("2024-02-01", 1)
		add("2024-02-02", 2)
		add("2024-02-03", 3)
		add("2024-02-04", 8)
		add("2024-03-04", 1)
		add("2024-03-05", 1)

		data := newTestAggregator().Aggregate("octocat", domain.PeriodLast3Months, items)

		assert.Equal(t, 16, data.TotalPRs)
		assert.Equal(t, 8, data.MaxDailyPRs)
		assert.Equal(t, 6, data.ActiveDays)
		assert.Equal(t, 2.67, data.AverageDailyPRs)
		assert.Equal(t, 4, data.LongestStreak)
		// 2024-03-06 is empty so far, the streak through yesterday still counts.
		assert.Equal(t, 2, data.CurrentStreak)

		assert.Equal(t, 1, findDay(t, data, mustDate(t, "2024-02-01")).Level)
		// Active counts sort to [1 1 1 2 3 8]; nearest-rank quartiles are 1, 1 and 3.
		assert.Equal(t, 3, findDay(t, data, mustDate(t, "2024-02-02")).Level)
		assert.Equal(t, 3, findDay(t, data, mustDate(t, "2024-02-03")).Level)
		assert.Equal(t, 4, findDay(t, data, mustDate(t, "2024-02-04")).Level)
		assert.Equal(t, 1, findDay(t, data, mustDate(t, "2024-03-04")).Level)
		assert.Equal(t, 0, findDay(t, data, mustDate(t, "2024-02-05")).Level)

		sum := 0
		for _, week := range data.Weeks {
			for _, day := range week {
				assert.Equal(t, len(day.PullRequests), day.Count)
				assert.LessOrEqual(t, day.Count, data.MaxDailyPRs)
				sum += day.Count
			}
		}
		assert.Equal(t, data.TotalPRs, sum)
	})
}

func findDay(t *testing.T, data domain.HabitTrackerData, date domain.Date) domain.HabitTrackerDay {
	t.Helper()
	for _, week := range data.Weeks {
		for _, day := range week {
			if day.Date == date {
				return day
			}
		}
	}
	t.Fatalf("day %s not in grid", date)
	return domain.HabitTrackerDay{}
}
