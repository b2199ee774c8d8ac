package usecase

import (
	"log/slog"
	"time"

	"github.com/montanaflynn/stats"
	"github.com/naka-gawa/pr-tracker/internal/domain"
	"github.com/naka-gawa/pr-tracker/internal/logging"
)

// HabitAggregator turns a flat list of pull requests into a Sunday-first calendar grid.
type HabitAggregator struct {
	now    func() time.Time
	logger *slog.Logger
}

// NewHabitAggregator creates a HabitAggregator. A nil clock means time.Now.
func NewHabitAggregator(now func() time.Time, logger *slog.Logger) *HabitAggregator {
	if now == nil {
		now = time.Now
	}
	return &HabitAggregator{now: now, logger: logger}
}

// ResolveWindow returns the [start, end] interval for period, ending now.
func (a *HabitAggregator) ResolveWindow(period domain.Period) (time.Time, time.Time) {
	end := a.now().UTC()
	switch period {
	case domain.PeriodLast6Months:
		return end.AddDate(0, -6, 0), end
	case domain.PeriodLast3Months:
		return end.AddDate(0, -3, 0), end
	default:
		return end.AddDate(-1, 0, 0), end
	}
}

// BucketByDay groups items by the UTC calendar day they were created.
func (a *HabitAggregator) BucketByDay(items []domain.PullRequestSummary) *domain.DayBuckets {
	buckets := domain.NewDayBuckets()
	for _, item := range items {
		buckets.Add(domain.DateOf(item.CreatedAt), item.Ref())
	}
	return buckets
}

// BuildWeeks lays out whole weeks from the Sunday on or before start until a week would
// begin after end. Days outside [start, end] are included as padding.
func (a *HabitAggregator) BuildWeeks(start, end domain.Date, buckets *domain.DayBuckets) []domain.HabitTrackerWeek {
	if end.Before(start) {
		return []domain.HabitTrackerWeek{}
	}
	first := start.AddDays(-int(start.Weekday()))

	var weeks []domain.HabitTrackerWeek
	for weekStart := first; !weekStart.After(end); weekStart = weekStart.AddDays(7) {
		var week domain.HabitTrackerWeek
		for i := range week {
			day := weekStart.AddDays(i)
			refs := buckets.Get(day)
			week[i] = domain.HabitTrackerDay{
				Date:         day,
				Count:        len(refs),
				PullRequests: refs,
			}
		}
		weeks = append(weeks, week)
	}
	return weeks
}

// Aggregate builds the habit tracker for username over period.
func (a *HabitAggregator) Aggregate(username string, period domain.Period, items []domain.PullRequestSummary) domain.HabitTrackerData {
	start, end := a.ResolveWindow(period)
	return a.AggregateWindow(username, start, end, items)
}

// AggregateWindow builds the habit tracker over an already resolved window.
func (a *HabitAggregator) AggregateWindow(username string, start, end time.Time, items []domain.PullRequestSummary) domain.HabitTrackerData {
	startDate, endDate := domain.DateOf(start), domain.DateOf(end)
	weeks := a.BuildWeeks(startDate, endDate, a.BucketByDay(items))

	data := domain.HabitTrackerData{
		Username:  username,
		StartDate: startDate,
		EndDate:   endDate,
		Weeks:     weeks,
	}

	var activeCounts stats.Float64Data
	for _, week := range weeks {
		for _, day := range week {
			data.TotalPRs += day.Count
			if day.Count > data.MaxDailyPRs {
				data.MaxDailyPRs = day.Count
			}
			if day.Count > 0 {
				activeCounts = append(activeCounts, float64(day.Count))
			}
		}
	}
	data.ActiveDays = len(activeCounts)

	if len(activeCounts) > 0 {
		a.assignLevels(data.Weeks, activeCounts)
		if mean, err := stats.Mean(activeCounts); err == nil {
			data.AverageDailyPRs, _ = stats.Round(mean, 2)
		} else {
			a.logger.Warn("failed to compute average daily pull requests", logging.Err(err))
		}
	}
	data.LongestStreak, data.CurrentStreak = streaks(weeks, startDate, endDate)

	a.logger.Debug("aggregated habit tracker",
		slog.String("username", username),
		slog.Int("weeks", len(weeks)),
		slog.Int("total_prs", data.TotalPRs),
	)
	return data
}

// assignLevels grades active days 1-4 by the quartiles of the active day counts.
func (a *HabitAggregator) assignLevels(weeks []domain.HabitTrackerWeek, activeCounts stats.Float64Data) {
	var thresholds [3]float64
	for i, percent := range []float64{25, 50, 75} {
		p, err := stats.PercentileNearestRank(activeCounts, percent)
		if err != nil {
			a.logger.Warn("failed to compute activity levels", logging.Err(err))
			return
		}
		thresholds[i] = p
	}

	for w := range weeks {
		for d := range weeks[w] {
			day := &weeks[w][d]
			count := float64(day.Count)
			switch {
			case day.Count == 0:
				day.Level = 0
			case count <= thresholds[0]:
				day.Level = 1
			case count <= thresholds[1]:
				day.Level = 2
			case count <= thresholds[2]:
				day.Level = 3
			default:
				day.Level = 4
			}
		}
	}
}

// streaks returns the longest run of active days inside [start, end] and the run ending
// on end, or on the day before when end itself has no activity yet.
func streaks(weeks []domain.HabitTrackerWeek, start, end domain.Date) (longest, current int) {
	run := 0
	var endCount, runBeforeEnd int
	for _, week := range weeks {
		for _, day := range week {
			if day.Date.Before(start) || day.Date.After(end) {
				continue
			}
			if day.Date == end {
				endCount = day.Count
				runBeforeEnd = run
			}
			if day.Count > 0 {
				run++
				longest = max(longest, run)
			} else {
				run = 0
			}
		}
	}
	if endCount > 0 {
		return longest, runBeforeEnd + 1
	}
	return longest, runBeforeEnd
}
