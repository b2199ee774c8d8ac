package domain

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// Period selects how far back the habit tracker looks.
type Period string

const (
	PeriodLastYear    Period = "last-year"
	PeriodLast6Months Period = "last-6-months"
	PeriodLast3Months Period = "last-3-months"

	DefaultHabitPeriod = PeriodLastYear
)

// ParsePeriod validates a period string. The empty string yields the default period.
func ParsePeriod(s string) (Period, error) {
	switch p := Period(s); p {
	case "":
		return DefaultHabitPeriod, nil
	case PeriodLastYear, PeriodLast6Months, PeriodLast3Months:
		return p, nil
	default:
		return "", NewValidationError("invalid period %q: must be one of %s, %s, %s",
			s, PeriodLastYear, PeriodLast6Months, PeriodLast3Months)
	}
}

const dateLayout = "2006-01-02"

// Date is a calendar day in UTC.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// DateOf returns the UTC calendar day of t.
func DateOf(t time.Time) Date {
	y, m, d := t.UTC().Date()
	return Date{Year: y, Month: m, Day: d}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("failed to parse date %q: %w", s, err)
	}
	return DateOf(t), nil
}

// Time returns midnight UTC of d.
func (d Date) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

func (d Date) AddDays(n int) Date { return DateOf(d.Time().AddDate(0, 0, n)) }
func (d Date) Weekday() time.Weekday { return d.Time().Weekday() }
func (d Date) Before(other Date) bool { return d.Time().Before(other.Time()) }
func (d Date) After(other Date) bool { return d.Time().After(other.Time()) }
func (d Date) String() string { return d.Time().Format(dateLayout) }
func (d Date) MarshalJSON() ([]byte, error) { return json.Marshal(d.String()) }

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// MarshalYAML keeps the YAML rendering identical to JSON.
func (d Date) MarshalYAML() (any, error) { return d.String(), nil }

// DayBuckets is an ordered map from calendar day to the pull requests created that day.
// Reading a day that was never added yields an empty, non-nil slice.
type DayBuckets struct {
	days  []Date
	items map[Date][]PullRequestRef
}

// NewDayBuckets returns an empty bucket map.
func NewDayBuckets() *DayBuckets {
	return &DayBuckets{items: make(map[Date][]PullRequestRef)}
}

// Add appends ref to the bucket for day, keeping days sorted.
func (b *DayBuckets) Add(day Date, ref PullRequestRef) {
	if _, ok := b.items[day]; !ok {
		i := sort.Search(len(b.days), func(i int) bool { return !b.days[i].Before(day) })
		b.days = append(b.days, Date{})
		copy(b.days[i+1:], b.days[i:])
		b.days[i] = day
	}
	b.items[day] = append(b.items[day], ref)
}

// Get returns the refs for day.
func (b *DayBuckets) Get(day Date) []PullRequestRef {
	refs := b.items[day]
	out := make([]PullRequestRef, len(refs))
	copy(out, refs)
	return out
}

// Days returns the populated days in ascending order.
func (b *DayBuckets) Days() []Date {
	out := make([]Date, len(b.days))
	copy(out, b.days)
	return out
}

// Len is the number of populated days.
func (b *DayBuckets) Len() int { return len(b.days) }

// HabitTrackerDay is one cell of the calendar grid. Count == len(PullRequests).
type HabitTrackerDay struct {
	Date         Date             `json:"date" yaml:"date"`
	Count        int              `json:"count" yaml:"count"`
	PullRequests []PullRequestRef `json:"pullRequests" yaml:"pullRequests"`
	// Level is a 0-4 intensity bucket relative to the other active days.
	Level int `json:"level" yaml:"level"`
}

// HabitTrackerWeek runs Sunday through Saturday.
type HabitTrackerWeek [7]HabitTrackerDay

// HabitTrackerData is the calendar summary for one user and period.
type HabitTrackerData struct {
	Username        string             `json:"username" yaml:"username"`
	StartDate       Date               `json:"startDate" yaml:"startDate"`
	EndDate         Date               `json:"endDate" yaml:"endDate"`
	Weeks           []HabitTrackerWeek `json:"weeks" yaml:"weeks"`
	TotalPRs        int                `json:"totalPRs" yaml:"totalPRs"`
	MaxDailyPRs     int                `json:"maxDailyPRs" yaml:"maxDailyPRs"`
	ActiveDays      int                `json:"activeDays" yaml:"activeDays"`
	AverageDailyPRs float64            `json:"averageDailyPRs" yaml:"averageDailyPRs"`
	LongestStreak   int                `json:"longestStreak" yaml:"longestStreak"`
	CurrentStreak   int                `json:"currentStreak" yaml:"currentStreak"`
}
