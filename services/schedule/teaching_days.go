package schedule

import (
	"sort"
	"time"
)

// DateLayout is the wire format for calendar dates
const DateLayout = "2006-01-02"

// MaxSpanDays is the longest date range, inclusive, one schedule run may cover
const MaxSpanDays = 3 * 366

// Config describes the teaching calendar for one schedule run
type Config struct {
	StartDate time.Time
	EndDate   time.Time
	Weekdays  []time.Weekday
	Holidays  []time.Time
}

// WeeklyFrequency is the number of distinct weekdays in the recurrence pattern
func (c Config) WeeklyFrequency() int {
	return len(weekdaySet(c.Weekdays))
}

// SpanDays is the number of calendar days in [StartDate, EndDate], or 0 when
// either bound is missing or the end precedes the start
func (c Config) SpanDays() int {
	if c.StartDate.IsZero() || c.EndDate.IsZero() {
		return 0
	}
	start, end := DateOf(c.StartDate), DateOf(c.EndDate)
	if end.Before(start) {
		return 0
	}
	return int(end.Sub(start).Hours()/24) + 1
}

// DateOf truncates t to its calendar date at UTC midnight.
// The wall-clock date of t in its own location is kept.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD string into a UTC calendar date
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, time.UTC)
}

// SameDay reports whether a and b fall on the same calendar date
func SameDay(a, b time.Time) bool {
	return DateOf(a).Equal(DateOf(b))
}

// TeachingDays returns every date in [StartDate, EndDate] whose weekday is in
// the pattern and which is not a holiday, ascending and without duplicates.
// An empty pattern, an end before the start or a range longer than
// MaxSpanDays yields an empty list.
func TeachingDays(cfg Config) []time.Time {
	days := []time.Time{}
	if cfg.StartDate.IsZero() || cfg.EndDate.IsZero() || cfg.SpanDays() > MaxSpanDays {
		return days
	}

	weekdays := weekdaySet(cfg.Weekdays)
	if len(weekdays) == 0 {
		return days
	}

	start, end := DateOf(cfg.StartDate), DateOf(cfg.EndDate)
	if end.Before(start) {
		return days
	}

	holidays := make(map[time.Time]struct{}, len(cfg.Holidays))
	for _, h := range cfg.Holidays {
		holidays[DateOf(h)] = struct{}{}
	}

	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if _, ok := weekdays[d.Weekday()]; !ok {
			continue
		}
		if _, ok := holidays[d]; ok {
			continue
		}
		days = append(days, d)
	}
	return days
}

// ParseWeekdays converts day indices (0 = Sunday) into weekdays, sorted and
// de-duplicated. Indices outside 0..6 are dropped.
func ParseWeekdays(indices []int) []time.Weekday {
	seen := make(map[time.Weekday]struct{}, len(indices))
	for _, i := range indices {
		if i < 0 || i > 6 {
			continue
		}
		seen[time.Weekday(i)] = struct{}{}
	}
	out := make([]time.Weekday, 0, len(seen))
	for wd := range seen {
		out = append(out, wd)
	}
	sort.Slice(out, func(a, b int) bool { return out[a] < out[b] })
	return out
}

func weekdaySet(weekdays []time.Weekday) map[time.Weekday]struct{} {
	set := make(map[time.Weekday]struct{}, len(weekdays))
	for _, wd := range weekdays {
		if wd < time.Sunday || wd > time.Saturday {
			continue
		}
		set[wd] = struct{}{}
	}
	return set
}
