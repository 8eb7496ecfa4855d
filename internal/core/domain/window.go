package domain

import (
	"time"
)

const (
	DaysPerWeek = 7
	HoursPerDay = 24
)

// CalendarDate truncates t to midnight of its own calendar day, keeping its
// location.
func CalendarDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// DateRange is an inclusive range of calendar dates.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// Bounds returns the half-open instant range [Start 00:00, End+1 00:00) in loc.
func (r DateRange) Bounds(loc *time.Location) (from, to time.Time) {
	sy, sm, sd := r.Start.Date()
	ey, em, ed := r.End.Date()
	from = time.Date(sy, sm, sd, 0, 0, 0, 0, loc)
	to = time.Date(ey, em, ed+1, 0, 0, 0, 0, loc)
	return from, to
}

// Contains reports whether t falls on one of the dates in the range, as seen in loc.
func (r DateRange) Contains(t time.Time, loc *time.Location) bool {
	from, to := r.Bounds(loc)
	return !t.Before(from) && t.Before(to)
}

// Yesterday returns the calendar date before now, in loc.
func Yesterday(now time.Time, loc *time.Location) time.Time {
	local := now.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day()-1, 0, 0, 0, 0, loc)
}

// WeeklyWindow returns the Sunday-to-Saturday week that contains yesterday.
// Weekly statistics are stored under the window's Start.
func WeeklyWindow(now time.Time, loc *time.Location) DateRange {
	yesterday := Yesterday(now, loc)
	lastSunday := yesterday.AddDate(0, 0, -int(yesterday.Weekday()))
	return DateRange{
		Start: lastSunday,
		End:   lastSunday.AddDate(0, 0, DaysPerWeek-1),
	}
}

// DailyWindow returns the single-day window covering yesterday.
func DailyWindow(now time.Time, loc *time.Location) DateRange {
	yesterday := Yesterday(now, loc)
	return DateRange{Start: yesterday, End: yesterday}
}

// HeatmapBucket is a (weekday, hour) cell. Day runs Monday=0 to Sunday=6.
type HeatmapBucket struct {
	Day  int
	Hour int
}

// IsValid reports whether the bucket lies inside the 7x24 grid.
func (b HeatmapBucket) IsValid() bool {
	return b.Day >= 0 && b.Day < DaysPerWeek && b.Hour >= 0 && b.Hour < HoursPerDay
}

// HeatmapDay converts a Go weekday (Sunday=0) to the heatmap day index (Monday=0).
func HeatmapDay(wd time.Weekday) int {
	return (int(wd) + 6) % DaysPerWeek
}

// BucketOf returns the heatmap bucket t falls into, as seen in loc.
func BucketOf(t time.Time, loc *time.Location) HeatmapBucket {
	local := t.In(loc)
	return HeatmapBucket{Day: HeatmapDay(local.Weekday()), Hour: local.Hour()}
}

// BucketsForDay returns the 24 hourly buckets of one heatmap day.
func BucketsForDay(day int) []HeatmapBucket {
	buckets := make([]HeatmapBucket, 0, HoursPerDay)
	for hour := 0; hour < HoursPerDay; hour++ {
		buckets = append(buckets, HeatmapBucket{Day: day, Hour: hour})
	}
	return buckets
}

// AllBuckets returns every bucket of the weekly grid in day-major order.
func AllBuckets() []HeatmapBucket {
	buckets := make([]HeatmapBucket, 0, DaysPerWeek*HoursPerDay)
	for day := 0; day < DaysPerWeek; day++ {
		buckets = append(buckets, BucketsForDay(day)...)
	}
	return buckets
}

// HeatmapCutoff returns the earliest time_asked a heatmap run considers, or
// nil when lookbackWeeks is zero and the whole history counts. The cutoff is
// midnight at the start of the lookback, so it always covers whole weeks up to
// and including yesterday.
func HeatmapCutoff(now time.Time, loc *time.Location, lookbackWeeks int) *time.Time {
	if lookbackWeeks <= 0 {
		return nil
	}
	cutoff := Yesterday(now, loc).AddDate(0, 0, -DaysPerWeek*lookbackWeeks+1)
	return &cutoff
}
