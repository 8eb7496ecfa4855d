package domain_test

import (
	"testing"
	"time"

	"github.com/lorrc/ohq-statistics/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestWeeklyWindow(t *testing.T) {
	tests := []struct {
		name      string
		now       time.Time
		wantStart time.Time
		wantEnd   time.Time
	}{
		// 2024-03-10 is a Sunday.
		{"saturday run covers the week containing yesterday", time.Date(2024, 3, 9, 3, 0, 0, 0, time.UTC), date(2024, 3, 3), date(2024, 3, 9)},
		{"sunday run uses the previous week", time.Date(2024, 3, 10, 23, 0, 0, 0, time.UTC), date(2024, 3, 3), date(2024, 3, 9)},
		{"wednesday run is keyed by this week's sunday", time.Date(2024, 3, 13, 0, 5, 0, 0, time.UTC), date(2024, 3, 10), date(2024, 3, 16)},
		{"monday when yesterday is sunday", time.Date(2024, 3, 18, 12, 0, 0, 0, time.UTC), date(2024, 3, 17), date(2024, 3, 23)},
		{"crosses a year boundary", time.Date(2025, 1, 2, 8, 0, 0, 0, time.UTC), date(2024, 12, 29), date(2025, 1, 4)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := domain.WeeklyWindow(tt.now, time.UTC)
			assert.True(t, tt.wantStart.Equal(w.Start), "start %s", w.Start)
			assert.True(t, tt.wantEnd.Equal(w.End), "end %s", w.End)
			assert.Equal(t, time.Sunday, w.Start.Weekday())
		})
	}
}

func TestWeeklyWindow_UsesLocation(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	// 02:00 UTC on Monday is still Sunday evening in New York, so yesterday
	// is Saturday there and the week started on the 10th.
	now := time.Date(2024, 3, 18, 2, 0, 0, 0, time.UTC)
	w := domain.WeeklyWindow(now, loc)

	assert.Equal(t, 10, w.Start.Day())
	assert.Equal(t, 17, domain.WeeklyWindow(now, time.UTC).Start.Day())
	assert.Equal(t, time.March, w.Start.Month())
}

func TestDailyWindow(t *testing.T) {
	now := time.Date(2024, 3, 1, 6, 0, 0, 0, time.UTC)
	w := domain.DailyWindow(now, time.UTC)

	assert.True(t, date(2024, 2, 29).Equal(w.Start))
	assert.True(t, w.Start.Equal(w.End))
}

func TestDateRange_Bounds(t *testing.T) {
	r := domain.DateRange{Start: date(2024, 3, 3), End: date(2024, 3, 9)}
	from, to := r.Bounds(time.UTC)

	assert.True(t, date(2024, 3, 3).Equal(from))
	assert.True(t, date(2024, 3, 10).Equal(to))

	assert.True(t, r.Contains(time.Date(2024, 3, 9, 23, 59, 59, 0, time.UTC), time.UTC))
	assert.False(t, r.Contains(date(2024, 3, 10), time.UTC))
	assert.False(t, r.Contains(time.Date(2024, 3, 2, 23, 59, 59, 0, time.UTC), time.UTC))
}

func TestHeatmapDay(t *testing.T) {
	assert.Equal(t, 0, domain.HeatmapDay(time.Monday))
	assert.Equal(t, 5, domain.HeatmapDay(time.Saturday))
	assert.Equal(t, 6, domain.HeatmapDay(time.Sunday))
}

func TestBucketOf(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	// Tuesday 01:30 UTC is Monday 21:30 in New York (EDT).
	ts := time.Date(2024, 6, 4, 1, 30, 0, 0, time.UTC)

	assert.Equal(t, domain.HeatmapBucket{Day: 1, Hour: 1}, domain.BucketOf(ts, time.UTC))
	assert.Equal(t, domain.HeatmapBucket{Day: 0, Hour: 21}, domain.BucketOf(ts, loc))
}

func TestAllBuckets(t *testing.T) {
	buckets := domain.AllBuckets()

	require.Len(t, buckets, 168)
	assert.Equal(t, domain.HeatmapBucket{Day: 0, Hour: 0}, buckets[0])
	assert.Equal(t, domain.HeatmapBucket{Day: 6, Hour: 23}, buckets[167])
	for _, b := range buckets {
		assert.True(t, b.IsValid())
	}
}

func TestHeatmapCutoff(t *testing.T) {
	now := time.Date(2024, 3, 14, 4, 0, 0, 0, time.UTC)

	t.Run("zero means unbounded", func(t *testing.T) {
		assert.Nil(t, domain.HeatmapCutoff(now, time.UTC, 0))
	})

	t.Run("two weeks ending yesterday", func(t *testing.T) {
		cutoff := domain.HeatmapCutoff(now, time.UTC, 2)
		require.NotNil(t, cutoff)
		assert.True(t, date(2024, 2, 29).Equal(*cutoff), "cutoff %s", cutoff)
	})
}
