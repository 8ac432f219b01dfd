package weather

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMergeRecentWinsOnSameTimestamp(t *testing.T) {
	stored := []Reading{reading("S", ms(10), 1), reading("S", ms(20), 2)}
	recent := []Reading{reading("S", ms(20), 99)}

	got := Merge(stored, recent, nil)

	assert.Equal(t, []Reading{
		reading("S", ms(10), 1),
		reading("S", ms(20), 99),
	}, got)
}

func TestMergeKeepsOnlyHistoricalBeforeStore(t *testing.T) {
	stored := []Reading{reading("S", ms(1000), 1), reading("S", ms(2000), 1)}
	historical := []Reading{reading("S", ms(500), 3), reading("S", ms(1500), 4)}

	got := Merge(stored, nil, historical)

	assert.Equal(t, []Reading{
		reading("S", ms(500), 3),
		reading("S", ms(1000), 1),
		reading("S", ms(2000), 1),
	}, got)
}

func TestMergeWithoutStoredKeepsAllHistorical(t *testing.T) {
	historical := []Reading{reading("S", ms(500), 3), reading("S", ms(1500), 4)}
	recent := []Reading{reading("S", ms(3000), 1)}

	got := Merge(nil, recent, historical)

	assert.Equal(t, []Reading{
		reading("S", ms(500), 3),
		reading("S", ms(1500), 4),
		reading("S", ms(3000), 1),
	}, got)
}

func TestMergeOrderIsHistoricalStoredRecent(t *testing.T) {
	stored := []Reading{reading("S", ms(300), 1), reading("S", ms(200), 1)}
	recent := []Reading{reading("S", ms(900), 1), reading("S", ms(100), 1)}
	historical := []Reading{reading("S", ms(50), 1)}

	got := Merge(stored, recent, historical)

	times := make([]int64, 0, len(got))
	for _, r := range got {
		times = append(times, r.Time.UnixMilli())
	}
	assert.Equal(t, []int64{50, 300, 200, 900, 100}, times, "merge does not sort")
}

func TestMergeEmpty(t *testing.T) {
	got := Merge(nil, nil, nil)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestMergeComparesMilliseconds(t *testing.T) {
	stored := []Reading{reading("S", ms(20).Add(300*time.Microsecond), 2)}
	recent := []Reading{reading("S", ms(20), 99)}

	got := Merge(stored, recent, nil)
	assert.Equal(t, recent, got)
}

func TestTimeBounds(t *testing.T) {
	_, _, ok := TimeBounds(nil)
	assert.False(t, ok)

	minT, maxT, ok := TimeBounds([]Reading{
		reading("S", ms(30), 0),
		reading("S", ms(10), 0),
		reading("S", ms(20), 0),
	})
	assert.True(t, ok)
	assert.Equal(t, ms(10), minT)
	assert.Equal(t, ms(30), maxT)
}

func TestNormalizeRange(t *testing.T) {
	now := time.Date(2024, 3, 10, 12, 40, 0, 0, time.UTC)

	tests := []struct {
		name     string
		from, to time.Time
		wantFrom time.Time
		wantTo   time.Time
	}{
		{
			name:     "open range",
			wantFrom: time.UnixMilli(0).UTC(),
			wantTo:   time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC),
		},
		{
			name:     "from rounds down at half past",
			from:     time.Date(2024, 3, 9, 8, 30, 59, 0, time.UTC),
			to:       time.Date(2024, 3, 9, 20, 59, 0, 0, time.UTC),
			wantFrom: time.Date(2024, 3, 9, 8, 0, 0, 0, time.UTC),
			wantTo:   time.Date(2024, 3, 9, 20, 0, 0, 0, time.UTC),
		},
		{
			name:     "from rounds up past half",
			from:     time.Date(2024, 3, 9, 8, 31, 0, 0, time.UTC),
			wantFrom: time.Date(2024, 3, 9, 9, 0, 0, 0, time.UTC),
			wantTo:   time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC),
		},
		{
			name:     "to capped at now",
			from:     time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC),
			to:       time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC),
			wantFrom: time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC),
			wantTo:   time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			from, to := NormalizeRange(tt.from, tt.to, now)
			assert.True(t, tt.wantFrom.Equal(from), "from = %v, want %v", from, tt.wantFrom)
			assert.True(t, tt.wantTo.Equal(to), "to = %v, want %v", to, tt.wantTo)
		})
	}
}

func TestWatermarksOnlyMoveBack(t *testing.T) {
	w := NewWatermarks()

	_, ok := w.Get("S")
	assert.False(t, ok)

	assert.True(t, w.Lower("S", ms(500)))
	assert.False(t, w.Lower("S", ms(800)))
	assert.False(t, w.Lower("S", ms(500)))

	got, ok := w.Get("S")
	assert.True(t, ok)
	assert.Equal(t, ms(500), got)

	assert.True(t, w.Lower("S", ms(100)))
	got, _ = w.Get("S")
	assert.Equal(t, ms(100), got)
}

func TestDistanceKm(t *testing.T) {
	// Madrid to Barcelona.
	d := DistanceKm(40.4168, -3.7038, 41.3874, 2.1686)
	assert.InDelta(t, 505, d, 5)
	assert.Zero(t, DistanceKm(1, 1, 1, 1))
}

func TestAggregateRain(t *testing.T) {
	readings := []Reading{reading("S", ms(1000), 1.5), reading("S", ms(3000), 2)}

	got := AggregateRain(ReadingsQuery{StationID: "S"}, readings)
	assert.InDelta(t, 3.5, got.TotalRain, 1e-9)
	assert.Equal(t, ms(1000), *got.From)
	assert.Equal(t, ms(3000), *got.To)

	from := ms(0)
	got = AggregateRain(ReadingsQuery{StationID: "S", From: from}, nil)
	assert.Zero(t, got.TotalRain)
	assert.Equal(t, from, *got.From)
	assert.Nil(t, got.To)
}
