package weather

import "time"

// Merge combines the three sources of a query into one sequence:
//
//  1. historical readings older than the earliest stored reading,
//  2. stored readings, minus those whose timestamp also appears in the recent feed,
//  3. the recent feed as is.
//
// The store is authoritative where it has coverage and the recent feed wins
// ties on identical timestamps. Timestamps are compared at millisecond
// precision. The result is not re-sorted.
func Merge(stored, recent, historical []Reading) []Reading {
	minStored, _, hasStored := TimeBounds(stored)

	recentTimes := make(map[int64]struct{}, len(recent))
	for _, r := range recent {
		recentTimes[r.Time.UnixMilli()] = struct{}{}
	}

	out := make([]Reading, 0, len(historical)+len(stored)+len(recent))
	for _, r := range historical {
		if !hasStored || r.Time.Before(minStored) {
			out = append(out, r)
		}
	}
	for _, r := range stored {
		if _, dup := recentTimes[r.Time.UnixMilli()]; !dup {
			out = append(out, r)
		}
	}
	return append(out, recent...)
}

// TimeBounds returns the earliest and latest reading times. ok is false for
// an empty slice.
func TimeBounds(readings []Reading) (minTime, maxTime time.Time, ok bool) {
	for i, r := range readings {
		if i == 0 || r.Time.Before(minTime) {
			minTime = r.Time
		}
		if i == 0 || r.Time.After(maxTime) {
			maxTime = r.Time
		}
	}
	return minTime, maxTime, len(readings) > 0
}

// filterRange keeps readings with from <= time <= to.
func filterRange(readings []Reading, from, to time.Time) []Reading {
	out := make([]Reading, 0, len(readings))
	for _, r := range readings {
		if !r.Time.Before(from) && !r.Time.After(to) {
			out = append(out, r)
		}
	}
	return out
}
