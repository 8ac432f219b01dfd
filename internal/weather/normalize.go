package weather

import "time"

// epoch is the lower bound used for an open From.
var epoch = time.UnixMilli(0).UTC()

// NormalizeRange snaps a query range to whole UTC hours so that near-identical
// queries share cache keys. from rounds to the nearest hour (minutes past 30
// round up); to is capped at now and floored to the hour. Zero values mean an
// open bound.
func NormalizeRange(from, to, now time.Time) (time.Time, time.Time) {
	if from.IsZero() {
		from = epoch
	}
	if to.IsZero() || to.After(now) {
		to = now
	}
	return roundHour(from), floorHour(to)
}

func floorHour(t time.Time) time.Time {
	return t.UTC().Truncate(time.Hour)
}

func roundHour(t time.Time) time.Time {
	t = t.UTC()
	h := t.Truncate(time.Hour)
	if t.Minute() > 30 {
		h = h.Add(time.Hour)
	}
	return h
}
