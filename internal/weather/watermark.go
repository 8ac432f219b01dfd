package weather

import (
	"sync"
	"time"
)

// Watermarks tracks, per station, the earliest reading time seen in the
// store. A watermark only ever moves back in time.
type Watermarks struct {
	mu sync.RWMutex
	m  map[string]time.Time
}

// NewWatermarks returns an empty set of watermarks.
func NewWatermarks() *Watermarks {
	return &Watermarks{m: make(map[string]time.Time)}
}

// Get returns the watermark of a station.
func (w *Watermarks) Get(stationID string) (time.Time, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	t, ok := w.m[stationID]
	return t, ok
}

// Lower moves the watermark of a station back to t if t is earlier than the
// current one, or sets it if none exists. It reports whether it changed.
func (w *Watermarks) Lower(stationID string, t time.Time) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if cur, ok := w.m[stationID]; ok && !t.Before(cur) {
		return false
	}
	w.m[stationID] = t
	return true
}
