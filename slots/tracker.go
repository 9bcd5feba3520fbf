// Package slots keeps a small in-memory view of slot progress: the highest
// slot seen per status and the most recent status of the last N slots.
package slots

import (
	"fmt"

	"github.com/hashicorp/golang-lru/v2"
	"github.com/maxpert/geyserbridge/geyser"
	"github.com/maxpert/geyserbridge/telemetry"
	"github.com/puzpuzpuz/xsync/v3"
)

// Tracker is safe for concurrent use
type Tracker struct {
	latest *xsync.MapOf[geyser.SlotStatus, uint64]
	recent *lru.Cache[uint64, geyser.SlotUpdate]
}

// NewTracker creates a tracker remembering the last recentSize slots
func NewTracker(recentSize int) (*Tracker, error) {
	recent, err := lru.New[uint64, geyser.SlotUpdate](recentSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create recent slot cache: %w", err)
	}

	return &Tracker{
		latest: xsync.NewMapOf[geyser.SlotStatus, uint64](),
		recent: recent,
	}, nil
}

// Observe records a slot status update. Updates may arrive out of order, so
// the per-status value only ever moves forward.
func (t *Tracker) Observe(update geyser.SlotUpdate) {
	highest, _ := t.latest.Compute(update.Status, func(old uint64, loaded bool) (uint64, bool) {
		if loaded && old >= update.Slot {
			return old, false
		}
		return update.Slot, false
	})
	telemetry.SlotLatest.With(update.Status.String()).Set(float64(highest))

	t.recent.Add(update.Slot, update)
}

// Latest returns the highest slot seen with the given status
func (t *Tracker) Latest(status geyser.SlotStatus) (uint64, bool) {
	return t.latest.Load(status)
}

// LatestAll returns the highest slot per status name for every status seen
func (t *Tracker) LatestAll() map[string]uint64 {
	out := make(map[string]uint64)
	t.latest.Range(func(status geyser.SlotStatus, slot uint64) bool {
		out[status.String()] = slot
		return true
	})
	return out
}

// Get returns the last status update recorded for a slot
func (t *Tracker) Get(slot uint64) (geyser.SlotUpdate, bool) {
	return t.recent.Peek(slot)
}

// Recent returns the remembered updates, newest first
func (t *Tracker) Recent() []geyser.SlotUpdate {
	values := t.recent.Values()
	for i, j := 0, len(values)-1; i < j; i, j = i+1, j-1 {
		values[i], values[j] = values[j], values[i]
	}
	return values
}

// Len returns the number of remembered slots
func (t *Tracker) Len() int {
	return t.recent.Len()
}
