// Package id generates event identifiers for the match stream.
package id

import (
	"sync"
	"time"
)

// Bit allocation of an ID (64 bits total):
//   - 42 bits for wall time in milliseconds
//   - 6 bits for the instance
//   - 16 bits for a per-millisecond sequence
const (
	SequenceBits  = 16
	SequenceMask  = (1 << SequenceBits) - 1
	InstanceBits  = 6
	InstanceMask  = (1 << InstanceBits) - 1
	TimeShiftBits = InstanceBits + SequenceBits
)

// Generator provides unique, roughly time-ordered IDs.
type Generator interface {
	NextID() uint64
}

// ClockGenerator derives IDs from the wall clock. Thread-safe.
type ClockGenerator struct {
	instance uint64
	lastMS   int64
	sequence uint64
	now      func() time.Time
	mu       sync.Mutex
}

// NewClockGenerator creates a generator; only the low InstanceBits of instance are used.
func NewClockGenerator(instance uint64) *ClockGenerator {
	return &ClockGenerator{instance: instance & InstanceMask, now: time.Now}
}

// NextID generates a unique 64-bit ID.
// Format: (physical_ms << 22) | (instance << 16) | sequence
// IDs never go backwards, even if the wall clock does.
func (g *ClockGenerator) NextID() uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()

	ms := g.now().UnixMilli()
	if ms > g.lastMS {
		g.lastMS = ms
		g.sequence = 0
	}

	// Sequence exhausted for this millisecond: borrow the next one
	if g.sequence >= SequenceMask {
		g.lastMS++
		g.sequence = 0
	}

	g.sequence++
	return uint64(g.lastMS)<<TimeShiftBits | g.instance<<SequenceBits | g.sequence
}
