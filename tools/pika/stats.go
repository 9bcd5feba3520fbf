package main

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Stats tracks feed statistics using atomic operations.
type Stats struct {
	transactions uint64
	hits         uint64
	slots        uint64
	errors       uint64

	// Send latency (microseconds)
	mu        sync.Mutex
	latencies []int64
}

// NewStats creates a new stats tracker.
func NewStats() *Stats {
	return &Stats{
		latencies: make([]int64, 0, 100000),
	}
}

// RecordTransaction records a delivered transaction.
func (s *Stats) RecordTransaction(hit bool, latency time.Duration) {
	atomic.AddUint64(&s.transactions, 1)
	if hit {
		atomic.AddUint64(&s.hits, 1)
	}

	s.mu.Lock()
	s.latencies = append(s.latencies, latency.Microseconds())
	s.mu.Unlock()
}

// RecordSlot records a delivered slot update.
func (s *Stats) RecordSlot() {
	atomic.AddUint64(&s.slots, 1)
}

// RecordError records a failed send.
func (s *Stats) RecordError() {
	atomic.AddUint64(&s.errors, 1)
}

// GetLatencyPercentiles returns p50, p90, p99 in microseconds.
func (s *Stats) GetLatencyPercentiles() (p50, p90, p99 int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.latencies) == 0 {
		return 0, 0, 0
	}

	sorted := make([]int64, len(s.latencies))
	copy(sorted, s.latencies)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	n := len(sorted)
	return sorted[n*50/100], sorted[n*90/100], sorted[n*99/100]
}

// Snapshot returns a copy of current counters.
type Snapshot struct {
	Transactions uint64
	Hits         uint64
	Slots        uint64
	Errors       uint64
}

// GetSnapshot returns current stats snapshot.
func (s *Stats) GetSnapshot() Snapshot {
	return Snapshot{
		Transactions: atomic.LoadUint64(&s.transactions),
		Hits:         atomic.LoadUint64(&s.hits),
		Slots:        atomic.LoadUint64(&s.slots),
		Errors:       atomic.LoadUint64(&s.errors),
	}
}

// PrintFinal prints final statistics.
func (s *Stats) PrintFinal(elapsed time.Duration) {
	snap := s.GetSnapshot()
	p50, p90, p99 := s.GetLatencyPercentiles()

	fmt.Println()
	fmt.Printf("Total time:    %.2fs\n", elapsed.Seconds())
	fmt.Printf("Throughput:    %.2f tx/sec\n", float64(snap.Transactions)/elapsed.Seconds())
	fmt.Println()
	fmt.Printf("Transactions:  %d\n", snap.Transactions)
	fmt.Printf("Expected hits: %d\n", snap.Hits)
	fmt.Printf("Slots:         %d\n", snap.Slots)
	if snap.Errors > 0 {
		fmt.Printf("Errors:        %d\n", snap.Errors)
	}
	fmt.Println()
	fmt.Println("Send latency (microseconds):")
	fmt.Printf("  P50:   %d\n", p50)
	fmt.Printf("  P90:   %d\n", p90)
	fmt.Printf("  P99:   %d\n", p99)
}
