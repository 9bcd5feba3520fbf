package main

import (
	"context"
	"fmt"
	"time"
)

// reportProgress prints real-time progress every second.
func reportProgress(ctx context.Context, stats *Stats) {
	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	var last Snapshot
	startTime := time.Now()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			snap := stats.GetSnapshot()
			elapsed := time.Since(startTime)

			fmt.Printf("[%5.0fs] tx/sec: %6d | total: %8d | hits: %6d | slots: %6d | errors: %4d | throughput: %.1f tx/sec\n",
				elapsed.Seconds(),
				snap.Transactions-last.Transactions,
				snap.Transactions,
				snap.Hits,
				snap.Slots,
				snap.Errors,
				float64(snap.Transactions)/elapsed.Seconds(),
			)

			last = snap
		}
	}
}
