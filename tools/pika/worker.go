package main

import (
	"context"
	"math/rand"
	"time"

	"github.com/maxpert/geyserbridge/encoding"
	"github.com/maxpert/geyserbridge/geyser"
	"github.com/maxpert/geyserbridge/ingest"
)

// Worker encodes synthetic notifications and sends them on the feed.
type Worker struct {
	id       int
	feed     Feed
	codec    *encoding.Codec
	workload *Workload
	stats    *Stats
	rng      *rand.Rand
}

// NewWorker creates a new worker.
func NewWorker(id int, feed Feed, codec *encoding.Codec, workload *Workload, stats *Stats) *Worker {
	return &Worker{
		id:       id,
		feed:     feed,
		codec:    codec,
		workload: workload,
		stats:    stats,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano() + int64(id))),
	}
}

// Run sends one transaction per token until tokens closes or ctx is done.
func (w *Worker) Run(ctx context.Context, tokens <-chan struct{}) {
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-tokens:
			if !ok {
				return
			}
			w.sendOne(ctx)
		}
	}
}

func (w *Worker) sendOne(ctx context.Context) {
	batch, hit := w.workload.Next(w.rng)
	for _, n := range batch {
		payload, err := ingest.EncodeWith(w.codec, n)
		if err != nil {
			w.stats.RecordError()
			continue
		}

		start := time.Now()
		if err := w.feed.Send(ctx, payload); err != nil {
			w.stats.RecordError()
			continue
		}

		if n.Kind == geyser.KindSlot {
			w.stats.RecordSlot()
		} else {
			w.stats.RecordTransaction(hit, time.Since(start))
		}
	}
}
