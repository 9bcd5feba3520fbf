package main

import (
	"math/rand"
	"sync/atomic"

	"github.com/gagliardetto/solana-go"

	"github.com/maxpert/geyserbridge/geyser"
	"github.com/maxpert/geyserbridge/ingest"
)

// SlotClock hands out slots so that every TxPerSlot transactions share one.
// Thread-safe: uses an atomic sequence, callers provide rng.
type SlotClock struct {
	start     uint64
	txPerSlot uint64
	seq       uint64
}

// NewSlotClock creates a slot clock starting at start.
func NewSlotClock(start uint64, txPerSlot int) *SlotClock {
	if txPerSlot < 1 {
		txPerSlot = 1
	}
	return &SlotClock{start: start, txPerSlot: uint64(txPerSlot)}
}

// Next returns the slot for the next transaction and whether it opens a new slot.
func (c *SlotClock) Next() (slot uint64, first bool) {
	n := atomic.AddUint64(&c.seq, 1) - 1
	return c.start + n/c.txPerSlot, n%c.txPerSlot == 0
}

// Workload builds synthetic notifications.
type Workload struct {
	programs  []solana.PublicKey
	hitPct    float64
	v2Pct     float64
	keysPerTx int
	clock     *SlotClock
}

// NewWorkload creates a workload from a validated config.
func NewWorkload(cfg *Config) *Workload {
	return &Workload{
		programs:  cfg.ProgramList(),
		hitPct:    cfg.HitPct,
		v2Pct:     cfg.V2Pct,
		keysPerTx: cfg.KeysPerTx,
		clock:     NewSlotClock(cfg.StartSlot, cfg.TxPerSlot),
	}
}

// Next returns the notifications for one transaction: a processed slot
// update when the transaction opens a slot, then the transaction itself.
// hit reports whether a target program was placed in the account keys.
// rng must be provided by caller (each worker has its own rng).
func (w *Workload) Next(rng *rand.Rand) (batch []ingest.Notification, hit bool) {
	slot, first := w.clock.Next()
	if first {
		batch = append(batch, ingest.Notification{
			Kind: geyser.KindSlot,
			Slot: slot,
			SlotUpdate: &geyser.SlotUpdate{
				Slot:   slot,
				Parent: parentOf(slot),
				Status: geyser.SlotProcessed,
			},
		})
	}

	keys := make([]solana.PublicKey, w.keysPerTx)
	for i := range keys {
		keys[i] = randomKey(rng)
	}

	if len(w.programs) > 0 && rng.Float64()*100 < w.hitPct {
		// Programs usually trail the signer and writable accounts
		keys[rng.Intn(len(keys))] = w.programs[rng.Intn(len(w.programs))]
		hit = true
	}

	var sig solana.Signature
	rng.Read(sig[:])

	var info geyser.TransactionInfo
	if rng.Float64()*100 < w.v2Pct {
		info = &geyser.ReplicaTransactionInfoV2{
			Signature:   sig,
			AccountKeys: keys,
			Index:       uint64(rng.Intn(4096)),
		}
	} else {
		info = &geyser.ReplicaTransactionInfo{
			Signature:   sig,
			AccountKeys: keys,
		}
	}

	batch = append(batch, ingest.Notification{
		Kind:        geyser.KindTransaction,
		Slot:        slot,
		Transaction: info,
	})
	return batch, hit
}

func randomKey(rng *rand.Rand) solana.PublicKey {
	var key solana.PublicKey
	rng.Read(key[:])
	return key
}

func parentOf(slot uint64) *uint64 {
	if slot == 0 {
		return nil
	}
	parent := slot - 1
	return &parent
}
