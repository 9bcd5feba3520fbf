package ingest

import (
	"context"
	"errors"
	"fmt"

	"github.com/maxpert/geyserbridge/geyser"
	"github.com/maxpert/geyserbridge/telemetry"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Source delivers raw envelopes until ctx is done. Run must stop sending
// once ctx is cancelled.
type Source interface {
	Run(ctx context.Context, out chan<- []byte) error
	Close() error
}

// Dispatcher receives decoded notifications; *plugin.Plugin implements it
type Dispatcher interface {
	NotifyTransaction(ctx context.Context, info geyser.TransactionInfo, slot uint64) error
	UpdateAccount(info geyser.AccountInfo, slot uint64, isStartup bool) error
	UpdateSlotStatus(update geyser.SlotUpdate) error
	NotifyBlockMetadata(info geyser.BlockInfo) error
	NotifyEntry(info geyser.EntryInfo) error
	NotifyEndOfStartup() error
	AccountDataNotificationsEnabled() bool
	TransactionNotificationsEnabled() bool
	EntryNotificationsEnabled() bool
}

// Ingestor pumps one Source into a pool of dispatch workers
type Ingestor struct {
	source     Source
	dispatcher Dispatcher
	workers    int
	bufferSize int
}

// NewIngestor creates an ingestor; workers below 1 are raised to 1
func NewIngestor(source Source, dispatcher Dispatcher, workers, bufferSize int) *Ingestor {
	if workers < 1 {
		workers = 1
	}
	if bufferSize < 0 {
		bufferSize = 0
	}
	return &Ingestor{
		source:     source,
		dispatcher: dispatcher,
		workers:    workers,
		bufferSize: bufferSize,
	}
}

// Run blocks until ctx is cancelled, the source fails, or a notification
// causes a protocol fault. Cancellation of ctx is a clean stop and returns nil.
func (i *Ingestor) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	messages := make(chan []byte, i.bufferSize)

	g.Go(func() error {
		defer close(messages)
		return i.source.Run(gctx, messages)
	})

	for w := 0; w < i.workers; w++ {
		g.Go(func() error {
			for data := range messages {
				if err := i.process(gctx, data); err != nil {
					return err
				}
			}
			return nil
		})
	}

	err := g.Wait()
	if err != nil && ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		return nil
	}
	return err
}

// process decodes and dispatches one envelope. Malformed input is skipped;
// anything else the dispatcher rejects stops the ingestor.
func (i *Ingestor) process(ctx context.Context, data []byte) error {
	n, err := Decode(data)
	if err != nil {
		if errors.Is(err, ErrMalformed) {
			telemetry.DecodeErrorsTotal.Inc()
			log.Warn().Err(err).Int("bytes", len(data)).Msg("Skipping malformed notification")
			return nil
		}
		if errors.Is(err, geyser.ErrProtocolFault) {
			var fault *geyser.ProtocolFault
			if errors.As(err, &fault) {
				telemetry.ProtocolFaultsTotal.With(string(fault.Kind)).Inc()
			}
		}
		return err
	}

	return i.Dispatch(ctx, n)
}

// Dispatch routes a decoded notification, honouring the enable switches
func (i *Ingestor) Dispatch(ctx context.Context, n Notification) error {
	d := i.dispatcher

	var err error
	switch n.Kind {
	case geyser.KindTransaction:
		if !d.TransactionNotificationsEnabled() {
			return nil
		}
		err = d.NotifyTransaction(ctx, n.Transaction, n.Slot)
	case geyser.KindAccount:
		if !d.AccountDataNotificationsEnabled() {
			return nil
		}
		err = d.UpdateAccount(n.Account, n.Slot, n.IsStartup)
	case geyser.KindSlot:
		if n.SlotUpdate == nil {
			return fmt.Errorf("slot notification without update")
		}
		err = d.UpdateSlotStatus(*n.SlotUpdate)
	case geyser.KindBlock:
		err = d.NotifyBlockMetadata(n.Block)
	case geyser.KindEntry:
		if !d.EntryNotificationsEnabled() {
			return nil
		}
		err = d.NotifyEntry(n.Entry)
	case geyser.KindEndOfStartup:
		err = d.NotifyEndOfStartup()
	default:
		err = fmt.Errorf("unknown notification kind %q", n.Kind)
	}

	if err != nil {
		return fmt.Errorf("dispatch %s at slot %d: %w", n.Kind, n.Slot, err)
	}
	return nil
}
