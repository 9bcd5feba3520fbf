// Package forwarder filters transaction notifications against the target
// program set and publishes every match to the bus.
//
// Delivery is at-most-once: each match gets exactly one publish attempt and
// a failed attempt is logged and dropped. The Engine keeps no state between
// calls, so Handle may be invoked concurrently for different notifications
// and calling it twice with the same notification publishes twice.
package forwarder

import (
	"context"
	"errors"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/maxpert/geyserbridge/cfg"
	"github.com/maxpert/geyserbridge/geyser"
	"github.com/maxpert/geyserbridge/notify"
	"github.com/maxpert/geyserbridge/publisher"
	"github.com/maxpert/geyserbridge/targets"
	"github.com/maxpert/geyserbridge/telemetry"
	"github.com/rs/zerolog/log"
)

// DefaultPublishTimeout bounds a single publish call
const DefaultPublishTimeout = 5 * time.Second

// Config wires an Engine
type Config struct {
	Targets     *targets.Set
	Publisher   publisher.Publisher
	Transformer publisher.Transformer
	// Channel defaults to cfg.DefaultChannel
	Channel string
	// PublishTimeout defaults to DefaultPublishTimeout, negative disables it
	PublishTimeout time.Duration
	// Hub receives every match when set
	Hub *notify.Hub
}

// Engine is the filter-and-forward step
type Engine struct {
	targets     *targets.Set
	publisher   publisher.Publisher
	transformer publisher.Transformer
	channel     string
	timeout     time.Duration
	hub         *notify.Hub
}

// New validates the config and builds an Engine
func New(config Config) (*Engine, error) {
	if config.Targets == nil {
		return nil, errors.New("forwarder: target set is required")
	}
	if config.Publisher == nil {
		return nil, errors.New("forwarder: publisher is required")
	}
	if config.Transformer == nil {
		return nil, errors.New("forwarder: transformer is required")
	}

	channel := config.Channel
	if channel == "" {
		channel = cfg.DefaultChannel
	}

	timeout := config.PublishTimeout
	if timeout == 0 {
		timeout = DefaultPublishTimeout
	}

	return &Engine{
		targets:     config.Targets,
		publisher:   config.Publisher,
		transformer: config.Transformer,
		channel:     channel,
		timeout:     timeout,
		hub:         config.Hub,
	}, nil
}

// Channel returns the channel matches are published on
func (e *Engine) Channel() string {
	return e.channel
}

// Hits returns the target programs referenced by keys, in key order
func (e *Engine) Hits(keys []solana.PublicKey) []solana.PublicKey {
	var hits []solana.PublicKey
	for _, key := range keys {
		if e.targets.Contains(key) {
			hits = append(hits, key)
		}
	}
	return hits
}

// Handle filters one notification and publishes it on a match. Failures are
// reported through logs and metrics only; Handle always returns normally.
func (e *Engine) Handle(ctx context.Context, tx geyser.TransactionNotification) {
	hits := e.Hits(tx.AccountKeys)
	if len(hits) == 0 {
		telemetry.FilterResultsTotal.With("no_match").Inc()
		log.Info().
			Uint64("slot", tx.Slot).
			Stringer("signature", tx.Signature).
			Msg("No match for transaction")
		return
	}

	telemetry.FilterResultsTotal.With("match").Inc()
	log.Info().
		Uint64("slot", tx.Slot).
		Stringer("signature", tx.Signature).
		Stringer("program", hits[0]).
		Int("hits", len(hits)).
		Msg("Match found")

	match := publisher.Match{
		Slot:      tx.Slot,
		Signature: tx.Signature,
		Programs:  hits,
		IsVote:    tx.IsVote,
		Index:     tx.Index,
	}

	message, err := e.transformer.Transform(match)
	if err != nil {
		log.Error().
			Err(err).
			Uint64("slot", tx.Slot).
			Stringer("signature", tx.Signature).
			Msg("Failed to build message")
		return
	}

	e.publish(ctx, match, message)

	if e.hub != nil {
		e.hub.Signal(match)
	}
}

func (e *Engine) publish(ctx context.Context, match publisher.Match, message string) {
	// A publish that has started runs to completion; only the publish timeout bounds it.
	ctx = context.WithoutCancel(ctx)
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	start := time.Now()
	err := e.publisher.Publish(ctx, e.channel, message)
	elapsed := time.Since(start)

	if err != nil {
		telemetry.PublishTotal.With("failed").Inc()
		telemetry.PublishDurationSeconds.With("failed").Observe(elapsed.Seconds())
		log.Error().
			Err(err).
			Str("channel", e.channel).
			Uint64("slot", match.Slot).
			Stringer("signature", match.Signature).
			Msg("Failed to publish transaction")
		return
	}

	telemetry.PublishTotal.With("success").Inc()
	telemetry.PublishDurationSeconds.With("success").Observe(elapsed.Seconds())
	log.Info().
		Str("channel", e.channel).
		Uint64("slot", match.Slot).
		Stringer("signature", match.Signature).
		Dur("elapsed", elapsed).
		Msg("Published transaction")
}
