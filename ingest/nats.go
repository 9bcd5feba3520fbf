package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
)

// NatsSource reads envelopes from a NATS subject, optionally as part of a
// queue group so several bridges can share one stream
type NatsSource struct {
	nc         *nats.Conn
	subject    string
	queueGroup string
	pending    int
}

// NewNatsSource connects to NATS
func NewNatsSource(url, subject, queueGroup string, pending int) (*NatsSource, error) {
	nc, err := nats.Connect(url,
		nats.Name("geyserbridge-ingest"),
		nats.Timeout(5*time.Second),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn().Err(err).Msg("Ingest NATS disconnected")
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.Info().Str("url", c.ConnectedUrlRedacted()).Msg("Ingest NATS reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to nats: %w", err)
	}

	if pending < 1 {
		pending = nats.DefaultSubPendingMsgsLimit
	}

	return &NatsSource{nc: nc, subject: subject, queueGroup: queueGroup, pending: pending}, nil
}

// Run subscribes and forwards message payloads until ctx is done
func (s *NatsSource) Run(ctx context.Context, out chan<- []byte) error {
	msgs := make(chan *nats.Msg, s.pending)

	var sub *nats.Subscription
	var err error
	if s.queueGroup != "" {
		sub, err = s.nc.ChanQueueSubscribe(s.subject, s.queueGroup, msgs)
	} else {
		sub, err = s.nc.ChanSubscribe(s.subject, msgs)
	}
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", s.subject, err)
	}
	defer sub.Unsubscribe()

	log.Info().
		Str("subject", s.subject).
		Str("queue_group", s.queueGroup).
		Msg("Ingesting notifications from NATS")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg := <-msgs:
			select {
			case out <- msg.Data:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

// Close drains the connection
func (s *NatsSource) Close() error {
	if s.nc == nil {
		return nil
	}
	s.nc.Close()
	return nil
}
