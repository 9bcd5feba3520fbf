package sink

import (
	"context"
	"fmt"
	"time"

	"github.com/maxpert/geyserbridge/publisher"
	"github.com/nats-io/nats.go"
)

// DefaultNatsFlushTimeout is used when the publish context has no deadline
const DefaultNatsFlushTimeout = 5 * time.Second

func init() {
	factory := func(ctx context.Context, config publisher.SinkConfig) (publisher.Publisher, error) {
		return NewNatsSink(config.RawURL, config.DialTimeout)
	}
	publisher.RegisterSink("nats", factory)
	publisher.RegisterSink("tls", factory)
}

// NatsSink implements the Publisher interface with NATS core publish.
// Channels map to subjects.
type NatsSink struct {
	nc *nats.Conn
}

// NewNatsSink connects to NATS. The initial connect must succeed; later
// disconnects are retried by the client in the background.
func NewNatsSink(url string, dialTimeout time.Duration) (*NatsSink, error) {
	nc, err := nats.Connect(url,
		nats.Name("geyserbridge"),
		nats.Timeout(dialTimeout),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return &NatsSink{nc: nc}, nil
}

// Publish sends a message and flushes so the outcome of this attempt is
// known before returning
func (n *NatsSink) Publish(ctx context.Context, channel, message string) error {
	if err := n.nc.Publish(channel, []byte(message)); err != nil {
		return &publisher.PublishError{Channel: channel, Err: err}
	}

	// FlushWithContext requires a deadline
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultNatsFlushTimeout)
		defer cancel()
	}

	if err := n.nc.FlushWithContext(ctx); err != nil {
		return &publisher.PublishError{Channel: channel, Err: err}
	}

	return nil
}

// Close releases resources held by the NatsSink
func (n *NatsSink) Close() error {
	if n.nc != nil {
		n.nc.Close()
	}
	return nil
}
