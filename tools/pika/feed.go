package main

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/segmentio/kafka-go"
)

// Feed delivers encoded envelopes to the bridge's ingest transport.
type Feed interface {
	Send(ctx context.Context, payload []byte) error
	Close() error
}

// NewFeed connects the transport selected by cfg.
func NewFeed(cfg *Config) (Feed, error) {
	switch cfg.Transport {
	case "nats":
		nc, err := nats.Connect(cfg.NatsURL, nats.Name("pika"), nats.Timeout(5*time.Second))
		if err != nil {
			return nil, fmt.Errorf("failed to connect to nats: %w", err)
		}
		return &natsFeed{nc: nc, subject: cfg.Subject}, nil
	case "kafka":
		return &kafkaFeed{writer: &kafka.Writer{
			Addr:         kafka.TCP(cfg.BrokerList()...),
			Topic:        cfg.Topic,
			Balancer:     &kafka.Hash{},
			BatchTimeout: 5 * time.Millisecond,
		}}, nil
	default:
		return nil, fmt.Errorf("unknown transport: %s", cfg.Transport)
	}
}

type natsFeed struct {
	nc      *nats.Conn
	subject string
}

func (f *natsFeed) Send(_ context.Context, payload []byte) error {
	return f.nc.Publish(f.subject, payload)
}

func (f *natsFeed) Close() error {
	if err := f.nc.Flush(); err != nil {
		f.nc.Close()
		return err
	}
	f.nc.Close()
	return nil
}

type kafkaFeed struct {
	writer *kafka.Writer
}

func (f *kafkaFeed) Send(ctx context.Context, payload []byte) error {
	return f.writer.WriteMessages(ctx, kafka.Message{Value: payload})
}

func (f *kafkaFeed) Close() error {
	return f.writer.Close()
}
