package ingest

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"
)

// KafkaSource reads envelopes from a topic as a member of a consumer group.
// Offsets are committed as messages are read, so delivery is at-most-once
// across restarts like the rest of the bridge.
type KafkaSource struct {
	reader *kafka.Reader
	topic  string
}

// NewKafkaSource creates a consumer group reader
func NewKafkaSource(brokers []string, topic, groupID string) (*KafkaSource, error) {
	if len(brokers) == 0 {
		return nil, errors.New("kafka ingest requires at least one broker")
	}
	if topic == "" {
		return nil, errors.New("kafka ingest requires a topic")
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 1,
		MaxBytes: 10 << 20,
	})

	return &KafkaSource{reader: reader, topic: topic}, nil
}

// Run forwards message values until ctx is done or the reader fails
func (s *KafkaSource) Run(ctx context.Context, out chan<- []byte) error {
	log.Info().Str("topic", s.topic).Msg("Ingesting notifications from Kafka")

	for {
		msg, err := s.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("failed to read from kafka topic %s: %w", s.topic, err)
		}

		select {
		case out <- msg.Value:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Close closes the reader and leaves the group
func (s *KafkaSource) Close() error {
	return s.reader.Close()
}
