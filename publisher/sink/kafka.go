package sink

import (
	"context"
	"fmt"
	"strings"

	"github.com/maxpert/geyserbridge/publisher"
	"github.com/segmentio/kafka-go"
)

const (
	DefaultKafkaBatchSize  = 1 // One message per Publish call
	DefaultKafkaBatchBytes = 1 << 20
)

func init() {
	// kafka://broker1:9092,broker2:9092
	publisher.RegisterSink("kafka", func(ctx context.Context, config publisher.SinkConfig) (publisher.Publisher, error) {
		brokers := ParseBrokers(config.URL.Host)
		if err := pingKafka(ctx, brokers); err != nil {
			return nil, err
		}
		return NewKafkaSink(DefaultKafkaConfig(brokers))
	})
}

// KafkaSink implements the Publisher interface for Kafka; channels map to topics
type KafkaSink struct {
	writer *kafka.Writer
}

// KafkaConfig holds configuration for KafkaSink
type KafkaConfig struct {
	Brokers          []string           // Kafka broker addresses
	BatchSize        int                // Messages per write batch
	BatchBytes       int64              // Max batch bytes (default: 1MB)
	RequiredAcks     kafka.RequiredAcks // Ack requirement (default: RequireOne)
	AutoCreateTopics bool               // Auto-create topics if they don't exist (default: true)
}

// DefaultKafkaConfig returns a KafkaConfig with sensible defaults
func DefaultKafkaConfig(brokers []string) KafkaConfig {
	return KafkaConfig{
		Brokers:          brokers,
		BatchSize:        DefaultKafkaBatchSize,
		BatchBytes:       DefaultKafkaBatchBytes,
		RequiredAcks:     kafka.RequireOne,
		AutoCreateTopics: true,
	}
}

// ParseBrokers splits a comma separated broker list
func ParseBrokers(hosts string) []string {
	var brokers []string
	for _, b := range strings.Split(hosts, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

// pingKafka dials the first reachable broker
func pingKafka(ctx context.Context, brokers []string) error {
	if len(brokers) == 0 {
		return fmt.Errorf("kafka sink requires at least one broker address")
	}

	var lastErr error
	for _, broker := range brokers {
		conn, err := kafka.DialContext(ctx, "tcp", broker)
		if err == nil {
			return conn.Close()
		}
		lastErr = err
	}
	return fmt.Errorf("no kafka broker reachable: %w", lastErr)
}

// NewKafkaSink creates a new KafkaSink with the given configuration
func NewKafkaSink(config KafkaConfig) (*KafkaSink, error) {
	if len(config.Brokers) == 0 {
		return nil, fmt.Errorf("kafka sink requires at least one broker address")
	}

	if config.BatchSize == 0 {
		config.BatchSize = DefaultKafkaBatchSize
	}
	if config.BatchBytes == 0 {
		config.BatchBytes = DefaultKafkaBatchBytes
	}

	writer := &kafka.Writer{
		Addr:                   kafka.TCP(config.Brokers...),
		Balancer:               &kafka.LeastBytes{},
		BatchSize:              config.BatchSize,
		BatchBytes:             config.BatchBytes,
		RequiredAcks:           config.RequiredAcks,
		Async:                  false, // Outcome of each attempt is reported
		AllowAutoTopicCreation: config.AutoCreateTopics,
	}

	return &KafkaSink{writer: writer}, nil
}

// Publish writes one message to the channel topic
func (k *KafkaSink) Publish(ctx context.Context, channel, message string) error {
	if err := k.writer.WriteMessages(ctx, kafkaMessage(channel, message)); err != nil {
		return &publisher.PublishError{Channel: channel, Err: err}
	}
	return nil
}

// kafkaMessage targets the channel topic. Messages carry no key, so the
// writer's LeastBytes balancer spreads them over partitions.
func kafkaMessage(channel, message string) kafka.Message {
	return kafka.Message{
		Topic: channel,
		Value: []byte(message),
	}
}

// Close releases resources held by the KafkaSink
func (k *KafkaSink) Close() error {
	if k.writer == nil {
		return nil
	}
	return k.writer.Close()
}
