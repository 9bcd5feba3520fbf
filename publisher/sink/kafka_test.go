package sink

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/maxpert/geyserbridge/publisher"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultKafkaConfig(t *testing.T) {
	brokers := []string{"localhost:9092", "localhost:9093"}
	config := DefaultKafkaConfig(brokers)

	assert.Len(t, config.Brokers, 2)
	assert.Equal(t, "localhost:9092", config.Brokers[0])
	assert.Equal(t, 1, config.BatchSize)
	assert.Equal(t, int64(1048576), config.BatchBytes)
	assert.Equal(t, kafka.RequireOne, config.RequiredAcks)
	assert.True(t, config.AutoCreateTopics)
}

func TestNewKafkaSink(t *testing.T) {
	config := KafkaConfig{
		Brokers:      []string{"localhost:9092"},
		BatchSize:    50,
		BatchBytes:   2048,
		RequiredAcks: kafka.RequireAll,
	}

	sink, err := NewKafkaSink(config)
	require.NoError(t, err)
	require.NotNil(t, sink.writer)

	assert.Equal(t, 50, sink.writer.BatchSize)
	assert.Equal(t, int64(2048), sink.writer.BatchBytes)
	assert.Equal(t, kafka.RequireAll, sink.writer.RequiredAcks)
	assert.False(t, sink.writer.Async, "publish outcome must be synchronous")

	assert.NoError(t, sink.Close())
}

func TestNewKafkaSinkEmptyBrokers(t *testing.T) {
	_, err := NewKafkaSink(KafkaConfig{Brokers: []string{}})
	assert.Error(t, err)
}

func TestKafkaMessageTargetsChannelTopic(t *testing.T) {
	msg := kafkaMessage("program_transactions", "Slot: 1, Signature: abc")

	assert.Equal(t, "program_transactions", msg.Topic)
	assert.Equal(t, []byte("Slot: 1, Signature: abc"), msg.Value)
	assert.Nil(t, msg.Key)
}

func TestParseBrokers(t *testing.T) {
	assert.Equal(t, []string{"a:9092", "b:9093"}, ParseBrokers("a:9092, b:9093,"))
	assert.Nil(t, ParseBrokers(""))
}

func TestPingKafka_NoBrokers(t *testing.T) {
	assert.Error(t, pingKafka(context.Background(), nil))
}

func TestKafkaSink_PublishFailureIsPublishError(t *testing.T) {
	// Nothing listens on port 1
	sink, err := NewKafkaSink(DefaultKafkaConfig([]string{"127.0.0.1:1"}))
	require.NoError(t, err)
	defer sink.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	err = sink.Publish(ctx, "program_transactions", "hello")
	require.Error(t, err)
	assert.True(t, errors.Is(err, publisher.ErrPublish))
}
