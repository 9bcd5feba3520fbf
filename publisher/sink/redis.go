package sink

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"
	"github.com/maxpert/geyserbridge/publisher"
)

func init() {
	factory := func(ctx context.Context, config publisher.SinkConfig) (publisher.Publisher, error) {
		return NewRedisSink(ctx, config.RawURL)
	}
	publisher.RegisterSink("redis", factory)
	publisher.RegisterSink("rediss", factory)
}

// RedisSink publishes with Redis PUBLISH
type RedisSink struct {
	client *redis.Client
}

// NewRedisSink parses a redis:// or rediss:// URL and pings the server.
// The client keeps a connection pool; each PUBLISH owns one pooled
// connection for the duration of the command.
func NewRedisSink(ctx context.Context, redisURL string) (*RedisSink, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return &RedisSink{client: client}, nil
}

// Publish sends message on channel. The subscriber count is not checked:
// publishing to a channel nobody listens on is still a success.
func (r *RedisSink) Publish(ctx context.Context, channel, message string) error {
	if err := r.client.Publish(ctx, channel, message).Err(); err != nil {
		return &publisher.PublishError{Channel: channel, Err: err}
	}
	return nil
}

// Close releases the connection pool
func (r *RedisSink) Close() error {
	if r.client == nil {
		return nil
	}
	return r.client.Close()
}
