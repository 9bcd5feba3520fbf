package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
)

// watchMatches subscribes to the outbound Redis channel and prints every
// published match, returning the number received.
func watchMatches(ctx context.Context, busURL, channel string, quiet bool) (int, error) {
	opts, err := redis.ParseURL(busURL)
	if err != nil {
		return 0, fmt.Errorf("invalid bus url: %w", err)
	}

	client := redis.NewClient(opts)
	defer client.Close()

	sub := client.Subscribe(ctx, channel)
	defer sub.Close()

	// Wait for the subscription confirmation before counting
	if _, err := sub.Receive(ctx); err != nil {
		return 0, fmt.Errorf("failed to subscribe to %s: %w", channel, err)
	}

	fmt.Printf("Watching %s on %s\n", channel, opts.Addr)

	count := 0
	ch := sub.Channel()
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return count, nil
		case msg, ok := <-ch:
			if !ok {
				return count, nil
			}
			count++
			if !quiet {
				fmt.Println(strings.TrimSpace(msg.Payload))
			}
		case <-ticker.C:
			if quiet {
				fmt.Printf("received: %d\n", count)
			}
		}
	}
}
