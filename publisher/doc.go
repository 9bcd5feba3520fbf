// Package publisher delivers matched transactions to an external pub/sub bus.
//
// # Architecture
//
//  1. Publisher: one-attempt, at-most-once delivery of a string message to a channel
//  2. Sinks: bus implementations registered by URL scheme (see package sink)
//  3. Transformers: message formats registered by name (see package transformer)
//
// Sinks and transformers register themselves from init functions, so the
// binary must import the sink and transformer packages for their side effects:
//
//	import (
//		_ "github.com/maxpert/geyserbridge/publisher/sink"
//		_ "github.com/maxpert/geyserbridge/publisher/transformer"
//	)
//
// Example usage:
//
//	pub, err := publisher.Open("redis://localhost:6379/0", publisher.Options{})
//	if err != nil {
//		return err // *ConnectionError
//	}
//	defer pub.Close()
//
//	if err := pub.Publish(ctx, "program_transactions", msg); err != nil {
//		log.Warn().Err(err).Msg("dropped") // *PublishError, not retried
//	}
//
// # Delivery semantics
//
// Publish is fire-and-forget: a failed attempt is reported to the caller and
// the message is dropped. There is no retry, no outbound queue and no durable
// log. Stronger guarantees would be a separate layer on top of Publisher.
//
// # Thread Safety
//
// Every registered sink is safe for concurrent use:
//
//   - redis: go-redis connection pool, one PUBLISH per checked-out connection
//   - nats: nats.Conn serialises writes internally
//   - kafka: kafka.Writer is goroutine safe
package publisher
