package publisher

import (
	"context"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// Publisher sends messages to one channel of an external pub/sub bus.
// Implementations must be safe for concurrent Publish calls and must never
// interleave bytes of two messages on the wire.
type Publisher interface {
	// Publish makes exactly one delivery attempt
	Publish(ctx context.Context, channel, message string) error
	// Close releases the bus connection
	Close() error
}

// Match describes a transaction that referenced at least one target program
type Match struct {
	Slot      uint64
	Signature solana.Signature
	Programs  []solana.PublicKey // Matched targets, in account key order
	IsVote    bool
	Index     *uint64 // Position in block, nil for v0.0.1 payloads
}

// Transformer renders a Match as the message payload
type Transformer interface {
	Transform(match Match) (string, error)
}

// Error sentinels for errors.Is checks
var (
	ErrPublish    = errors.New("publish failed")
	ErrConnection = errors.New("bus connection failed")
)

// PublishError is a failed single publish attempt. It is never fatal.
type PublishError struct {
	Channel string
	Err     error
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("publish to %q: %v", e.Channel, e.Err)
}

func (e *PublishError) Unwrap() error { return e.Err }

func (e *PublishError) Is(target error) bool { return target == ErrPublish }

// ConnectionError means the bus could not be reached or configured at startup
type ConnectionError struct {
	URL string // Redacted
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connect to bus %s: %v", e.URL, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

func (e *ConnectionError) Is(target error) bool { return target == ErrConnection }
