// Package targets holds the immutable set of program identifiers the bridge
// watches for. A Set is built once at startup and only read afterwards, so it
// is safe for unsynchronized concurrent use.
package targets

import (
	"errors"
	"fmt"
	"sort"

	"github.com/gagliardetto/solana-go"
)

// ErrInvalidIdentifier is matched by every DecodeError
var ErrInvalidIdentifier = errors.New("invalid target identifier")

// DecodeError reports a configured identifier string that is not a valid
// base58 encoded 32 byte public key
type DecodeError struct {
	Index int
	Value string
	Err   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("target identifier #%d %q: %v", e.Index, e.Value, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

func (e *DecodeError) Is(target error) bool {
	return target == ErrInvalidIdentifier
}

// Set is a read-only collection of public keys
type Set struct {
	keys map[solana.PublicKey]struct{}
}

// Build decodes every raw string. Any failure discards the whole set.
func Build(raw []string) (*Set, error) {
	keys := make(map[solana.PublicKey]struct{}, len(raw))

	for i, s := range raw {
		key, err := solana.PublicKeyFromBase58(s)
		if err != nil {
			return nil, &DecodeError{Index: i, Value: s, Err: err}
		}
		keys[key] = struct{}{}
	}

	return &Set{keys: keys}, nil
}

// Contains reports whether key is a target
func (s *Set) Contains(key solana.PublicKey) bool {
	_, ok := s.keys[key]
	return ok
}

// Len returns the number of distinct targets
func (s *Set) Len() int {
	return len(s.keys)
}

// Strings returns the canonical base58 form of every target, sorted
func (s *Set) Strings() []string {
	out := make([]string, 0, len(s.keys))
	for key := range s.keys {
		out = append(out, key.String())
	}
	sort.Strings(out)
	return out
}
