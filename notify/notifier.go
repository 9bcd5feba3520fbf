package notify

import (
	"sync"
	"sync/atomic"

	"github.com/gagliardetto/solana-go"
	"github.com/maxpert/geyserbridge/publisher"
)

// defaultSignalBufferSize is the buffer size for match channels.
// Subscribers that can't keep up will have matches dropped (non-blocking send).
const defaultSignalBufferSize = 64

// Filter selects matches by program; empty means every match
type Filter struct {
	Programs []solana.PublicKey
}

// subscription represents a single subscriber.
type subscription struct {
	id     uint64
	filter Filter
	ch     chan publisher.Match
	closed atomic.Bool
}

// matches checks if any matched program is one this subscription wants.
func (s *subscription) matches(match publisher.Match) bool {
	if len(s.filter.Programs) == 0 {
		return true
	}

	for _, want := range s.filter.Programs {
		for _, got := range match.Programs {
			if want == got {
				return true
			}
		}
	}
	return false
}

// close closes the subscription channel if not already closed.
func (s *subscription) close() {
	if s.closed.CompareAndSwap(false, true) {
		close(s.ch)
	}
}

// Hub fans matched transactions out to in-process observers.
// Thread-safe; Signal never blocks the forwarding path.
type Hub struct {
	mu            sync.RWMutex
	subscriptions map[uint64]*subscription
	nextID        atomic.Uint64
	dropped       atomic.Uint64
}

// NewHub creates a new match notification hub.
func NewHub() *Hub {
	return &Hub{
		subscriptions: make(map[uint64]*subscription),
	}
}

// Signal sends a match to all interested subscribers (non-blocking).
func (h *Hub) Signal(match publisher.Match) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, sub := range h.subscriptions {
		if !sub.matches(match) {
			continue
		}

		// Non-blocking send - drop if buffer full
		select {
		case sub.ch <- match:
		default:
			h.dropped.Add(1)
		}
	}
}

// Subscribe creates a new subscription and returns the match channel and cancel function.
// The returned channel is buffered. If the subscriber cannot keep up, matches
// are dropped silently by Signal(). The cancel function is idempotent.
func (h *Hub) Subscribe(filter Filter) (<-chan publisher.Match, func()) {
	sub := &subscription{
		id:     h.nextID.Add(1),
		filter: filter,
		ch:     make(chan publisher.Match, defaultSignalBufferSize),
	}

	h.mu.Lock()
	h.subscriptions[sub.id] = sub
	h.mu.Unlock()

	cancel := func() {
		h.unsubscribe(sub.id)
	}

	return sub.ch, cancel
}

// Subscribers returns the number of active subscriptions.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscriptions)
}

// Dropped returns how many matches were dropped for slow subscribers.
func (h *Hub) Dropped() uint64 {
	return h.dropped.Load()
}

// unsubscribe removes a subscription and closes its channel.
func (h *Hub) unsubscribe(id uint64) {
	h.mu.Lock()
	sub, ok := h.subscriptions[id]
	if ok {
		delete(h.subscriptions, id)
	}
	h.mu.Unlock()

	if ok {
		sub.close()
	}
}

// Close unsubscribes everyone.
func (h *Hub) Close() {
	h.mu.Lock()
	subs := h.subscriptions
	h.subscriptions = make(map[uint64]*subscription)
	h.mu.Unlock()

	for _, sub := range subs {
		sub.close()
	}
}
