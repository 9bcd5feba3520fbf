package forwarder

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/maxpert/geyserbridge/cfg"
	"github.com/maxpert/geyserbridge/geyser"
	"github.com/maxpert/geyserbridge/notify"
	"github.com/maxpert/geyserbridge/publisher"
	"github.com/maxpert/geyserbridge/publisher/sink"
	"github.com/maxpert/geyserbridge/publisher/transformer"
	"github.com/maxpert/geyserbridge/targets"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	p1 = solana.NewWallet().PublicKey()
	p2 = solana.NewWallet().PublicKey()
	p3 = solana.NewWallet().PublicKey()
)

func signature(seed byte) solana.Signature {
	var sig solana.Signature
	for i := range sig {
		sig[i] = seed + byte(i)
	}
	return sig
}

func newSet(t *testing.T, keys ...solana.PublicKey) *targets.Set {
	t.Helper()
	raw := make([]string, 0, len(keys))
	for _, k := range keys {
		raw = append(raw, k.String())
	}
	set, err := targets.Build(raw)
	require.NoError(t, err)
	return set
}

func newEngine(t *testing.T, set *targets.Set, pub publisher.Publisher) *Engine {
	t.Helper()
	engine, err := New(Config{
		Targets:     set,
		Publisher:   pub,
		Transformer: transformer.TextTransformer{},
	})
	require.NoError(t, err)
	return engine
}

func TestNew_RequiresCollaborators(t *testing.T) {
	set := newSet(t)
	mock := &sink.MockSink{}
	text := transformer.TextTransformer{}

	_, err := New(Config{Publisher: mock, Transformer: text})
	assert.Error(t, err)
	_, err = New(Config{Targets: set, Transformer: text})
	assert.Error(t, err)
	_, err = New(Config{Targets: set, Publisher: mock})
	assert.Error(t, err)

	engine, err := New(Config{Targets: set, Publisher: mock, Transformer: text})
	require.NoError(t, err)
	assert.Equal(t, cfg.DefaultChannel, engine.Channel())
	assert.Equal(t, DefaultPublishTimeout, engine.timeout)
}

// S = {P1}, keys = [P1, P2]: exactly one publish with slot and signature
func TestHandle_MatchPublishesOnce(t *testing.T) {
	mock := &sink.MockSink{}
	engine := newEngine(t, newSet(t, p1), mock)

	sig := signature(1)
	engine.Handle(context.Background(), geyser.TransactionNotification{
		Slot:        287_000_001,
		Signature:   sig,
		AccountKeys: []solana.PublicKey{p1, p2},
	})

	published := mock.Published()
	require.Len(t, published, 1)
	assert.Equal(t, "program_transactions", published[0].Channel)
	assert.Equal(t, fmt.Sprintf("Slot: 287000001, Signature: %s", sig), published[0].Message)
}

// S = {P1}, keys = [P2, P3]: nothing published
func TestHandle_NoMatch(t *testing.T) {
	mock := &sink.MockSink{}
	engine := newEngine(t, newSet(t, p1), mock)

	engine.Handle(context.Background(), geyser.TransactionNotification{
		Slot:        5,
		Signature:   signature(2),
		AccountKeys: []solana.PublicKey{p2, p3},
	})

	assert.Empty(t, mock.Published())
}

// Empty target set never publishes
func TestHandle_EmptyTargets(t *testing.T) {
	mock := &sink.MockSink{}
	engine := newEngine(t, newSet(t), mock)

	for i, keys := range [][]solana.PublicKey{nil, {p1}, {p1, p2, p3}} {
		engine.Handle(context.Background(), geyser.TransactionNotification{
			Slot:        uint64(i),
			Signature:   signature(byte(i)),
			AccountKeys: keys,
		})
	}

	assert.Empty(t, mock.Published())
}

// A failing publish is absorbed by Handle
func TestHandle_PublishFailureIsAbsorbed(t *testing.T) {
	mock := &sink.MockSink{PublishErr: errors.New("connection reset")}
	engine := newEngine(t, newSet(t, p1), mock)

	assert.NotPanics(t, func() {
		engine.Handle(context.Background(), geyser.TransactionNotification{
			Slot:        9,
			Signature:   signature(3),
			AccountKeys: []solana.PublicKey{p1},
		})
	})
	assert.Empty(t, mock.Published())

	// The engine keeps working once the bus recovers
	mock.PublishErr = nil
	engine.Handle(context.Background(), geyser.TransactionNotification{
		Slot:        10,
		Signature:   signature(4),
		AccountKeys: []solana.PublicKey{p1},
	})
	assert.Len(t, mock.Published(), 1)
}

// Handling the same notification twice publishes twice
func TestHandle_NotIdempotent(t *testing.T) {
	mock := &sink.MockSink{}
	engine := newEngine(t, newSet(t, p1), mock)

	tx := geyser.TransactionNotification{
		Slot:        77,
		Signature:   signature(5),
		AccountKeys: []solana.PublicKey{p2, p1},
	}
	engine.Handle(context.Background(), tx)
	engine.Handle(context.Background(), tx)

	published := mock.Published()
	require.Len(t, published, 2)
	assert.Equal(t, published[0], published[1])
}

func TestHandle_ConcurrentNoInterleaving(t *testing.T) {
	mock := &sink.MockSink{}
	engine := newEngine(t, newSet(t, p1), mock)

	const n = 200
	expected := make(map[string]struct{}, n)
	txs := make([]geyser.TransactionNotification, n)
	for i := range txs {
		txs[i] = geyser.TransactionNotification{
			Slot:        uint64(1000 + i),
			Signature:   signature(byte(i)),
			AccountKeys: []solana.PublicKey{p2, p1},
		}
		expected[transformer.FormatText(txs[i].Slot, txs[i].Signature.String())] = struct{}{}
	}

	var wg sync.WaitGroup
	for _, tx := range txs {
		wg.Add(1)
		go func(tx geyser.TransactionNotification) {
			defer wg.Done()
			engine.Handle(context.Background(), tx)
		}(tx)
	}
	wg.Wait()

	published := mock.Published()
	require.Len(t, published, n)
	for _, msg := range published {
		_, ok := expected[msg.Message]
		assert.True(t, ok, "unexpected message %q", msg.Message)
		delete(expected, msg.Message)
	}
	assert.Empty(t, expected)
}

// blockingSink waits for the context to end
type blockingSink struct {
	calls int
	mu    sync.Mutex
}

func (b *blockingSink) Publish(ctx context.Context, channel, message string) error {
	b.mu.Lock()
	b.calls++
	b.mu.Unlock()
	<-ctx.Done()
	return &publisher.PublishError{Channel: channel, Err: ctx.Err()}
}

func (b *blockingSink) Close() error { return nil }

func TestHandle_PublishTimeout(t *testing.T) {
	slow := &blockingSink{}
	engine, err := New(Config{
		Targets:        newSet(t, p1),
		Publisher:      slow,
		Transformer:    transformer.TextTransformer{},
		PublishTimeout: 20 * time.Millisecond,
	})
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		engine.Handle(context.Background(), geyser.TransactionNotification{
			Slot:        1,
			Signature:   signature(6),
			AccountKeys: []solana.PublicKey{p1},
		})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Handle did not return after publish timeout")
	}
	assert.Equal(t, 1, slow.calls)
}

func TestHandle_SignalsHub(t *testing.T) {
	hub := notify.NewHub()
	matches, cancel := hub.Subscribe(notify.Filter{})
	defer cancel()

	engine, err := New(Config{
		Targets:     newSet(t, p1, p3),
		Publisher:   &sink.MockSink{},
		Transformer: transformer.JSONTransformer{},
		Hub:         hub,
	})
	require.NoError(t, err)

	index := uint64(4)
	engine.Handle(context.Background(), geyser.TransactionNotification{
		Slot:        12,
		Signature:   signature(7),
		AccountKeys: []solana.PublicKey{p3, p2, p1},
		Index:       &index,
	})

	select {
	case m := <-matches:
		assert.Equal(t, uint64(12), m.Slot)
		assert.Equal(t, []solana.PublicKey{p3, p1}, m.Programs)
		require.NotNil(t, m.Index)
		assert.Equal(t, uint64(4), *m.Index)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for match")
	}
}

func TestHits_PreservesKeyOrder(t *testing.T) {
	engine := newEngine(t, newSet(t, p1, p2), &sink.MockSink{})

	assert.Equal(t, []solana.PublicKey{p2, p1}, engine.Hits([]solana.PublicKey{p3, p2, p1}))
	assert.Empty(t, engine.Hits([]solana.PublicKey{p3}))
	assert.Empty(t, engine.Hits(nil))
}

// slowSink takes delay to publish unless its context ends first
type slowSink struct {
	delay   time.Duration
	started chan struct{}
	once    sync.Once
	mu      sync.Mutex
	results []error
}

func (s *slowSink) Publish(ctx context.Context, channel, message string) error {
	s.once.Do(func() { close(s.started) })

	var err error
	select {
	case <-time.After(s.delay):
	case <-ctx.Done():
		err = &publisher.PublishError{Channel: channel, Err: ctx.Err()}
	}

	s.mu.Lock()
	s.results = append(s.results, err)
	s.mu.Unlock()
	return err
}

func (s *slowSink) Close() error { return nil }

func TestHandle_CallerCancelDoesNotAbortPublish(t *testing.T) {
	slow := &slowSink{delay: 100 * time.Millisecond, started: make(chan struct{})}
	engine, err := New(Config{
		Targets:        newSet(t, p1),
		Publisher:      slow,
		Transformer:    transformer.TextTransformer{},
		PublishTimeout: 5 * time.Second,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		engine.Handle(ctx, geyser.TransactionNotification{
			Slot:        9,
			Signature:   signature(9),
			AccountKeys: []solana.PublicKey{p1},
		})
		close(done)
	}()

	<-slow.started
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Handle did not return")
	}

	slow.mu.Lock()
	defer slow.mu.Unlock()
	require.Len(t, slow.results, 1)
	assert.NoError(t, slow.results[0])
}

func TestHandle_AlreadyCancelledCallerStillPublishes(t *testing.T) {
	mock := &sink.MockSink{}
	engine := newEngine(t, newSet(t, p1), mock)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	engine.Handle(ctx, geyser.TransactionNotification{
		Slot:        10,
		Signature:   signature(10),
		AccountKeys: []solana.PublicKey{p1},
	})
	assert.Len(t, mock.Published(), 1)
}

// Publishes exactly when the account keys intersect the target set
func TestHandle_PublishesIffIntersection(t *testing.T) {
	universe := make([]solana.PublicKey, 12)
	for i := range universe {
		universe[i] = solana.NewWallet().PublicKey()
	}

	rng := rand.New(rand.NewSource(42))
	pick := func(max int) []solana.PublicKey {
		n := rng.Intn(max + 1)
		out := make([]solana.PublicKey, 0, n)
		for i := 0; i < n; i++ {
			out = append(out, universe[rng.Intn(len(universe))])
		}
		return out
	}

	for round := 0; round < 200; round++ {
		targetKeys := pick(4)
		keys := pick(6)

		inSet := make(map[solana.PublicKey]bool, len(targetKeys))
		for _, k := range targetKeys {
			inSet[k] = true
		}
		want := 0
		for _, k := range keys {
			if inSet[k] {
				want = 1
				break
			}
		}

		mock := &sink.MockSink{}
		engine := newEngine(t, newSet(t, targetKeys...), mock)
		engine.Handle(context.Background(), geyser.TransactionNotification{
			Slot:        uint64(round),
			Signature:   signature(byte(round)),
			AccountKeys: keys,
		})

		require.Len(t, mock.Published(), want, "round %d: targets=%v keys=%v", round, targetKeys, keys)
	}
}

func TestHandle_NegativeTimeoutDisablesDeadline(t *testing.T) {
	slow := &slowSink{delay: 50 * time.Millisecond, started: make(chan struct{})}
	engine, err := New(Config{
		Targets:        newSet(t, p1),
		Publisher:      slow,
		Transformer:    transformer.TextTransformer{},
		PublishTimeout: -time.Millisecond,
	})
	require.NoError(t, err)

	engine.Handle(context.Background(), geyser.TransactionNotification{
		Slot:        11,
		Signature:   signature(11),
		AccountKeys: []solana.PublicKey{p1},
	})

	slow.mu.Lock()
	defer slow.mu.Unlock()
	require.Len(t, slow.results, 1)
	assert.NoError(t, slow.results[0])
}
