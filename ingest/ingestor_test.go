package ingest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/maxpert/geyserbridge/geyser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chanSource replays a fixed list of envelopes then waits for cancellation
type chanSource struct {
	messages [][]byte
	closed   bool
}

func (s *chanSource) Run(ctx context.Context, out chan<- []byte) error {
	for _, m := range s.messages {
		select {
		case out <- m:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	<-ctx.Done()
	return ctx.Err()
}

func (s *chanSource) Close() error {
	s.closed = true
	return nil
}

// failingSource fails immediately
type failingSource struct{}

func (failingSource) Run(ctx context.Context, out chan<- []byte) error {
	return errors.New("broker unavailable")
}

func (failingSource) Close() error { return nil }

type recordingDispatcher struct {
	mu           sync.Mutex
	kinds        map[geyser.Kind]int
	transactions []uint64
	entries      bool
	err          error
}

func newRecorder() *recordingDispatcher {
	return &recordingDispatcher{kinds: make(map[geyser.Kind]int)}
}

func (r *recordingDispatcher) record(kind geyser.Kind) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.kinds[kind]++
	return r.err
}

func (r *recordingDispatcher) NotifyTransaction(ctx context.Context, info geyser.TransactionInfo, slot uint64) error {
	r.mu.Lock()
	r.transactions = append(r.transactions, slot)
	r.mu.Unlock()
	return r.record(geyser.KindTransaction)
}

func (r *recordingDispatcher) UpdateAccount(info geyser.AccountInfo, slot uint64, isStartup bool) error {
	if _, ok := info.(*geyser.ReplicaAccountInfoV3); !ok {
		return geyser.Fault(geyser.KindAccount, "0.0.1")
	}
	return r.record(geyser.KindAccount)
}

func (r *recordingDispatcher) UpdateSlotStatus(update geyser.SlotUpdate) error {
	return r.record(geyser.KindSlot)
}

func (r *recordingDispatcher) NotifyBlockMetadata(info geyser.BlockInfo) error {
	return r.record(geyser.KindBlock)
}

func (r *recordingDispatcher) NotifyEntry(info geyser.EntryInfo) error {
	return r.record(geyser.KindEntry)
}

func (r *recordingDispatcher) NotifyEndOfStartup() error {
	return r.record(geyser.KindEndOfStartup)
}

func (r *recordingDispatcher) AccountDataNotificationsEnabled() bool { return true }
func (r *recordingDispatcher) TransactionNotificationsEnabled() bool { return true }
func (r *recordingDispatcher) EntryNotificationsEnabled() bool       { return r.entries }

func (r *recordingDispatcher) count(kind geyser.Kind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.kinds[kind]
}

func mustEncode(t *testing.T, n Notification) []byte {
	t.Helper()
	data, err := Encode(n)
	require.NoError(t, err)
	return data
}

func txEnvelope(t *testing.T, slot uint64) []byte {
	return mustEncode(t, Notification{
		Kind: geyser.KindTransaction,
		Slot: slot,
		Transaction: &geyser.ReplicaTransactionInfoV2{
			Signature:   testSig(byte(slot)),
			AccountKeys: []solana.PublicKey{solana.TokenProgramID},
		},
	})
}

func TestIngestor_DispatchesUntilCancelled(t *testing.T) {
	source := &chanSource{}
	for slot := uint64(1); slot <= 50; slot++ {
		source.messages = append(source.messages, txEnvelope(t, slot))
	}
	source.messages = append(source.messages,
		mustEncode(t, Notification{Kind: geyser.KindSlot, SlotUpdate: &geyser.SlotUpdate{Slot: 3, Status: geyser.SlotRooted}}),
		mustEncode(t, Notification{Kind: geyser.KindBlock, Block: &geyser.ReplicaBlockInfo{Slot: 3}}),
		mustEncode(t, Notification{Kind: geyser.KindEndOfStartup}),
	)

	rec := newRecorder()
	ingestor := NewIngestor(source, rec, 4, 8)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- ingestor.Run(ctx) }()

	require.Eventually(t, func() bool {
		return rec.count(geyser.KindTransaction) == 50 && rec.count(geyser.KindEndOfStartup) == 1
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}

	assert.Equal(t, 1, rec.count(geyser.KindSlot))
	assert.Equal(t, 1, rec.count(geyser.KindBlock))
}

func TestIngestor_SkipsMalformed(t *testing.T) {
	source := &chanSource{messages: [][]byte{
		{0xc1},
		txEnvelope(t, 7),
		[]byte("not msgpack at all"),
		txEnvelope(t, 8),
	}}

	rec := newRecorder()
	ingestor := NewIngestor(source, rec, 1, 0)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- ingestor.Run(ctx) }()

	require.Eventually(t, func() bool {
		return rec.count(geyser.KindTransaction) == 2
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	assert.NoError(t, <-done)
}

func TestIngestor_ProtocolFaultStops(t *testing.T) {
	source := &chanSource{messages: [][]byte{
		txEnvelope(t, 1),
		encodeRaw(t, envelope{Kind: geyser.KindTransaction, Version: "0.1.0"}, map[string]int{}),
		txEnvelope(t, 2),
	}}

	ingestor := NewIngestor(source, newRecorder(), 1, 0)

	select {
	case err := <-runAsync(ingestor):
		require.Error(t, err)
		assert.ErrorIs(t, err, geyser.ErrProtocolFault)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop on protocol fault")
	}
}

func TestIngestor_DispatcherFaultStops(t *testing.T) {
	// A v0.0.1 account decodes fine but the dispatcher rejects it
	account := &geyser.ReplicaAccountInfo{Pubkey: solana.TokenProgramID, Owner: solana.SystemProgramID}
	source := &chanSource{messages: [][]byte{
		mustEncode(t, Notification{Kind: geyser.KindAccount, Slot: 1, Account: account}),
	}}

	ingestor := NewIngestor(source, newRecorder(), 2, 0)

	select {
	case err := <-runAsync(ingestor):
		assert.ErrorIs(t, err, geyser.ErrProtocolFault)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop on protocol fault")
	}
}

func TestIngestor_SourceFailure(t *testing.T) {
	ingestor := NewIngestor(failingSource{}, newRecorder(), 2, 0)

	err := <-runAsync(ingestor)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker unavailable")
}

func TestDispatch_HonoursEnableSwitches(t *testing.T) {
	rec := newRecorder()
	ingestor := NewIngestor(&chanSource{}, rec, 1, 0)

	entry := Notification{Kind: geyser.KindEntry, Entry: &geyser.ReplicaEntryInfo{Slot: 1}}
	require.NoError(t, ingestor.Dispatch(context.Background(), entry))
	assert.Equal(t, 0, rec.count(geyser.KindEntry))

	rec.entries = true
	require.NoError(t, ingestor.Dispatch(context.Background(), entry))
	assert.Equal(t, 1, rec.count(geyser.KindEntry))
}

func TestNewIngestor_Defaults(t *testing.T) {
	ingestor := NewIngestor(&chanSource{}, newRecorder(), 0, -5)
	assert.Equal(t, 1, ingestor.workers)
	assert.Equal(t, 0, ingestor.bufferSize)
}

func runAsync(ingestor *Ingestor) <-chan error {
	done := make(chan error, 1)
	go func() { done <- ingestor.Run(context.Background()) }()
	return done
}
