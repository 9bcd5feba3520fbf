package ingest

import (
	"errors"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/maxpert/geyserbridge/encoding"
	"github.com/maxpert/geyserbridge/geyser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSig(seed byte) solana.Signature {
	var s solana.Signature
	for i := range s {
		s[i] = seed ^ byte(i)
	}
	return s
}

func roundTrip(t *testing.T, n Notification) Notification {
	t.Helper()
	data, err := Encode(n)
	require.NoError(t, err)
	out, err := Decode(data)
	require.NoError(t, err)
	return out
}

func TestRoundTrip_Transactions(t *testing.T) {
	keys := []solana.PublicKey{solana.SystemProgramID, solana.TokenProgramID}

	v1 := &geyser.ReplicaTransactionInfo{Signature: testSig(1), IsVote: true, AccountKeys: keys}
	out := roundTrip(t, Notification{Kind: geyser.KindTransaction, Slot: 10, Transaction: v1})
	assert.Equal(t, geyser.KindTransaction, out.Kind)
	assert.Equal(t, uint64(10), out.Slot)
	assert.Equal(t, v1, out.Transaction)

	v2 := &geyser.ReplicaTransactionInfoV2{Signature: testSig(2), AccountKeys: keys, Index: 17}
	out = roundTrip(t, Notification{Kind: geyser.KindTransaction, Slot: 11, Transaction: v2})
	assert.Equal(t, v2, out.Transaction)
}

func TestRoundTrip_Accounts(t *testing.T) {
	sig := testSig(3)
	base := geyser.ReplicaAccountInfo{
		Pubkey:       solana.TokenProgramID,
		Lamports:     2039280,
		Owner:        solana.SystemProgramID,
		Executable:   true,
		RentEpoch:    361,
		Data:         []byte{1, 2, 3, 4},
		WriteVersion: 99,
	}

	tests := []struct {
		name string
		info geyser.AccountInfo
	}{
		{"v1", &base},
		{"v2", &geyser.ReplicaAccountInfoV2{ReplicaAccountInfo: base}},
		{"v3", &geyser.ReplicaAccountInfoV3{ReplicaAccountInfo: base, TxnSignature: &sig}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			out := roundTrip(t, Notification{Kind: geyser.KindAccount, Slot: 5, IsStartup: true, Account: tc.info})
			assert.True(t, out.IsStartup)
			assert.Equal(t, tc.info, out.Account)
		})
	}
}

func TestRoundTrip_Slot(t *testing.T) {
	parent := uint64(99)
	update := &geyser.SlotUpdate{Slot: 100, Parent: &parent, Status: geyser.SlotDead, DeadError: "bad shred"}

	out := roundTrip(t, Notification{Kind: geyser.KindSlot, SlotUpdate: update})
	assert.Equal(t, uint64(100), out.Slot)
	assert.Equal(t, update, out.SlotUpdate)
}

func TestRoundTrip_Blocks(t *testing.T) {
	blockTime := int64(1700000000)
	height := uint64(250)
	v1 := geyser.ReplicaBlockInfo{Slot: 300, Blockhash: "5eykt4UsFv8P8NJdTREpY1vzqKqZKvdpKuc147dw2N9d", BlockTime: &blockTime, Height: &height}
	v2 := geyser.ReplicaBlockInfoV2{ReplicaBlockInfo: v1, ParentSlot: 299, ParentBlockhash: "parent", ExecutedTransactionCount: 1200}
	v3 := geyser.ReplicaBlockInfoV3{ReplicaBlockInfoV2: v2, EntryCount: 64}

	for _, info := range []geyser.BlockInfo{&v1, &v2, &v3, &geyser.ReplicaBlockInfoV4{ReplicaBlockInfoV3: v3}} {
		out := roundTrip(t, Notification{Kind: geyser.KindBlock, Block: info})
		assert.Equal(t, uint64(300), out.Slot)
		assert.Equal(t, info, out.Block)
	}
}

func TestRoundTrip_Entries(t *testing.T) {
	v1 := geyser.ReplicaEntryInfo{Slot: 8, Index: 2, NumHashes: 12500, Hash: []byte{9, 9, 9}, ExecutedTxnCount: 3}
	v2 := geyser.ReplicaEntryInfoV2{ReplicaEntryInfo: v1, StartingTransactionIndex: 40}

	for _, info := range []geyser.EntryInfo{&v1, &v2} {
		out := roundTrip(t, Notification{Kind: geyser.KindEntry, Entry: info})
		assert.Equal(t, info, out.Entry)
	}
}

func TestRoundTrip_EndOfStartup(t *testing.T) {
	out := roundTrip(t, Notification{Kind: geyser.KindEndOfStartup})
	assert.Equal(t, geyser.KindEndOfStartup, out.Kind)
}

func TestRoundTrip_Compressed(t *testing.T) {
	codec, err := encoding.NewCodec(encoding.CompressionZstd)
	require.NoError(t, err)

	tx := &geyser.ReplicaTransactionInfo{Signature: testSig(4), AccountKeys: []solana.PublicKey{solana.MemoProgramID}}
	data, err := EncodeWith(codec, Notification{Kind: geyser.KindTransaction, Slot: 1, Transaction: tx})
	require.NoError(t, err)
	assert.True(t, encoding.IsCompressed(data))

	out, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, tx, out.Transaction)
}

func encodeRaw(t *testing.T, env envelope, payload interface{}) []byte {
	t.Helper()
	if payload != nil {
		raw, err := encoding.Marshal(payload)
		require.NoError(t, err)
		env.Body = raw
	}
	data, err := encoding.Marshal(env)
	require.NoError(t, err)
	return data
}

func TestDecode_UnknownVersionIsFault(t *testing.T) {
	tests := []struct {
		kind    geyser.Kind
		version string
	}{
		{geyser.KindTransaction, "0.0.3"},
		{geyser.KindAccount, "0.0.4"},
		{geyser.KindBlock, "0.0.5"},
		{geyser.KindEntry, "9.9.9"},
	}

	for _, tc := range tests {
		t.Run(string(tc.kind), func(t *testing.T) {
			data := encodeRaw(t, envelope{Kind: tc.kind, Version: tc.version, Slot: 1}, map[string]interface{}{})
			_, err := Decode(data)
			require.Error(t, err)
			assert.ErrorIs(t, err, geyser.ErrProtocolFault)
			assert.False(t, errors.Is(err, ErrMalformed))

			var fault *geyser.ProtocolFault
			require.True(t, errors.As(err, &fault))
			assert.Equal(t, tc.kind, fault.Kind)
			assert.Equal(t, tc.version, fault.Version)
		})
	}
}

func TestDecode_UnknownSlotStatusIsFault(t *testing.T) {
	data := encodeRaw(t, envelope{Kind: geyser.KindSlot, Slot: 1}, slotWire{Status: "frozen"})
	_, err := Decode(data)
	assert.ErrorIs(t, err, geyser.ErrProtocolFault)
}

func TestDecode_Malformed(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"garbage", []byte{0xc1, 0xc1}},
		{"corrupt zstd", []byte{0x28, 0xb5, 0x2f, 0xfd, 0x00}},
		{"unknown kind", encodeRaw(t, envelope{Kind: "vote", Version: "0.0.1"}, map[string]int{"a": 1})},
		{"missing body", encodeRaw(t, envelope{Kind: geyser.KindTransaction, Version: "0.0.1"}, nil)},
		{"short signature", encodeRaw(t, envelope{Kind: geyser.KindTransaction, Version: "0.0.2"},
			transactionWire{Signature: []byte{1, 2, 3}})},
		{"short account key", encodeRaw(t, envelope{Kind: geyser.KindTransaction, Version: "0.0.1"},
			transactionWire{Signature: make([]byte, 64), AccountKeys: [][]byte{make([]byte, 31)}})},
		{"short owner", encodeRaw(t, envelope{Kind: geyser.KindAccount, Version: "0.0.3"},
			accountWire{Pubkey: make([]byte, 32), Owner: make([]byte, 8)})},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Decode(tc.data)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrMalformed)
			assert.False(t, errors.Is(err, geyser.ErrProtocolFault))
		})
	}
}

func TestEncode_Errors(t *testing.T) {
	_, err := Encode(Notification{Kind: "vote"})
	assert.Error(t, err)

	_, err = Encode(Notification{Kind: geyser.KindTransaction})
	assert.Error(t, err)

	_, err = Encode(Notification{Kind: geyser.KindSlot})
	assert.Error(t, err)
}
