// Package ingest receives host notifications from a message transport and
// dispatches them to the plugin.
//
// The host side publishes one msgpack envelope per notification:
//
//	{k: kind, v: version, s: slot, st: is_startup, b: body}
//
// where body is the version specific payload with raw byte fields (32 byte
// public keys, 64 byte signatures). Envelopes may be zstd compressed.
package ingest

import (
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/maxpert/geyserbridge/encoding"
	"github.com/maxpert/geyserbridge/geyser"
)

// ErrMalformed marks bytes that are not a valid envelope. Malformed input is
// skipped; it is never a protocol fault.
var ErrMalformed = errors.New("malformed notification")

// Notification is one decoded envelope. Exactly one payload field is set,
// selected by Kind; end of startup carries no payload.
type Notification struct {
	Kind        geyser.Kind
	Slot        uint64
	IsStartup   bool
	Transaction geyser.TransactionInfo
	Account     geyser.AccountInfo
	SlotUpdate  *geyser.SlotUpdate
	Block       geyser.BlockInfo
	Entry       geyser.EntryInfo
}

type envelope struct {
	Kind      geyser.Kind         `msgpack:"k"`
	Version   string              `msgpack:"v"`
	Slot      uint64              `msgpack:"s"`
	IsStartup bool                `msgpack:"st,omitempty"`
	Body      encoding.RawMessage `msgpack:"b,omitempty"`
}

type transactionWire struct {
	Signature   []byte   `msgpack:"sig"`
	IsVote      bool     `msgpack:"vote"`
	AccountKeys [][]byte `msgpack:"keys"`
	Index       uint64   `msgpack:"idx,omitempty"`
}

type accountWire struct {
	Pubkey       []byte `msgpack:"pubkey"`
	Lamports     uint64 `msgpack:"lamports"`
	Owner        []byte `msgpack:"owner"`
	Executable   bool   `msgpack:"executable"`
	RentEpoch    uint64 `msgpack:"rent_epoch"`
	Data         []byte `msgpack:"data"`
	WriteVersion uint64 `msgpack:"write_version"`
	TxnSignature []byte `msgpack:"txn_sig,omitempty"`
}

type slotWire struct {
	Parent    *uint64 `msgpack:"parent,omitempty"`
	Status    string  `msgpack:"status"`
	DeadError string  `msgpack:"dead_error,omitempty"`
}

type blockWire struct {
	Blockhash                string  `msgpack:"blockhash"`
	BlockTime                *int64  `msgpack:"block_time,omitempty"`
	Height                   *uint64 `msgpack:"height,omitempty"`
	ParentSlot               uint64  `msgpack:"parent_slot,omitempty"`
	ParentBlockhash          string  `msgpack:"parent_blockhash,omitempty"`
	ExecutedTransactionCount uint64  `msgpack:"executed_tx_count,omitempty"`
	EntryCount               uint64  `msgpack:"entry_count,omitempty"`
}

type entryWire struct {
	Index                    uint64 `msgpack:"index"`
	NumHashes                uint64 `msgpack:"num_hashes"`
	Hash                     []byte `msgpack:"hash"`
	ExecutedTxnCount         uint64 `msgpack:"executed_txn_count"`
	StartingTransactionIndex uint64 `msgpack:"starting_txn_index,omitempty"`
}

func malformed(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrMalformed, fmt.Sprintf(format, args...))
}

func publicKey(field string, b []byte) (solana.PublicKey, error) {
	var key solana.PublicKey
	if len(b) != len(key) {
		return key, malformed("%s is %d bytes, want %d", field, len(b), len(key))
	}
	copy(key[:], b)
	return key, nil
}

func signature(field string, b []byte) (solana.Signature, error) {
	var sig solana.Signature
	if len(b) != len(sig) {
		return sig, malformed("%s is %d bytes, want %d", field, len(b), len(sig))
	}
	copy(sig[:], b)
	return sig, nil
}
