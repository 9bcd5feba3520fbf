// Package geyser models the notifications a validator host delivers to the
// bridge. Each versioned payload union is a sealed interface with one type
// per wire version; callers switch on the concrete type and treat anything
// else as a ProtocolFault.
package geyser

import "github.com/gagliardetto/solana-go"

// TransactionInfo is one of ReplicaTransactionInfo or ReplicaTransactionInfoV2
type TransactionInfo interface {
	transactionVersion() string
}

// ReplicaTransactionInfo is the v0.0.1 transaction payload
type ReplicaTransactionInfo struct {
	Signature   solana.Signature
	IsVote      bool
	AccountKeys []solana.PublicKey // Static and loaded keys, in message order
}

// ReplicaTransactionInfoV2 is the v0.0.2 transaction payload
type ReplicaTransactionInfoV2 struct {
	Signature   solana.Signature
	IsVote      bool
	AccountKeys []solana.PublicKey
	Index       uint64 // Position of the transaction in its block
}

func (*ReplicaTransactionInfo) transactionVersion() string   { return "0.0.1" }
func (*ReplicaTransactionInfoV2) transactionVersion() string { return "0.0.2" }

// AccountInfo is one of the ReplicaAccountInfo versions
type AccountInfo interface {
	accountVersion() string
}

// ReplicaAccountInfo is the v0.0.1 account payload (unsupported)
type ReplicaAccountInfo struct {
	Pubkey       solana.PublicKey
	Lamports     uint64
	Owner        solana.PublicKey
	Executable   bool
	RentEpoch    uint64
	Data         []byte
	WriteVersion uint64
}

// ReplicaAccountInfoV2 is the v0.0.2 account payload (unsupported)
type ReplicaAccountInfoV2 struct {
	ReplicaAccountInfo
	TxnSignature *solana.Signature
}

// ReplicaAccountInfoV3 is the v0.0.3 account payload
type ReplicaAccountInfoV3 struct {
	ReplicaAccountInfo
	TxnSignature *solana.Signature
}

func (*ReplicaAccountInfo) accountVersion() string   { return "0.0.1" }
func (*ReplicaAccountInfoV2) accountVersion() string { return "0.0.2" }
func (*ReplicaAccountInfoV3) accountVersion() string { return "0.0.3" }

// BlockInfo is one of the ReplicaBlockInfo versions
type BlockInfo interface {
	blockVersion() string
}

// ReplicaBlockInfo is the v0.0.1 block payload
type ReplicaBlockInfo struct {
	Slot      uint64
	Blockhash string
	BlockTime *int64
	Height    *uint64
}

// ReplicaBlockInfoV2 adds the parent and executed transaction count
type ReplicaBlockInfoV2 struct {
	ReplicaBlockInfo
	ParentSlot               uint64
	ParentBlockhash          string
	ExecutedTransactionCount uint64
}

// ReplicaBlockInfoV3 adds the entry count
type ReplicaBlockInfoV3 struct {
	ReplicaBlockInfoV2
	EntryCount uint64
}

// ReplicaBlockInfoV4 is layout compatible with v3 for this bridge
type ReplicaBlockInfoV4 struct {
	ReplicaBlockInfoV3
}

func (*ReplicaBlockInfo) blockVersion() string   { return "0.0.1" }
func (*ReplicaBlockInfoV2) blockVersion() string { return "0.0.2" }
func (*ReplicaBlockInfoV3) blockVersion() string { return "0.0.3" }
func (*ReplicaBlockInfoV4) blockVersion() string { return "0.0.4" }

// EntryInfo is one of the ReplicaEntryInfo versions
type EntryInfo interface {
	entryVersion() string
}

// ReplicaEntryInfo is the v0.0.1 entry payload
type ReplicaEntryInfo struct {
	Slot             uint64
	Index            uint64
	NumHashes        uint64
	Hash             []byte
	ExecutedTxnCount uint64
}

// ReplicaEntryInfoV2 adds the index of the first transaction in the entry
type ReplicaEntryInfoV2 struct {
	ReplicaEntryInfo
	StartingTransactionIndex uint64
}

func (*ReplicaEntryInfo) entryVersion() string   { return "0.0.1" }
func (*ReplicaEntryInfoV2) entryVersion() string { return "0.0.2" }

// TransactionNotification is the version independent view of a transaction
// that the forwarder filters on
type TransactionNotification struct {
	Slot        uint64
	Signature   solana.Signature
	AccountKeys []solana.PublicKey
	IsVote      bool
	Index       *uint64
}

// NormalizeTransaction converts any supported transaction version
func NormalizeTransaction(info TransactionInfo, slot uint64) (TransactionNotification, error) {
	switch tx := info.(type) {
	case *ReplicaTransactionInfo:
		if tx == nil {
			break
		}
		return TransactionNotification{
			Slot:        slot,
			Signature:   tx.Signature,
			AccountKeys: tx.AccountKeys,
			IsVote:      tx.IsVote,
		}, nil
	case *ReplicaTransactionInfoV2:
		if tx == nil {
			break
		}
		index := tx.Index
		return TransactionNotification{
			Slot:        slot,
			Signature:   tx.Signature,
			AccountKeys: tx.AccountKeys,
			IsVote:      tx.IsVote,
			Index:       &index,
		}, nil
	}
	return TransactionNotification{}, Fault(KindTransaction, "nil")
}
