package ingest

import (
	"fmt"

	"github.com/maxpert/geyserbridge/encoding"
	"github.com/maxpert/geyserbridge/geyser"
)

// Encode builds an uncompressed envelope. It is the producer side of Decode.
func Encode(n Notification) ([]byte, error) {
	return EncodeWith(nil, n)
}

// EncodeWith builds an envelope framed by codec; a nil codec means no compression
func EncodeWith(codec *encoding.Codec, n Notification) ([]byte, error) {
	env := envelope{Kind: n.Kind, Slot: n.Slot, IsStartup: n.IsStartup}

	var payload interface{}
	switch n.Kind {
	case geyser.KindTransaction:
		env.Version, payload = encodeTransaction(n.Transaction)
	case geyser.KindAccount:
		env.Version, payload = encodeAccount(n.Account)
	case geyser.KindSlot:
		if n.SlotUpdate == nil {
			return nil, fmt.Errorf("slot notification without update")
		}
		env.Slot = n.SlotUpdate.Slot
		payload = slotWire{
			Parent:    n.SlotUpdate.Parent,
			Status:    n.SlotUpdate.Status.String(),
			DeadError: n.SlotUpdate.DeadError,
		}
	case geyser.KindBlock:
		env.Version, env.Slot, payload = encodeBlock(n.Block, n.Slot)
	case geyser.KindEntry:
		env.Version, env.Slot, payload = encodeEntry(n.Entry, n.Slot)
	case geyser.KindEndOfStartup:
	default:
		return nil, fmt.Errorf("unknown notification kind %q", n.Kind)
	}

	if n.Kind != geyser.KindSlot && n.Kind != geyser.KindEndOfStartup && payload == nil {
		return nil, fmt.Errorf("%s notification without payload", n.Kind)
	}

	if payload != nil {
		raw, err := encoding.Marshal(payload)
		if err != nil {
			return nil, err
		}
		env.Body = raw
	}

	if codec == nil {
		return encoding.Marshal(env)
	}
	return codec.Encode(env)
}

func encodeTransaction(info geyser.TransactionInfo) (string, interface{}) {
	var w transactionWire
	var version string
	switch tx := info.(type) {
	case *geyser.ReplicaTransactionInfo:
		if tx == nil {
			return "", nil
		}
		version = "0.0.1"
		w = transactionWire{Signature: tx.Signature[:], IsVote: tx.IsVote}
		for _, k := range tx.AccountKeys {
			w.AccountKeys = append(w.AccountKeys, k.Bytes())
		}
	case *geyser.ReplicaTransactionInfoV2:
		if tx == nil {
			return "", nil
		}
		version = "0.0.2"
		w = transactionWire{Signature: tx.Signature[:], IsVote: tx.IsVote, Index: tx.Index}
		for _, k := range tx.AccountKeys {
			w.AccountKeys = append(w.AccountKeys, k.Bytes())
		}
	default:
		return "", nil
	}
	return version, w
}

func accountWireOf(a *geyser.ReplicaAccountInfo) accountWire {
	return accountWire{
		Pubkey:       a.Pubkey.Bytes(),
		Lamports:     a.Lamports,
		Owner:        a.Owner.Bytes(),
		Executable:   a.Executable,
		RentEpoch:    a.RentEpoch,
		Data:         a.Data,
		WriteVersion: a.WriteVersion,
	}
}

func encodeAccount(info geyser.AccountInfo) (string, interface{}) {
	switch a := info.(type) {
	case *geyser.ReplicaAccountInfo:
		if a == nil {
			return "", nil
		}
		return "0.0.1", accountWireOf(a)
	case *geyser.ReplicaAccountInfoV2:
		if a == nil {
			return "", nil
		}
		w := accountWireOf(&a.ReplicaAccountInfo)
		if a.TxnSignature != nil {
			w.TxnSignature = a.TxnSignature[:]
		}
		return "0.0.2", w
	case *geyser.ReplicaAccountInfoV3:
		if a == nil {
			return "", nil
		}
		w := accountWireOf(&a.ReplicaAccountInfo)
		if a.TxnSignature != nil {
			w.TxnSignature = a.TxnSignature[:]
		}
		return "0.0.3", w
	}
	return "", nil
}

func blockWireOf(b *geyser.ReplicaBlockInfo) blockWire {
	return blockWire{Blockhash: b.Blockhash, BlockTime: b.BlockTime, Height: b.Height}
}

func blockV2WireOf(b *geyser.ReplicaBlockInfoV2) blockWire {
	w := blockWireOf(&b.ReplicaBlockInfo)
	w.ParentSlot = b.ParentSlot
	w.ParentBlockhash = b.ParentBlockhash
	w.ExecutedTransactionCount = b.ExecutedTransactionCount
	return w
}

func encodeBlock(info geyser.BlockInfo, slot uint64) (string, uint64, interface{}) {
	switch b := info.(type) {
	case *geyser.ReplicaBlockInfo:
		if b == nil {
			return "", slot, nil
		}
		return "0.0.1", b.Slot, blockWireOf(b)
	case *geyser.ReplicaBlockInfoV2:
		if b == nil {
			return "", slot, nil
		}
		return "0.0.2", b.Slot, blockV2WireOf(b)
	case *geyser.ReplicaBlockInfoV3:
		if b == nil {
			return "", slot, nil
		}
		w := blockV2WireOf(&b.ReplicaBlockInfoV2)
		w.EntryCount = b.EntryCount
		return "0.0.3", b.Slot, w
	case *geyser.ReplicaBlockInfoV4:
		if b == nil {
			return "", slot, nil
		}
		w := blockV2WireOf(&b.ReplicaBlockInfoV2)
		w.EntryCount = b.EntryCount
		return "0.0.4", b.Slot, w
	}
	return "", slot, nil
}

func encodeEntry(info geyser.EntryInfo, slot uint64) (string, uint64, interface{}) {
	switch e := info.(type) {
	case *geyser.ReplicaEntryInfo:
		if e == nil {
			return "", slot, nil
		}
		return "0.0.1", e.Slot, entryWire{Index: e.Index, NumHashes: e.NumHashes, Hash: e.Hash, ExecutedTxnCount: e.ExecutedTxnCount}
	case *geyser.ReplicaEntryInfoV2:
		if e == nil {
			return "", slot, nil
		}
		return "0.0.2", e.Slot, entryWire{
			Index:                    e.Index,
			NumHashes:                e.NumHashes,
			Hash:                     e.Hash,
			ExecutedTxnCount:         e.ExecutedTxnCount,
			StartingTransactionIndex: e.StartingTransactionIndex,
		}
	}
	return "", slot, nil
}
