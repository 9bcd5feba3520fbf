package ingest

import (
	"github.com/gagliardetto/solana-go"
	"github.com/maxpert/geyserbridge/encoding"
	"github.com/maxpert/geyserbridge/geyser"
)

// Decode parses one envelope, compressed or not. Undecodable bytes return an
// error wrapping ErrMalformed; a payload version the bridge does not know
// returns a *geyser.ProtocolFault.
func Decode(data []byte) (Notification, error) {
	if encoding.IsCompressed(data) {
		raw, err := encoding.Decompress(data)
		if err != nil {
			return Notification{}, malformed("zstd: %v", err)
		}
		data = raw
	}

	var env envelope
	if err := encoding.Unmarshal(data, &env); err != nil {
		return Notification{}, malformed("envelope: %v", err)
	}

	n := Notification{Kind: env.Kind, Slot: env.Slot, IsStartup: env.IsStartup}

	var err error
	switch env.Kind {
	case geyser.KindTransaction:
		n.Transaction, err = decodeTransaction(env)
	case geyser.KindAccount:
		n.Account, err = decodeAccount(env)
	case geyser.KindSlot:
		n.SlotUpdate, err = decodeSlot(env)
	case geyser.KindBlock:
		n.Block, err = decodeBlock(env)
	case geyser.KindEntry:
		n.Entry, err = decodeEntry(env)
	case geyser.KindEndOfStartup:
	default:
		err = malformed("unknown kind %q", env.Kind)
	}
	if err != nil {
		return Notification{}, err
	}
	return n, nil
}

func body(env envelope, into interface{}) error {
	if len(env.Body) == 0 {
		return malformed("%s notification has no body", env.Kind)
	}
	if err := encoding.Unmarshal(env.Body, into); err != nil {
		return malformed("%s body: %v", env.Kind, err)
	}
	return nil
}

func decodeTransaction(env envelope) (geyser.TransactionInfo, error) {
	switch env.Version {
	case "0.0.1", "0.0.2":
	default:
		return nil, geyser.Fault(geyser.KindTransaction, env.Version)
	}

	var w transactionWire
	if err := body(env, &w); err != nil {
		return nil, err
	}

	sig, err := signature("signature", w.Signature)
	if err != nil {
		return nil, err
	}

	keys := make([]solana.PublicKey, len(w.AccountKeys))
	for i, raw := range w.AccountKeys {
		if keys[i], err = publicKey("account key", raw); err != nil {
			return nil, err
		}
	}

	if env.Version == "0.0.1" {
		return &geyser.ReplicaTransactionInfo{Signature: sig, IsVote: w.IsVote, AccountKeys: keys}, nil
	}
	return &geyser.ReplicaTransactionInfoV2{Signature: sig, IsVote: w.IsVote, AccountKeys: keys, Index: w.Index}, nil
}

func decodeAccount(env envelope) (geyser.AccountInfo, error) {
	switch env.Version {
	case "0.0.1", "0.0.2", "0.0.3":
	default:
		return nil, geyser.Fault(geyser.KindAccount, env.Version)
	}

	var w accountWire
	if err := body(env, &w); err != nil {
		return nil, err
	}

	pubkey, err := publicKey("pubkey", w.Pubkey)
	if err != nil {
		return nil, err
	}
	owner, err := publicKey("owner", w.Owner)
	if err != nil {
		return nil, err
	}

	base := geyser.ReplicaAccountInfo{
		Pubkey:       pubkey,
		Lamports:     w.Lamports,
		Owner:        owner,
		Executable:   w.Executable,
		RentEpoch:    w.RentEpoch,
		Data:         w.Data,
		WriteVersion: w.WriteVersion,
	}

	var txnSig *solana.Signature
	if len(w.TxnSignature) > 0 {
		sig, err := signature("txn_sig", w.TxnSignature)
		if err != nil {
			return nil, err
		}
		txnSig = &sig
	}

	switch env.Version {
	case "0.0.1":
		return &base, nil
	case "0.0.2":
		return &geyser.ReplicaAccountInfoV2{ReplicaAccountInfo: base, TxnSignature: txnSig}, nil
	default:
		return &geyser.ReplicaAccountInfoV3{ReplicaAccountInfo: base, TxnSignature: txnSig}, nil
	}
}

func decodeSlot(env envelope) (*geyser.SlotUpdate, error) {
	var w slotWire
	if err := body(env, &w); err != nil {
		return nil, err
	}

	status, err := geyser.ParseSlotStatus(w.Status)
	if err != nil {
		return nil, geyser.Fault(geyser.KindSlot, w.Status)
	}

	return &geyser.SlotUpdate{
		Slot:      env.Slot,
		Parent:    w.Parent,
		Status:    status,
		DeadError: w.DeadError,
	}, nil
}

func decodeBlock(env envelope) (geyser.BlockInfo, error) {
	switch env.Version {
	case "0.0.1", "0.0.2", "0.0.3", "0.0.4":
	default:
		return nil, geyser.Fault(geyser.KindBlock, env.Version)
	}

	var w blockWire
	if err := body(env, &w); err != nil {
		return nil, err
	}

	v1 := geyser.ReplicaBlockInfo{
		Slot:      env.Slot,
		Blockhash: w.Blockhash,
		BlockTime: w.BlockTime,
		Height:    w.Height,
	}
	v2 := geyser.ReplicaBlockInfoV2{
		ReplicaBlockInfo:         v1,
		ParentSlot:               w.ParentSlot,
		ParentBlockhash:          w.ParentBlockhash,
		ExecutedTransactionCount: w.ExecutedTransactionCount,
	}
	v3 := geyser.ReplicaBlockInfoV3{ReplicaBlockInfoV2: v2, EntryCount: w.EntryCount}

	switch env.Version {
	case "0.0.1":
		return &v1, nil
	case "0.0.2":
		return &v2, nil
	case "0.0.3":
		return &v3, nil
	default:
		return &geyser.ReplicaBlockInfoV4{ReplicaBlockInfoV3: v3}, nil
	}
}

func decodeEntry(env envelope) (geyser.EntryInfo, error) {
	switch env.Version {
	case "0.0.1", "0.0.2":
	default:
		return nil, geyser.Fault(geyser.KindEntry, env.Version)
	}

	var w entryWire
	if err := body(env, &w); err != nil {
		return nil, err
	}

	v1 := geyser.ReplicaEntryInfo{
		Slot:             env.Slot,
		Index:            w.Index,
		NumHashes:        w.NumHashes,
		Hash:             w.Hash,
		ExecutedTxnCount: w.ExecutedTxnCount,
	}
	if env.Version == "0.0.1" {
		return &v1, nil
	}
	return &geyser.ReplicaEntryInfoV2{ReplicaEntryInfo: v1, StartingTransactionIndex: w.StartingTransactionIndex}, nil
}
