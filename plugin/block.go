package plugin

import (
	"github.com/maxpert/geyserbridge/geyser"
	"github.com/rs/zerolog"
)

func blockFields(ev *zerolog.Event, b *geyser.ReplicaBlockInfo) *zerolog.Event {
	ev = ev.
		Uint64("slot", b.Slot).
		Str("blockhash", b.Blockhash)
	if b.BlockTime != nil {
		ev = ev.Int64("block_time", *b.BlockTime)
	}
	if b.Height != nil {
		ev = ev.Uint64("block_height", *b.Height)
	}
	return ev
}

func blockV2Fields(ev *zerolog.Event, b *geyser.ReplicaBlockInfoV2) *zerolog.Event {
	return blockFields(ev, &b.ReplicaBlockInfo).
		Uint64("parent_slot", b.ParentSlot).
		Str("parent_blockhash", b.ParentBlockhash).
		Uint64("executed_tx_count", b.ExecutedTransactionCount)
}
