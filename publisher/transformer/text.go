// Package transformer provides implementations of the publisher.Transformer
// interface for rendering matched transactions as bus messages.
package transformer

import (
	"fmt"

	"github.com/maxpert/geyserbridge/publisher"
)

func init() {
	publisher.RegisterTransformer("text", func() publisher.Transformer {
		return TextTransformer{}
	})
}

// TextTransformer renders the human readable form consumed by existing
// subscribers: "Slot: <slot>, Signature: <base58 signature>"
type TextTransformer struct{}

// Transform never fails
func (TextTransformer) Transform(match publisher.Match) (string, error) {
	return FormatText(match.Slot, match.Signature.String()), nil
}

// FormatText builds the text payload. Downstream consumers may parse it.
func FormatText(slot uint64, signature string) string {
	return fmt.Sprintf("Slot: %d, Signature: %s", slot, signature)
}
