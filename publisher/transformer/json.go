package transformer

import (
	"encoding/json"
	"fmt"

	"github.com/maxpert/geyserbridge/publisher"
)

func init() {
	publisher.RegisterTransformer("json", func() publisher.Transformer {
		return JSONTransformer{}
	})
}

// JSONTransformer renders a match as a single JSON object
type JSONTransformer struct{}

type jsonMessage struct {
	Slot      uint64   `json:"slot"`
	Signature string   `json:"signature"`
	Programs  []string `json:"programs"`
	IsVote    bool     `json:"is_vote"`
	Index     *uint64  `json:"index,omitempty"`
}

// Transform encodes the match
func (JSONTransformer) Transform(match publisher.Match) (string, error) {
	programs := make([]string, 0, len(match.Programs))
	for _, p := range match.Programs {
		programs = append(programs, p.String())
	}

	data, err := json.Marshal(jsonMessage{
		Slot:      match.Slot,
		Signature: match.Signature.String(),
		Programs:  programs,
		IsVote:    match.IsVote,
		Index:     match.Index,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode match: %w", err)
	}
	return string(data), nil
}
