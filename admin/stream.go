package admin

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/maxpert/geyserbridge/notify"
	"github.com/maxpert/geyserbridge/publisher/transformer"
	"github.com/rs/zerolog/log"
)

// keepAliveInterval is how often an idle stream sends an SSE comment
const keepAliveInterval = 15 * time.Second

// handleStream streams matched transactions as server-sent events.
// Repeat ?program=<base58> to narrow the stream to some target programs.
func (h *AdminHandlers) handleStream(w http.ResponseWriter, r *http.Request) {
	hub := h.backend.Hub()
	if hub == nil {
		writeErrorResponse(w, http.StatusServiceUnavailable, "match stream is not enabled")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeErrorResponse(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	var filter notify.Filter
	for _, raw := range r.URL.Query()["program"] {
		key, err := solana.PublicKeyFromBase58(raw)
		if err != nil {
			writeErrorResponse(w, http.StatusBadRequest, fmt.Sprintf("invalid program %q: %v", raw, err))
			return
		}
		filter.Programs = append(filter.Programs, key)
	}

	matches, cancel := hub.Subscribe(filter)
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	log.Debug().Str("remote", r.RemoteAddr).Int("programs", len(filter.Programs)).Msg("Match stream opened")
	defer log.Debug().Str("remote", r.RemoteAddr).Msg("Match stream closed")

	render := transformer.JSONTransformer{}
	keepAlive := time.NewTicker(keepAliveInterval)
	defer keepAlive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-keepAlive.C:
			if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case match, ok := <-matches:
			if !ok {
				return
			}
			payload, err := render.Transform(match)
			if err != nil {
				log.Error().Err(err).Msg("Failed to render match for stream")
				continue
			}
			if _, err := fmt.Fprintf(w, "id: %d\nevent: match\ndata: %s\n\n", h.events.NextID(), payload); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
