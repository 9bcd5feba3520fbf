package admin

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/maxpert/geyserbridge/geyser"
	"github.com/maxpert/geyserbridge/id"
	"github.com/maxpert/geyserbridge/notify"
	"github.com/maxpert/geyserbridge/plugin"
	"github.com/maxpert/geyserbridge/slots"
	"github.com/maxpert/geyserbridge/targets"
	"github.com/rs/zerolog/log"
)

// Backend is what the admin API reads from; *plugin.Plugin implements it
type Backend interface {
	Status() plugin.Status
	Targets() *targets.Set
	Slots() *slots.Tracker
	Hub() *notify.Hub
}

// AdminHandlers serves the admin API endpoints
type AdminHandlers struct {
	backend Backend
	events  id.Generator
}

// NewAdminHandlers creates a new AdminHandlers instance. instanceID seeds the
// stream event ids.
func NewAdminHandlers(backend Backend, instanceID uint64) *AdminHandlers {
	return &AdminHandlers{
		backend: backend,
		events:  id.NewClockGenerator(instanceID),
	}
}

// writeJSONResponse writes a successful JSON response
func writeJSONResponse(w http.ResponseWriter, data interface{}) {
	response := map[string]interface{}{
		"data": data,
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeErrorResponse writes an error JSON response
func writeErrorResponse(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	response := map[string]interface{}{
		"error": message,
	}
	if err := json.NewEncoder(w).Encode(response); err != nil {
		log.Error().Err(err).Msg("Failed to encode error response")
	}
}

// parseLimit parses limit parameter with defaults
func parseLimit(r *http.Request) (int, error) {
	limitStr := r.URL.Query().Get("limit")
	if limitStr == "" {
		return 64, nil
	}

	limit, err := strconv.Atoi(limitStr)
	if err != nil {
		return 0, fmt.Errorf("invalid limit parameter: %w", err)
	}

	if limit < 1 {
		return 0, fmt.Errorf("limit must be positive")
	}

	if limit > 1024 {
		return 0, fmt.Errorf("limit cannot exceed 1024")
	}

	return limit, nil
}

func (h *AdminHandlers) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSONResponse(w, map[string]interface{}{
		"status": "ok",
		"active": h.backend.Status().Active,
	})
}

func (h *AdminHandlers) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSONResponse(w, h.backend.Status())
}

func (h *AdminHandlers) handleTargets(w http.ResponseWriter, r *http.Request) {
	set := h.backend.Targets()
	writeJSONResponse(w, map[string]interface{}{
		"count":    set.Len(),
		"programs": set.Strings(),
	})
}

// slotView is the JSON form of a slot update
type slotView struct {
	Slot   uint64  `json:"slot"`
	Parent *uint64 `json:"parent,omitempty"`
	Status string  `json:"status"`
	Error  string  `json:"error,omitempty"`
}

func viewOf(u geyser.SlotUpdate) slotView {
	return slotView{Slot: u.Slot, Parent: u.Parent, Status: u.Status.String(), Error: u.DeadError}
}

func (h *AdminHandlers) handleSlots(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r)
	if err != nil {
		writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	tracker := h.backend.Slots()
	recent := tracker.Recent()
	if len(recent) > limit {
		recent = recent[:limit]
	}

	views := make([]slotView, 0, len(recent))
	for _, u := range recent {
		views = append(views, viewOf(u))
	}

	writeJSONResponse(w, map[string]interface{}{
		"latest": tracker.LatestAll(),
		"recent": views,
	})
}

func (h *AdminHandlers) handleSlotByStatus(w http.ResponseWriter, r *http.Request, status geyser.SlotStatus) {
	slot, ok := h.backend.Slots().Latest(status)
	if !ok {
		writeErrorResponse(w, http.StatusNotFound, fmt.Sprintf("no %s slot seen yet", status))
		return
	}

	writeJSONResponse(w, map[string]interface{}{
		"status": status.String(),
		"slot":   slot,
	})
}
