package admin

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/maxpert/geyserbridge/geyser"
	"github.com/rs/zerolog/log"
)

// RegisterRoutes registers all admin API routes using chi router
func RegisterRoutes(mux *http.ServeMux, handlers *AdminHandlers, token string) {
	r := chi.NewRouter()

	// Liveness stays open for orchestrators
	r.Get("/health", handlers.handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(token))

		r.Get("/status", handlers.handleStatus)
		r.Get("/targets", handlers.handleTargets)
		r.Get("/slots", handlers.handleSlots)
		r.Get("/slots/{status}", handlers.slotByStatus)
		r.Get("/stream", handlers.handleStream)
	})

	// Mount chi router under /admin
	mux.Handle("/admin", http.RedirectHandler("/admin/", http.StatusMovedPermanently))
	mux.Handle("/admin/", http.StripPrefix("/admin", r))

	log.Info().Msg("Admin endpoints enabled at /admin/*")
}

func (h *AdminHandlers) slotByStatus(w http.ResponseWriter, r *http.Request) {
	status, err := geyser.ParseSlotStatus(chi.URLParam(r, "status"))
	if err != nil {
		writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}
	h.handleSlotByStatus(w, r, status)
}
