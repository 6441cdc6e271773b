package siting

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sustainasite/sustainasite-backend/internal/middleware"
)

// NewRouter mounts h's endpoints. apiKeyHash guards the run history.
func NewRouter(h *Handler, apiKeyHash string) http.Handler {
	r := chi.NewRouter()

	// Public routes
	r.Post("/bbox", h.ResolveBoundingBox)
	r.Post("/overlays", h.GetOverlays)
	r.Post("/rank", h.RankSites)
	r.Get("/rank/ws", h.RankStream)

	// Run history
	r.Group(func(r chi.Router) {
		r.Use(middleware.APIKeyMiddleware(apiKeyHash))
		r.Get("/runs", h.ListRuns)
		r.Get("/runs/{id}", h.GetRun)
	})

	return r
}

func SetupRoutes() http.Handler {
	return NewRouter(Service, apiKeyHash)
}
