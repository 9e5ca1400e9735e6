package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/dagaz/internal/imagestore"
	"github.com/starford/dagaz/internal/scan"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *scan.Service, stats StatsSource, images imagestore.Store,
	authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc, stats, images)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Scanning and parsing.
	r.Post("/scan", h.Scan)
	r.Post("/parse", h.Parse)

	// Entries.
	r.Get("/entries", h.ListEntries)
	r.Get("/entries/{id}", h.GetEntry)
	r.Delete("/entries/{id}", h.DeleteEntry)

	// OCR diagnostics.
	r.Get("/ocr/health", h.OCRHealth)
	r.Get("/ocr/stats", h.OCRStats)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
