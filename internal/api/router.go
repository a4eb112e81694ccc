package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/raido/internal/index"
	"github.com/starford/raido/internal/nav"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(cards nav.Fetcher, idx index.CardIndex, sessions *SessionManager, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(cards, idx, sessions)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Cards (read-only).
	r.Get("/index", h.Index)
	r.Get("/cards/{id}", h.GetCard)

	// Search.
	r.Get("/search", h.Search)

	// Graph.
	r.Get("/graph", h.Graph)

	// View-stack sessions.
	r.Post("/session", h.CreateSession)
	r.Get("/session/{id}", h.GetSession)
	r.Delete("/session/{id}", h.DeleteSession)
	r.Post("/session/{id}/navigate", h.Navigate)
	r.Post("/session/{id}/raise", h.Raise)
	r.Post("/session/{id}/restore", h.Restore)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
