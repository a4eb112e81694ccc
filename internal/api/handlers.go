package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/starford/raido/internal/apperr"
	"github.com/starford/raido/internal/index"
	"github.com/starford/raido/internal/nav"
	"github.com/starford/raido/internal/render"
)

// Handler holds API route handlers.
type Handler struct {
	cards    nav.Fetcher
	idx      index.CardIndex
	sessions *SessionManager
}

// NewHandler creates a new Handler. idx may be nil when no link index is
// configured; graph, search, and backlinks degrade accordingly.
func NewHandler(cards nav.Fetcher, idx index.CardIndex, sessions *SessionManager) *Handler {
	return &Handler{cards: cards, idx: idx, sessions: sessions}
}

// writeAppErr maps domain errors onto HTTP statuses.
func writeAppErr(w http.ResponseWriter, what string, err error) {
	switch {
	case errors.Is(err, apperr.ErrInvalidID):
		writeErr(w, http.StatusBadRequest, "invalid card id")
	case errors.Is(err, apperr.ErrNotFound):
		writeErr(w, http.StatusNotFound, "not found")
	case errors.Is(err, apperr.ErrPanelLimit), errors.Is(err, apperr.ErrNavigationState):
		writeErr(w, http.StatusConflict, err.Error())
	case errors.Is(err, apperr.ErrRateLimited):
		writeErr(w, http.StatusTooManyRequests, "rate limit exceeded")
	case errors.Is(err, apperr.ErrInvalidContent):
		writeErr(w, http.StatusBadGateway, "invalid card content")
	case errors.Is(err, apperr.ErrIndexEmpty), errors.Is(err, apperr.ErrIndexUnavailable):
		writeErr(w, http.StatusServiceUnavailable, "card index unavailable")
	default:
		slog.Error(what+" failed", slog.String("error", err.Error()))
		writeErr(w, http.StatusInternalServerError, "internal error")
	}
}

// Index handles GET /api/index.
//
//	@Summary		List known card ids
//	@Tags			cards
//	@Produce		json
//	@Success		200	{object}	IndexResponse
//	@Security		BearerAuth
//	@Router			/index [get]
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	ids := h.cards.Known().IDs()
	writeJSON(w, http.StatusOK, IndexResponse{Cards: ids, Total: len(ids)})
}

// GetCard handles GET /api/cards/{id}.
//
//	@Summary		Get a card with rendered panel markup and backlinks
//	@Tags			cards
//	@Produce		json
//	@Param			id	path		string	true	"Card id"
//	@Success		200	{object}	CardResponse
//	@Failure		400	{object}	ErrorResponse
//	@Failure		404	{object}	ErrorResponse
//	@Failure		429	{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/cards/{id} [get]
func (h *Handler) GetCard(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	card, err := h.cards.GetCard(r.Context(), id)
	if err != nil {
		writeAppErr(w, "get card", err)
		return
	}

	resp := CardResponse{
		ID:    id,
		Title: card.Title,
		Text:  card.Text,
		HTML:  string(render.Panel(id, card, h.cards.Known())),
	}
	if h.idx != nil {
		if bl, err := h.idx.Backlinks(id); err == nil {
			resp.Backlinks = bl
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// Search handles GET /api/search.
//
//	@Summary		Full-text search across cards
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	map[string]any
//	@Failure		400		{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeErr(w, http.StatusBadRequest, "query parameter 'q' is required")
		return
	}
	if h.idx == nil {
		writeErr(w, http.StatusServiceUnavailable, "search index unavailable")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.idx.Search(q, limit)
	if err != nil {
		slog.Error("search failed", slog.String("query", q), slog.String("error", err.Error()))
		writeErr(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"results": results,
	})
}

// Graph handles GET /api/graph.
//
//	@Summary		Get the card link graph
//	@Tags			graph
//	@Produce		json
//	@Success		200	{object}	map[string]any
//	@Security		BearerAuth
//	@Router			/graph [get]
func (h *Handler) Graph(w http.ResponseWriter, r *http.Request) {
	if h.idx == nil {
		writeErr(w, http.StatusServiceUnavailable, "graph index unavailable")
		return
	}
	nodes, links, err := h.idx.Graph()
	if err != nil {
		slog.Error("graph failed", slog.String("error", err.Error()))
		writeErr(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"nodes": nodes,
		"links": links,
	})
}

func (h *Handler) sessionResponse(id string, s *session) SessionResponse {
	return SessionResponse{
		ID:      id,
		Ready:   s.nav.Ready(),
		Panels:  s.nav.Panels(),
		Error:   s.nav.ErrState(),
		History: s.hist.Len(),
	}
}

// decodeBody decodes a bounded JSON request body into v.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

// CreateSession handles POST /api/session.
//
//	@Summary		Create a view-stack session and load its first card
//	@Tags			session
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateSessionRequest	false	"Initial card and viewport"
//	@Success		201		{object}	SessionResponse
//	@Failure		409		{object}	ErrorResponse
//	@Failure		503		{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/session [post]
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if r.ContentLength != 0 {
		if !decodeBody(w, r, &req) {
			return
		}
	}

	id, s, err := h.sessions.Create(r.Context(), req.Card, req.ViewportWidth, req.ViewportHeight)
	if err != nil {
		writeAppErr(w, "create session", err)
		return
	}
	writeJSON(w, http.StatusCreated, h.sessionResponse(id, s))
}

// GetSession handles GET /api/session/{id}.
//
//	@Summary		Get current session state
//	@Tags			session
//	@Produce		json
//	@Param			id	path		string	true	"Session id"
//	@Success		200	{object}	SessionResponse
//	@Failure		404	{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/session/{id} [get]
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s, ok := h.sessions.Get(id)
	if !ok {
		writeErr(w, http.StatusNotFound, "session not found")
		return
	}
	writeJSON(w, http.StatusOK, h.sessionResponse(id, s))
}

// DeleteSession handles DELETE /api/session/{id}.
//
//	@Summary		Discard a session
//	@Tags			session
//	@Param			id	path	string	true	"Session id"
//	@Success		204	"Session deleted"
//	@Failure		404	{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/session/{id} [delete]
func (h *Handler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	if !h.sessions.Delete(chi.URLParam(r, "id")) {
		writeErr(w, http.StatusNotFound, "session not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Navigate handles POST /api/session/{id}/navigate.
//
//	@Summary		Open a linked card as a new top panel
//	@Tags			session
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string			true	"Session id"
//	@Param			body	body		NavigateRequest	true	"Target card and click position"
//	@Success		200		{object}	SessionResponse
//	@Failure		400		{object}	ErrorResponse
//	@Failure		404		{object}	ErrorResponse
//	@Failure		409		{object}	ErrorResponse
//	@Failure		429		{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/session/{id}/navigate [post]
func (h *Handler) Navigate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s, ok := h.sessions.Get(id)
	if !ok {
		writeErr(w, http.StatusNotFound, "session not found")
		return
	}
	var req NavigateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if _, err := s.nav.Navigate(r.Context(), req.Target, req.X, req.Y); err != nil {
		writeAppErr(w, "navigate", err)
		return
	}
	writeJSON(w, http.StatusOK, h.sessionResponse(id, s))
}

// Raise handles POST /api/session/{id}/raise.
//
//	@Summary		Raise a panel, destroying panels stacked above it
//	@Tags			session
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string			true	"Session id"
//	@Param			body	body		RaiseRequest	true	"Card to raise"
//	@Success		200		{object}	RaiseResponse
//	@Failure		404		{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/session/{id}/raise [post]
func (h *Handler) Raise(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s, ok := h.sessions.Get(id)
	if !ok {
		writeErr(w, http.StatusNotFound, "session not found")
		return
	}
	var req RaiseRequest
	if !decodeBody(w, r, &req) {
		return
	}
	removed, raised := s.nav.Raise(req.CardID)
	writeJSON(w, http.StatusOK, RaiseResponse{
		Raised:          raised,
		Removed:         removed,
		SessionResponse: h.sessionResponse(id, s),
	})
}

// Restore handles POST /api/session/{id}/restore.
//
//	@Summary		Reconcile the view stack against a history entry
//	@Tags			session
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string			true	"Session id"
//	@Param			body	body		RestoreRequest	true	"History entry, or null entry for a stateless pop"
//	@Success		200		{object}	SessionResponse
//	@Failure		404		{object}	ErrorResponse
//	@Failure		409		{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/session/{id}/restore [post]
func (h *Handler) Restore(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s, ok := h.sessions.Get(id)
	if !ok {
		writeErr(w, http.StatusNotFound, "session not found")
		return
	}
	var req RestoreRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if _, err := s.nav.Restore(r.Context(), req.Entry, req.Card); err != nil {
		writeAppErr(w, "restore", err)
		return
	}
	writeJSON(w, http.StatusOK, h.sessionResponse(id, s))
}
