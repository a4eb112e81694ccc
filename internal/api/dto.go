package api

import "github.com/starford/raido/internal/models"

// IndexResponse is the body of GET /api/index.
type IndexResponse struct {
	Cards []string `json:"cards"`
	Total int      `json:"total"`
}

// CardResponse is the body of GET /api/cards/{id}.
type CardResponse struct {
	ID        string   `json:"id"`
	Title     string   `json:"title"`
	Text      string   `json:"text"`
	HTML      string   `json:"html"`
	Backlinks []string `json:"backlinks,omitempty"`
}

// CreateSessionRequest is the body of POST /api/session.
type CreateSessionRequest struct {
	Card           string  `json:"card,omitempty"`
	ViewportWidth  float64 `json:"viewport_width,omitempty"`
	ViewportHeight float64 `json:"viewport_height,omitempty"`
}

// NavigateRequest is the body of POST /api/session/{id}/navigate.
type NavigateRequest struct {
	Target string  `json:"target"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
}

// RaiseRequest is the body of POST /api/session/{id}/raise.
type RaiseRequest struct {
	CardID string `json:"card_id"`
}

// RestoreRequest is the body of POST /api/session/{id}/restore. Entry is
// nil when the driver's history state carried no entry.
type RestoreRequest struct {
	Entry *models.HistoryEntry `json:"entry"`
	Card  string               `json:"card,omitempty"`
}

// RaiseResponse reports the outcome of a raise.
type RaiseResponse struct {
	Raised  bool `json:"raised"`
	Removed int  `json:"removed"`
	SessionResponse
}

// SessionResponse is the session state returned by all session endpoints.
type SessionResponse struct {
	ID      string         `json:"id"`
	Ready   bool           `json:"ready"`
	Panels  []models.Panel `json:"panels"`
	Error   string         `json:"error,omitempty"`
	History int            `json:"history"`
}
