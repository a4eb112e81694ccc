// Package models defines the domain types for Raido.
package models

import "time"

// Card is the normalized content of one card document.
// Title and Text are always populated: missing or malformed fields are
// replaced with fixed fallback strings during normalization, never left empty.
type Card struct {
	Title string `json:"title"`
	Text  string `json:"text"`
}

// Panel is a live, positioned, z-ordered instance of a card in a view stack.
type Panel struct {
	CardID string  `json:"card_id"`
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	ZIndex int     `json:"z_index"`
}

// Entry returns the history entry describing this panel.
func (p Panel) Entry() HistoryEntry {
	return HistoryEntry{
		CardID: p.CardID,
		Left:   p.Left,
		Top:    p.Top,
		ZIndex: p.ZIndex,
	}
}

// HistoryEntry is the serialized form of exactly one panel, attached to a
// navigation history slot and consumed when that slot is restored.
type HistoryEntry struct {
	CardID string  `json:"card_id"`
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	ZIndex int     `json:"z_index"`
}

// Panel reconstructs the panel described by the entry.
func (e HistoryEntry) Panel() Panel {
	return Panel{
		CardID: e.CardID,
		Left:   e.Left,
		Top:    e.Top,
		ZIndex: e.ZIndex,
	}
}

// DeckEntry is a lightweight description of one card file in the deck
// directory, returned by list operations.
type DeckEntry struct {
	ID        string    `json:"id"`
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}
