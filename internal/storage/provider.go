// Package storage defines the deck directory abstraction.
package storage

import "github.com/starford/raido/internal/models"

// Provider is the read-only interface over a deck directory. Cards are
// authored out of band; nothing in the navigator writes to the deck.
type Provider interface {
	// List returns metadata for every card file directly under the deck
	// root, keyed by its sanitized identifier. Files whose name stem does
	// not sanitize to a valid card id are skipped.
	List() ([]models.DeckEntry, error)
	// Read returns the raw bytes of the named file (relative to the deck
	// root). Traversal outside the root is rejected.
	Read(name string) ([]byte, error)
}
