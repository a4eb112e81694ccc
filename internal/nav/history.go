package nav

import (
	"sync"

	"github.com/starford/raido/internal/models"
)

// History abstracts the navigation history stack. The browser owns the real
// one; the server keeps a mirror per session so the controller's
// reconciliation logic stays testable without a browser.
type History interface {
	// Push appends a new entry: a forward navigation, observable via the
	// back button.
	Push(models.HistoryEntry)
	// Replace overwrites the current entry without growing the stack.
	Replace(models.HistoryEntry)
	// Current returns the entry at the present history position, if any.
	Current() (models.HistoryEntry, bool)
}

// MemoryHistory is an in-memory History. It models the browser stack
// truncated at the current position: a Push after going back discards the
// forward entries, exactly as the History API does.
type MemoryHistory struct {
	mu      sync.Mutex
	entries []models.HistoryEntry
	pos     int // index of current entry; -1 when empty
}

// NewMemoryHistory creates an empty history.
func NewMemoryHistory() *MemoryHistory {
	return &MemoryHistory{pos: -1}
}

// Push appends entry after the current position, discarding any forward
// entries.
func (h *MemoryHistory) Push(entry models.HistoryEntry) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = append(h.entries[:h.pos+1], entry)
	h.pos = len(h.entries) - 1
}

// Replace overwrites the current entry, or seeds the stack when empty.
func (h *MemoryHistory) Replace(entry models.HistoryEntry) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.pos < 0 {
		h.entries = append(h.entries, entry)
		h.pos = 0
		return
	}
	h.entries[h.pos] = entry
}

// Current returns the entry at the current position.
func (h *MemoryHistory) Current() (models.HistoryEntry, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.pos < 0 {
		return models.HistoryEntry{}, false
	}
	return h.entries[h.pos], true
}

// Back moves the position one entry backward and returns the entry now
// current, mimicking the browser's back button for tests and local drivers.
func (h *MemoryHistory) Back() (models.HistoryEntry, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.pos <= 0 {
		return models.HistoryEntry{}, false
	}
	h.pos--
	return h.entries[h.pos], true
}

// Forward moves the position one entry forward, if possible.
func (h *MemoryHistory) Forward() (models.HistoryEntry, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.pos+1 >= len(h.entries) {
		return models.HistoryEntry{}, false
	}
	h.pos++
	return h.entries[h.pos], true
}

// Len returns the number of stored entries.
func (h *MemoryHistory) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}
