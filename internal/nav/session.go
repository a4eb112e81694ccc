// Package nav implements the view-stack and history controller: the state
// machine that keeps the live panel stack, the navigation history, and the
// card cache mutually consistent across forward navigation, raise-to-front
// reordering, and history restoration.
package nav

import (
	"context"
	"fmt"
	"sync"

	"github.com/starford/raido/internal/apperr"
	"github.com/starford/raido/internal/cardid"
	"github.com/starford/raido/internal/models"
)

// Layout constants. A panel's assumed footprint is used to clamp new panel
// positions inside the viewport; the z ceiling bounds pathological stacking.
const (
	PanelWidth  = 300
	PanelHeight = 200
	MaxZIndex   = 9999

	defaultLeft = 20
	defaultTop  = 20
)

// Defaults applied when a Config field is zero.
const (
	DefaultMaxPanels      = 20
	DefaultViewportWidth  = 1280
	DefaultViewportHeight = 800
)

// Fetcher supplies card documents and the known-card index. *deck.Client
// satisfies it; tests use fakes.
type Fetcher interface {
	GetCard(ctx context.Context, id string) (models.Card, error)
	Known() *cardid.Set
}

// Config parameterizes a session.
type Config struct {
	DefaultCard    string
	MaxPanels      int
	ViewportWidth  float64
	ViewportHeight float64
}

func (c Config) withDefaults() Config {
	if c.MaxPanels <= 0 {
		c.MaxPanels = DefaultMaxPanels
	}
	if c.ViewportWidth <= 0 {
		c.ViewportWidth = DefaultViewportWidth
	}
	if c.ViewportHeight <= 0 {
		c.ViewportHeight = DefaultViewportHeight
	}
	return c
}

// Session is one view stack bound to one history mirror.
//
// All state transitions go through the four operations below; each leaves the
// top-of-history entry matched by a live panel at exactly its z-index, or the
// session in an explicit error state. Methods may be called concurrently;
// the fetch suspension point sits outside the state lock and every
// post-fetch mutation rechecks its preconditions, so a stale completion
// cannot corrupt a stack that moved on.
type Session struct {
	fetch Fetcher
	hist  History
	cfg   Config

	mu       sync.Mutex
	panels   []models.Panel
	ready    bool
	errState string
}

// NewSession creates a session over the given fetcher and history.
func NewSession(fetch Fetcher, hist History, cfg Config) *Session {
	return &Session{
		fetch: fetch,
		hist:  hist,
		cfg:   cfg.withDefaults(),
	}
}

// Initialize loads the start card and seeds the stack with a single panel at
// the default position and z-index 1, replacing (not pushing) the current
// history entry so the back button does not lead to a blank state.
//
// urlCardID is the card query parameter from the initial URL; when absent or
// invalid the configured default card is used, which must itself be a member
// of the index or initialization fails.
func (s *Session) Initialize(ctx context.Context, urlCardID string) (models.Panel, error) {
	known := s.fetch.Known()
	if known.Len() == 0 {
		return models.Panel{}, s.fail(apperr.ErrIndexEmpty)
	}

	startID, ok := cardid.Sanitize(urlCardID)
	if !ok || !known.Known(startID) {
		startID = s.cfg.DefaultCard
	}
	if !known.Known(startID) {
		return models.Panel{}, s.fail(fmt.Errorf("%w: default card %q is not in the index", apperr.ErrInvalidID, s.cfg.DefaultCard))
	}

	if _, err := s.fetch.GetCard(ctx, startID); err != nil {
		return models.Panel{}, s.fail(fmt.Errorf("load start card %q: %w", startID, err))
	}

	panel := models.Panel{CardID: startID, Left: defaultLeft, Top: defaultTop, ZIndex: 1}

	s.mu.Lock()
	s.panels = []models.Panel{panel}
	s.ready = true
	s.errState = ""
	s.mu.Unlock()

	s.hist.Replace(panel.Entry())
	return panel, nil
}

// Navigate opens target as a new panel near (x, y) and pushes a history
// entry. It rejects before any I/O if the panel budget is reached or the
// target fails validation, and makes no state change on fetch failure.
func (s *Session) Navigate(ctx context.Context, target string, x, y float64) (models.Panel, error) {
	s.mu.Lock()
	if !s.ready {
		s.mu.Unlock()
		return models.Panel{}, apperr.ErrNavigationState
	}
	if len(s.panels) >= s.cfg.MaxPanels {
		s.mu.Unlock()
		return models.Panel{}, apperr.ErrPanelLimit
	}
	s.mu.Unlock()

	id, ok := cardid.Sanitize(target)
	if !ok || !s.fetch.Known().Known(id) {
		return models.Panel{}, fmt.Errorf("%w: %q", apperr.ErrInvalidID, target)
	}

	if _, err := s.fetch.GetCard(ctx, id); err != nil {
		return models.Panel{}, fmt.Errorf("load card %q: %w", id, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// The fetch suspended; the stack may have changed underneath it.
	if !s.ready {
		return models.Panel{}, apperr.ErrNavigationState
	}
	if len(s.panels) >= s.cfg.MaxPanels {
		return models.Panel{}, apperr.ErrPanelLimit
	}

	z := s.maxZLocked() + 1
	if z > MaxZIndex {
		z = MaxZIndex
	}
	left, top := s.clampPosition(x, y)
	panel := models.Panel{CardID: id, Left: left, Top: top, ZIndex: z}
	s.panels = append(s.panels, panel)
	s.hist.Push(panel.Entry())
	return panel, nil
}

// Raise brings the named live panel to the front of attention by destroying
// every panel stacked strictly above it. Panels are discarded, not hidden:
// the card-stack metaphor treats anything covering the clicked card as
// removed. When anything was destroyed the current history entry is replaced
// (not pushed) with the clicked panel's entry, since this is a reordering of
// the existing stack rather than a forward navigation.
//
// A cardID with no live panel is a no-op: the click landed on empty space.
func (s *Session) Raise(cardID string) (removed int, raised bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var clicked *models.Panel
	for i := range s.panels {
		if s.panels[i].CardID == cardID {
			clicked = &s.panels[i]
			break
		}
	}
	if clicked == nil {
		return 0, false
	}

	removed = s.removeAboveLocked(clicked.ZIndex)
	if removed > 0 {
		s.hist.Replace(clicked.Entry())
	}
	return removed, true
}

// Restore reconciles the live stack with a history entry delivered by a
// popstate event. A nil entry means the history position carries no
// application state; recovery falls back to urlCardID (the card query
// parameter of the restored URL), then to the default card, and finally to
// an explicit navigation-unclear error state. This path never panics.
func (s *Session) Restore(ctx context.Context, entry *models.HistoryEntry, urlCardID string) (models.Panel, error) {
	if entry == nil {
		return s.restoreWithoutEntry(ctx, urlCardID)
	}

	id, ok := cardid.Sanitize(entry.CardID)
	if !ok || id != entry.CardID || !s.fetch.Known().Known(id) {
		return models.Panel{}, s.fail(fmt.Errorf("%w: invalid card id in history entry", apperr.ErrNavigationState))
	}

	s.mu.Lock()
	if panel, reused := s.reconcileLocked(id, entry); reused {
		s.mu.Unlock()
		s.hist.Replace(panel.Entry())
		return panel, nil
	}
	s.mu.Unlock()

	// Typically a cache hit; the card was fetched when its panel was
	// first opened.
	if _, err := s.fetch.GetCard(ctx, id); err != nil {
		return models.Panel{}, s.fail(fmt.Errorf("restore card %q: %w", id, err))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// The fetch suspended; the stack may have changed underneath it. A
	// concurrent restore may already have rebuilt this panel, so reconcile
	// again before appending anything.
	if !s.ready {
		return models.Panel{}, apperr.ErrNavigationState
	}
	if panel, reused := s.reconcileLocked(id, entry); reused {
		s.hist.Replace(panel.Entry())
		return panel, nil
	}
	if len(s.panels) >= s.cfg.MaxPanels {
		return models.Panel{}, apperr.ErrPanelLimit
	}

	panel := entry.Panel()
	s.panels = append(s.panels, panel)
	s.hist.Replace(panel.Entry())
	return panel, nil
}

// reconcileLocked truncates everything stacked above entry.ZIndex and
// resolves any live panel for id: an exact z match is reused with the
// entry's position reapplied, a same-card panel at the wrong z is removed
// so the caller can rebuild it from the entry.
func (s *Session) reconcileLocked(id string, entry *models.HistoryEntry) (models.Panel, bool) {
	s.removeAboveLocked(entry.ZIndex)
	for i := range s.panels {
		if s.panels[i].CardID != id {
			continue
		}
		if s.panels[i].ZIndex == entry.ZIndex {
			s.panels[i].Left = entry.Left
			s.panels[i].Top = entry.Top
			return s.panels[i], true
		}
		s.panels = append(s.panels[:i], s.panels[i+1:]...)
		break
	}
	return models.Panel{}, false
}

// restoreWithoutEntry handles a popstate with no state payload.
func (s *Session) restoreWithoutEntry(ctx context.Context, urlCardID string) (models.Panel, error) {
	known := s.fetch.Known()

	id, ok := cardid.Sanitize(urlCardID)
	if !ok || !known.Known(id) {
		id = s.cfg.DefaultCard
		if !known.Known(id) {
			return models.Panel{}, s.fail(apperr.ErrNavigationState)
		}
	}

	if _, err := s.fetch.GetCard(ctx, id); err != nil {
		return models.Panel{}, s.fail(fmt.Errorf("restore card %q: %w", id, err))
	}

	panel := models.Panel{CardID: id, Left: defaultLeft, Top: defaultTop, ZIndex: 1}

	s.mu.Lock()
	s.panels = []models.Panel{panel}
	s.errState = ""
	s.mu.Unlock()

	s.hist.Replace(panel.Entry())
	return panel, nil
}

// Panels returns a snapshot of the live stack in insertion order.
func (s *Session) Panels() []models.Panel {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Panel, len(s.panels))
	copy(out, s.panels)
	return out
}

// ErrState returns the explicit error message the view is showing, or ""
// when the stack is healthy.
func (s *Session) ErrState() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errState
}

// Ready reports whether initialization has completed successfully.
func (s *Session) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ready
}

// fail records err as the session's visible error state. Recoverable
// failures surfaced before any mutation (invalid target, panel budget, rate
// limit) do not pass through here; only failures that leave the view itself
// in an error state do.
func (s *Session) fail(err error) error {
	s.mu.Lock()
	s.panels = nil
	s.errState = err.Error()
	s.mu.Unlock()
	return err
}

func (s *Session) maxZLocked() int {
	max := 0
	for _, p := range s.panels {
		if p.ZIndex > max {
			max = p.ZIndex
		}
	}
	return max
}

// removeAboveLocked destroys every panel with z strictly greater than z,
// returning how many were removed.
func (s *Session) removeAboveLocked(z int) int {
	kept := s.panels[:0]
	removed := 0
	for _, p := range s.panels {
		if p.ZIndex > z {
			removed++
			continue
		}
		kept = append(kept, p)
	}
	s.panels = kept
	return removed
}

// clampPosition keeps a new panel's assumed footprint inside the viewport.
// Zero coordinates (no usable click position) fall back to the default
// offset before clamping.
func (s *Session) clampPosition(x, y float64) (left, top float64) {
	if x == 0 {
		x = defaultLeft
	}
	if y == 0 {
		y = defaultTop
	}
	left = clamp(x, 0, s.cfg.ViewportWidth-PanelWidth)
	top = clamp(y, 0, s.cfg.ViewportHeight-PanelHeight)
	return left, top
}

func clamp(v, lo, hi float64) float64 {
	if hi < lo {
		hi = lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
