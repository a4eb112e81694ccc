package api

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"

	"github.com/starford/raido/internal/nav"
)

// DefaultMaxSessions bounds how many concurrent view-stack sessions the
// server will hold. Creating a session past the bound evicts the one idle
// the longest.
const DefaultMaxSessions = 128

// session pairs a view-stack controller with its server-side history
// mirror so handlers can report history depth.
type session struct {
	nav      *nav.Session
	hist     *nav.MemoryHistory
	lastUsed time.Time
}

// SessionManager creates and tracks view-stack sessions keyed by opaque ids.
// The table is bounded: at capacity the least recently accessed session is
// evicted to make room.
type SessionManager struct {
	fetch nav.Fetcher
	base  nav.Config
	max   int
	now   func() time.Time

	mu       sync.Mutex
	sessions map[string]*session
}

// NewSessionManager creates a manager. base supplies the default card and
// panel budget; per-session viewport overrides come from the create request.
func NewSessionManager(fetch nav.Fetcher, base nav.Config, max int) *SessionManager {
	if max <= 0 {
		max = DefaultMaxSessions
	}
	return &SessionManager{
		fetch:    fetch,
		base:     base,
		max:      max,
		now:      time.Now,
		sessions: make(map[string]*session),
	}
}

// Create builds a new session, runs its initial load, and registers it,
// evicting the least recently accessed session if the table is full.
// The session is not retained when initialization fails.
func (m *SessionManager) Create(ctx context.Context, card string, vw, vh float64) (string, *session, error) {
	cfg := m.base
	if vw > 0 {
		cfg.ViewportWidth = vw
	}
	if vh > 0 {
		cfg.ViewportHeight = vh
	}

	hist := nav.NewMemoryHistory()
	s := &session{nav: nav.NewSession(m.fetch, hist, cfg), hist: hist}
	if _, err := s.nav.Initialize(ctx, card); err != nil {
		return "", nil, err
	}

	id := newSessionID()

	m.mu.Lock()
	defer m.mu.Unlock()
	for len(m.sessions) >= m.max {
		m.evictOldestLocked()
	}
	s.lastUsed = m.now()
	m.sessions[id] = s
	return id, s, nil
}

// Get returns the session for id and marks it as just used.
func (m *SessionManager) Get(id string) (*session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if ok {
		s.lastUsed = m.now()
	}
	return s, ok
}

// Delete removes the session for id, reporting whether it existed.
func (m *SessionManager) Delete(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.sessions[id]
	delete(m.sessions, id)
	return ok
}

// Count returns the number of live sessions.
func (m *SessionManager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

func (m *SessionManager) evictOldestLocked() {
	var (
		oldestID string
		oldest   time.Time
	)
	for id, s := range m.sessions {
		if oldestID == "" || s.lastUsed.Before(oldest) {
			oldestID = id
			oldest = s.lastUsed
		}
	}
	delete(m.sessions, oldestID)
}

func newSessionID() string {
	var b [16]byte
	_, _ = rand.Read(b[:])
	return hex.EncodeToString(b[:])
}
