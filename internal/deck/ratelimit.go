package deck

import (
	"sync"
	"time"
)

// Default limiter settings: 10 network fetches per rolling minute.
const (
	DefaultMaxRequests = 10
	DefaultWindow      = time.Minute
)

// Limiter is a sliding-window request limiter shared across index and card
// fetches. It accepts at most max requests per rolling window; once the
// window is full every further call is rejected until the oldest accepted
// request ages out.
//
// The check and the record happen under one mutex hold, so an accepted call
// is always counted before any other caller is evaluated.
type Limiter struct {
	mu     sync.Mutex
	max    int
	window time.Duration
	now    func() time.Time
	times  []time.Time
}

// NewLimiter creates a limiter accepting max requests per window.
func NewLimiter(max int, window time.Duration) *Limiter {
	return &Limiter{
		max:    max,
		window: window,
		now:    time.Now,
	}
}

// Allow reports whether a request may proceed now, recording it if so.
func (l *Limiter) Allow() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	cutoff := now.Add(-l.window)
	kept := l.times[:0]
	for _, t := range l.times {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	l.times = kept

	if len(l.times) >= l.max {
		return false
	}
	l.times = append(l.times, now)
	return true
}
