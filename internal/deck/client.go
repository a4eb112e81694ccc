// Package deck implements the card repository client: it loads the card
// index, fetches individual card documents over HTTP, normalizes their
// content, and caches them for the session.
package deck

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/starford/raido/internal/apperr"
	"github.com/starford/raido/internal/cardid"
	"github.com/starford/raido/internal/models"
)

// Limits for card document normalization.
const (
	MaxTitleLength = 200
	MaxTextLength  = 50000
)

// CardExtension is the file extension of card resources.
const CardExtension = ".json"

const maxBodyBytes = 1 << 20

// Client fetches the card index and card documents from a static host.
//
// Cards are immutable for the session: the first successful fetch populates
// the cache and every later request for the same id is served from it,
// bypassing the rate limiter entirely. Malformed card content is tolerated
// (normalized with fallbacks); malformed transport is not.
type Client struct {
	baseURL  string // card resources live at baseURL + escape(id) + CardExtension
	indexURL string
	http     *http.Client
	limiter  *Limiter
	logger   *slog.Logger

	mu    sync.RWMutex
	known *cardid.Set
	cache map[string]models.Card
}

// NewClient creates a repository client. baseURL is the card directory URL
// (trailing slash optional) and indexURL locates the index resource.
func NewClient(baseURL, indexURL string, limiter *Limiter, logger *slog.Logger) *Client {
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	if limiter == nil {
		limiter = NewLimiter(DefaultMaxRequests, DefaultWindow)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:  baseURL,
		indexURL: indexURL,
		http:     &http.Client{},
		limiter:  limiter,
		logger:   logger,
		cache:    make(map[string]models.Card),
	}
}

// SetHTTPClient replaces the underlying HTTP client (used in tests).
func (c *Client) SetHTTPClient(h *http.Client) { c.http = h }

// Known returns the loaded card index, or nil before the index is loaded.
func (c *Client) Known() *cardid.Set {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.known
}

// UseIndex installs an index set that was loaded out of band (for example
// parsed straight from the deck directory at startup).
func (c *Client) UseIndex(set *cardid.Set) {
	c.mu.Lock()
	c.known = set
	c.mu.Unlock()
}

// FetchIndex retrieves the index resource, parses it into a card set, and
// installs it on the client. Fails with apperr.ErrIndexUnavailable on any
// transport or status failure and apperr.ErrIndexEmpty if no valid
// identifier survives sanitization.
func (c *Client) FetchIndex(ctx context.Context) (*cardid.Set, error) {
	if !c.limiter.Allow() {
		return nil, apperr.ErrRateLimited
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.indexURL, nil)
	if err != nil {
		return nil, fmt.Errorf("deck: build index request: %w", err)
	}
	req.Header.Set("Accept", "text/plain")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrIndexUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: status %d", apperr.ErrIndexUnavailable, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", apperr.ErrIndexUnavailable, err)
	}

	set, err := ParseIndex(string(body), c.logger)
	if err != nil {
		return nil, err
	}
	c.UseIndex(set)
	return set, nil
}

// ParseIndex splits the index text on line breaks, sanitizes each line, and
// builds the card set. Lines that fail sanitization are dropped with a
// logged warning. Returns apperr.ErrIndexEmpty if nothing survives.
func ParseIndex(text string, logger *slog.Logger) (*cardid.Set, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var ids []string
	for _, line := range strings.FieldsFunc(text, func(r rune) bool { return r == '\n' || r == '\r' }) {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		id, ok := cardid.Sanitize(line)
		if !ok {
			logger.Warn("deck: invalid card id in index", slog.String("line", line))
			continue
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, apperr.ErrIndexEmpty
	}
	return cardid.NewSet(ids), nil
}

// GetCard returns the card document for id.
//
// id must already be sanitized and a member of the index; otherwise the call
// fails with apperr.ErrInvalidID before any I/O. A cache hit short-circuits
// every further check, including the rate limiter.
func (c *Client) GetCard(ctx context.Context, id string) (models.Card, error) {
	sanitized, ok := cardid.Sanitize(id)
	if !ok || sanitized != id || !c.Known().Known(id) {
		return models.Card{}, fmt.Errorf("%w: %q", apperr.ErrInvalidID, id)
	}

	c.mu.RLock()
	cached, hit := c.cache[id]
	c.mu.RUnlock()
	if hit {
		c.logger.Debug("deck: cache hit", slog.String("card", id))
		return cached, nil
	}

	if !c.limiter.Allow() {
		return models.Card{}, apperr.ErrRateLimited
	}

	cardURL := c.baseURL + url.PathEscape(id) + CardExtension
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, cardURL, nil)
	if err != nil {
		return models.Card{}, fmt.Errorf("deck: build card request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := c.http.Do(req)
	if err != nil {
		return models.Card{}, fmt.Errorf("%w: %q: %v", apperr.ErrNotFound, id, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return models.Card{}, fmt.Errorf("%w: %q: status %d", apperr.ErrNotFound, id, resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	if !strings.Contains(contentType, "application/json") {
		return models.Card{}, fmt.Errorf("%w: %q: content type %q", apperr.ErrInvalidContent, id, contentType)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return models.Card{}, fmt.Errorf("%w: %q: read body: %v", apperr.ErrInvalidContent, id, err)
	}

	card := Normalize(body)

	// A concurrent fetch for the same id may have won the race; the
	// overwrite stores an equal value either way.
	c.mu.Lock()
	c.cache[id] = card
	c.mu.Unlock()

	c.logger.Debug("deck: fetched card", slog.String("card", id))
	return card, nil
}

// Cached reports whether id is present in the session cache.
func (c *Client) Cached(id string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.cache[id]
	return ok
}

// Normalize parses raw card bytes into a Card, replacing any missing or
// wrongly-typed field with its fallback. Content problems never surface as
// errors: an unparseable or non-object document yields the invalid-card
// placeholder rather than failing the fetch that produced it.
func Normalize(raw []byte) models.Card {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(raw, &doc); err != nil || doc == nil {
		return models.Card{Title: "Invalid Card", Text: "Card data is invalid."}
	}

	card := models.Card{Title: "Untitled Card", Text: "No content available."}

	if rawTitle, ok := doc["title"]; ok {
		var title string
		if err := json.Unmarshal(rawTitle, &title); err == nil {
			card.Title = cardid.Truncate(title, MaxTitleLength)
		}
	}
	if rawText, ok := doc["text"]; ok {
		var text string
		if err := json.Unmarshal(rawText, &text); err == nil {
			card.Text = cardid.Truncate(text, MaxTextLength)
		}
	}
	return card
}
