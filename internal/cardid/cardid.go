// Package cardid validates and normalizes untrusted strings into safe card
// identifiers and provides the HTML escaper used by the renderer.
//
// Identifiers are the sole key for cards: they come from URL query
// parameters, link markers inside card text, and index file lines, all of
// which are untrusted. Sanitize is the only way to produce one.
package cardid

import (
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"
)

// MaxIDLength is the maximum accepted identifier length after stripping.
const MaxIDLength = 100

// MaxContentLength bounds the input size of Escape to keep escaping cost
// proportional to displayable content.
const MaxContentLength = 50000

var allowedPattern = regexp.MustCompile(`^[a-zA-Z0-9_\-\s]+$`)

// Sanitize cleans raw into a safe card identifier.
//
// Path traversal material (".." sequences and any "/" or "\" characters) is
// stripped unconditionally before validation rather than causing outright
// rejection; the cleaned remainder is then trimmed and checked against the
// identifier whitelist. Returns ("", false) if the result is empty, longer
// than MaxIDLength, or contains characters outside the whitelist.
func Sanitize(raw string) (string, bool) {
	id := strings.ReplaceAll(raw, "..", "")
	id = strings.ReplaceAll(id, "/", "")
	id = strings.ReplaceAll(id, `\`, "")
	id = strings.TrimSpace(id)

	if id == "" || len(id) > MaxIDLength {
		return "", false
	}
	if !allowedPattern.MatchString(id) {
		return "", false
	}
	return id, true
}

// Set is the immutable collection of known card identifiers for a session.
// A nil *Set knows no identifiers.
type Set struct {
	ids map[string]struct{}
}

// NewSet builds a Set from already-sanitized identifiers.
func NewSet(ids []string) *Set {
	m := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		m[id] = struct{}{}
	}
	return &Set{ids: m}
}

// Known reports whether id is an exact member of the set.
func (s *Set) Known(id string) bool {
	if s == nil {
		return false
	}
	_, ok := s.ids[id]
	return ok
}

// Len returns the number of identifiers in the set.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.ids)
}

// IDs returns the identifiers in sorted order.
func (s *Set) IDs() []string {
	if s == nil {
		return nil
	}
	out := make([]string, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

var htmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#039;",
	"/", "&#x2F;",
	`\`, "&#x5C;",
	"`", "&#x60;",
)

// Truncate shortens s to at most max bytes without splitting a UTF-8
// sequence: when the byte limit lands inside a rune, the cut backs up to the
// rune's start.
func Truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

// Escape returns s made safe for insertion as HTML text content or an
// attribute value. Inputs longer than MaxContentLength are truncated (with a
// trailing ellipsis) before escaping.
func Escape(s string) string {
	if len(s) > MaxContentLength {
		s = Truncate(s, MaxContentLength) + "..."
	}
	return htmlEscaper.Replace(s)
}
