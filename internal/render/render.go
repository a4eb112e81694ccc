// Package render turns normalized card documents into injection-safe HTML
// panels, rewriting [[link]] markers into navigable anchors or broken-link
// markers.
package render

import (
	"html/template"
	"net/url"
	"regexp"
	"strings"

	"github.com/starford/raido/internal/cardid"
	"github.com/starford/raido/internal/models"
)

// MaxLinks bounds the number of link markers processed per card; anything
// beyond it is emitted as literal escaped text.
const MaxLinks = 50

var linkMarker = regexp.MustCompile(`\[\[([^\]]+)\]\]`)

var panelTemplate = template.Must(template.New("panel").Parse(
	`<div class="hypercard" data-cardid="{{.ID}}">` +
		`<h1>{{.Title}}</h1>` +
		`<div class="content">{{.Body}}</div>` +
		`</div>`))

// Linkify escapes text and rewrites recognized [[target]] markers.
//
// Known targets become anchors carrying the raw validated id in
// data-target-cardid (for programmatic navigation) and the escaped id as
// visible text; unknown or invalid targets become broken-link spans showing
// the escaped raw inner text inside literal brackets. Every other character
// of the input passes through the HTML escaper, so no unescaped fragment of
// the input ever reaches the output.
func Linkify(text string, known *cardid.Set) template.HTML {
	if text == "" {
		return ""
	}

	var b strings.Builder
	last := 0
	count := 0

	for _, m := range linkMarker.FindAllStringSubmatchIndex(text, -1) {
		if count >= MaxLinks {
			break
		}
		start, end := m[0], m[1]
		inner := text[m[2]:m[3]]

		b.WriteString(cardid.Escape(text[last:start]))

		target, ok := cardid.Sanitize(inner)
		if ok && known.Known(target) {
			escaped := cardid.Escape(target)
			b.WriteString(`<a href="?card=`)
			b.WriteString(url.QueryEscape(target))
			b.WriteString(`" class="internal-link" data-target-cardid="`)
			// The sanitized id is attribute-safe by construction
			// (letters, digits, _, -, whitespace only).
			b.WriteString(target)
			b.WriteString(`">`)
			b.WriteString(escaped)
			b.WriteString(`</a>`)
		} else {
			b.WriteString(`<span class="broken-link" title="Card not found">[[`)
			b.WriteString(cardid.Escape(inner))
			b.WriteString(`]]</span>`)
		}

		last = end
		count++
	}

	b.WriteString(cardid.Escape(text[last:]))
	return template.HTML(b.String())
}

// LinkTargets returns the deduplicated sanitized targets of the first
// MaxLinks markers in text, whether or not they are known. Feeds the link
// graph index.
func LinkTargets(text string) []string {
	matches := linkMarker.FindAllStringSubmatch(text, MaxLinks)
	seen := make(map[string]struct{}, len(matches))
	var out []string
	for _, m := range matches {
		target, ok := cardid.Sanitize(m[1])
		if !ok {
			continue
		}
		if _, dup := seen[target]; dup {
			continue
		}
		seen[target] = struct{}{}
		out = append(out, target)
	}
	return out
}

// panelData feeds panelTemplate. Body is pre-escaped by Linkify.
type panelData struct {
	ID    string
	Title string
	Body  template.HTML
}

// Panel renders a complete card panel. The title falls back to the card id
// when the document has none.
func Panel(id string, card models.Card, known *cardid.Set) template.HTML {
	title := card.Title
	if title == "" {
		title = id
	}
	var b strings.Builder
	err := panelTemplate.Execute(&b, panelData{
		ID:    id,
		Title: title,
		Body:  Linkify(card.Text, known),
	})
	if err != nil {
		// The template is static and the data is plain values; execution
		// cannot fail at runtime.
		return ""
	}
	return template.HTML(b.String())
}
