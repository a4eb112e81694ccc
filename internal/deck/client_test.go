package deck

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/starford/raido/internal/apperr"
)

type deckHost struct {
	index string
	cards map[string]string // id -> JSON body
	hits  atomic.Int64
}

func (d *deckHost) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/cardlist.txt", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte(d.index))
	})
	mux.HandleFunc("/cards/", func(w http.ResponseWriter, r *http.Request) {
		d.hits.Add(1)
		name := strings.TrimPrefix(r.URL.Path, "/cards/")
		name = strings.TrimSuffix(name, CardExtension)
		body, ok := d.cards[name]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	})
	return mux
}

func testClient(t *testing.T, host *deckHost) *Client {
	t.Helper()
	srv := httptest.NewServer(host.handler())
	t.Cleanup(srv.Close)
	logger := slog.New(slog.NewTextHandler(testWriter{t}, nil))
	return NewClient(srv.URL+"/cards/", srv.URL+"/cardlist.txt", NewLimiter(10, time.Minute), logger)
}

type testWriter struct{ t *testing.T }

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Log(strings.TrimRight(string(p), "\n"))
	return len(p), nil
}

func TestFetchIndex(t *testing.T) {
	c := testClient(t, &deckHost{index: "Welcome\nAbout\n\n  \nbad/../id\n<nope>\n"})
	set, err := c.FetchIndex(context.Background())
	if err != nil {
		t.Fatalf("FetchIndex: %v", err)
	}
	// "bad/../id" strips to "badid" and survives; "<nope>" is dropped.
	want := []string{"About", "Welcome", "badid"}
	got := set.IDs()
	if len(got) != len(want) {
		t.Fatalf("IDs = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("IDs[%d] = %q, want %q", i, got[i], want[i])
		}
	}
	if c.Known() != set {
		t.Error("FetchIndex should install the set on the client")
	}
}

func TestFetchIndex_Empty(t *testing.T) {
	c := testClient(t, &deckHost{index: "\n<bad>\n!also bad!\n"})
	_, err := c.FetchIndex(context.Background())
	if !errors.Is(err, apperr.ErrIndexEmpty) {
		t.Errorf("err = %v, want ErrIndexEmpty", err)
	}
}

func TestFetchIndex_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	c := NewClient(srv.URL+"/cards/", srv.URL+"/cardlist.txt", nil, slog.New(slog.DiscardHandler))
	_, err := c.FetchIndex(context.Background())
	if !errors.Is(err, apperr.ErrIndexUnavailable) {
		t.Errorf("err = %v, want ErrIndexUnavailable", err)
	}
}

func TestGetCard_CachesAndIsIdempotent(t *testing.T) {
	host := &deckHost{
		index: "Welcome",
		cards: map[string]string{"Welcome": `{"title":"Welcome","text":"hello"}`},
	}
	c := testClient(t, host)
	if _, err := c.FetchIndex(context.Background()); err != nil {
		t.Fatal(err)
	}

	first, err := c.GetCard(context.Background(), "Welcome")
	if err != nil {
		t.Fatalf("GetCard: %v", err)
	}
	if first.Title != "Welcome" || first.Text != "hello" {
		t.Errorf("card = %+v", first)
	}

	second, err := c.GetCard(context.Background(), "Welcome")
	if err != nil {
		t.Fatalf("GetCard (cached): %v", err)
	}
	if second != first {
		t.Errorf("cached card %+v differs from first fetch %+v", second, first)
	}
	if n := host.hits.Load(); n != 1 {
		t.Errorf("card endpoint hit %d times, want 1", n)
	}
	if !c.Cached("Welcome") {
		t.Error("Cached should report the fetched card")
	}
}

func TestGetCard_UnknownID(t *testing.T) {
	c := testClient(t, &deckHost{index: "Welcome"})
	if _, err := c.FetchIndex(context.Background()); err != nil {
		t.Fatal(err)
	}
	for _, id := range []string{"Missing", "../Welcome", "", "<script>"} {
		_, err := c.GetCard(context.Background(), id)
		if !errors.Is(err, apperr.ErrInvalidID) {
			t.Errorf("GetCard(%q) err = %v, want ErrInvalidID", id, err)
		}
	}
}

func TestGetCard_NotFound(t *testing.T) {
	c := testClient(t, &deckHost{index: "Welcome\nGhost", cards: map[string]string{}})
	if _, err := c.FetchIndex(context.Background()); err != nil {
		t.Fatal(err)
	}
	_, err := c.GetCard(context.Background(), "Ghost")
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestGetCard_WrongContentType(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "cardlist.txt") {
			_, _ = w.Write([]byte("Welcome"))
			return
		}
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html>not a card</html>"))
	}))
	t.Cleanup(srv.Close)
	c := NewClient(srv.URL+"/cards/", srv.URL+"/cardlist.txt", nil, slog.New(slog.DiscardHandler))
	if _, err := c.FetchIndex(context.Background()); err != nil {
		t.Fatal(err)
	}
	_, err := c.GetCard(context.Background(), "Welcome")
	if !errors.Is(err, apperr.ErrInvalidContent) {
		t.Errorf("err = %v, want ErrInvalidContent", err)
	}
}

func TestGetCard_RateLimited(t *testing.T) {
	host := &deckHost{index: "Welcome", cards: map[string]string{"Welcome": `{}`}}
	srv := httptest.NewServer(host.handler())
	t.Cleanup(srv.Close)

	// One slot: the index fetch consumes it.
	c := NewClient(srv.URL+"/cards/", srv.URL+"/cardlist.txt", NewLimiter(1, time.Minute), slog.New(slog.DiscardHandler))
	if _, err := c.FetchIndex(context.Background()); err != nil {
		t.Fatal(err)
	}
	_, err := c.GetCard(context.Background(), "Welcome")
	if !errors.Is(err, apperr.ErrRateLimited) {
		t.Errorf("err = %v, want ErrRateLimited", err)
	}
	if n := host.hits.Load(); n != 0 {
		t.Errorf("rejected fetch still hit the network %d times", n)
	}
}

func TestGetCard_CacheHitBypassesLimiter(t *testing.T) {
	host := &deckHost{index: "Welcome", cards: map[string]string{"Welcome": `{"title":"W","text":"t"}`}}
	srv := httptest.NewServer(host.handler())
	t.Cleanup(srv.Close)

	c := NewClient(srv.URL+"/cards/", srv.URL+"/cardlist.txt", NewLimiter(2, time.Minute), slog.New(slog.DiscardHandler))
	if _, err := c.FetchIndex(context.Background()); err != nil {
		t.Fatal(err)
	}
	if _, err := c.GetCard(context.Background(), "Welcome"); err != nil {
		t.Fatal(err)
	}
	// Limiter is now exhausted, but the cache hit must still succeed.
	for i := 0; i < 5; i++ {
		if _, err := c.GetCard(context.Background(), "Welcome"); err != nil {
			t.Fatalf("cache hit %d failed: %v", i, err)
		}
	}
}

func TestNormalize(t *testing.T) {
	cases := []struct {
		name      string
		raw       string
		wantTitle string
		wantText  string
	}{
		{"complete", `{"title":"T","text":"body"}`, "T", "body"},
		{"missing title", `{"text":"body"}`, "Untitled Card", "body"},
		{"missing text", `{"title":"T"}`, "T", "No content available."},
		{"empty object", `{}`, "Untitled Card", "No content available."},
		{"wrong types", `{"title":42,"text":["a"]}`, "Untitled Card", "No content available."},
		{"not an object", `[1,2,3]`, "Invalid Card", "Card data is invalid."},
		{"null", `null`, "Invalid Card", "Card data is invalid."},
		{"invalid json", `{not json`, "Invalid Card", "Card data is invalid."},
		{"empty title kept", `{"title":"","text":"b"}`, "", "b"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			card := Normalize([]byte(tc.raw))
			if card.Title != tc.wantTitle {
				t.Errorf("title = %q, want %q", card.Title, tc.wantTitle)
			}
			if card.Text != tc.wantText {
				t.Errorf("text = %q, want %q", card.Text, tc.wantText)
			}
		})
	}
}

func TestNormalize_TruncatesLongFields(t *testing.T) {
	long := strings.Repeat("x", MaxTextLength+100)
	card := Normalize([]byte(`{"title":"` + strings.Repeat("t", MaxTitleLength+5) + `","text":"` + long + `"}`))
	if len(card.Title) != MaxTitleLength {
		t.Errorf("title length = %d, want %d", len(card.Title), MaxTitleLength)
	}
	if len(card.Text) != MaxTextLength {
		t.Errorf("text length = %d, want %d", len(card.Text), MaxTextLength)
	}
}

func TestNormalize_TruncatesOnRuneBoundary(t *testing.T) {
	// Put a 3-byte rune straddling each byte limit; the cut must not
	// leave a partial sequence at the end.
	title := strings.Repeat("a", MaxTitleLength-1) + "日"
	text := strings.Repeat("b", MaxTextLength-1) + "日"
	body, err := json.Marshal(map[string]string{"title": title, "text": text})
	if err != nil {
		t.Fatal(err)
	}

	card := Normalize(body)
	if !utf8.ValidString(card.Title) {
		t.Error("title is not valid UTF-8 after truncation")
	}
	if got := len(card.Title); got != MaxTitleLength-1 {
		t.Errorf("title length = %d, want %d", got, MaxTitleLength-1)
	}
	if !utf8.ValidString(card.Text) {
		t.Error("text is not valid UTF-8 after truncation")
	}
	if got := len(card.Text); got != MaxTextLength-1 {
		t.Errorf("text length = %d, want %d", got, MaxTextLength-1)
	}
}
