package mcpserver

import (
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/raido/internal/index"
	"github.com/starford/raido/internal/testutil"
)

func testServer(t *testing.T) (*Server, string) {
	t.Helper()
	deckDir, store := testutil.TestDeck(t)
	srv := New(store, testutil.TestDB(t))
	return srv, deckDir
}

func writeCard(t *testing.T, dir, id, body string) {
	t.Helper()
	testutil.WriteCard(t, dir, id, body)
}

func syncDeck(t *testing.T, srv *Server) {
	t.Helper()
	if err := index.Sync(srv.db, srv.store, slog.New(slog.DiscardHandler)); err != nil {
		t.Fatal(err)
	}
}

func callTool(t *testing.T, srv *Server, name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// mcp-go doesn't expose a direct "call tool" test helper, so we call
	// the handler functions directly.
	var result *mcp.CallToolResult
	var err error

	switch name {
	case "search_cards":
		result, err = srv.searchCards(ctx, req)
	case "read_card":
		result, err = srv.readCard(ctx, req)
	case "list_cards":
		result, err = srv.listCards(ctx, req)
	case "get_backlinks":
		result, err = srv.getBacklinks(ctx, req)
	case "deck_graph":
		result, err = srv.deckGraph(ctx, req)
	case "get_card_contract":
		result, err = srv.getCardContract(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestReadCard(t *testing.T) {
	srv, dir := testServer(t)
	writeCard(t, dir, "Welcome", `{"title":"Welcome","text":"Hello"}`)

	r := callTool(t, srv, "read_card", map[string]interface{}{"id": "Welcome"})
	text := resultText(r)
	if !strings.Contains(text, `"title": "Welcome"`) {
		t.Errorf("read result = %q", text)
	}
}

func TestReadCard_NormalizesInvalid(t *testing.T) {
	srv, dir := testServer(t)
	writeCard(t, dir, "Broken", `{not json`)

	r := callTool(t, srv, "read_card", map[string]interface{}{"id": "Broken"})
	text := resultText(r)
	if !strings.Contains(text, "Invalid Card") {
		t.Errorf("read result = %q, want Invalid Card placeholder", text)
	}
}

func TestReadCardMissing(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "read_card", map[string]interface{}{"id": "Nope"})
	if !r.IsError {
		t.Error("expected error for missing card")
	}
}

func TestListCards(t *testing.T) {
	srv, dir := testServer(t)
	writeCard(t, dir, "A", `{"title":"A"}`)
	writeCard(t, dir, "B", `{"title":"B"}`)

	r := callTool(t, srv, "list_cards", map[string]interface{}{})
	text := resultText(r)
	if text != "A\nB" {
		t.Errorf("list = %q, want %q", text, "A\nB")
	}
}

func TestGetBacklinks(t *testing.T) {
	srv, dir := testServer(t)
	writeCard(t, dir, "A", `{"text":"links to [[B]]"}`)
	writeCard(t, dir, "B", `{"text":"leaf"}`)
	syncDeck(t, srv)

	r := callTool(t, srv, "get_backlinks", map[string]interface{}{"id": "B"})
	if text := resultText(r); text != "A" {
		t.Errorf("backlinks = %q, want A", text)
	}

	r = callTool(t, srv, "get_backlinks", map[string]interface{}{"id": "A"})
	if text := resultText(r); text != "no backlinks found" {
		t.Errorf("backlinks = %q, want none", text)
	}
}

func TestDeckGraph(t *testing.T) {
	srv, dir := testServer(t)
	writeCard(t, dir, "A", `{"title":"Alpha","text":"see [[B]]"}`)
	writeCard(t, dir, "B", `{"title":"Beta"}`)
	syncDeck(t, srv)

	r := callTool(t, srv, "deck_graph", map[string]interface{}{})
	text := resultText(r)
	if !strings.Contains(text, `"source": "A"`) || !strings.Contains(text, `"target": "B"`) {
		t.Errorf("graph = %q, want A->B link", text)
	}
}

func TestCardContract(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "get_card_contract", map[string]interface{}{})
	if !strings.Contains(resultText(r), "Card Format Contract") {
		t.Error("contract text missing")
	}
}
