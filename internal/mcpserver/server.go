// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Raido tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/raido/internal/deck"
	"github.com/starford/raido/internal/index"
	"github.com/starford/raido/internal/storage"
)

// Server wraps the MCP server with Raido tools. The deck is read-only:
// tools navigate and inspect cards, they never author them.
type Server struct {
	mcp   *server.MCPServer
	store storage.Provider
	db    *index.DB
}

// New creates a new MCP server with all Raido tools registered.
func New(store storage.Provider, db *index.DB) *Server {
	s := &Server{store: store, db: db}

	s.mcp = server.NewMCPServer(
		"Raido",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("search_cards",
		mcp.WithDescription("Full-text search through card titles and text."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchCards)

	s.mcp.AddTool(mcp.NewTool("read_card",
		mcp.WithDescription("Read a card's normalized title and text. "+
			"Card documents follow the format described by the get_card_contract tool "+
			"or the raido://card-format resource."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Card id (filename stem, e.g. Welcome)")),
	), s.readCard)

	s.mcp.AddTool(mcp.NewTool("list_cards",
		mcp.WithDescription("List the ids of all cards in the deck."),
	), s.listCards)

	s.mcp.AddTool(mcp.NewTool("get_backlinks",
		mcp.WithDescription("Find all cards that link to the specified card."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Card id to find backlinks for")),
	), s.getBacklinks)

	s.mcp.AddTool(mcp.NewTool("deck_graph",
		mcp.WithDescription("Return the full card link graph as JSON nodes and links."),
	), s.deckGraph)

	s.mcp.AddTool(mcp.NewTool("get_card_contract",
		mcp.WithDescription("Returns the canonical Raido card format contract."),
	), s.getCardContract)

	// Resource: card format contract.
	s.mcp.AddResource(
		mcp.NewResource("raido://card-format", "Card Format Contract",
			mcp.WithResourceDescription("Canonical JSON card format served by the deck."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readCardFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) searchCards(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.db.Search(query, 20)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(results, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) readCard(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	data, err := s.store.Read(id + storage.CardExtension)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", id)), nil
	}
	card := deck.Normalize(data)
	out, _ := json.MarshalIndent(card, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) listCards(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	entries, err := s.store.List()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var ids []string
	for _, e := range entries {
		ids = append(ids, e.ID)
	}
	return mcp.NewToolResultText(strings.Join(ids, "\n")), nil
}

func (s *Server) getBacklinks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	bl, err := s.db.Backlinks(id)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(bl) == 0 {
		return mcp.NewToolResultText("no backlinks found"), nil
	}
	return mcp.NewToolResultText(strings.Join(bl, "\n")), nil
}

func (s *Server) deckGraph(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	nodes, links, err := s.db.Graph()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(map[string]any{
		"nodes": nodes,
		"links": links,
	}, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) getCardContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(CardFormatContract), nil
}

func (s *Server) readCardFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "raido://card-format",
			MIMEType: "text/markdown",
			Text:     CardFormatContract,
		},
	}, nil
}
