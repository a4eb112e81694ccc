// Package testutil provides shared test helpers for setting up decks and databases.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/raido/internal/index"
	"github.com/starford/raido/internal/storage"
)

// TestDB creates a temporary SQLite database that is automatically cleaned up.
func TestDB(t *testing.T) *index.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "raido-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := index.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestDeck creates a temporary deck directory with a storage.Provider.
func TestDeck(t *testing.T) (string, storage.Provider) {
	t.Helper()
	deckDir := t.TempDir()
	store, err := storage.NewFS(deckDir)
	if err != nil {
		t.Fatal(err)
	}
	return deckDir, store
}

// WriteCard writes a raw card document into the deck directory.
func WriteCard(t *testing.T, deckDir, id, body string) {
	t.Helper()
	path := filepath.Join(deckDir, id+storage.CardExtension)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
}
