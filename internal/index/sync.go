package index

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"time"

	"github.com/starford/raido/internal/deck"
	"github.com/starford/raido/internal/render"
	"github.com/starford/raido/internal/storage"
)

// Sync walks the deck and brings the index up to date:
//   - new/changed cards are normalized and upserted
//   - cards removed from disk are deleted from the index
func Sync(db *DB, store storage.Provider, logger *slog.Logger) error {
	entries, err := store.List()
	if err != nil {
		return err
	}

	checksums, err := db.AllChecksums()
	if err != nil {
		return err
	}

	disk := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		disk[e.ID] = struct{}{}

		if checksums[e.ID] == e.Checksum {
			continue
		}

		data, err := store.Read(e.Path)
		if err != nil {
			logger.Warn("sync: read failed", slog.String("card", e.ID), slog.String("error", err.Error()))
			continue
		}
		if err := indexCard(db, e.ID, data); err != nil {
			logger.Warn("sync: index failed", slog.String("card", e.ID), slog.String("error", err.Error()))
		} else {
			logger.Debug("sync: indexed", slog.String("card", e.ID))
		}
	}

	// Remove stale entries.
	for id := range checksums {
		if _, ok := disk[id]; !ok {
			if err := db.DeleteCard(id); err != nil {
				logger.Warn("sync: delete failed", slog.String("card", id), slog.String("error", err.Error()))
			} else {
				logger.Debug("sync: removed stale", slog.String("card", id))
			}
		}
	}

	return nil
}

// indexCard normalizes raw card JSON and upserts it into the DB.
func indexCard(db *DB, id string, data []byte) error {
	card := deck.Normalize(data)
	sum := sha256.Sum256(data)

	row := CardRow{
		ID:        id,
		Title:     card.Title,
		Checksum:  hex.EncodeToString(sum[:]),
		UpdatedAt: time.Now().UTC(),
	}
	return db.UpsertCard(row, card.Text, render.LinkTargets(card.Text))
}
