// Package sqlite provides a SQLite-backed implementation of the
// storage.SnapshotStore interface.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"github.com/mmynk/tripsync/internal/models"
	"github.com/mmynk/tripsync/internal/storage"
)

// Ensure SnapshotStore implements storage.SnapshotStore
var _ storage.SnapshotStore = (*SnapshotStore)(nil)

// SnapshotStore implements storage.SnapshotStore using SQLite. The entire
// snapshot is serialized to JSON and kept in a single row, so a save is
// one write and the last writer wins at the row level.
type SnapshotStore struct {
	db *sql.DB
}

// New creates a new SnapshotStore with the given database path. It creates
// the parent directories and runs migrations automatically.
func New(dbPath string) (*SnapshotStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &SnapshotStore{db: db}, nil
}

// Close closes the database connection.
func (s *SnapshotStore) Close() error {
	return s.db.Close()
}

// Load reads the persisted snapshot document.
func (s *SnapshotStore) Load(ctx context.Context) (*models.Snapshot, error) {
	var doc []byte
	err := s.db.QueryRowContext(ctx,
		"SELECT document FROM snapshot WHERE id = 1",
	).Scan(&doc)
	if err == sql.ErrNoRows {
		return nil, storage.ErrNoSnapshot
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}

	snap := models.NewSnapshot()
	if err := json.Unmarshal(doc, snap); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	snap.Normalize()
	return snap, nil
}

// Save serializes the snapshot and replaces the stored document.
func (s *SnapshotStore) Save(ctx context.Context, snap *models.Snapshot) error {
	doc, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO snapshot (id, document, saved_at) VALUES (1, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET document = excluded.document, saved_at = excluded.saved_at`,
		doc, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	return nil
}
