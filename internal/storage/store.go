// Package storage provides abstractions for local snapshot persistence.
package storage

import (
	"context"
	"errors"

	"github.com/mmynk/tripsync/internal/models"
)

// ErrNoSnapshot is returned by Load when nothing has been persisted yet.
var ErrNoSnapshot = errors.New("no snapshot persisted")

// SnapshotStore persists the full entity graph as a single document. It is
// a durable cache with no business logic: every optimistic mutation writes
// the whole snapshot through it so local state survives a crash
// immediately after a mutating call returns.
//
// Implementations need not serialize concurrent writers; the trip store
// funnels all writes through one lock.
type SnapshotStore interface {
	// Load reads the last persisted snapshot. Returns ErrNoSnapshot if
	// the store is empty.
	Load(ctx context.Context) (*models.Snapshot, error)

	// Save persists the snapshot, replacing whatever was stored before.
	Save(ctx context.Context, snap *models.Snapshot) error

	// Close releases any resources held by the store.
	Close() error
}
