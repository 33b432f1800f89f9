package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/mmynk/tripsync/internal/models"
	"github.com/mmynk/tripsync/internal/storage"
)

func newTestStore(t *testing.T) *SnapshotStore {
	t.Helper()
	store, err := New(filepath.Join(t.TempDir(), "trips.db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestLoadEmpty(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Load(context.Background())
	if !errors.Is(err, storage.ErrNoSnapshot) {
		t.Errorf("expected ErrNoSnapshot, got %v", err)
	}
}

func TestSaveAndLoad(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	snap := models.NewSnapshot()
	trip := &models.Trip{ID: models.NewLocalID(), Name: "Kyoto", Destination: "Kyoto, Japan", Pending: true}
	snap.AddTrip(trip)
	snap.AddMember(trip.ID, &models.Member{ID: models.NewLocalID(), Name: "Alice", Email: "alice@example.com"})

	if err := store.Save(ctx, snap); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	loaded, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	v, ok := loaded.View(trip.ID)
	if !ok {
		t.Fatal("trip missing after reload")
	}
	if v.Name != "Kyoto" || !v.Pending || !v.ID.IsLocal() {
		t.Errorf("trip changed through persistence: %+v", v)
	}
	if len(v.Members) != 1 || v.Members[0].Email != "alice@example.com" {
		t.Errorf("members changed through persistence: %+v", v.Members)
	}
}

func TestSaveOverwrites(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first := models.NewSnapshot()
	first.AddTrip(&models.Trip{ID: models.RemoteID("1"), Name: "Old"})
	if err := store.Save(ctx, first); err != nil {
		t.Fatalf("first save failed: %v", err)
	}

	second := models.NewSnapshot()
	second.AddTrip(&models.Trip{ID: models.RemoteID("2"), Name: "New"})
	if err := store.Save(ctx, second); err != nil {
		t.Fatalf("second save failed: %v", err)
	}

	loaded, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if len(loaded.TripIDs) != 1 {
		t.Fatalf("expected 1 trip after overwrite, got %d", len(loaded.TripIDs))
	}
	if _, ok := loaded.Trip(models.RemoteID("2")); !ok {
		t.Error("latest snapshot not the one loaded")
	}
}

func TestReopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "dir", "trips.db")
	ctx := context.Background()

	store, err := New(dbPath)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	snap := models.NewSnapshot()
	snap.AddTrip(&models.Trip{ID: models.RemoteID("7"), Name: "Persisted"})
	if err := store.Save(ctx, snap); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	reopened, err := New(dbPath)
	if err != nil {
		t.Fatalf("failed to reopen store: %v", err)
	}
	defer reopened.Close()

	loaded, err := reopened.Load(ctx)
	if err != nil {
		t.Fatalf("load after reopen failed: %v", err)
	}
	if _, ok := loaded.Trip(models.RemoteID("7")); !ok {
		t.Error("snapshot lost across reopen")
	}
}
