package sync

import (
	"testing"

	"github.com/mmynk/tripsync/internal/models"
	"github.com/mmynk/tripsync/internal/remote"
)

func TestReconcileTripIsIdempotent(t *testing.T) {
	s := models.NewSnapshot()
	localID := models.NewLocalID()
	s.AddTrip(&models.Trip{ID: localID, Name: "Lisbon", Pending: true})

	confirmed := &remote.Trip{
		ID: "42", Name: "Lisbon",
		Members: []remote.Member{{ID: "7", Email: "alice@example.com", Name: "Alice"}},
	}
	if !ReconcileTrip(s, localID, confirmed) {
		t.Fatal("first reconciliation returned false")
	}
	if ReconcileTrip(s, localID, confirmed) {
		t.Error("second reconciliation with the same local id should be a no-op")
	}

	if len(s.TripIDs) != 1 {
		t.Fatalf("expected 1 trip, got %d", len(s.TripIDs))
	}
	tr, ok := s.Trip(models.RemoteID("42"))
	if !ok {
		t.Fatal("server trip missing after reconciliation")
	}
	if tr.Pending {
		t.Error("reconciled trip still pending")
	}
	if len(tr.MemberIDs) != 1 || tr.MemberIDs[0] != models.RemoteID("7") {
		t.Errorf("member subtree not swapped: %v", tr.MemberIDs)
	}
}

func TestReconcileChildPreservesSiblings(t *testing.T) {
	s := models.NewSnapshot()
	tripID := models.RemoteID("1")
	s.AddTrip(&models.Trip{ID: tripID, Name: "Lisbon"})

	older := &models.Expense{ID: models.RemoteID("x1"), Description: "Hotel", Amount: 200}
	placeholder := &models.Expense{ID: models.NewLocalID(), Description: "Taxi", Amount: 20, Pending: true}
	newer := &models.Expense{ID: models.NewLocalID(), Description: "Dinner", Amount: 60, Pending: true}
	s.AddExpense(tripID, older)
	s.AddExpense(tripID, placeholder)
	s.AddExpense(tripID, newer)

	ok := ReconcileExpense(s, tripID, placeholder.ID, &remote.Expense{
		ID: "x9", Description: "Taxi", Amount: 20, PaidBy: "alice@example.com",
	})
	if !ok {
		t.Fatal("reconciliation returned false")
	}

	tr, _ := s.Trip(tripID)
	want := []models.EntityID{older.ID, models.RemoteID("x9"), newer.ID}
	for i, id := range want {
		if tr.ExpenseIDs[i] != id {
			t.Fatalf("expense order = %v, want %v", tr.ExpenseIDs, want)
		}
	}
	if _, ok := s.Expenses[placeholder.ID]; ok {
		t.Error("placeholder id still reachable")
	}
	if s.Expenses[newer.ID].Description != "Dinner" {
		t.Error("sibling placeholder was touched")
	}
}

func TestReconcileMemberMissingTripIsNoOp(t *testing.T) {
	s := models.NewSnapshot()
	if ReconcileMember(s, models.RemoteID("gone"), models.NewLocalID(), &remote.Member{ID: "7"}) {
		t.Error("reconciling into a removed trip should be a no-op")
	}
}

func TestUpsertTripAppendsThenReplaces(t *testing.T) {
	s := models.NewSnapshot()
	s.AddTrip(&models.Trip{ID: models.RemoteID("1"), Name: "Existing"})

	joined := &remote.Trip{
		ID: "2", Name: "Joined",
		Members: []remote.Member{{ID: "m1", Email: "bob@example.com", Name: "Bob"}},
	}
	id := UpsertTrip(s, joined)
	if id != models.RemoteID("2") {
		t.Errorf("upsert returned %v", id)
	}
	if len(s.TripIDs) != 2 || s.TripIDs[1] != id {
		t.Fatalf("trip not appended: %v", s.TripIDs)
	}

	// Re-joining returns the same trip with a second member; the record
	// must be replaced in place, not duplicated.
	joined.Members = append(joined.Members, remote.Member{ID: "m2", Email: "carol@example.com", Name: "Carol"})
	UpsertTrip(s, joined)

	if len(s.TripIDs) != 2 {
		t.Fatalf("re-join duplicated the trip: %v", s.TripIDs)
	}
	tr, _ := s.Trip(models.RemoteID("2"))
	if len(tr.MemberIDs) != 2 {
		t.Errorf("expected 2 members after re-join, got %v", tr.MemberIDs)
	}
}

func TestMemberIDFallsBackToEmail(t *testing.T) {
	s := models.NewSnapshot()
	localID := models.NewLocalID()
	s.AddTrip(&models.Trip{ID: localID, Name: "Lisbon"})

	ReconcileTrip(s, localID, &remote.Trip{
		ID:      "42",
		Members: []remote.Member{{Email: "alice@example.com", Name: "Alice"}},
	})

	m, ok := s.Members[models.RemoteID("alice@example.com")]
	if !ok {
		t.Fatal("member without a server id should be keyed by email")
	}
	if m.Name != "Alice" {
		t.Errorf("member name = %q", m.Name)
	}
}

func TestSnapshotFromTrips(t *testing.T) {
	trips := []remote.Trip{
		{ID: "1", Name: "A", Expenses: []remote.Expense{{ID: "x1", Amount: 10, PaidBy: "a@example.com"}}},
		{ID: "2", Name: "B"},
	}

	s := SnapshotFromTrips(trips)
	if len(s.TripIDs) != 2 {
		t.Fatalf("expected 2 trips, got %d", len(s.TripIDs))
	}
	if s.TripIDs[0] != models.RemoteID("1") || s.TripIDs[1] != models.RemoteID("2") {
		t.Errorf("server order not preserved: %v", s.TripIDs)
	}
	if _, ok := s.Expenses[models.RemoteID("x1")]; !ok {
		t.Error("nested expense not carried into the snapshot")
	}
}
