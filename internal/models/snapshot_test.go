package models

import (
	"encoding/json"
	"testing"
)

func buildSnapshot(t *testing.T) (*Snapshot, *Trip) {
	t.Helper()
	s := NewSnapshot()
	trip := &Trip{ID: NewLocalID(), Name: "Lisbon", Destination: "Lisbon, Portugal"}
	s.AddTrip(trip)
	return s, trip
}

func TestSnapshotAddAndView(t *testing.T) {
	s, trip := buildSnapshot(t)

	if !s.AddMember(trip.ID, &Member{ID: NewLocalID(), Name: "Alice", Email: "alice@example.com"}) {
		t.Fatal("AddMember returned false for existing trip")
	}
	if !s.AddEvent(trip.ID, &Event{ID: NewLocalID(), Title: "Flight", StartTime: "2026-09-10T08:00:00Z"}) {
		t.Fatal("AddEvent returned false for existing trip")
	}
	if !s.AddExpense(trip.ID, &Expense{ID: NewLocalID(), Description: "Taxi", Amount: 20, PaidBy: "alice@example.com"}) {
		t.Fatal("AddExpense returned false for existing trip")
	}
	if s.AddMember(RemoteID("nope"), &Member{ID: NewLocalID()}) {
		t.Error("AddMember returned true for missing trip")
	}

	v, ok := s.View(trip.ID)
	if !ok {
		t.Fatal("View failed for existing trip")
	}
	if len(v.Members) != 1 || len(v.Events) != 1 || len(v.Expenses) != 1 {
		t.Errorf("view has %d/%d/%d children, want 1/1/1", len(v.Members), len(v.Events), len(v.Expenses))
	}

	// Views are value copies; mutating one must not touch the snapshot.
	v.Members[0].Name = "Mallory"
	v2, _ := s.View(trip.ID)
	if v2.Members[0].Name != "Alice" {
		t.Error("mutating a view leaked into the snapshot")
	}
}

func TestSnapshotReplaceTripPreservesOrder(t *testing.T) {
	s := NewSnapshot()
	first := &Trip{ID: NewLocalID(), Name: "First"}
	second := &Trip{ID: NewLocalID(), Name: "Second"}
	third := &Trip{ID: NewLocalID(), Name: "Third"}
	s.AddTrip(first)
	s.AddTrip(second)
	s.AddTrip(third)

	confirmed := &Trip{ID: RemoteID("srv-2"), Name: "Second"}
	if !s.ReplaceTrip(second.ID, confirmed, nil, nil, nil) {
		t.Fatal("ReplaceTrip returned false")
	}

	if len(s.TripIDs) != 3 {
		t.Fatalf("expected 3 trips after replace, got %d", len(s.TripIDs))
	}
	if s.TripIDs[1] != confirmed.ID {
		t.Errorf("replaced trip lost its position: order = %v", s.TripIDs)
	}
	if _, ok := s.Trips[second.ID]; ok {
		t.Error("old synthetic id still reachable after replace")
	}
	if s.ReplaceTrip(second.ID, confirmed, nil, nil, nil) {
		t.Error("second replace with the same old id should be a no-op")
	}
}

func TestSnapshotReplaceMemberByIdentityOnly(t *testing.T) {
	s, trip := buildSnapshot(t)

	// Two optimistic members with identical content must stay distinct:
	// replacement matches on id, never on field equality.
	twinA := &Member{ID: NewLocalID(), Name: "Twin", Email: ""}
	twinB := &Member{ID: NewLocalID(), Name: "Twin", Email: ""}
	s.AddMember(trip.ID, twinA)
	s.AddMember(trip.ID, twinB)

	confirmed := &Member{ID: RemoteID("srv-m1"), Name: "Twin"}
	if !s.ReplaceMember(trip.ID, twinB.ID, confirmed) {
		t.Fatal("ReplaceMember returned false")
	}

	tr, _ := s.Trip(trip.ID)
	if tr.MemberIDs[0] != twinA.ID {
		t.Errorf("untouched sibling moved: %v", tr.MemberIDs)
	}
	if tr.MemberIDs[1] != confirmed.ID {
		t.Errorf("replaced member lost its position: %v", tr.MemberIDs)
	}
	if _, ok := s.Members[twinB.ID]; ok {
		t.Error("old synthetic id still reachable after replace")
	}
}

func TestSnapshotRemoveTripCascades(t *testing.T) {
	s, trip := buildSnapshot(t)
	m := &Member{ID: NewLocalID(), Name: "Alice"}
	e := &Event{ID: NewLocalID(), Title: "Dinner", StartTime: "2026-09-11T19:00:00Z"}
	x := &Expense{ID: NewLocalID(), Description: "Dinner", Amount: 60}
	s.AddMember(trip.ID, m)
	s.AddEvent(trip.ID, e)
	s.AddExpense(trip.ID, x)

	if !s.RemoveTrip(trip.ID) {
		t.Fatal("RemoveTrip returned false")
	}
	if len(s.TripIDs) != 0 || len(s.Trips) != 0 {
		t.Error("trip still present after remove")
	}
	if len(s.Members) != 0 || len(s.Events) != 0 || len(s.Expenses) != 0 {
		t.Error("children survived a cascading delete")
	}
	if s.RemoveTrip(trip.ID) {
		t.Error("removing a removed trip should return false")
	}
}

func TestSnapshotJSONRoundTrip(t *testing.T) {
	s, trip := buildSnapshot(t)
	s.AddMember(trip.ID, &Member{ID: NewLocalID(), Name: "Alice", Email: "alice@example.com", Pending: true})
	s.AddExpense(trip.ID, &Expense{
		ID: NewLocalID(), Description: "Taxi", Amount: 21.5, PaidBy: "alice@example.com",
		SplitWith: []string{"alice@example.com", "bob@example.com"},
	})

	encoded, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	decoded := NewSnapshot()
	if err := json.Unmarshal(encoded, decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	decoded.Normalize()

	v1, ok1 := s.View(trip.ID)
	v2, ok2 := decoded.View(trip.ID)
	if !ok1 || !ok2 {
		t.Fatal("trip lost through JSON round trip")
	}
	if v1.Name != v2.Name || len(v1.Members) != len(v2.Members) || len(v1.Expenses) != len(v2.Expenses) {
		t.Errorf("views differ after round trip: %+v vs %+v", v1, v2)
	}
	if !v2.Members[0].Pending {
		t.Error("pending flag lost through round trip")
	}
	if !v2.ID.IsLocal() {
		t.Error("local id tag lost through round trip")
	}
}
