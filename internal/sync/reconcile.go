package sync

import (
	"github.com/mmynk/tripsync/internal/models"
	"github.com/mmynk/tripsync/internal/remote"
)

// Reconciliation replaces a placeholder entity with its server-confirmed
// counterpart, exactly once, in place. Matching is by identity only —
// never by content — so two optimistic entities with equal fields can
// never be merged. A missing local id (already reconciled, or the trip
// removed concurrently) makes the call a no-op, which makes
// reconciliation idempotent by construction.

// ReconcileTrip swaps the locally created trip (and its placeholder
// subtree) for the server-confirmed trip.
func ReconcileTrip(s *models.Snapshot, localID models.EntityID, rt *remote.Trip) bool {
	t, members, events, expenses := tripEntities(rt)
	return s.ReplaceTrip(localID, t, members, events, expenses)
}

// ReconcileMember swaps a placeholder member within its trip.
func ReconcileMember(s *models.Snapshot, tripID, localID models.EntityID, rm *remote.Member) bool {
	return s.ReplaceMember(tripID, localID, memberEntity(rm))
}

// ReconcileEvent swaps a placeholder event within its trip.
func ReconcileEvent(s *models.Snapshot, tripID, localID models.EntityID, re *remote.Event) bool {
	return s.ReplaceEvent(tripID, localID, eventEntity(re))
}

// ReconcileExpense swaps a placeholder expense within its trip.
func ReconcileExpense(s *models.Snapshot, tripID, localID models.EntityID, rx *remote.Expense) bool {
	return s.ReplaceExpense(tripID, localID, expenseEntity(rx))
}

// UpsertTrip merges a full server trip into the snapshot keyed by its
// server id: replacing the existing record in place when present,
// appending otherwise. Used by join-by-code, where re-joining must not
// duplicate the trip.
func UpsertTrip(s *models.Snapshot, rt *remote.Trip) models.EntityID {
	t, members, events, expenses := tripEntities(rt)
	if s.ReplaceTrip(t.ID, t, members, events, expenses) {
		return t.ID
	}
	s.AddTrip(t)
	for _, m := range members {
		s.Members[m.ID] = m
	}
	for _, e := range events {
		s.Events[e.ID] = e
	}
	for _, x := range expenses {
		s.Expenses[x.ID] = x
	}
	return t.ID
}

// SnapshotFromTrips builds a fresh snapshot from a full server listing.
func SnapshotFromTrips(trips []remote.Trip) *models.Snapshot {
	s := models.NewSnapshot()
	for i := range trips {
		UpsertTrip(s, &trips[i])
	}
	return s
}

func tripEntities(rt *remote.Trip) (*models.Trip, []*models.Member, []*models.Event, []*models.Expense) {
	t := &models.Trip{
		ID:          models.RemoteID(rt.ID),
		Name:        rt.Name,
		Destination: rt.Destination,
		StartDate:   rt.StartDate,
		EndDate:     rt.EndDate,
		CreatedBy:   rt.CreatedBy,
	}

	members := make([]*models.Member, 0, len(rt.Members))
	for i := range rt.Members {
		m := memberEntity(&rt.Members[i])
		members = append(members, m)
		t.MemberIDs = append(t.MemberIDs, m.ID)
	}
	events := make([]*models.Event, 0, len(rt.Events))
	for i := range rt.Events {
		e := eventEntity(&rt.Events[i])
		events = append(events, e)
		t.EventIDs = append(t.EventIDs, e.ID)
	}
	expenses := make([]*models.Expense, 0, len(rt.Expenses))
	for i := range rt.Expenses {
		x := expenseEntity(&rt.Expenses[i])
		expenses = append(expenses, x)
		t.ExpenseIDs = append(t.ExpenseIDs, x.ID)
	}
	return t, members, events, expenses
}

func memberEntity(rm *remote.Member) *models.Member {
	// Some backends key membership rows by email alone.
	id := rm.ID
	if id == "" {
		id = rm.Email
	}
	return &models.Member{
		ID:    models.RemoteID(id),
		Name:  rm.Name,
		Email: rm.Email,
	}
}

func eventEntity(re *remote.Event) *models.Event {
	return &models.Event{
		ID:          models.RemoteID(re.ID),
		Title:       re.Title,
		Description: re.Description,
		Location:    re.Location,
		StartTime:   re.StartTime,
		EndTime:     re.EndTime,
		CreatedBy:   re.CreatedBy,
	}
}

func expenseEntity(rx *remote.Expense) *models.Expense {
	x := &models.Expense{
		ID:          models.RemoteID(rx.ID),
		Description: rx.Description,
		Amount:      rx.Amount,
		PaidBy:      rx.PaidBy,
		CreatedBy:   rx.CreatedBy,
	}
	for _, s := range rx.Splits {
		x.Splits = append(x.Splits, models.Split{MemberKey: s.MemberEmail, Amount: s.Amount})
	}
	return x
}
