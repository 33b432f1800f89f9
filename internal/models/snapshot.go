package models

// Snapshot is the full entity graph: flat per-kind arenas keyed by id,
// with ordered id lists giving trip order and per-trip child order. It is
// the single unit of local persistence.
type Snapshot struct {
	TripIDs  []EntityID           `json:"trip_ids"`
	Trips    map[EntityID]*Trip   `json:"trips"`
	Members  map[EntityID]*Member `json:"members"`
	Events   map[EntityID]*Event  `json:"events"`
	Expenses map[EntityID]*Expense `json:"expenses"`
}

// NewSnapshot returns an empty snapshot with initialized arenas.
func NewSnapshot() *Snapshot {
	return &Snapshot{
		Trips:    make(map[EntityID]*Trip),
		Members:  make(map[EntityID]*Member),
		Events:   make(map[EntityID]*Event),
		Expenses: make(map[EntityID]*Expense),
	}
}

// normalize re-creates nil arenas. JSON decoding of an old document may
// leave maps nil.
func (s *Snapshot) normalize() {
	if s.Trips == nil {
		s.Trips = make(map[EntityID]*Trip)
	}
	if s.Members == nil {
		s.Members = make(map[EntityID]*Member)
	}
	if s.Events == nil {
		s.Events = make(map[EntityID]*Event)
	}
	if s.Expenses == nil {
		s.Expenses = make(map[EntityID]*Expense)
	}
}

// Normalize prepares a freshly decoded snapshot for use.
func (s *Snapshot) Normalize() { s.normalize() }

// Trip returns the trip with the given id.
func (s *Snapshot) Trip(id EntityID) (*Trip, bool) {
	t, ok := s.Trips[id]
	return t, ok
}

// AddTrip appends a trip to the snapshot. Child id lists on the trip must
// reference entities already present in (or added next to) the arenas.
func (s *Snapshot) AddTrip(t *Trip) {
	s.Trips[t.ID] = t
	s.TripIDs = append(s.TripIDs, t.ID)
}

// AddMember appends a member to a trip. Returns false if the trip is not
// present.
func (s *Snapshot) AddMember(tripID EntityID, m *Member) bool {
	t, ok := s.Trips[tripID]
	if !ok {
		return false
	}
	s.Members[m.ID] = m
	t.MemberIDs = append(t.MemberIDs, m.ID)
	return true
}

// AddEvent appends an event to a trip.
func (s *Snapshot) AddEvent(tripID EntityID, e *Event) bool {
	t, ok := s.Trips[tripID]
	if !ok {
		return false
	}
	s.Events[e.ID] = e
	t.EventIDs = append(t.EventIDs, e.ID)
	return true
}

// AddExpense appends an expense to a trip.
func (s *Snapshot) AddExpense(tripID EntityID, x *Expense) bool {
	t, ok := s.Trips[tripID]
	if !ok {
		return false
	}
	s.Expenses[x.ID] = x
	t.ExpenseIDs = append(t.ExpenseIDs, x.ID)
	return true
}

// RemoveTrip deletes a trip and all of its children from the arenas.
// Returns false if the trip is not present.
func (s *Snapshot) RemoveTrip(id EntityID) bool {
	t, ok := s.Trips[id]
	if !ok {
		return false
	}
	s.removeChildren(t)
	delete(s.Trips, id)
	s.TripIDs = removeID(s.TripIDs, id)
	return true
}

func (s *Snapshot) removeChildren(t *Trip) {
	for _, id := range t.MemberIDs {
		delete(s.Members, id)
	}
	for _, id := range t.EventIDs {
		delete(s.Events, id)
	}
	for _, id := range t.ExpenseIDs {
		delete(s.Expenses, id)
	}
}

// ReplaceTrip swaps the trip keyed by oldID, and its entire subtree, for
// the given server-confirmed trip, preserving the trip's position in the
// snapshot order. The caller supplies the new children; their ids must
// already be listed on the new trip. Matching is by identity only: if no
// trip holds oldID the call is a no-op and returns false.
func (s *Snapshot) ReplaceTrip(oldID EntityID, t *Trip, members []*Member, events []*Event, expenses []*Expense) bool {
	old, ok := s.Trips[oldID]
	if !ok {
		return false
	}
	s.removeChildren(old)
	delete(s.Trips, oldID)

	s.Trips[t.ID] = t
	for _, m := range members {
		s.Members[m.ID] = m
	}
	for _, e := range events {
		s.Events[e.ID] = e
	}
	for _, x := range expenses {
		s.Expenses[x.ID] = x
	}
	replaceID(s.TripIDs, oldID, t.ID)
	return true
}

// ReplaceMember swaps the member keyed by oldID within the addressed trip
// for its server-confirmed counterpart, preserving list position. No-op
// (false) when the trip or the member id is gone.
func (s *Snapshot) ReplaceMember(tripID, oldID EntityID, m *Member) bool {
	t, ok := s.Trips[tripID]
	if !ok {
		return false
	}
	if _, ok := s.Members[oldID]; !ok || !containsID(t.MemberIDs, oldID) {
		return false
	}
	delete(s.Members, oldID)
	s.Members[m.ID] = m
	replaceID(t.MemberIDs, oldID, m.ID)
	return true
}

// ReplaceEvent swaps the event keyed by oldID within the addressed trip.
func (s *Snapshot) ReplaceEvent(tripID, oldID EntityID, e *Event) bool {
	t, ok := s.Trips[tripID]
	if !ok {
		return false
	}
	if _, ok := s.Events[oldID]; !ok || !containsID(t.EventIDs, oldID) {
		return false
	}
	delete(s.Events, oldID)
	s.Events[e.ID] = e
	replaceID(t.EventIDs, oldID, e.ID)
	return true
}

// ReplaceExpense swaps the expense keyed by oldID within the addressed trip.
func (s *Snapshot) ReplaceExpense(tripID, oldID EntityID, x *Expense) bool {
	t, ok := s.Trips[tripID]
	if !ok {
		return false
	}
	if _, ok := s.Expenses[oldID]; !ok || !containsID(t.ExpenseIDs, oldID) {
		return false
	}
	delete(s.Expenses, oldID)
	s.Expenses[x.ID] = x
	replaceID(t.ExpenseIDs, oldID, x.ID)
	return true
}

// SetPending flips the pending flag on whichever entity holds the id.
// Returns false if no entity does.
func (s *Snapshot) SetPending(id EntityID, pending bool) bool {
	if t, ok := s.Trips[id]; ok {
		t.Pending = pending
		return true
	}
	if m, ok := s.Members[id]; ok {
		m.Pending = pending
		return true
	}
	if e, ok := s.Events[id]; ok {
		e.Pending = pending
		return true
	}
	if x, ok := s.Expenses[id]; ok {
		x.Pending = pending
		return true
	}
	return false
}

// TripView is a materialized, value-copied view of one trip for callers
// and the ledger. Mutating a view never touches the snapshot.
type TripView struct {
	ID          EntityID
	Name        string
	Destination string
	StartDate   string
	EndDate     string
	CreatedBy   string
	Pending     bool

	Members  []Member
	Events   []Event
	Expenses []Expense
}

// View materializes the trip with the given id.
func (s *Snapshot) View(id EntityID) (TripView, bool) {
	t, ok := s.Trips[id]
	if !ok {
		return TripView{}, false
	}
	v := TripView{
		ID:          t.ID,
		Name:        t.Name,
		Destination: t.Destination,
		StartDate:   t.StartDate,
		EndDate:     t.EndDate,
		CreatedBy:   t.CreatedBy,
		Pending:     t.Pending,
	}
	for _, id := range t.MemberIDs {
		if m, ok := s.Members[id]; ok {
			v.Members = append(v.Members, *m)
		}
	}
	for _, id := range t.EventIDs {
		if e, ok := s.Events[id]; ok {
			v.Events = append(v.Events, *e)
		}
	}
	for _, id := range t.ExpenseIDs {
		if x, ok := s.Expenses[id]; ok {
			cp := *x
			cp.Splits = append([]Split(nil), x.Splits...)
			cp.SplitWith = append([]string(nil), x.SplitWith...)
			v.Expenses = append(v.Expenses, cp)
		}
	}
	return v, true
}

// Views materializes every trip in snapshot order.
func (s *Snapshot) Views() []TripView {
	views := make([]TripView, 0, len(s.TripIDs))
	for _, id := range s.TripIDs {
		if v, ok := s.View(id); ok {
			views = append(views, v)
		}
	}
	return views
}

func containsID(ids []EntityID, id EntityID) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func replaceID(ids []EntityID, old, new EntityID) {
	for i, v := range ids {
		if v == old {
			ids[i] = new
			return
		}
	}
}

func removeID(ids []EntityID, id EntityID) []EntityID {
	for i, v := range ids {
		if v == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}
