// Package trip provides the composition root: the single owner of the
// current trip snapshot, wiring the sync engine, local snapshot storage,
// the backend client and the ledger together behind mutation operations.
package trip

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	stdsync "sync"
	"time"

	"github.com/mmynk/tripsync/internal/ledger"
	"github.com/mmynk/tripsync/internal/metrics"
	"github.com/mmynk/tripsync/internal/models"
	"github.com/mmynk/tripsync/internal/remote"
	"github.com/mmynk/tripsync/internal/session"
	"github.com/mmynk/tripsync/internal/storage"
	"github.com/mmynk/tripsync/internal/sync"
)

// ErrStaleData is returned by Refresh when the backend listing failed and
// the store kept whatever snapshot was already loaded. It is non-fatal:
// reads keep working against cached data.
var ErrStaleData = errors.New("backend unavailable, using cached data")

// ErrTripNotFound is returned for operations addressing a trip that is
// not in the snapshot.
var ErrTripNotFound = errors.New("trip not found")

// persistTimeout bounds each local snapshot write.
const persistTimeout = 5 * time.Second

// Config holds the dependencies for NewStore.
type Config struct {
	Local  storage.SnapshotStore
	Remote remote.Client
	Logger *slog.Logger // optional, defaults to slog.Default()

	// MaxAttempts and RetryDelay tune the background persistence chains;
	// zero values take the engine defaults (3 attempts, 4s delay).
	MaxAttempts int
	RetryDelay  time.Duration
}

// Store owns the in-memory snapshot. All snapshot mutation — foreground
// optimistic effects and background reconciliation alike — funnels
// through one mutex, and every mutation persists the snapshot before
// releasing it, so local writes are serialized and the caller-visible
// state is read-after-write consistent.
type Store struct {
	local   storage.SnapshotStore
	remote  remote.Client
	logger  *slog.Logger
	engine  *sync.Engine
	notices chan sync.Notice

	mu     stdsync.Mutex
	snap   *models.Snapshot
	loaded bool
}

// NewStore creates a store. Call Refresh to populate it from the local
// cache and, when authenticated, the backend.
func NewStore(cfg Config) *Store {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	s := &Store{
		local:   cfg.Local,
		remote:  cfg.Remote,
		logger:  cfg.Logger,
		notices: make(chan sync.Notice, 16),
		snap:    models.NewSnapshot(),
	}
	s.engine = sync.NewEngine(sync.Config{
		Applier:     s,
		Notify:      s.pushNotice,
		Logger:      cfg.Logger,
		MaxAttempts: cfg.MaxAttempts,
		RetryDelay:  cfg.RetryDelay,
	})
	return s
}

// Wait blocks until all scheduled background persists have completed or
// exhausted their retries. Useful for short-lived callers and tests.
func (s *Store) Wait() {
	s.engine.Wait()
}

// Close stops outstanding background chains and releases local storage.
func (s *Store) Close() error {
	s.engine.Close()
	return s.local.Close()
}

// Notices delivers user-visible failure reports for update and delete
// mutations. The channel is buffered; reports are dropped, not blocked
// on, when nobody listens.
func (s *Store) Notices() <-chan sync.Notice { return s.notices }

// Apply runs a snapshot mutation under the write lock and persists the
// result. It implements sync.Applier for the engine's background merges.
func (s *Store) Apply(mutate func(*models.Snapshot)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	mutate(s.snap)
	s.persistLocked()
}

// persistLocked writes the snapshot through the local store. Must be
// called with the mutex held; this is what serializes snapshot writes.
func (s *Store) persistLocked() {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := s.local.Save(ctx, s.snap); err != nil {
		metrics.SnapshotSaveErrors.Inc()
		s.logger.Error("failed to persist snapshot", "error", err)
		return
	}
	metrics.SnapshotSaves.Inc()
}

func (s *Store) pushNotice(n sync.Notice) {
	select {
	case s.notices <- n:
	default:
		s.logger.Debug("dropping notice, no listener", "op", n.Op, "kind", n.Kind)
	}
}

// Refresh loads the cached snapshot (so reads have immediate data), then,
// when authenticated, re-fetches the full listing from the backend. On
// success the snapshot and cache are replaced wholesale; on failure the
// loaded snapshot is kept and ErrStaleData is returned.
func (s *Store) Refresh(ctx context.Context, id session.Identity) error {
	s.mu.Lock()
	if !s.loaded {
		cached, err := s.local.Load(ctx)
		switch {
		case err == nil:
			s.snap = cached
		case errors.Is(err, storage.ErrNoSnapshot):
			// First run, nothing cached yet.
		default:
			s.logger.Warn("failed to load cached snapshot", "error", err)
		}
		s.loaded = true
	}
	s.mu.Unlock()

	if !id.Authenticated() {
		return nil
	}

	trips, err := s.remote.ListTrips(ctx, id.Email)
	if err != nil {
		s.logger.Warn("refresh failed, keeping cached snapshot", "error", err)
		return fmt.Errorf("%w: %v", ErrStaleData, err)
	}

	s.mu.Lock()
	s.snap = sync.SnapshotFromTrips(trips)
	s.persistLocked()
	s.mu.Unlock()
	return nil
}

// Trips returns materialized views of every trip in snapshot order.
func (s *Store) Trips() []models.TripView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap.Views()
}

// Trip returns a materialized view of one trip.
func (s *Store) Trip(id models.EntityID) (models.TripView, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap.View(id)
}

// Balances derives the settlement ledger for one trip from the current
// snapshot. Pure read; nothing asynchronous.
func (s *Store) Balances(id models.EntityID) ([]ledger.MemberBalance, error) {
	v, ok := s.Trip(id)
	if !ok {
		return nil, ErrTripNotFound
	}
	members := make([]ledger.Participant, len(v.Members))
	for i, m := range v.Members {
		members[i] = ledger.Participant{Key: m.Key(), Name: m.Name}
	}
	charges := make([]ledger.Charge, len(v.Expenses))
	for i, x := range v.Expenses {
		c := ledger.Charge{Amount: x.Amount, PaidBy: x.PaidBy, SplitWith: x.SplitWith}
		for _, sp := range x.Splits {
			c.Splits = append(c.Splits, ledger.Share{MemberKey: sp.MemberKey, Amount: sp.Amount})
		}
		charges[i] = c
	}
	return ledger.Balances(members, charges), nil
}

// Settlements reduces a trip's balances to suggested transfers.
func (s *Store) Settlements(id models.EntityID) ([]ledger.DebtEdge, error) {
	balances, err := s.Balances(id)
	if err != nil {
		return nil, err
	}
	return ledger.Settlements(balances), nil
}

// TripInput carries the fields for creating a trip.
type TripInput struct {
	Name        string
	Destination string
	StartDate   string
	EndDate     string
}

func (in TripInput) validate() error {
	switch {
	case in.Name == "":
		return fmt.Errorf("%w: trip name is required", remote.ErrValidation)
	case in.Destination == "":
		return fmt.Errorf("%w: destination is required", remote.ErrValidation)
	case in.StartDate == "" || in.EndDate == "":
		return fmt.Errorf("%w: start and end date are required", remote.ErrValidation)
	}
	return nil
}

// CreateTrip synthesizes a local trip, persists it before returning, and
// schedules the backend create when the user is authenticated. The
// returned view reflects the optimistic state; the caller never waits on
// the network.
func (s *Store) CreateTrip(id session.Identity, in TripInput) (models.TripView, error) {
	if err := in.validate(); err != nil {
		return models.TripView{}, err
	}

	authed := id.Authenticated()
	t := &models.Trip{
		ID:          models.NewLocalID(),
		Name:        in.Name,
		Destination: in.Destination,
		StartDate:   in.StartDate,
		EndDate:     in.EndDate,
		Pending:     authed,
	}
	var creator *models.Member
	if authed {
		t.CreatedBy = id.Email
		creator = &models.Member{
			ID:      models.NewLocalID(),
			Name:    id.DisplayName(),
			Email:   id.Email,
			Pending: true,
		}
	}

	s.mu.Lock()
	s.snap.AddTrip(t)
	if creator != nil {
		s.snap.AddMember(t.ID, creator)
	}
	view, _ := s.snap.View(t.ID)
	s.persistLocked()
	s.mu.Unlock()

	if !authed {
		return view, nil
	}

	localID := t.ID
	s.engine.Go(sync.Task{
		Op:      "create",
		Kind:    "trip",
		LocalID: localID,
		Call: func(ctx context.Context) (sync.Apply, error) {
			created, err := s.remote.CreateTrip(ctx, remote.NewTrip{
				Name:        in.Name,
				Destination: in.Destination,
				StartDate:   in.StartDate,
				EndDate:     in.EndDate,
				CreatedBy:   id.Email,
				Members:     []remote.NewMember{{Email: id.Email, Name: id.DisplayName()}},
			})
			if err != nil {
				return nil, err
			}
			return func(snap *models.Snapshot) {
				sync.ReconcileTrip(snap, localID, created)
			}, nil
		},
		OnExhausted: markPermanentLocal(localID),
	})
	return view, nil
}

// MemberInput carries the fields for adding a member.
type MemberInput struct {
	Name  string
	Email string
}

// AddMember adds a member to a trip. Adding an email the trip already has
// is resolved by the backend idempotently (the existing row comes back).
func (s *Store) AddMember(id session.Identity, tripID models.EntityID, in MemberInput) (models.Member, error) {
	if in.Name == "" || in.Email == "" {
		return models.Member{}, fmt.Errorf("%w: member name and email are required", remote.ErrValidation)
	}

	authed := id.Authenticated()
	m := &models.Member{
		ID:      models.NewLocalID(),
		Name:    in.Name,
		Email:   in.Email,
		Pending: authed,
	}

	s.mu.Lock()
	if !s.snap.AddMember(tripID, m) {
		s.mu.Unlock()
		return models.Member{}, ErrTripNotFound
	}
	added := *m
	s.persistLocked()
	s.mu.Unlock()

	if !authed {
		return added, nil
	}

	localID := m.ID
	s.engine.Go(sync.Task{
		Op:      "create",
		Kind:    "member",
		LocalID: localID,
		TripID:  tripID,
		Call: func(ctx context.Context) (sync.Apply, error) {
			row, err := s.remote.AddMember(ctx, tripID.String(), remote.NewMember{
				Email: in.Email,
				Name:  in.Name,
			})
			if err != nil {
				return nil, err
			}
			return func(snap *models.Snapshot) {
				sync.ReconcileMember(snap, tripID, localID, row)
			}, nil
		},
		OnExhausted: markPermanentLocal(localID),
	})
	return added, nil
}

// EventInput carries the fields for adding an itinerary event.
type EventInput struct {
	Title       string
	Description string
	Location    string
	StartTime   string
	EndTime     string
}

// AddEvent adds an itinerary event to a trip.
func (s *Store) AddEvent(id session.Identity, tripID models.EntityID, in EventInput) (models.Event, error) {
	if in.Title == "" || in.StartTime == "" {
		return models.Event{}, fmt.Errorf("%w: event title and start time are required", remote.ErrValidation)
	}

	authed := id.Authenticated()
	e := &models.Event{
		ID:          models.NewLocalID(),
		Title:       in.Title,
		Description: in.Description,
		Location:    in.Location,
		StartTime:   in.StartTime,
		EndTime:     in.EndTime,
		CreatedBy:   id.Email,
		Pending:     authed,
	}

	s.mu.Lock()
	if !s.snap.AddEvent(tripID, e) {
		s.mu.Unlock()
		return models.Event{}, ErrTripNotFound
	}
	added := *e
	s.persistLocked()
	s.mu.Unlock()

	if !authed {
		return added, nil
	}

	localID := e.ID
	s.engine.Go(sync.Task{
		Op:      "create",
		Kind:    "event",
		LocalID: localID,
		TripID:  tripID,
		Call: func(ctx context.Context) (sync.Apply, error) {
			created, err := s.remote.CreateEvent(ctx, tripID.String(), remote.NewEvent{
				Title:       in.Title,
				Description: in.Description,
				Location:    in.Location,
				StartTime:   in.StartTime,
				EndTime:     in.EndTime,
				CreatedBy:   id.Email,
			})
			if err != nil {
				return nil, err
			}
			return func(snap *models.Snapshot) {
				sync.ReconcileEvent(snap, tripID, localID, created)
			}, nil
		},
		OnExhausted: markPermanentLocal(localID),
	})
	return added, nil
}

// ExpenseInput carries the fields for adding a shared expense. Provide
// either explicit Splits or SplitWith member keys for equal division;
// leaving both empty divides equally over all trip members.
type ExpenseInput struct {
	Description string
	Amount      float64
	PaidBy      string
	Splits      []models.Split
	SplitWith   []string
}

func (in ExpenseInput) validate() error {
	switch {
	case in.Description == "":
		return fmt.Errorf("%w: expense description is required", remote.ErrValidation)
	case in.Amount <= 0:
		return fmt.Errorf("%w: expense amount must be positive", remote.ErrValidation)
	case in.PaidBy == "":
		return fmt.Errorf("%w: payer is required", remote.ErrValidation)
	}
	return nil
}

// AddExpense adds a shared expense to a trip.
func (s *Store) AddExpense(id session.Identity, tripID models.EntityID, in ExpenseInput) (models.Expense, error) {
	if err := in.validate(); err != nil {
		return models.Expense{}, err
	}

	authed := id.Authenticated()
	x := &models.Expense{
		ID:          models.NewLocalID(),
		Description: in.Description,
		Amount:      in.Amount,
		PaidBy:      in.PaidBy,
		Splits:      append([]models.Split(nil), in.Splits...),
		SplitWith:   append([]string(nil), in.SplitWith...),
		CreatedBy:   id.Email,
		Pending:     authed,
	}

	s.mu.Lock()
	if !s.snap.AddExpense(tripID, x) {
		s.mu.Unlock()
		return models.Expense{}, ErrTripNotFound
	}
	added := *x
	s.persistLocked()
	s.mu.Unlock()

	if !authed {
		return added, nil
	}

	localID := x.ID
	s.engine.Go(sync.Task{
		Op:      "create",
		Kind:    "expense",
		LocalID: localID,
		TripID:  tripID,
		Call: func(ctx context.Context) (sync.Apply, error) {
			req := remote.NewExpense{
				Description: in.Description,
				Amount:      in.Amount,
				PaidBy:      in.PaidBy,
				SplitWith:   in.SplitWith,
				CreatedBy:   id.Email,
			}
			for _, sp := range in.Splits {
				req.Splits = append(req.Splits, remote.NewSplit{Email: sp.MemberKey, Amount: sp.Amount})
			}
			created, err := s.remote.CreateExpense(ctx, tripID.String(), req)
			if err != nil {
				return nil, err
			}
			return func(snap *models.Snapshot) {
				sync.ReconcileExpense(snap, tripID, localID, created)
			}, nil
		},
		OnExhausted: markPermanentLocal(localID),
	})
	return added, nil
}

// TripPatch carries partial trip updates; nil fields are left unchanged.
type TripPatch struct {
	Name        *string
	Destination *string
	StartDate   *string
	EndDate     *string
}

// UpdateTrip applies a partial update optimistically and schedules the
// backend update. A remote failure is surfaced through Notices while the
// optimistic effect stays applied — availability over consistency.
func (s *Store) UpdateTrip(id session.Identity, tripID models.EntityID, patch TripPatch) (models.TripView, error) {
	s.mu.Lock()
	t, ok := s.snap.Trip(tripID)
	if !ok {
		s.mu.Unlock()
		return models.TripView{}, ErrTripNotFound
	}
	applyPatch(t, patch)
	view, _ := s.snap.View(tripID)
	s.persistLocked()
	s.mu.Unlock()

	if !id.Authenticated() || tripID.IsLocal() {
		return view, nil
	}

	s.engine.Go(sync.Task{
		Op:      "update",
		Kind:    "trip",
		LocalID: tripID,
		Notify:  true,
		Call: func(ctx context.Context) (sync.Apply, error) {
			updated, err := s.remote.UpdateTrip(ctx, tripID.String(), remote.TripPatch{
				Name:        patch.Name,
				Destination: patch.Destination,
				StartDate:   patch.StartDate,
				EndDate:     patch.EndDate,
			})
			if err != nil {
				return nil, err
			}
			// Merge scalar fields only; the children the server echoes
			// back must not clobber locally added ones.
			return func(snap *models.Snapshot) {
				if t, ok := snap.Trip(tripID); ok {
					t.Name = updated.Name
					t.Destination = updated.Destination
					t.StartDate = updated.StartDate
					t.EndDate = updated.EndDate
				}
			}, nil
		},
	})
	return view, nil
}

func applyPatch(t *models.Trip, patch TripPatch) {
	if patch.Name != nil {
		t.Name = *patch.Name
	}
	if patch.Destination != nil {
		t.Destination = *patch.Destination
	}
	if patch.StartDate != nil {
		t.StartDate = *patch.StartDate
	}
	if patch.EndDate != nil {
		t.EndDate = *patch.EndDate
	}
}

// DeleteTrip removes a trip and its children immediately, cancels their
// outstanding sync chains, and schedules the backend delete. The backend
// reporting the trip already gone counts as success.
func (s *Store) DeleteTrip(id session.Identity, tripID models.EntityID) error {
	s.mu.Lock()
	removed := s.snap.RemoveTrip(tripID)
	if removed {
		s.persistLocked()
	}
	s.mu.Unlock()
	if !removed {
		return ErrTripNotFound
	}

	s.engine.CancelTrip(tripID)

	if !id.Authenticated() || tripID.IsLocal() {
		return nil
	}

	s.engine.Go(sync.Task{
		Op:      "delete",
		Kind:    "trip",
		LocalID: tripID,
		Notify:  true,
		Call: func(ctx context.Context) (sync.Apply, error) {
			err := s.remote.DeleteTrip(ctx, tripID.String())
			if errors.Is(err, remote.ErrNotFound) {
				// Already gone remotely; the local delete stands.
				return nil, nil
			}
			return nil, err
		},
	})
	return nil
}

// JoinTrip resolves an invite code and joins the trip. This is a
// foreground remote call — there is nothing to create optimistically for
// a trip this client has never seen. Joining a trip twice replaces the
// stored record in place rather than duplicating it.
func (s *Store) JoinTrip(ctx context.Context, id session.Identity, code string) (models.TripView, error) {
	tripID, err := models.ParseInviteCode(code)
	if err != nil {
		return models.TripView{}, fmt.Errorf("%w: %v", remote.ErrValidation, err)
	}
	if !id.Authenticated() {
		return models.TripView{}, fmt.Errorf("%w: joining a trip requires a signed-in user", remote.ErrValidation)
	}

	joined, err := s.remote.JoinTrip(ctx, tripID.String(), remote.NewMember{
		Email: id.Email,
		Name:  id.DisplayName(),
	})
	if err != nil {
		return models.TripView{}, err
	}

	s.mu.Lock()
	newID := sync.UpsertTrip(s.snap, joined)
	view, _ := s.snap.View(newID)
	s.persistLocked()
	s.mu.Unlock()
	return view, nil
}

// markPermanentLocal clears the pending flag after exhausted retries,
// leaving the entity in place as a permanent local-only record.
func markPermanentLocal(id models.EntityID) sync.Apply {
	return func(snap *models.Snapshot) {
		snap.SetPending(id, false)
	}
}
