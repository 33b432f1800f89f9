// Package sync implements the optimistic mutation engine: it turns each
// logical mutation into an immediate local effect (applied by the caller)
// plus a best-effort background remote persist with bounded retries, and
// reconciles server-assigned identity back into the snapshot.
package sync

import (
	"context"
	"log/slog"
	stdsync "sync"
	"time"

	"github.com/mmynk/tripsync/internal/metrics"
	"github.com/mmynk/tripsync/internal/models"
	"github.com/mmynk/tripsync/internal/remote"
)

const (
	defaultMaxAttempts = 3
	defaultRetryDelay  = 4 * time.Second
)

// Apply is a snapshot mutation executed under the store's write lock.
type Apply func(*models.Snapshot)

// Applier serializes snapshot mutations and persists after each one.
type Applier interface {
	Apply(mutate func(*models.Snapshot))
}

// Notice is a user-visible failure report. Only update and delete
// mutations produce notices; the optimistic local effect stays applied
// regardless.
type Notice struct {
	Op   string
	Kind string
	ID   models.EntityID
	Err  error
}

// Task is one background remote-persist chain for a single mutation.
type Task struct {
	// Op names the mutation (create, update, delete) for logs/notices.
	Op string

	// Kind names the entity kind (trip, member, event, expense).
	Kind string

	// LocalID is the entity the chain belongs to; it keys cancellation.
	LocalID models.EntityID

	// TripID is the owning trip, zero for trips themselves. Deleting a
	// trip cancels the chains of its children.
	TripID models.EntityID

	// Notify surfaces the first failed attempt to the user.
	Notify bool

	// Call performs one remote attempt. On success it returns the
	// snapshot mutation that merges the server result (nil when there is
	// nothing to merge, e.g. a delete acknowledgement).
	Call func(ctx context.Context) (Apply, error)

	// OnExhausted is applied after the final failed attempt; it accepts
	// the entity as permanently local (typically clearing pending).
	OnExhausted Apply
}

// Config holds the options for NewEngine.
type Config struct {
	Applier     Applier
	Notify      func(Notice)  // optional
	Logger      *slog.Logger  // optional, defaults to slog.Default()
	MaxAttempts int           // total attempts per task, default 3
	RetryDelay  time.Duration // fixed delay between attempts, default 4s
}

// Engine owns the background persistence chains. Chains for different
// entities run independently and never serialize with each other; a chain
// runs to success or exhaustion unless cancelled through its seam.
type Engine struct {
	applier     Applier
	notify      func(Notice)
	logger      *slog.Logger
	maxAttempts int
	retryDelay  time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     stdsync.WaitGroup

	mu    stdsync.Mutex
	tasks map[models.EntityID]*taskHandle
}

type taskHandle struct {
	tripID models.EntityID
	cancel context.CancelFunc
}

// NewEngine creates an engine. The applier must be non-nil.
func NewEngine(cfg Config) *Engine {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = defaultRetryDelay
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Engine{
		applier:     cfg.Applier,
		notify:      cfg.Notify,
		logger:      cfg.Logger,
		maxAttempts: cfg.MaxAttempts,
		retryDelay:  cfg.RetryDelay,
		ctx:         ctx,
		cancel:      cancel,
		tasks:       make(map[models.EntityID]*taskHandle),
	}
}

// Go schedules the task's remote-persist chain. It never blocks on
// network I/O; the chain runs as an independent deferred task.
func (e *Engine) Go(t Task) {
	ctx, cancel := context.WithCancel(e.ctx)

	e.mu.Lock()
	e.tasks[t.LocalID] = &taskHandle{tripID: t.TripID, cancel: cancel}
	e.mu.Unlock()

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		defer e.drop(t.LocalID)
		e.run(ctx, t)
	}()
}

// Cancel stops the chain for one entity, if any is outstanding.
func (e *Engine) Cancel(id models.EntityID) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if h, ok := e.tasks[id]; ok {
		h.cancel()
	}
}

// CancelTrip stops the chains of a trip and of every child entity owned
// by it.
func (e *Engine) CancelTrip(tripID models.EntityID) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for id, h := range e.tasks {
		if id == tripID || h.tripID == tripID {
			h.cancel()
		}
	}
}

// Wait blocks until every outstanding chain has run to success or
// exhaustion, without cancelling anything.
func (e *Engine) Wait() {
	e.wg.Wait()
}

// Close cancels all chains and waits for them to exit.
func (e *Engine) Close() {
	e.cancel()
	e.wg.Wait()
}

func (e *Engine) drop(id models.EntityID) {
	e.mu.Lock()
	delete(e.tasks, id)
	e.mu.Unlock()
}

func (e *Engine) run(ctx context.Context, t Task) {
	for attempt := 1; attempt <= e.maxAttempts; attempt++ {
		apply, err := t.Call(ctx)
		if err == nil {
			metrics.SyncAttempts.WithLabelValues(t.Kind, "success").Inc()
			if apply != nil {
				e.applier.Apply(apply)
				metrics.Reconciliations.WithLabelValues(t.Kind).Inc()
			}
			e.logger.Debug("remote persist succeeded",
				"op", t.Op, "kind", t.Kind, "id", t.LocalID, "attempt", attempt)
			return
		}
		if ctx.Err() != nil {
			e.logger.Debug("remote persist cancelled",
				"op", t.Op, "kind", t.Kind, "id", t.LocalID)
			return
		}

		transient := remote.IsTransient(err)
		outcome := "transient_error"
		if !transient {
			outcome = "permanent_error"
		}
		metrics.SyncAttempts.WithLabelValues(t.Kind, outcome).Inc()
		e.logger.Warn("remote persist failed",
			"op", t.Op, "kind", t.Kind, "id", t.LocalID,
			"attempt", attempt, "transient", transient, "error", err)

		if t.Notify && attempt == 1 && e.notify != nil {
			e.notify(Notice{Op: t.Op, Kind: t.Kind, ID: t.LocalID, Err: err})
		}
		if !transient {
			break
		}
		if attempt == e.maxAttempts {
			break
		}

		select {
		case <-time.After(e.retryDelay):
		case <-ctx.Done():
			return
		}
	}

	metrics.RetriesExhausted.WithLabelValues(t.Kind).Inc()
	e.logger.Info("accepting entity as permanently local",
		"op", t.Op, "kind", t.Kind, "id", t.LocalID)
	if t.OnExhausted != nil {
		e.applier.Apply(t.OnExhausted)
	}
}
