// Package metrics exposes Prometheus counters for the sync engine and
// local persistence. Everything registers on the default registry; serve
// promhttp.Handler() to scrape.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SyncAttempts counts remote persistence attempts by entity kind and
	// outcome (success, transient_error, permanent_error).
	SyncAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tripsync",
		Name:      "sync_attempts_total",
		Help:      "Remote persistence attempts by entity kind and outcome.",
	}, []string{"kind", "outcome"})

	// RetriesExhausted counts mutations accepted as permanently local
	// after the final failed attempt.
	RetriesExhausted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tripsync",
		Name:      "retries_exhausted_total",
		Help:      "Mutations left permanently local after exhausting retries.",
	}, []string{"kind"})

	// Reconciliations counts placeholder entities replaced by their
	// server-confirmed counterparts.
	Reconciliations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tripsync",
		Name:      "reconciliations_total",
		Help:      "Local entities reconciled with server-assigned identity.",
	}, []string{"kind"})

	// SnapshotSaves counts snapshot writes to local storage.
	SnapshotSaves = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "tripsync",
		Name:      "snapshot_saves_total",
		Help:      "Snapshot documents written to local storage.",
	})

	// SnapshotSaveErrors counts failed snapshot writes.
	SnapshotSaveErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "tripsync",
		Name:      "snapshot_save_errors_total",
		Help:      "Snapshot writes that failed.",
	})
)
