// Package models defines the core domain entities for tripsync.
//
// # Entities
//
//   - Trip: a shared trip with members, itinerary events and expenses
//   - Member: a trip participant, keyed by email when known
//   - Event: an itinerary entry
//   - Expense: a shared cost with explicit or equal splits
//
// # Identity
//
// Every entity carries exactly one EntityID at a time. Entities created on
// this device start with a local id (the "local_" namespace) and a pending
// flag; once the backend confirms the write, the local id is replaced
// in place by the server-assigned id. An entity whose sync attempts are
// exhausted keeps its local id permanently with pending cleared.
//
// # Snapshot
//
// The full entity graph lives in a Snapshot: flat per-kind maps keyed by
// EntityID plus ordered id lists (trip order at the root, member/event/
// expense order per trip). Lookups and id replacement are O(1) and
// replacement can never duplicate a node. The Snapshot is also the unit of
// local persistence: it serializes to a single JSON document.
package models
