// Package remote defines the backend call contract and its HTTP/JSON
// implementation. The backend is an external collaborator: this package
// only consumes its documented request/response shapes and normalizes the
// server's snake_case field names to the client's canonical shape.
package remote

import (
	"context"
	"errors"
)

// Error taxonomy for backend calls. Transient errors are retried by the
// sync engine; the rest are surfaced or treated as terminal.
var (
	// ErrValidation covers 4xx responses for missing or invalid fields.
	ErrValidation = errors.New("invalid request")

	// ErrNotFound covers stale identifiers (trip already gone, invite
	// code that resolves to nothing).
	ErrNotFound = errors.New("not found")

	// ErrServer covers 5xx responses.
	ErrServer = errors.New("server error")

	// ErrUnreachable covers timeouts and transport failures.
	ErrUnreachable = errors.New("backend unreachable")
)

// IsTransient reports whether the error is worth retrying.
func IsTransient(err error) bool {
	return errors.Is(err, ErrServer) || errors.Is(err, ErrUnreachable)
}

// Trip is a server-confirmed trip with its nested collections.
type Trip struct {
	ID          string
	Name        string
	Destination string
	StartDate   string
	EndDate     string
	CreatedBy   string
	Members     []Member
	Events      []Event
	Expenses    []Expense
}

// Member is a server-confirmed membership row.
type Member struct {
	ID    string
	Email string
	Name  string
}

// Event is a server-confirmed itinerary event.
type Event struct {
	ID          string
	Title       string
	Description string
	Location    string
	StartTime   string
	EndTime     string
	CreatedBy   string
}

// Expense is a server-confirmed expense with its split rows.
type Expense struct {
	ID          string
	Description string
	Amount      float64
	PaidBy      string
	CreatedBy   string
	Splits      []Split
}

// Split is one member's recorded share of an expense.
type Split struct {
	MemberEmail string
	Amount      float64
}

// NewTrip is the create-trip request payload.
type NewTrip struct {
	Name        string      `json:"name"`
	Destination string      `json:"destination"`
	StartDate   string      `json:"startDate"`
	EndDate     string      `json:"endDate"`
	CreatedBy   string      `json:"createdBy"`
	Members     []NewMember `json:"members"`
}

// NewMember is an initial or added membership request.
type NewMember struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// NewEvent is the create-event request payload.
type NewEvent struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Location    string `json:"location,omitempty"`
	StartTime   string `json:"startTime"`
	EndTime     string `json:"endTime,omitempty"`
	CreatedBy   string `json:"createdBy"`
}

// NewExpense is the create-expense request payload. Splits maps to the
// backend's splitBetween rows; SplitWith is carried for equal division.
type NewExpense struct {
	Description string     `json:"description"`
	Amount      float64    `json:"amount"`
	PaidBy      string     `json:"paidBy"`
	Splits      []NewSplit `json:"splitBetween,omitempty"`
	SplitWith   []string   `json:"splitWith,omitempty"`
	CreatedBy   string     `json:"createdBy"`
}

// NewSplit is one member's share in a create-expense request.
type NewSplit struct {
	Email  string  `json:"email"`
	Amount float64 `json:"amount"`
}

// TripPatch carries partial trip updates; nil fields are left unchanged.
type TripPatch struct {
	Name        *string `json:"name,omitempty"`
	Destination *string `json:"destination,omitempty"`
	StartDate   *string `json:"startDate,omitempty"`
	EndDate     *string `json:"endDate,omitempty"`
}

// Client is the request/response contract to the backend. All calls are
// synchronous and honor context cancellation; the sync engine is
// responsible for running them off the caller's path.
type Client interface {
	// ListTrips returns the trips the given member belongs to, with
	// nested members, events and expenses.
	ListTrips(ctx context.Context, userEmail string) ([]Trip, error)

	// CreateTrip creates a trip and returns it with its server id.
	CreateTrip(ctx context.Context, t NewTrip) (*Trip, error)

	// CreateEvent creates an event on a trip.
	CreateEvent(ctx context.Context, tripID string, e NewEvent) (*Event, error)

	// CreateExpense creates an expense, with its splits, on a trip.
	CreateExpense(ctx context.Context, tripID string, x NewExpense) (*Expense, error)

	// AddMember adds a member to a trip. Adding a duplicate email is not
	// an error: the existing row is returned.
	AddMember(ctx context.Context, tripID string, m NewMember) (*Member, error)

	// JoinTrip adds the joiner to the trip and returns the full trip
	// snapshot. Returns ErrNotFound if the trip does not exist.
	JoinTrip(ctx context.Context, tripID string, joiner NewMember) (*Trip, error)

	// UpdateTrip applies a partial update and returns the updated trip.
	UpdateTrip(ctx context.Context, tripID string, patch TripPatch) (*Trip, error)

	// DeleteTrip deletes a trip. Returns ErrNotFound if already gone.
	DeleteTrip(ctx context.Context, tripID string) error
}
