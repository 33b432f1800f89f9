package models

import (
	"errors"
	"strings"
)

// Trip is a shared trip. Child entities are referenced by id; the entities
// themselves live in the Snapshot arenas.
type Trip struct {
	// ID is the current identifier (local until the backend confirms).
	ID EntityID `json:"id"`

	// Name is the display name of the trip (e.g., "Paris Getaway").
	Name string `json:"name"`

	// Destination is the free-form destination (e.g., "Paris, France").
	Destination string `json:"destination"`

	// StartDate and EndDate are carried verbatim from user input / the
	// backend; the client never does date arithmetic on them.
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`

	// CreatedBy is the canonical key of the creating member.
	CreatedBy string `json:"created_by"`

	// MemberIDs, EventIDs and ExpenseIDs hold the ordered children.
	MemberIDs  []EntityID `json:"member_ids"`
	EventIDs   []EntityID `json:"event_ids"`
	ExpenseIDs []EntityID `json:"expense_ids"`

	// Pending is true while the entity awaits backend confirmation.
	Pending bool `json:"pending"`
}

// Member is a trip participant.
type Member struct {
	ID EntityID `json:"id"`

	// Name is the display name.
	Name string `json:"name"`

	// Email is the member's email, empty for members added without one.
	Email string `json:"email"`

	Pending bool `json:"pending"`
}

// Key returns the canonical key used to match this member against payer
// and split references: email when present, otherwise the entity id.
func (m Member) Key() string {
	if m.Email != "" {
		return m.Email
	}
	return m.ID.String()
}

// Event is an itinerary entry.
type Event struct {
	ID EntityID `json:"id"`

	Title       string `json:"title"`
	Description string `json:"description"`
	Location    string `json:"location"`

	// StartTime is required; EndTime is optional. Both are RFC 3339
	// strings passed through from the wire.
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`

	CreatedBy string `json:"created_by"`
	Pending   bool   `json:"pending"`
}

// Split is one member's explicit share of an expense.
type Split struct {
	// MemberKey is the canonical key of the member the share belongs to.
	MemberKey string `json:"member_key"`

	Amount float64 `json:"amount"`
}

// Expense is a shared cost. It carries either explicit Splits or an
// implicit equal division over SplitWith (or, when SplitWith is empty,
// over all trip members).
type Expense struct {
	ID EntityID `json:"id"`

	Description string  `json:"description"`
	Amount      float64 `json:"amount"`

	// PaidBy is the canonical key of the paying member.
	PaidBy string `json:"paid_by"`

	Splits    []Split  `json:"splits,omitempty"`
	SplitWith []string `json:"split_with,omitempty"`

	CreatedBy string `json:"created_by"`
	Pending   bool   `json:"pending"`
}

// InviteCodePrefix is the fixed prefix shared invite codes carry in front
// of the trip's server id.
const InviteCodePrefix = "TRIP-"

// ErrInvalidInviteCode is returned for codes that do not carry the fixed
// prefix and a trip id.
var ErrInvalidInviteCode = errors.New("invalid invite code")

// FormatInviteCode renders the shareable code for a trip.
func FormatInviteCode(tripID EntityID) string {
	return InviteCodePrefix + tripID.String()
}

// ParseInviteCode resolves an invite code to the trip id it names. The
// prefix match is case-insensitive; the id portion is preserved verbatim.
func ParseInviteCode(code string) (EntityID, error) {
	code = strings.TrimSpace(code)
	if len(code) <= len(InviteCodePrefix) {
		return EntityID{}, ErrInvalidInviteCode
	}
	if !strings.EqualFold(code[:len(InviteCodePrefix)], InviteCodePrefix) {
		return EntityID{}, ErrInvalidInviteCode
	}
	return RemoteID(code[len(InviteCodePrefix):]), nil
}
