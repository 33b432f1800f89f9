package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// callTimeout bounds every backend call on the client side.
const callTimeout = 8 * time.Second

// Ensure HTTPClient implements Client
var _ Client = (*HTTPClient)(nil)

// HTTPClient talks JSON over the backend's REST routes.
type HTTPClient struct {
	baseURL string
	http    *http.Client
}

// NewHTTPClient creates a client for the backend at baseURL.
func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: callTimeout},
	}
}

// ListTrips fetches the member's trips with nested collections.
func (c *HTTPClient) ListTrips(ctx context.Context, userEmail string) ([]Trip, error) {
	q := url.Values{"userEmail": {userEmail}}
	var wire []wireTrip
	if err := c.do(ctx, http.MethodGet, "/trips?"+q.Encode(), nil, &wire); err != nil {
		return nil, err
	}
	trips := make([]Trip, len(wire))
	for i, w := range wire {
		trips[i] = w.normalize()
	}
	return trips, nil
}

// CreateTrip creates a trip and returns the server-confirmed record.
func (c *HTTPClient) CreateTrip(ctx context.Context, t NewTrip) (*Trip, error) {
	var wire wireTrip
	if err := c.do(ctx, http.MethodPost, "/trips", t, &wire); err != nil {
		return nil, err
	}
	trip := wire.normalize()
	return &trip, nil
}

// CreateEvent creates an event on the trip.
func (c *HTTPClient) CreateEvent(ctx context.Context, tripID string, e NewEvent) (*Event, error) {
	var wire wireEvent
	path := "/trips/" + url.PathEscape(tripID) + "/events"
	if err := c.do(ctx, http.MethodPost, path, e, &wire); err != nil {
		return nil, err
	}
	event := wire.normalize()
	return &event, nil
}

// CreateExpense creates an expense with its splits on the trip.
func (c *HTTPClient) CreateExpense(ctx context.Context, tripID string, x NewExpense) (*Expense, error) {
	var wire wireExpense
	path := "/trips/" + url.PathEscape(tripID) + "/expenses"
	if err := c.do(ctx, http.MethodPost, path, x, &wire); err != nil {
		return nil, err
	}
	expense := wire.normalize()
	return &expense, nil
}

// AddMember adds a member to the trip; a duplicate email returns the
// existing row with success.
func (c *HTTPClient) AddMember(ctx context.Context, tripID string, m NewMember) (*Member, error) {
	var wire wireMember
	path := "/trips/" + url.PathEscape(tripID) + "/members"
	if err := c.do(ctx, http.MethodPost, path, m, &wire); err != nil {
		return nil, err
	}
	member := wire.normalize()
	return &member, nil
}

// JoinTrip adds the joiner to the trip and returns the full snapshot.
func (c *HTTPClient) JoinTrip(ctx context.Context, tripID string, joiner NewMember) (*Trip, error) {
	var wire wireTrip
	path := "/trips/" + url.PathEscape(tripID) + "/join"
	if err := c.do(ctx, http.MethodPost, path, joiner, &wire); err != nil {
		return nil, err
	}
	trip := wire.normalize()
	return &trip, nil
}

// UpdateTrip applies a partial update.
func (c *HTTPClient) UpdateTrip(ctx context.Context, tripID string, patch TripPatch) (*Trip, error) {
	var wire wireTrip
	path := "/trips/" + url.PathEscape(tripID)
	if err := c.do(ctx, http.MethodPatch, path, patch, &wire); err != nil {
		return nil, err
	}
	trip := wire.normalize()
	return &trip, nil
}

// DeleteTrip deletes a trip.
func (c *HTTPClient) DeleteTrip(ctx context.Context, tripID string) error {
	path := "/trips/" + url.PathEscape(tripID)
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

// do performs one JSON round trip and maps the response status onto the
// package error taxonomy.
func (c *HTTPClient) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: status %d", ErrServer, resp.StatusCode)
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrNotFound, errorMessage(resp.Body))
	case resp.StatusCode >= 400:
		return fmt.Errorf("%w: %s", ErrValidation, errorMessage(resp.Body))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// errorMessage extracts the backend's {"error": "..."} body, falling back
// to a generic message.
func errorMessage(body io.Reader) string {
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(body).Decode(&payload); err == nil && payload.Error != "" {
		return payload.Error
	}
	return "request rejected"
}

// wireID tolerates backends that send ids as JSON numbers (auto-increment
// rows) or strings.
type wireID string

func (w *wireID) UnmarshalJSON(b []byte) error {
	var n json.Number
	if err := json.Unmarshal(b, &n); err == nil {
		*w = wireID(n.String())
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("id is neither number nor string: %s", b)
	}
	*w = wireID(s)
	return nil
}

// wireAmount tolerates amounts sent as numbers or numeric strings
// (DECIMAL columns serialize as strings in some backends).
type wireAmount float64

func (w *wireAmount) UnmarshalJSON(b []byte) error {
	var f float64
	if err := json.Unmarshal(b, &f); err == nil {
		*w = wireAmount(f)
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("amount is neither number nor string: %s", b)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("amount %q is not numeric: %w", s, err)
	}
	*w = wireAmount(f)
	return nil
}

type wireTrip struct {
	ID          wireID        `json:"id"`
	Name        string        `json:"name"`
	Destination string        `json:"destination"`
	StartDate   string        `json:"start_date"`
	EndDate     string        `json:"end_date"`
	CreatedBy   string        `json:"created_by"`
	Members     []wireMember  `json:"members"`
	Events      []wireEvent   `json:"events"`
	Expenses    []wireExpense `json:"expenses"`
}

type wireMember struct {
	ID    wireID `json:"id"`
	Email string `json:"member_email"`
	Name  string `json:"member_name"`
}

type wireEvent struct {
	ID          wireID `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Location    string `json:"location"`
	StartTime   string `json:"start_time"`
	EndTime     string `json:"end_time"`
	CreatedBy   string `json:"created_by"`
}

type wireExpense struct {
	ID          wireID      `json:"id"`
	Description string      `json:"description"`
	Amount      wireAmount  `json:"amount"`
	PaidBy      string      `json:"paid_by"`
	CreatedBy   string      `json:"created_by"`
	Splits      []wireSplit `json:"splits"`
}

type wireSplit struct {
	Email  string     `json:"member_email"`
	Amount wireAmount `json:"amount"`
}

func (w wireTrip) normalize() Trip {
	t := Trip{
		ID:          string(w.ID),
		Name:        w.Name,
		Destination: w.Destination,
		StartDate:   w.StartDate,
		EndDate:     w.EndDate,
		CreatedBy:   w.CreatedBy,
	}
	for _, m := range w.Members {
		t.Members = append(t.Members, m.normalize())
	}
	for _, e := range w.Events {
		t.Events = append(t.Events, e.normalize())
	}
	for _, x := range w.Expenses {
		t.Expenses = append(t.Expenses, x.normalize())
	}
	return t
}

func (w wireMember) normalize() Member {
	return Member{ID: string(w.ID), Email: w.Email, Name: w.Name}
}

func (w wireEvent) normalize() Event {
	return Event{
		ID:          string(w.ID),
		Title:       w.Title,
		Description: w.Description,
		Location:    w.Location,
		StartTime:   w.StartTime,
		EndTime:     w.EndTime,
		CreatedBy:   w.CreatedBy,
	}
}

func (w wireExpense) normalize() Expense {
	x := Expense{
		ID:          string(w.ID),
		Description: w.Description,
		Amount:      float64(w.Amount),
		PaidBy:      w.PaidBy,
		CreatedBy:   w.CreatedBy,
	}
	for _, s := range w.Splits {
		x.Splits = append(x.Splits, Split{MemberEmail: s.Email, Amount: float64(s.Amount)})
	}
	return x
}
