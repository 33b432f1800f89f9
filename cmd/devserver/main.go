// Command devserver runs an in-memory backend implementing the trip API
// contract, for local development and manual testing of the client. State
// lives in process memory and is lost on restart.
package main

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/mmynk/tripsync/pkg/logging"
)

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func main() {
	logging.Setup()

	srv := newServer()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /trips", srv.listTrips)
	mux.HandleFunc("POST /trips", srv.createTrip)
	mux.HandleFunc("POST /trips/{id}/events", srv.createEvent)
	mux.HandleFunc("POST /trips/{id}/expenses", srv.createExpense)
	mux.HandleFunc("POST /trips/{id}/members", srv.addMember)
	mux.HandleFunc("POST /trips/{id}/join", srv.joinTrip)
	mux.HandleFunc("PATCH /trips/{id}", srv.updateTrip)
	mux.HandleFunc("DELETE /trips/{id}", srv.deleteTrip)

	handler := loggingMiddleware(corsMiddleware(mux))
	h2cHandler := h2c.NewHandler(handler, &http2.Server{})

	addr := ":" + getEnv("PORT", "3001")
	slog.Info("devserver starting", "address", addr)
	if err := http.ListenAndServe(addr, h2cHandler); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
}

// loggingMiddleware logs all incoming requests
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		slog.Info("Request completed",
			"method", r.Method,
			"path", r.URL.Path,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

// corsMiddleware adds CORS headers for browser access
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type trip struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Destination string    `json:"destination"`
	StartDate   string    `json:"start_date"`
	EndDate     string    `json:"end_date"`
	CreatedBy   string    `json:"created_by"`
	Members     []member  `json:"members"`
	Events      []event   `json:"events"`
	Expenses    []expense `json:"expenses"`
}

type member struct {
	ID    string `json:"id"`
	Email string `json:"member_email"`
	Name  string `json:"member_name"`
}

type event struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Location    string `json:"location"`
	StartTime   string `json:"start_time"`
	EndTime     string `json:"end_time"`
	CreatedBy   string `json:"created_by"`
}

type expense struct {
	ID          string  `json:"id"`
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
	PaidBy      string  `json:"paid_by"`
	CreatedBy   string  `json:"created_by"`
	Splits      []split `json:"splits"`
}

type split struct {
	Email  string  `json:"member_email"`
	Amount float64 `json:"amount"`
}

type server struct {
	mu    sync.Mutex
	order []string
	trips map[string]*trip
}

func newServer() *server {
	return &server{trips: make(map[string]*trip)}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (s *server) listTrips(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("userEmail")
	if email == "" {
		writeError(w, http.StatusBadRequest, "User email is required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	result := []*trip{}
	for _, id := range s.order {
		t := s.trips[id]
		for _, m := range t.Members {
			if m.Email == email {
				result = append(result, t)
				break
			}
		}
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *server) createTrip(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name        string `json:"name"`
		Destination string `json:"destination"`
		StartDate   string `json:"startDate"`
		EndDate     string `json:"endDate"`
		CreatedBy   string `json:"createdBy"`
		Members     []struct {
			Email string `json:"email"`
			Name  string `json:"name"`
		} `json:"members"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Name == "" || req.Destination == "" || req.StartDate == "" || req.EndDate == "" || req.CreatedBy == "" {
		writeError(w, http.StatusBadRequest, "Missing required trip fields")
		return
	}

	t := &trip{
		ID:          uuid.NewString(),
		Name:        req.Name,
		Destination: req.Destination,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		CreatedBy:   req.CreatedBy,
		Members:     []member{},
		Events:      []event{},
		Expenses:    []expense{},
	}
	for _, m := range req.Members {
		t.Members = append(t.Members, member{ID: uuid.NewString(), Email: m.Email, Name: m.Name})
	}

	s.mu.Lock()
	s.trips[t.ID] = t
	s.order = append(s.order, t.ID)
	s.mu.Unlock()

	writeJSON(w, http.StatusCreated, t)
}

func (s *server) createEvent(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		Location    string `json:"location"`
		StartTime   string `json:"startTime"`
		EndTime     string `json:"endTime"`
		CreatedBy   string `json:"createdBy"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Title == "" || req.StartTime == "" || req.CreatedBy == "" {
		writeError(w, http.StatusBadRequest, "Missing required event fields")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.trips[r.PathValue("id")]
	if !ok {
		writeError(w, http.StatusNotFound, "Trip not found")
		return
	}
	e := event{
		ID:          uuid.NewString(),
		Title:       req.Title,
		Description: req.Description,
		Location:    req.Location,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		CreatedBy:   req.CreatedBy,
	}
	t.Events = append(t.Events, e)
	writeJSON(w, http.StatusCreated, e)
}

func (s *server) createExpense(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Description string  `json:"description"`
		Amount      float64 `json:"amount"`
		PaidBy      string  `json:"paidBy"`
		CreatedBy   string  `json:"createdBy"`
		Splits      []struct {
			Email  string  `json:"email"`
			Amount float64 `json:"amount"`
		} `json:"splitBetween"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Description == "" || req.Amount == 0 || req.PaidBy == "" || req.CreatedBy == "" {
		writeError(w, http.StatusBadRequest, "Missing required expense fields")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.trips[r.PathValue("id")]
	if !ok {
		writeError(w, http.StatusNotFound, "Trip not found")
		return
	}
	x := expense{
		ID:          uuid.NewString(),
		Description: req.Description,
		Amount:      req.Amount,
		PaidBy:      req.PaidBy,
		CreatedBy:   req.CreatedBy,
		Splits:      []split{},
	}
	for _, sp := range req.Splits {
		x.Splits = append(x.Splits, split{Email: sp.Email, Amount: sp.Amount})
	}
	t.Expenses = append(t.Expenses, x)
	writeJSON(w, http.StatusCreated, x)
}

func (s *server) addMember(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
		Name  string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Email == "" || req.Name == "" {
		writeError(w, http.StatusBadRequest, "Missing member email or name")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.trips[r.PathValue("id")]
	if !ok {
		writeError(w, http.StatusNotFound, "Trip not found")
		return
	}
	// Duplicate email returns the existing row, not an error.
	for _, m := range t.Members {
		if m.Email == req.Email {
			writeJSON(w, http.StatusOK, m)
			return
		}
	}
	m := member{ID: uuid.NewString(), Email: req.Email, Name: req.Name}
	t.Members = append(t.Members, m)
	writeJSON(w, http.StatusCreated, m)
}

func (s *server) joinTrip(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
		Name  string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Email == "" {
		writeError(w, http.StatusBadRequest, "Missing joiner email")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.trips[r.PathValue("id")]
	if !ok {
		writeError(w, http.StatusNotFound, "Trip not found")
		return
	}
	joined := false
	for _, m := range t.Members {
		if m.Email == req.Email {
			joined = true
			break
		}
	}
	if !joined {
		t.Members = append(t.Members, member{ID: uuid.NewString(), Email: req.Email, Name: req.Name})
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *server) updateTrip(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name        *string `json:"name"`
		Destination *string `json:"destination"`
		StartDate   *string `json:"startDate"`
		EndDate     *string `json:"endDate"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.trips[r.PathValue("id")]
	if !ok {
		writeError(w, http.StatusNotFound, "Trip not found")
		return
	}
	if req.Name != nil {
		t.Name = *req.Name
	}
	if req.Destination != nil {
		t.Destination = *req.Destination
	}
	if req.StartDate != nil {
		t.StartDate = *req.StartDate
	}
	if req.EndDate != nil {
		t.EndDate = *req.EndDate
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *server) deleteTrip(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.trips[id]; !ok {
		writeError(w, http.StatusNotFound, "Trip not found")
		return
	}
	delete(s.trips, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
