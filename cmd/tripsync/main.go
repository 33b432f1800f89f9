// Command tripsync is a small front end over the trip store: it refreshes
// from the backend (falling back to the local cache when offline), lists
// trips, shows settlement balances and performs mutations. Without a
// SESSION_TOKEN it runs in offline mode and every write stays local.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mmynk/tripsync/internal/models"
	"github.com/mmynk/tripsync/internal/remote"
	"github.com/mmynk/tripsync/internal/session"
	"github.com/mmynk/tripsync/internal/storage/sqlite"
	"github.com/mmynk/tripsync/internal/trip"
	"github.com/mmynk/tripsync/pkg/logging"
)

const usage = `usage: tripsync <command> [args]

commands:
  list                                                show all trips
  balances <trip-id>                                  show who owes whom
  create-trip <name> <destination> <start> <end>      create a trip
  add-member <trip-id> <name> <email>                 add a member
  add-event <trip-id> <title> <start-time>            add an itinerary event
  add-expense <trip-id> <description> <amount> <payer> add an equal-split expense
  join <invite-code>                                  join a trip by code

environment:
  API_URL        backend base URL (default http://localhost:3001)
  DB_PATH        local snapshot database (default ./data/trips.db)
  SESSION_TOKEN  backend session token; empty runs offline
  METRICS_ADDR   serve Prometheus metrics on this address (optional)
  LOG_LEVEL      debug, info, warn, error
`

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func main() {
	logging.Setup()

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	identity, err := session.FromToken(os.Getenv("SESSION_TOKEN"))
	if err != nil {
		slog.Warn("ignoring session token, running offline", "error", err)
		identity = session.Anonymous()
	}

	local, err := sqlite.New(getEnv("DB_PATH", "./data/trips.db"))
	if err != nil {
		slog.Error("Failed to open local storage", "error", err)
		os.Exit(1)
	}

	store := trip.NewStore(trip.Config{
		Local:  local,
		Remote: remote.NewHTTPClient(getEnv("API_URL", "http://localhost:3001")),
	})
	defer store.Close()

	if addr := os.Getenv("METRICS_ADDR"); addr != "" {
		go func() {
			if err := http.ListenAndServe(addr, promhttp.Handler()); err != nil {
				slog.Error("metrics server failed", "error", err)
			}
		}()
	}

	ctx := context.Background()
	if err := store.Refresh(ctx, identity); err != nil {
		if errors.Is(err, trip.ErrStaleData) {
			slog.Warn("could not reach backend, showing cached data")
		} else {
			slog.Error("refresh failed", "error", err)
			os.Exit(1)
		}
	}

	if err := run(ctx, store, identity, os.Args[1], os.Args[2:]); err != nil {
		slog.Error("command failed", "command", os.Args[1], "error", err)
		os.Exit(1)
	}

	// Let scheduled background persists finish before exiting.
	store.Wait()
}

func run(ctx context.Context, store *trip.Store, id session.Identity, command string, args []string) error {
	switch command {
	case "list":
		return list(store)
	case "balances":
		if len(args) != 1 {
			return errors.New("balances needs a trip id")
		}
		return balances(store, models.ParseID(args[0]))
	case "create-trip":
		if len(args) != 4 {
			return errors.New("create-trip needs name, destination, start and end date")
		}
		v, err := store.CreateTrip(id, trip.TripInput{
			Name:        args[0],
			Destination: args[1],
			StartDate:   args[2],
			EndDate:     args[3],
		})
		if err != nil {
			return err
		}
		fmt.Printf("created trip %s (%s)\n", v.Name, v.ID)
		return nil
	case "add-member":
		if len(args) != 3 {
			return errors.New("add-member needs trip id, name and email")
		}
		m, err := store.AddMember(id, models.ParseID(args[0]), trip.MemberInput{Name: args[1], Email: args[2]})
		if err != nil {
			return err
		}
		fmt.Printf("added member %s <%s>\n", m.Name, m.Email)
		return nil
	case "add-event":
		if len(args) != 3 {
			return errors.New("add-event needs trip id, title and start time")
		}
		e, err := store.AddEvent(id, models.ParseID(args[0]), trip.EventInput{Title: args[1], StartTime: args[2]})
		if err != nil {
			return err
		}
		fmt.Printf("added event %q at %s\n", e.Title, e.StartTime)
		return nil
	case "add-expense":
		if len(args) != 4 {
			return errors.New("add-expense needs trip id, description, amount and payer")
		}
		amount, err := strconv.ParseFloat(args[2], 64)
		if err != nil {
			return fmt.Errorf("amount %q is not a number", args[2])
		}
		x, err := store.AddExpense(id, models.ParseID(args[0]), trip.ExpenseInput{
			Description: args[1],
			Amount:      amount,
			PaidBy:      args[3],
		})
		if err != nil {
			return err
		}
		fmt.Printf("added expense %q for %.2f paid by %s\n", x.Description, x.Amount, x.PaidBy)
		return nil
	case "join":
		if len(args) != 1 {
			return errors.New("join needs an invite code")
		}
		v, err := store.JoinTrip(ctx, id, args[0])
		if err != nil {
			return err
		}
		fmt.Printf("joined trip %s (%s)\n", v.Name, v.ID)
		return nil
	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", command)
	}
}

func list(store *trip.Store) error {
	views := store.Trips()
	if len(views) == 0 {
		fmt.Println("no trips yet")
		return nil
	}
	for _, v := range views {
		marker := ""
		if v.Pending {
			marker = " (syncing)"
		} else if v.ID.IsLocal() {
			marker = " (local only)"
		}
		fmt.Printf("%s  %s — %s, %s to %s%s\n", v.ID, v.Name, v.Destination, v.StartDate, v.EndDate, marker)
		if !v.ID.IsLocal() {
			fmt.Printf("    invite code: %s\n", models.FormatInviteCode(v.ID))
		}
		fmt.Printf("    %d members, %d events, %d expenses\n", len(v.Members), len(v.Events), len(v.Expenses))
	}
	return nil
}

func balances(store *trip.Store, tripID models.EntityID) error {
	bals, err := store.Balances(tripID)
	if err != nil {
		return err
	}
	for _, b := range bals {
		switch {
		case b.Balance >= 0.005:
			fmt.Printf("%-24s is owed %8.2f\n", b.Name, b.Balance)
		case b.Balance <= -0.005:
			fmt.Printf("%-24s owes    %8.2f\n", b.Name, -b.Balance)
		default:
			fmt.Printf("%-24s settled\n", b.Name)
		}
	}
	edges, err := store.Settlements(tripID)
	if err != nil {
		return err
	}
	if len(edges) > 0 {
		fmt.Println("suggested transfers:")
		for _, e := range edges {
			fmt.Printf("  %s -> %s: %.2f\n", e.From, e.To, e.Amount)
		}
	}
	return nil
}
