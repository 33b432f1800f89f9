// Package ledger derives who-owes-whom from a trip's members and expenses.
//
// Balance derivation is a pure function of the current snapshot state: it
// depends on nothing asynchronous and is recomputed on every read.
package ledger

// MemberBalance is one member's net position across all trip expenses.
type MemberBalance struct {
	// Key is the member's canonical key (email, or entity id fallback).
	Key string

	// Name is the member's display name.
	Name string

	// Balance is the net position: positive means the member is owed
	// that amount, negative means the member owes -Balance.
	Balance float64
}

// DebtEdge is a single suggested transfer settling part of the ledger.
type DebtEdge struct {
	From   string // canonical key of the member who pays
	To     string // canonical key of the member who receives
	Amount float64
}

// Participant is the minimal member shape the ledger needs.
type Participant struct {
	Key  string
	Name string
}

// Charge is the minimal expense shape the ledger needs.
type Charge struct {
	Amount float64
	// PaidBy is the payer's canonical key.
	PaidBy string
	// Splits lists explicit per-member shares. When empty, the amount is
	// divided equally over SplitWith (or over all members when SplitWith
	// is empty too).
	Splits    []Share
	SplitWith []string
}

// Share is one member's explicit portion of a charge.
type Share struct {
	MemberKey string
	Amount    float64
}

// Balances computes per-member net positions, processing charges in list
// order.
//
// Payer keys that resolve to no declared member are skipped silently: the
// amount is still debited from the participants but credited nowhere, so
// the ledger total goes negative by that amount. Unresolvable split keys
// are likewise skipped. Both behaviors are carried over from the source
// application deliberately; callers that need the conservation property
// (sum of balances == 0) must ensure every key resolves.
func Balances(members []Participant, charges []Charge) []MemberBalance {
	balances := make([]MemberBalance, len(members))
	index := make(map[string]int, len(members))
	for i, m := range members {
		balances[i] = MemberBalance{Key: m.Key, Name: m.Name}
		index[m.Key] = i
	}

	for _, c := range charges {
		if i, ok := index[c.PaidBy]; ok {
			balances[i].Balance += c.Amount
		}

		if len(c.Splits) > 0 {
			for _, s := range c.Splits {
				if i, ok := index[s.MemberKey]; ok {
					balances[i].Balance -= s.Amount
				}
			}
			continue
		}

		participants := c.SplitWith
		if len(participants) == 0 {
			participants = make([]string, len(members))
			for i, m := range members {
				participants[i] = m.Key
			}
		}
		if len(participants) == 0 {
			continue
		}
		share := c.Amount / float64(len(participants))
		for _, key := range participants {
			if i, ok := index[key]; ok {
				balances[i].Balance -= share
			}
		}
	}

	return balances
}

// settleEpsilon is the threshold below which residual balances are treated
// as floating point noise rather than real debt.
const settleEpsilon = 0.01

// Settlements reduces a set of balances to a short list of transfers that
// clears the ledger, greedily matching debtors against creditors.
func Settlements(balances []MemberBalance) []DebtEdge {
	var debtors, creditors []MemberBalance
	for _, b := range balances {
		switch {
		case b.Balance < -settleEpsilon:
			debtors = append(debtors, b)
		case b.Balance > settleEpsilon:
			creditors = append(creditors, b)
		}
	}

	owed := make(map[string]float64, len(debtors))
	due := make(map[string]float64, len(creditors))
	for _, d := range debtors {
		owed[d.Key] = -d.Balance
	}
	for _, c := range creditors {
		due[c.Key] = c.Balance
	}

	var edges []DebtEdge
	i, j := 0, 0
	for i < len(debtors) && j < len(creditors) {
		debtor := debtors[i].Key
		creditor := creditors[j].Key

		amount := owed[debtor]
		if due[creditor] < amount {
			amount = due[creditor]
		}

		if amount > settleEpsilon {
			edges = append(edges, DebtEdge{From: debtor, To: creditor, Amount: amount})
		}

		owed[debtor] -= amount
		due[creditor] -= amount

		if owed[debtor] < settleEpsilon {
			i++
		}
		if due[creditor] < settleEpsilon {
			j++
		}
	}

	return edges
}
