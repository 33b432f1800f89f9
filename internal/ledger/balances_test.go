package ledger

import (
	"math"
	"testing"
)

const eps = 1e-6

func members(keys ...string) []Participant {
	out := make([]Participant, len(keys))
	for i, k := range keys {
		out[i] = Participant{Key: k, Name: k}
	}
	return out
}

func balanceOf(t *testing.T, balances []MemberBalance, key string) float64 {
	t.Helper()
	for _, b := range balances {
		if b.Key == key {
			return b.Balance
		}
	}
	t.Fatalf("no balance for %s", key)
	return 0
}

func sum(balances []MemberBalance) float64 {
	var total float64
	for _, b := range balances {
		total += b.Balance
	}
	return total
}

func TestBalancesEqualSplit(t *testing.T) {
	// One expense of 10 paid by A, split implicitly over all 3 members.
	balances := Balances(members("a", "b", "c"), []Charge{
		{Amount: 10, PaidBy: "a"},
	})

	if got := balanceOf(t, balances, "a"); math.Abs(got-(10-10.0/3)) > eps {
		t.Errorf("a = %v, want %v", got, 10-10.0/3)
	}
	if got := balanceOf(t, balances, "b"); math.Abs(got+10.0/3) > eps {
		t.Errorf("b = %v, want %v", got, -10.0/3)
	}
	if got := balanceOf(t, balances, "c"); math.Abs(got+10.0/3) > eps {
		t.Errorf("c = %v, want %v", got, -10.0/3)
	}
	if got := sum(balances); math.Abs(got) > eps {
		t.Errorf("sum = %v, want 0", got)
	}
}

func TestBalancesConservation(t *testing.T) {
	// Every payer and split key resolves and every expense's splits sum
	// to its amount, so the ledger must conserve: sum == 0.
	balances := Balances(members("a", "b", "c", "d"), []Charge{
		{Amount: 100, PaidBy: "a", Splits: []Share{
			{MemberKey: "a", Amount: 25}, {MemberKey: "b", Amount: 25},
			{MemberKey: "c", Amount: 25}, {MemberKey: "d", Amount: 25},
		}},
		{Amount: 30, PaidBy: "b", SplitWith: []string{"b", "c"}},
		{Amount: 7.77, PaidBy: "c"},
		{Amount: 12.5, PaidBy: "d", Splits: []Share{
			{MemberKey: "a", Amount: 10}, {MemberKey: "b", Amount: 2.5},
		}},
	})

	if got := sum(balances); math.Abs(got) > eps {
		t.Errorf("sum = %v, want 0", got)
	}
}

func TestBalancesUnresolvedPayerGap(t *testing.T) {
	// The payer is unknown, so the credit is dropped while the two known
	// participants are still debited. This deliberately breaks the
	// conservation property: the total goes to -10.
	balances := Balances(members("a", "b"), []Charge{
		{Amount: 10, PaidBy: "ghost@example.com", SplitWith: []string{"a", "b"}},
	})

	if got := balanceOf(t, balances, "a"); math.Abs(got+5) > eps {
		t.Errorf("a = %v, want -5", got)
	}
	if got := balanceOf(t, balances, "b"); math.Abs(got+5) > eps {
		t.Errorf("b = %v, want -5", got)
	}
	for _, b := range balances {
		if b.Balance > 0 {
			t.Errorf("%s shows a credit, but no member should be owed", b.Key)
		}
	}
	if got := sum(balances); math.Abs(got+10) > eps {
		t.Errorf("sum = %v, want -10", got)
	}
}

func TestBalancesUnresolvedSplitMemberSkipped(t *testing.T) {
	balances := Balances(members("a", "b"), []Charge{
		{Amount: 30, PaidBy: "a", Splits: []Share{
			{MemberKey: "a", Amount: 10},
			{MemberKey: "b", Amount: 10},
			{MemberKey: "ghost@example.com", Amount: 10},
		}},
	})

	if got := balanceOf(t, balances, "a"); math.Abs(got-20) > eps {
		t.Errorf("a = %v, want 20", got)
	}
	if got := balanceOf(t, balances, "b"); math.Abs(got+10) > eps {
		t.Errorf("b = %v, want -10", got)
	}
}

func TestBalancesProcessesChargesInOrder(t *testing.T) {
	balances := Balances(members("a", "b"), []Charge{
		{Amount: 10, PaidBy: "a", SplitWith: []string{"b"}},
		{Amount: 4, PaidBy: "b", SplitWith: []string{"a"}},
	})

	if got := balanceOf(t, balances, "a"); math.Abs(got-6) > eps {
		t.Errorf("a = %v, want 6", got)
	}
	if got := balanceOf(t, balances, "b"); math.Abs(got+6) > eps {
		t.Errorf("b = %v, want -6", got)
	}
}

func TestBalancesNoMembers(t *testing.T) {
	balances := Balances(nil, []Charge{{Amount: 10, PaidBy: "a"}})
	if len(balances) != 0 {
		t.Errorf("expected no balances, got %v", balances)
	}
}

func TestSettlements(t *testing.T) {
	edges := Settlements([]MemberBalance{
		{Key: "a", Balance: 60},
		{Key: "b", Balance: -40},
		{Key: "c", Balance: -20},
	})

	if len(edges) != 2 {
		t.Fatalf("expected 2 transfers, got %d: %v", len(edges), edges)
	}
	if edges[0].From != "b" || edges[0].To != "a" || math.Abs(edges[0].Amount-40) > eps {
		t.Errorf("first transfer = %+v, want b->a 40", edges[0])
	}
	if edges[1].From != "c" || edges[1].To != "a" || math.Abs(edges[1].Amount-20) > eps {
		t.Errorf("second transfer = %+v, want c->a 20", edges[1])
	}
}

func TestSettlementsIgnoresNoise(t *testing.T) {
	edges := Settlements([]MemberBalance{
		{Key: "a", Balance: 0.004},
		{Key: "b", Balance: -0.004},
	})
	if len(edges) != 0 {
		t.Errorf("expected no transfers for sub-cent noise, got %v", edges)
	}
}
