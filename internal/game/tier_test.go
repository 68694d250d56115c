package game

import "testing"

func TestResolveTierBoundaries(t *testing.T) {
	tests := []struct {
		balance int64
		want    string
	}{
		{balance: -500, want: "Bum"},
		{balance: 0, want: "Bum"},
		{balance: 99_999, want: "Bum"},
		{balance: 100_000, want: "Rich"},
		{balance: 999_999, want: "Rich"},
		{balance: 1_000_000, want: "Millionaire"},
		{balance: 100_000_000, want: "Billionaire"},
		{balance: 499_999_999, want: "Billionaire"},
		{balance: 500_000_000, want: "Cheater"},
		{balance: 1_000_000_000, want: "VIP"},
		{balance: 5_000_000_000, want: "Hacker"},
		{balance: 9_999_999_999, want: "Hacker"},
		{balance: 10_000_000_000, want: "God"},
		{balance: 1 << 62, want: "God"},
	}
	for _, tc := range tests {
		if got := DefaultTiers.Resolve(tc.balance); got.Name != tc.want {
			t.Fatalf("balance=%d got=%s want=%s", tc.balance, got.Name, tc.want)
		}
	}
}

func TestResolveTierIsGreatestMinimumNotAbove(t *testing.T) {
	balances := []int64{-1, 0, 1}
	for _, tier := range DefaultTiers {
		balances = append(balances, tier.MinimumBalance-1, tier.MinimumBalance, tier.MinimumBalance+1)
	}
	for _, b := range balances {
		got := DefaultTiers.Resolve(b)
		want := DefaultTiers[0]
		for _, tier := range DefaultTiers {
			if tier.MinimumBalance <= b && tier.MinimumBalance >= want.MinimumBalance {
				want = tier
			}
		}
		if got.Rank != want.Rank {
			t.Fatalf("balance=%d got rank %d want %d", b, got.Rank, want.Rank)
		}
	}
}

func TestTierTableValidate(t *testing.T) {
	if err := DefaultTiers.Validate(); err != nil {
		t.Fatalf("default tiers invalid: %v", err)
	}

	bad := []TierTable{
		{},
		{{Rank: 0, Name: "A", MinimumBalance: 0}, {Rank: 1, Name: "B", MinimumBalance: 0}},
		{{Rank: 0, Name: "A", MinimumBalance: 10}, {Rank: 1, Name: "B", MinimumBalance: 5}},
		{{Rank: 0, Name: "A"}, {Rank: 2, Name: "B", MinimumBalance: 5}},
		{{Rank: 0, Name: "A"}, {Rank: 1, Name: "a", MinimumBalance: 5}},
		{{Rank: 0, Name: ""}},
	}
	for i, table := range bad {
		if err := table.Validate(); err == nil {
			t.Fatalf("case %d: expected validation error", i)
		}
	}
}

func TestTierByName(t *testing.T) {
	tier, ok := DefaultTiers.ByName(" millionaire ")
	if !ok || tier.Rank != 2 {
		t.Fatalf("ByName millionaire = %+v, %v", tier, ok)
	}
	if _, ok := DefaultTiers.ByName("Emperor"); ok {
		t.Fatalf("expected unknown tier")
	}
}
