package game

import (
	"fmt"
	"strings"
)

type Tier struct {
	Rank           int    `json:"rank"`
	Name           string `json:"name"`
	MinimumBalance int64  `json:"minimum_balance"`
	ClickIncome    int64  `json:"click_income"`
	Color          string `json:"color"`
}

// TierTable is ordered by ascending MinimumBalance; Rank equals the index.
type TierTable []Tier

var DefaultTiers = TierTable{
	{Rank: 0, Name: "Bum", MinimumBalance: 0, ClickIncome: 100, Color: "#8E9196"},
	{Rank: 1, Name: "Rich", MinimumBalance: 100_000, ClickIncome: 500, Color: "#34C759"},
	{Rank: 2, Name: "Millionaire", MinimumBalance: 1_000_000, ClickIncome: 2_000, Color: "#FFD700"},
	{Rank: 3, Name: "Billionaire", MinimumBalance: 100_000_000, ClickIncome: 10_000, Color: "#0088CC"},
	{Rank: 4, Name: "Cheater", MinimumBalance: 500_000_000, ClickIncome: 50_000, Color: "#FF3B30"},
	{Rank: 5, Name: "VIP", MinimumBalance: 1_000_000_000, ClickIncome: 100_000, Color: "#9b87f5"},
	{Rank: 6, Name: "Hacker", MinimumBalance: 5_000_000_000, ClickIncome: 500_000, Color: "#34C759"},
	{Rank: 7, Name: "God", MinimumBalance: 10_000_000_000, ClickIncome: 1_000_000, Color: "#FFD700"},
}

// Resolve returns the tier with the greatest minimum not exceeding balance.
// Balances below every minimum resolve to the lowest tier.
func (t TierTable) Resolve(balance int64) Tier {
	if len(t) == 0 {
		return Tier{}
	}
	out := t[0]
	for _, tier := range t[1:] {
		if tier.MinimumBalance > balance {
			break
		}
		out = tier
	}
	return out
}

func (t TierTable) ByName(name string) (Tier, bool) {
	name = strings.TrimSpace(name)
	for _, tier := range t {
		if strings.EqualFold(tier.Name, name) {
			return tier, true
		}
	}
	return Tier{}, false
}

func (t TierTable) Lowest() Tier {
	if len(t) == 0 {
		return Tier{}
	}
	return t[0]
}

func (t TierTable) Validate() error {
	if len(t) == 0 {
		return fmt.Errorf("tier table is empty")
	}
	seen := make(map[string]struct{}, len(t))
	for i, tier := range t {
		if tier.Rank != i {
			return fmt.Errorf("tier %q: rank %d, want %d", tier.Name, tier.Rank, i)
		}
		key := strings.ToLower(strings.TrimSpace(tier.Name))
		if key == "" {
			return fmt.Errorf("tier %d: name is required", i)
		}
		if _, dup := seen[key]; dup {
			return fmt.Errorf("tier %q: duplicate name", tier.Name)
		}
		seen[key] = struct{}{}
		if tier.ClickIncome < 0 {
			return fmt.Errorf("tier %q: click income must be >= 0", tier.Name)
		}
		if i > 0 && tier.MinimumBalance <= t[i-1].MinimumBalance {
			return fmt.Errorf("tier %q: minimum %d not above %d", tier.Name, tier.MinimumBalance, t[i-1].MinimumBalance)
		}
	}
	return nil
}
