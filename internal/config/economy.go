package config

import (
	"fmt"
	"os"
	"strings"

	"riches/internal/game"

	"gopkg.in/yaml.v3"
)

// EconomyFile is the YAML shape of an economy override. Sections left out
// keep their built-in defaults.
type EconomyFile struct {
	Tiers      []TierSpec  `yaml:"tiers"`
	Businesses []EntrySpec `yaml:"businesses"`
	Cars       []EntrySpec `yaml:"cars"`
}

type TierSpec struct {
	Name           string `yaml:"name"`
	MinimumBalance int64  `yaml:"minimum_balance"`
	ClickIncome    int64  `yaml:"click_income"`
	Color          string `yaml:"color"`
}

type EntrySpec struct {
	ID         int    `yaml:"id"`
	Name       string `yaml:"name"`
	Cost       int64  `yaml:"cost"`
	IncomeRate int64  `yaml:"income_rate"`
	Emoji      string `yaml:"emoji"`
}

// LoadEconomy returns the default economy when path is empty, otherwise the
// defaults overlaid with the file's sections. The result is validated.
func LoadEconomy(path string) (*game.Economy, error) {
	econ := game.DefaultEconomy()
	path = strings.TrimSpace(path)
	if path == "" {
		return econ, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read economy: %w", err)
	}
	var f EconomyFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse economy %s: %w", path, err)
	}

	if len(f.Tiers) > 0 {
		tiers := make(game.TierTable, 0, len(f.Tiers))
		for i, t := range f.Tiers {
			tiers = append(tiers, game.Tier{
				Rank:           i,
				Name:           strings.TrimSpace(t.Name),
				MinimumBalance: t.MinimumBalance,
				ClickIncome:    t.ClickIncome,
				Color:          t.Color,
			})
		}
		econ.Tiers = tiers
	}
	if len(f.Businesses) > 0 {
		econ.Businesses = game.Catalog{Kind: game.Businesses, Entries: toEntries(f.Businesses)}
	}
	if len(f.Cars) > 0 {
		econ.Cars = game.Catalog{Kind: game.Cars, Entries: toEntries(f.Cars)}
	}
	if err := econ.Validate(); err != nil {
		return nil, fmt.Errorf("economy %s: %w", path, err)
	}
	return econ, nil
}

func toEntries(in []EntrySpec) []game.Entry {
	out := make([]game.Entry, 0, len(in))
	for _, e := range in {
		out = append(out, game.Entry{
			ID:         e.ID,
			Name:       strings.TrimSpace(e.Name),
			Cost:       e.Cost,
			IncomeRate: e.IncomeRate,
			Emoji:      e.Emoji,
		})
	}
	return out
}
