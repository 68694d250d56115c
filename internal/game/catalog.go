package game

import "fmt"

type CatalogKind string

const (
	Businesses CatalogKind = "businesses"
	Cars       CatalogKind = "cars"
)

func (k CatalogKind) Valid() bool {
	return k == Businesses || k == Cars
}

type Entry struct {
	ID         int    `json:"id"`
	Name       string `json:"name"`
	Cost       int64  `json:"cost"`
	IncomeRate int64  `json:"income_rate"`
	Emoji      string `json:"emoji"`
}

type Catalog struct {
	Kind    CatalogKind
	Entries []Entry
}

func (c Catalog) Entry(id int) (Entry, bool) {
	for _, e := range c.Entries {
		if e.ID == id {
			return e, true
		}
	}
	return Entry{}, false
}

func (c Catalog) Cheapest() (Entry, bool) {
	if len(c.Entries) == 0 {
		return Entry{}, false
	}
	out := c.Entries[0]
	for _, e := range c.Entries[1:] {
		if e.Cost < out.Cost {
			out = e
		}
	}
	return out, true
}

func (c Catalog) validate() error {
	seen := make(map[int]struct{}, len(c.Entries))
	for _, e := range c.Entries {
		if _, dup := seen[e.ID]; dup {
			return fmt.Errorf("%s: duplicate id %d", c.Kind, e.ID)
		}
		seen[e.ID] = struct{}{}
		if e.Cost <= 0 {
			return fmt.Errorf("%s %d: cost must be > 0", c.Kind, e.ID)
		}
		if e.IncomeRate < 0 {
			return fmt.Errorf("%s %d: income must be >= 0", c.Kind, e.ID)
		}
	}
	return nil
}

// Economy is the static rule set a session plays against. It is built once at
// process start and never mutated afterwards.
type Economy struct {
	Tiers      TierTable
	Businesses Catalog
	Cars       Catalog
}

func DefaultEconomy() *Economy {
	return &Economy{
		Tiers: DefaultTiers,
		Businesses: Catalog{Kind: Businesses, Entries: []Entry{
			{ID: 1, Name: "24/7 Shop", Cost: 10_000, IncomeRate: 100, Emoji: "🏪"},
			{ID: 2, Name: "Startup", Cost: 50_000, IncomeRate: 600, Emoji: "💼"},
			{ID: 3, Name: "Company", Cost: 250_000, IncomeRate: 3_500, Emoji: "🏢"},
			{ID: 4, Name: "Corporation", Cost: 1_000_000, IncomeRate: 15_000, Emoji: "🏭"},
			{ID: 5, Name: "Billionaires LLC", Cost: 10_000_000, IncomeRate: 200_000, Emoji: "🏛️"},
		}},
		Cars: Catalog{Kind: Cars, Entries: []Entry{
			{ID: 1, Name: "Scooter", Cost: 5_000, IncomeRate: 40, Emoji: "🛵"},
			{ID: 2, Name: "Sedan", Cost: 40_000, IncomeRate: 450, Emoji: "🚗"},
			{ID: 3, Name: "Sports Car", Cost: 300_000, IncomeRate: 3_800, Emoji: "🏎️"},
			{ID: 4, Name: "Limousine", Cost: 2_000_000, IncomeRate: 28_000, Emoji: "🚘"},
			{ID: 5, Name: "Private Jet", Cost: 25_000_000, IncomeRate: 480_000, Emoji: "🛩️"},
		}},
	}
}

func (e *Economy) Catalog(kind CatalogKind) (Catalog, error) {
	switch kind {
	case Businesses:
		return e.Businesses, nil
	case Cars:
		return e.Cars, nil
	default:
		return Catalog{}, fmt.Errorf("%w: catalog %q", ErrUnknownEntry, kind)
	}
}

func (e *Economy) Validate() error {
	if err := e.Tiers.Validate(); err != nil {
		return err
	}
	if err := e.Businesses.validate(); err != nil {
		return err
	}
	return e.Cars.validate()
}
