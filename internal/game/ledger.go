package game

import "fmt"

// Ledger tracks owned counts for both catalogs. It never touches a balance
// itself: Buy and Sell take the current balance and return the new one so the
// caller can commit both changes together or neither.
type Ledger struct {
	econ  *Economy
	owned map[CatalogKind]map[int]int64
}

func NewLedger(econ *Economy) *Ledger {
	return &Ledger{
		econ: econ,
		owned: map[CatalogKind]map[int]int64{
			Businesses: {},
			Cars:       {},
		},
	}
}

func (l *Ledger) Owned(kind CatalogKind, id int) int64 {
	return l.owned[kind][id]
}

// Counts returns a copy of the non-zero counts of one catalog.
func (l *Ledger) Counts(kind CatalogKind) map[int]int64 {
	out := make(map[int]int64, len(l.owned[kind]))
	for id, n := range l.owned[kind] {
		if n > 0 {
			out[id] = n
		}
	}
	return out
}

// Load replaces one catalog's counts. Ids missing from the catalog and
// non-positive counts are dropped.
func (l *Ledger) Load(kind CatalogKind, counts map[int]int64) error {
	cat, err := l.econ.Catalog(kind)
	if err != nil {
		return err
	}
	next := make(map[int]int64, len(counts))
	for id, n := range counts {
		if n <= 0 {
			continue
		}
		if _, ok := cat.Entry(id); !ok {
			continue
		}
		next[id] = n
	}
	l.owned[kind] = next
	return nil
}

func (l *Ledger) Buy(kind CatalogKind, id int, balance int64) (int64, Entry, error) {
	entry, err := l.entry(kind, id)
	if err != nil {
		return balance, Entry{}, err
	}
	if balance < entry.Cost {
		return balance, entry, fmt.Errorf("%w: %s costs %d, balance %d", ErrInsufficientFunds, entry.Name, entry.Cost, balance)
	}
	l.owned[kind][id]++
	return balance - entry.Cost, entry, nil
}

type SaleResult struct {
	Entry  Entry `json:"entry"`
	Sold   bool  `json:"sold"`
	Credit int64 `json:"credit"`
}

// Sell with nothing owned is a rejected no-op, not an error.
func (l *Ledger) Sell(kind CatalogKind, id int, balance int64) (int64, SaleResult, error) {
	entry, err := l.entry(kind, id)
	if err != nil {
		return balance, SaleResult{}, err
	}
	if l.owned[kind][id] <= 0 {
		return balance, SaleResult{Entry: entry}, nil
	}
	credit := SalePrice(entry.Cost)
	l.owned[kind][id]--
	if l.owned[kind][id] == 0 {
		delete(l.owned[kind], id)
	}
	return balance + credit, SaleResult{Entry: entry, Sold: true, Credit: credit}, nil
}

// PassiveIncomeRate recomputes the per-second income from scratch across
// both catalogs.
func (l *Ledger) PassiveIncomeRate() int64 {
	var total int64
	for _, cat := range []Catalog{l.econ.Businesses, l.econ.Cars} {
		for id, n := range l.owned[cat.Kind] {
			if entry, ok := cat.Entry(id); ok {
				total += entry.IncomeRate * n
			}
		}
	}
	return total
}

func (l *Ledger) entry(kind CatalogKind, id int) (Entry, error) {
	cat, err := l.econ.Catalog(kind)
	if err != nil {
		return Entry{}, err
	}
	entry, ok := cat.Entry(id)
	if !ok {
		return Entry{}, fmt.Errorf("%w: %s %d", ErrUnknownEntry, kind, id)
	}
	return entry, nil
}
