package game

import "time"

// Snapshot is the full persisted state of a session.
type Snapshot struct {
	Username        string        `json:"username"`
	Balance         int64         `json:"balance"`
	DonationBalance int64         `json:"donat_balance"`
	Tier            string        `json:"status"`
	Businesses      map[int]int64 `json:"businesses"`
	Cars            map[int]int64 `json:"cars"`
	TotalClicks     int64         `json:"total_clicks"`
	TotalVisits     int64         `json:"total_visits"`
	LastVisit       time.Time     `json:"last_visit"`
	IsAdmin         bool          `json:"is_admin"`
}

// NewSnapshot is the state of a player that has never been persisted.
func NewSnapshot(username string) Snapshot {
	return Snapshot{
		Username:   username,
		Businesses: map[int]int64{},
		Cars:       map[int]int64{},
	}
}

// View is what the presentation layer renders.
type View struct {
	Username         string        `json:"username"`
	Balance          int64         `json:"balance"`
	DonationBalance  int64         `json:"donat_balance"`
	Tier             Tier          `json:"tier"`
	PassiveIncome    int64         `json:"passive_income"`
	Businesses       map[int]int64 `json:"businesses"`
	Cars             map[int]int64 `json:"cars"`
	TotalClicks      int64         `json:"total_clicks"`
	TotalVisits      int64         `json:"total_visits"`
	LastVisit        time.Time     `json:"last_visit"`
	IsAdmin          bool          `json:"is_admin"`
	ClaimAvailableAt time.Time     `json:"claim_available_at"`
}

type EventKind string

const (
	EventPromotion     EventKind = "promotion"
	EventPassiveIncome EventKind = "passive_income"
)

type Event struct {
	// Seq increases by one per event within a session.
	Seq      uint64    `json:"seq"`
	Kind     EventKind `json:"kind"`
	Tier     Tier      `json:"tier"`
	Previous Tier      `json:"previous"`
	Amount   int64     `json:"amount"`
	At       time.Time `json:"at"`
}

// Promoted reports whether a tier event moved the player up.
func (e Event) Promoted() bool {
	return e.Tier.Rank > e.Previous.Rank
}

type ClaimResult struct {
	Reward  int64 `json:"reward"`
	Balance int64 `json:"balance"`
}

type PurchaseResult struct {
	Entry   Entry `json:"entry"`
	Owned   int64 `json:"owned"`
	Balance int64 `json:"balance"`
}

type GambleResult struct {
	Bet     int64 `json:"bet"`
	Won     bool  `json:"won"`
	Delta   int64 `json:"delta"`
	Balance int64 `json:"balance"`
}
