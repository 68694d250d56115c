package store

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Memory keeps every player in process memory. Insertion order breaks
// balance ties in the roster.
type Memory struct {
	mu      sync.RWMutex
	players map[string]*memPlayer
	order   []string
	nextID  int64
	now     func() time.Time
}

type memPlayer struct {
	Player
	businesses map[int]int64
	cars       map[int]int64
}

func NewMemory() *Memory {
	return &Memory{
		players: make(map[string]*memPlayer),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (m *Memory) Register(_ context.Context, username string) (Player, error) {
	username, err := normalizeUsername(username)
	if err != nil {
		return Player{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.players[username]; ok {
		return p.Player, nil
	}
	m.nextID++
	now := m.now()
	p := &memPlayer{
		Player: Player{
			ID:        m.nextID,
			Username:  username,
			Status:    DefaultStatus,
			CreatedAt: now,
			UpdatedAt: now,
		},
		businesses: map[int]int64{},
		cars:       map[int]int64{},
	}
	m.players[username] = p
	m.order = append(m.order, username)
	return p.Player, nil
}

func (m *Memory) Visit(_ context.Context, username string) (Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.players[username]
	if !ok {
		return Record{}, ErrNotFound
	}
	out := Record{
		Player:     p.Player,
		Businesses: make([]BusinessRow, 0, len(p.businesses)),
		Cars:       make([]CarRow, 0, len(p.cars)),
	}
	for _, id := range sortedKeys(p.businesses) {
		out.Businesses = append(out.Businesses, BusinessRow{BusinessType: id, Count: p.businesses[id]})
	}
	for _, id := range sortedKeys(p.cars) {
		out.Cars = append(out.Cars, CarRow{CarType: id, Count: p.cars[id]})
	}
	// The returned row is the one read before the visit is recorded.
	p.TotalVisits++
	p.LastVisit = m.now()
	return out, nil
}

func (m *Memory) Roster(_ context.Context, limit int) ([]Player, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Player, 0, len(m.order))
	for _, username := range m.order {
		out = append(out, m.players[username].Player)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Balance > out[j].Balance })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *Memory) Update(_ context.Context, in Update) (Player, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.players[in.Username]
	if !ok {
		return Player{}, ErrNotFound
	}
	changed := false
	if in.Balance != nil {
		p.Balance = *in.Balance
		changed = true
	}
	if in.DonatBalance != nil {
		p.DonatBalance = *in.DonatBalance
		changed = true
	}
	if in.Status != nil {
		p.Status = *in.Status
		changed = true
	}
	if in.IsAdmin != nil {
		p.IsAdmin = *in.IsAdmin
		changed = true
	}
	if in.TotalClicks != nil {
		p.TotalClicks = *in.TotalClicks
		changed = true
	}
	if changed {
		p.UpdatedAt = m.now()
	}
	mergeCounts(p.businesses, in.Businesses)
	mergeCounts(p.cars, in.Cars)
	return p.Player, nil
}

func mergeCounts(dst, src map[int]int64) {
	for id, n := range src {
		if n > 0 {
			dst[id] = n
		} else {
			delete(dst, id)
		}
	}
}

func sortedKeys(m map[int]int64) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}
