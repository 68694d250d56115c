package game

import (
	"fmt"
	"log/slog"
	"sync"
	"time"
)

type Clock interface {
	Now() time.Time
}

type Options struct {
	Economy *Economy
	Clock   Clock
	Random  RandomSource
	Reward  RewardPolicy
	// OnEvent receives promotions and passive income updates. It is called
	// after the session lock is released, in the order the state changed
	// (see Event.Seq), and must not block or call back into the session.
	OnEvent func(Event)
	Logger  *slog.Logger
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Session is the authoritative in-memory state of one logged-in player.
// Every handler (actions, ticks, snapshots) runs under one mutex, so balance
// and ownership changes never interleave.
type Session struct {
	mu      sync.Mutex
	emitMu  sync.Mutex
	seq     uint64
	pending []Event
	econ    *Economy
	clock   Clock
	rng     RandomSource
	reward  RewardPolicy
	onEvent func(Event)
	log     *slog.Logger

	username    string
	balance     int64
	donation    int64
	tier        Tier
	ledger      *Ledger
	passiveRate int64
	totalClicks int64
	totalVisits int64
	lastVisit   time.Time
	isAdmin     bool
	lastClaim   time.Time
	closed      bool
}

// NewSession hydrates a session from a snapshot. The tier is always resolved
// from the balance; the persisted tier name is ignored.
func NewSession(snap Snapshot, opts Options) (*Session, error) {
	if opts.Economy == nil {
		opts.Economy = DefaultEconomy()
	}
	if opts.Clock == nil {
		opts.Clock = systemClock{}
	}
	if opts.Random == nil {
		opts.Random = NewTimeSeededSource()
	}
	if opts.Reward == nil {
		opts.Reward = TierReward{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if snap.Username == "" {
		return nil, fmt.Errorf("username is required")
	}

	ledger := NewLedger(opts.Economy)
	if err := ledger.Load(Businesses, snap.Businesses); err != nil {
		return nil, err
	}
	if err := ledger.Load(Cars, snap.Cars); err != nil {
		return nil, err
	}
	s := &Session{
		econ:        opts.Economy,
		clock:       opts.Clock,
		rng:         opts.Random,
		reward:      opts.Reward,
		onEvent:     opts.OnEvent,
		log:         opts.Logger.With("username", snap.Username),
		username:    snap.Username,
		balance:     snap.Balance,
		donation:    snap.DonationBalance,
		tier:        opts.Economy.Tiers.Resolve(snap.Balance),
		ledger:      ledger,
		passiveRate: ledger.PassiveIncomeRate(),
		totalClicks: snap.TotalClicks,
		totalVisits: snap.TotalVisits,
		lastVisit:   snap.LastVisit,
		isAdmin:     snap.IsAdmin,
	}
	return s, nil
}

func (s *Session) Username() string {
	return s.username
}

func (s *Session) IsAdmin() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isAdmin
}

func (s *Session) Economy() *Economy {
	return s.econ
}

// Claim credits the manual reward at most once per ClaimCooldown.
func (s *Session) Claim() (ClaimResult, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ClaimResult{}, ErrSessionClosed
	}
	now := s.clock.Now()
	if !s.lastClaim.IsZero() {
		if wait := ClaimCooldown - now.Sub(s.lastClaim); wait > 0 {
			s.mu.Unlock()
			return ClaimResult{}, fmt.Errorf("%w: retry in %s", ErrCooldownActive, wait.Round(time.Millisecond))
		}
	}
	reward := s.reward.Reward(s.tier, s.rng)
	s.balance += reward
	s.lastClaim = now
	s.totalClicks++
	s.retierLocked(now)
	out := ClaimResult{Reward: reward, Balance: s.balance}
	s.mu.Unlock()

	s.drain()
	return out, nil
}

func (s *Session) Buy(kind CatalogKind, id int) (PurchaseResult, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return PurchaseResult{}, ErrSessionClosed
	}
	balance, entry, err := s.ledger.Buy(kind, id, s.balance)
	if err != nil {
		s.mu.Unlock()
		return PurchaseResult{}, err
	}
	s.balance = balance
	s.passiveRate = s.ledger.PassiveIncomeRate()
	s.retierLocked(s.clock.Now())
	out := PurchaseResult{Entry: entry, Owned: s.ledger.Owned(kind, id), Balance: s.balance}
	s.mu.Unlock()

	s.drain()
	return out, nil
}

// Sell returns Sold=false without error when nothing of the entry is owned.
func (s *Session) Sell(kind CatalogKind, id int) (SaleResult, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return SaleResult{}, ErrSessionClosed
	}
	balance, res, err := s.ledger.Sell(kind, id, s.balance)
	if err != nil || !res.Sold {
		s.mu.Unlock()
		return res, err
	}
	s.balance = balance
	s.passiveRate = s.ledger.PassiveIncomeRate()
	s.retierLocked(s.clock.Now())
	s.mu.Unlock()

	s.drain()
	return res, nil
}

// Gamble wins with probability 0.4 (credit floor(bet*1.5)) and otherwise
// loses the bet.
func (s *Session) Gamble(bet int64) (GambleResult, error) {
	if bet <= 0 {
		return GambleResult{}, ErrInvalidAmount
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return GambleResult{}, ErrSessionClosed
	}
	if s.balance < bet {
		s.mu.Unlock()
		return GambleResult{}, fmt.Errorf("%w: bet %d, balance %d", ErrInsufficientFunds, bet, s.balance)
	}
	out := GambleResult{Bet: bet}
	if s.rng.Float64() > GambleWinThreshold {
		out.Won = true
		out.Delta = GamblePayout(bet)
	} else {
		out.Delta = -bet
	}
	s.balance += out.Delta
	out.Balance = s.balance
	s.retierLocked(s.clock.Now())
	s.mu.Unlock()

	s.drain()
	return out, nil
}

// Tick applies one second of passive income. The rate is recomputed from the
// ledger on every call and always published, including zero.
func (s *Session) Tick() int64 {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return 0
	}
	now := s.clock.Now()
	rate := s.ledger.PassiveIncomeRate()
	s.passiveRate = rate
	if rate > 0 {
		s.balance += rate
	}
	s.queueLocked(Event{Kind: EventPassiveIncome, Tier: s.tier, Previous: s.tier, Amount: rate, At: now})
	s.retierLocked(now)
	s.mu.Unlock()

	s.drain()
	return rate
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		Username:        s.username,
		Balance:         s.balance,
		DonationBalance: s.donation,
		Tier:            s.tier.Name,
		Businesses:      s.ledger.Counts(Businesses),
		Cars:            s.ledger.Counts(Cars),
		TotalClicks:     s.totalClicks,
		TotalVisits:     s.totalVisits,
		LastVisit:       s.lastVisit,
		IsAdmin:         s.isAdmin,
	}
}

func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := View{
		Username:        s.username,
		Balance:         s.balance,
		DonationBalance: s.donation,
		Tier:            s.tier,
		PassiveIncome:   s.passiveRate,
		Businesses:      s.ledger.Counts(Businesses),
		Cars:            s.ledger.Counts(Cars),
		TotalClicks:     s.totalClicks,
		TotalVisits:     s.totalVisits,
		LastVisit:       s.lastVisit,
		IsAdmin:         s.isAdmin,
	}
	if !s.lastClaim.IsZero() {
		v.ClaimAvailableAt = s.lastClaim.Add(ClaimCooldown)
	}
	return v
}

// Close rejects every later action and tick. Snapshot and View keep working
// so a final flush can still read the state.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}

func (s *Session) retierLocked(now time.Time) {
	next := s.econ.Tiers.Resolve(s.balance)
	if next.Rank == s.tier.Rank {
		return
	}
	prev := s.tier
	s.tier = next
	s.log.Info("tier changed", "from", prev.Name, "to", next.Name, "balance", s.balance)
	s.queueLocked(Event{Kind: EventPromotion, Tier: next, Previous: prev, Amount: next.ClickIncome, At: now})
}

// queueLocked stamps ev and appends it to the delivery queue. Events enter
// the queue under s.mu, so queue order is state-change order.
func (s *Session) queueLocked(ev Event) {
	if s.onEvent == nil {
		return
	}
	s.seq++
	ev.Seq = s.seq
	s.pending = append(s.pending, ev)
}

// drain delivers queued events. Whichever caller holds emitMu delivers
// everything queued so far, including events queued by other goroutines.
func (s *Session) drain() {
	if s.onEvent == nil {
		return
	}
	s.emitMu.Lock()
	defer s.emitMu.Unlock()
	for {
		s.mu.Lock()
		batch := s.pending
		s.pending = nil
		s.mu.Unlock()
		if len(batch) == 0 {
			return
		}
		for _, ev := range batch {
			s.onEvent(ev)
		}
	}
}
