package game

import (
	"fmt"
	mathrand "math/rand"
	"strings"
	"sync"
	"time"
)

// RandomSource is the only way the engine draws randomness. *math/rand.Rand
// satisfies it.
type RandomSource interface {
	Float64() float64
	Int63n(n int64) int64
}

// lockedRand makes a *rand.Rand safe to share between goroutines.
type lockedRand struct {
	mu   sync.Mutex
	rand *mathrand.Rand
}

func NewRandomSource(seed int64) RandomSource {
	return &lockedRand{rand: mathrand.New(mathrand.NewSource(seed))}
}

func NewTimeSeededSource() RandomSource {
	return NewRandomSource(time.Now().UnixNano())
}

func (r *lockedRand) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Float64()
}

func (r *lockedRand) Int63n(n int64) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Int63n(n)
}

// RewardPolicy decides what a successful manual claim credits.
type RewardPolicy interface {
	Reward(tier Tier, rng RandomSource) int64
}

// TierReward credits the current tier's click income.
type TierReward struct{}

func (TierReward) Reward(tier Tier, _ RandomSource) int64 {
	return tier.ClickIncome
}

// RangeReward credits a uniform integer in [Min, Max], ignoring tier.
type RangeReward struct {
	Min int64
	Max int64
}

func (r RangeReward) Reward(_ Tier, rng RandomSource) int64 {
	if r.Max <= r.Min {
		return r.Min
	}
	return r.Min + rng.Int63n(r.Max-r.Min+1)
}

func ParseRewardPolicy(name string) (RewardPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "tier":
		return TierReward{}, nil
	case "random":
		return RangeReward{Min: RandomClaimMin, Max: RandomClaimMax}, nil
	default:
		return nil, fmt.Errorf("unknown claim reward policy %q (want tier or random)", name)
	}
}
