package game

import (
	"testing"
	"time"
)

type fakeClock struct {
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

// scriptedRand replays fixed draws; it panics when a test draws more than it scripted.
type scriptedRand struct {
	floats []float64
	ints   []int64
}

func (r *scriptedRand) Float64() float64 {
	v := r.floats[0]
	r.floats = r.floats[1:]
	return v
}

func (r *scriptedRand) Int63n(n int64) int64 {
	v := r.ints[0]
	r.ints = r.ints[1:]
	if v >= n {
		return n - 1
	}
	return v
}

func TestSalePrice(t *testing.T) {
	tests := []struct {
		cost int64
		want int64
	}{
		{cost: 10_000, want: 5_500},
		{cost: 5_000, want: 2_750},
		{cost: 1, want: 0},
		{cost: 99, want: 54},
		{cost: 250_001, want: 137_500},
	}
	for _, tc := range tests {
		if got := SalePrice(tc.cost); got != tc.want {
			t.Fatalf("cost=%d got=%d want=%d", tc.cost, got, tc.want)
		}
	}
}

func TestGamblePayout(t *testing.T) {
	tests := []struct {
		bet  int64
		want int64
	}{
		{bet: 1_000, want: 1_500},
		{bet: 1, want: 1},
		{bet: 3, want: 4},
		{bet: 1_000_001, want: 1_500_001},
	}
	for _, tc := range tests {
		if got := GamblePayout(tc.bet); got != tc.want {
			t.Fatalf("bet=%d got=%d want=%d", tc.bet, got, tc.want)
		}
	}
}

func TestParseRewardPolicy(t *testing.T) {
	p, err := ParseRewardPolicy("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := p.(TierReward); !ok {
		t.Fatalf("default policy = %T, want TierReward", p)
	}
	p, err = ParseRewardPolicy("Random")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	r, ok := p.(RangeReward)
	if !ok || r.Min != RandomClaimMin || r.Max != RandomClaimMax {
		t.Fatalf("random policy = %#v", p)
	}
	if _, err := ParseRewardPolicy("lottery"); err == nil {
		t.Fatalf("expected unknown policy to fail")
	}
}

func TestRangeRewardBounds(t *testing.T) {
	policy := RangeReward{Min: RandomClaimMin, Max: RandomClaimMax}
	low := policy.Reward(Tier{}, &scriptedRand{ints: []int64{0}})
	if low != 356 {
		t.Fatalf("low draw = %d, want 356", low)
	}
	high := policy.Reward(Tier{}, &scriptedRand{ints: []int64{RandomClaimMax - RandomClaimMin}})
	if high != 2000 {
		t.Fatalf("high draw = %d, want 2000", high)
	}

	rng := NewRandomSource(7)
	for i := 0; i < 1_000; i++ {
		got := policy.Reward(Tier{}, rng)
		if got < 356 || got > 2000 {
			t.Fatalf("reward %d outside [356, 2000]", got)
		}
	}
}
