package game

import (
	"errors"
	"time"
)

const (
	ClaimCooldown   = time.Second
	PassiveInterval = time.Second
	SyncInterval    = 5 * time.Second

	// Sale price is cost*SellRecoveryPercent/100, rounded down.
	SellRecoveryPercent = int64(55)

	// A gamble wins when the drawn float is strictly above the threshold (40% of draws).
	GambleWinThreshold = 0.6

	RandomClaimMin = int64(356)
	RandomClaimMax = int64(2000)
)

var (
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrCooldownActive     = errors.New("claim cooldown active")
	ErrRemoteUnavailable  = errors.New("remote store unavailable")
	ErrTargetNotFound     = errors.New("target player not found")
	ErrPlayerNotFound     = errors.New("player not found")
	ErrInvalidCredentials = errors.New("invalid login or password")
	ErrUnknownEntry       = errors.New("unknown catalog entry")
	ErrUnknownTier        = errors.New("unknown tier")
	ErrInvalidAmount      = errors.New("amount must be a positive integer")
	ErrNotAdmin           = errors.New("admin capability required")
	ErrSessionClosed      = errors.New("session closed")
)

// SalePrice is what the bank pays back for one unit of an entry.
func SalePrice(cost int64) int64 {
	return cost * SellRecoveryPercent / 100
}

// GamblePayout is floor(bet * 1.5) for a positive bet.
func GamblePayout(bet int64) int64 {
	return bet + bet/2
}
