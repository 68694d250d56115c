// Package admin holds the privileged operations an admin session can run
// against other players' stored records.
package admin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"riches/internal/game"
	"riches/internal/store"
)

type Remote interface {
	Roster(ctx context.Context) ([]store.Player, error)
	Update(ctx context.Context, in store.Update) (store.Player, error)
}

// Channel caches the roster it last fetched. Mutations are only allowed on
// usernames present in that cache, and refresh it on success.
type Channel struct {
	remote Remote
	tiers  game.TierTable
	log    *slog.Logger

	mu     sync.Mutex
	roster []store.Player
}

// New returns ErrNotAdmin unless isAdmin is set. The flag is trusted as given.
func New(remote Remote, tiers game.TierTable, isAdmin bool, logger *slog.Logger) (*Channel, error) {
	if !isAdmin {
		return nil, game.ErrNotAdmin
	}
	if len(tiers) == 0 {
		tiers = game.DefaultTiers
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Channel{remote: remote, tiers: tiers, log: logger}, nil
}

func (c *Channel) ListRoster(ctx context.Context) ([]store.Player, error) {
	players, err := c.remote.Roster(ctx)
	if err != nil {
		return nil, fmt.Errorf("roster: %w", err)
	}
	c.mu.Lock()
	c.roster = players
	c.mu.Unlock()
	out := make([]store.Player, len(players))
	copy(out, players)
	return out, nil
}

// Cached returns the roster from the last successful fetch.
func (c *Channel) Cached() []store.Player {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]store.Player, len(c.roster))
	copy(out, c.roster)
	return out
}

// GrantCurrency adds amount to the target's cached balance and writes the
// sum as the new stored balance.
func (c *Channel) GrantCurrency(ctx context.Context, username string, amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("%w: grant must be positive", game.ErrInvalidAmount)
	}
	target, err := c.target(username)
	if err != nil {
		return err
	}
	return c.apply(ctx, store.Update{Username: target.Username, Balance: store.Int64(target.Balance + amount)})
}

// SetTier overwrites the stored tier name. The target's own session
// recomputes its tier from balance on its next push.
func (c *Channel) SetTier(ctx context.Context, username, tierName string) error {
	tier, ok := c.tiers.ByName(tierName)
	if !ok {
		return fmt.Errorf("%w: %q", game.ErrUnknownTier, tierName)
	}
	target, err := c.target(username)
	if err != nil {
		return err
	}
	return c.apply(ctx, store.Update{Username: target.Username, Status: store.String(tier.Name)})
}

func (c *Channel) PromoteToAdmin(ctx context.Context, username string) error {
	target, err := c.target(username)
	if err != nil {
		return err
	}
	return c.apply(ctx, store.Update{Username: target.Username, IsAdmin: store.Bool(true)})
}

func (c *Channel) target(username string) (store.Player, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, p := range c.roster {
		if p.Username == username {
			return p, nil
		}
	}
	return store.Player{}, fmt.Errorf("%w: %q", game.ErrTargetNotFound, username)
}

func (c *Channel) apply(ctx context.Context, in store.Update) error {
	if _, err := c.remote.Update(ctx, in); err != nil {
		if errors.Is(err, game.ErrPlayerNotFound) {
			return fmt.Errorf("%w: %q", game.ErrTargetNotFound, in.Username)
		}
		return fmt.Errorf("admin update %s: %w", in.Username, err)
	}
	c.log.Info("admin override applied", "target", in.Username)
	if _, err := c.ListRoster(ctx); err != nil {
		c.log.Warn("roster refresh failed", "err", err)
	}
	return nil
}
