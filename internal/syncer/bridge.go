// Package syncer moves session snapshots to and from the player store.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"riches/internal/clock"
	"riches/internal/game"
	"riches/internal/store"
)

// Remote is the part of the store contract the bridge needs. cli.Client
// implements it over HTTP.
type Remote interface {
	Register(ctx context.Context, username string) (store.Player, error)
	Fetch(ctx context.Context, username string) (store.Record, error)
	Update(ctx context.Context, in store.Update) (store.Player, error)
}

// PushTimeout bounds a single scheduled push.
const PushTimeout = 10 * time.Second

type Bridge struct {
	remote Remote
	econ   *game.Economy
	log    *slog.Logger
}

func New(remote Remote, econ *game.Economy, logger *slog.Logger) *Bridge {
	if econ == nil {
		econ = game.DefaultEconomy()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Bridge{remote: remote, econ: econ, log: logger}
}

func (b *Bridge) Register(ctx context.Context, username string) error {
	if _, err := b.remote.Register(ctx, username); err != nil {
		return fmt.Errorf("register %s: %w", username, err)
	}
	return nil
}

// Push writes the persisted state of snap, registering the player first if
// the store does not know it. Every catalog id is sent, unowned ones as
// zero, so rows for sold-out entries are removed remotely. The admin flag
// belongs to the store and is only written when Push creates the player.
func (b *Bridge) Push(ctx context.Context, snap game.Snapshot) error {
	in := store.Update{
		Username:     snap.Username,
		Balance:      store.Int64(snap.Balance),
		DonatBalance: store.Int64(snap.DonationBalance),
		Status:       store.String(snap.Tier),
		TotalClicks:  store.Int64(snap.TotalClicks),
		Businesses:   fullCounts(b.econ.Businesses, snap.Businesses),
		Cars:         fullCounts(b.econ.Cars, snap.Cars),
	}
	_, err := b.remote.Update(ctx, in)
	if errors.Is(err, game.ErrPlayerNotFound) {
		// Sessions that started offline were never registered.
		if err = b.Register(ctx, snap.Username); err == nil {
			if snap.IsAdmin {
				in.IsAdmin = store.Bool(true)
			}
			_, err = b.remote.Update(ctx, in)
		}
	}
	if err != nil {
		return fmt.Errorf("push %s: %w", snap.Username, err)
	}
	return nil
}

// MarkAdmin sets the stored admin flag for username.
func (b *Bridge) MarkAdmin(ctx context.Context, username string) error {
	if _, err := b.remote.Update(ctx, store.Update{Username: username, IsAdmin: store.Bool(true)}); err != nil {
		return fmt.Errorf("mark admin %s: %w", username, err)
	}
	return nil
}

func (b *Bridge) Pull(ctx context.Context, username string) (game.Snapshot, error) {
	rec, err := b.remote.Fetch(ctx, username)
	if err != nil {
		return game.Snapshot{}, fmt.Errorf("pull %s: %w", username, err)
	}
	return FromRecord(rec), nil
}

// Hydrate registers username and loads its stored state. On error the
// returned snapshot is a fresh one, so play can continue offline.
func (b *Bridge) Hydrate(ctx context.Context, username string) (game.Snapshot, error) {
	if err := b.Register(ctx, username); err != nil {
		b.log.Warn("hydrate: register failed, playing offline", "username", username, "err", err)
		return game.NewSnapshot(username), err
	}
	snap, err := b.Pull(ctx, username)
	if err != nil {
		b.log.Warn("hydrate: pull failed, playing offline", "username", username, "err", err)
		return game.NewSnapshot(username), err
	}
	return snap, nil
}

// Schedule pushes sess every interval until the task is stopped. Failures
// are logged and left for the next run.
func (b *Bridge) Schedule(clk clock.Clock, interval time.Duration, sess *game.Session) clock.Task {
	return clk.Every(interval, func() {
		ctx, cancel := context.WithTimeout(context.Background(), PushTimeout)
		defer cancel()
		if err := b.Push(ctx, sess.Snapshot()); err != nil {
			b.log.Warn("sync push failed", "username", sess.Username(), "err", err)
		}
	})
}

// FromRecord converts a stored record to a session snapshot.
func FromRecord(rec store.Record) game.Snapshot {
	snap := game.NewSnapshot(rec.Player.Username)
	snap.Balance = rec.Player.Balance
	snap.DonationBalance = rec.Player.DonatBalance
	snap.Tier = rec.Player.Status
	snap.TotalClicks = rec.Player.TotalClicks
	snap.TotalVisits = rec.Player.TotalVisits
	snap.LastVisit = rec.Player.LastVisit
	snap.IsAdmin = rec.Player.IsAdmin
	for _, row := range rec.Businesses {
		if row.Count > 0 {
			snap.Businesses[row.BusinessType] = row.Count
		}
	}
	for _, row := range rec.Cars {
		if row.Count > 0 {
			snap.Cars[row.CarType] = row.Count
		}
	}
	return snap
}

func fullCounts(c game.Catalog, owned map[int]int64) map[int]int64 {
	out := make(map[int]int64, len(c.Entries)+len(owned))
	for _, e := range c.Entries {
		out[e.ID] = 0
	}
	for id, n := range owned {
		out[id] = n
	}
	return out
}
