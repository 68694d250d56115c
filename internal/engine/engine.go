// Package engine wires a logged-in player to the income scheduler and the
// sync bridge, and tears both down on logout.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"riches/internal/admin"
	"riches/internal/auth"
	"riches/internal/clock"
	"riches/internal/game"
	"riches/internal/syncer"
)

type Remote interface {
	syncer.Remote
	admin.Remote
}

// Outbox keeps snapshots whose final flush failed.
type Outbox interface {
	Push(snap game.Snapshot) error
}

type Config struct {
	Economy   *game.Economy
	Clock     clock.Clock
	Random    game.RandomSource
	Reward    game.RewardPolicy
	TickEvery time.Duration
	SyncEvery time.Duration
	// FlushTimeout bounds the final push on logout.
	FlushTimeout time.Duration
	Logger       *slog.Logger
}

type Engine struct {
	cfg    Config
	auth   *auth.Authenticator
	remote Remote
	bridge *syncer.Bridge
	outbox Outbox
	log    *slog.Logger
}

// New builds an engine. outbox may be nil, in which case a failed logout
// flush is only logged.
func New(cfg Config, authn *auth.Authenticator, remote Remote, outbox Outbox) *Engine {
	if cfg.Economy == nil {
		cfg.Economy = game.DefaultEconomy()
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.Real{}
	}
	if cfg.TickEvery <= 0 {
		cfg.TickEvery = game.PassiveInterval
	}
	if cfg.SyncEvery <= 0 {
		cfg.SyncEvery = game.SyncInterval
	}
	if cfg.FlushTimeout <= 0 {
		cfg.FlushTimeout = syncer.PushTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Engine{
		cfg:    cfg,
		auth:   authn,
		remote: remote,
		bridge: syncer.New(remote, cfg.Economy, cfg.Logger),
		outbox: outbox,
		log:    cfg.Logger,
	}
}

func (e *Engine) Bridge() *syncer.Bridge {
	return e.bridge
}

// Game is one running session with its scheduled tasks.
type Game struct {
	Session *game.Session
	// Admin is nil unless the player logged in as an admin.
	Admin *admin.Channel
	// Online is false when hydration failed and the session started fresh.
	Online bool

	tasks  []clock.Task
	engine *Engine
	once   sync.Once
	err    error
}

// Login authenticates, hydrates the player from the store and starts the
// income and sync tasks. Guests and admins fall back to offline play when
// the store is unreachable; a resumed player does not, since a fresh state
// would overwrite the stored one on the next sync.
func (e *Engine) Login(ctx context.Context, creds auth.Credentials, onEvent func(game.Event)) (*Game, error) {
	id, err := e.auth.Login(creds)
	if err != nil {
		return nil, err
	}
	snap, herr := e.bridge.Hydrate(ctx, id.Username)
	if herr != nil && creds.Mode == auth.Resume {
		return nil, fmt.Errorf("resume %s: %w", id.Username, herr)
	}
	if id.IsAdmin && !snap.IsAdmin && herr == nil {
		if err := e.bridge.MarkAdmin(ctx, id.Username); err != nil {
			e.log.Warn("admin flag not stored", "username", id.Username, "err", err)
		}
	}
	snap.IsAdmin = snap.IsAdmin || id.IsAdmin

	sess, err := game.NewSession(snap, game.Options{
		Economy: e.cfg.Economy,
		Clock:   e.cfg.Clock,
		Random:  e.cfg.Random,
		Reward:  e.cfg.Reward,
		OnEvent: onEvent,
		Logger:  e.log,
	})
	if err != nil {
		return nil, err
	}

	g := &Game{Session: sess, Online: herr == nil, engine: e}
	if snap.IsAdmin {
		ch, err := admin.New(e.remote, e.cfg.Economy.Tiers, true, e.log)
		if err != nil {
			return nil, err
		}
		g.Admin = ch
	}
	g.tasks = append(g.tasks,
		e.cfg.Clock.Every(e.cfg.TickEvery, func() { sess.Tick() }),
		e.bridge.Schedule(e.cfg.Clock, e.cfg.SyncEvery, sess),
	)
	e.log.Info("session started", "username", id.Username, "admin", snap.IsAdmin, "online", g.Online)
	return g, nil
}

// Logout stops the scheduled tasks, closes the session and pushes its final
// snapshot. When that push fails the snapshot goes to the outbox and the
// push error is returned. Later calls return the first result.
func (g *Game) Logout(ctx context.Context) error {
	g.once.Do(func() {
		for _, t := range g.tasks {
			t.Stop()
		}
		g.Session.Close()
		g.err = g.engine.flush(ctx, g.Session.Snapshot())
	})
	return g.err
}

func (e *Engine) flush(ctx context.Context, snap game.Snapshot) error {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.FlushTimeout)
	defer cancel()
	err := e.bridge.Push(ctx, snap)
	if err == nil {
		e.log.Info("session flushed", "username", snap.Username, "balance", snap.Balance)
		return nil
	}
	e.log.Warn("final push failed", "username", snap.Username, "err", err)
	if e.outbox == nil {
		return err
	}
	if qerr := e.outbox.Push(snap); qerr != nil {
		return errors.Join(err, fmt.Errorf("queue snapshot: %w", qerr))
	}
	return err
}
