package engine

import (
	"context"
	"errors"
	"fmt"
	"net/http/httptest"
	"testing"
	"time"

	"riches/internal/admin"
	"riches/internal/api"
	"riches/internal/auth"
	"riches/internal/cli"
	"riches/internal/clock"
	"riches/internal/config"
	"riches/internal/game"
	"riches/internal/store"
)

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

type memOutbox struct{ queued []game.Snapshot }

func (o *memOutbox) Push(snap game.Snapshot) error {
	o.queued = append(o.queued, snap)
	return nil
}

type downRemote struct{}

func (downRemote) Register(context.Context, string) (store.Player, error) {
	return store.Player{}, game.ErrRemoteUnavailable
}

func (downRemote) Fetch(context.Context, string) (store.Record, error) {
	return store.Record{}, game.ErrRemoteUnavailable
}

func (downRemote) Update(context.Context, store.Update) (store.Player, error) {
	return store.Player{}, game.ErrRemoteUnavailable
}

func (downRemote) Roster(context.Context) ([]store.Player, error) {
	return nil, game.ErrRemoteUnavailable
}

type harness struct {
	clk    *clock.Manual
	mem    *store.Memory
	outbox *memOutbox
	remote Remote
	engine *Engine
}

func newHarness(t *testing.T, remote Remote) *harness {
	t.Helper()
	h := &harness{clk: clock.NewManual(epoch), mem: store.NewMemory(), outbox: &memOutbox{}}
	if remote == nil {
		ts := httptest.NewServer(api.New(config.StoreConfig{RosterLimit: 100}, nil, h.mem).Handler())
		t.Cleanup(ts.Close)
		remote = cli.NewClient(ts.URL)
	}
	h.remote = remote
	h.engine = New(Config{
		Clock:     h.clk,
		Random:    game.NewRandomSource(1),
		TickEvery: time.Second,
		SyncEvery: 5 * time.Second,
	}, auth.New("plutka", "123", h.clk), remote, h.outbox)
	return h
}

func guestName() string {
	return fmt.Sprintf("guest_%d", epoch.UnixMilli())
}

func TestPassiveIncomePromotesOnceAndSyncs(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)
	name := guestName()
	if _, err := h.mem.Register(ctx, name); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := h.mem.Update(ctx, store.Update{Username: name, Balance: store.Int64(99_000), Businesses: map[int]int64{2: 2}}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	var events []game.Event
	g, err := h.engine.Login(ctx, auth.Credentials{Mode: auth.Guest}, func(ev game.Event) { events = append(events, ev) })
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if !g.Online || g.Admin != nil {
		t.Fatalf("online=%v admin=%v", g.Online, g.Admin)
	}

	h.clk.Advance(5 * time.Second)

	promotions := 0
	for _, ev := range events {
		if ev.Kind == game.EventPromotion {
			promotions++
			if ev.Tier.Name != "Rich" || !ev.Promoted() {
				t.Fatalf("unexpected promotion: %+v", ev)
			}
		}
	}
	if promotions != 1 {
		t.Fatalf("promotions=%d want 1", promotions)
	}

	rec, err := h.mem.Visit(ctx, name)
	if err != nil {
		t.Fatalf("visit: %v", err)
	}
	if rec.Player.Balance != 105_000 || rec.Player.Status != "Rich" {
		t.Fatalf("synced player=%+v", rec.Player)
	}

	res, err := g.Session.Claim()
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if res.Reward != 500 {
		t.Fatalf("reward=%d want 500", res.Reward)
	}

	if err := g.Logout(ctx); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if h.clk.Pending() != 0 {
		t.Fatalf("tasks still armed: %d", h.clk.Pending())
	}
	rec, err = h.mem.Visit(ctx, name)
	if err != nil {
		t.Fatalf("visit: %v", err)
	}
	if rec.Player.Balance != 105_500 || rec.Player.TotalClicks != 1 {
		t.Fatalf("flushed player=%+v", rec.Player)
	}
	if _, err := g.Session.Claim(); !errors.Is(err, game.ErrSessionClosed) {
		t.Fatalf("expected ErrSessionClosed, got %v", err)
	}
}

func TestOfflineGuestQueuesFinalSnapshot(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, downRemote{})

	g, err := h.engine.Login(ctx, auth.Credentials{Mode: auth.Guest}, nil)
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if g.Online {
		t.Fatalf("expected offline session")
	}
	if _, err := g.Session.Claim(); err != nil {
		t.Fatalf("claim offline: %v", err)
	}
	h.clk.Advance(10 * time.Second)

	err = g.Logout(ctx)
	if !errors.Is(err, game.ErrRemoteUnavailable) {
		t.Fatalf("expected ErrRemoteUnavailable, got %v", err)
	}
	if len(h.outbox.queued) != 1 || h.outbox.queued[0].Balance != 100 {
		t.Fatalf("outbox=%+v", h.outbox.queued)
	}
	if again := g.Logout(ctx); !errors.Is(again, game.ErrRemoteUnavailable) || len(h.outbox.queued) != 1 {
		t.Fatalf("second logout flushed again: %v", again)
	}
}

func TestResumeRequiresStore(t *testing.T) {
	h := newHarness(t, downRemote{})
	_, err := h.engine.Login(context.Background(), auth.Credentials{Mode: auth.Resume, Username: "guest_1"}, nil)
	if !errors.Is(err, game.ErrRemoteUnavailable) {
		t.Fatalf("expected ErrRemoteUnavailable, got %v", err)
	}
	if h.clk.Pending() != 0 {
		t.Fatalf("tasks armed for failed login")
	}
}

func TestAdminLogin(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)

	if _, err := h.engine.Login(ctx, auth.Credentials{Mode: auth.Admin, Login: "plutka", Password: "nope"}, nil); !errors.Is(err, game.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}

	g, err := h.engine.Login(ctx, auth.Credentials{Mode: auth.Admin, Login: "plutka", Password: "123"}, nil)
	if err != nil {
		t.Fatalf("admin login: %v", err)
	}
	if g.Admin == nil || !g.Session.IsAdmin() {
		t.Fatalf("admin channel missing")
	}
	roster, err := g.Admin.ListRoster(ctx)
	if err != nil {
		t.Fatalf("roster: %v", err)
	}
	if len(roster) != 1 || roster[0].Username != g.Session.Username() {
		t.Fatalf("roster=%+v", roster)
	}
	if err := g.Logout(ctx); err != nil {
		t.Fatalf("logout: %v", err)
	}
	rec, err := h.mem.Visit(ctx, g.Session.Username())
	if err != nil {
		t.Fatalf("visit: %v", err)
	}
	if !rec.Player.IsAdmin {
		t.Fatalf("admin flag not persisted")
	}
}

func TestResumedPlayerKeepsStoredAdminFlag(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)
	if _, err := h.mem.Register(ctx, "guest_7"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := h.mem.Update(ctx, store.Update{Username: "guest_7", IsAdmin: store.Bool(true)}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	g, err := h.engine.Login(ctx, auth.Credentials{Mode: auth.Resume, Username: "guest_7"}, nil)
	if err != nil {
		t.Fatalf("resume: %v", err)
	}
	if g.Admin == nil {
		t.Fatalf("stored admin flag ignored")
	}
	_ = g.Logout(ctx)
}

func TestPromotionSurvivesTargetSync(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)

	g, err := h.engine.Login(ctx, auth.Credentials{Mode: auth.Guest}, nil)
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	ch, err := admin.New(h.remote, game.DefaultEconomy().Tiers, true, nil)
	if err != nil {
		t.Fatalf("admin channel: %v", err)
	}
	if _, err := ch.ListRoster(ctx); err != nil {
		t.Fatalf("roster: %v", err)
	}
	if err := ch.PromoteToAdmin(ctx, g.Session.Username()); err != nil {
		t.Fatalf("promote: %v", err)
	}

	h.clk.Advance(6 * time.Second)

	rec, err := h.mem.Visit(ctx, g.Session.Username())
	if err != nil {
		t.Fatalf("visit: %v", err)
	}
	if !rec.Player.IsAdmin {
		t.Fatalf("promotion reverted by scheduled sync: %+v", rec.Player)
	}
	if err := g.Logout(ctx); err != nil {
		t.Fatalf("logout: %v", err)
	}
	rec, err = h.mem.Visit(ctx, g.Session.Username())
	if err != nil {
		t.Fatalf("visit: %v", err)
	}
	if !rec.Player.IsAdmin {
		t.Fatalf("promotion reverted by logout flush: %+v", rec.Player)
	}
}
