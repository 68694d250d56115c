package syncer

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"riches/internal/api"
	"riches/internal/cli"
	"riches/internal/clock"
	"riches/internal/config"
	"riches/internal/game"
	"riches/internal/store"
)

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func newRemote(t *testing.T) (*cli.Client, *store.Memory) {
	t.Helper()
	mem := store.NewMemory()
	ts := httptest.NewServer(api.New(config.StoreConfig{RosterLimit: 100}, nil, mem).Handler())
	t.Cleanup(ts.Close)
	return cli.NewClient(ts.URL), mem
}

type downRemote struct{ calls int }

func (d *downRemote) Register(context.Context, string) (store.Player, error) {
	d.calls++
	return store.Player{}, game.ErrRemoteUnavailable
}

func (d *downRemote) Fetch(context.Context, string) (store.Record, error) {
	d.calls++
	return store.Record{}, game.ErrRemoteUnavailable
}

func (d *downRemote) Update(context.Context, store.Update) (store.Player, error) {
	d.calls++
	return store.Player{}, game.ErrRemoteUnavailable
}

func TestPushThenPullRoundTrips(t *testing.T) {
	ctx := context.Background()
	remote, _ := newRemote(t)
	b := New(remote, nil, nil)

	snap, err := b.Hydrate(ctx, "guest_1")
	if err != nil {
		t.Fatalf("hydrate: %v", err)
	}
	snap.Balance = 10_000
	clk := clock.NewManual(epoch)
	sess, err := game.NewSession(snap, game.Options{Clock: clk})
	if err != nil {
		t.Fatalf("session: %v", err)
	}
	if _, err := sess.Buy(game.Businesses, 1); err != nil {
		t.Fatalf("buy: %v", err)
	}
	if _, err := sess.Claim(); err != nil {
		t.Fatalf("claim: %v", err)
	}

	pushed := sess.Snapshot()
	if err := b.Push(ctx, pushed); err != nil {
		t.Fatalf("push: %v", err)
	}
	pulled, err := b.Pull(ctx, "guest_1")
	if err != nil {
		t.Fatalf("pull: %v", err)
	}

	if pulled.Balance != pushed.Balance || pulled.DonationBalance != pushed.DonationBalance ||
		pulled.Tier != pushed.Tier || pulled.TotalClicks != pushed.TotalClicks || pulled.IsAdmin != pushed.IsAdmin {
		t.Fatalf("scalar mismatch: pushed=%+v pulled=%+v", pushed, pulled)
	}
	if len(pulled.Businesses) != 1 || pulled.Businesses[1] != 1 || len(pulled.Cars) != 0 {
		t.Fatalf("ownership mismatch: %+v %+v", pulled.Businesses, pulled.Cars)
	}
	// Visit counters are kept by the store: each pull records one, pushes never carry them.
	if pulled.TotalVisits != pushed.TotalVisits+1 || pulled.LastVisit.IsZero() {
		t.Fatalf("visits pushed=%d pulled=%d last=%v", pushed.TotalVisits, pulled.TotalVisits, pulled.LastVisit)
	}
}

func TestPushLeavesStoredAdminFlag(t *testing.T) {
	ctx := context.Background()
	remote, mem := newRemote(t)
	b := New(remote, nil, nil)
	if err := b.Register(ctx, "guest_3"); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := b.MarkAdmin(ctx, "guest_3"); err != nil {
		t.Fatalf("mark admin: %v", err)
	}

	snap := game.NewSnapshot("guest_3")
	snap.Balance = 42
	if err := b.Push(ctx, snap); err != nil {
		t.Fatalf("push: %v", err)
	}
	rec, err := mem.Visit(ctx, "guest_3")
	if err != nil {
		t.Fatalf("visit: %v", err)
	}
	if !rec.Player.IsAdmin || rec.Player.Balance != 42 {
		t.Fatalf("player=%+v", rec.Player)
	}
}

func TestPushRegistersOfflineAdmin(t *testing.T) {
	ctx := context.Background()
	remote, mem := newRemote(t)
	b := New(remote, nil, nil)

	snap := game.NewSnapshot("admin_1")
	snap.IsAdmin = true
	if err := b.Push(ctx, snap); err != nil {
		t.Fatalf("push: %v", err)
	}
	rec, err := mem.Visit(ctx, "admin_1")
	if err != nil {
		t.Fatalf("visit: %v", err)
	}
	if !rec.Player.IsAdmin {
		t.Fatalf("offline admin not flagged: %+v", rec.Player)
	}
}

func TestPushRemovesSoldOutRows(t *testing.T) {
	ctx := context.Background()
	remote, _ := newRemote(t)
	b := New(remote, nil, nil)
	if err := b.Register(ctx, "seller"); err != nil {
		t.Fatalf("register: %v", err)
	}

	snap := game.NewSnapshot("seller")
	snap.Cars[2] = 1
	if err := b.Push(ctx, snap); err != nil {
		t.Fatalf("push: %v", err)
	}
	delete(snap.Cars, 2)
	if err := b.Push(ctx, snap); err != nil {
		t.Fatalf("second push: %v", err)
	}
	pulled, err := b.Pull(ctx, "seller")
	if err != nil {
		t.Fatalf("pull: %v", err)
	}
	if len(pulled.Cars) != 0 {
		t.Fatalf("sold car still stored: %+v", pulled.Cars)
	}
}

func TestHydrateResumesStoredPlayer(t *testing.T) {
	ctx := context.Background()
	remote, mem := newRemote(t)
	if _, err := mem.Register(ctx, "old"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := mem.Update(ctx, store.Update{Username: "old", Balance: store.Int64(2_000_000), Status: store.String("God")}); err != nil {
		t.Fatalf("seed update: %v", err)
	}

	snap, err := New(remote, nil, nil).Hydrate(ctx, "old")
	if err != nil {
		t.Fatalf("hydrate: %v", err)
	}
	if snap.Balance != 2_000_000 || snap.Tier != "God" {
		t.Fatalf("snap=%+v", snap)
	}
	sess, err := game.NewSession(snap, game.Options{})
	if err != nil {
		t.Fatalf("session: %v", err)
	}
	if got := sess.View().Tier.Name; got != "Millionaire" {
		t.Fatalf("tier=%s, want resolved from balance", got)
	}
}

func TestHydrateOfflineFallsBack(t *testing.T) {
	snap, err := New(&downRemote{}, nil, nil).Hydrate(context.Background(), "guest_9")
	if !errors.Is(err, game.ErrRemoteUnavailable) {
		t.Fatalf("expected ErrRemoteUnavailable, got %v", err)
	}
	if snap.Username != "guest_9" || snap.Balance != 0 || snap.Businesses == nil {
		t.Fatalf("fallback snapshot=%+v", snap)
	}
}

func TestPullUnknownPlayer(t *testing.T) {
	remote, _ := newRemote(t)
	_, err := New(remote, nil, nil).Pull(context.Background(), "ghost")
	if !errors.Is(err, game.ErrPlayerNotFound) {
		t.Fatalf("expected ErrPlayerNotFound, got %v", err)
	}
}

func TestScheduleSwallowsFailuresAndStops(t *testing.T) {
	clk := clock.NewManual(epoch)
	down := &downRemote{}
	sess, err := game.NewSession(game.NewSnapshot("p"), game.Options{Clock: clk})
	if err != nil {
		t.Fatalf("session: %v", err)
	}
	task := New(down, nil, nil).Schedule(clk, 5*time.Second, sess)

	clk.Advance(15 * time.Second)
	if down.calls != 3 {
		t.Fatalf("calls=%d want 3", down.calls)
	}
	if _, err := sess.Claim(); err != nil {
		t.Fatalf("session should keep playing offline: %v", err)
	}
	task.Stop()
	clk.Advance(time.Minute)
	if down.calls != 3 {
		t.Fatalf("push after stop: calls=%d", down.calls)
	}
}
