package main

import (
	"strings"
	"testing"
	"time"

	"riches/internal/engine"
	"riches/internal/game"

	tea "github.com/charmbracelet/bubbletea"
)

type fixedClock struct{ now time.Time }

func (c *fixedClock) Now() time.Time { return c.now }

type alwaysWin struct{}

func (alwaysWin) Float64() float64     { return 0.99 }
func (alwaysWin) Int63n(n int64) int64 { return 0 }

func newTestModel(t *testing.T, balance int64) (playModel, *fixedClock) {
	t.Helper()
	clk := &fixedClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	snap := game.NewSnapshot("guest_1")
	snap.Balance = balance
	sess, err := game.NewSession(snap, game.Options{Clock: clk, Random: alwaysWin{}})
	if err != nil {
		t.Fatalf("session: %v", err)
	}
	m := newPlayModel(&engine.Game{Session: sess, Online: true}, newEventInbox())
	m.now = clk.Now
	return m, clk
}

func press(m playModel, msg tea.KeyMsg) playModel {
	next, _ := m.Update(msg)
	return next.(playModel)
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestClaimAndCooldownToasts(t *testing.T) {
	m, _ := newTestModel(t, 0)
	m = press(m, runes("c"))
	m = press(m, runes("c"))

	if got := m.game.Session.View().Balance; got != 100 {
		t.Fatalf("balance=%d want 100", got)
	}
	if len(m.toasts) != 2 || m.toasts[0].text != "+100" || !strings.Contains(m.toasts[1].text, "cooling") {
		t.Fatalf("toasts=%+v", m.toasts)
	}
}

func TestBuyAndSellFromCatalogTab(t *testing.T) {
	m, _ := newTestModel(t, 10_000)
	m = press(m, runes("b"))
	if v := m.game.Session.View(); v.Balance != 0 || v.Businesses[1] != 1 {
		t.Fatalf("after buy: %+v", v)
	}
	m = press(m, runes("b"))
	if !strings.Contains(m.toasts[len(m.toasts)-1].text, "Not enough") {
		t.Fatalf("toasts=%+v", m.toasts)
	}

	m = press(m, runes("s"))
	if v := m.game.Session.View(); v.Balance != 5_500 || v.Businesses[1] != 0 {
		t.Fatalf("after sell: %+v", v)
	}
	before := len(m.toasts)
	m = press(m, runes("s"))
	if len(m.toasts) != before {
		t.Fatalf("selling nothing should stay silent")
	}
}

func TestTabsSkipRosterForPlayers(t *testing.T) {
	m, _ := newTestModel(t, 0)
	tab := tea.KeyMsg{Type: tea.KeyTab}
	want := []string{"Cars", "Casino", "Businesses"}
	for _, name := range want {
		m = press(m, tab)
		if m.tab.String() != name {
			t.Fatalf("tab=%s want %s", m.tab, name)
		}
	}
}

func TestCasinoBet(t *testing.T) {
	m, _ := newTestModel(t, 5_000)
	m = press(m, tea.KeyMsg{Type: tea.KeyTab})
	m = press(m, tea.KeyMsg{Type: tea.KeyTab})
	m = press(m, tea.KeyMsg{Type: tea.KeyEnter})
	if got := m.game.Session.View().Balance; got != 6_500 {
		t.Fatalf("balance=%d want 6500", got)
	}

	m = press(m, tea.KeyMsg{Type: tea.KeyDown})
	m = press(m, tea.KeyMsg{Type: tea.KeyEnter})
	if got := m.game.Session.View().Balance; got != 6_500 {
		t.Fatalf("oversized bet changed balance: %d", got)
	}
}

func TestPromotionToastAndExpiry(t *testing.T) {
	m, clk := newTestModel(t, 0)
	next, _ := m.Update(eventMsg{{
		Kind:     game.EventPromotion,
		Tier:     game.DefaultTiers[1],
		Previous: game.DefaultTiers[0],
		Amount:   500,
	}})
	m = next.(playModel)
	if len(m.toasts) != 1 || !strings.Contains(m.toasts[0].text, "Promoted to Rich") {
		t.Fatalf("toasts=%+v", m.toasts)
	}
	clk.now = clk.now.Add(toastTTL)
	next, _ = m.Update(refreshMsg(clk.now))
	m = next.(playModel)
	if len(m.toasts) != 0 {
		t.Fatalf("toast not expired: %+v", m.toasts)
	}
}

func TestComma(t *testing.T) {
	tests := map[int64]string{0: "0", 999: "999", 1000: "1,000", -1234567: "-1,234,567", 10_000_000_000: "10,000,000,000"}
	for in, want := range tests {
		if got := comma(in); got != want {
			t.Fatalf("comma(%d)=%q want %q", in, got, want)
		}
	}
}

func TestInboxKeepsEveryTierChange(t *testing.T) {
	inbox := newEventInbox()
	for i := 0; i < 500; i++ {
		inbox.Put(game.Event{Kind: game.EventPassiveIncome, Amount: 600})
	}
	for i := 0; i < 100; i++ {
		inbox.Put(game.Event{Kind: game.EventPromotion, Seq: uint64(i + 1), Tier: game.DefaultTiers[i%2], Previous: game.DefaultTiers[(i+1)%2]})
	}

	msg := waitForEvent(inbox)()
	batch, ok := msg.(eventMsg)
	if !ok || len(batch) != 100 {
		t.Fatalf("got %T with %d events, want 100 tier changes", msg, len(batch))
	}
	for i, ev := range batch {
		if ev.Seq != uint64(i+1) {
			t.Fatalf("event %d out of order: seq %d", i, ev.Seq)
		}
	}
	if left := inbox.take(); len(left) != 0 {
		t.Fatalf("inbox not drained: %d", len(left))
	}
}
