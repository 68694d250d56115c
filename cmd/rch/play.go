package main

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"riches/internal/engine"
	"riches/internal/game"
	"riches/internal/store"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var casinoBets = []int64{1_000, 10_000, 100_000, 1_000_000}

const (
	toastTTL     = 3 * time.Second
	adminGrant   = 1_000_000
	refreshEvery = 250 * time.Millisecond
)

type tab int

const (
	tabBusinesses tab = iota
	tabCars
	tabCasino
	tabRoster
)

func (t tab) String() string {
	switch t {
	case tabBusinesses:
		return "Businesses"
	case tabCars:
		return "Cars"
	case tabCasino:
		return "Casino"
	default:
		return "Roster"
	}
}

type playKeys struct {
	Claim   key.Binding
	Next    key.Binding
	Up      key.Binding
	Down    key.Binding
	Buy     key.Binding
	Sell    key.Binding
	Confirm key.Binding
	Refresh key.Binding
	Promote key.Binding
	Quit    key.Binding
}

func defaultPlayKeys() playKeys {
	return playKeys{
		Claim:   key.NewBinding(key.WithKeys("c", " "), key.WithHelp("c/space", "claim")),
		Next:    key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "switch view")),
		Up:      key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:    key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Buy:     key.NewBinding(key.WithKeys("b"), key.WithHelp("b", "buy")),
		Sell:    key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "sell")),
		Confirm: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "bet / grant")),
		Refresh: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh roster")),
		Promote: key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "make admin")),
		Quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k playKeys) ShortHelp() []key.Binding {
	return []key.Binding{k.Claim, k.Next, k.Buy, k.Sell, k.Confirm, k.Quit}
}

func (k playKeys) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Claim, k.Next, k.Up, k.Down},
		{k.Buy, k.Sell, k.Confirm},
		{k.Refresh, k.Promote, k.Quit},
	}
}

// eventMsg carries the tier changes collected since the last delivery.
type eventMsg []game.Event

type refreshMsg time.Time

type adminMsg struct {
	roster []store.Player
	note   string
	err    error
}

type toast struct {
	text  string
	style lipgloss.Style
	until time.Time
}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FFD700"))
	boxStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	activeTab   = lipgloss.NewStyle().Bold(true).Underline(true).Foreground(lipgloss.Color("#34C759"))
	idleTab     = lipgloss.NewStyle().Foreground(lipgloss.Color("#8E9196"))
	cursorStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#0088CC"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#5C5F66"))
	goodToast   = lipgloss.NewStyle().Foreground(lipgloss.Color("#34C759"))
	badToast    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF3B30"))
	partyToast  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#9b87f5"))
)

type playModel struct {
	game   *engine.Game
	econ   *game.Economy
	events *eventInbox
	keys   playKeys
	help   help.Model
	now    func() time.Time

	tab    tab
	cursor int
	roster []store.Player
	toasts []toast
}

func newPlayModel(g *engine.Game, events *eventInbox) playModel {
	return playModel{
		game:   g,
		econ:   g.Session.Economy(),
		events: events,
		keys:   defaultPlayKeys(),
		help:   help.New(),
		now:    time.Now,
	}
}

// eventInbox hands session events to the TUI without blocking the session.
// Tier changes are all kept in order. Passive income events are skipped
// since the view polls the balance.
type eventInbox struct {
	mu    sync.Mutex
	tiers []game.Event
	ready chan struct{}
}

func newEventInbox() *eventInbox {
	return &eventInbox{ready: make(chan struct{}, 1)}
}

func (b *eventInbox) Put(ev game.Event) {
	if ev.Kind != game.EventPromotion {
		return
	}
	b.mu.Lock()
	b.tiers = append(b.tiers, ev)
	b.mu.Unlock()
	select {
	case b.ready <- struct{}{}:
	default:
	}
}

func (b *eventInbox) take() []game.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.tiers
	b.tiers = nil
	return out
}

func waitForEvent(events *eventInbox) tea.Cmd {
	return func() tea.Msg {
		for {
			<-events.ready
			if batch := events.take(); len(batch) > 0 {
				return eventMsg(batch)
			}
		}
	}
}

func refresh() tea.Cmd {
	return tea.Tick(refreshEvery, func(t time.Time) tea.Msg { return refreshMsg(t) })
}

func (m playModel) Init() tea.Cmd {
	return tea.Batch(waitForEvent(m.events), refresh())
}

func (m playModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case eventMsg:
		for _, ev := range msg {
			if ev.Promoted() {
				m.push(fmt.Sprintf("Promoted to %s! Claims now pay %s.", ev.Tier.Name, comma(ev.Amount)), partyToast)
			} else {
				m.push(fmt.Sprintf("Dropped to %s. Claims pay %s.", ev.Tier.Name, comma(ev.Amount)), badToast)
			}
		}
		return m, waitForEvent(m.events)
	case refreshMsg:
		m.expireToasts()
		return m, refresh()
	case adminMsg:
		if msg.err != nil {
			m.push(describeError(msg.err), badToast)
		} else {
			if msg.roster != nil {
				m.roster = msg.roster
			}
			if msg.note != "" {
				m.push(msg.note, goodToast)
			}
		}
		m.clampCursor()
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m playModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	sess := m.game.Session
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Claim):
		res, err := sess.Claim()
		if err != nil {
			m.push(describeError(err), badToast)
		} else {
			m.push("+"+comma(res.Reward), goodToast)
		}
	case key.Matches(msg, m.keys.Next):
		m.tab = m.nextTab()
		m.cursor = 0
		if m.tab == tabRoster && m.roster == nil {
			return m, m.loadRoster("")
		}
	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, m.keys.Down):
		m.cursor++
		m.clampCursor()
	case key.Matches(msg, m.keys.Buy):
		if kind, ok := m.catalogKind(); ok {
			entry := m.selectedEntry(kind)
			res, err := sess.Buy(kind, entry.ID)
			if err != nil {
				m.push(describeError(err), badToast)
			} else {
				m.push(fmt.Sprintf("Bought %s (now %d).", entry.Name, res.Owned), goodToast)
			}
		}
	case key.Matches(msg, m.keys.Sell):
		if kind, ok := m.catalogKind(); ok {
			entry := m.selectedEntry(kind)
			res, err := sess.Sell(kind, entry.ID)
			if err != nil {
				m.push(describeError(err), badToast)
			} else if res.Sold {
				m.push(fmt.Sprintf("Sold %s for %s.", entry.Name, comma(res.Credit)), goodToast)
			}
		}
	case key.Matches(msg, m.keys.Confirm):
		switch m.tab {
		case tabCasino:
			res, err := sess.Gamble(casinoBets[m.cursor])
			switch {
			case err != nil:
				m.push(describeError(err), badToast)
			case res.Won:
				m.push("You won "+comma(res.Delta)+"!", partyToast)
			default:
				m.push("You lost "+comma(-res.Delta)+".", badToast)
			}
		case tabRoster:
			if target, ok := m.selectedPlayer(); ok {
				return m, m.adminDo(func(ctx context.Context) error {
					return m.game.Admin.GrantCurrency(ctx, target, adminGrant)
				}, fmt.Sprintf("Granted %s to %s.", comma(adminGrant), target))
			}
		}
	case key.Matches(msg, m.keys.Refresh):
		if m.tab == tabRoster {
			return m, m.loadRoster("Roster refreshed.")
		}
	case key.Matches(msg, m.keys.Promote):
		if m.tab == tabRoster {
			if target, ok := m.selectedPlayer(); ok {
				return m, m.adminDo(func(ctx context.Context) error {
					return m.game.Admin.PromoteToAdmin(ctx, target)
				}, target+" is now an admin.")
			}
		}
	}
	return m, nil
}

// Admin calls go over the network, so they run as commands off the UI loop.
func (m playModel) loadRoster(note string) tea.Cmd {
	ch := m.game.Admin
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		players, err := ch.ListRoster(ctx)
		if err != nil {
			return adminMsg{err: err}
		}
		return adminMsg{roster: players, note: note}
	}
}

func (m playModel) adminDo(op func(ctx context.Context) error, note string) tea.Cmd {
	ch := m.game.Admin
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := op(ctx); err != nil {
			return adminMsg{err: err}
		}
		return adminMsg{roster: ch.Cached(), note: note}
	}
}

func (m playModel) nextTab() tab {
	last := tabCasino
	if m.game.Admin != nil {
		last = tabRoster
	}
	if m.tab >= last {
		return tabBusinesses
	}
	return m.tab + 1
}

func (m playModel) catalogKind() (game.CatalogKind, bool) {
	switch m.tab {
	case tabBusinesses:
		return game.Businesses, true
	case tabCars:
		return game.Cars, true
	default:
		return "", false
	}
}

func (m playModel) selectedEntry(kind game.CatalogKind) game.Entry {
	c, _ := m.econ.Catalog(kind)
	return c.Entries[m.cursor]
}

func (m playModel) selectedPlayer() (string, bool) {
	if m.game.Admin == nil || m.cursor >= len(m.roster) {
		return "", false
	}
	return m.roster[m.cursor].Username, true
}

func (m *playModel) clampCursor() {
	n := m.rows()
	if m.cursor >= n {
		m.cursor = n - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m playModel) rows() int {
	switch m.tab {
	case tabBusinesses:
		return len(m.econ.Businesses.Entries)
	case tabCars:
		return len(m.econ.Cars.Entries)
	case tabCasino:
		return len(casinoBets)
	default:
		return len(m.roster)
	}
}

func (m *playModel) push(text string, style lipgloss.Style) {
	m.toasts = append(m.toasts, toast{text: text, style: style, until: m.now().Add(toastTTL)})
	if len(m.toasts) > 4 {
		m.toasts = m.toasts[len(m.toasts)-4:]
	}
}

func (m *playModel) expireToasts() {
	now := m.now()
	kept := m.toasts[:0]
	for _, t := range m.toasts {
		if now.Before(t.until) {
			kept = append(kept, t)
		}
	}
	m.toasts = kept
}

func (m playModel) View() string {
	v := m.game.Session.View()
	var b strings.Builder

	header := fmt.Sprintf("%s  %s\nBalance: %s   Income: +%s/s   Claim: %s",
		titleStyle.Render(v.Username),
		tierStyle(v.Tier).Render(v.Tier.Name),
		comma(v.Balance), comma(v.PassiveIncome), comma(v.Tier.ClickIncome))
	if !m.game.Online {
		header += "   " + badToast.Render("offline")
	}
	b.WriteString(boxStyle.Render(header))
	b.WriteString("\n")

	tabs := []tab{tabBusinesses, tabCars, tabCasino}
	if m.game.Admin != nil {
		tabs = append(tabs, tabRoster)
	}
	for i, t := range tabs {
		if i > 0 {
			b.WriteString("  ")
		}
		if t == m.tab {
			b.WriteString(activeTab.Render(t.String()))
		} else {
			b.WriteString(idleTab.Render(t.String()))
		}
	}
	b.WriteString("\n\n")

	switch m.tab {
	case tabBusinesses:
		m.renderEntries(&b, m.econ.Businesses, v.Businesses, v.Balance)
	case tabCars:
		m.renderEntries(&b, m.econ.Cars, v.Cars, v.Balance)
	case tabCasino:
		b.WriteString("Win chance 40%, a win pays half the bet on top.\n")
		for i, bet := range casinoBets {
			line := fmt.Sprintf("bet %s", comma(bet))
			if bet > v.Balance {
				line = dimStyle.Render(line)
			}
			b.WriteString(m.row(i, line))
		}
	case tabRoster:
		if len(m.roster) == 0 {
			b.WriteString(dimStyle.Render("roster not loaded") + "\n")
		}
		for i, p := range m.roster {
			line := fmt.Sprintf("%-24s %-12s %16s", truncate(p.Username, 24), p.Status, comma(p.Balance))
			if p.IsAdmin {
				line += " admin"
			}
			b.WriteString(m.row(i, line))
		}
	}

	b.WriteString("\n")
	for _, t := range m.toasts {
		b.WriteString(t.style.Render(t.text))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func (m playModel) renderEntries(b *strings.Builder, c game.Catalog, owned map[int]int64, balance int64) {
	for i, e := range c.Entries {
		line := fmt.Sprintf("%s %-18s %14s  +%s/s  owned %d",
			e.Emoji, e.Name, comma(e.Cost), comma(e.IncomeRate), owned[e.ID])
		if e.Cost > balance {
			line = dimStyle.Render(line)
		}
		b.WriteString(m.row(i, line))
	}
}

func (m playModel) row(i int, line string) string {
	if i == m.cursor {
		return cursorStyle.Render("> ") + line + "\n"
	}
	return "  " + line + "\n"
}
