// Package clock provides the time source and repeating tasks the engine runs
// on. Real uses wall time and tickers; Manual is driven explicitly by tests.
package clock

import (
	"sort"
	"sync"
	"time"
)

type Clock interface {
	Now() time.Time
	// Every calls fn once per period until the returned task is stopped.
	// The cadence is fixed: late ticks are dropped, never replayed.
	Every(period time.Duration, fn func()) Task
}

type Task interface {
	Stop()
}

type Real struct{}

func (Real) Now() time.Time { return time.Now() }

func (Real) Every(period time.Duration, fn func()) Task {
	t := &realTask{
		ticker: time.NewTicker(period),
		done:   make(chan struct{}),
	}
	go t.run(fn)
	return t
}

type realTask struct {
	ticker *time.Ticker
	done   chan struct{}
	once   sync.Once
}

func (t *realTask) run(fn func()) {
	defer t.ticker.Stop()
	for {
		select {
		case <-t.done:
			return
		case <-t.ticker.C:
			select {
			case <-t.done:
				return
			default:
			}
			fn()
		}
	}
}

// Stop prevents further calls. A call already running is left to finish.
func (t *realTask) Stop() {
	t.once.Do(func() { close(t.done) })
}

// Manual is a deterministic clock. Advance runs due tasks synchronously on
// the caller's goroutine, earliest first.
type Manual struct {
	mu    sync.Mutex
	now   time.Time
	tasks []*manualTask
	seq   int
}

func NewManual(start time.Time) *Manual {
	return &Manual{now: start}
}

func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

func (m *Manual) Every(period time.Duration, fn func()) Task {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	t := &manualTask{clock: m, period: period, next: m.now.Add(period), fn: fn, seq: m.seq}
	m.tasks = append(m.tasks, t)
	return t
}

// Advance moves time forward by d, firing every task occurrence that falls
// inside the window.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.now.Add(d)
	m.mu.Unlock()

	for {
		m.mu.Lock()
		due := m.nextDueLocked(target)
		if due == nil {
			m.now = target
			m.mu.Unlock()
			return
		}
		m.now = due.next
		due.next = due.next.Add(due.period)
		fn := due.fn
		m.mu.Unlock()

		fn()
	}
}

// Pending reports how many tasks are still armed.
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tasks)
}

func (m *Manual) nextDueLocked(target time.Time) *manualTask {
	if len(m.tasks) == 0 {
		return nil
	}
	sort.SliceStable(m.tasks, func(i, j int) bool {
		if m.tasks[i].next.Equal(m.tasks[j].next) {
			return m.tasks[i].seq < m.tasks[j].seq
		}
		return m.tasks[i].next.Before(m.tasks[j].next)
	})
	if m.tasks[0].next.After(target) {
		return nil
	}
	return m.tasks[0]
}

func (m *Manual) remove(t *manualTask) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, cur := range m.tasks {
		if cur == t {
			m.tasks = append(m.tasks[:i], m.tasks[i+1:]...)
			return
		}
	}
}

type manualTask struct {
	clock  *Manual
	period time.Duration
	next   time.Time
	fn     func()
	seq    int
}

func (t *manualTask) Stop() {
	t.clock.remove(t)
}
