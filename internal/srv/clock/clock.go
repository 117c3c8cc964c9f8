package clock

import (
	"sort"
	"sync"
	"time"
)

// Timer is the part of *time.Timer used by the display code.
type Timer interface {
	Stop() bool
	Reset(d time.Duration) bool
}

// Clock creates timers whose callback runs outside the caller's goroutine.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

// Real is backed by the time package.
type Real struct{}

func (Real) Now() time.Time {
	return time.Now()
}

func (Real) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Manual is a clock that only moves when Advance is called.
// Callbacks of expired timers run in the goroutine calling Advance, in
// deadline order, without any Manual lock held.
type Manual struct {
	lock   sync.Mutex
	now    time.Time
	timers []*manualTimer
}

func NewManual() *Manual {
	return &Manual{now: time.Unix(0, 0)}
}

func (m *Manual) Now() time.Time {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.now
}

func (m *Manual) AfterFunc(d time.Duration, f func()) Timer {
	m.lock.Lock()
	defer m.lock.Unlock()

	t := &manualTimer{clock: m, f: f, deadline: m.now.Add(d), armed: true}
	m.timers = append(m.timers, t)
	return t
}

// Pending returns how many timers are armed.
func (m *Manual) Pending() int {
	m.lock.Lock()
	defer m.lock.Unlock()

	count := 0
	for _, t := range m.timers {
		if t.armed {
			count++
		}
	}
	return count
}

// Advance moves the clock forward by d, firing every timer whose deadline is
// reached. A timer re-armed by its own callback fires again within the same
// Advance if its new deadline is still inside the window.
func (m *Manual) Advance(d time.Duration) {
	m.lock.Lock()
	target := m.now.Add(d)
	m.lock.Unlock()

	for {
		m.lock.Lock()
		next := m.nextExpired(target)
		if next == nil {
			m.now = target
			m.lock.Unlock()
			return
		}
		if next.deadline.After(m.now) {
			m.now = next.deadline
		}
		next.armed = false
		f := next.f
		m.lock.Unlock()

		f()
	}
}

func (m *Manual) nextExpired(target time.Time) *manualTimer {
	var armed []*manualTimer
	for _, t := range m.timers {
		if t.armed && !t.deadline.After(target) {
			armed = append(armed, t)
		}
	}
	if len(armed) == 0 {
		return nil
	}
	sort.SliceStable(armed, func(i, j int) bool {
		return armed[i].deadline.Before(armed[j].deadline)
	})
	return armed[0]
}

type manualTimer struct {
	clock    *Manual
	f        func()
	deadline time.Time
	armed    bool
}

func (t *manualTimer) Stop() bool {
	t.clock.lock.Lock()
	defer t.clock.lock.Unlock()

	wasArmed := t.armed
	t.armed = false
	return wasArmed
}

func (t *manualTimer) Reset(d time.Duration) bool {
	t.clock.lock.Lock()
	defer t.clock.lock.Unlock()

	wasArmed := t.armed
	t.deadline = t.clock.now.Add(d)
	t.armed = true
	return wasArmed
}
