package interaction

import (
	"context"
	"sort"
	"sync"
	"time"
)

// FakeClock is a manually advanced Clock for tests. Callbacks run synchronously from Advance.
type FakeClock struct {
	mu     sync.Mutex
	now    time.Time
	seq    int
	timers []*fakeTimer
}

// NewFakeClock creates a FakeClock starting at now.
func NewFakeClock(now time.Time) *FakeClock {
	return &FakeClock{now: now}
}

// Now implements Clock.
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// AfterFunc implements Clock.
func (c *FakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.seq++
	t := &fakeTimer{clock: c, at: c.now.Add(d), fn: f, seq: c.seq}
	c.timers = append(c.timers, t)
	return t
}

// Advance moves the clock forward by d, running every callback that falls due in order.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now.Add(d)
	c.mu.Unlock()

	for {
		c.mu.Lock()
		sort.SliceStable(c.timers, func(i, j int) bool {
			if c.timers[i].at.Equal(c.timers[j].at) {
				return c.timers[i].seq < c.timers[j].seq
			}
			return c.timers[i].at.Before(c.timers[j].at)
		})
		if len(c.timers) == 0 || c.timers[0].at.After(target) {
			c.now = target
			c.mu.Unlock()
			return
		}
		next := c.timers[0]
		c.timers = c.timers[1:]
		c.now = next.at
		c.mu.Unlock()

		next.fn()
	}
}

// Pending returns the number of scheduled callbacks.
func (c *FakeClock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.timers)
}

type fakeTimer struct {
	clock *FakeClock
	at    time.Time
	fn    func()
	seq   int
}

func (t *fakeTimer) Stop() bool {
	c := t.clock
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, other := range c.timers {
		if other == t {
			c.timers = append(c.timers[:i], c.timers[i+1:]...)
			return true
		}
	}
	return false
}

// MockCommander is a mock Commander for tests.
type MockCommander struct {
	DismissFn    func(ctx context.Context, req DismissRequest) error
	RestoreAllFn func(ctx context.Context, entryID string) error

	mu       sync.Mutex
	dismiss  []DismissRequest
	restores []string
}

// Dismiss implements Commander.
func (m *MockCommander) Dismiss(ctx context.Context, req DismissRequest) error {
	m.mu.Lock()
	m.dismiss = append(m.dismiss, req)
	m.mu.Unlock()

	if m.DismissFn != nil {
		return m.DismissFn(ctx, req)
	}
	return nil
}

// RestoreAll implements Commander.
func (m *MockCommander) RestoreAll(ctx context.Context, entryID string) error {
	m.mu.Lock()
	m.restores = append(m.restores, entryID)
	m.mu.Unlock()

	if m.RestoreAllFn != nil {
		return m.RestoreAllFn(ctx, entryID)
	}
	return nil
}

// DismissRequests returns the dismiss requests received so far.
func (m *MockCommander) DismissRequests() []DismissRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]DismissRequest(nil), m.dismiss...)
}

// RestoreRequests returns the entry ids of the restore requests received so far.
func (m *MockCommander) RestoreRequests() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.restores...)
}
