package mocks

import (
	"sync"
	"time"

	"github.com/mcoot/comicguess/internal/dependencies/clock"
)

type waiter struct {
	at time.Time
	ch chan time.Time
}

// MockClock is a mock implementation of Clock for testing.
// Channels from After fire when Advance or Set moves the clock past their deadline.
type MockClock struct {
	mu          sync.RWMutex
	currentTime time.Time
	waiters     []waiter
}

// Ensure MockClock implements Clock
var _ clock.Clock = (*MockClock)(nil)

// NewMockClock creates a MockClock set to the given time
func NewMockClock(t time.Time) *MockClock {
	return &MockClock{currentTime: t}
}

// Now returns the mocked current time
func (c *MockClock) Now() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.currentTime
}

// After returns a channel that fires once the mocked time reaches now+d
func (c *MockClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	ch := make(chan time.Time, 1)
	if d <= 0 {
		ch <- c.currentTime
		return ch
	}
	c.waiters = append(c.waiters, waiter{at: c.currentTime.Add(d), ch: ch})
	return ch
}

// Waiters returns the number of After channels that have not fired
func (c *MockClock) Waiters() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.waiters)
}

// Advance moves the clock forward by the given duration
func (c *MockClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.currentTime = c.currentTime.Add(d)
	c.fireLocked()
}

// AdvanceDays moves the clock forward by whole calendar days
func (c *MockClock) AdvanceDays(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.currentTime = c.currentTime.AddDate(0, 0, n)
	c.fireLocked()
}

// Set sets the clock to the given time
func (c *MockClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.currentTime = t
	c.fireLocked()
}

func (c *MockClock) fireLocked() {
	pending := c.waiters[:0]
	for _, w := range c.waiters {
		if c.currentTime.Before(w.at) {
			pending = append(pending, w)
			continue
		}
		w.ch <- c.currentTime
	}
	c.waiters = pending
}
