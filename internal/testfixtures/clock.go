package testfixtures

import (
	"sync"
	"time"
)

// Clock is a manually driven time source. Services take a `now func()
// time.Time` dependency, so tests inject clock.NowFunc() and steer time
// explicitly instead of sleeping.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock returns a clock pinned to start, or to ReferenceTime when start is
// the zero value.
func NewClock(start time.Time) *Clock {
	clock := &Clock{now: start}
	if start.IsZero() {
		clock.now = ReferenceTime()
	}
	return clock
}

// Now reports the instant the clock is pinned to.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Current is a readability alias for Now in assertions.
func (c *Clock) Current() time.Time {
	return c.Now()
}

// NowFunc adapts the clock to the injection signature services expect. A nil
// clock falls back to the real time source.
func (c *Clock) NowFunc() func() time.Time {
	if c == nil {
		return time.Now
	}
	return c.Now
}

// Set pins the clock to an absolute instant.
func (c *Clock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// Advance moves the clock forward by d and returns the new instant. Negative
// durations move it backwards, which some expiry tests rely on.
func (c *Clock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	return c.now
}
