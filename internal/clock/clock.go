package clock

import (
	"sync"
	"time"
)

// Clock abstracts time retrieval so elapsed times are deterministic in tests.
type Clock interface {
	Now() time.Time
}

// Real returns the actual current time.
type Real struct{}

func (Real) Now() time.Time { return time.Now() }

// Stub returns a fixed time that only moves when told to. Safe for concurrent use.
type Stub struct {
	mu   sync.Mutex
	now  time.Time
	step time.Duration
}

// NewStub creates a Stub set to t. Every call to Now advances it by step.
func NewStub(t time.Time, step time.Duration) *Stub {
	return &Stub{now: t, step: step}
}

func (c *Stub) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now
	c.now = c.now.Add(c.step)
	return now
}

// Advance moves the clock forward by d.
func (c *Stub) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
