package testutil

import (
	"sync"
	"time"
)

// DefaultEpoch is where a StepClock starts when given a zero time.
var DefaultEpoch = time.Date(2024, time.January, 1, 9, 0, 0, 0, time.UTC)

// StepClock is a deterministic clock.Clock for tests. Each call to Now
// returns the current instant and then advances by Step, so consecutive
// ledger rows and snapshots get distinct, ordered timestamps.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type StepClock struct {
	mu    sync.Mutex
	start time.Time
	now   time.Time
	step  time.Duration
}

// NewStepClock creates a clock starting at start (DefaultEpoch if zero)
// advancing by step (one second if zero) per reading.
func NewStepClock(start time.Time, step time.Duration) *StepClock {
	if start.IsZero() {
		start = DefaultEpoch
	}
	if step == 0 {
		step = time.Second
	}
	start = start.UTC()
	return &StepClock{start: start, now: start, step: step}
}

// Now returns the current instant and advances the clock.
func (c *StepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.now
	c.now = c.now.Add(c.step)
	return t
}

// Peek returns the instant the next Now will return.
func (c *StepClock) Peek() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Reset rewinds the clock to its start.
//
// Used for test reuse. After Reset(), the next call to Now() returns start.
func (c *StepClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.start
}
