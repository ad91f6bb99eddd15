// Package realtime holds the building blocks shared by the viewer's polling
// loops: a seconds countdown, a latest-request-wins guard and a scheduled
// task with a cancel handle.
package realtime

import "sync"

// Countdown counts whole seconds until the next poll
type Countdown struct {
	mu        sync.Mutex
	remaining int
	interval  int
}

// NewCountdown creates a countdown that fires on its first tick
func NewCountdown(intervalSec int) *Countdown {
	return &Countdown{interval: intervalSec}
}

// Tick decrements the countdown. It reports true when the countdown has run
// out, in which case it is reset to the full interval. When it returns false
// the second return value is the number of seconds left.
func (c *Countdown) Tick() (fire bool, remaining int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.remaining--
	if c.remaining > 0 {
		return false, c.remaining
	}
	c.remaining = c.interval
	return true, 0
}

// Zero makes the next Tick fire
func (c *Countdown) Zero() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.remaining = 0
}

// Remaining returns the seconds left before the countdown fires
func (c *Countdown) Remaining() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.remaining < 0 {
		return 0
	}
	return c.remaining
}
