// Package cooldown implements keyed rate limiting with an atomic check-and-set.
package cooldown

import (
	"sync"
	"time"
)

// Clock tracks when each key last fired and grants a new firing only after
// that key's cooldown has elapsed. A key that never fired is always ready.
type Clock struct {
	mu              sync.Mutex
	defaultDuration time.Duration
	durations       map[string]time.Duration
	lastFired       map[string]time.Time
}

// New creates a clock where every key uses the same cooldown
func New(d time.Duration) *Clock {
	return &Clock{
		defaultDuration: d,
		durations:       make(map[string]time.Duration),
		lastFired:       make(map[string]time.Time),
	}
}

// SetDuration overrides the cooldown for one key
func (c *Clock) SetDuration(key string, d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.durations[key] = d
}

// TryFire permits the action for key if its cooldown elapsed and, in the same
// critical section, records now as the last firing.
func (c *Clock) TryFire(key string, now time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.readyLocked(key, now) {
		return false
	}
	c.lastFired[key] = now
	return true
}

// Remaining returns how long until key may fire again (zero when ready)
func (c *Clock) Remaining(key string, now time.Time) time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()

	last, ok := c.lastFired[key]
	if !ok {
		return 0
	}
	left := c.durationLocked(key) - now.Sub(last)
	if left < 0 {
		return 0
	}
	return left
}

func (c *Clock) readyLocked(key string, now time.Time) bool {
	last, ok := c.lastFired[key]
	if !ok {
		return true
	}
	return now.Sub(last) >= c.durationLocked(key)
}

func (c *Clock) durationLocked(key string) time.Duration {
	if d, ok := c.durations[key]; ok {
		return d
	}
	return c.defaultDuration
}
