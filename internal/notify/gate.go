// Package notify decides when a "bin full" notification is due.
package notify

import (
	"sync"
	"time"

	"polybin/internal/models"
)

const (
	DefaultInterval  = 10 * time.Second
	DefaultThreshold = 13
)

// Gate is edge triggered per bin: a bin is reported once when it crosses to
// or below the threshold, and rearmed when it rises back above it.
type Gate struct {
	threshold float64
	interval  time.Duration

	mu       sync.Mutex
	sent     [models.CategoryCount]bool
	lastPoll time.Time
	polled   bool
}

// NewGate creates a gate. Polls closer together than interval are ignored.
func NewGate(threshold float64, interval time.Duration) *Gate {
	return &Gate{threshold: threshold, interval: interval}
}

// Poll returns the bins that just became full and marks them as notified.
// It returns nil when called again before the interval elapsed.
func (g *Gate) Poll(levels models.BinLevels, now time.Time) []models.WasteCategory {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.polled && now.Sub(g.lastPoll) < g.interval {
		return nil
	}
	g.polled = true
	g.lastPoll = now

	var due []models.WasteCategory
	for _, c := range models.AllCategories {
		if levels.IsFull(c, g.threshold) {
			if !g.sent[c] {
				g.sent[c] = true
				due = append(due, c)
			}
			continue
		}
		g.sent[c] = false
	}
	return due
}

// Rearm clears the sent flag of a bin whose notification could not be
// delivered, so the next qualifying poll retries it.
func (g *Gate) Rearm(c models.WasteCategory) {
	if !c.Valid() {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.sent[c] = false
}
