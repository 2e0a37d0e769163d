// Package detection turns the noisy per-frame classification stream into a
// stable, confirmed detection.
package detection

import (
	"log"
	"sync"
	"time"

	"polybin/internal/models"
)

const (
	DefaultConfirmationTime  = 2 * time.Second
	DefaultConfirmationRatio = 0.8
	DefaultWindowSize        = 10
)

// Config holds debouncer settings
type Config struct {
	ConfirmationTime  time.Duration // minimum dwell of one category
	ConfirmationRatio float64       // required share of the recent window
	WindowSize        int           // number of recent observations kept
	Verbose           bool
}

// DefaultConfig returns the settings used by the appliance
func DefaultConfig() Config {
	return Config{
		ConfirmationTime:  DefaultConfirmationTime,
		ConfirmationRatio: DefaultConfirmationRatio,
		WindowSize:        DefaultWindowSize,
	}
}

type observation struct {
	category models.WasteCategory
	at       time.Time
}

// Debouncer owns the detection window. Observe, Confirmed and Reset are
// mutually exclusive so Confirmed always sees a consistent window.
type Debouncer struct {
	cfg Config
	now func() time.Time

	mu          sync.Mutex
	current     models.WasteCategory
	hasCurrent  bool
	windowStart time.Time
	recent      []observation // FIFO, oldest first, len <= cfg.WindowSize
}

// Option customises a Debouncer
type Option func(*Debouncer)

// WithClock replaces time.Now, used by tests
func WithClock(now func() time.Time) Option {
	return func(d *Debouncer) { d.now = now }
}

// NewDebouncer creates an empty debouncer
func NewDebouncer(cfg Config, opts ...Option) *Debouncer {
	if cfg.WindowSize <= 0 {
		cfg.WindowSize = DefaultWindowSize
	}
	if cfg.ConfirmationRatio <= 0 || cfg.ConfirmationRatio > 1 {
		cfg.ConfirmationRatio = DefaultConfirmationRatio
	}

	d := &Debouncer{
		cfg:    cfg,
		now:    time.Now,
		recent: make([]observation, 0, cfg.WindowSize),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Observe feeds one classification. A category different from the current
// one restarts the window.
func (d *Debouncer) Observe(c models.Classification) {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()

	if !d.hasCurrent || c.Category != d.current {
		if d.cfg.Verbose {
			log.Printf("Debouncer: New detection %s (previous: %s)", c.Category, d.describeCurrent())
		}
		d.current = c.Category
		d.hasCurrent = true
		d.windowStart = now
		d.recent = d.recent[:0]
	}

	if len(d.recent) == d.cfg.WindowSize {
		copy(d.recent, d.recent[1:])
		d.recent = d.recent[:len(d.recent)-1]
	}
	d.recent = append(d.recent, observation{category: c.Category, at: now})
}

// Confirmed returns the current category once it has dwelled for the
// confirmation time and dominates the recent window. It has no side effects.
func (d *Debouncer) Confirmed() (models.WasteCategory, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.hasCurrent {
		return 0, false
	}
	if d.now().Sub(d.windowStart) < d.cfg.ConfirmationTime {
		return 0, false
	}
	if len(d.recent) == 0 {
		return 0, false
	}

	matching := 0
	for _, o := range d.recent {
		if o.category == d.current {
			matching++
		}
	}
	if float64(matching)/float64(len(d.recent)) < d.cfg.ConfirmationRatio {
		return 0, false
	}
	return d.current, true
}

// Reset clears the window entirely; called after a disposal was taken
func (d *Debouncer) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.hasCurrent = false
	d.current = 0
	d.windowStart = time.Time{}
	d.recent = d.recent[:0]

	if d.cfg.Verbose {
		log.Println("Debouncer: Detection state reset")
	}
}

// State is a read-only view of the window for the dashboard
type State struct {
	Category *models.WasteCategory `json:"category"`
	Since    time.Time             `json:"since"`
	Samples  int                   `json:"samples"`
}

// Snapshot returns the current window state
func (d *Debouncer) Snapshot() State {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.hasCurrent {
		return State{}
	}
	c := d.current
	return State{Category: &c, Since: d.windowStart, Samples: len(d.recent)}
}

func (d *Debouncer) describeCurrent() string {
	if !d.hasCurrent {
		return "none"
	}
	return d.current.String()
}
