// Package arbiter decides what happens to a confirmed detection: dispose it,
// refuse because the bin is full, or refuse because the mechanism is cooling down.
package arbiter

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"polybin/internal/models"
)

// OutcomeKind is the decision taken for one disposal attempt
type OutcomeKind int

const (
	Unknown OutcomeKind = iota
	Disposed
	RejectedFull
	RejectedCooldown
	Failed
)

func (k OutcomeKind) String() string {
	switch k {
	case Disposed:
		return "disposed"
	case RejectedFull:
		return "rejected_full"
	case RejectedCooldown:
		return "rejected_cooldown"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Outcome of TryDispose. Category is unset for RejectedCooldown.
type Outcome struct {
	Kind     OutcomeKind
	Category models.WasteCategory
}

func (o Outcome) String() string {
	if o.Kind == RejectedCooldown {
		return o.Kind.String()
	}
	return fmt.Sprintf("%s(%s)", o.Kind, o.Category)
}

// Actuator is the physical mechanism
type Actuator interface {
	CanPerformAction(now time.Time) bool
	Dispose(ctx context.Context, category models.WasteCategory) error
}

// Debouncer is reset after a disposal was taken
type Debouncer interface {
	Reset()
}

// AlertPlayer receives the "please remove" cue when the target bin is full
type AlertPlayer interface {
	PlayRemove(category models.WasteCategory)
}

// AuditLogger records completed disposals; it must not block
type AuditLogger interface {
	LogDispose(record models.DisposeRecord)
}

// Arbiter serializes disposal decisions. Only one TryDispose runs at a time,
// so the actuator never receives overlapping motions.
type Arbiter struct {
	actuator  Actuator
	debouncer Debouncer
	alerts    AlertPlayer
	audit     AuditLogger
	threshold float64
	now       func() time.Time

	mu sync.Mutex
}

// New creates an arbiter. threshold is the fill value at or below which a bin is full.
func New(actuator Actuator, debouncer Debouncer, alerts AlertPlayer, audit AuditLogger, threshold float64) *Arbiter {
	return &Arbiter{
		actuator:  actuator,
		debouncer: debouncer,
		alerts:    alerts,
		audit:     audit,
		threshold: threshold,
		now:       time.Now,
	}
}

// TryDispose evaluates, in order: the actuator cooldown, the fill level of the
// target bin, then runs the motion. The cooldown slot is claimed in the first
// step, so a full-bin rejection also consumes it. A failed motion resets the
// debouncer like a successful one; the item has to be confirmed again before
// another attempt. A zero now is read from the clock once the arbiter lock is
// held, so a call queued behind a running motion is judged at the time it runs.
func (a *Arbiter) TryDispose(ctx context.Context, category models.WasteCategory, levels models.BinLevels, now time.Time) (Outcome, error) {
	if !category.Valid() {
		return Outcome{Kind: Failed, Category: category}, fmt.Errorf("unknown waste category %d", int(category))
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if now.IsZero() {
		now = a.now()
	}

	if !a.actuator.CanPerformAction(now) {
		return Outcome{Kind: RejectedCooldown}, nil
	}

	if levels.IsFull(category, a.threshold) {
		log.Printf("Arbiter: Action prevented, %s bin full (level=%.1f). Please empty the bin.",
			category.Description(), levels.Level(category))
		if a.alerts != nil {
			a.alerts.PlayRemove(category)
		}
		return Outcome{Kind: RejectedFull, Category: category}, nil
	}

	if err := a.actuator.Dispose(ctx, category); err != nil {
		a.debouncer.Reset()
		return Outcome{Kind: Failed, Category: category}, fmt.Errorf("failed to dispose %s: %w", category, err)
	}

	a.debouncer.Reset()
	if a.audit != nil {
		a.audit.LogDispose(models.DisposeRecord{Timestamp: now, BinType: category.Description()})
	}
	log.Printf("Arbiter: Action performed: %s", category.Description())

	return Outcome{Kind: Disposed, Category: category}, nil
}
