// Package actuator drives the two-servo sorting mechanism.
package actuator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"polybin/internal/cooldown"
	"polybin/internal/models"
)

// Axis identifies one of the two servos
type Axis int

const (
	Axis1 Axis = 1
	Axis2 Axis = 2
)

const (
	DefaultCooldown = 2 * time.Second
	DefaultPause    = 1 * time.Second

	cooldownKey = "dispose"
)

// ErrMotionFailed is returned when the hardware rejected one step of a motion
var ErrMotionFailed = errors.New("disposal motion failed")

// ServoDriver positions one axis. SetAngle blocks until the servo settled.
type ServoDriver interface {
	SetAngle(ctx context.Context, axis Axis, angle int) error
}

// Config holds actuator settings
type Config struct {
	Cooldown time.Duration // minimum time between two motions
	Pause    time.Duration // dwell with the flap open before returning to neutral
}

// DefaultConfig returns the settings used by the appliance
func DefaultConfig() Config {
	return Config{Cooldown: DefaultCooldown, Pause: DefaultPause}
}

// Actuator executes disposal motions one at a time
type Actuator struct {
	driver   ServoDriver
	cooldown *cooldown.Clock
	pause    time.Duration

	motionMu sync.Mutex // one disposal motion at a time
	axisMu   sync.Mutex // one axis move at a time, also for manual moves
}

// New creates an actuator on top of a servo driver
func New(driver ServoDriver, cfg Config) *Actuator {
	return &Actuator{
		driver:   driver,
		cooldown: cooldown.New(cfg.Cooldown),
		pause:    cfg.Pause,
	}
}

// CanPerformAction claims the cooldown slot if it is free. The check and the
// claim happen atomically, so concurrent callers get at most one true.
func (a *Actuator) CanPerformAction(now time.Time) bool {
	ok := a.cooldown.TryFire(cooldownKey, now)
	if !ok {
		log.Printf("Actuator: Action prevented, cooldown in effect (%v left)",
			a.cooldown.Remaining(cooldownKey, now).Round(time.Millisecond))
	}
	return ok
}

// Dispose runs the motion for a category: axis 1 to its angle, axis 2 to its
// angle, pause, axis 2 back to neutral. It blocks for the whole motion and is
// not interrupted by ctx cancellation once started. On a hardware error the
// remaining steps are skipped; the consumed cooldown is not given back.
func (a *Actuator) Dispose(ctx context.Context, category models.WasteCategory) error {
	if !category.Valid() {
		return fmt.Errorf("unknown waste category %d", int(category))
	}

	a.motionMu.Lock()
	defer a.motionMu.Unlock()

	ctx = context.WithoutCancel(ctx)
	angles := category.Angles()

	log.Printf("Actuator: Disposing %s (axis1=%d, axis2=%d)", category.Description(), angles.Axis1, angles.Axis2)

	if err := a.MoveAxis(ctx, Axis1, angles.Axis1); err != nil {
		return a.fail(category, err)
	}
	if err := a.MoveAxis(ctx, Axis2, angles.Axis2); err != nil {
		return a.fail(category, err)
	}
	time.Sleep(a.pause)
	if err := a.MoveAxis(ctx, Axis2, models.NeutralAngle); err != nil {
		return a.fail(category, err)
	}

	log.Printf("Actuator: Disposed %s", category.Description())
	return nil
}

// MoveAxis positions a single axis while holding the actuation lease
func (a *Actuator) MoveAxis(ctx context.Context, axis Axis, angle int) error {
	a.axisMu.Lock()
	defer a.axisMu.Unlock()

	if err := a.driver.SetAngle(ctx, axis, angle); err != nil {
		return fmt.Errorf("%w: axis %d to %d degrees: %w", ErrMotionFailed, axis, angle, err)
	}
	return nil
}

func (a *Actuator) fail(category models.WasteCategory, err error) error {
	log.Printf("Actuator: Motion for %s aborted: %v", category.Description(), err)
	return err
}
