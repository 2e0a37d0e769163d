package services

import (
	"context"
	"log"
	"sync/atomic"
	"time"

	"polybin/internal/models"
)

const DefaultNotificationDelay = 5 * time.Second

// NotificationGate decides which bins are due for a notification
type NotificationGate interface {
	Poll(levels models.BinLevels, now time.Time) []models.WasteCategory
	Rearm(c models.WasteCategory)
}

// Sender delivers one notification, possibly blocking on a serial link
type Sender interface {
	Send(ctx context.Context, category models.WasteCategory) error
}

// AlertLogger records sent notifications
type AlertLogger interface {
	LogAlert(r models.AlertRecord)
}

// AlertCue plays the standard full-bin cue
type AlertCue interface {
	PlayAlert(category models.WasteCategory)
}

// NotificationService checks the latest levels and notifies for bins that
// just became full. It checks every tick; the gate enforces the notification
// interval.
type NotificationService struct {
	gate   NotificationGate
	sender Sender
	levels LevelReader
	audit  AlertLogger
	alerts AlertCue // nil disables the audio cue
	tick   time.Duration
	delay  time.Duration
	now    func() time.Time
	sleep  func(ctx context.Context, d time.Duration) bool

	sent   atomic.Int64
	failed atomic.Int64
}

// NotificationServiceConfig holds configuration for the notification service
type NotificationServiceConfig struct {
	Tick  time.Duration // how often the gate is consulted
	Delay time.Duration // pause after each notification before the next bin
}

// DefaultNotificationServiceConfig returns default configuration
func DefaultNotificationServiceConfig() NotificationServiceConfig {
	return NotificationServiceConfig{
		Tick:  DefaultSensorInterval,
		Delay: DefaultNotificationDelay,
	}
}

// NewNotificationService creates a new notification service
func NewNotificationService(gate NotificationGate, sender Sender, levels LevelReader, audit AlertLogger, alerts AlertCue, config NotificationServiceConfig) *NotificationService {
	if config.Tick <= 0 {
		config.Tick = DefaultSensorInterval
	}
	return &NotificationService{
		gate:   gate,
		sender: sender,
		levels: levels,
		audit:  audit,
		alerts: alerts,
		tick:   config.Tick,
		delay:  config.Delay,
		now:    time.Now,
		sleep:  sleepContext,
	}
}

// Start checks the bins until ctx is cancelled
func (s *NotificationService) Start(ctx context.Context) {
	log.Printf("NotificationService: Starting, checking every %v", s.tick)

	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("NotificationService: Shutting down...")
			return
		case <-ticker.C:
			s.Check(ctx)
		}
	}
}

// Check runs one gate poll and sends whatever is due, one bin at a time
func (s *NotificationService) Check(ctx context.Context) {
	due := s.gate.Poll(s.levels.Levels(), s.now())

	for i, category := range due {
		if ctx.Err() != nil {
			// unsent bins stay eligible
			for _, c := range due[i:] {
				s.gate.Rearm(c)
			}
			return
		}

		if err := s.sender.Send(ctx, category); err != nil {
			s.failed.Add(1)
			s.gate.Rearm(category)
			log.Printf("NotificationService: Failed to notify %s bin: %v", category.Code(), err)
			continue
		}

		s.sent.Add(1)
		log.Printf("NotificationService: Notification sent for %s bin", category.Code())
		s.audit.LogAlert(models.AlertRecord{Timestamp: s.now(), BinType: category.Code()})
		if s.alerts != nil {
			s.alerts.PlayAlert(category)
		}

		if !s.sleep(ctx, s.delay) {
			for _, c := range due[i+1:] {
				s.gate.Rearm(c)
			}
			return
		}
	}
}

// NotificationStats are the counters of the notification service
type NotificationStats struct {
	Sent   int64 `json:"sent"`
	Failed int64 `json:"failed"`
}

// Stats returns the notification counters
func (s *NotificationService) Stats() NotificationStats {
	return NotificationStats{Sent: s.sent.Load(), Failed: s.failed.Load()}
}

// sleepContext waits for d and reports false if ctx ended first
func sleepContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
