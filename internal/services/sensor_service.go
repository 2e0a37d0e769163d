package services

import (
	"context"
	"errors"
	"log"
	"sync/atomic"
	"time"

	"polybin/internal/models"
	"polybin/internal/sensor"
)

const DefaultSensorInterval = 2 * time.Second

// SensorPoller performs one sensor read
type SensorPoller interface {
	Poll(ctx context.Context) (models.BinLevels, error)
}

// BinStatusLogger records sensor snapshots
type BinStatusLogger interface {
	LogBinStatus(r models.BinStatusRecord)
}

// SensorService polls the bin sensors and pushes every cycle to the dashboard
type SensorService struct {
	poller   SensorPoller
	store    LevelReader
	audit    BinStatusLogger
	events   EventSink
	interval time.Duration
	timeout  time.Duration
	now      func() time.Time

	available atomic.Bool
	reads     atomic.Int64
	failures  atomic.Int64
}

// SensorServiceConfig holds configuration for sensor service
type SensorServiceConfig struct {
	Interval time.Duration
	Timeout  time.Duration // upper bound for one read
}

// DefaultSensorServiceConfig returns default configuration
func DefaultSensorServiceConfig() SensorServiceConfig {
	return SensorServiceConfig{
		Interval: DefaultSensorInterval,
		Timeout:  DefaultSensorInterval,
	}
}

// NewSensorService creates a new sensor service. store is the snapshot the
// poller writes to; it is re-broadcast when a read fails.
func NewSensorService(poller SensorPoller, store LevelReader, audit BinStatusLogger, events EventSink, config SensorServiceConfig) *SensorService {
	if config.Interval <= 0 {
		config.Interval = DefaultSensorInterval
	}
	if config.Timeout <= 0 {
		config.Timeout = config.Interval
	}
	s := &SensorService{
		poller:   poller,
		store:    store,
		audit:    audit,
		events:   events,
		interval: config.Interval,
		timeout:  config.Timeout,
		now:      time.Now,
	}
	s.available.Store(true)
	return s
}

// Start polls until ctx is cancelled
func (s *SensorService) Start(ctx context.Context) {
	log.Printf("SensorService: Starting, polling every %v", s.interval)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.PollOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			log.Println("SensorService: Shutting down...")
			return
		case <-ticker.C:
			s.PollOnce(ctx)
		}
	}
}

// PollOnce reads the sensors once. The dashboard always gets the current
// snapshot, which is the previous one when the read failed.
func (s *SensorService) PollOnce(ctx context.Context) {
	pctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	now := s.now()
	levels, err := s.poller.Poll(pctx)
	if err != nil {
		s.failures.Add(1)
		s.logFailure(err)
		levels = s.store.Levels()
	} else {
		s.reads.Add(1)
		if !s.available.Swap(true) {
			log.Println("SensorService: Sensor link is back")
		}
		s.audit.LogBinStatus(models.BinStatusRecord{Timestamp: now, Levels: levels})
	}

	if s.events != nil {
		s.events.Broadcast(SensorUpdateEvent(levels, now))
	}
}

func (s *SensorService) logFailure(err error) {
	if errors.Is(err, sensor.ErrUnavailable) {
		// logged once per outage
		if s.available.Swap(false) {
			log.Printf("SensorService: Sensor link unavailable, keeping last readings")
		}
		return
	}
	log.Printf("SensorService: Error reading sensors: %v", err)
}

// SensorStats are the read counters of the sensor service
type SensorStats struct {
	Reads     int64 `json:"reads"`
	Failures  int64 `json:"failures"`
	Available bool  `json:"available"`
}

// Stats returns the read counters
func (s *SensorService) Stats() SensorStats {
	return SensorStats{
		Reads:     s.reads.Load(),
		Failures:  s.failures.Load(),
		Available: s.available.Load(),
	}
}
