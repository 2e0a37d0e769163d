package sensor

import (
	"sync/atomic"
	"time"

	"polybin/internal/models"
)

// Snapshot is one complete set of bin readings
type Snapshot struct {
	Levels    models.BinLevels
	UpdatedAt time.Time // zero until the first successful read
}

// Store holds the latest snapshot. Only the sensor reader writes it; readers
// always get a complete copy, never a half-updated set of four values.
type Store struct {
	current atomic.Pointer[Snapshot]
}

// NewStore starts with every bin reported empty
func NewStore() *Store {
	s := &Store{}
	s.current.Store(&Snapshot{Levels: models.DefaultBinLevels()})
	return s
}

// Set replaces the snapshot
func (s *Store) Set(levels models.BinLevels, at time.Time) {
	s.current.Store(&Snapshot{Levels: levels, UpdatedAt: at})
}

// Snapshot returns a copy of the latest snapshot
func (s *Store) Snapshot() Snapshot {
	return *s.current.Load()
}

// Levels returns a copy of the latest levels
func (s *Store) Levels() models.BinLevels {
	return s.current.Load().Levels
}
