// Package sensor reads the ultrasonic bin-fill sensors and holds the latest
// consistent snapshot of all four bins.
package sensor

import (
	"context"
	"fmt"
	"time"

	"polybin/internal/models"
)

// Link delivers raw frames from the sensor MCU
type Link interface {
	Available() bool
	ReadFrame(ctx context.Context) ([]byte, error)
}

// Reader polls the link and publishes complete snapshots to the store
type Reader struct {
	link  Link
	store *Store
	now   func() time.Time
}

// NewReader creates a reader writing into store
func NewReader(link Link, store *Store) *Reader {
	return &Reader{link: link, store: store, now: time.Now}
}

// Poll performs one read. On any failure the store keeps its previous
// snapshot and the error says why this cycle produced no update.
func (r *Reader) Poll(ctx context.Context) (models.BinLevels, error) {
	if !r.link.Available() {
		return models.BinLevels{}, ErrUnavailable
	}

	frame, err := r.link.ReadFrame(ctx)
	if err != nil {
		return models.BinLevels{}, err
	}

	levels, err := DecodeBinStatus(frame)
	if err != nil {
		return models.BinLevels{}, fmt.Errorf("failed to decode %d byte frame: %w", len(frame), err)
	}

	r.store.Set(levels, r.now())
	return levels, nil
}

// Store returns the snapshot store the reader writes to
func (r *Reader) Store() *Store {
	return r.store
}
