package services

import (
	"context"
	"log"
	"sync"
	"time"

	"polybin/internal/arbiter"
	"polybin/internal/dataset"
	"polybin/internal/models"
)

// DisposalRequest is a confirmed detection waiting for the actuator
type DisposalRequest struct {
	Category models.WasteCategory
	Image    []byte // frame that completed the confirmation, may be empty
	At       time.Time
}

// Arbiter decides and runs one disposal
type Arbiter interface {
	TryDispose(ctx context.Context, category models.WasteCategory, levels models.BinLevels, now time.Time) (arbiter.Outcome, error)
}

// LevelReader provides the latest complete bin levels
type LevelReader interface {
	Levels() models.BinLevels
}

// ConfirmationSource re-checks a detection before it is acted on
type ConfirmationSource interface {
	Confirmed() (models.WasteCategory, bool)
}

// SampleSubmitter queues dataset images
type SampleSubmitter interface {
	Submit(s dataset.Sample)
}

// DisposalService runs disposals on its own worker. At most one request is
// pending; further confirmations are dropped until it has been taken.
type DisposalService struct {
	arbiter Arbiter
	levels  LevelReader
	confirm ConfirmationSource
	samples SampleSubmitter // nil disables dataset capture
	events  EventSink       // nil disables events

	requests chan DisposalRequest
	now      func() time.Time

	mu       sync.Mutex
	outcomes map[string]int64
	stale    int64
}

// NewDisposalService creates a disposal worker. samples and events may be nil.
func NewDisposalService(arb Arbiter, levels LevelReader, confirm ConfirmationSource, samples SampleSubmitter, events EventSink) *DisposalService {
	return &DisposalService{
		arbiter:  arb,
		levels:   levels,
		confirm:  confirm,
		samples:  samples,
		events:   events,
		requests: make(chan DisposalRequest, 1),
		now:      time.Now,
		outcomes: make(map[string]int64),
	}
}

// Submit queues a request without blocking and reports whether it was taken
func (s *DisposalService) Submit(req DisposalRequest) bool {
	select {
	case s.requests <- req:
		return true
	default:
		return false
	}
}

// Start runs queued disposals until ctx is cancelled
func (s *DisposalService) Start(ctx context.Context) {
	log.Println("DisposalService: Starting...")

	for {
		select {
		case <-ctx.Done():
			log.Println("DisposalService: Shutting down...")
			return
		case req := <-s.requests:
			s.handle(ctx, req)
		}
	}
}

func (s *DisposalService) handle(ctx context.Context, req DisposalRequest) {
	// the debouncer may have moved on while the request waited
	current, ok := s.confirm.Confirmed()
	if !ok || current != req.Category {
		s.mu.Lock()
		s.stale++
		s.mu.Unlock()
		log.Printf("DisposalService: Dropping stale request for %s", req.Category)
		return
	}

	outcome, err := s.dispose(ctx, req.Category, false)
	if err != nil {
		log.Printf("DisposalService: %v", err)
		return
	}
	if outcome.Kind == arbiter.Disposed && s.samples != nil {
		s.samples.Submit(dataset.Sample{Category: req.Category, Image: req.Image, TakenAt: req.At})
	}
}

// ManualDispose runs a disposal requested from the dashboard. It goes through
// the same arbiter, so cooldown and full-bin rules apply.
func (s *DisposalService) ManualDispose(ctx context.Context, category models.WasteCategory) (arbiter.Outcome, error) {
	return s.dispose(ctx, category, true)
}

func (s *DisposalService) dispose(ctx context.Context, category models.WasteCategory, manual bool) (arbiter.Outcome, error) {
	outcome, err := s.arbiter.TryDispose(ctx, category, s.levels.Levels(), time.Time{})

	s.mu.Lock()
	s.outcomes[outcome.Kind.String()]++
	s.mu.Unlock()

	if err != nil {
		return outcome, err
	}

	if outcome.Kind == arbiter.Disposed && s.events != nil {
		s.events.Broadcast(&models.Event{
			Event:     models.EventDisposal,
			Timestamp: s.now(),
			Data: DisposalEvent{
				Category: category.String(),
				BinType:  category.Description(),
				Manual:   manual,
			},
		})
	}
	return outcome, nil
}

// DisposalStats are the outcome counters of the disposal service
type DisposalStats struct {
	Outcomes map[string]int64 `json:"outcomes"`
	Stale    int64            `json:"stale"`
}

// Stats returns a copy of the outcome counters
func (s *DisposalService) Stats() DisposalStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	outcomes := make(map[string]int64, len(s.outcomes))
	for k, v := range s.outcomes {
		outcomes[k] = v
	}
	return DisposalStats{Outcomes: outcomes, Stale: s.stale}
}
