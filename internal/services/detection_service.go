package services

import (
	"context"
	"log"
	"sync/atomic"

	"polybin/internal/models"
)

const DefaultMinConfidence = 0.7

// FrameDebouncer confirms a category after it has been seen long enough
type FrameDebouncer interface {
	Observe(c models.Classification)
	Confirmed() (models.WasteCategory, bool)
}

// PredictionLogger records raw predictions
type PredictionLogger interface {
	LogPrediction(r models.PredictionRecord)
}

// DisposalSubmitter accepts confirmed detections; Submit must not block
type DisposalSubmitter interface {
	Submit(req DisposalRequest) bool
}

// DetectionService consumes vision frames and feeds the debouncer. It never
// drives the actuator itself, so frame processing keeps up during a disposal.
type DetectionService struct {
	debouncer FrameDebouncer
	audit     PredictionLogger
	disposal  DisposalSubmitter

	// Input channel (written by the MQTT subscriber)
	FrameChan chan *models.PredictionFrame

	minConfidence float64
	verbose       bool

	frames        atomic.Int64
	lowConfidence atomic.Int64
	unknown       atomic.Int64
	submitted     atomic.Int64
}

// DetectionServiceConfig holds configuration for the detection service
type DetectionServiceConfig struct {
	MinConfidence float64
	ChannelSize   int
	Verbose       bool
}

// DefaultDetectionServiceConfig returns default configuration
func DefaultDetectionServiceConfig() DetectionServiceConfig {
	return DetectionServiceConfig{
		MinConfidence: DefaultMinConfidence,
		ChannelSize:   8,
	}
}

// NewDetectionService creates a new detection service
func NewDetectionService(debouncer FrameDebouncer, audit PredictionLogger, disposal DisposalSubmitter, config DetectionServiceConfig) *DetectionService {
	return &DetectionService{
		debouncer:     debouncer,
		audit:         audit,
		disposal:      disposal,
		FrameChan:     make(chan *models.PredictionFrame, config.ChannelSize),
		minConfidence: config.MinConfidence,
		verbose:       config.Verbose,
	}
}

// Start processes frames until ctx is cancelled or the channel is closed
func (s *DetectionService) Start(ctx context.Context) {
	log.Printf("DetectionService: Starting (min confidence %.2f)", s.minConfidence)

	for {
		select {
		case <-ctx.Done():
			log.Println("DetectionService: Shutting down...")
			return
		case frame, ok := <-s.FrameChan:
			if !ok {
				return
			}
			s.HandleFrame(frame)
		}
	}
}

// HandleFrame processes one inferred frame
func (s *DetectionService) HandleFrame(frame *models.PredictionFrame) {
	s.frames.Add(1)

	for _, p := range frame.Predictions {
		s.audit.LogPrediction(models.PredictionRecord{
			Timestamp:  frame.Timestamp,
			FrameID:    frame.FrameID,
			Class:      p.Class,
			Confidence: p.Confidence,
			X:          p.X,
			Y:          p.Y,
			Width:      p.Width,
			Height:     p.Height,
		})
	}

	top, ok := frame.Top()
	if !ok {
		return
	}
	if top.Confidence < s.minConfidence {
		s.lowConfidence.Add(1)
		return
	}

	category, ok := models.ParseVisionClass(top.Class)
	if !ok {
		s.unknown.Add(1)
		log.Printf("DetectionService: Unknown class %q in frame %s", top.Class, frame.FrameID)
		return
	}

	if s.verbose {
		log.Printf("DetectionService: Raw prediction %s (confidence %.2f)", category, top.Confidence)
	}
	s.debouncer.Observe(models.Classification{
		Category:   category,
		Confidence: top.Confidence,
		Timestamp:  frame.Timestamp,
	})

	confirmed, ok := s.debouncer.Confirmed()
	if !ok {
		return
	}
	if s.disposal.Submit(DisposalRequest{Category: confirmed, Image: frame.Image, At: frame.Timestamp}) {
		s.submitted.Add(1)
		log.Printf("DetectionService: Confirmed detection %s (confidence %.2f)", confirmed, top.Confidence)
	}
}

// DetectionStats are the frame counters of the detection service
type DetectionStats struct {
	Frames        int64 `json:"frames"`
	LowConfidence int64 `json:"low_confidence"`
	Unknown       int64 `json:"unknown"`
	Submitted     int64 `json:"submitted"`
}

// Stats returns the frame counters
func (s *DetectionService) Stats() DetectionStats {
	return DetectionStats{
		Frames:        s.frames.Load(),
		LowConfidence: s.lowConfidence.Load(),
		Unknown:       s.unknown.Load(),
		Submitted:     s.submitted.Load(),
	}
}
