package audit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"polybin/internal/models"
)

type memorySink struct {
	mu          sync.Mutex
	predictions []models.PredictionRecord
	disposals   []models.DisposeRecord
	statuses    []models.BinStatusRecord
	alerts      []models.AlertRecord
	err         error
	block       chan struct{}
}

func (s *memorySink) SavePrediction(ctx context.Context, r *models.PredictionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.predictions = append(s.predictions, *r)
	return s.err
}

func (s *memorySink) SaveDispose(ctx context.Context, r *models.DisposeRecord) error {
	if s.block != nil {
		<-s.block
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.disposals = append(s.disposals, *r)
	return s.err
}

func (s *memorySink) SaveBinStatus(ctx context.Context, r *models.BinStatusRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses = append(s.statuses, *r)
	return s.err
}

func (s *memorySink) SaveAlert(ctx context.Context, r *models.AlertRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alerts = append(s.alerts, *r)
	return s.err
}

func (s *memorySink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.predictions) + len(s.disposals) + len(s.statuses) + len(s.alerts)
}

func run(l *Logger) func() {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		l.Start(ctx)
		close(done)
	}()
	return func() {
		cancel()
		<-done
	}
}

func TestLoggerWritesAllKinds(t *testing.T) {
	sink := &memorySink{}
	l := NewLogger(sink, 16)
	stop := run(l)
	defer stop()

	l.LogPrediction(models.PredictionRecord{Class: "Recyclable", Confidence: 0.9})
	l.LogDispose(models.DisposeRecord{BinType: "Recyclable"})
	l.LogBinStatus(models.BinStatusRecord{Levels: models.BinLevels{1, 2, 3, 4}})
	l.LogAlert(models.AlertRecord{BinType: "Hazardous"})

	require.Eventually(t, func() bool { return sink.count() == 4 }, time.Second, 5*time.Millisecond)

	sink.mu.Lock()
	defer sink.mu.Unlock()
	assert.NotEqual(t, uuid.Nil, sink.disposals[0].ID)
	assert.False(t, sink.disposals[0].Timestamp.IsZero())
	assert.Equal(t, "Hazardous", sink.alerts[0].BinType)
	assert.Equal(t, models.BinLevels{1, 2, 3, 4}, sink.statuses[0].Levels)
}

func TestLoggerKeepsGivenIdentity(t *testing.T) {
	sink := &memorySink{}
	l := NewLogger(sink, 4)
	stop := run(l)
	defer stop()

	id := uuid.New()
	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	l.LogDispose(models.DisposeRecord{ID: id, Timestamp: ts, BinType: "Biodegradable"})

	require.Eventually(t, func() bool { return sink.count() == 1 }, time.Second, 5*time.Millisecond)
	sink.mu.Lock()
	defer sink.mu.Unlock()
	assert.Equal(t, id, sink.disposals[0].ID)
	assert.Equal(t, ts, sink.disposals[0].Timestamp)
}

func TestLoggerNeverBlocksWhenFull(t *testing.T) {
	sink := &memorySink{block: make(chan struct{})}
	l := NewLogger(sink, 2)
	stop := run(l)

	l.LogDispose(models.DisposeRecord{BinType: "a"}) // taken by the worker, which blocks
	require.Eventually(t, func() bool { return len(l.queue) == 0 }, time.Second, time.Millisecond)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			l.LogDispose(models.DisposeRecord{BinType: "b"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("logging blocked on a full queue")
	}

	_, _, dropped := l.Stats()
	assert.Equal(t, int64(8), dropped)

	close(sink.block)
	stop()

	written, _, _ := l.Stats()
	assert.Equal(t, int64(3), written)
}

func TestLoggerCountsSinkFailures(t *testing.T) {
	sink := &memorySink{err: errors.New("connection refused")}
	l := NewLogger(sink, 4)
	stop := run(l)
	defer stop()

	l.LogAlert(models.AlertRecord{BinType: "Recyclable"})
	l.LogAlert(models.AlertRecord{BinType: "Recyclable"})

	require.Eventually(t, func() bool {
		_, failed, _ := l.Stats()
		return failed == 2
	}, time.Second, 5*time.Millisecond)
}

func TestNopSink(t *testing.T) {
	var s Sink = NopSink{}
	assert.NoError(t, s.SaveDispose(context.Background(), &models.DisposeRecord{}))
	s = LogSink{}
	assert.NoError(t, s.SaveAlert(context.Background(), &models.AlertRecord{BinType: "Hazardous"}))
}
