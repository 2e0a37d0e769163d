// Package audit queues log records for the remote store. Logging never blocks
// the caller: when the queue is full the record is dropped and counted.
package audit

import (
	"context"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"polybin/internal/models"
)

const DefaultQueueSize = 256

// Sink persists audit records
type Sink interface {
	SavePrediction(ctx context.Context, r *models.PredictionRecord) error
	SaveDispose(ctx context.Context, r *models.DisposeRecord) error
	SaveBinStatus(ctx context.Context, r *models.BinStatusRecord) error
	SaveAlert(ctx context.Context, r *models.AlertRecord) error
}

// entry is one queued write
type entry struct {
	kind string
	save func(ctx context.Context, sink Sink) error
}

// Logger is the asynchronous audit writer. A single consumer drains the
// queue in order.
type Logger struct {
	sink    Sink
	queue   chan entry
	now     func() time.Time
	timeout time.Duration

	written atomic.Int64
	failed  atomic.Int64
	dropped atomic.Int64
}

// NewLogger creates a logger in front of sink
func NewLogger(sink Sink, queueSize int) *Logger {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	return &Logger{
		sink:    sink,
		queue:   make(chan entry, queueSize),
		now:     time.Now,
		timeout: 5 * time.Second,
	}
}

// LogPrediction queues a raw prediction
func (l *Logger) LogPrediction(r models.PredictionRecord) {
	l.fill(&r.ID, &r.Timestamp)
	l.enqueue("prediction", func(ctx context.Context, s Sink) error { return s.SavePrediction(ctx, &r) })
}

// LogDispose queues a completed disposal
func (l *Logger) LogDispose(r models.DisposeRecord) {
	l.fill(&r.ID, &r.Timestamp)
	l.enqueue("dispose", func(ctx context.Context, s Sink) error { return s.SaveDispose(ctx, &r) })
}

// LogBinStatus queues a sensor snapshot
func (l *Logger) LogBinStatus(r models.BinStatusRecord) {
	l.fill(&r.ID, &r.Timestamp)
	l.enqueue("bin status", func(ctx context.Context, s Sink) error { return s.SaveBinStatus(ctx, &r) })
}

// LogAlert queues a sent notification
func (l *Logger) LogAlert(r models.AlertRecord) {
	l.fill(&r.ID, &r.Timestamp)
	l.enqueue("alert", func(ctx context.Context, s Sink) error { return s.SaveAlert(ctx, &r) })
}

func (l *Logger) fill(id *uuid.UUID, ts *time.Time) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
	if ts.IsZero() {
		*ts = l.now()
	}
}

func (l *Logger) enqueue(kind string, save func(ctx context.Context, s Sink) error) {
	select {
	case l.queue <- entry{kind: kind, save: save}:
	default:
		l.dropped.Add(1)
		log.Printf("AuditLogger: Warning: queue full, dropping %s record", kind)
	}
}

// Start drains the queue until ctx is done. Records still queued at shutdown
// are flushed with a short deadline.
func (l *Logger) Start(ctx context.Context) {
	log.Println("AuditLogger: starting")
	for {
		select {
		case <-ctx.Done():
			l.flush()
			log.Println("AuditLogger: stopped")
			return
		case e := <-l.queue:
			l.write(ctx, e)
		}
	}
}

func (l *Logger) flush() {
	ctx, cancel := context.WithTimeout(context.Background(), l.timeout)
	defer cancel()
	for {
		select {
		case e := <-l.queue:
			l.write(ctx, e)
		default:
			return
		}
	}
}

func (l *Logger) write(ctx context.Context, e entry) {
	wctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()
	if err := e.save(wctx, l.sink); err != nil {
		l.failed.Add(1)
		log.Printf("AuditLogger: failed to log %s: %v", e.kind, err)
		return
	}
	l.written.Add(1)
}

// Stats returns written, failed and dropped record counts
func (l *Logger) Stats() (written, failed, dropped int64) {
	return l.written.Load(), l.failed.Load(), l.dropped.Load()
}

// NopSink discards every record. It is used when no store is configured.
type NopSink struct{}

func (NopSink) SavePrediction(context.Context, *models.PredictionRecord) error { return nil }
func (NopSink) SaveDispose(context.Context, *models.DisposeRecord) error { return nil }
func (NopSink) SaveBinStatus(context.Context, *models.BinStatusRecord) error { return nil }
func (NopSink) SaveAlert(context.Context, *models.AlertRecord) error { return nil }

// LogSink writes records to the process log
type LogSink struct{}

func (LogSink) SavePrediction(_ context.Context, r *models.PredictionRecord) error {
	return logRecord("prediction", r.ID, fmt.Sprintf("%s %.2f", r.Class, r.Confidence))
}

func (LogSink) SaveDispose(_ context.Context, r *models.DisposeRecord) error {
	return logRecord("dispose", r.ID, r.BinType)
}

func (LogSink) SaveBinStatus(_ context.Context, r *models.BinStatusRecord) error {
	return logRecord("bin status", r.ID, fmt.Sprintf("%v", r.Levels))
}

func (LogSink) SaveAlert(_ context.Context, r *models.AlertRecord) error {
	return logRecord("alert", r.ID, r.BinType)
}

func logRecord(kind string, id uuid.UUID, detail string) error {
	log.Printf("Audit: %s %s %s", kind, id, detail)
	return nil
}
