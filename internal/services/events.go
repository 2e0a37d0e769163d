package services

import (
	"time"

	"polybin/internal/models"
)

// EventSink receives dashboard events; Broadcast must not block
type EventSink interface {
	Broadcast(event *models.Event)
}

// EventBroadcaster fans events out to every sink (websocket hub, MQTT)
type EventBroadcaster struct {
	sinks []EventSink
	now   func() time.Time
}

// NewEventBroadcaster creates a broadcaster; nil sinks are skipped
func NewEventBroadcaster(sinks ...EventSink) *EventBroadcaster {
	b := &EventBroadcaster{now: time.Now}
	for _, s := range sinks {
		if s != nil {
			b.sinks = append(b.sinks, s)
		}
	}
	return b
}

// Broadcast stamps the event and hands it to every sink
func (b *EventBroadcaster) Broadcast(event *models.Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = b.now()
	}
	for _, s := range b.sinks {
		s.Broadcast(event)
	}
}

// SensorUpdateEvent is the dashboard payload for a sensor snapshot
func SensorUpdateEvent(levels models.BinLevels, at time.Time) *models.Event {
	return &models.Event{
		Event:     models.EventSensorUpdate,
		Timestamp: at,
		Data:      levels.SensorMap(),
	}
}

// DisposalEvent is the dashboard payload for a completed disposal
type DisposalEvent struct {
	Category string `json:"category"`
	BinType  string `json:"bin_type"`
	Manual   bool   `json:"manual"`
}
