package models

import (
	"time"

	"github.com/google/uuid"
)

// PredictionRecord is written to prediction_log for every raw prediction
type PredictionRecord struct {
	ID         uuid.UUID `json:"id"`
	Timestamp  time.Time `json:"timestamp"`
	FrameID    string    `json:"frame_id"`
	Class      string    `json:"class"`
	Confidence float64   `json:"confidence"`
	X          float64   `json:"x"`
	Y          float64   `json:"y"`
	Width      float64   `json:"width"`
	Height     float64   `json:"height"`
}

// DisposeRecord is written to dispose_log after a successful disposal
type DisposeRecord struct {
	ID        uuid.UUID `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	BinType   string    `json:"bin_type"`
}

// BinStatusRecord is written to bin_levels after every successful sensor read
type BinStatusRecord struct {
	ID        uuid.UUID `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Levels    BinLevels `json:"levels"`
}

// AlertRecord is written to alert_log when a full-bin notification goes out
type AlertRecord struct {
	ID        uuid.UUID `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	BinType   string    `json:"bin_type"`
}

// Event is pushed to dashboard clients and mirrored on MQTT
type Event struct {
	Event     string      `json:"event"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

const (
	EventSensorUpdate = "sensor_update"
	EventDisposal     = "disposal"
)
