package models

import "time"

// Prediction is a single detection reported by the vision service
type Prediction struct {
	Class      string  `json:"class"`
	Confidence float64 `json:"confidence"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`
}

// PredictionFrame is the MQTT payload published by the vision service for every inferred frame
type PredictionFrame struct {
	FrameID     string       `json:"frame_id"`
	Timestamp   time.Time    `json:"timestamp"`
	Image       []byte       `json:"image,omitempty"` // base64 JPEG on the wire
	Predictions []Prediction `json:"predictions"`
}

// Top returns the highest confidence prediction of the frame
func (f *PredictionFrame) Top() (Prediction, bool) {
	if f == nil || len(f.Predictions) == 0 {
		return Prediction{}, false
	}
	top := f.Predictions[0]
	for _, p := range f.Predictions[1:] {
		if p.Confidence > top.Confidence {
			top = p
		}
	}
	return top, true
}
