package mqtt

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"polybin/internal/models"
)

// Subscriber handles MQTT subscriptions and writes messages to channels
type Subscriber struct {
	client mqtt.Client

	// Output channel (written by subscriber, read by the detection service)
	FrameChan chan *models.PredictionFrame

	predictionsTopic string
	sendTimeout      time.Duration
	now              func() time.Time
	verbose          bool
}

// SubscriberConfig holds configuration for MQTT subscriber
type SubscriberConfig struct {
	PredictionsTopic string        // e.g., "polybin/vision/predictions"
	SendTimeout      time.Duration // how long a frame may wait for the consumer
	Verbose          bool
}

// NewSubscriber creates a new MQTT subscriber writing to frameChan
func NewSubscriber(client mqtt.Client, config SubscriberConfig, frameChan chan *models.PredictionFrame) *Subscriber {
	if config.SendTimeout <= 0 {
		config.SendTimeout = 100 * time.Millisecond
	}
	return &Subscriber{
		client:           client,
		FrameChan:        frameChan,
		predictionsTopic: config.PredictionsTopic,
		sendTimeout:      config.SendTimeout,
		now:              time.Now,
		verbose:          config.Verbose,
	}
}

// SubscribeAll subscribes to the vision prediction topic
func (s *Subscriber) SubscribeAll() error {
	if s.predictionsTopic == "" {
		return fmt.Errorf("no predictions topic configured")
	}
	// QoS 0: a lost frame is replaced by the next one
	token := s.client.Subscribe(s.predictionsTopic, 0, s.handlePredictions)
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to subscribe to predictions topic: %w", token.Error())
	}
	log.Printf("Subscribed to predictions topic: %s", s.predictionsTopic)
	return nil
}

// handlePredictions decodes one inferred frame and hands it to the consumer
func (s *Subscriber) handlePredictions(client mqtt.Client, msg mqtt.Message) {
	var frame models.PredictionFrame
	if err := json.Unmarshal(msg.Payload(), &frame); err != nil {
		log.Printf("Error unmarshaling prediction frame: %v", err)
		return
	}
	if frame.Timestamp.IsZero() {
		frame.Timestamp = s.now()
	}

	if s.verbose {
		log.Printf("Received frame %s with %d predictions", frame.FrameID, len(frame.Predictions))
	}

	select {
	case s.FrameChan <- &frame:
	case <-time.After(s.sendTimeout):
		log.Printf("Warning: Frame channel full, dropping frame %s", frame.FrameID)
	}
}
