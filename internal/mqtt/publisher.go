package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"polybin/internal/models"
)

// Publisher mirrors dashboard events onto MQTT
type Publisher struct {
	client mqtt.Client

	// Input channel (read by publisher, written by the event broadcaster)
	EventChan chan *models.Event

	// Topic pattern
	eventTopic string // e.g., "polybin/events/{event}"
}

// PublisherConfig holds configuration for MQTT publisher
type PublisherConfig struct {
	EventTopic string
}

// NewPublisher creates a new MQTT publisher reading from eventChan
func NewPublisher(client mqtt.Client, config PublisherConfig, eventChan chan *models.Event) *Publisher {
	return &Publisher{
		client:     client,
		EventChan:  eventChan,
		eventTopic: config.EventTopic,
	}
}

// Broadcast queues an event without blocking; it is dropped when the queue is full
func (p *Publisher) Broadcast(event *models.Event) {
	select {
	case p.EventChan <- event:
	default:
		log.Printf("MQTT Publisher: Warning: event channel full, dropping %s", event.Event)
	}
}

// Start begins publishing events from the channel
// Runs until context is cancelled or channel is closed
func (p *Publisher) Start(ctx context.Context) {
	log.Println("MQTT Publisher: Starting...")

	for {
		select {
		case <-ctx.Done():
			log.Println("MQTT Publisher: Context cancelled, shutting down...")
			return

		case event, ok := <-p.EventChan:
			if !ok {
				log.Println("MQTT Publisher: Event channel closed, shutting down...")
				return
			}

			if err := p.publishEvent(event); err != nil {
				log.Printf("Error publishing event: %v", err)
			}
		}
	}
}

// publishEvent publishes one event, QoS 0 without waiting for delivery
func (p *Publisher) publishEvent(event *models.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", event.Event, err)
	}

	topic := formatTopic(p.eventTopic, "{event}", event.Event)
	token := p.client.Publish(topic, 0, false, payload)
	if token.Error() != nil {
		return fmt.Errorf("failed to publish %s event: %w", event.Event, token.Error())
	}
	return nil
}

// formatTopic replaces a placeholder such as {event} with its value
func formatTopic(topicPattern, placeholder, value string) string {
	return strings.ReplaceAll(topicPattern, placeholder, value)
}
