package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"polybin/internal/actuator"
)

const (
	DefaultServoSettle  = 1 * time.Second
	DefaultServoTimeout = 2 * time.Second
)

// ServoCommand is the payload understood by the actuator board
type ServoCommand struct {
	Angle int `json:"angle"`
}

// ServoDriverConfig holds the servo topic and timings
type ServoDriverConfig struct {
	Topic   string        // e.g., "polybin/servo/{axis}"
	Settle  time.Duration // wait after each command
	Timeout time.Duration // broker acknowledgement deadline
}

// ServoDriver positions the servos on the ESP32 actuator board over MQTT
type ServoDriver struct {
	client mqtt.Client
	config ServoDriverConfig
	sleep  func(ctx context.Context, d time.Duration) error
}

// NewServoDriver creates a driver publishing servo commands through client
func NewServoDriver(client mqtt.Client, config ServoDriverConfig) *ServoDriver {
	if config.Timeout <= 0 {
		config.Timeout = DefaultServoTimeout
	}
	return &ServoDriver{client: client, config: config, sleep: sleepContext}
}

// SetAngle publishes the command with QoS 1 and blocks until the servo settled
func (d *ServoDriver) SetAngle(ctx context.Context, axis actuator.Axis, angle int) error {
	if angle < 0 || angle > 180 {
		return fmt.Errorf("angle %d out of range", angle)
	}

	payload, err := json.Marshal(ServoCommand{Angle: angle})
	if err != nil {
		return fmt.Errorf("failed to marshal servo command: %w", err)
	}

	topic := formatTopic(d.config.Topic, "{axis}", strconv.Itoa(int(axis)))
	token := d.client.Publish(topic, 1, false, payload)
	if !token.WaitTimeout(d.config.Timeout) {
		return fmt.Errorf("failed to publish servo command to %s: no acknowledgement after %s", topic, d.config.Timeout)
	}
	if token.Error() != nil {
		return fmt.Errorf("failed to publish servo command to %s: %w", topic, token.Error())
	}

	log.Printf("MQTT Servo: axis %d -> %d", axis, angle)
	return d.sleep(ctx, d.config.Settle)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
