// Package notifier sends "bin full" notifications through the GSM module.
// The module is driven over a serial link and expects one command byte per bin.
package notifier

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"go.bug.st/serial"

	"polybin/internal/models"
)

const (
	DefaultBaudRate = 9600
	DefaultWarmup   = 2 * time.Second
)

// ErrUnknownCategory is returned for categories without a command byte
var ErrUnknownCategory = errors.New("unknown bin category")

// Opener opens the serial port of the GSM module
type Opener func(portName string, baudRate int) (io.WriteCloser, error)

// OpenSerial opens a real serial port
func OpenSerial(portName string, baudRate int) (io.WriteCloser, error) {
	return serial.Open(portName, &serial.Mode{BaudRate: baudRate})
}

// Config holds GSM link settings
type Config struct {
	PortName string
	BaudRate int
	Warmup   time.Duration // wait after opening the port before writing
}

// GSM sends one byte per notification. Sends are serialized because the
// module shares a single serial link.
type GSM struct {
	cfg  Config
	open Opener

	mu sync.Mutex
}

// NewGSM creates a notifier. A nil opener uses the real serial port.
func NewGSM(cfg Config, open Opener) *GSM {
	if cfg.BaudRate == 0 {
		cfg.BaudRate = DefaultBaudRate
	}
	if open == nil {
		open = OpenSerial
	}
	return &GSM{cfg: cfg, open: open}
}

// Send delivers the notification for one bin
func (g *GSM) Send(ctx context.Context, category models.WasteCategory) error {
	if !category.Valid() {
		return fmt.Errorf("%w: %d", ErrUnknownCategory, int(category))
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	port, err := g.open(g.cfg.PortName, g.cfg.BaudRate)
	if err != nil {
		return fmt.Errorf("failed to open GSM port %s: %w", g.cfg.PortName, err)
	}
	defer port.Close()

	if g.cfg.Warmup > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(g.cfg.Warmup):
		}
	}

	if _, err := port.Write([]byte{category.NotificationByte()}); err != nil {
		return fmt.Errorf("failed to write GSM command for %s: %w", category.Code(), err)
	}

	log.Printf("Notifier: Notification sent for %s bin", category.Code())
	return nil
}
