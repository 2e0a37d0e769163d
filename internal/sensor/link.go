package sensor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.bug.st/serial"
)

const (
	DefaultBaudRate  = 19200
	DefaultFrameSize = 20
	DefaultTimeout   = 1 * time.Second
)

var (
	// ErrUnavailable means the sensor port is not present this cycle
	ErrUnavailable = errors.New("sensor link unavailable")
	// ErrMalformedFrame means bytes arrived but did not decode to a BIN_STATUS
	ErrMalformedFrame = errors.New("malformed sensor frame")
)

// Port is the subset of a serial port the link uses
type Port interface {
	Read(p []byte) (int, error)
	SetReadTimeout(t time.Duration) error
	Close() error
}

// SerialConfig holds the sensor serial link settings
type SerialConfig struct {
	PortName  string
	BaudRate  int
	FrameSize int           // bytes read per frame
	Timeout   time.Duration // per read
}

// SerialLink reads BIN_STATUS frames from the sensor MCU. The port is opened
// for each read and closed afterwards.
type SerialLink struct {
	cfg  SerialConfig
	list func() ([]string, error)
	open func(name string, mode *serial.Mode) (Port, error)
}

// NewSerialLink creates a link on a real serial port
func NewSerialLink(cfg SerialConfig) *SerialLink {
	if cfg.BaudRate == 0 {
		cfg.BaudRate = DefaultBaudRate
	}
	if cfg.FrameSize <= 0 {
		cfg.FrameSize = DefaultFrameSize
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &SerialLink{
		cfg:  cfg,
		list: serial.GetPortsList,
		open: func(name string, mode *serial.Mode) (Port, error) {
			return serial.Open(name, mode)
		},
	}
}

// Available reports whether the configured port is currently enumerated
func (l *SerialLink) Available() bool {
	ports, err := l.list()
	if err != nil {
		return false
	}
	for _, p := range ports {
		if p == l.cfg.PortName {
			return true
		}
	}
	return false
}

// ReadFrame reads exactly FrameSize bytes. A read that times out before the
// frame is complete fails with ErrMalformedFrame.
func (l *SerialLink) ReadFrame(ctx context.Context) ([]byte, error) {
	port, err := l.open(l.cfg.PortName, &serial.Mode{BaudRate: l.cfg.BaudRate})
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", ErrUnavailable, l.cfg.PortName, err)
	}
	defer port.Close()

	if err := port.SetReadTimeout(l.cfg.Timeout); err != nil {
		return nil, fmt.Errorf("failed to set read timeout: %w", err)
	}

	buf := make([]byte, l.cfg.FrameSize)
	total := 0
	for total < len(buf) {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		n, err := port.Read(buf[total:])
		if err != nil {
			return nil, fmt.Errorf("failed to read sensor frame: %w", err)
		}
		if n == 0 {
			return nil, fmt.Errorf("%w: timed out after %d of %d bytes", ErrMalformedFrame, total, len(buf))
		}
		total += n
	}
	return buf, nil
}
