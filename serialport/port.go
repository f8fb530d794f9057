// Package serialport adapts an OS serial device to the echo loop's Port.
package serialport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/tarm/serial"
)

// Config selects the device and line parameters.
type Config struct {
	Device      string
	Baud        uint32
	ReadTimeout time.Duration
}

// DefaultErrorBackoff is how long RecvByteContext holds a device error
// before reporting it when no read timeout was configured.
const DefaultErrorBackoff = 100 * time.Millisecond

// Port receives one byte at a time from a serial device.
type Port struct {
	dev     io.ReadWriteCloser
	backoff time.Duration
}

// Open opens cfg.Device at cfg.Baud, 8N1. ReadTimeout must be positive so
// RecvByteContext can observe cancellation between reads.
func Open(cfg Config) (*Port, error) {
	if cfg.ReadTimeout <= 0 {
		return nil, fmt.Errorf("open %s: read timeout must be positive", cfg.Device)
	}
	dev, err := serial.OpenPort(&serial.Config{
		Name:        cfg.Device,
		Baud:        int(cfg.Baud),
		ReadTimeout: cfg.ReadTimeout,
		Size:        8,
		Parity:      serial.ParityNone,
		StopBits:    serial.Stop1,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.Device, err)
	}
	p := New(dev)
	p.backoff = cfg.ReadTimeout
	return p, nil
}

// New wraps an already open device.
func New(dev io.ReadWriteCloser) *Port {
	return &Port{dev: dev, backoff: DefaultErrorBackoff}
}

// RecvByteContext reads exactly one byte. A read that times out with no
// data (0 bytes, or io.EOF as reported for a timed-out tty read) is retried
// after re-checking ctx. Any other error is returned after waiting one
// backoff period, so a dead device is polled at the read-timeout rate.
func (p *Port) RecvByteContext(ctx context.Context) (byte, error) {
	var buf [1]byte
	for {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		n, err := p.dev.Read(buf[:])
		if n == 1 {
			return buf[0], nil
		}
		if err != nil && !errors.Is(err, io.EOF) {
			select {
			case <-time.After(p.backoff):
				return 0, err
			case <-ctx.Done():
				return 0, ctx.Err()
			}
		}
	}
}

func (p *Port) Write(b []byte) (int, error) {
	return p.dev.Write(b)
}

func (p *Port) Close() error {
	return p.dev.Close()
}
