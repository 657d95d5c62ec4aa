// Package serialport owns the USB-serial device used to talk to the
// shade controller. It auto-detects the port from an allow-list, keeps
// the connection as a mutex-serialized single in-flight frame, and
// leaves reconnect-on-failure to the next caller rather than running a
// background reconnect loop.
package serialport

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.bug.st/serial"

	"github.com/shadehub/shadehub/internal/log"
)

// Status is the point-in-time connection state.
type Status struct {
	Connected bool
	Port      string
	LastOkAt  *time.Time
}

// port is the subset of serial.Port this package depends on, so tests
// can substitute a fake without opening a real device.
type port interface {
	SetReadTimeout(time.Duration) error
	Write([]byte) (int, error)
	Read([]byte) (int, error)
	Close() error
}

// listPortsFunc and openPortFunc are substituted in tests.
var (
	listPortsFunc = serial.GetPortsList
	openPortFunc  = func(name string, mode *serial.Mode) (port, error) {
		return serial.Open(name, mode)
	}
)

// Transport owns the serial device. Exactly one frame may be in flight
// at a time; callers are serialized by mu.
type Transport struct {
	allowList []string
	baudRate  int
	readSize  int

	mu        sync.Mutex
	port      port
	portName  string
	connected bool
	lastOkAt  *time.Time
}

// Option configures a Transport.
type Option func(*Transport)

// WithBaudRate overrides the default 9600 baud.
func WithBaudRate(baud int) Option {
	return func(t *Transport) { t.baudRate = baud }
}

// WithReadBufferSize overrides the default 256-byte read buffer.
func WithReadBufferSize(n int) Option {
	return func(t *Transport) { t.readSize = n }
}

// New returns a Transport that will auto-detect a port from allowList
// (device paths such as "/dev/ttyUSB0") on first use.
func New(allowList []string, opts ...Option) *Transport {
	t := &Transport{
		allowList: allowList,
		baudRate:  9600,
		readSize:  256,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Status reports the current connection state.
func (t *Transport) Status() Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	return Status{Connected: t.connected, Port: t.portName, LastOkAt: t.lastOkAt}
}

// Reconnect closes any existing connection and scans the allow-list for
// a port that opens successfully.
func (t *Transport) Reconnect() (Status, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.reconnectLocked()
}

func (t *Transport) reconnectLocked() (Status, error) {
	if t.port != nil {
		_ = t.port.Close()
		t.port = nil
		t.connected = false
	}

	available, err := listPortsFunc()
	if err != nil {
		return Status{}, newError(CodeNoPortFound, err)
	}
	allowed := make(map[string]bool, len(t.allowList))
	for _, p := range t.allowList {
		allowed[p] = true
	}

	for _, candidate := range available {
		if len(t.allowList) > 0 && !allowed[candidate] {
			continue
		}
		p, err := openPortFunc(candidate, &serial.Mode{BaudRate: t.baudRate})
		if err != nil {
			continue
		}
		t.port = p
		t.portName = candidate
		t.connected = true
		now := time.Now().UTC()
		t.lastOkAt = &now
		log.L().Info().Str("event", "serial.connected").Str("port", candidate).Msg("serial port opened")
		return Status{Connected: true, Port: candidate, LastOkAt: t.lastOkAt}, nil
	}

	return Status{}, newError(CodeNoPortFound, fmt.Errorf("no allow-listed port opened (scanned %d)", len(available)))
}

// SendFrame writes frame and reads the response, serialized against any
// other in-flight frame. On I/O failure the transport marks itself
// disconnected; the caller's next SendFrame triggers a fresh Reconnect.
func (t *Transport) SendFrame(ctx context.Context, frame []byte, timeout time.Duration) ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.connected || t.port == nil {
		if _, err := t.reconnectLocked(); err != nil {
			return nil, newError(CodeNotConnected, err)
		}
	}

	if err := t.port.SetReadTimeout(timeout); err != nil {
		return nil, newError(CodeIOError, err)
	}

	if _, err := t.port.Write(frame); err != nil {
		t.markDisconnectedLocked()
		return nil, newError(CodeIOError, err)
	}

	buf := make([]byte, t.readSize)
	n, err := t.port.Read(buf)
	if err != nil {
		t.markDisconnectedLocked()
		return nil, newError(CodeIOError, err)
	}
	if n == 0 {
		t.markDisconnectedLocked()
		return nil, newError(CodeTimeout, nil)
	}

	now := time.Now().UTC()
	t.lastOkAt = &now
	return buf[:n], nil
}

func (t *Transport) markDisconnectedLocked() {
	if t.port != nil {
		_ = t.port.Close()
	}
	t.port = nil
	t.connected = false
	log.L().Warn().Str("event", "serial.disconnected").Str("port", t.portName).Msg("serial I/O error, marking disconnected")
}

// Close releases the underlying port, if any.
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.port == nil {
		return nil
	}
	err := t.port.Close()
	t.port = nil
	t.connected = false
	return err
}
