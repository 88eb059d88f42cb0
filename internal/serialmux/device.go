package serialmux

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/jsdx761/nexus/internal/monitoring"
)

// LineKind classifies a line read from the detector bridge.
type LineKind int

const (
	// LineAlerts carries zero or more ';' separated detector alerts.
	LineAlerts LineKind = iota
	// LineStatus is a bridge log line, prefixed with '#'.
	LineStatus
	LineBlank
)

// Classify returns the kind of a bridge line.
func Classify(line string) LineKind {
	t := strings.TrimSpace(line)
	switch {
	case t == "":
		return LineBlank
	case strings.HasPrefix(t, "#"):
		return LineStatus
	}
	return LineAlerts
}

// Device is the radar detector behind its serial bridge. Each Open opens
// the port afresh, so a Device survives the bridge being unplugged.
type Device struct {
	path string
	opts PortOptions
	open PortOpener

	mu  sync.Mutex
	mux *SerialMux
}

// NewDevice creates a Device for the port at path. A nil open uses
// OpenSerialPort.
func NewDevice(path string, opts PortOptions, open PortOpener) *Device {
	if open == nil {
		open = OpenSerialPort
	}
	return &Device{path: path, opts: opts, open: open}
}

// Path returns the port path.
func (d *Device) Path() string { return d.path }

// Connected reports whether the port is currently open.
func (d *Device) Connected() bool { return d.current() != nil }

func (d *Device) current() *SerialMux {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.mux
}

func (d *Device) detach(mux *SerialMux) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.mux == mux {
		d.mux = nil
	}
}

// Open opens the port and returns its alert lines. The channel is closed
// when the port fails, reaches end of input or ctx is done. Status lines
// are logged and blank lines dropped.
func (d *Device) Open(ctx context.Context) (<-chan string, error) {
	port, err := d.open(d.path, d.opts)
	if err != nil {
		return nil, err
	}
	mux := NewSerialMux(port)
	id, lines := mux.Subscribe()
	d.mu.Lock()
	d.mux = mux
	d.mu.Unlock()
	monitoring.Logf("detector bridge %s open (%s)", d.path, d.opts)

	go func() {
		err := mux.Monitor(ctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			monitoring.Logf("detector bridge %s: %v", d.path, err)
		}
		mux.Close()
	}()

	out := make(chan string)
	go func() {
		defer close(out)
		defer d.detach(mux)
		defer mux.Unsubscribe(id)
		for line := range lines {
			switch Classify(line) {
			case LineBlank:
				continue
			case LineStatus:
				monitoring.Logf("detector bridge: %s", strings.TrimSpace(line))
				continue
			}
			select {
			case out <- line:
			case <-ctx.Done():
				return
			}
		}
		monitoring.Logf("detector bridge %s closed", d.path)
	}()
	return out, nil
}

// SendCommand writes a command to the bridge if it is connected.
func (d *Device) SendCommand(command string) error {
	mux := d.current()
	if mux == nil {
		return errNotConnected
	}
	return mux.SendCommand(command)
}

var errNotConnected = errors.New("detector bridge not connected")
