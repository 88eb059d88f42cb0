package serialmux

import (
	"io"
)

// SerialPorter is the part of a serial port the multiplexer needs. Tests
// and the simulator provide their own implementations.
type SerialPorter interface {
	io.ReadWriter
	io.Closer
}

// PortOpener opens the port at path with the given options.
type PortOpener func(path string, opts PortOptions) (SerialPorter, error)
