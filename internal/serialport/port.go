// internal/serialport/port.go
package serialport

import (
	"fmt"
	"io"

	"go.bug.st/serial"
)

// Port is the minimal surface the radio and capture adapters need.
// Tests substitute in-memory pipes.
type Port interface {
	io.ReadWriter
	io.Closer
}

// Options describes the line settings for a real port.
type Options struct {
	BaudRate int
	DataBits int
	StopBits int
	Parity   string
}

// Normalize applies defaults for unset values and rejects impossible ones.
func (o Options) Normalize() (Options, error) {
	if o.BaudRate <= 0 {
		o.BaudRate = 115200
	}
	if o.DataBits == 0 {
		o.DataBits = 8
	}
	if o.DataBits < 5 || o.DataBits > 8 {
		return o, fmt.Errorf("serialport: invalid data bits %d: must be between 5 and 8", o.DataBits)
	}
	if o.StopBits == 0 {
		o.StopBits = 1
	}
	if o.StopBits != 1 && o.StopBits != 2 {
		return o, fmt.Errorf("serialport: invalid stop bits %d: supported values are 1 or 2", o.StopBits)
	}
	switch o.Parity {
	case "", "N":
		o.Parity = "N"
	case "E", "O":
	default:
		return o, fmt.Errorf("serialport: unsupported parity %q: expected N, E, or O", o.Parity)
	}
	return o, nil
}

// Mode converts the options into go.bug.st/serial's Mode.
func (o Options) Mode() (*serial.Mode, error) {
	opts, err := o.Normalize()
	if err != nil {
		return nil, err
	}
	mode := &serial.Mode{
		BaudRate: opts.BaudRate,
		DataBits: opts.DataBits,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	if opts.StopBits == 2 {
		mode.StopBits = serial.TwoStopBits
	}
	switch opts.Parity {
	case "E":
		mode.Parity = serial.EvenParity
	case "O":
		mode.Parity = serial.OddParity
	}
	return mode, nil
}

// Open opens a real serial device.
func Open(path string, opts Options) (Port, error) {
	mode, err := opts.Mode()
	if err != nil {
		return nil, err
	}
	p, err := serial.Open(path, mode)
	if err != nil {
		return nil, fmt.Errorf("serialport: open %s: %w", path, err)
	}
	return p, nil
}
