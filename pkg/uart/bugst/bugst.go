// Package bugst implements uart.Driver on host serial ports using go.bug.st/serial.
package bugst

import (
	"fmt"
	"io"
	"time"

	"github.com/golang/glog"
	"go.bug.st/serial"

	"github.com/robotalks/uartbridge/pkg/uart"
)

// Driver implements uart.Driver.
type Driver struct {
	// Open opens the device, replaceable in tests.
	Open func(device string, mode *serial.Mode) (serial.Port, error)
}

// New creates a Driver.
func New() *Driver {
	return &Driver{Open: serial.Open}
}

// ListPorts lists serial ports present on the host.
func ListPorts() ([]string, error) {
	return serial.GetPortsList()
}

// Install implements uart.Driver. The kernel owns the queues, so the
// requested depths are only logged.
func (d *Driver) Install(device string, rxQueue, txQueue int) (uart.Port, error) {
	open := d.Open
	if open == nil {
		open = serial.Open
	}
	mode, err := ModeFrom(uart.DefaultParams)
	if err != nil {
		return nil, err
	}
	p, err := open(device, mode)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", device, err)
	}
	glog.V(2).Infof("%s: opened, queue rx=%d tx=%d managed by OS", device, rxQueue, txQueue)
	return &port{Port: p, name: device}, nil
}

// ModeFrom converts uart.Params into serial.Mode.
func ModeFrom(params uart.Params) (*serial.Mode, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if params.FlowControl != uart.FlowNone {
		return nil, fmt.Errorf("%w: flow control %v", uart.ErrUnsupported, params.FlowControl)
	}
	mode := &serial.Mode{
		BaudRate: params.BaudRate,
		DataBits: params.DataBits,
	}
	switch params.Parity {
	case uart.ParityNone:
		mode.Parity = serial.NoParity
	case uart.ParityOdd:
		mode.Parity = serial.OddParity
	case uart.ParityEven:
		mode.Parity = serial.EvenParity
	case uart.ParityMark:
		mode.Parity = serial.MarkParity
	case uart.ParitySpace:
		mode.Parity = serial.SpaceParity
	}
	switch params.StopBits {
	case uart.StopBits1:
		mode.StopBits = serial.OneStopBit
	case uart.StopBits1Half:
		mode.StopBits = serial.OnePointFiveStopBits
	case uart.StopBits2:
		mode.StopBits = serial.TwoStopBits
	}
	return mode, nil
}

type port struct {
	serial.Port
	name string
}

func (p *port) Name() string {
	return p.name
}

func (p *port) Configure(params uart.Params) error {
	mode, err := ModeFrom(params)
	if err != nil {
		return err
	}
	return p.Port.SetMode(mode)
}

// AssignPins accepts only unchanged pins: on a host the device node already
// determines the wiring.
func (p *port) AssignPins(pins uart.Pins) error {
	if !pins.IsUnchanged() {
		return fmt.Errorf("%w: pin assignment %s", uart.ErrUnsupported, pins)
	}
	return nil
}

func (p *port) SetReadTimeout(timeout time.Duration) error {
	if timeout < 0 {
		return fmt.Errorf("%w: read timeout %v", uart.ErrInvalidParams, timeout)
	}
	return p.Port.SetReadTimeout(timeout)
}

// Write keeps writing until all bytes are accepted by the kernel.
func (p *port) Write(data []byte) (int, error) {
	var written int
	for written < len(data) {
		n, err := p.Port.Write(data[written:])
		written += n
		if err != nil {
			return written, err
		}
		if n == 0 {
			return written, io.ErrShortWrite
		}
	}
	return written, nil
}
