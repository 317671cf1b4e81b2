package uart

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrInvalidParams indicates the port parameters are out of range.
	ErrInvalidParams = errors.New("invalid port parameters")
	// ErrUnsupported indicates the driver can't apply the requested setting.
	ErrUnsupported = errors.New("unsupported by driver")
	// ErrNotConfigured indicates the port is used before Configure.
	ErrNotConfigured = errors.New("port not configured")
	// ErrClosed indicates the port is closed.
	ErrClosed = errors.New("port closed")
)

// Parity is the parity mode.
type Parity int

// Parity modes.
const (
	ParityNone Parity = iota
	ParityOdd
	ParityEven
	ParityMark
	ParitySpace
)

var parityNames = []string{"none", "odd", "even", "mark", "space"}

// String implements fmt.Stringer.
func (p Parity) String() string {
	if p < 0 || int(p) >= len(parityNames) {
		return "Parity(" + strconv.Itoa(int(p)) + ")"
	}
	return parityNames[p]
}

// ParseParity parses parity name, or the single letter form (N, O, E, M, S).
func ParseParity(s string) (Parity, error) {
	s = strings.ToLower(s)
	for n, name := range parityNames {
		if s == name || s == name[:1] {
			return Parity(n), nil
		}
	}
	return ParityNone, fmt.Errorf("unknown parity %q", s)
}

// StopBits is the number of stop bits.
type StopBits int

// Stop bits.
const (
	StopBits1 StopBits = iota
	StopBits1Half
	StopBits2
)

// String implements fmt.Stringer.
func (s StopBits) String() string {
	switch s {
	case StopBits1:
		return "1"
	case StopBits1Half:
		return "1.5"
	case StopBits2:
		return "2"
	}
	return "StopBits(" + strconv.Itoa(int(s)) + ")"
}

// ParseStopBits parses "1", "1.5" or "2".
func ParseStopBits(s string) (StopBits, error) {
	switch s {
	case "1":
		return StopBits1, nil
	case "1.5":
		return StopBits1Half, nil
	case "2":
		return StopBits2, nil
	}
	return StopBits1, fmt.Errorf("unknown stop bits %q", s)
}

// FlowControl is the hardware flow control mode.
type FlowControl int

// Flow control modes.
const (
	FlowNone FlowControl = iota
	FlowRTS
	FlowCTS
	FlowRTSCTS
)

var flowNames = []string{"none", "rts", "cts", "rtscts"}

// String implements fmt.Stringer.
func (f FlowControl) String() string {
	if f < 0 || int(f) >= len(flowNames) {
		return "FlowControl(" + strconv.Itoa(int(f)) + ")"
	}
	return flowNames[f]
}

// ParseFlowControl parses flow control name.
func ParseFlowControl(s string) (FlowControl, error) {
	s = strings.ToLower(s)
	for n, name := range flowNames {
		if s == name {
			return FlowControl(n), nil
		}
	}
	return FlowNone, fmt.Errorf("unknown flow control %q", s)
}

// Params is the line configuration of a port.
type Params struct {
	BaudRate    int
	DataBits    int
	Parity      Parity
	StopBits    StopBits
	FlowControl FlowControl
}

// DefaultParams is 115200 8N1 without flow control.
var DefaultParams = Params{
	BaudRate: 115200,
	DataBits: 8,
}

// Validate checks the parameters are in range.
func (p Params) Validate() error {
	if p.BaudRate <= 0 {
		return fmt.Errorf("%w: baud rate %d", ErrInvalidParams, p.BaudRate)
	}
	if p.DataBits < 5 || p.DataBits > 8 {
		return fmt.Errorf("%w: data bits %d", ErrInvalidParams, p.DataBits)
	}
	if p.Parity < ParityNone || p.Parity > ParitySpace {
		return fmt.Errorf("%w: parity %v", ErrInvalidParams, p.Parity)
	}
	if p.StopBits < StopBits1 || p.StopBits > StopBits2 {
		return fmt.Errorf("%w: stop bits %v", ErrInvalidParams, p.StopBits)
	}
	if p.FlowControl < FlowNone || p.FlowControl > FlowRTSCTS {
		return fmt.Errorf("%w: flow control %v", ErrInvalidParams, p.FlowControl)
	}
	return nil
}

// String formats like 115200/8N1.
func (p Params) String() string {
	s := fmt.Sprintf("%d/%d%s%s", p.BaudRate, p.DataBits,
		strings.ToUpper(p.Parity.String()[:1]), p.StopBits)
	if p.FlowControl != FlowNone {
		s += "/" + p.FlowControl.String()
	}
	return s
}

// PinUnchanged leaves the current pin assignment of the peripheral.
const PinUnchanged = -1

// Pins is the pin assignment of a port.
type Pins struct {
	TX  int
	RX  int
	RTS int
	CTS int
}

// UnchangedPins keeps all pins of the peripheral.
var UnchangedPins = Pins{TX: PinUnchanged, RX: PinUnchanged, RTS: PinUnchanged, CTS: PinUnchanged}

// IsUnchanged indicates no pin is reassigned.
func (p Pins) IsUnchanged() bool {
	return p == UnchangedPins
}

// String implements fmt.Stringer.
func (p Pins) String() string {
	pin := func(n int) string {
		if n == PinUnchanged {
			return "-"
		}
		return strconv.Itoa(n)
	}
	return fmt.Sprintf("tx=%s rx=%s rts=%s cts=%s", pin(p.TX), pin(p.RX), pin(p.RTS), pin(p.CTS))
}

// Port is an installed serial port.
type Port interface {
	io.ReadWriteCloser
	// Name returns the device name the port was installed with.
	Name() string
	// Configure applies line parameters.
	Configure(Params) error
	// AssignPins routes the port signals to pins.
	AssignPins(Pins) error
	// SetReadTimeout sets the maximum time Read waits for the first byte.
	// Read returns 0, nil when the timeout elapses.
	SetReadTimeout(time.Duration) error
}

// Driver installs ports.
type Driver interface {
	// Install claims the device and allocates receive/transmit queues of
	// the given depths in bytes. Drivers whose queues are managed by the OS
	// may ignore the depths.
	Install(device string, rxQueue, txQueue int) (Port, error)
}

// IsTimeout tells whether a Read result means "nothing arrived in time".
func IsTimeout(n int, err error) bool {
	if n > 0 {
		return false
	}
	if err == nil || err == io.EOF {
		return true
	}
	var te interface{ Timeout() bool }
	return errors.As(err, &te) && te.Timeout()
}
