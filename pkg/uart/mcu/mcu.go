//go:build tinygo

// Package mcu implements uart.Driver on microcontroller UARTs with TinyGo.
package mcu

import (
	"fmt"
	"machine"
	"time"

	"github.com/robotalks/uartbridge/pkg/uart"
)

// pollInterval is how often Read checks the receive ring while waiting.
const pollInterval = time.Millisecond

// Driver implements uart.Driver. Device names are UART numbers, "0", "1", ...
type Driver struct {
	installed map[string]bool
}

// New creates a Driver.
func New() *Driver {
	return &Driver{installed: make(map[string]bool)}
}

// Install implements uart.Driver. TinyGo UARTs use a fixed receive ring,
// queue depths are not adjustable.
func (d *Driver) Install(device string, rxQueue, txQueue int) (uart.Port, error) {
	u, ok := uarts[device]
	if !ok {
		return nil, fmt.Errorf("unknown UART %s", device)
	}
	if d.installed[device] {
		return nil, fmt.Errorf("UART %s already installed", device)
	}
	d.installed[device] = true
	return &port{
		uart: u,
		name: device,
		conf: machine.UARTConfig{TX: machine.NoPin, RX: machine.NoPin},
	}, nil
}

type port struct {
	uart        *machine.UART
	name        string
	conf        machine.UARTConfig
	configured  bool
	readTimeout time.Duration
}

func (p *port) Name() string {
	return p.name
}

func (p *port) Configure(params uart.Params) error {
	if err := params.Validate(); err != nil {
		return err
	}
	if params.DataBits != 8 || params.Parity != uart.ParityNone ||
		params.StopBits != uart.StopBits1 || params.FlowControl != uart.FlowNone {
		return fmt.Errorf("%w: %s", uart.ErrUnsupported, params)
	}
	p.conf.BaudRate = uint32(params.BaudRate)
	if err := p.uart.Configure(p.conf); err != nil {
		return err
	}
	p.configured = true
	return nil
}

// AssignPins reconfigures the UART with TX/RX pins. RTS/CTS are not routed.
func (p *port) AssignPins(pins uart.Pins) error {
	if pins.RTS != uart.PinUnchanged || pins.CTS != uart.PinUnchanged {
		return fmt.Errorf("%w: RTS/CTS pins", uart.ErrUnsupported)
	}
	if pins.TX == uart.PinUnchanged && pins.RX == uart.PinUnchanged {
		return nil
	}
	if pins.TX != uart.PinUnchanged {
		p.conf.TX = machine.Pin(pins.TX)
	}
	if pins.RX != uart.PinUnchanged {
		p.conf.RX = machine.Pin(pins.RX)
	}
	return p.uart.Configure(p.conf)
}

func (p *port) SetReadTimeout(timeout time.Duration) error {
	if timeout < 0 {
		return fmt.Errorf("%w: read timeout %v", uart.ErrInvalidParams, timeout)
	}
	p.readTimeout = timeout
	return nil
}

// Read polls the receive ring until data arrives or the timeout elapses.
func (p *port) Read(buf []byte) (int, error) {
	if !p.configured {
		return 0, uart.ErrNotConfigured
	}
	deadline := time.Now().Add(p.readTimeout)
	for p.uart.Buffered() == 0 {
		if !time.Now().Before(deadline) {
			return 0, nil
		}
		time.Sleep(pollInterval)
	}
	return p.uart.Read(buf)
}

func (p *port) Write(data []byte) (int, error) {
	if !p.configured {
		return 0, uart.ErrNotConfigured
	}
	return p.uart.Write(data)
}

// Close is a no-op, the peripheral stays claimed for the process lifetime.
func (p *port) Close() error {
	return nil
}
