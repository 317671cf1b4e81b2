//go:build tinygo

// Package mcu implements gpio.Driver on microcontroller pins with TinyGo.
package mcu

import (
	"machine"

	"github.com/robotalks/uartbridge/pkg/gpio"
)

// Driver implements gpio.Driver.
type Driver struct{}

// New creates a Driver.
func New() *Driver {
	return &Driver{}
}

// Select implements gpio.Driver.
func (d *Driver) Select(n int) (gpio.Pin, error) {
	if n < 0 || n > 0xff {
		return nil, gpio.ErrInvalidPin
	}
	return &pin{pin: machine.Pin(n)}, nil
}

type pin struct {
	pin machine.Pin
}

func (p *pin) Number() int {
	return int(p.pin)
}

func (p *pin) SetDirection(dir gpio.Direction) error {
	mode := machine.PinInput
	if dir == gpio.Output {
		mode = machine.PinOutput
	}
	p.pin.Configure(machine.PinConfig{Mode: mode})
	return nil
}

func (p *pin) SetLevel(level gpio.Level) error {
	p.pin.Set(bool(level))
	return nil
}

func (p *pin) Level() (gpio.Level, error) {
	return gpio.Level(p.pin.Get()), nil
}
