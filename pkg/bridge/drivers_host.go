//go:build !tinygo

package bridge

import (
	"github.com/robotalks/uartbridge/pkg/gpio"
	"github.com/robotalks/uartbridge/pkg/gpio/periph"
	"github.com/robotalks/uartbridge/pkg/uart"
	"github.com/robotalks/uartbridge/pkg/uart/bugst"
	"github.com/robotalks/uartbridge/pkg/uart/tarm"
)

const (
	platformSerialDriver = "bugst"
	platformGPIODriver   = "periph"
	platformPortA        = "/dev/ttyUSB0"
	platformPortB        = "/dev/ttyS2"
)

// Host serial devices are wired by the kernel, no pin is reassigned.
var platformPinsB = uart.UnchangedPins

func init() {
	RegisterSerialDriver("bugst", func() (uart.Driver, error) { return bugst.New(), nil })
	RegisterSerialDriver("tarm", func() (uart.Driver, error) { return tarm.New(), nil })
	RegisterGPIODriver("periph", func() (gpio.Driver, error) { return periph.New() })
}
