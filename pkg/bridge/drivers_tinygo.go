//go:build tinygo

package bridge

import (
	"github.com/robotalks/uartbridge/pkg/gpio"
	gpiomcu "github.com/robotalks/uartbridge/pkg/gpio/mcu"
	"github.com/robotalks/uartbridge/pkg/uart"
	uartmcu "github.com/robotalks/uartbridge/pkg/uart/mcu"
)

const (
	platformSerialDriver = "mcu"
	platformGPIODriver   = "mcu"
	platformPortA        = "0"
	platformPortB        = "2"
)

// Port A stays on the USB bridge pins, port B is routed to the radio module.
var platformPinsB = uart.Pins{TX: 17, RX: 16, RTS: uart.PinUnchanged, CTS: uart.PinUnchanged}

func init() {
	RegisterSerialDriver("mcu", func() (uart.Driver, error) { return uartmcu.New(), nil })
	RegisterGPIODriver("mcu", func() (gpio.Driver, error) { return gpiomcu.New(), nil })
}
