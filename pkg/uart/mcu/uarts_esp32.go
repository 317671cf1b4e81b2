//go:build tinygo && esp32

package mcu

import "machine"

var uarts = map[string]*machine.UART{
	"0": machine.UART0,
	"1": machine.UART1,
	"2": machine.UART2,
}
