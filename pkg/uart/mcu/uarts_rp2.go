//go:build tinygo && (rp2040 || rp2350)

package mcu

import "machine"

var uarts = map[string]*machine.UART{
	"0": machine.UART0,
	"1": machine.UART1,
}
