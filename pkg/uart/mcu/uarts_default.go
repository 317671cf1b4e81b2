//go:build tinygo && !esp32 && !rp2040 && !rp2350

package mcu

import "machine"

var uarts = map[string]*machine.UART{
	"0": machine.DefaultUART,
}
