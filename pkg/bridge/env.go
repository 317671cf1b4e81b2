package bridge

import (
	"os"

	"github.com/denisbrodbeck/machineid"
)

// MachineID retrieves an ID of this machine for the bridge, falling back to
// the host name.
func MachineID() string {
	if id, err := machineid.ProtectedID("uartbridge"); err == nil {
		return id
	}
	if name, err := os.Hostname(); err == nil {
		return name
	}
	return "uartbridge"
}
