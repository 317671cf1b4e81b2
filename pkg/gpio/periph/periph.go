// Package periph implements gpio.Driver on Linux hosts using periph.io.
package periph

import (
	"fmt"
	"strconv"

	"github.com/golang/glog"
	pgpio "periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"

	"github.com/robotalks/uartbridge/pkg/gpio"
)

// Driver implements gpio.Driver.
type Driver struct{}

// New initializes host drivers and creates a Driver.
func New() (*Driver, error) {
	state, err := host.Init()
	if err != nil {
		return nil, fmt.Errorf("periph host init: %w", err)
	}
	for _, drv := range state.Loaded {
		glog.V(2).Infof("periph: loaded %s", drv)
	}
	return &Driver{}, nil
}

// Select implements gpio.Driver. Pins are looked up by number in the
// periph registry, e.g. 32 resolves GPIO32.
func (d *Driver) Select(n int) (gpio.Pin, error) {
	p := gpioreg.ByName(strconv.Itoa(n))
	if p == nil {
		return nil, fmt.Errorf("%w: %d", gpio.ErrInvalidPin, n)
	}
	return &pin{PinIO: p, number: n}, nil
}

type pin struct {
	pgpio.PinIO
	number    int
	direction gpio.Direction
}

func (p *pin) Number() int {
	return p.number
}

// SetDirection to Output is deferred to SetLevel, periph sets the direction
// and the level in a single Out call.
func (p *pin) SetDirection(dir gpio.Direction) error {
	p.direction = dir
	if dir == gpio.Input {
		return p.PinIO.In(pgpio.PullNoChange, pgpio.NoEdge)
	}
	return nil
}

func (p *pin) SetLevel(level gpio.Level) error {
	if p.direction != gpio.Output {
		return fmt.Errorf("pin %d is not an output", p.number)
	}
	return p.PinIO.Out(pgpio.Level(level))
}

func (p *pin) Level() (gpio.Level, error) {
	return gpio.Level(p.PinIO.Read()), nil
}
