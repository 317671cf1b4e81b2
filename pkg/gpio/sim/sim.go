// Package sim provides simulated GPIO pins.
package sim

import (
	"fmt"
	"strconv"
	"sync"

	"github.com/robotalks/uartbridge/pkg/gpio"
)

// Stage names a pin operation, used for failure injection.
type Stage string

// Pin operations.
const (
	StageSelect    Stage = "select"
	StageDirection Stage = "direction"
	StageLevel     Stage = "level"
)

// Driver implements gpio.Driver.
type Driver struct {
	// OnEvent, if set, is called for every pin operation,
	// e.g. "select 32", "direction 32 output", "level 32 low".
	OnEvent func(event string)
	// MaxPin is the highest valid pin number.
	MaxPin int

	lock     sync.Mutex
	pins     map[int]*Pin
	failures map[string]error
}

// New creates a Driver with pins 0..39.
func New() *Driver {
	return &Driver{
		MaxPin:   39,
		pins:     make(map[int]*Pin),
		failures: make(map[string]error),
	}
}

// FailOn makes the operation on the pin fail with err.
func (d *Driver) FailOn(pin int, stage Stage, err error) *Driver {
	d.lock.Lock()
	d.failures[string(stage)+" "+strconv.Itoa(pin)] = err
	d.lock.Unlock()
	return d
}

// Pin returns the selected pin, or nil.
func (d *Driver) Pin(n int) *Pin {
	d.lock.Lock()
	defer d.lock.Unlock()
	return d.pins[n]
}

// Select implements gpio.Driver.
func (d *Driver) Select(n int) (gpio.Pin, error) {
	if err := d.step(StageSelect, n, ""); err != nil {
		return nil, err
	}
	if n < 0 || n > d.MaxPin {
		return nil, fmt.Errorf("%w: %d", gpio.ErrInvalidPin, n)
	}
	d.lock.Lock()
	defer d.lock.Unlock()
	p := d.pins[n]
	if p == nil {
		p = &Pin{driver: d, number: n}
		d.pins[n] = p
	}
	return p, nil
}

func (d *Driver) step(stage Stage, pin int, arg string) error {
	ev := string(stage) + " " + strconv.Itoa(pin)
	if fn := d.OnEvent; fn != nil {
		if arg != "" {
			fn(ev + " " + arg)
		} else {
			fn(ev)
		}
	}
	d.lock.Lock()
	defer d.lock.Unlock()
	return d.failures[ev]
}

// Pin is a simulated pin.
type Pin struct {
	driver *Driver
	number int

	lock      sync.Mutex
	direction gpio.Direction
	level     gpio.Level
	changes   int
}

// Number implements gpio.Pin.
func (p *Pin) Number() int {
	return p.number
}

// SetDirection implements gpio.Pin.
func (p *Pin) SetDirection(dir gpio.Direction) error {
	if err := p.driver.step(StageDirection, p.number, dir.String()); err != nil {
		return err
	}
	p.lock.Lock()
	p.direction = dir
	p.lock.Unlock()
	return nil
}

// SetLevel implements gpio.Pin.
func (p *Pin) SetLevel(level gpio.Level) error {
	if err := p.driver.step(StageLevel, p.number, level.String()); err != nil {
		return err
	}
	p.lock.Lock()
	defer p.lock.Unlock()
	if p.direction != gpio.Output {
		return fmt.Errorf("pin %d is not an output", p.number)
	}
	p.level = level
	p.changes++
	return nil
}

// Level implements gpio.Pin.
func (p *Pin) Level() (gpio.Level, error) {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.level, nil
}

// Direction returns the configured direction.
func (p *Pin) Direction() gpio.Direction {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.direction
}

// Changes returns how many times SetLevel succeeded.
func (p *Pin) Changes() int {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.changes
}
