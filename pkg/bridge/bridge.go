package bridge

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/golang/glog"

	fx "github.com/robotalks/uartbridge/pkg/framework"
	"github.com/robotalks/uartbridge/pkg/gpio"
	"github.com/robotalks/uartbridge/pkg/stats"
	"github.com/robotalks/uartbridge/pkg/uart"
)

// Bridge relays bytes between port A and port B.
type Bridge struct {
	Config   *Config
	Serial   uart.Driver
	GPIO     gpio.Driver
	Registry *stats.Registry

	lock   sync.Mutex
	runner *fx.Runner
	portA  uart.Port
	portB  uart.Port
	pins   []gpio.Pin
	pumps  []*Pump
}

// New creates a Bridge. gpioDrv may be nil when no mode-select pin is driven.
func New(conf *Config, serial uart.Driver, gpioDrv gpio.Driver) *Bridge {
	return &Bridge{
		Config:   conf,
		Serial:   serial,
		GPIO:     gpioDrv,
		Registry: stats.NewRegistry(),
	}
}

// NewFromConfig creates the drivers named in conf and the Bridge.
func NewFromConfig(conf *Config) (*Bridge, error) {
	serial, err := NewSerialDriver(conf.SerialDriver)
	if err != nil {
		return nil, err
	}
	gpioDrv, err := NewGPIODriver(conf.GPIODriver)
	if err != nil {
		return nil, err
	}
	return New(conf, serial, gpioDrv), nil
}

// MustNewBridge creates a Bridge from conf or exits.
func MustNewBridge(conf *Config) *Bridge {
	b, err := NewFromConfig(conf)
	if err != nil {
		glog.Fatalf("create bridge: %v", err)
	}
	return b
}

// Start drives the mode-select pins, configures port B then port A and
// launches both pumps. It returns once the pumps are running. Nothing is
// forwarded if any step fails.
func (b *Bridge) Start(ctx context.Context) error {
	b.lock.Lock()
	defer b.lock.Unlock()
	if b.runner != nil {
		return fmt.Errorf("bridge already started")
	}
	conf := b.Config

	modeSelect := &ModeSelect{Pins: conf.ModePins, Level: conf.ModeLevel}
	pins, err := modeSelect.Apply(b.GPIO)
	if err != nil {
		return err
	}

	portB, err := OpenPort(b.Serial, conf.PortB, conf.Line, conf.QueueSize())
	if err != nil {
		return err
	}
	portA, err := OpenPort(b.Serial, conf.PortA, conf.Line, conf.QueueSize())
	if err != nil {
		portB.Close()
		return err
	}
	if err = setReadTimeout(portA, conf.ReadTimeoutAB); err == nil {
		err = setReadTimeout(portB, conf.ReadTimeoutBA)
	}
	if err != nil {
		portA.Close()
		portB.Close()
		return err
	}

	b.pins, b.portA, b.portB = pins, portA, portB
	b.pumps = []*Pump{
		b.newPump(PumpAB, portA, portB, conf.ReadTimeoutAB),
		b.newPump(PumpBA, portB, portA, conf.ReadTimeoutBA),
	}
	b.runner = fx.NewRunnerWith(ctx)
	for _, pump := range b.pumps {
		b.runner.Go(pump)
	}
	glog.Infof("bridge %s <-> %s started", portA.Name(), portB.Name())
	return nil
}

func (b *Bridge) newPump(name string, src, dst uart.Port, readTimeout time.Duration) *Pump {
	return &Pump{
		PumpName:     name,
		Src:          src,
		Dst:          dst,
		ReadTimeout:  readTimeout,
		BufferSize:   b.Config.BufferSize,
		ErrorBackoff: b.Config.ErrorBackoff,
		Stats:        b.Registry.Counters(name),
	}
}

// MustStart starts the bridge or halts with the startup error.
func (b *Bridge) MustStart(ctx context.Context) *Bridge {
	if err := b.Start(ctx); err != nil {
		glog.Fatalf("bridge halted: %v", err)
	}
	return b
}

// Wait blocks until both pumps stop, which only happens when the context
// passed to Start is cancelled.
func (b *Bridge) Wait() error {
	b.lock.Lock()
	runner := b.runner
	b.lock.Unlock()
	if runner == nil {
		return nil
	}
	return runner.Wait()
}

// Close stops the pumps and closes both ports. Pin levels are left as is.
func (b *Bridge) Close() error {
	b.lock.Lock()
	runner, portA, portB := b.runner, b.portA, b.portB
	b.portA, b.portB = nil, nil
	b.lock.Unlock()
	if runner != nil {
		runner.Cancel()
	}
	var errs fx.AggregatedError
	if portA != nil {
		errs.Add(portA.Close())
	}
	if portB != nil {
		errs.Add(portB.Close())
	}
	return errs.Aggregate()
}

// Pumps returns the running pumps, A to B first.
func (b *Bridge) Pumps() []*Pump {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.pumps
}

// Pins returns the driven mode-select pins.
func (b *Bridge) Pins() []gpio.Pin {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.pins
}

// Meta describes the bridge for status subscribers.
func (b *Bridge) Meta() stats.Meta {
	conf := b.Config
	return stats.Meta{
		Description: fmt.Sprintf("%s %s", conf.SerialDriver, conf.Line),
		Ports: map[string]string{
			"a": conf.PortA.Device,
			"b": conf.PortB.Device,
		},
		ModeLevel: conf.ModeLevel.String(),
		ModePins:  conf.ModePins,
	}
}
