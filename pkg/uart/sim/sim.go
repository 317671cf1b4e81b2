// Package sim provides in-memory serial ports.
//
// Bytes injected with Port.Inject appear on the port's receive side, bytes
// written to the port are collected and can be awaited with Port.WaitOutput.
// Failures can be injected per installation stage and per I/O operation.
package sim

import (
	"bytes"
	"fmt"
	"sync"
	"time"

	"github.com/robotalks/uartbridge/pkg/uart"
)

// Stage names a step of port setup, used for failure injection.
type Stage string

// Setup stages.
const (
	StageInstall   Stage = "install"
	StageConfigure Stage = "configure"
	StagePins      Stage = "pins"
	StageTimeout   Stage = "timeout"
)

// Driver implements uart.Driver with simulated ports.
type Driver struct {
	// OnEvent, if set, is called for every setup step and I/O operation,
	// e.g. "install a", "configure a", "read a", "write b".
	OnEvent func(event string)

	lock     sync.Mutex
	ports    map[string]*Port
	failures map[string]error
}

// New creates a Driver.
func New() *Driver {
	return &Driver{
		ports:    make(map[string]*Port),
		failures: make(map[string]error),
	}
}

// FailOn makes the specified stage of the device fail with err.
func (d *Driver) FailOn(device string, stage Stage, err error) *Driver {
	d.lock.Lock()
	d.failures[string(stage)+" "+device] = err
	d.lock.Unlock()
	return d
}

// Port returns the installed port of the device, or nil.
func (d *Driver) Port(device string) *Port {
	d.lock.Lock()
	defer d.lock.Unlock()
	return d.ports[device]
}

// Install implements uart.Driver.
func (d *Driver) Install(device string, rxQueue, txQueue int) (uart.Port, error) {
	if err := d.step(StageInstall, device); err != nil {
		return nil, err
	}
	if rxQueue <= 0 || txQueue <= 0 {
		return nil, fmt.Errorf("%w: queue depth %d/%d", uart.ErrInvalidParams, rxQueue, txQueue)
	}
	d.lock.Lock()
	defer d.lock.Unlock()
	if _, exist := d.ports[device]; exist {
		return nil, fmt.Errorf("device %s already installed", device)
	}
	p := &Port{
		driver:   d,
		name:     device,
		rxQueue:  rxQueue,
		txQueue:  txQueue,
		pins:     uart.UnchangedPins,
		notify:   make(chan struct{}, 1),
		outputCh: make(chan struct{}, 1),
		closed:   make(chan struct{}),
	}
	d.ports[device] = p
	return p, nil
}

func (d *Driver) step(stage Stage, device string) error {
	d.event(string(stage) + " " + device)
	d.lock.Lock()
	defer d.lock.Unlock()
	return d.failures[string(stage)+" "+device]
}

func (d *Driver) event(ev string) {
	if fn := d.OnEvent; fn != nil {
		fn(ev)
	}
}

// Port is a simulated serial port.
type Port struct {
	driver  *Driver
	name    string
	rxQueue int
	txQueue int

	lock        sync.Mutex
	configured  bool
	params      uart.Params
	pins        uart.Pins
	readTimeout time.Duration
	input       bytes.Buffer
	output      bytes.Buffer
	writes      int
	readErrs    []error
	writeErrs   []error

	notify   chan struct{}
	outputCh chan struct{}
	closed   chan struct{}
	once     sync.Once
}

// Name implements uart.Port.
func (p *Port) Name() string {
	return p.name
}

// QueueDepths returns the receive and transmit queue depths at install.
func (p *Port) QueueDepths() (rx, tx int) {
	return p.rxQueue, p.txQueue
}

// Configure implements uart.Port.
func (p *Port) Configure(params uart.Params) error {
	if err := p.driver.step(StageConfigure, p.name); err != nil {
		return err
	}
	if err := params.Validate(); err != nil {
		return err
	}
	p.lock.Lock()
	p.params, p.configured = params, true
	p.lock.Unlock()
	return nil
}

// AssignPins implements uart.Port.
func (p *Port) AssignPins(pins uart.Pins) error {
	if err := p.driver.step(StagePins, p.name); err != nil {
		return err
	}
	p.lock.Lock()
	p.pins = pins
	p.lock.Unlock()
	return nil
}

// SetReadTimeout implements uart.Port.
func (p *Port) SetReadTimeout(timeout time.Duration) error {
	if err := p.driver.step(StageTimeout, p.name); err != nil {
		return err
	}
	if timeout < 0 {
		return fmt.Errorf("%w: read timeout %v", uart.ErrInvalidParams, timeout)
	}
	p.lock.Lock()
	p.readTimeout = timeout
	p.lock.Unlock()
	return nil
}

// Params returns the applied parameters.
func (p *Port) Params() uart.Params {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.params
}

// Pins returns the assigned pins.
func (p *Port) Pins() uart.Pins {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.pins
}

// ReadTimeout returns the read timeout.
func (p *Port) ReadTimeout() time.Duration {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.readTimeout
}

// Inject simulates bytes arriving on the wire.
func (p *Port) Inject(data []byte) {
	if len(data) == 0 {
		return
	}
	p.lock.Lock()
	p.input.Write(data)
	p.lock.Unlock()
	select {
	case p.notify <- struct{}{}:
	default:
	}
}

// FailNextRead makes the following reads return the errors in order.
func (p *Port) FailNextRead(errs ...error) {
	p.lock.Lock()
	p.readErrs = append(p.readErrs, errs...)
	p.lock.Unlock()
}

// FailNextWrite makes the following writes return the errors in order.
func (p *Port) FailNextWrite(errs ...error) {
	p.lock.Lock()
	p.writeErrs = append(p.writeErrs, errs...)
	p.lock.Unlock()
}

// Read implements io.Reader, waiting up to the read timeout for data.
func (p *Port) Read(buf []byte) (int, error) {
	p.driver.event("read " + p.name)
	p.lock.Lock()
	if !p.configured {
		p.lock.Unlock()
		return 0, uart.ErrNotConfigured
	}
	if len(p.readErrs) > 0 {
		err := p.readErrs[0]
		p.readErrs = p.readErrs[1:]
		p.lock.Unlock()
		return 0, err
	}
	timeout := p.readTimeout
	p.lock.Unlock()

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	for {
		p.lock.Lock()
		if p.input.Len() > 0 {
			n, _ := p.input.Read(buf)
			if p.input.Len() > 0 {
				select {
				case p.notify <- struct{}{}:
				default:
				}
			}
			p.lock.Unlock()
			return n, nil
		}
		p.lock.Unlock()
		select {
		case <-p.notify:
		case <-timer.C:
			return 0, nil
		case <-p.closed:
			return 0, uart.ErrClosed
		}
	}
}

// Write implements io.Writer.
func (p *Port) Write(data []byte) (int, error) {
	p.driver.event("write " + p.name)
	p.lock.Lock()
	if !p.configured {
		p.lock.Unlock()
		return 0, uart.ErrNotConfigured
	}
	select {
	case <-p.closed:
		p.lock.Unlock()
		return 0, uart.ErrClosed
	default:
	}
	if len(p.writeErrs) > 0 {
		err := p.writeErrs[0]
		p.writeErrs = p.writeErrs[1:]
		p.lock.Unlock()
		return 0, err
	}
	p.output.Write(data)
	p.writes++
	p.lock.Unlock()
	select {
	case p.outputCh <- struct{}{}:
	default:
	}
	return len(data), nil
}

// Output returns a copy of all bytes written so far.
func (p *Port) Output() []byte {
	p.lock.Lock()
	defer p.lock.Unlock()
	return append([]byte(nil), p.output.Bytes()...)
}

// Writes returns the number of successful Write calls.
func (p *Port) Writes() int {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.writes
}

// WaitOutput waits until at least n bytes are written or timeout, and
// returns the bytes written so far.
func (p *Port) WaitOutput(n int, timeout time.Duration) []byte {
	deadline := time.After(timeout)
	for {
		out := p.Output()
		if len(out) >= n {
			return out
		}
		select {
		case <-p.outputCh:
		case <-deadline:
			return p.Output()
		}
	}
}

// Close implements io.Closer.
func (p *Port) Close() error {
	p.once.Do(func() {
		p.driver.event("close " + p.name)
		close(p.closed)
	})
	return nil
}
