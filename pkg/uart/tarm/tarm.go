// Package tarm implements uart.Driver using github.com/tarm/serial.
//
// tarm/serial fixes line parameters and the read timeout when the device is
// opened, so the port is reopened whenever Configure or SetReadTimeout
// changes them. Both happen during setup, before the port is shared.
package tarm

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/golang/glog"
	"github.com/tarm/serial"

	"github.com/robotalks/uartbridge/pkg/uart"
)

// Driver implements uart.Driver.
type Driver struct{}

// New creates a Driver.
func New() *Driver {
	return &Driver{}
}

// Install implements uart.Driver.
func (d *Driver) Install(device string, rxQueue, txQueue int) (uart.Port, error) {
	p := &port{conf: serial.Config{Name: device}}
	if err := p.apply(uart.DefaultParams, 0); err != nil {
		return nil, fmt.Errorf("open %s: %w", device, err)
	}
	glog.V(2).Infof("%s: opened, queue rx=%d tx=%d managed by OS", device, rxQueue, txQueue)
	return p, nil
}

// ConfigFrom converts uart.Params into serial.Config.
func ConfigFrom(device string, params uart.Params, readTimeout time.Duration) (*serial.Config, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if params.FlowControl != uart.FlowNone {
		return nil, fmt.Errorf("%w: flow control %v", uart.ErrUnsupported, params.FlowControl)
	}
	conf := &serial.Config{
		Name:        device,
		Baud:        params.BaudRate,
		Size:        byte(params.DataBits),
		ReadTimeout: readTimeout,
	}
	switch params.Parity {
	case uart.ParityNone:
		conf.Parity = serial.ParityNone
	case uart.ParityOdd:
		conf.Parity = serial.ParityOdd
	case uart.ParityEven:
		conf.Parity = serial.ParityEven
	case uart.ParityMark:
		conf.Parity = serial.ParityMark
	case uart.ParitySpace:
		conf.Parity = serial.ParitySpace
	}
	switch params.StopBits {
	case uart.StopBits1:
		conf.StopBits = serial.Stop1
	case uart.StopBits1Half:
		conf.StopBits = serial.Stop1Half
	case uart.StopBits2:
		conf.StopBits = serial.Stop2
	}
	return conf, nil
}

type port struct {
	conf   serial.Config
	params uart.Params
	lock   sync.RWMutex
	sp     *serial.Port
}

func (p *port) Name() string {
	return p.conf.Name
}

func (p *port) apply(params uart.Params, readTimeout time.Duration) error {
	conf, err := ConfigFrom(p.conf.Name, params, readTimeout)
	if err != nil {
		return err
	}
	p.lock.Lock()
	defer p.lock.Unlock()
	if p.sp != nil {
		p.sp.Close()
		p.sp = nil
	}
	sp, err := serial.OpenPort(conf)
	if err != nil {
		return err
	}
	p.sp, p.conf, p.params = sp, *conf, params
	return nil
}

func (p *port) Configure(params uart.Params) error {
	return p.apply(params, p.conf.ReadTimeout)
}

// AssignPins accepts only unchanged pins, the device node determines wiring.
func (p *port) AssignPins(pins uart.Pins) error {
	if !pins.IsUnchanged() {
		return fmt.Errorf("%w: pin assignment %s", uart.ErrUnsupported, pins)
	}
	return nil
}

// SetReadTimeout reopens the device. tarm/serial rounds the timeout to
// 100ms units on POSIX; zero means block until a byte arrives, so it is
// raised to the smallest unit.
func (p *port) SetReadTimeout(timeout time.Duration) error {
	if timeout < 0 {
		return fmt.Errorf("%w: read timeout %v", uart.ErrInvalidParams, timeout)
	}
	if timeout < 100*time.Millisecond {
		timeout = 100 * time.Millisecond
	}
	if timeout == p.conf.ReadTimeout {
		return nil
	}
	return p.apply(p.params, timeout)
}

func (p *port) current() (*serial.Port, error) {
	p.lock.RLock()
	defer p.lock.RUnlock()
	if p.sp == nil {
		return nil, uart.ErrClosed
	}
	return p.sp, nil
}

func (p *port) Read(buf []byte) (int, error) {
	sp, err := p.current()
	if err != nil {
		return 0, err
	}
	return sp.Read(buf)
}

func (p *port) Write(data []byte) (int, error) {
	sp, err := p.current()
	if err != nil {
		return 0, err
	}
	var written int
	for written < len(data) {
		n, err := sp.Write(data[written:])
		written += n
		if err != nil {
			return written, err
		}
		if n == 0 {
			return written, io.ErrShortWrite
		}
	}
	return written, nil
}

func (p *port) Close() error {
	p.lock.Lock()
	defer p.lock.Unlock()
	if p.sp == nil {
		return nil
	}
	err := p.sp.Close()
	p.sp = nil
	return err
}
