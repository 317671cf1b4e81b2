package bridge

import (
	"fmt"
	"strconv"

	"github.com/golang/glog"

	"github.com/robotalks/uartbridge/pkg/gpio"
)

// ModeSelect holds the mode-select pins of the radio module at a fixed level.
type ModeSelect struct {
	Pins  []int
	Level gpio.Level
}

// Apply claims every pin as an output and drives it to Level.
// The level is never changed afterwards.
func (m *ModeSelect) Apply(drv gpio.Driver) ([]gpio.Pin, error) {
	if len(m.Pins) == 0 {
		glog.Info("no mode-select pins")
		return nil, nil
	}
	if drv == nil {
		return nil, &StartupError{Stage: StageGPIO, Target: fmt.Sprintf("pins %v", m.Pins), Err: gpio.ErrUnsupported}
	}
	pins := make([]gpio.Pin, 0, len(m.Pins))
	for _, n := range m.Pins {
		pin, err := drv.Select(n)
		if err == nil {
			err = pin.SetDirection(gpio.Output)
		}
		if err == nil {
			err = pin.SetLevel(m.Level)
		}
		if err != nil {
			return nil, &StartupError{Stage: StageGPIO, Target: "pin " + strconv.Itoa(n), Err: err}
		}
		pins = append(pins, pin)
	}
	glog.Infof("mode-select pins %v %s", m.Pins, m.Level)
	return pins, nil
}
