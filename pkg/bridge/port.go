package bridge

import (
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/uartbridge/pkg/uart"
)

// OpenPort installs and configures a port. A port that fails any step is
// closed and a *StartupError is returned.
func OpenPort(drv uart.Driver, conf PortConfig, line uart.Params, queueSize int) (uart.Port, error) {
	port, err := drv.Install(conf.Device, queueSize, queueSize)
	if err != nil {
		return nil, &StartupError{Stage: StageInstall, Target: conf.Device, Err: err}
	}
	if err = port.Configure(line); err != nil {
		port.Close()
		return nil, &StartupError{Stage: StageConfigure, Target: conf.Device, Err: err}
	}
	if err = port.AssignPins(conf.Pins); err != nil {
		port.Close()
		return nil, &StartupError{Stage: StagePins, Target: conf.Device, Err: err}
	}
	glog.Infof("port %s: %s, %s, queue %d", conf.Device, line, conf.Pins, queueSize)
	return port, nil
}

// setReadTimeout installs the bounded wait on the source port of a pump.
func setReadTimeout(port uart.Port, timeout time.Duration) error {
	if err := port.SetReadTimeout(timeout); err != nil {
		return &StartupError{Stage: StageTimeout, Target: port.Name(), Err: err}
	}
	return nil
}
