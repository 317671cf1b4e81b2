package bridge

import (
	"fmt"
	"sort"
	"sync"

	"github.com/robotalks/uartbridge/pkg/gpio"
	gpiosim "github.com/robotalks/uartbridge/pkg/gpio/sim"
	"github.com/robotalks/uartbridge/pkg/uart"
	uartsim "github.com/robotalks/uartbridge/pkg/uart/sim"
)

// GPIODriverNone disables mode-select output.
const GPIODriverNone = "none"

// SerialDriverFactory creates a serial driver.
type SerialDriverFactory func() (uart.Driver, error)

// GPIODriverFactory creates a GPIO driver.
type GPIODriverFactory func() (gpio.Driver, error)

var (
	driversLock   sync.RWMutex
	serialDrivers = make(map[string]SerialDriverFactory)
	gpioDrivers   = make(map[string]GPIODriverFactory)
)

// RegisterSerialDriver registers a serial driver by name.
func RegisterSerialDriver(name string, factory SerialDriverFactory) {
	driversLock.Lock()
	serialDrivers[name] = factory
	driversLock.Unlock()
}

// RegisterGPIODriver registers a GPIO driver by name.
func RegisterGPIODriver(name string, factory GPIODriverFactory) {
	driversLock.Lock()
	gpioDrivers[name] = factory
	driversLock.Unlock()
}

// SerialDrivers lists registered serial driver names.
func SerialDrivers() []string {
	driversLock.RLock()
	defer driversLock.RUnlock()
	names := make([]string, 0, len(serialDrivers))
	for name := range serialDrivers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GPIODrivers lists registered GPIO driver names, including "none".
func GPIODrivers() []string {
	driversLock.RLock()
	defer driversLock.RUnlock()
	names := []string{GPIODriverNone}
	for name := range gpioDrivers {
		names = append(names, name)
	}
	sort.Strings(names[1:])
	return names
}

// NewSerialDriver creates the named serial driver.
func NewSerialDriver(name string) (uart.Driver, error) {
	driversLock.RLock()
	factory := serialDrivers[name]
	driversLock.RUnlock()
	if factory == nil {
		return nil, fmt.Errorf("unknown serial driver %q", name)
	}
	return factory()
}

// NewGPIODriver creates the named GPIO driver. "none" gives a nil driver.
func NewGPIODriver(name string) (gpio.Driver, error) {
	if name == GPIODriverNone {
		return nil, nil
	}
	driversLock.RLock()
	factory := gpioDrivers[name]
	driversLock.RUnlock()
	if factory == nil {
		return nil, fmt.Errorf("unknown gpio driver %q", name)
	}
	return factory()
}

func init() {
	RegisterSerialDriver("sim", func() (uart.Driver, error) { return uartsim.New(), nil })
	RegisterGPIODriver("sim", func() (gpio.Driver, error) { return gpiosim.New(), nil })
}
