package bridge

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/robotalks/uartbridge/pkg/gpio"
	"github.com/robotalks/uartbridge/pkg/uart"
)

// PortConfig identifies one side of the bridge.
type PortConfig struct {
	// Device is the driver specific device name.
	Device string
	// Pins is the pin assignment, uart.UnchangedPins when the board fixes it.
	Pins uart.Pins
}

// Config is the complete bridge configuration. It is built once at startup
// and not modified afterwards.
type Config struct {
	// ID identifies the bridge in status reports.
	ID string
	// SerialDriver and GPIODriver select driver backends by name.
	SerialDriver string
	GPIODriver   string

	// Line is applied to both ports.
	Line  uart.Params
	PortA PortConfig
	PortB PortConfig

	// BufferSize is the transfer buffer capacity of each pump.
	BufferSize int
	// QueueFactor sizes driver rx/tx queues as a multiple of BufferSize.
	QueueFactor int

	// ModePins are driven to ModeLevel before the ports are configured.
	ModePins  []int
	ModeLevel gpio.Level

	// ReadTimeoutAB is the read timeout on port A (A to B direction),
	// ReadTimeoutBA on port B.
	ReadTimeoutAB time.Duration
	ReadTimeoutBA time.Duration
	// ErrorBackoff is the pause of a pump after a read error.
	ErrorBackoff time.Duration

	// MQTTBrokerURL enables status reporting to MQTT,
	// e.g. mqtt://host:port/topic-prefix
	MQTTBrokerURL string
	// StatusAddr enables the websocket status stream, e.g. :8080
	StatusAddr string
	// ReportInterval is the status reporting period.
	ReportInterval time.Duration
}

// Defaults.
const (
	DefaultBufferSize     = 1024
	DefaultQueueFactor    = 2
	DefaultReadTimeout    = 10 * time.Millisecond
	DefaultErrorBackoff   = 100 * time.Millisecond
	DefaultReportInterval = time.Second
)

// Pump names.
const (
	PumpAB = "a2b"
	PumpBA = "b2a"
)

var defaultConfig = Config{
	SerialDriver:   platformSerialDriver,
	GPIODriver:     platformGPIODriver,
	Line:           uart.DefaultParams,
	PortA:          PortConfig{Device: platformPortA, Pins: uart.UnchangedPins},
	PortB:          PortConfig{Device: platformPortB, Pins: platformPinsB},
	BufferSize:     DefaultBufferSize,
	QueueFactor:    DefaultQueueFactor,
	ModePins:       []int{32, 33},
	ModeLevel:      gpio.Low,
	ReadTimeoutAB:  DefaultReadTimeout,
	ReadTimeoutBA:  DefaultReadTimeout,
	ErrorBackoff:   DefaultErrorBackoff,
	ReportInterval: DefaultReportInterval,
}

func init() {
	if val := os.Getenv("UARTBRIDGE_SERIAL_DRIVER"); val != "" {
		defaultConfig.SerialDriver = val
	}
	if val := os.Getenv("UARTBRIDGE_GPIO_DRIVER"); val != "" {
		defaultConfig.GPIODriver = val
	}
	if val := os.Getenv("UARTBRIDGE_PORT_A"); val != "" {
		defaultConfig.PortA.Device = val
	}
	if val := os.Getenv("UARTBRIDGE_PORT_B"); val != "" {
		defaultConfig.PortB.Device = val
	}
	if val := os.Getenv("UARTBRIDGE_BAUD"); val != "" {
		if baud, err := strconv.Atoi(val); err == nil {
			defaultConfig.Line.BaudRate = baud
		}
	}
	if val := os.Getenv("UARTBRIDGE_MODE_LEVEL"); val != "" {
		if level, err := gpio.ParseLevel(val); err == nil {
			defaultConfig.ModeLevel = level
		}
	}
	if val := os.Getenv("UARTBRIDGE_MQTT_URL"); val != "" {
		defaultConfig.MQTTBrokerURL = val
	}
}

// SetupFlags sets command line flags.
func SetupFlags() {
	c := &defaultConfig
	flag.StringVar(&c.ID, "id", c.ID, "Bridge ID in status reports, machine ID if empty.")
	flag.StringVar(&c.SerialDriver, "serial", c.SerialDriver, "Serial driver: "+strings.Join(SerialDrivers(), ", "))
	flag.StringVar(&c.GPIODriver, "gpio", c.GPIODriver, "GPIO driver: "+strings.Join(GPIODrivers(), ", "))
	flag.StringVar(&c.PortA.Device, "a", c.PortA.Device, "Port A device.")
	flag.StringVar(&c.PortB.Device, "b", c.PortB.Device, "Port B device.")
	flag.IntVar(&c.PortB.Pins.TX, "b-tx", c.PortB.Pins.TX, "Port B TX pin, -1 unchanged.")
	flag.IntVar(&c.PortB.Pins.RX, "b-rx", c.PortB.Pins.RX, "Port B RX pin, -1 unchanged.")
	flag.IntVar(&c.Line.BaudRate, "baud", c.Line.BaudRate, "Baud rate of both ports.")
	flag.IntVar(&c.Line.DataBits, "data-bits", c.Line.DataBits, "Data bits of both ports.")
	flag.Var((*parityValue)(&c.Line.Parity), "parity", "Parity: none, odd, even, mark, space.")
	flag.Var((*stopBitsValue)(&c.Line.StopBits), "stop-bits", "Stop bits: 1, 1.5, 2.")
	flag.Var((*flowValue)(&c.Line.FlowControl), "flow", "Hardware flow control: none, rts, cts, rtscts.")
	flag.IntVar(&c.BufferSize, "buffer", c.BufferSize, "Transfer buffer size in bytes.")
	flag.Var((*pinsValue)(&c.ModePins), "mode-pins", "Comma separated mode-select pins, empty to skip.")
	flag.Var((*levelValue)(&c.ModeLevel), "mode-level", "Mode-select level: low, high.")
	flag.DurationVar(&c.ReadTimeoutAB, "a2b-timeout", c.ReadTimeoutAB, "Read timeout on port A.")
	flag.DurationVar(&c.ReadTimeoutBA, "b2a-timeout", c.ReadTimeoutBA, "Read timeout on port B.")
	flag.StringVar(&c.MQTTBrokerURL, "mqtt", c.MQTTBrokerURL, "MQTT broker URL for status reports.")
	flag.StringVar(&c.StatusAddr, "ws", c.StatusAddr, "Listen address of websocket status stream.")
	flag.DurationVar(&c.ReportInterval, "report-interval", c.ReportInterval, "Status report interval.")
}

// Default gets the default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a Config with default configurations.
func NewConfig() *Config {
	conf := defaultConfig
	conf.ModePins = append([]int(nil), defaultConfig.ModePins...)
	return &conf
}

// QueueSize is the rx/tx queue depth requested from the driver.
func (c *Config) QueueSize() int {
	return c.BufferSize * c.QueueFactor
}

// ReportEnabled tells whether any status publisher is configured.
func (c *Config) ReportEnabled() bool {
	return c.MQTTBrokerURL != "" || c.StatusAddr != ""
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if err := c.Line.Validate(); err != nil {
		return err
	}
	if c.PortA.Device == "" || c.PortB.Device == "" {
		return fmt.Errorf("both port devices must be specified")
	}
	if c.PortA.Device == c.PortB.Device {
		return fmt.Errorf("port A and B are the same device %s", c.PortA.Device)
	}
	if c.BufferSize <= 0 {
		return fmt.Errorf("invalid buffer size %d", c.BufferSize)
	}
	if c.QueueFactor <= 0 {
		return fmt.Errorf("invalid queue factor %d", c.QueueFactor)
	}
	if c.ReadTimeoutAB < 0 || c.ReadTimeoutBA < 0 {
		return fmt.Errorf("read timeouts must not be negative")
	}
	if len(c.ModePins) > 0 && c.GPIODriver == GPIODriverNone {
		return fmt.Errorf("mode pins %v need a gpio driver, use -mode-pins= to skip them", c.ModePins)
	}
	seen := make(map[int]bool)
	for _, pin := range c.ModePins {
		if pin < 0 {
			return fmt.Errorf("invalid mode pin %d", pin)
		}
		if seen[pin] {
			return fmt.Errorf("duplicated mode pin %d", pin)
		}
		seen[pin] = true
	}
	if c.ReportEnabled() && c.ReportInterval <= 0 {
		return fmt.Errorf("invalid report interval %v", c.ReportInterval)
	}
	return nil
}

// MustValidate validates and fails on error.
func (c *Config) MustValidate() *Config {
	if err := c.Validate(); err != nil {
		log.Fatalln(err)
	}
	return c
}

type parityValue uart.Parity

func (v *parityValue) String() string { return uart.Parity(*v).String() }
func (v *parityValue) Set(s string) error {
	p, err := uart.ParseParity(s)
	if err == nil {
		*v = parityValue(p)
	}
	return err
}

type stopBitsValue uart.StopBits

func (v *stopBitsValue) String() string { return uart.StopBits(*v).String() }
func (v *stopBitsValue) Set(s string) error {
	b, err := uart.ParseStopBits(s)
	if err == nil {
		*v = stopBitsValue(b)
	}
	return err
}

type flowValue uart.FlowControl

func (v *flowValue) String() string { return uart.FlowControl(*v).String() }
func (v *flowValue) Set(s string) error {
	f, err := uart.ParseFlowControl(s)
	if err == nil {
		*v = flowValue(f)
	}
	return err
}

type levelValue gpio.Level

func (v *levelValue) String() string { return gpio.Level(*v).String() }
func (v *levelValue) Set(s string) error {
	l, err := gpio.ParseLevel(s)
	if err == nil {
		*v = levelValue(l)
	}
	return err
}

type pinsValue []int

func (v *pinsValue) String() string {
	strs := make([]string, len(*v))
	for n, pin := range *v {
		strs[n] = strconv.Itoa(pin)
	}
	return strings.Join(strs, ",")
}

func (v *pinsValue) Set(s string) error {
	var pins []int
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item == "" {
			continue
		}
		pin, err := strconv.Atoi(item)
		if err != nil {
			return fmt.Errorf("invalid pin %q", item)
		}
		pins = append(pins, pin)
	}
	*v = pins
	return nil
}
