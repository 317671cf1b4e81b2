package bridge

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/uartbridge/pkg/gpio"
	gpiosim "github.com/robotalks/uartbridge/pkg/gpio/sim"
	"github.com/robotalks/uartbridge/pkg/uart"
	"github.com/robotalks/uartbridge/pkg/uart/sim"
)

type journal struct {
	lock   sync.Mutex
	events []string
}

func (j *journal) record(ev string) {
	j.lock.Lock()
	j.events = append(j.events, ev)
	j.lock.Unlock()
}

func (j *journal) setup() []string {
	j.lock.Lock()
	defer j.lock.Unlock()
	var events []string
	for _, ev := range j.events {
		if strings.HasPrefix(ev, "read ") || strings.HasPrefix(ev, "write ") {
			continue
		}
		events = append(events, ev)
	}
	return events
}

func (j *journal) io() []string {
	j.lock.Lock()
	defer j.lock.Unlock()
	var events []string
	for _, ev := range j.events {
		if strings.HasPrefix(ev, "read ") || strings.HasPrefix(ev, "write ") {
			events = append(events, ev)
		}
	}
	return events
}

type testBridge struct {
	*Bridge
	journal *journal
	serial  *sim.Driver
	gpio    *gpiosim.Driver
}

func testConfig() *Config {
	conf := NewConfig()
	conf.SerialDriver, conf.GPIODriver = "sim", "sim"
	conf.PortA = PortConfig{Device: "a", Pins: uart.UnchangedPins}
	conf.PortB = PortConfig{Device: "b", Pins: uart.Pins{TX: 17, RX: 16, RTS: uart.PinUnchanged, CTS: uart.PinUnchanged}}
	conf.ModePins = []int{32, 33}
	conf.ModeLevel = gpio.Low
	conf.ReadTimeoutAB = 5 * time.Millisecond
	conf.ReadTimeoutBA = 5 * time.Millisecond
	conf.ErrorBackoff = time.Millisecond
	return conf
}

func newTestBridge(conf *Config) *testBridge {
	j := &journal{}
	serial, gpioDrv := sim.New(), gpiosim.New()
	serial.OnEvent, gpioDrv.OnEvent = j.record, j.record
	return &testBridge{
		Bridge:  New(conf, serial, gpioDrv),
		journal: j,
		serial:  serial,
		gpio:    gpioDrv,
	}
}

func (b *testBridge) start(t *testing.T) func() {
	require.NoError(t, b.Start(context.Background()))
	return func() {
		require.NoError(t, b.Close())
		done := make(chan error, 1)
		go func() { done <- b.Wait() }()
		select {
		case err := <-done:
			require.NoError(t, err)
		case <-time.After(waitTimeout):
			t.Fatal("pumps did not stop")
		}
	}
}

func TestBridgeStartupOrder(t *testing.T) {
	b := newTestBridge(testConfig())
	defer b.start(t)()
	require.Equal(t, []string{
		"select 32", "direction 32 output", "level 32 low",
		"select 33", "direction 33 output", "level 33 low",
		"install b", "configure b", "pins b",
		"install a", "configure a", "pins a",
		"timeout a", "timeout b",
	}, b.journal.setup())

	portA, portB := b.serial.Port("a"), b.serial.Port("b")
	require.Equal(t, uart.DefaultParams, portA.Params())
	require.Equal(t, uart.DefaultParams, portB.Params())
	require.True(t, portA.Pins().IsUnchanged())
	require.Equal(t, 17, portB.Pins().TX)
	require.Equal(t, 16, portB.Pins().RX)
	rx, tx := portA.QueueDepths()
	require.Equal(t, 2*DefaultBufferSize, rx)
	require.Equal(t, 2*DefaultBufferSize, tx)
	require.Len(t, b.Pumps(), 2)
	require.Len(t, b.Pins(), 2)
}

func TestBridgeForwarding(t *testing.T) {
	b := newTestBridge(testConfig())
	defer b.start(t)()
	portA, portB := b.serial.Port("a"), b.serial.Port("b")

	t.Run("a to b", func(t *testing.T) {
		portA.Inject([]byte("ABC"))
		require.Equal(t, []byte("ABC"), portB.WaitOutput(3, waitTimeout))
		time.Sleep(20 * time.Millisecond)
		require.Empty(t, portA.Output())
	})

	t.Run("b to a", func(t *testing.T) {
		portB.Inject([]byte("xyz"))
		require.Equal(t, []byte("xyz"), portA.WaitOutput(3, waitTimeout))
		require.Equal(t, []byte("ABC"), portB.Output())
	})

	t.Run("both directions", func(t *testing.T) {
		up, down := make([]byte, 3000), make([]byte, 3000)
		for n := range up {
			up[n], down[n] = byte(n), byte(255-n%256)
		}
		for off := 0; off < len(up); off += 100 {
			portA.Inject(up[off : off+100])
			portB.Inject(down[off : off+100])
		}
		require.Equal(t, append([]byte("ABC"), up...), portB.WaitOutput(3+len(up), waitTimeout))
		require.Equal(t, append([]byte("xyz"), down...), portA.WaitOutput(3+len(down), waitTimeout))
	})

	t.Run("counters", func(t *testing.T) {
		snapshots := b.Registry.Snapshot()
		require.Len(t, snapshots, 2)
		require.Equal(t, PumpAB, snapshots[0].Name)
		require.EqualValues(t, 3003, snapshots[0].Bytes)
		require.Equal(t, PumpBA, snapshots[1].Name)
		require.EqualValues(t, 3003, snapshots[1].Bytes)
	})

	t.Run("mode pins held", func(t *testing.T) {
		for _, n := range []int{32, 33} {
			pin := b.gpio.Pin(n)
			require.NotNil(t, pin)
			require.Equal(t, gpio.Output, pin.Direction())
			level, err := pin.Level()
			require.NoError(t, err)
			require.Equal(t, gpio.Low, level)
			require.Equal(t, 1, pin.Changes())
		}
	})
}

func TestBridgeModeLevelHigh(t *testing.T) {
	conf := testConfig()
	conf.ModeLevel = gpio.High
	b := newTestBridge(conf)
	defer b.start(t)()
	level, err := b.gpio.Pin(33).Level()
	require.NoError(t, err)
	require.Equal(t, gpio.High, level)
}

func TestBridgeWithoutModePins(t *testing.T) {
	t.Run("empty pin list", func(t *testing.T) {
		conf := testConfig()
		conf.ModePins = nil
		b := newTestBridge(conf)
		defer b.start(t)()
		require.Equal(t, "install b", b.journal.setup()[0])
		require.Empty(t, b.Pins())
	})

	t.Run("no gpio driver", func(t *testing.T) {
		conf := testConfig()
		conf.ModePins = nil
		b := New(conf, sim.New(), nil)
		require.NoError(t, b.Start(context.Background()))
		require.Empty(t, b.Pins())
		require.NoError(t, b.Close())
	})

	t.Run("pins without gpio driver", func(t *testing.T) {
		var events []string
		serial := sim.New()
		serial.OnEvent = func(ev string) { events = append(events, ev) }
		b := New(testConfig(), serial, nil)
		err := b.Start(context.Background())
		var startupErr *StartupError
		require.True(t, errors.As(err, &startupErr))
		require.Equal(t, StageGPIO, startupErr.Stage)
		require.True(t, errors.Is(err, gpio.ErrUnsupported))
		require.Empty(t, events)
		require.Empty(t, b.Pumps())
	})
}

func TestBridgeStartupFailure(t *testing.T) {
	errInjected := errors.New("injected")
	testCases := []struct {
		name   string
		setup  func(*testBridge)
		stage  string
		target string
		closed []string
		cause  error
	}{
		{
			name:   "gpio select",
			setup:  func(b *testBridge) { b.gpio.FailOn(33, gpiosim.StageSelect, errInjected) },
			stage:  StageGPIO,
			target: "pin 33",
		},
		{
			name:   "gpio level",
			setup:  func(b *testBridge) { b.gpio.FailOn(32, gpiosim.StageLevel, errInjected) },
			stage:  StageGPIO,
			target: "pin 32",
		},
		{
			name:   "install b",
			setup:  func(b *testBridge) { b.serial.FailOn("b", sim.StageInstall, errInjected) },
			stage:  StageInstall,
			target: "b",
		},
		{
			name:   "configure a",
			setup:  func(b *testBridge) { b.serial.FailOn("a", sim.StageConfigure, errInjected) },
			stage:  StageConfigure,
			target: "a",
			closed: []string{"close a", "close b"},
		},
		{
			name:   "invalid baud rate",
			setup:  func(b *testBridge) { b.Config.Line.BaudRate = 0 },
			stage:  StageConfigure,
			target: "b",
			closed: []string{"close b"},
			cause:  uart.ErrInvalidParams,
		},
		{
			name:   "pins b",
			setup:  func(b *testBridge) { b.serial.FailOn("b", sim.StagePins, errInjected) },
			stage:  StagePins,
			target: "b",
			closed: []string{"close b"},
		},
		{
			name:   "timeout b",
			setup:  func(b *testBridge) { b.serial.FailOn("b", sim.StageTimeout, errInjected) },
			stage:  StageTimeout,
			target: "b",
			closed: []string{"close a", "close b"},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			b := newTestBridge(testConfig())
			tc.setup(b)
			err := b.Start(context.Background())
			require.Error(t, err)
			var startupErr *StartupError
			require.True(t, errors.As(err, &startupErr))
			require.Equal(t, tc.stage, startupErr.Stage)
			require.Equal(t, tc.target, startupErr.Target)
			cause := tc.cause
			if cause == nil {
				cause = errInjected
			}
			require.True(t, errors.Is(err, cause))

			time.Sleep(20 * time.Millisecond)
			require.Empty(t, b.journal.io())
			require.Empty(t, b.Pumps())
			var closed []string
			for _, ev := range b.journal.setup() {
				if strings.HasPrefix(ev, "close ") {
					closed = append(closed, ev)
				}
			}
			require.ElementsMatch(t, tc.closed, closed)
			require.NoError(t, b.Wait())
		})
	}
}

func TestBridgeStartTwice(t *testing.T) {
	b := newTestBridge(testConfig())
	defer b.start(t)()
	require.Error(t, b.Start(context.Background()))
}

func TestBridgeMeta(t *testing.T) {
	meta := newTestBridge(testConfig()).Meta()
	require.Equal(t, map[string]string{"a": "a", "b": "b"}, meta.Ports)
	require.Equal(t, "low", meta.ModeLevel)
	require.Equal(t, []int{32, 33}, meta.ModePins)
}
