package bridge

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/uartbridge/pkg/stats"
	"github.com/robotalks/uartbridge/pkg/uart"
	"github.com/robotalks/uartbridge/pkg/uart/sim"
)

const waitTimeout = 2 * time.Second

func newSimPorts(t *testing.T, drv *sim.Driver, names ...string) []*sim.Port {
	ports := make([]*sim.Port, len(names))
	for n, name := range names {
		port, err := drv.Install(name, 2048, 2048)
		require.NoError(t, err)
		require.NoError(t, port.Configure(uart.DefaultParams))
		require.NoError(t, port.SetReadTimeout(5*time.Millisecond))
		ports[n] = port.(*sim.Port)
	}
	return ports
}

func waitFor(t *testing.T, cond func() bool) {
	deadline := time.Now().Add(waitTimeout)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met")
		}
		time.Sleep(time.Millisecond)
	}
}

func runPump(t *testing.T, pump *Pump) func() {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- pump.Run(ctx) }()
	return func() {
		cancel()
		select {
		case err := <-done:
			require.True(t, errors.Is(err, context.Canceled))
		case <-time.After(waitTimeout):
			t.Fatal("pump did not stop")
		}
	}
}

func TestPumpFidelity(t *testing.T) {
	payload := make([]byte, 5000)
	for n := range payload {
		payload[n] = byte(n * 7)
	}
	testCases := []struct {
		name       string
		chunk      int
		bufferSize int
	}{
		{"single bytes", 1, 1024},
		{"small chunks", 13, 1024},
		{"buffer sized chunks", 1024, 1024},
		{"larger than buffer", 3000, 1024},
		{"tiny buffer", 100, 7},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ports := newSimPorts(t, sim.New(), "a", "b")
			counters := &stats.Counters{}
			stop := runPump(t, &Pump{
				PumpName:   PumpAB,
				Src:        ports[0],
				Dst:        ports[1],
				BufferSize: tc.bufferSize,
				Stats:      counters,
			})
			defer stop()
			for off := 0; off < len(payload); off += tc.chunk {
				end := off + tc.chunk
				if end > len(payload) {
					end = len(payload)
				}
				ports[0].Inject(payload[off:end])
			}
			require.Equal(t, payload, ports[1].WaitOutput(len(payload), waitTimeout))
			require.EqualValues(t, len(payload), counters.Bytes.Load())
			require.Empty(t, ports[0].Output())
		})
	}
}

func TestPumpIdle(t *testing.T) {
	ports := newSimPorts(t, sim.New(), "a", "b")
	counters := &stats.Counters{}
	stop := runPump(t, &Pump{PumpName: PumpAB, Src: ports[0], Dst: ports[1], Stats: counters})
	time.Sleep(50 * time.Millisecond)
	stop()
	require.Zero(t, ports[1].Writes())
	require.Zero(t, counters.Writes.Load())
	require.NotZero(t, counters.Timeouts.Load())
	require.Zero(t, counters.ReadErrors.Load())
}

func TestPumpTransientErrors(t *testing.T) {
	errRead, errWrite := errors.New("framing error"), errors.New("tx fifo full")

	t.Run("read errors", func(t *testing.T) {
		ports := newSimPorts(t, sim.New(), "a", "b")
		counters := &stats.Counters{}
		ports[0].FailNextRead(errRead, errRead, errRead)
		stop := runPump(t, &Pump{
			PumpName:     PumpAB,
			Src:          ports[0],
			Dst:          ports[1],
			ErrorBackoff: time.Millisecond,
			Stats:        counters,
		})
		defer stop()
		ports[0].Inject([]byte("after errors"))
		require.Equal(t, []byte("after errors"), ports[1].WaitOutput(12, waitTimeout))
		require.EqualValues(t, 3, counters.ReadErrors.Load())
		require.Equal(t, errRead.Error(), counters.LastError.Load())
	})

	t.Run("write errors", func(t *testing.T) {
		ports := newSimPorts(t, sim.New(), "a", "b")
		counters := &stats.Counters{}
		ports[1].FailNextWrite(errWrite)
		stop := runPump(t, &Pump{PumpName: PumpAB, Src: ports[0], Dst: ports[1], Stats: counters})
		defer stop()
		ports[0].Inject([]byte("lost"))
		waitFor(t, func() bool { return counters.WriteErrors.Load() == 1 })
		ports[0].Inject([]byte("kept"))
		require.Equal(t, []byte("kept"), ports[1].WaitOutput(4, waitTimeout))
		require.Equal(t, errWrite.Error(), counters.LastError.Load())
	})
}

type hungUpPort struct {
	*sim.Port
}

func (p *hungUpPort) Read([]byte) (int, error) {
	return 0, io.EOF
}

func TestPumpHungUpSource(t *testing.T) {
	ports := newSimPorts(t, sim.New(), "a", "b")
	counters := &stats.Counters{}
	stop := runPump(t, &Pump{
		PumpName:     PumpAB,
		Src:          &hungUpPort{Port: ports[0]},
		Dst:          ports[1],
		ReadTimeout:  10 * time.Millisecond,
		ErrorBackoff: 20 * time.Millisecond,
		Stats:        counters,
	})
	time.Sleep(100 * time.Millisecond)
	stop()
	reads := counters.Reads.Load()
	require.NotZero(t, reads)
	require.True(t, reads <= 10, "reads %d not backed off", reads)
	require.Zero(t, counters.Timeouts.Load())
	require.Equal(t, reads, counters.ReadErrors.Load())
	require.Contains(t, counters.LastError.Load(), ErrReadHangUp.Error())
	require.Zero(t, ports[1].Writes())
}

func TestPumpTimeoutNotHangUp(t *testing.T) {
	ports := newSimPorts(t, sim.New(), "a", "b")
	counters := &stats.Counters{}
	stop := runPump(t, &Pump{
		PumpName:    PumpAB,
		Src:         ports[0],
		Dst:         ports[1],
		ReadTimeout: 5 * time.Millisecond,
		Stats:       counters,
	})
	time.Sleep(50 * time.Millisecond)
	stop()
	require.NotZero(t, counters.Timeouts.Load())
	require.Zero(t, counters.ReadErrors.Load())
}

func TestPumpStopsOnCancel(t *testing.T) {
	ports := newSimPorts(t, sim.New(), "a", "b")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	pump := &Pump{PumpName: PumpBA, Src: ports[1], Dst: ports[0]}
	require.Equal(t, PumpBA, pump.Name())
	require.True(t, errors.Is(pump.Run(ctx), context.Canceled))
}
