package tarm

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/tarm/serial"

	"github.com/robotalks/uartbridge/pkg/uart"
)

func TestConfigFrom(t *testing.T) {
	conf, err := ConfigFrom("/dev/ttyS2", uart.Params{
		BaudRate: 9600,
		DataBits: 8,
		Parity:   uart.ParityOdd,
		StopBits: uart.StopBits1Half,
	}, 100*time.Millisecond)
	require.NoError(t, err)
	require.Equal(t, &serial.Config{
		Name:        "/dev/ttyS2",
		Baud:        9600,
		Size:        8,
		Parity:      serial.ParityOdd,
		StopBits:    serial.Stop1Half,
		ReadTimeout: 100 * time.Millisecond,
	}, conf)

	_, err = ConfigFrom("/dev/ttyS2", uart.Params{BaudRate: 9600, DataBits: 8, FlowControl: uart.FlowRTS}, 0)
	require.True(t, errors.Is(err, uart.ErrUnsupported))
	_, err = ConfigFrom("/dev/ttyS2", uart.Params{BaudRate: 9600}, 0)
	require.True(t, errors.Is(err, uart.ErrInvalidParams))
}

func TestClosedPort(t *testing.T) {
	p := &port{conf: serial.Config{Name: "/dev/ttyS2"}}
	require.Equal(t, "/dev/ttyS2", p.Name())
	require.True(t, errors.Is(p.AssignPins(uart.Pins{TX: 1, RX: 2, RTS: -1, CTS: -1}), uart.ErrUnsupported))
	_, err := p.Read(make([]byte, 1))
	require.Equal(t, uart.ErrClosed, err)
	_, err = p.Write([]byte{1})
	require.Equal(t, uart.ErrClosed, err)
	require.NoError(t, p.Close())
}
