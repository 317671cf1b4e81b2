package uart

import (
	"errors"
	"io"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseLineSettings(t *testing.T) {
	for _, s := range []string{"none", "N", "n"} {
		p, err := ParseParity(s)
		require.NoError(t, err)
		require.Equal(t, ParityNone, p)
	}
	p, err := ParseParity("Even")
	require.NoError(t, err)
	require.Equal(t, ParityEven, p)
	_, err = ParseParity("x")
	require.Error(t, err)

	b, err := ParseStopBits("1.5")
	require.NoError(t, err)
	require.Equal(t, StopBits1Half, b)
	_, err = ParseStopBits("3")
	require.Error(t, err)

	f, err := ParseFlowControl("RTSCTS")
	require.NoError(t, err)
	require.Equal(t, FlowRTSCTS, f)
	_, err = ParseFlowControl("xon")
	require.Error(t, err)
}

func TestParams(t *testing.T) {
	testCases := []struct {
		name   string
		params Params
		str    string
		valid  bool
	}{
		{"default", DefaultParams, "115200/8N1", true},
		{"9600 7E2", Params{BaudRate: 9600, DataBits: 7, Parity: ParityEven, StopBits: StopBits2}, "9600/7E2", true},
		{"flow control", Params{BaudRate: 9600, DataBits: 8, FlowControl: FlowRTSCTS}, "9600/8N1/rtscts", true},
		{"zero baud", Params{DataBits: 8}, "0/8N1", false},
		{"4 data bits", Params{BaudRate: 9600, DataBits: 4}, "9600/4N1", false},
		{"bad parity", Params{BaudRate: 9600, DataBits: 8, Parity: 9}, "9600/8P1", false},
		{"bad stop bits", Params{BaudRate: 9600, DataBits: 8, StopBits: 5}, "9600/8NStopBits(5)", false},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.str, tc.params.String())
			err := tc.params.Validate()
			if tc.valid {
				require.NoError(t, err)
			} else {
				require.True(t, errors.Is(err, ErrInvalidParams))
			}
		})
	}
}

func TestPins(t *testing.T) {
	require.True(t, UnchangedPins.IsUnchanged())
	require.Equal(t, "tx=- rx=- rts=- cts=-", UnchangedPins.String())
	pins := Pins{TX: 17, RX: 16, RTS: PinUnchanged, CTS: PinUnchanged}
	require.False(t, pins.IsUnchanged())
	require.Equal(t, "tx=17 rx=16 rts=- cts=-", pins.String())
}

func TestIsTimeout(t *testing.T) {
	testCases := []struct {
		name    string
		n       int
		err     error
		timeout bool
	}{
		{"nothing", 0, nil, true},
		{"eof", 0, io.EOF, true},
		{"deadline", 0, os.ErrDeadlineExceeded, true},
		{"data", 3, nil, false},
		{"data with eof", 3, io.EOF, false},
		{"error", 0, errors.New("framing"), false},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.timeout, IsTimeout(tc.n, tc.err))
		})
	}
}
