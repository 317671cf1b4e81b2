package gpio

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	testCases := []struct {
		in    string
		level Level
		ok    bool
	}{
		{"low", Low, true},
		{"LOW", Low, true},
		{"0", Low, true},
		{"high", High, true},
		{"1", High, true},
		{"on", Low, false},
	}
	for _, tc := range testCases {
		t.Run(tc.in, func(t *testing.T) {
			level, err := ParseLevel(tc.in)
			if !tc.ok {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.level, level)
		})
	}
	require.Equal(t, "high", High.String())
	require.Equal(t, 1, High.Int())
	require.Equal(t, 0, Low.Int())
	require.Equal(t, "output", Output.String())
	require.Equal(t, "input", Input.String())
}
