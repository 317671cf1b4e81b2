package cli

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/uartbridge/pkg/stats"
)

func TestCollector(t *testing.T) {
	c := NewCollector()
	meta, err := json.Marshal(&stats.Meta{
		Description: "bugst 115200/8N1",
		Ports:       map[string]string{"a": "/dev/ttyUSB0", "b": "/dev/ttyS2"},
		ModeLevel:   "low",
		ModePins:    []int{32, 33},
	})
	require.NoError(t, err)
	status, err := stats.NewStatusMsg("b2", time.Unix(1, 0), time.Unix(5, 0), []stats.Snapshot{
		{Name: "a2b", Bytes: 7, Writes: 1},
	}).Encode()
	require.NoError(t, err)

	c.Handle("b2/status", status)
	c.Handle("b1/meta", meta)
	c.Handle("b3/meta", meta)
	c.Handle("b3/meta", nil)
	c.Handle("b1/meta", []byte("{bad"))
	c.Handle("b1/status", []byte{0xff})
	c.Handle("orphan", status)

	bridges := c.Bridges()
	require.Len(t, bridges, 2)
	require.Equal(t, "b1", bridges[0].ID)
	require.NotNil(t, bridges[0].Meta)
	require.Empty(t, bridges[0].Status)
	require.Equal(t, "b1: bugst 115200/8N1 /dev/ttyUSB0 <-> /dev/ttyS2 mode [32 33] low", FormatInfo(bridges[0]))

	require.Equal(t, "b2", bridges[1].ID)
	require.Nil(t, bridges[1].Meta)
	require.Len(t, bridges[1].Status, 1)
	require.True(t, time.Unix(5, 0).Equal(bridges[1].Time))
	require.Equal(t, "  a2b: 7 bytes in 1 writes, 0 reads (0 idle), errors r=0 w=0",
		FormatSnapshot(bridges[1].Status[0]))
}
