package bridge

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/uartbridge/pkg/stats"
	"github.com/robotalks/uartbridge/pkg/uart"
)

// ErrReadHangUp is reported when a read returns no data well before the read
// timeout, as a hung-up tty does.
var ErrReadHangUp = errors.New("read returned early without data")

// Pump forwards bytes from Src to Dst in one direction until the context
// is cancelled. Read and write failures are transient: they are counted
// and forwarding continues.
type Pump struct {
	PumpName string
	Src      uart.Port
	Dst      uart.Port
	// ReadTimeout is the timeout installed on Src. An empty read returning
	// in less than half of it is a read error, not a timeout.
	ReadTimeout  time.Duration
	BufferSize   int
	ErrorBackoff time.Duration
	Stats        *stats.Counters

	// Now is used to timestamp forwards, time.Now if nil.
	Now func() time.Time
}

// Name implements framework.Named.
func (p *Pump) Name() string {
	return p.PumpName
}

// Run implements framework.Runnable.
func (p *Pump) Run(ctx context.Context) error {
	size := p.BufferSize
	if size <= 0 {
		size = DefaultBufferSize
	}
	counters := p.Stats
	if counters == nil {
		counters = &stats.Counters{}
	}
	now := p.Now
	if now == nil {
		now = time.Now
	}
	buf := make([]byte, size)
	var readFailing, writeFailing bool
	glog.V(1).Infof("%s: forwarding %s -> %s", p.PumpName, p.Src.Name(), p.Dst.Name())
	for {
		if err := ctx.Err(); err != nil {
			glog.V(1).Infof("%s: stopped", p.PumpName)
			return err
		}
		start := now()
		n, err := p.Src.Read(buf)
		counters.Reads.Inc()
		if n <= 0 {
			if uart.IsTimeout(n, err) {
				if !p.returnedEarly(start, now()) {
					counters.Timeouts.Inc()
					continue
				}
				if err == nil {
					err = ErrReadHangUp
				} else {
					err = fmt.Errorf("%w: %v", ErrReadHangUp, err)
				}
			}
			if err == nil {
				err = io.ErrNoProgress
			}
			counters.ReadError(err)
			if !readFailing {
				glog.Warningf("%s: read %s: %v", p.PumpName, p.Src.Name(), err)
				readFailing = true
			}
			p.backoff(ctx)
			continue
		}
		if readFailing {
			glog.V(1).Infof("%s: read %s recovered", p.PumpName, p.Src.Name())
			readFailing = false
		}
		// Bytes received with an error are forwarded first, the error shows
		// up again on the next read.
		if err != nil && err != io.EOF {
			glog.V(2).Infof("%s: read %s: %d bytes with %v", p.PumpName, p.Src.Name(), n, err)
		}
		written, err := p.Dst.Write(buf[:n])
		if err == nil && written < n {
			err = io.ErrShortWrite
		}
		if err != nil {
			counters.WriteError(err)
			if !writeFailing {
				glog.Warningf("%s: write %s: %d of %d bytes: %v", p.PumpName, p.Dst.Name(), written, n, err)
				writeFailing = true
			}
			if written <= 0 {
				continue
			}
		} else if writeFailing {
			glog.V(1).Infof("%s: write %s recovered", p.PumpName, p.Dst.Name())
			writeFailing = false
		}
		counters.Forwarded(written, now())
	}
}

func (p *Pump) returnedEarly(start, end time.Time) bool {
	return p.ReadTimeout > 0 && end.Sub(start) < p.ReadTimeout/2
}

func (p *Pump) backoff(ctx context.Context) {
	if p.ErrorBackoff <= 0 {
		return
	}
	timer := time.NewTimer(p.ErrorBackoff)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
