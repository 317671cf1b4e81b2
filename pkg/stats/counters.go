// Package stats collects forwarding counters and reports bridge status.
package stats

import (
	"sort"
	"sync"
	"time"

	"go.uber.org/atomic"
)

// Counters are updated by a single pump and read by reporters.
type Counters struct {
	Reads       atomic.Uint64
	Timeouts    atomic.Uint64
	Bytes       atomic.Uint64
	Writes      atomic.Uint64
	ReadErrors  atomic.Uint64
	WriteErrors atomic.Uint64
	LastError   atomic.String
	LastForward atomic.Time
}

// Snapshot is a point-in-time copy of Counters.
type Snapshot struct {
	Name        string    `json:"name"`
	Reads       uint64    `json:"reads"`
	Timeouts    uint64    `json:"timeouts"`
	Bytes       uint64    `json:"bytes"`
	Writes      uint64    `json:"writes"`
	ReadErrors  uint64    `json:"read_errors"`
	WriteErrors uint64    `json:"write_errors"`
	LastError   string    `json:"last_error,omitempty"`
	LastForward time.Time `json:"last_forward,omitempty"`
}

// ReadError records a failed read.
func (c *Counters) ReadError(err error) {
	c.ReadErrors.Inc()
	c.LastError.Store(err.Error())
}

// WriteError records a failed write.
func (c *Counters) WriteError(err error) {
	c.WriteErrors.Inc()
	c.LastError.Store(err.Error())
}

// Forwarded records n bytes written to the destination.
func (c *Counters) Forwarded(n int, at time.Time) {
	c.Bytes.Add(uint64(n))
	c.Writes.Inc()
	c.LastForward.Store(at)
}

// Snapshot copies the counters.
func (c *Counters) Snapshot(name string) Snapshot {
	return Snapshot{
		Name:        name,
		Reads:       c.Reads.Load(),
		Timeouts:    c.Timeouts.Load(),
		Bytes:       c.Bytes.Load(),
		Writes:      c.Writes.Load(),
		ReadErrors:  c.ReadErrors.Load(),
		WriteErrors: c.WriteErrors.Load(),
		LastError:   c.LastError.Load(),
		LastForward: c.LastForward.Load(),
	}
}

// Registry holds named Counters.
type Registry struct {
	lock     sync.RWMutex
	counters map[string]*Counters
}

// NewRegistry creates a Registry.
func NewRegistry() *Registry {
	return &Registry{counters: make(map[string]*Counters)}
}

// Counters gets or creates the Counters of the name.
func (r *Registry) Counters(name string) *Counters {
	r.lock.RLock()
	c := r.counters[name]
	r.lock.RUnlock()
	if c != nil {
		return c
	}
	r.lock.Lock()
	defer r.lock.Unlock()
	if c = r.counters[name]; c == nil {
		c = &Counters{}
		r.counters[name] = c
	}
	return c
}

// Snapshot copies all counters, sorted by name.
func (r *Registry) Snapshot() []Snapshot {
	r.lock.RLock()
	snapshots := make([]Snapshot, 0, len(r.counters))
	for name, c := range r.counters {
		snapshots = append(snapshots, c.Snapshot(name))
	}
	r.lock.RUnlock()
	sort.Slice(snapshots, func(i, j int) bool {
		return snapshots[i].Name < snapshots[j].Name
	})
	return snapshots
}
