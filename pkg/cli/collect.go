package cli

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/uartbridge/pkg/stats"
	"github.com/robotalks/uartbridge/pkg/stats/mqtt"
)

// BridgeInfo is what is known about a bridge from its MQTT topics.
type BridgeInfo struct {
	ID     string           `json:"id"`
	Meta   *stats.Meta      `json:"meta,omitempty"`
	Status []stats.Snapshot `json:"status,omitempty"`
	Time   time.Time        `json:"time,omitempty"`
}

// Collector accumulates BridgeInfo from meta and status messages.
type Collector struct {
	lock    sync.Mutex
	bridges map[string]*BridgeInfo
}

// NewCollector creates a Collector.
func NewCollector() *Collector {
	return &Collector{bridges: make(map[string]*BridgeInfo)}
}

// Handle is a mqtt.Handler for "+/meta" and "+/status".
func (c *Collector) Handle(topic string, payload []byte) {
	id, kind, ok := mqtt.SplitTopic(topic)
	if !ok {
		return
	}
	switch kind {
	case mqtt.MetaTopic:
		// an empty retained meta is the will of a gone bridge.
		if len(payload) == 0 {
			c.lock.Lock()
			delete(c.bridges, id)
			c.lock.Unlock()
			return
		}
		var meta stats.Meta
		if err := json.Unmarshal(payload, &meta); err != nil {
			glog.Warningf("%s: bad meta: %v", topic, err)
			return
		}
		c.lock.Lock()
		c.info(id).Meta = &meta
		c.lock.Unlock()
	case mqtt.StatusTopic:
		msg, err := stats.DecodeStatus(payload)
		if err != nil {
			glog.Warningf("%s: bad status: %v", topic, err)
			return
		}
		c.lock.Lock()
		info := c.info(id)
		info.Status = msg.Snapshots()
		info.Time = time.Unix(0, msg.Time)
		c.lock.Unlock()
	}
}

func (c *Collector) info(id string) *BridgeInfo {
	info := c.bridges[id]
	if info == nil {
		info = &BridgeInfo{ID: id}
		c.bridges[id] = info
	}
	return info
}

// Bridges returns collected bridges sorted by ID.
func (c *Collector) Bridges() []BridgeInfo {
	c.lock.Lock()
	list := make([]BridgeInfo, 0, len(c.bridges))
	for _, info := range c.bridges {
		list = append(list, *info)
	}
	c.lock.Unlock()
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list
}

// Collect listens on the broker for the duration of window.
func Collect(ctx context.Context, brokerURL string, window time.Duration, topics ...string) ([]BridgeInfo, error) {
	q, err := mqtt.NewQueueFromURL(brokerURL)
	if err != nil {
		return nil, err
	}
	c := NewCollector()
	for _, topic := range topics {
		q.Sub(topic, c.Handle)
	}
	if token := q.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	defer q.Close()
	timer := time.NewTimer(window)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
	}
	return c.Bridges(), nil
}
