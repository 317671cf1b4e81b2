package mqtt

import (
	"context"
	"encoding/json"

	"github.com/robotalks/uartbridge/pkg/stats"
)

// Topic suffixes.
const (
	MetaTopic   = "meta"
	StatusTopic = "status"
)

// Publisher implements stats.Publisher over MQTT.
type Publisher struct {
	Queue *Queue
	ID    string

	metaJSON []byte
}

// NewPublisher creates a Publisher. The retained meta is published on every
// (re)connection and cleared by the broker when the bridge goes away.
func NewPublisher(brokerURL, id string, meta stats.Meta) (*Publisher, error) {
	metaJSON, err := json.Marshal(&meta)
	if err != nil {
		return nil, err
	}
	opts, topicPrefix, err := ClientOptionsFromURL(brokerURL)
	if err != nil {
		return nil, err
	}
	opts.SetBinaryWill(topicPrefix+id+"/"+MetaTopic, nil, 1, true)
	if opts.ClientID == "" {
		opts.SetClientID("uartbridge:" + id)
	}
	p := &Publisher{
		Queue:    NewQueue(opts, topicPrefix),
		ID:       id,
		metaJSON: metaJSON,
	}
	p.Queue.OnConnect = func(q *Queue) {
		q.PubWith(p.ID+"/"+MetaTopic, p.metaJSON, 1, true)
	}
	return p, nil
}

// Publish implements stats.Publisher. Messages are dropped while the
// client is disconnected.
func (p *Publisher) Publish(ctx context.Context, msg *stats.StatusMsg) error {
	if !p.Queue.Client.IsConnected() {
		return nil
	}
	data, err := msg.Encode()
	if err != nil {
		return err
	}
	p.Queue.Pub(p.ID+"/"+StatusTopic, data)
	return nil
}

// Run implements Runnable.
func (p *Publisher) Run(ctx context.Context) error {
	p.Queue.Connect()
	<-ctx.Done()
	p.Queue.PubWith(p.ID+"/"+MetaTopic, nil, 1, true).Wait()
	p.Queue.Close()
	return ctx.Err()
}

// SplitTopic splits "<id>/<kind>" into id and kind.
func SplitTopic(topic string) (id, kind string, ok bool) {
	for n := len(topic) - 1; n >= 0; n-- {
		if topic[n] == '/' {
			return topic[:n], topic[n+1:], n > 0 && n+1 < len(topic)
		}
	}
	return "", "", false
}
