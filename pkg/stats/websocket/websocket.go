// Package websocket streams bridge status to websocket clients as JSON.
package websocket

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/golang/glog"
	"golang.org/x/net/websocket"

	"github.com/robotalks/uartbridge/pkg/stats"
)

// StatusPath is the HTTP path of the status stream.
const StatusPath = "/status"

// Status is the JSON form sent to clients.
type Status struct {
	BridgeID string           `json:"bridge_id"`
	Time     time.Time        `json:"time"`
	Started  time.Time        `json:"started"`
	Pumps    []stats.Snapshot `json:"pumps"`
}

// StatusFrom converts a StatusMsg.
func StatusFrom(msg *stats.StatusMsg) *Status {
	return &Status{
		BridgeID: msg.BridgeId,
		Time:     time.Unix(0, msg.Time),
		Started:  time.Unix(0, msg.Started),
		Pumps:    msg.Snapshots(),
	}
}

// Publisher implements stats.Publisher by broadcasting to connected clients.
type Publisher struct {
	Addr string

	lock    sync.Mutex
	clients map[*websocket.Conn]chan *Status
}

// NewPublisher creates a Publisher listening on addr.
func NewPublisher(addr string) *Publisher {
	return &Publisher{Addr: addr, clients: make(map[*websocket.Conn]chan *Status)}
}

// Handler returns the websocket handler serving the status stream.
func (p *Publisher) Handler() http.Handler {
	return websocket.Handler(p.serve)
}

func (p *Publisher) serve(conn *websocket.Conn) {
	ch := make(chan *Status, 1)
	p.lock.Lock()
	p.clients[conn] = ch
	p.lock.Unlock()
	defer func() {
		p.lock.Lock()
		delete(p.clients, conn)
		p.lock.Unlock()
		conn.Close()
	}()
	glog.V(2).Infof("websocket client %s connected", conn.Request().RemoteAddr)
	for status := range ch {
		if err := websocket.JSON.Send(conn, status); err != nil {
			glog.V(2).Infof("websocket client %s: %v", conn.Request().RemoteAddr, err)
			return
		}
	}
}

// Publish implements stats.Publisher. Slow clients skip updates.
func (p *Publisher) Publish(ctx context.Context, msg *stats.StatusMsg) error {
	status := StatusFrom(msg)
	p.lock.Lock()
	defer p.lock.Unlock()
	for _, ch := range p.clients {
		select {
		case ch <- status:
		default:
		}
	}
	return nil
}

// Run implements Runnable. It fails immediately if Addr can't be bound.
func (p *Publisher) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", p.Addr)
	if err != nil {
		return fmt.Errorf("status stream: %w", err)
	}
	mux := http.NewServeMux()
	mux.Handle(StatusPath, p.Handler())
	server := &http.Server{Handler: mux}
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Serve(ln)
	}()
	glog.Infof("status stream on ws://%s%s", ln.Addr(), StatusPath)
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	p.lock.Lock()
	for conn, ch := range p.clients {
		close(ch)
		delete(p.clients, conn)
	}
	p.lock.Unlock()
	server.Close()
	return ctx.Err()
}
