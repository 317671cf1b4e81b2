package stats

import (
	"context"
	"time"

	"github.com/golang/glog"

	fx "github.com/robotalks/uartbridge/pkg/framework"
)

// Meta describes a bridge, published once per connection.
type Meta struct {
	Description string            `json:"description,omitempty"`
	Ports       map[string]string `json:"ports,omitempty"`
	ModeLevel   string            `json:"mode_level,omitempty"`
	ModePins    []int             `json:"mode_pins,omitempty"`
}

// Publisher sends status messages out.
type Publisher interface {
	Publish(context.Context, *StatusMsg) error
}

// PublishFunc is the func form of Publisher.
type PublishFunc func(context.Context, *StatusMsg) error

// Publish implements Publisher.
func (f PublishFunc) Publish(ctx context.Context, msg *StatusMsg) error {
	return f(ctx, msg)
}

// Reporter publishes the registry snapshot on every loop iteration.
type Reporter struct {
	ID         string
	Registry   *Registry
	Publishers []Publisher

	started time.Time
}

// NewReporter creates a Reporter.
func NewReporter(id string, registry *Registry, publishers ...Publisher) *Reporter {
	return &Reporter{
		ID:         id,
		Registry:   registry,
		Publishers: publishers,
		started:    time.Now(),
	}
}

// AddToLoop implements LoopAdder.
func (r *Reporter) AddToLoop(loop *fx.Loop) {
	loop.AddController(fx.PrLvReport, r)
	for _, pub := range r.Publishers {
		if runnable, ok := pub.(fx.Runnable); ok {
			loop.AddRunnable(runnable)
		}
	}
}

// Control implements Controller.
func (r *Reporter) Control(cc fx.ControlContext) error {
	msg := NewStatusMsg(r.ID, r.started, cc.Time(), r.Registry.Snapshot())
	var errs fx.AggregatedError
	for _, pub := range r.Publishers {
		errs.Add(pub.Publish(cc.Context(), msg))
	}
	if glog.V(3) {
		glog.Infof("status %s", msg.String())
	}
	return errs.Aggregate()
}
