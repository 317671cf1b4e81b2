package framework

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/golang/glog"
)

// DefaultInterval is the loop interval when none is set.
const DefaultInterval = 100 * time.Millisecond

// Loop invokes Controllers periodically, ordered by priority level.
type Loop struct {
	Interval time.Duration

	controllers [PriorityLevels][]Controller
	runners     []Runnable
	lock        sync.Mutex

	wakeUpCh chan struct{}
}

// LoopAdder provides specific logic to add components to loop.
type LoopAdder interface {
	AddToLoop(*Loop)
}

type loopIteration struct {
	*Loop
	ctx           context.Context
	time          time.Time
	priorityLevel int
}

// NewLoop creates a Loop.
func NewLoop() *Loop {
	return &Loop{Interval: DefaultInterval, wakeUpCh: make(chan struct{}, 1)}
}

// Add adds LoopAdders.
func (l *Loop) Add(adders ...LoopAdder) *Loop {
	for _, adder := range adders {
		adder.AddToLoop(l)
	}
	return l
}

// AddController registers controllers to the loop. Controllers also
// implementing Runnable are started with the loop.
func (l *Loop) AddController(priorityLevel int, ctls ...Controller) *Loop {
	l.lock.Lock()
	defer l.lock.Unlock()
	l.controllers[priorityLevel] = append(l.controllers[priorityLevel], ctls...)
	for _, ctl := range ctls {
		if runner, ok := ctl.(Runnable); ok {
			l.runners = append(l.runners, runner)
		}
	}
	return l
}

// AddRunnable adds Runnable implementations started with the loop.
func (l *Loop) AddRunnable(runnables ...Runnable) *Loop {
	l.lock.Lock()
	l.runners = append(l.runners, runnables...)
	l.lock.Unlock()
	return l
}

// Run implements Runnable.
func (l *Loop) Run(ctx context.Context) error {
	l.lock.Lock()
	if l.wakeUpCh == nil {
		l.wakeUpCh = make(chan struct{}, 1)
	}
	runners := l.runners
	l.lock.Unlock()

	failCh := make(chan error, len(runners))
	runner := NewRunnerWith(ctx)
	for _, r := range runners {
		runner.Go(&watchedRunnable{Runnable: r, failCh: failCh})
	}
	defer func() {
		runner.Cancel()
		runner.Wait()
	}()

	interval := l.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-failCh:
			glog.Errorf("loop stopped: %v", err)
			return err
		case <-ticker.C:
			l.runIteration(ctx)
		case <-l.wakeUpCh:
			l.runIteration(ctx)
		}
	}
}

// watchedRunnable reports a Runnable stopping with an error while the loop
// is still running.
type watchedRunnable struct {
	Runnable
	failCh chan<- error
}

func (w *watchedRunnable) Name() string {
	if named, ok := w.Runnable.(Named); ok {
		return named.Name()
	}
	return fmt.Sprintf("%T", w.Runnable)
}

func (w *watchedRunnable) Run(ctx context.Context) error {
	err := w.Runnable.Run(ctx)
	if err != nil && ctx.Err() == nil {
		w.failCh <- fmt.Errorf("%s: %w", w.Name(), err)
	}
	return err
}

// TriggerNext schedules the next iteration immediately.
func (l *Loop) TriggerNext() {
	select {
	case l.wakeUpCh <- struct{}{}:
	default:
	}
}

func (l *Loop) runIteration(ctx context.Context) {
	iter := &loopIteration{Loop: l, ctx: ctx, time: time.Now()}
	for i := 0; i < PriorityLevels; i++ {
		iter.priorityLevel = i
		l.lock.Lock()
		ctls := l.controllers[i]
		l.lock.Unlock()
		for _, ctl := range ctls {
			if err := ctl.Control(iter); err != nil {
				glog.Errorf("controller error: %v", err)
			}
		}
	}
}

func (t *loopIteration) Context() context.Context {
	return t.ctx
}

func (t *loopIteration) Time() time.Time {
	return t.time
}

func (t *loopIteration) PriorityLevel() int {
	return t.priorityLevel
}
