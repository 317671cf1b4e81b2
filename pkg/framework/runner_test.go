package framework

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRunnerWait(t *testing.T) {
	errFailed := errors.New("failed")
	r := NewRunner()
	started := make(chan struct{}, 2)
	r.Go(
		NamedRun("idle", RunFunc(func(ctx context.Context) error {
			started <- struct{}{}
			<-ctx.Done()
			return ctx.Err()
		})),
		RunFunc(func(ctx context.Context) error {
			started <- struct{}{}
			<-ctx.Done()
			return errFailed
		}),
	)
	require.Len(t, r.Runners, 2)
	<-started
	<-started
	r.Cancel()
	err := r.Wait()
	require.Error(t, err)
	require.True(t, errors.Is(err, errFailed))
	require.Equal(t, "failed", err.Error())
}

func TestRunnerWaitNoError(t *testing.T) {
	r := NewRunnerWith(context.Background())
	require.NoError(t, r.Wait())
	r.Go(RunFunc(func(context.Context) error { return nil }))
	require.NoError(t, r.Wait())
}

func TestRunnerParentContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	r := NewRunnerWith(ctx)
	r.Go(RunFunc(func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}))
	cancel()
	done := make(chan error, 1)
	go func() { done <- r.Wait() }()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("runner not stopped by parent context")
	}
}

func TestAggregatedError(t *testing.T) {
	var errs AggregatedError
	require.NoError(t, errs.Aggregate())
	errA, errB := errors.New("a"), errors.New("b")
	errs.Add(nil, errA, nil, errB)
	err := errs.Aggregate()
	require.Error(t, err)
	require.Equal(t, "Multiple errors:\na\nb", err.Error())
	require.True(t, errors.Is(err, errB))
}
