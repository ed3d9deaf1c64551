package ingestion

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/poiesic/catalogsync/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedRunner struct {
	results []error
	calls   int
}

func (r *scriptedRunner) RunCycle(ctx context.Context) (*CycleReport, error) {
	r.calls++
	if r.calls <= len(r.results) {
		return &CycleReport{}, r.results[r.calls-1]
	}
	return &CycleReport{}, nil
}

type panickingRunner struct {
	calls int
}

func (r *panickingRunner) RunCycle(ctx context.Context) (*CycleReport, error) {
	r.calls++
	if r.calls == 1 {
		panic("nil map write")
	}
	return &CycleReport{}, nil
}

func TestNewScheduler(t *testing.T) {
	_, err := NewScheduler(nil)
	assert.ErrorIs(t, err, ErrRunnerRequired)

	_, err = NewScheduler(&scriptedRunner{}, WithInterval(0))
	assert.Error(t, err)

	_, err = NewScheduler(&scriptedRunner{}, WithBackoff(-time.Second))
	assert.Error(t, err)

	s, err := NewScheduler(&scriptedRunner{})
	require.NoError(t, err)
	assert.Equal(t, DefaultInterval, s.interval)
	assert.Equal(t, DefaultBackoff, s.backoff)
}

func TestScheduler_PausesByOutcome(t *testing.T) {
	runner := &scriptedRunner{results: []error{nil, errors.New("stores unreachable"), nil}}
	s, err := NewScheduler(runner, WithInterval(time.Hour), WithBackoff(time.Minute))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var pauses []time.Duration
	var states []State
	s.wait = func(ctx context.Context, d time.Duration) error {
		pauses = append(pauses, d)
		states = append(states, s.State())
		if len(pauses) == 3 {
			cancel()
			return ctx.Err()
		}
		return nil
	}

	err = s.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []time.Duration{time.Hour, time.Minute, time.Hour}, pauses)
	assert.Equal(t, []State{StateSleeping, StateSleeping, StateSleeping}, states)
	assert.Equal(t, 3, runner.calls)
	assert.Equal(t, StateIdle, s.State())
}

func TestScheduler_PanicBacksOff(t *testing.T) {
	runner := &panickingRunner{}
	s, err := NewScheduler(runner, WithInterval(time.Hour), WithBackoff(time.Minute))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var pauses []time.Duration
	s.wait = func(ctx context.Context, d time.Duration) error {
		pauses = append(pauses, d)
		if len(pauses) == 2 {
			cancel()
			return ctx.Err()
		}
		return nil
	}

	err = s.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 2, runner.calls, "the loop survives the panic")
	assert.Equal(t, []time.Duration{time.Minute, time.Hour}, pauses)
}

func TestScheduler_RunCycleRecoversPanic(t *testing.T) {
	s, err := NewScheduler(&panickingRunner{})
	require.NoError(t, err)

	err = s.runCycle(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrCycle)
	assert.Contains(t, err.Error(), "nil map write")
}

func TestScheduler_StopsWhenCycleCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	runner := &cancellingRunner{cancel: cancel}
	s, err := NewScheduler(runner)
	require.NoError(t, err)
	s.wait = func(ctx context.Context, d time.Duration) error {
		t.Fatal("scheduler slept after cancellation")
		return nil
	}

	err = s.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

type cancellingRunner struct {
	cancel context.CancelFunc
}

func (r *cancellingRunner) RunCycle(ctx context.Context) (*CycleReport, error) {
	r.cancel()
	return nil, ctx.Err()
}

func TestScheduler_RealSleepHonorsContext(t *testing.T) {
	s, err := NewScheduler(&scriptedRunner{}, WithInterval(time.Hour))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	err = s.Run(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Minute)
}

func TestScheduler_WithPipeline(t *testing.T) {
	feed := &fakeFeed{storesErr: errors.New("dial tcp: i/o timeout")}
	repo := newMemRepo()
	p := newTestPipeline(t, feed, repo, newTestProvider(newTestEmbedder()))

	s, err := NewScheduler(p, WithBackoff(time.Second))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var pauses []time.Duration
	s.wait = func(ctx context.Context, d time.Duration) error {
		pauses = append(pauses, d)
		feed.storesErr = nil
		if len(pauses) == 2 {
			cancel()
			return ctx.Err()
		}
		return nil
	}

	err = s.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []time.Duration{time.Second, DefaultInterval}, pauses)
}
