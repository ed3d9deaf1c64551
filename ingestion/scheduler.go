package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/poiesic/catalogsync/core"
)

const (
	// DefaultInterval is the pause after a successful cycle.
	DefaultInterval = 6 * time.Hour

	// DefaultBackoff is the pause after a failed cycle.
	DefaultBackoff = 5 * time.Minute
)

// CycleRunner runs one sync cycle.
type CycleRunner interface {
	RunCycle(ctx context.Context) (*CycleReport, error)
}

// Scheduler runs cycles forever on a fixed cadence.
type Scheduler struct {
	runner   CycleRunner
	interval time.Duration
	backoff  time.Duration
	wait     func(ctx context.Context, d time.Duration) error
	sleeping bool
	logger   *slog.Logger
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler) error

// WithInterval sets the pause after a successful cycle.
// Default is DefaultInterval.
func WithInterval(d time.Duration) SchedulerOption {
	return func(s *Scheduler) error {
		if d <= 0 {
			return fmt.Errorf("interval must be positive, got %s", d)
		}
		s.interval = d
		return nil
	}
}

// WithBackoff sets the pause after a failed cycle.
// Default is DefaultBackoff.
func WithBackoff(d time.Duration) SchedulerOption {
	return func(s *Scheduler) error {
		if d <= 0 {
			return fmt.Errorf("backoff must be positive, got %s", d)
		}
		s.backoff = d
		return nil
	}
}

// WithSchedulerLogger sets a custom logger.
// Default is slog.Default().
func WithSchedulerLogger(logger *slog.Logger) SchedulerOption {
	return func(s *Scheduler) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// NewScheduler creates a scheduler around runner.
func NewScheduler(runner CycleRunner, opts ...SchedulerOption) (*Scheduler, error) {
	if runner == nil {
		return nil, ErrRunnerRequired
	}

	s := &Scheduler{
		runner:   runner,
		interval: DefaultInterval,
		backoff:  DefaultBackoff,
		wait:     sleep,
		logger:   slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	s.logger = s.logger.With("component", "scheduler")
	return s, nil
}

// State returns StateSleeping between cycles, otherwise the runner's state
// when it exposes one.
func (s *Scheduler) State() State {
	if s.sleeping {
		return StateSleeping
	}
	if r, ok := s.runner.(interface{ State() State }); ok {
		return r.State()
	}
	return StateIdle
}

// Run loops until ctx is cancelled, which is the only way it returns.
// A failed or panicking cycle is retried after the backoff; a successful
// one is followed by the interval.
func (s *Scheduler) Run(ctx context.Context) error {
	for cycle := 1; ; cycle++ {
		s.logger.Info("starting cycle", "cycle", cycle)

		err := s.runCycle(ctx)
		if ctx.Err() != nil {
			s.logger.Info("scheduler stopped", "cycle", cycle)
			return ctx.Err()
		}

		pause := s.interval
		if err != nil {
			pause = s.backoff
			s.logger.Error("cycle failed, retrying after backoff", "cycle", cycle, "err", err, "backoff", pause)
		} else {
			s.logger.Info("next cycle scheduled", "cycle", cycle+1, "at", time.Now().Add(pause).Format(time.DateTime))
		}

		s.sleeping = true
		err = s.wait(ctx, pause)
		s.sleeping = false
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				s.logger.Info("scheduler stopped", "cycle", cycle)
			}
			return err
		}
	}
}

// runCycle runs one cycle and turns a panic into a cycle failure.
func (s *Scheduler) runCycle(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = core.NewFailure(core.KindCycle, "", fmt.Errorf("panic: %v", r))
		}
	}()
	_, err = s.runner.RunCycle(ctx)
	return err
}
