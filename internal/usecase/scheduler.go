package usecase

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"TourScanner/internal/domain"
	"TourScanner/internal/ports"
)

var (
	ErrInvalidPause     = errors.New("scheduler pause must be positive")
	ErrInvalidDuration  = errors.New("scheduler duration must be positive or unbounded")
	ErrSchedulerStarted = errors.New("scheduler already started")
)

// SchedulerState is the lifecycle position of a Scheduler.
type SchedulerState int32

const (
	StateIdle SchedulerState = iota
	StateRunning
	StateStopped
)

func (s SchedulerState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// SchedulerOptions bounds the repeat loop.
type SchedulerOptions struct {
	Duration  time.Duration
	Pause     time.Duration
	Unbounded bool
}

// Validate rejects non-positive pauses and bounded non-positive durations.
func (o SchedulerOptions) Validate() error {
	if o.Pause <= 0 {
		return ErrInvalidPause
	}
	if !o.Unbounded && o.Duration <= 0 {
		return ErrInvalidDuration
	}
	return nil
}

// RunStats summarises a finished Run.
type RunStats struct {
	Cycles         int
	FailedCycles   int
	Accepted       int
	Rejected       int
	NotifyFailures int
}

// SchedulerDeps wires a source, the ingestion cycle and the notifier together.
type SchedulerDeps struct {
	Source   ports.Source
	Cycle    *Cycle
	Notifier ports.Notifier
	Clock    ports.Clock
	Logger   *slog.Logger
	Options  SchedulerOptions
}

// Scheduler repeats ingestion cycles until its deadline passes.
type Scheduler struct {
	source   ports.Source
	cycle    *Cycle
	notifier ports.Notifier
	clock    ports.Clock
	logger   *slog.Logger
	opts     SchedulerOptions
	state    atomic.Int32
}

// NewScheduler validates the options and returns an idle scheduler.
func NewScheduler(deps SchedulerDeps) (*Scheduler, error) {
	if err := deps.Options.Validate(); err != nil {
		return nil, err
	}
	if deps.Source == nil || deps.Cycle == nil || deps.Clock == nil {
		return nil, errors.New("scheduler requires a source, a cycle and a clock")
	}

	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Scheduler{
		source:   deps.Source,
		cycle:    deps.Cycle,
		notifier: deps.Notifier,
		clock:    deps.Clock,
		logger:   logger,
		opts:     deps.Options,
	}, nil
}

// State reports the current lifecycle state.
func (s *Scheduler) State() SchedulerState {
	return SchedulerState(s.state.Load())
}

// Run loops while now < start+Duration, pausing between cycles. The pause is
// cut short at the deadline so a bounded run never outlives Duration by more
// than one cycle. Cycle failures are logged and counted; they never end the
// loop. Cancelling ctx is honoured at the deadline check and during the pause
// only.
func (s *Scheduler) Run(ctx context.Context) (RunStats, error) {
	if !s.state.CompareAndSwap(int32(StateIdle), int32(StateRunning)) {
		return RunStats{}, ErrSchedulerStarted
	}
	defer s.state.Store(int32(StateStopped))

	var stats RunStats
	start := s.clock.Now()
	deadline := start.Add(s.opts.Duration)

	s.logger.Info("scheduler started",
		"source", s.source.Name(),
		"duration", s.durationAttr(),
		"pause", s.opts.Pause)

	for s.opts.Unbounded || s.clock.Now().Before(deadline) {
		if ctx.Err() != nil {
			break
		}

		result, err := s.RunOnce(ctx)
		stats.Cycles++
		stats.Accepted += len(result.Accepted)
		stats.Rejected += result.RejectedCount
		if err != nil {
			if errors.Is(err, domain.ErrNotify) {
				stats.NotifyFailures++
			}
			if result.Status == "" || result.Err != nil {
				stats.FailedCycles++
			}
		}

		pause := s.opts.Pause
		if !s.opts.Unbounded {
			remaining := deadline.Sub(s.clock.Now())
			if remaining <= 0 {
				break
			}
			pause = min(pause, remaining)
		}
		if err := s.clock.Sleep(ctx, pause); err != nil {
			break
		}
	}

	s.logger.Info("scheduler stopped",
		"source", s.source.Name(),
		"cycles", stats.Cycles,
		"failed", stats.FailedCycles,
		"accepted", stats.Accepted,
		"elapsed", s.clock.Now().Sub(start))

	return stats, nil
}

// RunOnce performs one scan, ingest and notify pass. A scan failure returns a
// zero CycleResult. Once items are in hand the pass is not interrupted by
// cancellation of ctx.
func (s *Scheduler) RunOnce(ctx context.Context) (CycleResult, error) {
	started := s.clock.Now()

	items, err := s.source.Scan(ctx)
	if err != nil {
		s.logger.Warn("scan failed",
			"source", s.source.Name(),
			"kind", domain.Kind(err),
			"error", err)
		return CycleResult{}, err
	}

	steady := context.WithoutCancel(ctx)
	result := s.cycle.Run(steady, items)
	if result.Err != nil {
		s.logger.Error("cycle aborted",
			"source", s.source.Name(),
			"kind", domain.Kind(result.Err),
			"inserted_before_failure", len(result.Accepted),
			"error", result.Err)
	}

	var notifyErr error
	if len(result.Accepted) > 0 && s.notifier != nil {
		if err := s.notifier.Notify(steady, result.Accepted); err != nil {
			if !errors.Is(err, domain.ErrNotify) {
				err = &domain.NotifyError{Channel: "notifier", Err: err}
			}
			notifyErr = err
			s.logger.Warn("notification failed",
				"source", s.source.Name(),
				"kind", domain.Kind(err),
				"records", len(result.Accepted),
				"error", err)
		}
	}

	s.logger.Info("cycle completed",
		"source", s.source.Name(),
		"status", string(result.Status),
		"accepted", len(result.Accepted),
		"rejected", result.RejectedCount,
		"duration", s.clock.Now().Sub(started))

	return result, errors.Join(result.Err, notifyErr)
}

func (s *Scheduler) durationAttr() string {
	if s.opts.Unbounded {
		return "forever"
	}
	return s.opts.Duration.String()
}
