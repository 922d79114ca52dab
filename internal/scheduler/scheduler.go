// internal/scheduler/scheduler.go
package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/pion/logging"

	"github.com/tamzrod/sensor-node/internal/clock"
	"github.com/tamzrod/sensor-node/internal/logutil"
)

// Config is the construction-time config of one scheduler.
type Config struct {
	Name      string
	Intervals Intervals

	LoggerFactory logging.LoggerFactory
}

// Scheduler drives a Schedulable through PreAcquire -> Acquire -> PostAcquire.
// It is owned by the control loop; it is not safe for concurrent use.
type Scheduler struct {
	name   string
	clock  clock.Clock
	target Schedulable
	log    logging.LeveledLogger

	phase    Phase
	started  bool
	lastTick clock.Millis
	delta    time.Duration

	pre     time.Duration
	acquire time.Duration
	post    time.Duration
	offset  time.Duration

	cycles uint64
}

// New creates a scheduler starting in PreAcquire.
func New(cfg Config, clk clock.Clock, target Schedulable) (*Scheduler, error) {
	if cfg.Name == "" {
		return nil, errors.New("scheduler: name required")
	}
	if clk == nil {
		return nil, errors.New("scheduler: clock required")
	}
	if target == nil {
		return nil, errors.New("scheduler: target required")
	}
	if cfg.Intervals.Acquire <= 0 {
		return nil, errors.New("scheduler: acquire interval must be > 0")
	}
	if cfg.Intervals.Pre < 0 || cfg.Intervals.Post < 0 || cfg.Intervals.Offset < 0 {
		return nil, errors.New("scheduler: intervals must not be negative")
	}

	return &Scheduler{
		name:    cfg.Name,
		clock:   clk,
		target:  target,
		log:     logutil.Scoped(cfg.LoggerFactory, "scheduler"),
		phase:   PreAcquire,
		pre:     cfg.Intervals.Pre,
		acquire: cfg.Intervals.Acquire,
		post:    cfg.Intervals.Post,
		offset:  cfg.Intervals.Offset,
	}, nil
}

func (s *Scheduler) Name() string { return s.name }

// Phase returns the phase that will fire next.
func (s *Scheduler) Phase() Phase { return s.phase }

// Cycles counts completed PostAcquire transitions.
func (s *Scheduler) Cycles() uint64 { return s.cycles }

// Intervals returns the current cadence. Offset is zero once consumed.
func (s *Scheduler) Intervals() Intervals {
	return Intervals{Pre: s.pre, Acquire: s.acquire, Post: s.post, Offset: s.offset}
}

// Setters take effect on the next Tick and never reset the in-flight phase.

func (s *Scheduler) SetInterval(d time.Duration)     { s.acquire = d }
func (s *Scheduler) SetPreInterval(d time.Duration)  { s.pre = d }
func (s *Scheduler) SetPostInterval(d time.Duration) { s.post = d }
func (s *Scheduler) SetOffset(d time.Duration)       { s.offset = d }

// Tick samples the clock and fires at most one phase hook.
// It reports whether a phase transition occurred.
func (s *Scheduler) Tick(ctx context.Context) bool {
	now := s.clock.Now()

	if !s.started {
		// First call: no elapsed time is charged for the gap before it.
		s.lastTick = now
		s.started = true
	}
	if now.Before(s.lastTick) {
		s.log.Debugf("%s: clock overflow handled", s.name)
	}

	s.delta += now.Sub(s.lastTick) - s.offset
	s.offset = 0
	s.lastTick = now

	switch s.phase {
	case PreAcquire:
		if s.delta < s.pre-s.acquire {
			return false
		}
		s.fire(ctx, PreAcquire, s.target.PreAcquire)
		s.phase = Acquire
		return true

	case Acquire:
		if s.delta < s.acquire {
			return false
		}
		s.fire(ctx, Acquire, s.target.Acquire)
		s.phase = PostAcquire
		return true

	case PostAcquire:
		if s.delta < s.pre+s.post {
			return false
		}
		s.delta = 0
		s.fire(ctx, PostAcquire, s.target.PostAcquire)
		s.phase = PreAcquire
		s.cycles++
		return true

	default:
		s.log.Errorf("%s: tick running with invalid %s, restarting cycle", s.name, s.phase)
		s.phase = PreAcquire
		return false
	}
}

// fire runs one hook. Hook errors are reported; the cycle still advances.
func (s *Scheduler) fire(ctx context.Context, p Phase, hook func(context.Context) error) {
	s.log.Debugf("%s: triggered %s", s.name, p)
	if err := hook(ctx); err != nil {
		s.log.Warnf("%s: %s failed: %v", s.name, p, err)
	}
}
