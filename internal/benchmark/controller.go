// internal/benchmark/controller.go
package benchmark

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/mwiater/lmperf/internal/logging"
	"github.com/mwiater/lmperf/internal/sampler"
	"github.com/mwiater/lmperf/internal/session"
)

// ErrSetup marks failures that abort a session before any request is issued.
var ErrSetup = errors.New("benchmark setup failed")

// Executor issues one request. *executor.Executor implements it.
type Executor interface {
	Execute(ctx context.Context, seq int, spec session.RequestSpec) session.RequestResult
}

// Prober checks that the endpoint is reachable before a session starts.
type Prober interface {
	Probe(ctx context.Context) error
}

// ProbeFunc adapts a function to Prober.
type ProbeFunc func(ctx context.Context) error

// Probe implements Prober.
func (f ProbeFunc) Probe(ctx context.Context) error { return f(ctx) }

// Observer is called once per recorded result. It must be safe for concurrent use.
type Observer func(session.RequestResult)

// Plan describes one session: its configuration and where request specs come from.
// Specs drives single, batch and concurrent mode; Next drives stress mode.
type Plan struct {
	Config session.Config
	Specs  []session.RequestSpec
	Next   func(seq int) session.RequestSpec
}

// Controller runs a Plan against an Executor and fills a session.
type Controller struct {
	exec     Executor
	prober   Prober
	sampler  *sampler.Sampler
	observer Observer
	now      func() time.Time
}

// Option configures a Controller.
type Option func(*Controller)

// WithProber runs p before the session starts dispatching.
func WithProber(p Prober) Option { return func(c *Controller) { c.prober = p } }

// WithSampler records resource samples for the duration of the session.
func WithSampler(s *sampler.Sampler) Option { return func(c *Controller) { c.sampler = s } }

// WithObserver reports every recorded result to fn.
func WithObserver(fn Observer) Option { return func(c *Controller) { c.observer = fn } }

// NewController creates a Controller for exec.
func NewController(exec Executor, opts ...Option) *Controller {
	c := &Controller{exec: exec, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run executes the plan and returns the finished session snapshot.
//
// A failed probe or an invalid plan aborts the session and returns an error
// wrapping ErrSetup. Cancelling ctx stops dispatch; the session still
// completes with the results gathered so far and ctx.Err() is returned
// alongside the snapshot.
func (c *Controller) Run(ctx context.Context, plan Plan) (session.Snapshot, error) {
	s := session.New(plan.Config)
	if err := validatePlan(plan); err != nil {
		return c.abort(s, err)
	}
	if c.prober != nil {
		if err := c.prober.Probe(ctx); err != nil {
			return c.abort(s, fmt.Errorf("endpoint probe: %w", err))
		}
	}

	// The clock starts at dispatch so probe latency stays out of the stress
	// budget and the wall clock.
	if err := s.Start(c.now()); err != nil {
		return session.Snapshot{}, err
	}

	logging.LogEvent("session %s: mode=%s concurrency=%d requests=%d duration=%s pacing=%s",
		s.ID(), plan.Config.Mode, plan.Config.Concurrency, len(plan.Specs), plan.Config.Duration, plan.Config.Pacing)

	var handle *sampler.Handle
	if c.sampler != nil {
		logging.LogDebug("session %s: sampling resources every %s", s.ID(), c.sampler.Interval())
		handle = c.sampler.Start(ctx, s)
	}

	limiter := newLimiter(plan.Config.Pacing)
	switch plan.Config.Mode {
	case session.ModeSingle, session.ModeBatch:
		c.runSequential(ctx, s, plan.Specs, limiter)
	case session.ModeConcurrent:
		c.runConcurrent(ctx, s, plan, limiter)
	case session.ModeStress:
		c.runStress(ctx, s, plan, limiter)
	}

	if handle != nil {
		handle.Stop()
	}
	if err := s.Complete(c.now()); err != nil {
		return session.Snapshot{}, err
	}
	snap, err := s.Snapshot()
	if err != nil {
		return session.Snapshot{}, err
	}
	logging.LogEvent("session %s: %s with %d results in %s", snap.ID, snap.State, len(snap.Results), snap.WallClock().Round(time.Millisecond))
	return snap, ctx.Err()
}

func (c *Controller) abort(s *session.Session, cause error) (session.Snapshot, error) {
	err := fmt.Errorf("%w: %w", ErrSetup, cause)
	if abortErr := s.Abort(c.now(), err); abortErr != nil {
		return session.Snapshot{}, abortErr
	}
	snap, snapErr := s.Snapshot()
	if snapErr != nil {
		return session.Snapshot{}, snapErr
	}
	logging.LogEvent("session %s: aborted: %v", snap.ID, err)
	return snap, err
}

func (c *Controller) record(s *session.Session, r session.RequestResult) {
	if err := s.AppendResult(r); err != nil {
		logging.LogEvent("session %s: dropping result seq=%d: %v", s.ID(), r.Sequence, err)
		return
	}
	if c.observer != nil {
		c.observer(r)
	}
}

func (c *Controller) runSequential(ctx context.Context, s *session.Session, specs []session.RequestSpec, limiter *rate.Limiter) {
	for i, spec := range specs {
		if ctx.Err() != nil {
			return
		}
		if err := wait(ctx, limiter); err != nil {
			return
		}
		c.record(s, c.exec.Execute(ctx, i, spec))
	}
}

func (c *Controller) runConcurrent(ctx context.Context, s *session.Session, plan Plan, limiter *rate.Limiter) {
	total := int64(len(plan.Specs))
	var cursor atomic.Int64
	var g errgroup.Group

	for w := 0; w < plan.Config.Concurrency; w++ {
		g.Go(func() error {
			for ctx.Err() == nil {
				if err := wait(ctx, limiter); err != nil {
					return nil
				}
				seq := cursor.Add(1) - 1
				if seq >= total {
					return nil
				}
				c.record(s, c.exec.Execute(ctx, int(seq), plan.Specs[seq]))
			}
			return nil
		})
	}
	_ = g.Wait()
}

func (c *Controller) runStress(ctx context.Context, s *session.Session, plan Plan, limiter *rate.Limiter) {
	deadline := s.StartedAt().Add(plan.Config.Duration)
	var cursor atomic.Int64
	var g errgroup.Group

	for w := 0; w < plan.Config.Concurrency; w++ {
		g.Go(func() error {
			for ctx.Err() == nil {
				if err := wait(ctx, limiter); err != nil {
					return nil
				}
				if !c.now().Before(deadline) {
					return nil
				}
				seq := int(cursor.Add(1) - 1)
				c.record(s, c.exec.Execute(ctx, seq, plan.Next(seq)))
			}
			return nil
		})
	}
	_ = g.Wait()
}

func validatePlan(plan Plan) error {
	cfg := plan.Config
	switch cfg.Mode {
	case session.ModeSingle:
		if len(plan.Specs) != 1 {
			return fmt.Errorf("single mode needs exactly one request, got %d", len(plan.Specs))
		}
	case session.ModeBatch:
		if len(plan.Specs) == 0 {
			return errors.New("batch mode needs at least one request")
		}
	case session.ModeConcurrent:
		if len(plan.Specs) == 0 {
			return errors.New("concurrent mode needs at least one request")
		}
		if cfg.Concurrency < 1 {
			return fmt.Errorf("concurrency must be at least 1, got %d", cfg.Concurrency)
		}
	case session.ModeStress:
		if plan.Next == nil {
			return errors.New("stress mode needs a request generator")
		}
		if cfg.Concurrency < 1 {
			return fmt.Errorf("concurrency must be at least 1, got %d", cfg.Concurrency)
		}
		if cfg.Duration <= 0 {
			return fmt.Errorf("stress duration must be positive, got %s", cfg.Duration)
		}
	default:
		return fmt.Errorf("unknown mode %q", cfg.Mode)
	}
	return nil
}

func newLimiter(pacing time.Duration) *rate.Limiter {
	if pacing <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Every(pacing), 1)
}

func wait(ctx context.Context, limiter *rate.Limiter) error {
	if limiter == nil {
		return nil
	}
	return limiter.Wait(ctx)
}
