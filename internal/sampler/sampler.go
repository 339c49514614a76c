// internal/sampler/sampler.go

// Package sampler records system and process resource usage on a fixed
// interval while a benchmark session runs.
package sampler

import (
	"context"
	"sync"
	"time"

	"github.com/mwiater/lmperf/internal/logging"
	"github.com/mwiater/lmperf/internal/session"
)

// DefaultInterval is used when New is given a non-positive interval.
const DefaultInterval = 500 * time.Millisecond

// Probe takes one resource reading.
type Probe interface {
	Sample(ctx context.Context) (session.ResourceSample, error)
}

// Sink receives samples. *session.Session implements it.
type Sink interface {
	AppendSample(session.ResourceSample) error
}

// Sampler polls a Probe on a ticker.
type Sampler struct {
	probe    Probe
	interval time.Duration
	now      func() time.Time
}

// New creates a Sampler. It does not start sampling.
func New(probe Probe, interval time.Duration) *Sampler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Sampler{probe: probe, interval: interval, now: time.Now}
}

// Interval returns the sampling cadence.
func (s *Sampler) Interval() time.Duration { return s.interval }

// Handle controls a running sampling goroutine.
type Handle struct {
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// Start launches the sampling goroutine. One sample is taken immediately,
// then one per interval until Stop is called or ctx is cancelled.
func (s *Sampler) Start(ctx context.Context, sink Sink) *Handle {
	ctx, cancel := context.WithCancel(ctx)
	h := &Handle{cancel: cancel, done: make(chan struct{})}

	go func() {
		defer close(h.done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.tick(ctx, sink)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.tick(ctx, sink)
			}
		}
	}()
	return h
}

func (s *Sampler) tick(ctx context.Context, sink Sink) {
	sample, err := s.probe.Sample(ctx)
	if err != nil {
		logging.LogDebug("sampler: probe failed: %v", err)
		return
	}
	// Stop may have raced the probe; drop the reading rather than append late.
	if ctx.Err() != nil {
		return
	}
	if sample.Timestamp.IsZero() {
		sample.Timestamp = s.now()
	}
	if err := sink.AppendSample(sample); err != nil {
		logging.LogDebug("sampler: append failed: %v", err)
	}
}

// Stop ends sampling and waits for the goroutine to exit. Safe to call more than once.
func (h *Handle) Stop() {
	h.once.Do(h.cancel)
	<-h.done
}
