// internal/session/session.go

// Package session holds the record of one benchmark run: its configuration,
// lifecycle state, per-request results and resource samples.
//
// A Session is append-only while running and safe for concurrent appends from
// many workers. Once completed or aborted it only hands out Snapshots.
package session

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNotRunning is returned when appending to a session that is not running.
	ErrNotRunning = errors.New("session is not running")
	// ErrNotFinished is returned when snapshotting a session that is still open.
	ErrNotFinished = errors.New("session is not finished")
)

// Session is the shared, lock-protected record of one test run.
type Session struct {
	id     string
	config Config

	mu          sync.Mutex
	state       State
	startedAt   time.Time
	endedAt     time.Time
	abortReason string
	results     []RequestResult
	sequences   map[int]struct{}
	samples     []ResourceSample
}

// New creates an idle session for the given configuration.
func New(cfg Config) *Session {
	return &Session{
		id:        uuid.New().String(),
		config:    cfg,
		state:     StateIdle,
		sequences: make(map[int]struct{}),
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Config returns the configuration snapshot.
func (s *Session) Config() Config { return s.config }

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// StartedAt returns the time the session entered the running state.
func (s *Session) StartedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.startedAt
}

// Start moves the session from idle to running.
func (s *Session) Start(now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateIdle {
		return fmt.Errorf("start session: state is %s", s.state)
	}
	s.state = StateRunning
	s.startedAt = now
	return nil
}

// AppendResult records one request outcome. Sequence numbers must be unique.
func (s *Session) AppendResult(r RequestResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateRunning {
		return ErrNotRunning
	}
	if _, dup := s.sequences[r.Sequence]; dup {
		return fmt.Errorf("duplicate sequence %d", r.Sequence)
	}
	s.sequences[r.Sequence] = struct{}{}
	s.results = append(s.results, r)
	return nil
}

// AppendSample records one resource sample. Timestamps must not go backwards.
func (s *Session) AppendSample(sample ResourceSample) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateRunning {
		return ErrNotRunning
	}
	if n := len(s.samples); n > 0 && sample.Timestamp.Before(s.samples[n-1].Timestamp) {
		return fmt.Errorf("sample at %s is older than previous sample", sample.Timestamp.Format(time.RFC3339Nano))
	}
	s.samples = append(s.samples, sample)
	return nil
}

// resultCount returns how many results have been appended so far.
func (s *Session) resultCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.results)
}

// Complete moves a running session to completed.
func (s *Session) Complete(now time.Time) error {
	return s.finish(StateCompleted, now, "")
}

// Abort moves an idle or running session to aborted.
func (s *Session) Abort(now time.Time, reason error) error {
	msg := ""
	if reason != nil {
		msg = reason.Error()
	}
	return s.finish(StateAborted, now, msg)
}

func (s *Session) finish(to State, now time.Time, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Finished() {
		return fmt.Errorf("finish session: already %s", s.state)
	}
	if to == StateCompleted && s.state != StateRunning {
		return fmt.Errorf("complete session: state is %s", s.state)
	}
	if s.startedAt.IsZero() {
		s.startedAt = now
	}
	if now.Before(s.startedAt) {
		now = s.startedAt
	}
	s.state = to
	s.endedAt = now
	s.abortReason = reason
	return nil
}

// Snapshot returns an immutable copy of a finished session.
func (s *Session) Snapshot() (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.state.Finished() {
		return Snapshot{}, ErrNotFinished
	}

	results := make([]RequestResult, len(s.results))
	copy(results, s.results)
	for i := range results {
		if tps := results[i].TokensPerSecond; tps != nil {
			v := *tps
			results[i].TokensPerSecond = &v
		}
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Sequence < results[j].Sequence })

	samples := make([]ResourceSample, len(s.samples))
	copy(samples, s.samples)

	return Snapshot{
		ID:          s.id,
		Config:      s.config,
		State:       s.state,
		StartedAt:   s.startedAt,
		EndedAt:     s.endedAt,
		AbortReason: s.abortReason,
		Results:     results,
		Samples:     samples,
	}, nil
}
