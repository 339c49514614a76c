package session

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSessionLifecycle(t *testing.T) {
	s := New(Config{Mode: ModeBatch})
	require.Equal(t, StateIdle, s.State())
	require.NotEmpty(t, s.ID())

	require.ErrorIs(t, s.AppendResult(RequestResult{Sequence: 0}), ErrNotRunning)

	start := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, s.Start(start))
	require.Error(t, s.Start(start), "second start must fail")

	require.NoError(t, s.AppendResult(RequestResult{Sequence: 1}))
	require.NoError(t, s.AppendResult(RequestResult{Sequence: 0}))
	require.Error(t, s.AppendResult(RequestResult{Sequence: 1}), "duplicate sequence")

	_, err := s.Snapshot()
	require.ErrorIs(t, err, ErrNotFinished)

	require.NoError(t, s.Complete(start.Add(3*time.Second)))
	require.Error(t, s.Complete(start.Add(4*time.Second)))
	require.ErrorIs(t, s.AppendResult(RequestResult{Sequence: 2}), ErrNotRunning)

	snap, err := s.Snapshot()
	require.NoError(t, err)
	require.Equal(t, StateCompleted, snap.State)
	require.Len(t, snap.Results, 2)
	require.Equal(t, 0, snap.Results[0].Sequence)
	require.Equal(t, 1, snap.Results[1].Sequence)
	require.Equal(t, 3*time.Second, snap.WallClock())
}

func TestSessionAbortFromIdle(t *testing.T) {
	s := New(Config{Mode: ModeSingle})
	now := time.Now()
	require.NoError(t, s.Abort(now, fmt.Errorf("endpoint unreachable")))

	snap, err := s.Snapshot()
	require.NoError(t, err)
	require.Equal(t, StateAborted, snap.State)
	require.Equal(t, "endpoint unreachable", snap.AbortReason)
	require.False(t, snap.EndedAt.Before(snap.StartedAt))
}

func TestSessionEndNeverBeforeStart(t *testing.T) {
	s := New(Config{})
	start := time.Now()
	require.NoError(t, s.Start(start))
	require.NoError(t, s.Complete(start.Add(-time.Second)))

	snap, err := s.Snapshot()
	require.NoError(t, err)
	require.Equal(t, snap.StartedAt, snap.EndedAt)
}

func TestAppendSampleRejectsOlderTimestamp(t *testing.T) {
	s := New(Config{})
	now := time.Now()
	require.NoError(t, s.Start(now))
	require.NoError(t, s.AppendSample(ResourceSample{Timestamp: now.Add(time.Second)}))
	require.NoError(t, s.AppendSample(ResourceSample{Timestamp: now.Add(time.Second)}))
	require.Error(t, s.AppendSample(ResourceSample{Timestamp: now}))
}

func TestConcurrentAppend(t *testing.T) {
	s := New(Config{Mode: ModeConcurrent})
	require.NoError(t, s.Start(time.Now()))

	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func(seq int) {
			defer wg.Done()
			require.NoError(t, s.AppendResult(RequestResult{Sequence: seq}))
		}(i)
	}
	wg.Wait()
	require.Equal(t, 64, s.resultCount())
	require.NoError(t, s.Complete(time.Now()))

	snap, err := s.Snapshot()
	require.NoError(t, err)
	for i, r := range snap.Results {
		require.Equal(t, i, r.Sequence)
	}
}

func TestSnapshotIsDetached(t *testing.T) {
	s := New(Config{})
	require.NoError(t, s.Start(time.Now()))
	tps := 4.0
	require.NoError(t, s.AppendResult(RequestResult{Sequence: 0, TokensPerSecond: &tps}))
	require.NoError(t, s.Complete(time.Now()))

	first, err := s.Snapshot()
	require.NoError(t, err)
	*first.Results[0].TokensPerSecond = 99
	first.Results[0].OutputTokens = 123

	second, err := s.Snapshot()
	require.NoError(t, err)
	require.Equal(t, 4.0, *second.Results[0].TokensPerSecond)
	require.Zero(t, second.Results[0].OutputTokens)
}

func TestParseMode(t *testing.T) {
	for _, m := range []string{"single", "batch", "concurrent", "stress"} {
		got, ok := ParseMode(m)
		require.True(t, ok)
		require.Equal(t, Mode(m), got)
	}
	_, ok := ParseMode("comprehensive")
	require.False(t, ok)
}
