package executor

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mwiater/lmperf/internal/providers"
	"github.com/mwiater/lmperf/internal/providers/openai"
	"github.com/mwiater/lmperf/internal/session"
)

type fakeCompleter struct {
	completion providers.Completion
	err        error
	block      bool
	seen       providers.CompletionRequest
}

func (f *fakeCompleter) Complete(ctx context.Context, req providers.CompletionRequest) (providers.Completion, error) {
	f.seen = req
	if f.block {
		<-ctx.Done()
		return providers.Completion{}, &providers.ConnectionError{Op: "POST", URL: "x", Err: ctx.Err()}
	}
	return f.completion, f.err
}

// steppingClock returns start, then start+step, ...
func steppingClock(start time.Time, step time.Duration) func() time.Time {
	n := 0
	return func() time.Time {
		t := start.Add(time.Duration(n) * step)
		n++
		return t
	}
}

func newTestExecutor(c Completer, step time.Duration) *Executor {
	e := New(c, "local-model", 5*time.Second)
	e.now = steppingClock(time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC), step)
	return e
}

func TestExecuteSuccessWithUsage(t *testing.T) {
	fake := &fakeCompleter{completion: providers.Completion{
		Content: "irrelevant",
		Usage:   &providers.Usage{PromptTokens: 7, CompletionTokens: 20},
	}}
	e := newTestExecutor(fake, 2*time.Second)

	r := e.Execute(context.Background(), 3, session.RequestSpec{Prompt: "hi", MaxTokens: 50, Temperature: 0.5})
	require.Equal(t, session.OutcomeSuccess, r.Outcome)
	require.Empty(t, r.Error)
	require.Equal(t, 3, r.Sequence)
	require.Equal(t, 2*time.Second, r.Latency)
	require.Equal(t, r.End.Sub(r.Start), r.Latency)
	require.Equal(t, 7, r.InputTokens)
	require.Equal(t, 20, r.OutputTokens)
	require.False(t, r.TokensEstimated)
	require.NotNil(t, r.TokensPerSecond)
	require.InDelta(t, 10.0, *r.TokensPerSecond, 1e-9)

	require.Equal(t, "local-model", fake.seen.Model)
	require.Equal(t, 50, fake.seen.MaxTokens)
	require.Equal(t, 3, fake.seen.Sequence)
}

func TestExecuteEstimatesWithoutUsage(t *testing.T) {
	fake := &fakeCompleter{completion: providers.Completion{Content: "one two three four"}}
	e := newTestExecutor(fake, time.Second)

	r := e.Execute(context.Background(), 0, session.RequestSpec{Prompt: "count these words", SystemPrompt: "be brief"})
	require.Equal(t, session.OutcomeSuccess, r.Outcome)
	require.True(t, r.TokensEstimated)
	require.Equal(t, 5, r.InputTokens)
	require.Equal(t, 4, r.OutputTokens)
	require.InDelta(t, 4.0, *r.TokensPerSecond, 1e-9)
}

func TestExecuteZeroLatencyHasNoTPS(t *testing.T) {
	fake := &fakeCompleter{completion: providers.Completion{Usage: &providers.Usage{CompletionTokens: 5}}}
	e := newTestExecutor(fake, 0)

	r := e.Execute(context.Background(), 0, session.RequestSpec{Prompt: "p"})
	require.Equal(t, session.OutcomeSuccess, r.Outcome)
	require.Nil(t, r.TokensPerSecond)
}

func TestExecuteClassifiesFailures(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{"status", providers.NewStatusError(503, []byte(" busy ")), "status 503: busy"},
		{"decode", &providers.DecodeError{Err: errors.New("unexpected EOF")}, "malformed response: unexpected EOF"},
		{"connection", &providers.ConnectionError{Op: "POST", URL: "u", Err: errors.New("connection refused")}, "connection"},
		{"other", fmt.Errorf("boom"), "request error: boom"},
	}
	for _, tc := range cases {
		e := newTestExecutor(&fakeCompleter{err: tc.err}, time.Second)
		r := e.Execute(context.Background(), 1, session.RequestSpec{Prompt: "p"})
		require.Equal(t, session.OutcomeFailure, r.Outcome, tc.name)
		require.Equal(t, tc.want, r.Error, tc.name)
		require.Nil(t, r.TokensPerSecond, tc.name)
		require.Zero(t, r.OutputTokens, tc.name)
	}
}

func TestExecuteTimeoutUsesBound(t *testing.T) {
	e := New(&fakeCompleter{block: true}, "m", 20*time.Millisecond)

	r := e.Execute(context.Background(), 0, session.RequestSpec{Prompt: "p"})
	require.Equal(t, session.OutcomeTimeout, r.Outcome)
	require.Equal(t, ErrDetailTimeout, r.Error)
	require.Equal(t, 20*time.Millisecond, r.Latency)
	require.Equal(t, r.Start.Add(20*time.Millisecond), r.End)
	require.Nil(t, r.TokensPerSecond)
}

func TestExecuteCancelledByCaller(t *testing.T) {
	e := New(&fakeCompleter{block: true}, "m", 5*time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	r := e.Execute(ctx, 0, session.RequestSpec{Prompt: "p"})
	require.Equal(t, session.OutcomeFailure, r.Outcome)
	require.Equal(t, ErrDetailCancelled, r.Error)
}

func TestExecuteAgainstSlowEndpointTimesOut(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	e := New(openai.New(server.URL, ""), "m", 50*time.Millisecond)
	r := e.Execute(context.Background(), 0, session.RequestSpec{Prompt: "p"})
	require.Equal(t, session.OutcomeTimeout, r.Outcome)
	require.Equal(t, 50*time.Millisecond, r.Latency)
}

func TestEstimateTokens(t *testing.T) {
	require.Equal(t, 0, EstimateTokens("   "))
	require.Equal(t, 3, EstimateTokens("one  two\tthree\n"))
	// No whitespace means one "token" regardless of length.
	require.Equal(t, 1, EstimateTokens("请简单介绍一下人工智能的发展历史。"))
	require.Equal(t, 2, EstimateTokens("Hello, world!"))
}
