// internal/executor/executor.go

// Package executor issues one inference request, measures its latency and
// classifies the outcome. It never touches the session; it returns a value.
package executor

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/mwiater/lmperf/internal/logging"
	"github.com/mwiater/lmperf/internal/providers"
	"github.com/mwiater/lmperf/internal/session"
)

// Error details recorded on non-success results.
const (
	ErrDetailTimeout    = "timeout"
	ErrDetailConnection = "connection"
	ErrDetailCancelled  = "cancelled"
)

// Completer is the part of providers.Provider the executor needs.
type Completer interface {
	Complete(ctx context.Context, req providers.CompletionRequest) (providers.Completion, error)
}

// Executor runs single requests against one endpoint with a fixed timeout.
type Executor struct {
	provider Completer
	model    string
	timeout  time.Duration
	now      func() time.Time
}

// New binds a provider, model id and per-request timeout.
func New(provider Completer, model string, timeout time.Duration) *Executor {
	return &Executor{
		provider: provider,
		model:    model,
		timeout:  timeout,
		now:      time.Now,
	}
}

// Execute issues spec as request seq and returns its recorded result.
// The clock starts immediately before the provider call and stops once the
// full response has been read and decoded.
func (e *Executor) Execute(ctx context.Context, seq int, spec session.RequestSpec) session.RequestResult {
	reqCtx := ctx
	cancel := func() {}
	if e.timeout > 0 {
		reqCtx, cancel = context.WithTimeout(ctx, e.timeout)
	}
	defer cancel()

	req := providers.CompletionRequest{
		Model:        e.model,
		SystemPrompt: spec.SystemPrompt,
		Prompt:       spec.Prompt,
		MaxTokens:    spec.MaxTokens,
		Temperature:  spec.Temperature,
		Sequence:     seq,
	}

	start := e.now()
	completion, err := e.provider.Complete(reqCtx, req)
	end := e.now()

	result := session.RequestResult{
		Sequence: seq,
		Prompt:   spec.Prompt,
		Start:    start,
		End:      end,
		Latency:  end.Sub(start),
	}
	if result.Latency < 0 {
		result.Latency = 0
		result.End = start
	}

	if err != nil {
		e.classifyError(ctx, reqCtx, err, &result)
		logging.LogDebug("request seq=%d outcome=%s error=%s latency=%s", seq, result.Outcome, result.Error, result.Latency)
		return result
	}

	result.Outcome = session.OutcomeSuccess
	if completion.Usage != nil {
		result.InputTokens = completion.Usage.PromptTokens
		result.OutputTokens = completion.Usage.CompletionTokens
	} else {
		result.InputTokens = EstimateTokens(spec.SystemPrompt) + EstimateTokens(spec.Prompt)
		result.OutputTokens = EstimateTokens(completion.Content)
		result.TokensEstimated = true
	}
	if secs := result.Latency.Seconds(); secs > 0 {
		tps := float64(result.OutputTokens) / secs
		result.TokensPerSecond = &tps
	}

	logging.LogDebug("request seq=%d outcome=success latency=%s out_tokens=%d estimated=%v", seq, result.Latency, result.OutputTokens, result.TokensEstimated)
	return result
}

func (e *Executor) classifyError(parent, reqCtx context.Context, err error, result *session.RequestResult) {
	switch {
	case parent.Err() != nil:
		result.Outcome = session.OutcomeFailure
		result.Error = ErrDetailCancelled
	case isTimeout(reqCtx, err):
		result.Outcome = session.OutcomeTimeout
		result.Error = ErrDetailTimeout
		if e.timeout > 0 {
			result.Latency = e.timeout
			result.End = result.Start.Add(e.timeout)
		}
	default:
		result.Outcome = session.OutcomeFailure
		result.Error = describe(err)
	}
}

func isTimeout(reqCtx context.Context, err error) bool {
	if errors.Is(reqCtx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func describe(err error) string {
	var statusErr *providers.StatusError
	var decodeErr *providers.DecodeError
	var connErr *providers.ConnectionError
	switch {
	case errors.As(err, &statusErr):
		return statusErr.Error()
	case errors.As(err, &decodeErr):
		return decodeErr.Error()
	case errors.As(err, &connErr):
		return ErrDetailConnection
	default:
		return fmt.Sprintf("request error: %v", err)
	}
}

// EstimateTokens approximates a token count by splitting on whitespace.
// It undercounts text without spaces (CJK) and punctuation-heavy text.
func EstimateTokens(text string) int {
	return len(strings.Fields(text))
}
