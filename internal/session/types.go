// internal/session/types.go
package session

import "time"

// Mode identifies which load pattern a session runs.
type Mode string

const (
	ModeSingle     Mode = "single"
	ModeBatch      Mode = "batch"
	ModeConcurrent Mode = "concurrent"
	ModeStress     Mode = "stress"
)

// ParseMode converts user input into a Mode.
func ParseMode(s string) (Mode, bool) {
	switch Mode(s) {
	case ModeSingle, ModeBatch, ModeConcurrent, ModeStress:
		return Mode(s), true
	default:
		return "", false
	}
}

// State is the lifecycle position of a session.
type State string

const (
	StateIdle      State = "idle"
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateAborted   State = "aborted"
)

// Finished reports whether the state is terminal.
func (s State) Finished() bool {
	return s == StateCompleted || s == StateAborted
}

// Outcome classifies a single request.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
	OutcomeTimeout Outcome = "timeout"
)

// RequestSpec describes one inference request. It is never mutated after creation.
type RequestSpec struct {
	Prompt       string
	SystemPrompt string
	MaxTokens    int
	Temperature  float64
}

// RequestResult is the recorded outcome of one request.
//
// TokensPerSecond is nil unless Outcome is OutcomeSuccess and Latency > 0.
// TokensEstimated marks counts derived from a whitespace split rather than
// endpoint usage metadata; such counts are approximations.
type RequestResult struct {
	Sequence        int
	Prompt          string
	Start           time.Time
	End             time.Time
	Latency         time.Duration
	Outcome         Outcome
	Error           string
	InputTokens     int
	OutputTokens    int
	TokensEstimated bool
	TokensPerSecond *float64
}

// ResourceSample is one reading taken by the resource sampler.
type ResourceSample struct {
	Timestamp         time.Time
	CPUPercent        float64
	MemoryUsedBytes   uint64
	MemoryPercent     float64
	ProcessCPUPercent float64
	ProcessRSSBytes   uint64
}

// Config is the configuration snapshot stored with a session.
type Config struct {
	Mode           Mode
	Endpoint       string
	EndpointType   string
	Model          string
	Concurrency    int
	Requests       int
	Duration       time.Duration
	Timeout        time.Duration
	SampleInterval time.Duration
	Pacing         time.Duration
	MaxTokens      int
	Temperature    float64
}

// Snapshot is an immutable copy of a finished session.
// Results are ordered by Sequence; Samples keep timestamp order.
type Snapshot struct {
	ID          string
	Config      Config
	State       State
	StartedAt   time.Time
	EndedAt     time.Time
	AbortReason string
	Results     []RequestResult
	Samples     []ResourceSample
}

// WallClock returns the elapsed session time.
func (s Snapshot) WallClock() time.Duration {
	if s.StartedAt.IsZero() || s.EndedAt.Before(s.StartedAt) {
		return 0
	}
	return s.EndedAt.Sub(s.StartedAt)
}
