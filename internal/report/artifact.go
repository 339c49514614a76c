// internal/report/artifact.go

// Package report writes, reads and renders the per-session JSON artifact.
package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mwiater/lmperf/internal/metrics"
	"github.com/mwiater/lmperf/internal/session"
)

// SchemaVersion is written to every artifact and checked on read.
const SchemaVersion = "1.0"

// Artifact is the on-disk record of one session. Durations are seconds.
type Artifact struct {
	SchemaVersion   string          `json:"schema_version"`
	GeneratedAt     time.Time       `json:"generated_at"`
	Configuration   Configuration   `json:"configuration"`
	Session         SessionInfo     `json:"session"`
	Requests        []RequestRecord `json:"requests"`
	ResourceSamples []SampleRecord  `json:"resource_samples"`
	Summary         metrics.Report  `json:"summary"`
}

// Configuration mirrors session.Config.
type Configuration struct {
	Mode                  string  `json:"mode"`
	Endpoint              string  `json:"endpoint"`
	EndpointType          string  `json:"endpoint_type"`
	Model                 string  `json:"model"`
	Concurrency           int     `json:"concurrency"`
	Requests              int     `json:"requests"`
	DurationSeconds       float64 `json:"duration_seconds"`
	TimeoutSeconds        float64 `json:"timeout_seconds"`
	SampleIntervalSeconds float64 `json:"sample_interval_seconds"`
	PacingSeconds         float64 `json:"pacing_seconds"`
	MaxTokens             int     `json:"max_tokens"`
	Temperature           float64 `json:"temperature"`
}

// SessionInfo holds the lifecycle fields of the session.
type SessionInfo struct {
	ID               string    `json:"id"`
	State            string    `json:"state"`
	AbortReason      string    `json:"abort_reason,omitempty"`
	StartedAt        time.Time `json:"started_at"`
	EndedAt          time.Time `json:"ended_at"`
	WallClockSeconds float64   `json:"wall_clock_seconds"`
}

// RequestRecord is one session.RequestResult.
type RequestRecord struct {
	Sequence        int       `json:"sequence"`
	Prompt          string    `json:"prompt"`
	Start           time.Time `json:"start"`
	End             time.Time `json:"end"`
	LatencySeconds  float64   `json:"latency_seconds"`
	Outcome         string    `json:"outcome"`
	Error           string    `json:"error,omitempty"`
	InputTokens     int       `json:"input_tokens"`
	OutputTokens    int       `json:"output_tokens"`
	TokensEstimated bool      `json:"tokens_estimated"`
	TokensPerSecond *float64  `json:"tokens_per_second"`
}

// SampleRecord is one session.ResourceSample.
type SampleRecord struct {
	Timestamp         time.Time `json:"timestamp"`
	CPUPercent        float64   `json:"cpu_percent"`
	MemoryUsedBytes   uint64    `json:"memory_used_bytes"`
	MemoryPercent     float64   `json:"memory_percent"`
	ProcessCPUPercent float64   `json:"process_cpu_percent"`
	ProcessRSSBytes   uint64    `json:"process_rss_bytes"`
}

// NewArtifact assembles an artifact from a snapshot and its summary.
func NewArtifact(snap session.Snapshot, summary metrics.Report, generatedAt time.Time) Artifact {
	cfg := snap.Config
	a := Artifact{
		SchemaVersion: SchemaVersion,
		GeneratedAt:   generatedAt.UTC(),
		Configuration: Configuration{
			Mode:                  string(cfg.Mode),
			Endpoint:              cfg.Endpoint,
			EndpointType:          cfg.EndpointType,
			Model:                 cfg.Model,
			Concurrency:           cfg.Concurrency,
			Requests:              cfg.Requests,
			DurationSeconds:       cfg.Duration.Seconds(),
			TimeoutSeconds:        cfg.Timeout.Seconds(),
			SampleIntervalSeconds: cfg.SampleInterval.Seconds(),
			PacingSeconds:         cfg.Pacing.Seconds(),
			MaxTokens:             cfg.MaxTokens,
			Temperature:           cfg.Temperature,
		},
		Session: SessionInfo{
			ID:               snap.ID,
			State:            string(snap.State),
			AbortReason:      snap.AbortReason,
			StartedAt:        snap.StartedAt,
			EndedAt:          snap.EndedAt,
			WallClockSeconds: snap.WallClock().Seconds(),
		},
		Requests:        make([]RequestRecord, 0, len(snap.Results)),
		ResourceSamples: make([]SampleRecord, 0, len(snap.Samples)),
		Summary:         summary,
	}
	for _, r := range snap.Results {
		a.Requests = append(a.Requests, RequestRecord{
			Sequence:        r.Sequence,
			Prompt:          r.Prompt,
			Start:           r.Start,
			End:             r.End,
			LatencySeconds:  r.Latency.Seconds(),
			Outcome:         string(r.Outcome),
			Error:           r.Error,
			InputTokens:     r.InputTokens,
			OutputTokens:    r.OutputTokens,
			TokensEstimated: r.TokensEstimated,
			TokensPerSecond: r.TokensPerSecond,
		})
	}
	for _, s := range snap.Samples {
		a.ResourceSamples = append(a.ResourceSamples, SampleRecord(s))
	}
	return a
}

// Snapshot rebuilds the session snapshot the artifact was written from.
func (a Artifact) Snapshot() session.Snapshot {
	c := a.Configuration
	snap := session.Snapshot{
		ID: a.Session.ID,
		Config: session.Config{
			Mode:           session.Mode(c.Mode),
			Endpoint:       c.Endpoint,
			EndpointType:   c.EndpointType,
			Model:          c.Model,
			Concurrency:    c.Concurrency,
			Requests:       c.Requests,
			Duration:       seconds(c.DurationSeconds),
			Timeout:        seconds(c.TimeoutSeconds),
			SampleInterval: seconds(c.SampleIntervalSeconds),
			Pacing:         seconds(c.PacingSeconds),
			MaxTokens:      c.MaxTokens,
			Temperature:    c.Temperature,
		},
		State:       session.State(a.Session.State),
		StartedAt:   a.Session.StartedAt,
		EndedAt:     a.Session.EndedAt,
		AbortReason: a.Session.AbortReason,
		Results:     make([]session.RequestResult, 0, len(a.Requests)),
		Samples:     make([]session.ResourceSample, 0, len(a.ResourceSamples)),
	}
	for _, r := range a.Requests {
		snap.Results = append(snap.Results, session.RequestResult{
			Sequence:        r.Sequence,
			Prompt:          r.Prompt,
			Start:           r.Start,
			End:             r.End,
			Latency:         seconds(r.LatencySeconds),
			Outcome:         session.Outcome(r.Outcome),
			Error:           r.Error,
			InputTokens:     r.InputTokens,
			OutputTokens:    r.OutputTokens,
			TokensEstimated: r.TokensEstimated,
			TokensPerSecond: r.TokensPerSecond,
		})
	}
	for _, s := range a.ResourceSamples {
		snap.Samples = append(snap.Samples, session.ResourceSample(s))
	}
	return snap
}

func seconds(v float64) time.Duration {
	return time.Duration(math.Round(v * float64(time.Second)))
}

// FileName returns lmperf_<mode>_<YYYYmmdd_HHMMSS>.json for the session start.
func FileName(mode string, startedAt time.Time) string {
	return fmt.Sprintf("lmperf_%s_%s.json", strings.ToLower(mode), startedAt.Local().Format("20060102_150405"))
}

// Write encodes the artifact to path, creating parent directories.
func Write(path string, a Artifact) error {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("error creating results directory: %w", err)
		}
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("error creating result file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(a); err != nil {
		return fmt.Errorf("error writing results to file: %w", err)
	}
	return nil
}

// Read loads an artifact, validating it against the embedded schema first.
func Read(path string) (Artifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Artifact{}, fmt.Errorf("failed to read artifact: %w", err)
	}
	if err := Validate(data); err != nil {
		return Artifact{}, fmt.Errorf("%s: %w", path, err)
	}

	var a Artifact
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&a); err != nil {
		return Artifact{}, fmt.Errorf("failed to decode artifact: %w", err)
	}
	if a.SchemaVersion != SchemaVersion {
		return Artifact{}, fmt.Errorf("unsupported artifact schema version %q", a.SchemaVersion)
	}
	return a, nil
}
