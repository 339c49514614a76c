// internal/appconfig/appconfig.go
// Package appconfig manages loading and interpreting application configuration.
package appconfig

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

const (
	// DefaultConfigPath is the default path to the application's configuration file.
	DefaultConfigPath = "config/config.json"
	// DefaultEndpoint is the LM Studio server address used when none is configured.
	DefaultEndpoint = "http://localhost:1234"
	// DefaultModel is sent when no model id is configured; LM Studio serves the loaded model.
	DefaultModel = "local-model"
	// defaultRequestTimeout is the default per-request timeout.
	defaultRequestTimeout = 60 * time.Second
	// defaultSampleInterval is the default resource sampling cadence.
	defaultSampleInterval = 500 * time.Millisecond
	// defaultOutputDir is where artifacts are written when no output path is given.
	defaultOutputDir = "lmperfData"
	// defaultTemperature matches the generation default of the original tool.
	defaultTemperature = 0.7
)

// Endpoint types understood by the provider factory.
const (
	EndpointOpenAI = "openai"
	EndpointOllama = "ollama"
)

// Config represents the top-level application configuration.
type Config struct {
	Endpoint             string   `json:"endpoint" mapstructure:"endpoint"`
	EndpointType         string   `json:"endpointType" mapstructure:"endpointType"`
	APIKey               string   `json:"apiKey,omitempty" mapstructure:"apiKey"`
	Model                string   `json:"model" mapstructure:"model"`
	Mode                 string   `json:"mode" mapstructure:"mode"`
	Concurrency          int      `json:"concurrency" mapstructure:"concurrency"`
	Requests             int      `json:"requests" mapstructure:"requests"`
	DurationSeconds      int      `json:"duration" mapstructure:"duration"`
	TimeoutSeconds       int      `json:"timeout" mapstructure:"timeout"`
	SampleIntervalMillis int      `json:"sampleInterval" mapstructure:"sampleInterval"`
	PacingMillis         int      `json:"pacing" mapstructure:"pacing"`
	MaxTokens            int      `json:"maxTokens" mapstructure:"maxTokens"`
	Temperature          *float64 `json:"temperature,omitempty" mapstructure:"temperature"`
	SystemPrompt         string   `json:"systemPrompt,omitempty" mapstructure:"systemPrompt"`
	Prompt               string   `json:"prompt,omitempty" mapstructure:"prompt"`
	Prompts              []string `json:"prompts,omitempty" mapstructure:"prompts"`
	PromptsFile          string   `json:"promptsFile,omitempty" mapstructure:"promptsFile"`
	OutputDir            string   `json:"outputDir,omitempty" mapstructure:"outputDir"`
	OutputFile           string   `json:"output,omitempty" mapstructure:"output"`
	CSV                  bool     `json:"csv" mapstructure:"csv"`
	HistoryDB            string   `json:"historyDB,omitempty" mapstructure:"historyDB"`
	LogFile              string   `json:"logFile,omitempty" mapstructure:"logFile"`
	Debug                bool     `json:"debug" mapstructure:"debug"`
	SkipProbe            bool     `json:"skipProbe" mapstructure:"skipProbe"`
	TUI                  bool     `json:"tui" mapstructure:"tui"`
	ConfigPath           string   `json:"-" mapstructure:"-"`
}

// ModeDefaults holds the per-mode fallbacks used when the config leaves a value at zero.
type ModeDefaults struct {
	MaxTokens   int
	Concurrency int
	Requests    int
	Duration    time.Duration
	Pacing      time.Duration
}

var modeDefaults = map[string]ModeDefaults{
	"single":     {MaxTokens: 150, Concurrency: 1, Requests: 1},
	"batch":      {MaxTokens: 100, Concurrency: 1, Requests: 5, Pacing: 500 * time.Millisecond},
	"concurrent": {MaxTokens: 80, Concurrency: 3, Requests: 3},
	"stress":     {MaxTokens: 50, Concurrency: 1, Duration: 30 * time.Second, Pacing: 100 * time.Millisecond},
}

// DefaultsFor returns the fallbacks for a mode name.
func DefaultsFor(mode string) ModeDefaults {
	if d, ok := modeDefaults[strings.ToLower(strings.TrimSpace(mode))]; ok {
		return d
	}
	return modeDefaults["single"]
}

// ForMode returns a copy of the config with zero-valued knobs filled from the mode defaults.
func (c Config) ForMode(mode string) Config {
	d := DefaultsFor(mode)
	out := c
	out.Mode = mode
	if out.MaxTokens <= 0 {
		out.MaxTokens = d.MaxTokens
	}
	if out.Concurrency <= 0 {
		out.Concurrency = d.Concurrency
	}
	if out.Requests <= 0 {
		out.Requests = d.Requests
	}
	if out.DurationSeconds <= 0 {
		out.DurationSeconds = int(d.Duration.Seconds())
	}
	if out.PacingMillis == 0 {
		out.PacingMillis = int(d.Pacing.Milliseconds())
	}
	return out
}

// EndpointURL returns the endpoint with surrounding space and trailing slashes removed.
func (c Config) EndpointURL() string {
	endpoint := strings.TrimRight(strings.TrimSpace(c.Endpoint), "/")
	if endpoint == "" {
		return DefaultEndpoint
	}
	return endpoint
}

// ResolvedEndpointType returns the endpoint flavor, defaulting to OpenAI-compatible.
func (c Config) ResolvedEndpointType() string {
	switch strings.ToLower(strings.TrimSpace(c.EndpointType)) {
	case "", EndpointOpenAI, "lmstudio", "llama.cpp", "llamacpp":
		return EndpointOpenAI
	case EndpointOllama:
		return EndpointOllama
	default:
		return strings.ToLower(strings.TrimSpace(c.EndpointType))
	}
}

// ModelName returns the configured model id or the LM Studio placeholder.
func (c Config) ModelName() string {
	if m := strings.TrimSpace(c.Model); m != "" {
		return m
	}
	return DefaultModel
}

// RequestTimeout returns the per-request timeout, falling back to the default if not specified.
func (c Config) RequestTimeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return defaultRequestTimeout
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// TestDuration returns the stress-mode duration bound.
func (c Config) TestDuration() time.Duration {
	if c.DurationSeconds <= 0 {
		return DefaultsFor("stress").Duration
	}
	return time.Duration(c.DurationSeconds) * time.Second
}

// SampleInterval returns the resource sampling cadence.
func (c Config) SampleInterval() time.Duration {
	if c.SampleIntervalMillis <= 0 {
		return defaultSampleInterval
	}
	return time.Duration(c.SampleIntervalMillis) * time.Millisecond
}

// PacingInterval returns the minimum gap between dispatches. Negative values disable pacing.
func (c Config) PacingInterval() time.Duration {
	if c.PacingMillis <= 0 {
		return 0
	}
	return time.Duration(c.PacingMillis) * time.Millisecond
}

// GenerationTemperature returns the sampling temperature.
func (c Config) GenerationTemperature() float64 {
	if c.Temperature == nil {
		return defaultTemperature
	}
	return *c.Temperature
}

// OutputDirectory returns the directory artifacts are written to.
func (c Config) OutputDirectory() string {
	if dir := strings.TrimSpace(c.OutputDir); dir != "" {
		return dir
	}
	return defaultOutputDir
}

// LogFilePath returns the path to the application log file, applying a default if not set.
func (c Config) LogFilePath() string {
	if path := c.LogFile; strings.TrimSpace(path) != "" {
		return path
	}
	return "lmperf.log"
}

// Validate checks the values a mode controller depends on.
func (c Config) Validate() error {
	var errs []error

	u, err := url.Parse(c.EndpointURL())
	if err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("endpoint %q is not an absolute URL", c.Endpoint))
	}
	switch c.ResolvedEndpointType() {
	case EndpointOpenAI, EndpointOllama:
	default:
		errs = append(errs, fmt.Errorf("unsupported endpoint type %q (expected %q or %q)", c.EndpointType, EndpointOpenAI, EndpointOllama))
	}
	if c.Concurrency < 0 {
		errs = append(errs, errors.New("concurrency must not be negative"))
	}
	if c.Requests < 0 {
		errs = append(errs, errors.New("requests must not be negative"))
	}
	if c.DurationSeconds < 0 {
		errs = append(errs, errors.New("duration must not be negative"))
	}
	if c.MaxTokens < 0 {
		errs = append(errs, errors.New("maxTokens must not be negative"))
	}
	if c.Temperature != nil && (*c.Temperature < 0 || *c.Temperature > 2) {
		errs = append(errs, fmt.Errorf("temperature %.2f out of range (0..2)", *c.Temperature))
	}

	return errors.Join(errs...)
}
