// internal/appconfig/appconfig_test.go
package appconfig

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
)

// TestLoad verifies that a JSON config file is decoded through viper, that
// defaults fill unset keys, and that malformed or missing explicit files fail.
func TestLoad(t *testing.T) {
	dir := t.TempDir()
	validConfig := `{
        "endpoint": "http://127.0.0.1:8080/",
        "endpointType": "ollama",
        "model": "llama3.2:1b",
        "timeout": 15,
        "concurrency": 4
    }`
	path := filepath.Join(dir, "config.json")
	if err := os.WriteFile(path, []byte(validConfig), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(viper.New(), path)
	if err != nil {
		t.Fatalf("Load() with valid config failed: %v", err)
	}
	if cfg.EndpointURL() != "http://127.0.0.1:8080" {
		t.Fatalf("expected trailing slash trimmed, got %q", cfg.EndpointURL())
	}
	if cfg.ResolvedEndpointType() != EndpointOllama {
		t.Fatalf("expected ollama endpoint type, got %q", cfg.ResolvedEndpointType())
	}
	if cfg.RequestTimeout() != 15*time.Second {
		t.Fatalf("expected request timeout of 15s, got %v", cfg.RequestTimeout())
	}
	if cfg.SampleInterval() != 500*time.Millisecond {
		t.Fatalf("expected default sample interval of 500ms, got %v", cfg.SampleInterval())
	}
	if cfg.GenerationTemperature() != 0.7 {
		t.Fatalf("expected default temperature 0.7, got %v", cfg.GenerationTemperature())
	}
	if cfg.ConfigPath != path {
		t.Fatalf("expected config path %q, got %q", path, cfg.ConfigPath)
	}

	invalidJSON := filepath.Join(dir, "broken.json")
	if err := os.WriteFile(invalidJSON, []byte(`{ "endpoint": `), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(viper.New(), invalidJSON); err == nil {
		t.Fatal("Load() with invalid JSON should have failed")
	}

	badType := filepath.Join(dir, "badtype.json")
	if err := os.WriteFile(badType, []byte(`{ "endpointType": "grpc" }`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(viper.New(), badType); err == nil {
		t.Fatal("Load() with unsupported endpoint type should have failed")
	}

	if _, err := Load(viper.New(), filepath.Join(dir, "nonexistent.json")); err == nil {
		t.Fatal("Load() with nonexistent file should have failed")
	}
}

func TestLoadWithoutFileUsesDefaultsAndEnv(t *testing.T) {
	oldCwd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(oldCwd) })
	t.Setenv("LMPERF_MODEL", "qwen2.5-7b-instruct")

	cfg, err := Load(viper.New(), "")
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.ConfigPath != "" {
		t.Fatalf("expected no config file, got %q", cfg.ConfigPath)
	}
	if cfg.EndpointURL() != DefaultEndpoint {
		t.Fatalf("expected default endpoint, got %q", cfg.EndpointURL())
	}
	if cfg.ModelName() != "qwen2.5-7b-instruct" {
		t.Fatalf("expected model from env, got %q", cfg.ModelName())
	}
}

func TestForModeAppliesDefaults(t *testing.T) {
	cases := []struct {
		mode        string
		maxTokens   int
		concurrency int
		requests    int
		duration    time.Duration
		pacing      time.Duration
	}{
		{"single", 150, 1, 1, 30 * time.Second, 0},
		{"batch", 100, 1, 5, 30 * time.Second, 500 * time.Millisecond},
		{"concurrent", 80, 3, 3, 30 * time.Second, 0},
		{"stress", 50, 1, 1, 30 * time.Second, 100 * time.Millisecond},
	}
	for _, tc := range cases {
		cfg := Config{}.ForMode(tc.mode)
		if cfg.MaxTokens != tc.maxTokens || cfg.Concurrency != tc.concurrency {
			t.Fatalf("%s: got maxTokens=%d concurrency=%d", tc.mode, cfg.MaxTokens, cfg.Concurrency)
		}
		if tc.mode != "stress" && cfg.Requests != tc.requests {
			t.Fatalf("%s: expected %d requests, got %d", tc.mode, tc.requests, cfg.Requests)
		}
		if cfg.TestDuration() != tc.duration {
			t.Fatalf("%s: expected duration %v, got %v", tc.mode, tc.duration, cfg.TestDuration())
		}
		if cfg.PacingInterval() != tc.pacing {
			t.Fatalf("%s: expected pacing %v, got %v", tc.mode, tc.pacing, cfg.PacingInterval())
		}
	}

	explicit := Config{MaxTokens: 10, Concurrency: 8, PacingMillis: -1}.ForMode("stress")
	if explicit.MaxTokens != 10 || explicit.Concurrency != 8 {
		t.Fatalf("explicit values must win, got %+v", explicit)
	}
	if explicit.PacingInterval() != 0 {
		t.Fatalf("negative pacing disables the limiter, got %v", explicit.PacingInterval())
	}
}

func TestValidate(t *testing.T) {
	hot := 3.5
	cfg := Config{Endpoint: "localhost", Concurrency: -1, Temperature: &hot}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation errors")
	}
	for _, want := range []string{"absolute URL", "concurrency", "temperature"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("expected %q in %v", want, err)
		}
	}
	if err := (Config{}).Validate(); err != nil {
		t.Fatalf("zero config should be valid: %v", err)
	}
}

func TestResolvePrompts(t *testing.T) {
	dir := t.TempDir()
	listFile := filepath.Join(dir, "list.yaml")
	if err := os.WriteFile(listFile, []byte("- first\n- \"  \"\n- second\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	docFile := filepath.Join(dir, "doc.yaml")
	if err := os.WriteFile(docFile, []byte("systemPrompt: be brief\nprompts:\n  - one\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	prompts, _, err := Config{}.ResolvePrompts()
	if err != nil || len(prompts) != 10 {
		t.Fatalf("expected 10 default prompts, got %d (%v)", len(prompts), err)
	}

	prompts, _, err = Config{Prompt: "hi", PromptsFile: listFile}.ResolvePrompts()
	if err != nil || len(prompts) != 1 || prompts[0] != "hi" {
		t.Fatalf("single prompt must win, got %v (%v)", prompts, err)
	}

	prompts, _, err = Config{PromptsFile: listFile}.ResolvePrompts()
	if err != nil || len(prompts) != 2 || prompts[1] != "second" {
		t.Fatalf("unexpected list prompts %v (%v)", prompts, err)
	}

	prompts, system, err := Config{PromptsFile: docFile}.ResolvePrompts()
	if err != nil || len(prompts) != 1 || system != "be brief" {
		t.Fatalf("unexpected doc prompts %v %q (%v)", prompts, system, err)
	}

	_, system, _ = Config{PromptsFile: docFile, SystemPrompt: "mine"}.ResolvePrompts()
	if system != "mine" {
		t.Fatalf("configured system prompt must win, got %q", system)
	}

	if _, _, err := (Config{PromptsFile: filepath.Join(dir, "missing.yaml")}).ResolvePrompts(); err == nil {
		t.Fatal("expected error for missing prompts file")
	}
}

func TestShowConfig(t *testing.T) {
	var buf bytes.Buffer
	ShowConfig(&buf, Config{Model: "phi-3"})
	out := buf.String()
	for _, want := range []string{"No config file loaded", "phi-3", DefaultEndpoint, "stress", "concurrency=3"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
}
