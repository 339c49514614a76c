package logging

import (
	"bytes"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type testStringer string

func (s testStringer) String() string { return string(s) }

func TestInitAndLoggingToFile(t *testing.T) {
	tempDir := t.TempDir()
	logPath := filepath.Join(tempDir, "nested", "lmperf.log")

	if err := Init(Options{Path: logPath, Quiet: true}); err != nil {
		t.Fatalf("Init error: %v", err)
	}
	t.Cleanup(func() {
		_ = Close()
	})

	LogEvent("hello %s", "world")
	LogMetricsEvent("metrics %s", "only")
	LogDebug("hidden %d", 1)
	if DebugEnabled() {
		t.Fatalf("debug should start disabled")
	}
	SetDebug(true)
	if !DebugEnabled() {
		t.Fatalf("SetDebug(true) not reported by DebugEnabled")
	}
	LogDebug("visible %d", 2)
	SetDebug(false)
	_ = Close()

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	content := string(data)
	if !strings.Contains(content, "hello world") {
		t.Fatalf("expected LogEvent content, got: %s", content)
	}
	if !strings.Contains(content, "[METRICS] metrics only") {
		t.Fatalf("expected LogMetricsEvent content, got: %s", content)
	}
	if strings.Contains(content, "hidden") {
		t.Fatalf("debug line written while debug disabled: %s", content)
	}
	if !strings.Contains(content, "[DEBUG] visible 2") {
		t.Fatalf("expected debug line, got: %s", content)
	}
}

func TestBuildRequestMessageDefaults(t *testing.T) {
	msg := buildRequestMessage(" in ", " ", "", 7, map[string]any{"ok": true})
	if !strings.Contains(msg, "[IN]") {
		t.Fatalf("expected uppercased direction, got: %s", msg)
	}
	if !strings.Contains(msg, "host=unknown") {
		t.Fatalf("expected default host, got: %s", msg)
	}
	if !strings.Contains(msg, "model=unknown") {
		t.Fatalf("expected default model, got: %s", msg)
	}
	if !strings.Contains(msg, "seq=7") {
		t.Fatalf("expected sequence, got: %s", msg)
	}
	if !strings.Contains(msg, "payload={\"ok\":true}") {
		t.Fatalf("expected payload json, got: %s", msg)
	}
	if strings.Contains(buildRequestMessage("out", "h", "m", -1, nil), "seq=") {
		t.Fatal("negative seq must be omitted")
	}
}

func TestFormatPayloadVariants(t *testing.T) {
	if got := formatPayload(nil); got != "null" {
		t.Fatalf("nil payload: %s", got)
	}
	if got := formatPayload(" "); got != `""` {
		t.Fatalf("empty string payload: %s", got)
	}
	if got := formatPayload([]byte("hi")); got != "hi" {
		t.Fatalf("byte payload: %s", got)
	}
	if got := formatPayload(testStringer("ok")); got != "ok" {
		t.Fatalf("stringer payload: %s", got)
	}
}

func TestInitQuietWithoutFileDiscards(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	if err := Init(Options{Quiet: true}); err != nil {
		t.Fatalf("Init error: %v", err)
	}
	t.Cleanup(func() { log.SetOutput(os.Stderr) })
	LogEvent("discard")
	if buf.Len() != 0 {
		t.Fatalf("expected log output discarded, got: %s", buf.String())
	}
}
