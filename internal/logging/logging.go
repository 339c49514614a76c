// Package logging routes the standard logger to stdout and an optional log file.
package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
)

var (
	mu      sync.Mutex
	logFile *os.File
	debug   atomic.Bool
)

// Options controls where log output goes.
type Options struct {
	// Path is the log file; empty disables file output.
	Path string
	// Quiet drops stdout so a full-screen TUI is not overwritten.
	Quiet bool
	// Debug enables LogDebug output.
	Debug bool
}

func Init(opts Options) error {
	mu.Lock()
	defer mu.Unlock()

	if logFile != nil {
		_ = logFile.Close()
		logFile = nil
	}
	debug.Store(opts.Debug)

	var writers []io.Writer
	if !opts.Quiet {
		writers = append(writers, os.Stdout)
	}

	if opts.Path != "" {
		if dir := filepath.Dir(opts.Path); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return err
			}
		}
		file, err := os.OpenFile(opts.Path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return err
		}
		logFile = file
		writers = append(writers, logFile)
	}

	if len(writers) == 0 {
		log.SetOutput(io.Discard)
		return nil
	}
	log.SetOutput(io.MultiWriter(writers...))
	return nil
}

func Close() error {
	mu.Lock()
	defer mu.Unlock()
	if logFile == nil {
		return nil
	}
	log.SetOutput(os.Stderr)
	err := logFile.Close()
	logFile = nil
	return err
}

// SetDebug toggles LogDebug output at runtime.
func SetDebug(enabled bool) { debug.Store(enabled) }

// DebugEnabled reports whether LogDebug writes anything.
func DebugEnabled() bool { return debug.Load() }

func LogEvent(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	log.Println(msg)
}

// LogMetricsEvent writes a line tagged for aggregated figures.
func LogMetricsEvent(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	log.Println("[METRICS] " + msg)
}

// LogDebug writes only when debug output is enabled.
func LogDebug(format string, args ...any) {
	if !debug.Load() {
		return
	}
	msg := fmt.Sprintf(format, args...)
	log.Println("[DEBUG] " + msg)
}

// LogRequest records one request or response exchanged with the endpoint.
// A negative seq is omitted.
func LogRequest(direction, host, model string, seq int, payload any) {
	msg := buildRequestMessage(direction, host, model, seq, payload)
	log.Println(msg)
}

func buildRequestMessage(direction, host, model string, seq int, payload any) string {
	dir := strings.TrimSpace(direction)
	if dir != "" {
		dir = strings.ToUpper(dir)
	}
	hostValue := strings.TrimSpace(host)
	if hostValue == "" {
		hostValue = "unknown"
	}
	modelValue := strings.TrimSpace(model)
	if modelValue == "" {
		modelValue = "unknown"
	}
	parts := []string{fmt.Sprintf("[%s]", dir)}
	parts = append(parts, fmt.Sprintf("host=%s", hostValue))
	parts = append(parts, fmt.Sprintf("model=%s", modelValue))
	if seq >= 0 {
		parts = append(parts, fmt.Sprintf("seq=%d", seq))
	}
	parts = append(parts, fmt.Sprintf("payload=%s", formatPayload(payload)))
	return strings.Join(parts, " ")
}

func formatPayload(payload any) string {
	switch v := payload.(type) {
	case nil:
		return "null"
	case string:
		if strings.TrimSpace(v) == "" {
			return `""`
		}
		return v
	case []byte:
		if len(v) == 0 {
			return "[]"
		}
		return string(v)
	case fmt.Stringer:
		return v.String()
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(data)
	}
}
