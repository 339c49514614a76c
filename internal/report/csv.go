// internal/report/csv.go
package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

var csvHeader = []string{
	"sequence", "start", "end", "latency_s", "outcome", "error",
	"input_tokens", "output_tokens", "tokens_estimated", "tokens_per_second",
	"prompt",
}

// CSVPath returns the .csv sibling of an artifact path.
func CSVPath(artifactPath string) string {
	return strings.TrimSuffix(artifactPath, filepath.Ext(artifactPath)) + ".csv"
}

// WriteCSV writes one row per request. It overwrites the file if it exists.
func WriteCSV(path string, a Artifact) error {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("error creating csv directory: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		return err
	}
	for _, r := range a.Requests {
		tps := ""
		if r.TokensPerSecond != nil {
			tps = fmt.Sprintf("%.4f", *r.TokensPerSecond)
		}
		record := []string{
			strconv.Itoa(r.Sequence),
			r.Start.Format(time.RFC3339Nano),
			r.End.Format(time.RFC3339Nano),
			fmt.Sprintf("%.4f", r.LatencySeconds),
			r.Outcome,
			r.Error,
			strconv.Itoa(r.InputTokens),
			strconv.Itoa(r.OutputTokens),
			strconv.FormatBool(r.TokensEstimated),
			tps,
			r.Prompt,
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return f.Close()
}
