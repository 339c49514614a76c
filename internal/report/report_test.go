package report

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mwiater/lmperf/internal/metrics"
	"github.com/mwiater/lmperf/internal/session"
)

var started = time.Date(2025, 7, 4, 15, 30, 45, 123456789, time.UTC)

func sampleSnapshot() session.Snapshot {
	tps := func(v float64) *float64 { return &v }
	return session.Snapshot{
		ID: "3f1c1a9e-0000-4000-8000-000000000001",
		Config: session.Config{
			Mode:           session.ModeConcurrent,
			Endpoint:       "http://localhost:1234",
			EndpointType:   "openai",
			Model:          "local-model",
			Concurrency:    3,
			Requests:       3,
			Timeout:        30 * time.Second,
			SampleInterval: 500 * time.Millisecond,
			MaxTokens:      80,
			Temperature:    0.7,
		},
		State:     session.StateCompleted,
		StartedAt: started,
		EndedAt:   started.Add(3333 * time.Millisecond),
		Results: []session.RequestResult{
			{Sequence: 0, Prompt: "a, \"quoted\"", Start: started, End: started.Add(1234567 * time.Microsecond), Latency: 1234567 * time.Microsecond, Outcome: session.OutcomeSuccess, InputTokens: 12, OutputTokens: 40, TokensPerSecond: tps(40 / 1.234567)},
			{Sequence: 1, Prompt: "b", Start: started, End: started.Add(3 * time.Second), Latency: 3 * time.Second, Outcome: session.OutcomeSuccess, InputTokens: 9, OutputTokens: 33, TokensEstimated: true, TokensPerSecond: tps(11)},
			{Sequence: 2, Prompt: "c", Start: started, End: started.Add(30 * time.Second), Latency: 30 * time.Second, Outcome: session.OutcomeTimeout, Error: "timeout"},
		},
		Samples: []session.ResourceSample{
			{Timestamp: started, CPUPercent: 22.5, MemoryUsedBytes: 8 << 30, MemoryPercent: 51.2, ProcessCPUPercent: 3.1, ProcessRSSBytes: 42 << 20},
			{Timestamp: started.Add(500 * time.Millisecond), CPUPercent: 80, MemoryUsedBytes: 9 << 30, MemoryPercent: 57.7, ProcessCPUPercent: 4.4, ProcessRSSBytes: 44 << 20},
		},
	}
}

func TestArtifactRoundTrip(t *testing.T) {
	snap := sampleSnapshot()
	summary := metrics.Summarize(snap)
	path := filepath.Join(t.TempDir(), "out", FileName(string(snap.Config.Mode), snap.StartedAt))

	require.NoError(t, Write(path, NewArtifact(snap, summary, time.Now())))
	got, err := Read(path)
	require.NoError(t, err)
	require.Equal(t, SchemaVersion, got.SchemaVersion)
	require.Len(t, got.Requests, 3)
	require.Len(t, got.ResourceSamples, 2)

	again := metrics.Summarize(got.Snapshot())
	require.Equal(t, summary.Reliability, again.Reliability)
	require.Equal(t, summary.Tokens, again.Tokens)
	require.Equal(t, summary.Latency.Count, again.Latency.Count)
	require.InDelta(t, *summary.Latency.Mean, *again.Latency.Mean, 1e-9)
	require.InDelta(t, *summary.Latency.StdDev, *again.Latency.StdDev, 1e-9)
	require.InDelta(t, *summary.Throughput.MeanTPS, *again.Throughput.MeanTPS, 1e-9)
	require.InDelta(t, *summary.Throughput.AggregateTPS, *again.Throughput.AggregateTPS, 1e-9)
	require.InDelta(t, *summary.Resources.CPUPercentAvg, *again.Resources.CPUPercentAvg, 1e-9)
	require.Equal(t, snap.Config, got.Snapshot().Config)
}

func TestArtifactNullsForUndefinedStats(t *testing.T) {
	snap := sampleSnapshot()
	snap.Results = snap.Results[2:]
	snap.Samples = nil
	path := filepath.Join(t.TempDir(), "nulls.json")
	require.NoError(t, Write(path, NewArtifact(snap, metrics.Summarize(snap), time.Now())))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), `"mean": null`)
	require.Contains(t, string(data), `"aggregate_tps": null`)
	require.Contains(t, string(data), `"tokens_per_second": null`)

	_, err = Read(path)
	require.NoError(t, err)
}

func TestReadRejectsInvalidArtifact(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"schema_version":"1.0","requests":"nope"}`), 0o644))
	_, err := Read(bad)
	require.Error(t, err)
	require.Contains(t, err.Error(), "validation failed")

	_, err = Read(filepath.Join(dir, "missing.json"))
	require.Error(t, err)
}

func TestFileName(t *testing.T) {
	name := FileName("Stress", time.Date(2025, 1, 2, 3, 4, 5, 0, time.Local))
	require.Equal(t, "lmperf_stress_20250102_030405.json", name)
	require.Equal(t, "out/lmperf_x.csv", CSVPath("out/lmperf_x.json"))
}

func TestWriteCSV(t *testing.T) {
	snap := sampleSnapshot()
	path := filepath.Join(t.TempDir(), "rows.csv")
	require.NoError(t, WriteCSV(path, NewArtifact(snap, metrics.Summarize(snap), time.Now())))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 4)
	require.Equal(t, csvHeader, rows[0])
	require.Equal(t, "a, \"quoted\"", rows[1][10])
	require.Equal(t, "timeout", rows[3][4])
	require.Empty(t, rows[3][9])
	require.Equal(t, "true", rows[2][8])
}

func TestRenderShowsFiguresAndNA(t *testing.T) {
	snap := sampleSnapshot()
	var buf bytes.Buffer
	Render(&buf, NewArtifact(snap, metrics.Summarize(snap), time.Now()))
	out := buf.String()
	for _, want := range []string{"concurrent", "local-model", "Issued", "66.7%", "Aggregate TPS", "timeout", "GB"} {
		require.True(t, strings.Contains(out, want), "missing %q in:\n%s", want, out)
	}

	empty := snap
	empty.Results = nil
	empty.Samples = nil
	buf.Reset()
	Render(&buf, NewArtifact(empty, metrics.Summarize(empty), time.Now()))
	require.Contains(t, buf.String(), na)
}
