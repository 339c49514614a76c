// internal/report/console.go
package report

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/fatih/color"

	"github.com/mwiater/lmperf/internal/util"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7D56F4"))
	sectionStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#04B575"))
	labelStyle   = lipgloss.NewStyle().Width(24)
	abortStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5F87")).Bold(true)

	goodRate = color.New(color.FgGreen).SprintFunc()
	okRate   = color.New(color.FgYellow).SprintFunc()
	badRate  = color.New(color.FgRed).SprintFunc()
)

const na = "n/a"

// Render prints the human-readable report for an artifact.
func Render(w io.Writer, a Artifact) {
	s := a.Summary
	cfg := a.Configuration

	fmt.Fprintln(w, titleStyle.Render(fmt.Sprintf("lmperf %s report", cfg.Mode)))
	line(w, "Session", a.Session.ID)
	line(w, "Endpoint", fmt.Sprintf("%s (%s)", cfg.Endpoint, cfg.EndpointType))
	line(w, "Model", cfg.Model)
	line(w, "State", a.Session.State)
	if a.Session.AbortReason != "" {
		line(w, "Abort reason", abortStyle.Render(a.Session.AbortReason))
	}
	line(w, "Wall clock", fmt.Sprintf("%.3fs", a.Session.WallClockSeconds))
	if cfg.Mode == "concurrent" || cfg.Mode == "stress" {
		line(w, "Concurrency", fmt.Sprintf("%d", cfg.Concurrency))
	}
	if cfg.Mode == "stress" {
		line(w, "Duration bound", fmt.Sprintf("%.0fs", cfg.DurationSeconds))
	}

	section(w, "Requests")
	line(w, "Issued", fmt.Sprintf("%d", s.Reliability.Issued))
	line(w, "Success", fmt.Sprintf("%d", s.Reliability.Success))
	line(w, "Failure", fmt.Sprintf("%d", s.Reliability.Failure))
	line(w, "Timeout", fmt.Sprintf("%d", s.Reliability.Timeout))
	line(w, "Success rate", successRate(s.Reliability.SuccessRate))
	if len(s.Reliability.Errors) > 0 {
		keys := make([]string, 0, len(s.Reliability.Errors))
		for k := range s.Reliability.Errors {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			line(w, "  "+util.Clip(k, 20), fmt.Sprintf("%d", s.Reliability.Errors[k]))
		}
	}

	section(w, "Latency (s)")
	line(w, "Mean", num(s.Latency.Mean, "%.3f"))
	line(w, "Median", num(s.Latency.Median, "%.3f"))
	line(w, "Min", num(s.Latency.Min, "%.3f"))
	line(w, "Max", num(s.Latency.Max, "%.3f"))
	line(w, "Std dev", num(s.Latency.StdDev, "%.3f"))
	line(w, "P90 / P95 / P99", strings.Join([]string{
		num(s.Latency.P90, "%.3f"), num(s.Latency.P95, "%.3f"), num(s.Latency.P99, "%.3f"),
	}, " / "))

	section(w, "Throughput")
	line(w, "Mean TPS", num(s.Throughput.MeanTPS, "%.2f"))
	line(w, "Peak TPS", num(s.Throughput.PeakTPS, "%.2f"))
	line(w, "Min TPS", num(s.Throughput.MinTPS, "%.2f"))
	line(w, "Aggregate TPS", num(s.Throughput.AggregateTPS, "%.2f"))
	line(w, "Requests/s", num(s.Throughput.RequestsPerSecond, "%.3f"))

	section(w, "Tokens")
	line(w, "Input", humanize.Comma(int64(s.Tokens.InputTokens)))
	line(w, "Output", humanize.Comma(int64(s.Tokens.OutputTokens)))
	line(w, "Total", humanize.Comma(int64(s.Tokens.TotalTokens)))
	if s.Tokens.EstimatedResults > 0 {
		line(w, "Estimated", fmt.Sprintf("%d results (whitespace count)", s.Tokens.EstimatedResults))
	}

	section(w, "Resources")
	line(w, "Samples", fmt.Sprintf("%d", s.Resources.SampleCount))
	line(w, "CPU avg / peak", pair(num(s.Resources.CPUPercentAvg, "%.1f%%"), num(s.Resources.CPUPercentPeak, "%.1f%%")))
	line(w, "Memory avg / peak", pair(bytesOf(s.Resources.MemoryUsedBytesAvg), bytesOf(s.Resources.MemoryUsedBytesPeak)))
	line(w, "Memory % avg / peak", pair(num(s.Resources.MemoryPercentAvg, "%.1f%%"), num(s.Resources.MemoryPercentPeak, "%.1f%%")))
	line(w, "Process CPU avg / peak", pair(num(s.Resources.ProcessCPUPercentAvg, "%.1f%%"), num(s.Resources.ProcessCPUPercentPeak, "%.1f%%")))
	line(w, "Process RSS avg / peak", pair(bytesOf(s.Resources.ProcessRSSBytesAvg), bytesOf(s.Resources.ProcessRSSBytesPeak)))
}

func section(w io.Writer, title string) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, sectionStyle.Render(title))
}

func line(w io.Writer, label, value string) {
	fmt.Fprintf(w, "  %s %s\n", labelStyle.Render(label+":"), value)
}

func num(v *float64, format string) string {
	if v == nil {
		return na
	}
	return fmt.Sprintf(format, *v)
}

func bytesOf(v *float64) string {
	if v == nil {
		return na
	}
	return humanize.Bytes(uint64(*v))
}

func pair(a, b string) string { return a + " / " + b }

func successRate(v *float64) string {
	if v == nil {
		return na
	}
	text := fmt.Sprintf("%.1f%%", *v*100)
	switch {
	case *v >= 0.95:
		return goodRate(text)
	case *v >= 0.8:
		return okRate(text)
	default:
		return badRate(text)
	}
}

