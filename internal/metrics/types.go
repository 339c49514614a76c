// internal/metrics/types.go
package metrics

import (
	"math"
	"time"
)

// Report is the summary derived from one session snapshot. Pointer fields
// are nil when the statistic is undefined for the snapshot.
type Report struct {
	SessionID        string           `json:"session_id"`
	Mode             string           `json:"mode"`
	State            string           `json:"state"`
	AbortReason      string           `json:"abort_reason,omitempty"`
	StartedAt        time.Time        `json:"started_at"`
	EndedAt          time.Time        `json:"ended_at"`
	WallClockSeconds float64          `json:"wall_clock_seconds"`
	Latency          LatencyStats     `json:"latency"`
	Throughput       ThroughputStats  `json:"throughput"`
	Reliability      ReliabilityStats `json:"reliability"`
	Tokens           TokenStats       `json:"tokens"`
	Resources        ResourceStats    `json:"resources"`
}

// LatencyStats covers successful requests only, in seconds.
type LatencyStats struct {
	Count  int      `json:"count"`
	Mean   *float64 `json:"mean"`
	Median *float64 `json:"median"`
	Min    *float64 `json:"min"`
	Max    *float64 `json:"max"`
	StdDev *float64 `json:"std_dev"`
	P90    *float64 `json:"p90"`
	P95    *float64 `json:"p95"`
	P99    *float64 `json:"p99"`
}

// ThroughputStats holds per-request and session-wide token rates.
//
// MeanTPS averages the per-request rates; AggregateTPS divides all success
// output tokens by the session wall clock. Under concurrency the two differ.
type ThroughputStats struct {
	MeanTPS           *float64 `json:"mean_tps"`
	PeakTPS           *float64 `json:"peak_tps"`
	MinTPS            *float64 `json:"min_tps"`
	AggregateTPS      *float64 `json:"aggregate_tps"`
	RequestsPerSecond *float64 `json:"requests_per_second"`
}

// ReliabilityStats counts outcomes. Success+Failure+Timeout == Issued.
type ReliabilityStats struct {
	Issued      int            `json:"issued"`
	Success     int            `json:"success"`
	Failure     int            `json:"failure"`
	Timeout     int            `json:"timeout"`
	SuccessRate *float64       `json:"success_rate"`
	Errors      map[string]int `json:"errors"`
}

// TokenStats sums tokens over successful requests.
type TokenStats struct {
	InputTokens      int `json:"input_tokens"`
	OutputTokens     int `json:"output_tokens"`
	TotalTokens      int `json:"total_tokens"`
	EstimatedResults int `json:"estimated_results"`
}

// ResourceStats summarizes the sampler readings.
type ResourceStats struct {
	SampleCount           int      `json:"sample_count"`
	CPUPercentAvg         *float64 `json:"cpu_percent_avg"`
	CPUPercentPeak        *float64 `json:"cpu_percent_peak"`
	MemoryUsedBytesAvg    *float64 `json:"memory_used_bytes_avg"`
	MemoryUsedBytesPeak   *float64 `json:"memory_used_bytes_peak"`
	MemoryPercentAvg      *float64 `json:"memory_percent_avg"`
	MemoryPercentPeak     *float64 `json:"memory_percent_peak"`
	ProcessCPUPercentAvg  *float64 `json:"process_cpu_percent_avg"`
	ProcessCPUPercentPeak *float64 `json:"process_cpu_percent_peak"`
	ProcessRSSBytesAvg    *float64 `json:"process_rss_bytes_avg"`
	ProcessRSSBytesPeak   *float64 `json:"process_rss_bytes_peak"`
}

// RunningStat holds the necessary values for online calculation of mean, variance, and stddev.
type RunningStat struct {
	Count int64
	Mean  float64
	M2    float64 // Sum of squares of differences from the current mean
	Min   float64
	Max   float64
}

// PopulationStdDev returns sqrt(M2/Count), or 0 with no observations.
func (rs RunningStat) PopulationStdDev() float64 {
	if rs.Count == 0 {
		return 0
	}
	return math.Sqrt(rs.M2 / float64(rs.Count))
}
