// internal/metrics/aggregator.go
package metrics

import (
	"sort"

	"github.com/samber/lo"

	"github.com/mwiater/lmperf/internal/session"
)

// Summarize derives a Report from a finished session. It is a pure function
// of the snapshot.
func Summarize(snap session.Snapshot) Report {
	wall := snap.WallClock().Seconds()
	report := Report{
		SessionID:        snap.ID,
		Mode:             string(snap.Config.Mode),
		State:            string(snap.State),
		AbortReason:      snap.AbortReason,
		StartedAt:        snap.StartedAt,
		EndedAt:          snap.EndedAt,
		WallClockSeconds: wall,
	}

	successes := lo.Filter(snap.Results, func(r session.RequestResult, _ int) bool {
		return r.Outcome == session.OutcomeSuccess
	})

	report.Latency = summarizeLatency(successes)
	report.Reliability = summarizeReliability(snap.Results)
	report.Tokens = summarizeTokens(successes)
	report.Throughput = summarizeThroughput(successes, len(snap.Results), report.Tokens.OutputTokens, wall)
	report.Resources = summarizeResources(snap.Samples)
	return report
}

func summarizeLatency(successes []session.RequestResult) LatencyStats {
	latencies := lo.Map(successes, func(r session.RequestResult, _ int) float64 {
		return r.Latency.Seconds()
	})
	stats := LatencyStats{Count: len(latencies)}
	if len(latencies) == 0 {
		return stats
	}

	var rs RunningStat
	for _, v := range latencies {
		updateRunningStat(&rs, v)
	}
	sorted := append([]float64(nil), latencies...)
	sort.Float64s(sorted)

	stats.Mean = lo.ToPtr(rs.Mean)
	stats.Min = lo.ToPtr(rs.Min)
	stats.Max = lo.ToPtr(rs.Max)
	stats.StdDev = lo.ToPtr(rs.PopulationStdDev())
	stats.Median = lo.ToPtr(median(sorted))
	stats.P90 = lo.ToPtr(nearestRank(sorted, 90))
	stats.P95 = lo.ToPtr(nearestRank(sorted, 95))
	stats.P99 = lo.ToPtr(nearestRank(sorted, 99))
	return stats
}

func summarizeThroughput(successes []session.RequestResult, issued, outputTokens int, wall float64) ThroughputStats {
	var stats ThroughputStats

	var rs RunningStat
	for _, r := range successes {
		if r.TokensPerSecond != nil {
			updateRunningStat(&rs, *r.TokensPerSecond)
		}
	}
	if rs.Count > 0 {
		stats.MeanTPS = lo.ToPtr(rs.Mean)
		stats.PeakTPS = lo.ToPtr(rs.Max)
		stats.MinTPS = lo.ToPtr(rs.Min)
	}
	if wall > 0 {
		if len(successes) > 0 {
			stats.AggregateTPS = lo.ToPtr(float64(outputTokens) / wall)
		}
		if issued > 0 {
			stats.RequestsPerSecond = lo.ToPtr(float64(issued) / wall)
		}
	}
	return stats
}

func summarizeReliability(results []session.RequestResult) ReliabilityStats {
	counts := lo.CountValuesBy(results, func(r session.RequestResult) session.Outcome { return r.Outcome })
	stats := ReliabilityStats{
		Issued:  len(results),
		Success: counts[session.OutcomeSuccess],
		Failure: counts[session.OutcomeFailure],
		Timeout: counts[session.OutcomeTimeout],
		Errors:  map[string]int{},
	}
	for _, r := range results {
		if r.Outcome != session.OutcomeSuccess {
			stats.Errors[r.Error]++
		}
	}
	if stats.Issued > 0 {
		stats.SuccessRate = lo.ToPtr(float64(stats.Success) / float64(stats.Issued))
	}
	return stats
}

func summarizeTokens(successes []session.RequestResult) TokenStats {
	stats := TokenStats{
		InputTokens:  lo.SumBy(successes, func(r session.RequestResult) int { return r.InputTokens }),
		OutputTokens: lo.SumBy(successes, func(r session.RequestResult) int { return r.OutputTokens }),
		EstimatedResults: lo.CountBy(successes, func(r session.RequestResult) bool {
			return r.TokensEstimated
		}),
	}
	stats.TotalTokens = stats.InputTokens + stats.OutputTokens
	return stats
}

func summarizeResources(samples []session.ResourceSample) ResourceStats {
	stats := ResourceStats{SampleCount: len(samples)}
	if len(samples) == 0 {
		return stats
	}

	var cpu, memUsed, memPct, procCPU, procRSS RunningStat
	for _, s := range samples {
		updateRunningStat(&cpu, s.CPUPercent)
		updateRunningStat(&memUsed, float64(s.MemoryUsedBytes))
		updateRunningStat(&memPct, s.MemoryPercent)
		updateRunningStat(&procCPU, s.ProcessCPUPercent)
		updateRunningStat(&procRSS, float64(s.ProcessRSSBytes))
	}

	stats.CPUPercentAvg, stats.CPUPercentPeak = lo.ToPtr(cpu.Mean), lo.ToPtr(cpu.Max)
	stats.MemoryUsedBytesAvg, stats.MemoryUsedBytesPeak = lo.ToPtr(memUsed.Mean), lo.ToPtr(memUsed.Max)
	stats.MemoryPercentAvg, stats.MemoryPercentPeak = lo.ToPtr(memPct.Mean), lo.ToPtr(memPct.Max)
	stats.ProcessCPUPercentAvg, stats.ProcessCPUPercentPeak = lo.ToPtr(procCPU.Mean), lo.ToPtr(procCPU.Max)
	stats.ProcessRSSBytesAvg, stats.ProcessRSSBytesPeak = lo.ToPtr(procRSS.Mean), lo.ToPtr(procRSS.Max)
	return stats
}

// updateRunningStat updates a single running statistic using Welford's online algorithm.
func updateRunningStat(rs *RunningStat, value float64) {
	rs.Count++
	if rs.Count == 1 {
		rs.Min = value
		rs.Max = value
	} else {
		if value < rs.Min {
			rs.Min = value
		}
		if value > rs.Max {
			rs.Max = value
		}
	}

	delta := value - rs.Mean
	rs.Mean += delta / float64(rs.Count)
	delta2 := value - rs.Mean
	rs.M2 += delta * delta2
}
