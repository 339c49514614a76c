// internal/benchmark/command.go
package benchmark

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/mwiater/lmperf/internal/appconfig"
	"github.com/mwiater/lmperf/internal/executor"
	"github.com/mwiater/lmperf/internal/history"
	"github.com/mwiater/lmperf/internal/logging"
	"github.com/mwiater/lmperf/internal/metrics"
	"github.com/mwiater/lmperf/internal/providerfactory"
	"github.com/mwiater/lmperf/internal/providers"
	"github.com/mwiater/lmperf/internal/report"
	"github.com/mwiater/lmperf/internal/sampler"
	"github.com/mwiater/lmperf/internal/session"
	"github.com/mwiater/lmperf/internal/tui"
)

// ModeComprehensive runs every mode in sequence, one session each.
const ModeComprehensive = "comprehensive"

var (
	newProvider    = providerfactory.NewProvider
	newSystemProbe = func() (sampler.Probe, error) { return sampler.NewSystemProbe(0) }
	clock          = time.Now
)

// ModeRun is what one finished session left behind.
type ModeRun struct {
	Snapshot     session.Snapshot
	Report       metrics.Report
	ArtifactPath string
}

// ResolveModes expands a mode argument into the sessions to run.
func ResolveModes(mode string) ([]session.Mode, error) {
	mode = strings.ToLower(strings.TrimSpace(mode))
	if mode == ModeComprehensive {
		return []session.Mode{session.ModeSingle, session.ModeBatch, session.ModeConcurrent, session.ModeStress}, nil
	}
	m, ok := session.ParseMode(mode)
	if !ok {
		return nil, fmt.Errorf("unknown mode %q (expected single, batch, concurrent, stress or %s)", mode, ModeComprehensive)
	}
	return []session.Mode{m}, nil
}

// RunMode is the CLI entry point for `run <mode>`. Each session is written
// as a JSON artifact, rendered to out and recorded in the history store.
// An interrupt keeps the partial session and skips the remaining modes.
func RunMode(ctx context.Context, cfg *appconfig.Config, mode string, out io.Writer) ([]ModeRun, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	modes, err := ResolveModes(mode)
	if err != nil {
		return nil, err
	}

	provider, err := newProvider(cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSetup, err)
	}
	defer provider.Close()

	exec := executor.New(provider, cfg.ModelName(), cfg.RequestTimeout())

	probe, err := newSystemProbe()
	if err != nil {
		logging.LogEvent("resource sampling disabled: %v", err)
	}

	var store *history.Store
	if path := strings.TrimSpace(cfg.HistoryDB); path != "" {
		if store, err = history.Open(path); err != nil {
			logging.LogEvent("run history disabled: %v", err)
			store = nil
		} else {
			defer store.Close()
		}
	}

	runner := &modeRunner{
		cfg:           cfg,
		provider:      provider,
		exec:          exec,
		probe:         probe,
		store:         store,
		out:           out,
		comprehensive: len(modes) > 1,
	}

	var runs []ModeRun
	for _, m := range modes {
		run, err := runner.run(ctx, m)
		if err != nil && (errors.Is(err, ErrSetup) || !errors.Is(err, context.Canceled)) {
			return runs, err
		}
		runs = append(runs, run)
		if err != nil {
			logging.LogEvent("interrupted during %s mode; partial results saved to %s", m, run.ArtifactPath)
			return runs, err
		}
	}
	return runs, nil
}

type modeRunner struct {
	cfg           *appconfig.Config
	provider      providers.Provider
	exec          Executor
	probe         sampler.Probe
	store         *history.Store
	out           io.Writer
	comprehensive bool
}

func (r *modeRunner) run(ctx context.Context, mode session.Mode) (ModeRun, error) {
	plan, err := BuildPlan(*r.cfg, mode)
	if err != nil {
		return ModeRun{}, err
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var opts []Option
	if !r.cfg.SkipProbe {
		timeout := r.cfg.RequestTimeout()
		opts = append(opts, WithProber(ProbeFunc(func(ctx context.Context) error {
			ctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()
			models, err := r.provider.ListModels(ctx)
			if err != nil {
				return err
			}
			logging.LogDebug("endpoint %s reports %d model(s)", plan.Config.Endpoint, len(models))
			return nil
		})))
	}
	if r.probe != nil {
		opts = append(opts, WithSampler(sampler.New(r.probe, plan.Config.SampleInterval)))
	}

	var progress *tui.Progress
	if r.cfg.TUI {
		title := fmt.Sprintf("lmperf %s: %s @ %s", mode, plan.Config.Model, plan.Config.Endpoint)
		progress = tui.NewProgress(title, len(plan.Specs), plan.Config.Duration, cancel, r.out)
		progress.Start()
		opts = append(opts, WithObserver(progress.Observe))
	} else {
		opts = append(opts, WithObserver(logProgress(mode, len(plan.Specs))))
	}

	snap, runErr := NewController(r.exec, opts...).Run(runCtx, plan)
	if progress != nil {
		if err := progress.Finish(); err != nil {
			logging.LogEvent("progress view: %v", err)
		}
	}
	// A setup abort, interrupted or not, leaves nothing to save.
	if runErr != nil && (errors.Is(runErr, ErrSetup) || !errors.Is(runErr, context.Canceled)) {
		return ModeRun{}, runErr
	}
	// An interrupt from the progress view cancels only runCtx.
	if runErr == nil && runCtx.Err() != nil {
		runErr = runCtx.Err()
	}

	summary := metrics.Summarize(snap)
	artifact := report.NewArtifact(snap, summary, clock())
	path := r.artifactPath(mode, snap.StartedAt)
	if err := report.Write(path, artifact); err != nil {
		return ModeRun{}, err
	}
	logging.LogEvent("artifact written to %s", path)
	if r.cfg.CSV {
		csvPath := report.CSVPath(path)
		if err := report.WriteCSV(csvPath, artifact); err != nil {
			return ModeRun{}, fmt.Errorf("failed to write csv: %w", err)
		}
		logging.LogEvent("csv written to %s", csvPath)
	}

	report.Render(r.out, artifact)
	fmt.Fprintf(r.out, "\nResults saved to %s\n", path)

	if r.store != nil {
		if err := r.store.Record(context.WithoutCancel(ctx), snap, summary, path); err != nil {
			logging.LogEvent("failed to record history: %v", err)
		}
	}

	rel := summary.Reliability
	logging.LogMetricsEvent("session=%s mode=%s issued=%d success=%d failure=%d timeout=%d wall=%.3fs aggregate_tps=%s",
		snap.ID, mode, rel.Issued, rel.Success, rel.Failure, rel.Timeout, summary.WallClockSeconds, formatOptional(summary.Throughput.AggregateTPS))

	return ModeRun{Snapshot: snap, Report: summary, ArtifactPath: path}, runErr
}

// artifactPath honours --output for a single mode. Comprehensive runs
// suffix the mode so sessions do not overwrite each other.
func (r *modeRunner) artifactPath(mode session.Mode, startedAt time.Time) string {
	output := strings.TrimSpace(r.cfg.OutputFile)
	if output == "" {
		return filepath.Join(r.cfg.OutputDirectory(), report.FileName(string(mode), startedAt))
	}
	if r.comprehensive {
		ext := filepath.Ext(output)
		return strings.TrimSuffix(output, ext) + "_" + string(mode) + ext
	}
	return output
}

func logProgress(mode session.Mode, total int) Observer {
	return func(res session.RequestResult) {
		label := fmt.Sprintf("%d", res.Sequence+1)
		if total > 0 {
			label = fmt.Sprintf("%d/%d", res.Sequence+1, total)
		}
		switch res.Outcome {
		case session.OutcomeSuccess:
			logging.LogEvent("[%s] request %s: %s in %s, %d tokens, %s tok/s",
				mode, label, res.Outcome, res.Latency.Round(time.Millisecond), res.OutputTokens, formatOptional(res.TokensPerSecond))
		default:
			logging.LogEvent("[%s] request %s: %s (%s)", mode, label, res.Outcome, res.Error)
		}
	}
}

func formatOptional(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.2f", *v)
}
