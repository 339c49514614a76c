// internal/commands/run.go
package lmperf

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mwiater/lmperf/internal/benchmark"
)

var runMode = benchmark.RunMode

// runCmd implements 'run <mode>', which executes one benchmark session per mode.
var runCmd = &cobra.Command{
	Use:   "run [single|batch|concurrent|stress|comprehensive]",
	Short: "Run a benchmark session against the endpoint",
	Long: `The 'run' command drives the configured endpoint in one of four load patterns:
single (one request), batch (N sequential requests), concurrent (N requests over C workers)
and stress (C workers for a fixed duration). 'comprehensive' runs all four in sequence.
Each session is written as a JSON artifact and summarized on the console.
Ctrl+C stops dispatch and keeps the partial results.`,
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{"single", "batch", "concurrent", "stress", benchmark.ModeComprehensive},
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()
		mode := cfg.Mode
		if len(args) == 1 {
			mode = args[0]
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		runs, err := runMode(ctx, cfg, mode, cmd.OutOrStdout())
		if errors.Is(err, context.Canceled) {
			fmt.Fprintf(cmd.OutOrStdout(), "\nInterrupted: %d session(s) saved with partial results.\n", len(runs))
			return nil
		}
		return err
	},
}

func init() {
	f := runCmd.Flags()
	f.Int("concurrency", 0, "number of workers (concurrent and stress)")
	f.Int("requests", 0, "number of requests (batch and concurrent)")
	f.Int("duration", 0, "stress duration in seconds")
	f.String("prompt", "", "use a single prompt for every request")
	f.String("promptsFile", "", "YAML file with a prompt list")
	f.Int("maxTokens", 0, "maximum completion tokens per request")
	f.Float64("temperature", 0, "sampling temperature (default 0.7)")
	f.Int("pacing", 0, "minimum milliseconds between dispatches; negative disables")
	f.Int("sampleInterval", 0, "resource sampling interval in milliseconds")
	f.String("output", "", "artifact path (default <outputDir>/lmperf_<mode>_<timestamp>.json)")
	f.Bool("csv", false, "also write per-request rows as CSV next to the artifact")
	f.Bool("tui", false, "show a live progress view")
	f.Bool("skipProbe", false, "skip the endpoint reachability check")

	rootCmd.AddCommand(runCmd)
}
