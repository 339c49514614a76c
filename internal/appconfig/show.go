package appconfig

import (
	"fmt"
	"io"

	"github.com/k0kubun/pp"
)

// ShowConfig prints the current configuration summary.
func ShowConfig(out io.Writer, cfg Config) {
	if cfg.ConfigPath == "" {
		fmt.Fprintln(out, "No config file loaded (using defaults).")
	} else {
		fmt.Fprintf(out, "Config file: %s\n\n", cfg.ConfigPath)
	}

	fmt.Fprintln(out, "Current configuration:")
	fmt.Fprintf(out, "  Endpoint:        %s\n", cfg.EndpointURL())
	fmt.Fprintf(out, "  Endpoint Type:   %s\n", cfg.ResolvedEndpointType())
	fmt.Fprintf(out, "  Model:           %s\n", cfg.ModelName())
	fmt.Fprintf(out, "  Request Timeout: %s\n", cfg.RequestTimeout())
	fmt.Fprintf(out, "  Sample Interval: %s\n", cfg.SampleInterval())
	fmt.Fprintf(out, "  Temperature:     %.2f\n", cfg.GenerationTemperature())
	fmt.Fprintf(out, "  Output Dir:      %s\n", cfg.OutputDirectory())
	fmt.Fprintf(out, "  Log File:        %s\n", cfg.LogFilePath())
	fmt.Fprintf(out, "  Debug:           %v\n", cfg.Debug)
	if cfg.HistoryDB != "" {
		fmt.Fprintf(out, "  History DB:      %s\n", cfg.HistoryDB)
	}

	fmt.Fprintln(out, "\nMode defaults:")
	for _, mode := range []string{"single", "batch", "concurrent", "stress"} {
		resolved := cfg.ForMode(mode)
		fmt.Fprintf(out, "  %-11s concurrency=%d requests=%d maxTokens=%d duration=%s pacing=%s\n",
			mode, resolved.Concurrency, resolved.Requests, resolved.MaxTokens,
			resolved.TestDuration(), resolved.PacingInterval())
	}

	if cfg.Debug {
		fmt.Fprintln(out)
		pp.Fprintln(out, cfg)
	}
}
