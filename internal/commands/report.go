// internal/commands/report.go
package lmperf

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mwiater/lmperf/internal/report"
)

// reportCmd groups commands that work on saved artifacts.
var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Group commands for saved result artifacts",
}

// reportShowCmd implements 'report show', which validates and renders an artifact.
var reportShowCmd = &cobra.Command{
	Use:   "show <artifact.json>",
	Short: "Validate a result artifact and print its report",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := report.Read(args[0])
		if err != nil {
			return err
		}
		report.Render(cmd.OutOrStdout(), a)
		return nil
	},
}

// reportCSVCmd implements 'report csv', which exports per-request rows.
var reportCSVCmd = &cobra.Command{
	Use:   "csv <artifact.json> [out.csv]",
	Short: "Export the per-request rows of an artifact as CSV",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := report.Read(args[0])
		if err != nil {
			return err
		}
		out := report.CSVPath(args[0])
		if len(args) == 2 {
			out = args[1]
		}
		if err := report.WriteCSV(out, a); err != nil {
			return fmt.Errorf("failed to write csv: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d rows to %s\n", len(a.Requests), out)
		return nil
	},
}

func init() {
	reportCmd.AddCommand(reportShowCmd)
	reportCmd.AddCommand(reportCSVCmd)
	rootCmd.AddCommand(reportCmd)
}
