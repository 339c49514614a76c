// internal/commands/history.go
package lmperf

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/mwiater/lmperf/internal/history"
)

var historyLimit int

// historyCmd groups commands for the run history store.
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Group commands for the run history",
}

// historyListCmd implements 'history list', which prints recent runs.
var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List previous runs recorded in the history database",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := strings.TrimSpace(GetConfig().HistoryDB)
		if path == "" {
			return errors.New("no history database configured (set --historyDB or historyDB in the config file)")
		}
		store, err := history.Open(path)
		if err != nil {
			return err
		}
		defer store.Close()

		runs, err := store.List(cmd.Context(), historyLimit)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(runs) == 0 {
			fmt.Fprintln(out, "No runs recorded yet.")
			return nil
		}

		t := table.New().
			Border(lipgloss.NormalBorder()).
			Headers("STARTED", "MODE", "MODEL", "STATE", "REQ", "OK", "FAIL", "TIMEOUT", "MEAN LAT", "AGG TPS", "SESSION")
		for _, r := range runs {
			t.Row(
				humanize.Time(r.StartedAt),
				r.Mode,
				r.Model,
				r.State,
				fmt.Sprintf("%d", r.Issued),
				fmt.Sprintf("%d", r.Success),
				fmt.Sprintf("%d", r.Failure),
				fmt.Sprintf("%d", r.Timeout),
				optional(r.MeanLatency, "%.3fs"),
				optional(r.AggregateTPS, "%.2f"),
				shortID(r.ID),
			)
		}
		fmt.Fprintln(out, t.String())
		return nil
	},
}

func init() {
	historyListCmd.Flags().IntVar(&historyLimit, "limit", 20, "maximum number of runs to show (0 for all)")
	historyCmd.AddCommand(historyListCmd)
	rootCmd.AddCommand(historyCmd)
}

func optional(v *float64, format string) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf(format, *v)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
