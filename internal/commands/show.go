// internal/commands/show.go
package lmperf

import (
	"github.com/spf13/cobra"

	"github.com/mwiater/lmperf/internal/appconfig"
)

// showCmd groups commands that display information.
var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Group commands for showing information",
}

// showConfigCmd implements the 'show config' command, which displays the current configuration settings.
var showConfigCmd = &cobra.Command{
	Use:   "config",
	Short: "Show config settings",
	Long:  `Show config settings ensuring that the config file is loaded properly and overridden by flags and LMPERF_ environment variables accordingly.`,
	Run: func(cmd *cobra.Command, args []string) {
		appconfig.ShowConfig(cmd.OutOrStdout(), *GetConfig())
	},
}

func init() {
	showCmd.AddCommand(showConfigCmd)
	rootCmd.AddCommand(showCmd)
}
