// internal/commands/models.go
package lmperf

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mwiater/lmperf/internal/providerfactory"
)

// modelsCmd groups model-related commands.
var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "Group commands for endpoint models",
}

// listModelsCmd implements 'models list', which prints the models the endpoint reports.
var listModelsCmd = &cobra.Command{
	Use:   "list",
	Short: "List the models served by the endpoint",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()
		provider, err := providerfactory.NewProvider(cfg)
		if err != nil {
			return err
		}
		defer provider.Close()

		ctx, cancel := context.WithTimeout(cmd.Context(), cfg.RequestTimeout())
		defer cancel()
		models, err := provider.ListModels(ctx)
		if err != nil {
			return fmt.Errorf("failed to list models at %s: %w", cfg.EndpointURL(), err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Models at %s (%s):\n", cfg.EndpointURL(), provider.Name())
		if len(models) == 0 {
			fmt.Fprintln(out, "  (none)")
		}
		for _, m := range models {
			fmt.Fprintf(out, "  - %s\n", m)
		}
		return nil
	},
}

func init() {
	modelsCmd.AddCommand(listModelsCmd)
	rootCmd.AddCommand(modelsCmd)
}
