// internal/commands/root.go
package lmperf

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mwiater/lmperf/internal/appconfig"
	"github.com/mwiater/lmperf/internal/logging"
)

var (
	cfgFile       string
	currentConfig *appconfig.Config
	appVersion    = "dev"
	appCommit     = "none"
	appDate       = "unknown"
)

// configKeys are the flags that map one-to-one onto config keys.
var configKeys = []string{
	"endpoint", "endpointType", "model", "timeout", "logFile", "debug", "outputDir", "historyDB",
	"concurrency", "requests", "duration", "prompt", "promptsFile", "maxTokens", "temperature",
	"pacing", "sampleInterval", "output", "csv", "tui", "skipProbe",
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:           "lmperf",
	Short:         "lmperf: load and latency benchmarks for local LLM inference endpoints",
	SilenceUsage:  true,
	SilenceErrors: false,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		v := viper.New()
		bindFlags(v, cmd)

		cfg, err := appconfig.Load(v, cfgFile)
		if err != nil {
			return err
		}
		currentConfig = cfg

		if err := logging.Init(logging.Options{
			Path:  cfg.LogFilePath(),
			Quiet: cfg.TUI,
			Debug: cfg.Debug,
		}); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		if cfg.ConfigPath != "" {
			logging.LogDebug("config loaded from %s", cfg.ConfigPath)
		}
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", appVersion, appCommit, appDate)

	err := rootCmd.Execute()
	_ = logging.Close()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&cfgFile, "config", "c", "", "config file, JSON, YAML or TOML (default "+appconfig.DefaultConfigPath+" when present)")
	pf.String("endpoint", "", "inference endpoint base URL (default "+appconfig.DefaultEndpoint+")")
	pf.String("endpointType", "", "endpoint API flavor: openai or ollama")
	pf.String("model", "", "model id sent with each request")
	pf.Int("timeout", 0, "per-request timeout in seconds")
	pf.String("logFile", "", "path to the log file")
	pf.Bool("debug", false, "enable debug logging")
	pf.String("outputDir", "", "directory for JSON artifacts")
	pf.String("historyDB", "", "SQLite database recording every run (disabled when empty)")
}

// bindFlags binds every known flag visible to cmd onto v. Only flags the user
// set take precedence over environment and file values.
func bindFlags(v *viper.Viper, cmd *cobra.Command) {
	for _, key := range configKeys {
		if flag := cmd.Flags().Lookup(key); flag != nil {
			_ = v.BindPFlag(key, flag)
		}
	}
}

// GetConfig returns the loaded application configuration for other packages.
func GetConfig() *appconfig.Config {
	return currentConfig
}

// SetVersionInfo allows the main package to inject build-time variables.
func SetVersionInfo(version, commit, date string) {
	appVersion = version
	appCommit = commit
	appDate = date
}
