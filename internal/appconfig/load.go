// internal/appconfig/load.go
package appconfig

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for environment variable overrides (LMPERF_ENDPOINT, ...).
const EnvPrefix = "LMPERF"

// SetDefaults registers every config key on v so that environment variables
// and Unmarshal see them even when no config file sets them.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("endpoint", DefaultEndpoint)
	v.SetDefault("endpointType", EndpointOpenAI)
	v.SetDefault("apiKey", "")
	v.SetDefault("model", "")
	v.SetDefault("mode", "single")
	v.SetDefault("concurrency", 0)
	v.SetDefault("requests", 0)
	v.SetDefault("duration", 0)
	v.SetDefault("timeout", int(defaultRequestTimeout.Seconds()))
	v.SetDefault("sampleInterval", int(defaultSampleInterval.Milliseconds()))
	v.SetDefault("pacing", 0)
	v.SetDefault("maxTokens", 0)
	v.SetDefault("temperature", defaultTemperature)
	v.SetDefault("systemPrompt", "")
	v.SetDefault("prompt", "")
	v.SetDefault("promptsFile", "")
	v.SetDefault("outputDir", defaultOutputDir)
	v.SetDefault("output", "")
	v.SetDefault("csv", false)
	v.SetDefault("historyDB", "")
	v.SetDefault("logFile", "lmperf.log")
	v.SetDefault("debug", false)
	v.SetDefault("skipProbe", false)
	v.SetDefault("tui", false)
}

// Load reads configuration through v. An explicit path must exist; with an
// empty path the default location is used if present. Environment variables
// with the LMPERF_ prefix and any flags already bound to v take precedence
// over the file.
func Load(v *viper.Viper, path string) (*Config, error) {
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	explicit := strings.TrimSpace(path) != ""
	if !explicit {
		path = DefaultConfigPath
	}
	if _, err := os.Stat(path); err == nil || explicit {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to stat config file %s: %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.ConfigPath = v.ConfigFileUsed()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}
