// internal/benchmark/plan.go
package benchmark

import (
	"fmt"

	"github.com/mwiater/lmperf/internal/appconfig"
	"github.com/mwiater/lmperf/internal/session"
)

// SessionConfig converts a mode-resolved application config into the
// snapshot stored with a session.
func SessionConfig(cfg appconfig.Config, mode session.Mode) session.Config {
	return session.Config{
		Mode:           mode,
		Endpoint:       cfg.EndpointURL(),
		EndpointType:   cfg.ResolvedEndpointType(),
		Model:          cfg.ModelName(),
		Concurrency:    cfg.Concurrency,
		Requests:       cfg.Requests,
		Duration:       cfg.TestDuration(),
		Timeout:        cfg.RequestTimeout(),
		SampleInterval: cfg.SampleInterval(),
		Pacing:         cfg.PacingInterval(),
		MaxTokens:      cfg.MaxTokens,
		Temperature:    cfg.GenerationTemperature(),
	}
}

// BuildPlan resolves prompts and mode defaults into a Plan. Prompts are
// cycled when more requests are needed than prompts exist.
func BuildPlan(cfg appconfig.Config, mode session.Mode) (Plan, error) {
	cfg = cfg.ForMode(string(mode))
	prompts, system, err := cfg.ResolvePrompts()
	if err != nil {
		return Plan{}, fmt.Errorf("%w: %w", ErrSetup, err)
	}

	specFor := func(seq int) session.RequestSpec {
		return session.RequestSpec{
			Prompt:       prompts[seq%len(prompts)],
			SystemPrompt: system,
			MaxTokens:    cfg.MaxTokens,
			Temperature:  cfg.GenerationTemperature(),
		}
	}

	plan := Plan{Config: SessionConfig(cfg, mode)}
	if mode != session.ModeStress {
		plan.Config.Duration = 0
	}
	switch mode {
	case session.ModeSingle:
		plan.Config.Concurrency = 1
		plan.Config.Requests = 1
		plan.Specs = []session.RequestSpec{specFor(0)}
	case session.ModeBatch, session.ModeConcurrent:
		if mode == session.ModeBatch {
			plan.Config.Concurrency = 1
		}
		plan.Specs = make([]session.RequestSpec, cfg.Requests)
		for i := range plan.Specs {
			plan.Specs[i] = specFor(i)
		}
	case session.ModeStress:
		plan.Config.Requests = 0
		plan.Next = specFor
	default:
		return Plan{}, fmt.Errorf("%w: unknown mode %q", ErrSetup, mode)
	}
	return plan, nil
}
