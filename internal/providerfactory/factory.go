// internal/providerfactory/factory.go
package providerfactory

import (
	"fmt"

	"github.com/mwiater/lmperf/internal/appconfig"
	"github.com/mwiater/lmperf/internal/logging"
	"github.com/mwiater/lmperf/internal/providers"
	"github.com/mwiater/lmperf/internal/providers/ollama"
	"github.com/mwiater/lmperf/internal/providers/openai"
)

// NewProvider selects and configures the endpoint adapter named by the
// configuration's endpoint type.
func NewProvider(cfg *appconfig.Config) (providers.Provider, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config provided to provider factory")
	}

	endpoint := cfg.EndpointURL()
	switch kind := cfg.ResolvedEndpointType(); kind {
	case appconfig.EndpointOpenAI:
		logging.LogDebug("provider: openai-compatible endpoint %s", endpoint)
		return openai.New(endpoint, cfg.APIKey), nil
	case appconfig.EndpointOllama:
		logging.LogDebug("provider: ollama endpoint %s", endpoint)
		return ollama.New(endpoint), nil
	default:
		return nil, fmt.Errorf("unsupported endpoint type %q", kind)
	}
}
