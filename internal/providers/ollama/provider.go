// internal/providers/ollama/provider.go
// Package ollama provides a Provider backed by Ollama's native HTTP API.
package ollama

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/mwiater/lmperf/internal/logging"
	"github.com/mwiater/lmperf/internal/providers"
	"github.com/mwiater/lmperf/internal/util"
)

// maxDebugPayload bounds response bodies written to the debug log.
const maxDebugPayload = 2048

// Provider implements providers.Provider using /api/tags and /api/chat.
type Provider struct {
	client  *http.Client
	baseURL string
}

// New constructs a Provider for the Ollama base URL (for example http://localhost:11434).
func New(baseURL string) *Provider {
	return &Provider{
		client:  providers.NewHTTPClient(),
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
	}
}

// Name implements providers.Provider.
func (p *Provider) Name() string { return "ollama" }

// tagsResponse defines the structure of the response from the /api/tags endpoint.
type tagsResponse struct {
	Models []struct {
		Name  string `json:"name"`
		Model string `json:"model"`
	} `json:"models"`
}

// chatResponse defines the structure of a non-streaming /api/chat response.
type chatResponse struct {
	Model   string `json:"model"`
	Message struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"message"`
	Done               bool  `json:"done"`
	TotalDuration      int64 `json:"total_duration"`
	LoadDuration       int64 `json:"load_duration"`
	PromptEvalCount    *int  `json:"prompt_eval_count"`
	PromptEvalDuration int64 `json:"prompt_eval_duration"`
	EvalCount          *int  `json:"eval_count"`
	EvalDuration       int64 `json:"eval_duration"`
}

// ListModels returns the models installed on the host.
func (p *Provider) ListModels(ctx context.Context) ([]string, error) {
	endpoint := p.baseURL + "/api/tags"
	logging.LogRequest("LMPERF->LLM", p.baseURL, "", -1, map[string]string{"method": http.MethodGet, "url": endpoint})

	body, err := providers.Do(ctx, p.client, http.MethodGet, endpoint, "", nil)
	if err != nil {
		return nil, err
	}
	if logging.DebugEnabled() {
		logging.LogDebug("LLM->LMPERF host=%s payload=%s", p.baseURL, util.Clip(util.OneLine(string(body)), maxDebugPayload))
	}

	var tags tagsResponse
	if err := json.Unmarshal(body, &tags); err != nil {
		return nil, &providers.DecodeError{Err: err}
	}

	names := make([]string, 0, len(tags.Models))
	for _, m := range tags.Models {
		name := strings.TrimSpace(m.Name)
		if name == "" {
			name = strings.TrimSpace(m.Model)
		}
		if name != "" {
			names = append(names, name)
		}
	}
	return names, nil
}

// Complete issues a non-streaming chat request.
func (p *Provider) Complete(ctx context.Context, req providers.CompletionRequest) (providers.Completion, error) {
	payload := map[string]any{
		"model":    req.Model,
		"messages": req.Messages(),
		"options":  buildOptions(req),
		"stream":   false,
	}
	endpoint := p.baseURL + "/api/chat"
	logging.LogDebug("LMPERF->LLM host=%s model=%s seq=%d num_predict=%d", p.baseURL, req.Model, req.Sequence, req.MaxTokens)

	body, err := providers.Do(ctx, p.client, http.MethodPost, endpoint, "", payload)
	if err != nil {
		return providers.Completion{}, err
	}
	logging.LogDebug("LLM->LMPERF host=%s model=%s seq=%d bytes=%d", p.baseURL, req.Model, req.Sequence, len(body))

	var result chatResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return providers.Completion{}, &providers.DecodeError{Err: err}
	}
	if !result.Done && result.Message.Content == "" {
		return providers.Completion{}, &providers.DecodeError{Err: fmt.Errorf("chat response incomplete")}
	}

	modelName := result.Model
	if modelName == "" {
		modelName = req.Model
	}
	out := providers.Completion{Model: modelName, Content: result.Message.Content}
	if result.PromptEvalCount != nil || result.EvalCount != nil {
		usage := &providers.Usage{}
		if result.PromptEvalCount != nil {
			usage.PromptTokens = *result.PromptEvalCount
		}
		if result.EvalCount != nil {
			usage.CompletionTokens = *result.EvalCount
		}
		usage.TotalTokens = usage.PromptTokens + usage.CompletionTokens
		out.Usage = usage
	}
	return out, nil
}

func buildOptions(req providers.CompletionRequest) map[string]any {
	options := map[string]any{
		"temperature": req.Temperature,
	}
	if req.MaxTokens > 0 {
		options["num_predict"] = req.MaxTokens
	}
	return options
}

// Close releases any resources held by the provider.
func (p *Provider) Close() error {
	p.client.CloseIdleConnections()
	return nil
}
