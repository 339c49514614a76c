// internal/providers/openai/provider.go
// Package openai provides a Provider backed by an OpenAI-compatible HTTP API
// such as LM Studio or llama.cpp's server.
package openai

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

// Provider implements providers.Provider using /v1/models and /v1/chat/completions.
type Provider struct {
	client  *http.Client
	baseURL string
	apiKey  string
}

// New constructs a Provider for the endpoint base URL (for example http://localhost:1234).
func New(baseURL, apiKey string) *Provider {
	return &Provider{
		client:  providers.NewHTTPClient(),
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		apiKey:  strings.TrimSpace(apiKey),
	}
}

// Name implements providers.Provider.
func (p *Provider) Name() string { return "openai" }

type modelsResponse struct {
	Data   []model `json:"data"`
	Models []model `json:"models"`
}

type model struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Model string `json:"model"`
}

// ListModels returns the models the endpoint reports.
func (p *Provider) ListModels(ctx context.Context) ([]string, error) {
	endpoint := p.baseURL + "/v1/models"
	logging.LogRequest("LMPERF->LLM", p.baseURL, "", -1, map[string]string{"method": http.MethodGet, "url": endpoint})

	body, err := providers.Do(ctx, p.client, http.MethodGet, endpoint, p.apiKey, nil)
	if err != nil {
		return nil, err
	}
	if logging.DebugEnabled() {
		logging.LogDebug("LLM->LMPERF host=%s payload=%s", p.baseURL, util.Clip(util.OneLine(string(body)), maxDebugPayload))
	}

	names, err := parseModels(body)
	if err != nil {
		return nil, &providers.DecodeError{Err: err}
	}
	return names, nil
}

type chatRequest struct {
	Model       string              `json:"model"`
	Messages    []providers.Message `json:"messages"`
	MaxTokens   int                 `json:"max_tokens,omitempty"`
	Temperature float64             `json:"temperature"`
	Stream      bool                `json:"stream"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		Text string `json:"text"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// Complete issues a non-streaming chat completion.
func (p *Provider) Complete(ctx context.Context, req providers.CompletionRequest) (providers.Completion, error) {
	payload := chatRequest{
		Model:       req.Model,
		Messages:    req.Messages(),
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		Stream:      false,
	}
	endpoint := p.baseURL + "/v1/chat/completions"
	logging.LogDebug("LMPERF->LLM host=%s model=%s seq=%d max_tokens=%d", p.baseURL, req.Model, req.Sequence, req.MaxTokens)

	body, err := providers.Do(ctx, p.client, http.MethodPost, endpoint, p.apiKey, payload)
	if err != nil {
		return providers.Completion{}, err
	}
	logging.LogDebug("LLM->LMPERF host=%s model=%s seq=%d bytes=%d", p.baseURL, req.Model, req.Sequence, len(body))

	return decodeChat(body, req.Model)
}

func decodeChat(body []byte, requested string) (providers.Completion, error) {
	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return providers.Completion{}, &providers.DecodeError{Err: err}
	}
	if len(parsed.Choices) == 0 {
		return providers.Completion{}, &providers.DecodeError{Err: fmt.Errorf("chat response contained no choices")}
	}

	content := parsed.Choices[0].Message.Content
	if content == "" {
		content = parsed.Choices[0].Text
	}
	modelName := parsed.Model
	if modelName == "" {
		modelName = requested
	}

	out := providers.Completion{Model: modelName, Content: content}
	if u := parsed.Usage; u != nil {
		total := u.TotalTokens
		if total == 0 {
			total = u.PromptTokens + u.CompletionTokens
		}
		out.Usage = &providers.Usage{
			PromptTokens:     u.PromptTokens,
			CompletionTokens: u.CompletionTokens,
			TotalTokens:      total,
		}
	}
	return out, nil
}

func parseModels(body []byte) ([]string, error) {
	var wrapped modelsResponse
	if err := json.Unmarshal(body, &wrapped); err == nil {
		list := wrapped.Data
		if len(list) == 0 {
			list = wrapped.Models
		}
		if list != nil || strings.Contains(string(body), `"data"`) {
			names := make([]string, 0, len(list))
			for _, m := range list {
				if name := modelDisplayName(m); name != "" {
					names = append(names, name)
				}
			}
			return names, nil
		}
	}

	var direct []model
	if err := json.Unmarshal(body, &direct); err == nil {
		names := make([]string, 0, len(direct))
		for _, m := range direct {
			if name := modelDisplayName(m); name != "" {
				names = append(names, name)
			}
		}
		return names, nil
	}

	return nil, fmt.Errorf("unrecognized /v1/models response")
}

func modelDisplayName(m model) string {
	if strings.TrimSpace(m.ID) != "" {
		return strings.TrimSpace(m.ID)
	}
	if strings.TrimSpace(m.Name) != "" {
		return strings.TrimSpace(m.Name)
	}
	return strings.TrimSpace(m.Model)
}

// Close implements providers.Provider.
func (p *Provider) Close() error {
	p.client.CloseIdleConnections()
	return nil
}
