// internal/providers/provider.go

// Package providers defines the interface for issuing completion requests to
// an inference endpoint. Adapters exist for OpenAI-compatible servers
// (LM Studio, llama.cpp) and for Ollama.
package providers

import (
	"context"
)

// Message represents a single message in a chat conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionRequest is one non-streaming chat completion.
type CompletionRequest struct {
	Model        string
	SystemPrompt string
	Prompt       string
	MaxTokens    int
	Temperature  float64
	// Sequence is carried into request logs only; negative means unsequenced.
	Sequence int
}

// Messages returns the chat messages for the request, system prompt first.
func (r CompletionRequest) Messages() []Message {
	messages := make([]Message, 0, 2)
	if r.SystemPrompt != "" {
		messages = append(messages, Message{Role: "system", Content: r.SystemPrompt})
	}
	return append(messages, Message{Role: "user", Content: r.Prompt})
}

// Usage holds the token counts reported by the endpoint.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Completion is the decoded response of a completion request.
// Usage is nil when the endpoint did not report token counts.
type Completion struct {
	Model   string
	Content string
	Usage   *Usage
}

// Provider is the interface every endpoint adapter implements.
type Provider interface {
	// Name identifies the adapter in logs and reports.
	Name() string
	// ListModels returns the model ids the endpoint reports. It doubles as
	// the reachability probe run before a session starts.
	ListModels(ctx context.Context) ([]string, error)
	// Complete issues one request and blocks until the full body is decoded.
	Complete(ctx context.Context, req CompletionRequest) (Completion, error)
	// Close cleans up any resources used by the provider.
	Close() error
}
