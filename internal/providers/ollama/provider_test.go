// internal/providers/ollama/provider_test.go
package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mwiater/lmperf/internal/providers"
)

func TestProviderComplete(t *testing.T) {
	t.Parallel()

	var payload map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &payload); err != nil {
			t.Errorf("unmarshal payload: %v", err)
		}
		_, _ = w.Write([]byte(`{"model":"llama3.2:1b","message":{"role":"assistant","content":"hello"},"done":true,"prompt_eval_count":9,"eval_count":21}`))
	}))
	defer server.Close()

	got, err := New(server.URL).Complete(context.Background(), providers.CompletionRequest{
		Model:       "llama3.2:1b",
		Prompt:      "hi",
		MaxTokens:   80,
		Temperature: 0.2,
	})
	if err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}
	if got.Content != "hello" {
		t.Fatalf("unexpected content: %q", got.Content)
	}
	if got.Usage == nil || got.Usage.PromptTokens != 9 || got.Usage.CompletionTokens != 21 || got.Usage.TotalTokens != 30 {
		t.Fatalf("unexpected usage: %+v", got.Usage)
	}
	if payload["stream"] != false {
		t.Fatalf("expected stream=false, got %v", payload["stream"])
	}
	options, ok := payload["options"].(map[string]any)
	if !ok {
		t.Fatalf("expected options map, got %T", payload["options"])
	}
	if options["num_predict"].(float64) != 80 || options["temperature"].(float64) != 0.2 {
		t.Fatalf("unexpected options: %v", options)
	}
}

func TestProviderCompleteWithoutCounts(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"message":{"content":"a b c"},"done":true}`))
	}))
	defer server.Close()

	got, err := New(server.URL).Complete(context.Background(), providers.CompletionRequest{Model: "m", Prompt: "p"})
	if err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}
	if got.Usage != nil {
		t.Fatalf("expected nil usage, got %+v", got.Usage)
	}
}

func TestProviderCompleteMalformed(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"message":`))
	}))
	defer server.Close()

	_, err := New(server.URL).Complete(context.Background(), providers.CompletionRequest{Model: "m", Prompt: "p"})
	var decodeErr *providers.DecodeError
	if !errors.As(err, &decodeErr) {
		t.Fatalf("expected decode error, got %v", err)
	}
}

func TestListModels(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tags" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"models":[{"name":"llama3.2:1b"},{"model":"qwen2.5:7b"}]}`))
	}))
	defer server.Close()

	names, err := New(server.URL).ListModels(context.Background())
	if err != nil {
		t.Fatalf("ListModels error: %v", err)
	}
	if len(names) != 2 || names[1] != "qwen2.5:7b" {
		t.Fatalf("unexpected models: %v", names)
	}
}
