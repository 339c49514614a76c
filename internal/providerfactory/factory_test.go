// internal/providerfactory/factory_test.go
package providerfactory

import (
	"testing"

	"github.com/mwiater/lmperf/internal/appconfig"
)

func TestNewProviderDefaultsToOpenAI(t *testing.T) {
	for _, kind := range []string{"", "openai", "lmstudio", "llama.cpp", "llamacpp"} {
		p, err := NewProvider(&appconfig.Config{EndpointType: kind})
		if err != nil {
			t.Fatalf("NewProvider(%q) returned error: %v", kind, err)
		}
		if p.Name() != "openai" {
			t.Fatalf("NewProvider(%q) = %s, expected openai", kind, p.Name())
		}
	}
}

func TestNewProviderOllama(t *testing.T) {
	p, err := NewProvider(&appconfig.Config{EndpointType: "Ollama"})
	if err != nil {
		t.Fatalf("NewProvider returned error: %v", err)
	}
	if p.Name() != "ollama" {
		t.Fatalf("expected ollama provider, got %s", p.Name())
	}
}

func TestNewProviderRejectsUnsupported(t *testing.T) {
	if _, err := NewProvider(&appconfig.Config{EndpointType: "grpc"}); err == nil {
		t.Fatal("expected error for unsupported endpoint type")
	}
	if _, err := NewProvider(nil); err == nil {
		t.Fatal("expected error for nil config")
	}
}
