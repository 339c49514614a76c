// internal/appconfig/prompts.go
package appconfig

import (
	"fmt"
	"os"
	"strings"

	"go.yaml.in/yaml/v3"
)

// defaultPrompts is the built-in prompt set used when nothing else is configured.
var defaultPrompts = []string{
	"Briefly introduce the history of artificial intelligence.",
	"Explain what machine learning is.",
	"Write a Python function that computes the Fibonacci sequence.",
	"Describe the difference between deep learning and traditional machine learning.",
	"Recommend a few books about data science.",
	"Explain what natural language processing is.",
	"How can the training speed of a neural network be improved?",
	"What is the Transformer architecture?",
	"Introduce the basic concepts of reinforcement learning.",
	"How do you evaluate the performance of a machine learning model?",
}

// DefaultPrompts returns a copy of the built-in prompt set.
func DefaultPrompts() []string {
	out := make([]string, len(defaultPrompts))
	copy(out, defaultPrompts)
	return out
}

// promptsFile is the document shape accepted by LoadPromptsFile when the
// file is a mapping rather than a bare list.
type promptsFile struct {
	SystemPrompt string   `yaml:"systemPrompt"`
	Prompts      []string `yaml:"prompts"`
}

// LoadPromptsFile reads prompts from a YAML file. The file may be a plain
// list of strings or a mapping with a "prompts" key.
func LoadPromptsFile(path string) ([]string, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read prompts file: %w", err)
	}

	var list []string
	if err := yaml.Unmarshal(data, &list); err == nil {
		prompts := cleanPrompts(list)
		if len(prompts) == 0 {
			return nil, "", fmt.Errorf("prompts file %s contains no prompts", path)
		}
		return prompts, "", nil
	}

	var doc promptsFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, "", fmt.Errorf("failed to parse prompts file: %w", err)
	}
	prompts := cleanPrompts(doc.Prompts)
	if len(prompts) == 0 {
		return nil, "", fmt.Errorf("prompts file %s contains no prompts", path)
	}
	return prompts, strings.TrimSpace(doc.SystemPrompt), nil
}

// ResolvePrompts picks the prompt list in priority order: the single
// --prompt value, the prompts file, the inline prompts list, the defaults.
// A system prompt from the prompts file is returned only if the config has none.
func (c Config) ResolvePrompts() ([]string, string, error) {
	system := strings.TrimSpace(c.SystemPrompt)

	if p := strings.TrimSpace(c.Prompt); p != "" {
		return []string{p}, system, nil
	}
	if path := strings.TrimSpace(c.PromptsFile); path != "" {
		prompts, fileSystem, err := LoadPromptsFile(path)
		if err != nil {
			return nil, "", err
		}
		if system == "" {
			system = fileSystem
		}
		return prompts, system, nil
	}
	if prompts := cleanPrompts(c.Prompts); len(prompts) > 0 {
		return prompts, system, nil
	}
	return DefaultPrompts(), system, nil
}

func cleanPrompts(in []string) []string {
	out := make([]string, 0, len(in))
	for _, p := range in {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
