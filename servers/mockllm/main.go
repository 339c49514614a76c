// servers/mockllm/main.go
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math/rand/v2"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.yaml.in/yaml/v3"
)

const defaultConfigPath = "servers/mockllm/mockllm.yml"

// Config shapes the simulated endpoint.
type Config struct {
	Host            string   `yaml:"host"`
	Port            int      `yaml:"port"`
	Models          []string `yaml:"models"`
	LatencyMS       int      `yaml:"latency_ms"`
	JitterMS        int      `yaml:"jitter_ms"`
	TokensPerSecond float64  `yaml:"tokens_per_second"`
	DefaultTokens   int      `yaml:"default_tokens"`
	FailureRate     float64  `yaml:"failure_rate"`
	OmitUsage       bool     `yaml:"omit_usage"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
	Stream      bool          `json:"stream"`
}

type usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type chatChoice struct {
	Index        int         `json:"index"`
	Message      chatMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

type chatResponse struct {
	ID      string       `json:"id"`
	Object  string       `json:"object"`
	Created int64        `json:"created"`
	Model   string       `json:"model"`
	Choices []chatChoice `json:"choices"`
	Usage   *usage       `json:"usage,omitempty"`
}

type ErrResp struct {
	Error string `json:"error"`
}

type Server struct {
	cfg *Config

	mu    sync.Mutex
	rng   *rand.Rand
	count int64
	sleep func(ctx context.Context, d time.Duration) error
}

func main() {
	path := os.Getenv("MOCKLLM_CONFIG")
	if path == "" {
		path = defaultConfigPath
	}
	cfg, err := loadConfig(path)
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:           newServer(cfg, time.Now().UnixNano()).routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Printf("mockllm config: models=%v latency_ms=%d jitter_ms=%d tps=%.1f failure_rate=%.2f omit_usage=%v",
		cfg.Models, cfg.LatencyMS, cfg.JitterMS, cfg.TokensPerSecond, cfg.FailureRate, cfg.OmitUsage)
	log.Printf("listening on %s", srv.Addr)
	log.Fatal(srv.ListenAndServe())
}

func newServer(cfg *Config, seed int64) *Server {
	return &Server{
		cfg:   cfg,
		rng:   rand.New(rand.NewPCG(uint64(seed), uint64(seed>>1))),
		sleep: sleepContext,
	}
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("GET /v1/models", s.handleModels)
	mux.HandleFunc("POST /v1/chat/completions", s.handleChat)
	return mux
}

func (s *Server) handleModels(w http.ResponseWriter, _ *http.Request) {
	data := make([]map[string]string, 0, len(s.cfg.Models))
	for _, m := range s.cfg.Models {
		data = append(data, map[string]string{"id": m, "object": "model"})
	}
	writeJSON(w, http.StatusOK, map[string]any{"object": "list", "data": data})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeJSON(w, r, &req, 1<<20 /* 1 MiB */); err != nil {
		log.Printf("chat decode error: %v", err)
		writeJSON(w, http.StatusBadRequest, ErrResp{Error: "invalid JSON: " + err.Error()})
		return
	}
	if len(req.Messages) == 0 {
		writeJSON(w, http.StatusBadRequest, ErrResp{Error: "messages are required"})
		return
	}
	if req.Stream {
		writeJSON(w, http.StatusBadRequest, ErrResp{Error: "streaming is not supported"})
		return
	}

	seq, fail, jitter := s.draw()
	if fail {
		log.Printf("chat #%d: injected failure", seq)
		writeJSON(w, http.StatusInternalServerError, ErrResp{Error: "injected failure"})
		return
	}

	tokens := req.MaxTokens
	if tokens <= 0 {
		tokens = s.cfg.DefaultTokens
	}
	delay := time.Duration(s.cfg.LatencyMS)*time.Millisecond + jitter
	if s.cfg.TokensPerSecond > 0 {
		delay += time.Duration(float64(tokens) / s.cfg.TokensPerSecond * float64(time.Second))
	}
	if err := s.sleep(r.Context(), delay); err != nil {
		log.Printf("chat #%d: client went away after %s", seq, delay)
		return
	}

	prompt := req.Messages[len(req.Messages)-1].Content
	resp := chatResponse{
		ID:      fmt.Sprintf("chatcmpl-mock-%d", seq),
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   modelName(req.Model, s.cfg.Models),
		Choices: []chatChoice{{
			Message:      chatMessage{Role: "assistant", Content: generateText(tokens)},
			FinishReason: "length",
		}},
	}
	if !s.cfg.OmitUsage {
		promptTokens := len(strings.Fields(prompt))
		resp.Usage = &usage{PromptTokens: promptTokens, CompletionTokens: tokens, TotalTokens: promptTokens + tokens}
	}
	log.Printf("chat #%d: %d tokens in %s", seq, tokens, delay)
	writeJSON(w, http.StatusOK, resp)
}

// draw returns the request number, whether to fail it and its latency jitter.
func (s *Server) draw() (int64, bool, time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.count++
	fail := s.cfg.FailureRate > 0 && s.rng.Float64() < s.cfg.FailureRate
	var jitter time.Duration
	if s.cfg.JitterMS > 0 {
		jitter = time.Duration(s.rng.IntN(s.cfg.JitterMS+1)) * time.Millisecond
	}
	return s.count, fail, jitter
}

func modelName(requested string, served []string) string {
	if requested != "" && requested != "local-model" {
		return requested
	}
	if len(served) > 0 {
		return served[0]
	}
	return "mock-model"
}

var words = []string{"the", "model", "answers", "with", "a", "short", "and", "steady", "stream", "of", "tokens"}

func generateText(tokens int) string {
	out := make([]string, tokens)
	for i := range out {
		out[i] = words[i%len(words)]
	}
	return strings.Join(out, " ")
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// loadConfig reads the YAML config. A missing file yields the defaults.
func loadConfig(path string) (*Config, error) {
	cfg := Config{
		Host:            "127.0.0.1",
		Port:            1234,
		Models:          []string{"mock-model"},
		LatencyMS:       50,
		TokensPerSecond: 200,
		DefaultTokens:   64,
	}

	data, err := os.ReadFile(filepath.Clean(path))
	switch {
	case errors.Is(err, os.ErrNotExist):
		return &cfg, nil
	case err != nil:
		return nil, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	if cfg.Port <= 0 || cfg.Port > 65535 {
		return nil, fmt.Errorf("invalid port %d", cfg.Port)
	}
	if cfg.FailureRate < 0 || cfg.FailureRate > 1 {
		return nil, fmt.Errorf("failure_rate out of range (0..1): %v", cfg.FailureRate)
	}
	if cfg.LatencyMS < 0 || cfg.JitterMS < 0 || cfg.TokensPerSecond < 0 {
		return nil, errors.New("latency_ms, jitter_ms and tokens_per_second must not be negative")
	}
	if cfg.DefaultTokens <= 0 {
		cfg.DefaultTokens = 64
	}
	if len(cfg.Models) == 0 {
		cfg.Models = []string{"mock-model"}
	}
	return &cfg, nil
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any, maxBytes int64) error {
	if r.Body == nil {
		return errors.New("empty body")
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	defer r.Body.Close()

	return json.NewDecoder(r.Body).Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
