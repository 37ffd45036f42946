package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/ppiankov/medeval/internal/log"
)

// OllamaProvider calls a local Ollama server in JSON mode
type OllamaProvider struct {
	client *jsonClient
	config Config
}

type ollamaRequest struct {
	Model   string        `json:"model"`
	Prompt  string        `json:"prompt"`
	Stream  bool          `json:"stream"`
	System  string        `json:"system,omitempty"`
	Format  string        `json:"format,omitempty"`
	Options ollamaOptions `json:"options,omitempty"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict,omitempty"`
	Seed        *int    `json:"seed,omitempty"`
}

type ollamaResponse struct {
	Model    string `json:"model"`
	Response string `json:"response"`
	Done     bool   `json:"done"`

	// Only present when done=true
	PromptEvalCount int `json:"prompt_eval_count,omitempty"`
	EvalCount       int `json:"eval_count,omitempty"`
}

// NewOllamaProvider defaults to localhost:11434 and a 60s timeout
func NewOllamaProvider(config Config) (*OllamaProvider, error) {
	client := newJSONClient(config, "http://localhost:11434", 60*time.Second)
	client.errorMessage = func(body []byte) string {
		var e struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(body, &e) != nil {
			return ""
		}
		return e.Error
	}
	return &OllamaProvider{client: client, config: config}, nil
}

func (p *OllamaProvider) Name() string { return "ollama" }

// IsAvailable lists local models to confirm the server is up
func (p *OllamaProvider) IsAvailable(ctx context.Context) bool {
	code, err := p.client.get(ctx, "/api/tags")
	if err != nil {
		log.Warnf("Ollama availability check failed (connection to %s): %v", p.client.baseURL, err)
		return false
	}
	if code != http.StatusOK {
		log.Warnf("Ollama availability check failed (HTTP %d from %s)", code, p.client.baseURL)
		return false
	}
	return true
}

// Complete runs one non-streaming generate call
func (p *OllamaProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	model := resolveModel(req, p.config, "")
	if model == "" {
		return nil, fmt.Errorf("ollama model must be specified (e.g., llama3.1:8b, mistral)")
	}

	apiReq := ollamaRequest{
		Model:  model,
		Prompt: req.Prompt,
		System: req.System,
		Format: "json",
		Options: ollamaOptions{
			Temperature: req.Temperature,
			NumPredict:  resolveMaxTokens(req, p.config),
			Seed:        req.Seed,
		},
	}

	var resp ollamaResponse
	if err := p.client.post(ctx, "/api/generate", apiReq, &resp); err != nil {
		return nil, fmt.Errorf("ollama API error: %w", err)
	}

	content := strings.TrimSpace(resp.Response)
	tokens := resp.PromptEvalCount + resp.EvalCount
	if tokens == 0 {
		// Some models omit counts
		tokens = (len(req.Prompt) + len(content)) / 4
	}

	return &CompletionResponse{
		Content:    content,
		Model:      resp.Model,
		TokensUsed: tokens,
	}, nil
}
