package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/ppiankov/medeval/internal/log"
)

const anthropicVersion = "2023-06-01"

// AnthropicProvider calls the Anthropic Messages API
type AnthropicProvider struct {
	client *jsonClient
	config Config
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	Messages    []anthropicMessage `json:"messages"`
	System      string             `json:"system,omitempty"`
	Temperature float64            `json:"temperature"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Model string `json:"model"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// NewAnthropicProvider requires an API key
func NewAnthropicProvider(config Config) (*AnthropicProvider, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("Anthropic API key is required")
	}

	client := newJSONClient(config, "https://api.anthropic.com", 30*time.Second)
	client.headers["x-api-key"] = config.APIKey
	client.headers["anthropic-version"] = anthropicVersion
	client.errorMessage = func(body []byte) string {
		var e struct {
			Error struct {
				Type    string `json:"type"`
				Message string `json:"message"`
			} `json:"error"`
		}
		if json.Unmarshal(body, &e) != nil || e.Error.Message == "" {
			return ""
		}
		return e.Error.Type + " - " + e.Error.Message
	}

	return &AnthropicProvider{client: client, config: config}, nil
}

func (p *AnthropicProvider) Name() string { return "anthropic" }

// IsAvailable sends a minimal message to confirm the key works
func (p *AnthropicProvider) IsAvailable(ctx context.Context) bool {
	probe := anthropicRequest{
		Model:     resolveModel(CompletionRequest{}, p.config, "claude-3-5-haiku-20241022"),
		MaxTokens: 10,
		Messages:  []anthropicMessage{{Role: "user", Content: "Hi"}},
	}
	var resp anthropicResponse
	if err := p.client.post(ctx, "/v1/messages", probe, &resp); err != nil {
		log.Warnf("Anthropic API check failed: %v", err)
		return false
	}
	return true
}

// Complete runs one Messages API call. The API has no seed parameter.
func (p *AnthropicProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	apiReq := anthropicRequest{
		Model:       resolveModel(req, p.config, "claude-3-5-sonnet-20241022"),
		MaxTokens:   resolveMaxTokens(req, p.config),
		System:      req.System,
		Messages:    []anthropicMessage{{Role: "user", Content: req.Prompt}},
		Temperature: req.Temperature,
	}

	var resp anthropicResponse
	if err := p.client.post(ctx, "/v1/messages", apiReq, &resp); err != nil {
		return nil, fmt.Errorf("Anthropic API error: %w", err)
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return nil, fmt.Errorf("no content in Anthropic response")
	}

	return &CompletionResponse{
		Content:    strings.TrimSpace(text.String()),
		Model:      resp.Model,
		TokensUsed: resp.Usage.InputTokens + resp.Usage.OutputTokens,
	}, nil
}
