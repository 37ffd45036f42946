package extract

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"

	"github.com/ppiankov/medeval/internal/llm"
	"github.com/ppiankov/medeval/internal/log"
	"github.com/ppiankov/medeval/internal/model"
)

//go:embed prompts/extractor_system.txt
var defaultSystemPrompt string

// LLMExtractor asks a judgment model to split answers into claims
type LLMExtractor struct {
	provider    llm.Provider
	system      string
	model       string
	maxTokens   int
	temperature float64
	seed        *int
}

// LLMOption configures an LLMExtractor
type LLMOption func(*LLMExtractor)

// WithSystemPromptFile replaces the built-in system prompt with a file's contents
func WithSystemPromptFile(path string) (LLMOption, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read extractor prompt: %w", err)
	}
	prompt := string(data)
	return func(e *LLMExtractor) { e.system = prompt }, nil
}

// WithModel overrides the provider's configured model
func WithModel(model string) LLMOption {
	return func(e *LLMExtractor) { e.model = model }
}

// WithTemperature sets the sampling temperature (0 by default)
func WithTemperature(t float64) LLMOption {
	return func(e *LLMExtractor) { e.temperature = t }
}

// WithSeed requests deterministic sampling where the provider supports it
func WithSeed(seed int) LLMOption {
	return func(e *LLMExtractor) { e.seed = &seed }
}

// NewLLMExtractor creates an extractor backed by provider
func NewLLMExtractor(provider llm.Provider, opts ...LLMOption) *LLMExtractor {
	e := &LLMExtractor{
		provider:  provider,
		system:    defaultSystemPrompt,
		maxTokens: 4096,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

type extractionInput struct {
	ResponseText        string   `json:"response_text"`
	ConversationContext []string `json:"conversation_context"`
}

// Extract implements Extractor
func (e *LLMExtractor) Extract(ctx context.Context, answer string, priorTurns []string) ([]model.Claim, error) {
	if priorTurns == nil {
		priorTurns = []string{}
	}
	input, err := json.MarshalIndent(extractionInput{ResponseText: answer, ConversationContext: priorTurns}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal extraction input: %w", err)
	}

	resp, err := e.provider.Complete(ctx, llm.CompletionRequest{
		System:      e.system,
		Prompt:      "Extract claims from this response:\n\n" + string(input),
		Model:       e.model,
		MaxTokens:   e.maxTokens,
		Temperature: e.temperature,
		Seed:        e.seed,
	})
	if err != nil {
		return nil, fmt.Errorf("extract claims: %w", err)
	}

	claims, err := ParseClaims(resp.Content)
	if err != nil {
		return nil, err
	}

	log.Debugf("extracted %d claims from %d-char answer (%s)", len(claims), len(answer), resp.Model)
	return claims, nil
}
