package verify

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"

	"github.com/ppiankov/medeval/internal/llm"
	"github.com/ppiankov/medeval/internal/model"
)

//go:embed prompts/verifier_system.txt
var defaultSystemPrompt string

// LLMVerifier asks a judgment model to label claims against the answer key
type LLMVerifier struct {
	id          string
	provider    llm.Provider
	system      string
	model       string
	maxTokens   int
	temperature float64
	seed        *int
}

// LLMOption configures an LLMVerifier
type LLMOption func(*LLMVerifier)

// WithSystemPromptFile replaces the built-in system prompt with a file's contents
func WithSystemPromptFile(path string) (LLMOption, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read verifier prompt: %w", err)
	}
	prompt := string(data)
	return func(v *LLMVerifier) { v.system = prompt }, nil
}

// WithModel overrides the provider's configured model
func WithModel(model string) LLMOption {
	return func(v *LLMVerifier) { v.model = model }
}

// WithTemperature sets the sampling temperature (0 by default)
func WithTemperature(t float64) LLMOption {
	return func(v *LLMVerifier) { v.temperature = t }
}

// WithSeed requests deterministic sampling where the provider supports it
func WithSeed(seed int) LLMOption {
	return func(v *LLMVerifier) { v.seed = &seed }
}

// NewLLMVerifier creates a verifier named id backed by provider
func NewLLMVerifier(id string, provider llm.Provider, opts ...LLMOption) *LLMVerifier {
	v := &LLMVerifier{
		id:        id,
		provider:  provider,
		system:    defaultSystemPrompt,
		maxTokens: 4096,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// ID implements Verifier
func (v *LLMVerifier) ID() string { return v.id }

type verificationInput struct {
	Claims    []model.Claim     `json:"claims"`
	AnswerKey *model.AnswerKey `json:"answer_key"`
}

// Verify implements Verifier
func (v *LLMVerifier) Verify(ctx context.Context, claims []model.Claim, key *model.AnswerKey) (*model.VerificationResult, error) {
	input, err := json.MarshalIndent(verificationInput{Claims: claims, AnswerKey: key}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal verification input: %w", err)
	}

	resp, err := v.provider.Complete(ctx, llm.CompletionRequest{
		System:      v.system,
		Prompt:      "Verify these claims against the answer key:\n\n" + string(input),
		Model:       v.model,
		MaxTokens:   v.maxTokens,
		Temperature: v.temperature,
		Seed:        v.seed,
	})
	if err != nil {
		return nil, fmt.Errorf("verify claims: %w", err)
	}

	verdicts, err := ParseVerdicts(v.id, resp.Content)
	if err != nil {
		return nil, err
	}

	numFacts := 0
	if key != nil {
		numFacts = len(key.CanonicalFacts)
	}
	return &model.VerificationResult{
		VerifierID: v.id,
		Verdicts:   verdicts,
		Metadata: map[string]interface{}{
			"model":        resp.Model,
			"num_verdicts": len(verdicts),
			"num_facts":    numFacts,
			"tokens_used":  resp.TokensUsed,
		},
	}, nil
}
