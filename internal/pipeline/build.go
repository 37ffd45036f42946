package pipeline

import (
	"fmt"

	"github.com/ppiankov/medeval/internal/adjudicate"
	"github.com/ppiankov/medeval/internal/cache"
	"github.com/ppiankov/medeval/internal/extract"
	"github.com/ppiankov/medeval/internal/llm"
	"github.com/ppiankov/medeval/internal/model"
	"github.com/ppiankov/medeval/internal/score"
	"github.com/ppiankov/medeval/internal/storage"
	"github.com/ppiankov/medeval/internal/verify"
	"github.com/ppiankov/medeval/internal/worker"
)

// NewPipeline builds a pipeline from configuration. With cfg.Grading.Offline
// it uses the heuristic extractor and a lexical verifier panel; otherwise every
// stage calls the configured judgment provider. run may be nil.
func NewPipeline(cfg *model.Config, run *storage.Run) (*Pipeline, error) {
	n := cfg.Grading.NumVerifiers
	if n <= 0 {
		return nil, fmt.Errorf("num_verifiers must be at least 1, got %d", n)
	}

	adjudicator := adjudicate.NewAdjudicator(cfg.Grading.DisagreementThreshold, score.NewScorer())
	opts := []Option{
		WithSeed(cfg.Grading.Seed),
		WithRun(run, cfg.Output.SaveIntermediate),
	}

	if cfg.Grading.Offline {
		opts = append(opts, WithJudgeModel("offline"))
		return New(extract.NewHeuristicExtractor(), verify.LexicalPanel(n), adjudicator, opts...), nil
	}

	provider, err := NewProvider(cfg)
	if err != nil {
		return nil, err
	}

	extractOpts := []extract.LLMOption{
		extract.WithSeed(cfg.Grading.Seed),
		extract.WithTemperature(cfg.LLM.Temperature),
	}
	if cfg.LLM.ExtractorPrompt != "" {
		opt, err := extract.WithSystemPromptFile(cfg.LLM.ExtractorPrompt)
		if err != nil {
			return nil, err
		}
		extractOpts = append(extractOpts, opt)
	}

	var promptOpt verify.LLMOption
	if cfg.LLM.VerifierPrompt != "" {
		promptOpt, err = verify.WithSystemPromptFile(cfg.LLM.VerifierPrompt)
		if err != nil {
			return nil, err
		}
	}

	verifiers := make([]verify.Verifier, n)
	for i := range verifiers {
		vopts := []verify.LLMOption{
			verify.WithSeed(cfg.Grading.Seed),
			verify.WithTemperature(cfg.LLM.Temperature),
		}
		if i < len(cfg.Grading.VerifierModels) && cfg.Grading.VerifierModels[i] != "" {
			vopts = append(vopts, verify.WithModel(cfg.Grading.VerifierModels[i]))
		}
		if promptOpt != nil {
			vopts = append(vopts, promptOpt)
		}
		verifiers[i] = verify.NewLLMVerifier(fmt.Sprintf("V%d", i+1), provider, vopts...)
	}

	opts = append(opts, WithJudgeModel(provider.Name()+"/"+cfg.LLM.Model))
	return New(extract.NewLLMExtractor(provider, extractOpts...), verifiers, adjudicator, opts...), nil
}

// NewProvider builds the judgment provider chain: rate limit each attempt,
// retry transient failures, and serve repeats from the cache.
func NewProvider(cfg *model.Config) (llm.Provider, error) {
	pc := llm.ConfigFromModel(cfg)
	if err := llm.ApplyEnv(&pc); err != nil {
		return nil, err
	}

	base, err := llm.NewProvider(pc)
	if err != nil {
		return nil, fmt.Errorf("create LLM provider: %w", err)
	}

	var provider llm.Provider = base
	limiter := worker.NewLimiter(cfg.RateLimiting.RequestsPerSecond, cfg.RateLimiting.BurstSize)
	provider = llm.NewLimitedProvider(provider, limiter)
	provider = llm.NewRetryProvider(provider, cfg.LLM.MaxRetries)

	if cfg.Cache.Enabled {
		c := cache.NewLayeredCache(cfg.Cache.MemoryTTL, cfg.Cache.Dir, cfg.Cache.DiskTTL)
		provider = llm.NewCachedProvider(provider, c, 0, pc.Model)
	}
	return provider, nil
}
