package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/medeval/internal/model"
)

// setDefaults registers every DefaultConfig value with v so that config
// files and MEDEVAL_* variables can override any key
func setDefaults(v *viper.Viper) error {
	data, err := yaml.Marshal(model.DefaultConfig())
	if err != nil {
		return fmt.Errorf("marshal defaults: %w", err)
	}
	var tree map[string]interface{}
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return fmt.Errorf("unmarshal defaults: %w", err)
	}
	for key, val := range flatten("", tree) {
		v.SetDefault(key, val)
	}
	return nil
}

func flatten(prefix string, tree map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{})
	for k, val := range tree {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if sub, ok := val.(map[string]interface{}); ok {
			for sk, sv := range flatten(key, sub) {
				out[sk] = sv
			}
			continue
		}
		out[key] = val
	}
	return out
}

// loadConfig merges defaults, the config file and the environment
func loadConfig(v *viper.Viper) (*model.Config, error) {
	cfg := model.DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parse configuration: %w", err)
	}
	return cfg, nil
}

// gradingFlags are shared by grade and batch
type gradingFlags struct {
	verifiers   int
	threshold   float64
	seed        int
	offline     bool
	llmProvider string
	llmModel    string
	noCache     bool
}

func (f *gradingFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&f.verifiers, "verifiers", 3, "number of independent verifiers")
	cmd.Flags().Float64Var(&f.threshold, "threshold", 0.20, "disagreement rate above which a trial needs manual review")
	cmd.Flags().IntVar(&f.seed, "seed", 42, "judgment seed (providers that support it)")
	cmd.Flags().BoolVar(&f.offline, "offline", false, "grade without a provider (heuristic extraction, lexical verifiers)")
	cmd.Flags().StringVar(&f.llmProvider, "llm-provider", "openai", "judgment provider (openai, anthropic, ollama)")
	cmd.Flags().StringVar(&f.llmModel, "llm-model", "gpt-4o-mini", "judgment model name")
	cmd.Flags().BoolVar(&f.noCache, "no-cache", false, "disable the judgment cache")
}

// apply overrides cfg with the flags the user actually set
func (f *gradingFlags) apply(cmd *cobra.Command, cfg *model.Config) {
	flags := cmd.Flags()
	if flags.Changed("verifiers") {
		cfg.Grading.NumVerifiers = f.verifiers
	}
	if flags.Changed("threshold") {
		cfg.Grading.DisagreementThreshold = f.threshold
	}
	if flags.Changed("seed") {
		cfg.Grading.Seed = f.seed
	}
	if flags.Changed("offline") {
		cfg.Grading.Offline = f.offline
	}
	if flags.Changed("llm-provider") {
		cfg.LLM.Provider = f.llmProvider
	}
	if flags.Changed("llm-model") {
		cfg.LLM.Model = f.llmModel
	}
	if flags.Changed("no-cache") {
		cfg.Cache.Enabled = !f.noCache
	}
}
