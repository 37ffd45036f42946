package model

import "time"

// Config is the complete medeval configuration
type Config struct {
	LLM          LLMConfig         `yaml:"llm" mapstructure:"llm"`
	Grading      GradingConfig     `yaml:"grading" mapstructure:"grading"`
	HTTP         HTTPConfig        `yaml:"http" mapstructure:"http"`
	Cache        CacheConfig       `yaml:"cache" mapstructure:"cache"`
	Concurrency  ConcurrencyConfig `yaml:"concurrency" mapstructure:"concurrency"`
	RateLimiting RateLimitConfig   `yaml:"rate_limiting" mapstructure:"rate_limiting"`
	Authority    AuthorityConfig   `yaml:"authority" mapstructure:"authority"`
	Output       OutputConfig      `yaml:"output" mapstructure:"output"`
	Log          LogConfig         `yaml:"log" mapstructure:"log"`
}

// LLMConfig configures the judgment provider used by extractors and verifiers
type LLMConfig struct {
	Provider        string  `yaml:"provider" mapstructure:"provider"` // openai, anthropic, ollama
	Model           string  `yaml:"model" mapstructure:"model"`
	APIKey          string  `yaml:"api_key,omitempty" mapstructure:"api_key"`
	BaseURL         string  `yaml:"base_url,omitempty" mapstructure:"base_url"`
	Timeout         int     `yaml:"timeout" mapstructure:"timeout"` // seconds
	MaxTokens       int     `yaml:"max_tokens" mapstructure:"max_tokens"`
	Temperature     float64 `yaml:"temperature" mapstructure:"temperature"`
	MaxRetries      int     `yaml:"max_retries" mapstructure:"max_retries"`
	ExtractorPrompt string  `yaml:"extractor_prompt,omitempty" mapstructure:"extractor_prompt"` // Path to a system prompt override
	VerifierPrompt  string  `yaml:"verifier_prompt,omitempty" mapstructure:"verifier_prompt"`
}

// GradingConfig configures the verification and adjudication stages
type GradingConfig struct {
	NumVerifiers          int      `yaml:"num_verifiers" mapstructure:"num_verifiers"`
	DisagreementThreshold float64  `yaml:"disagreement_threshold" mapstructure:"disagreement_threshold"`
	Seed                  int      `yaml:"seed" mapstructure:"seed"`
	VerifierModels        []string `yaml:"verifier_models,omitempty" mapstructure:"verifier_models"` // Per-verifier model overrides
	Offline               bool     `yaml:"offline" mapstructure:"offline"`                           // Heuristic extraction, no provider calls
}

// HTTPConfig configures outbound HTTP used by the answer-key source checker
type HTTPConfig struct {
	Timeout    time.Duration `yaml:"timeout" mapstructure:"timeout"`
	UserAgent  string        `yaml:"user_agent" mapstructure:"user_agent"`
	HTTPProxy  string        `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy string        `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
	NoProxy    string        `yaml:"no_proxy,omitempty" mapstructure:"no_proxy"`
}

// CacheConfig configures the judgment response cache
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled"`
	Dir       string        `yaml:"dir" mapstructure:"dir"`
	MemoryTTL time.Duration `yaml:"memory_ttl" mapstructure:"memory_ttl"`
	DiskTTL   time.Duration `yaml:"disk_ttl" mapstructure:"disk_ttl"`
}

// ConcurrencyConfig configures worker counts
type ConcurrencyConfig struct {
	Workers      int `yaml:"workers" mapstructure:"workers"`             // Transcripts graded in parallel
	CheckWorkers int `yaml:"check_workers" mapstructure:"check_workers"` // Parallel source URL checks
}

// RateLimitConfig configures provider call throttling
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	BurstSize         int     `yaml:"burst_size" mapstructure:"burst_size"`
}

// AuthorityConfig configures how answer-key source URLs are tiered
type AuthorityConfig struct {
	PrimaryDomains   []string          `yaml:"primary_domains" mapstructure:"primary_domains"`
	SecondaryDomains []string          `yaml:"secondary_domains" mapstructure:"secondary_domains"`
	DomainMap        map[string]string `yaml:"domain_map,omitempty" mapstructure:"domain_map"`
}

// OutputConfig configures result persistence
type OutputConfig struct {
	RunsDir          string `yaml:"runs_dir" mapstructure:"runs_dir"`
	SaveIntermediate bool   `yaml:"save_intermediate" mapstructure:"save_intermediate"`
	Verbose          bool   `yaml:"verbose" mapstructure:"verbose"`
}

// LogConfig configures the structured logger
type LogConfig struct {
	Level string `yaml:"level" mapstructure:"level"`
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider:    "openai",
			Model:       "gpt-4o-mini",
			Timeout:     60,
			MaxTokens:   4096,
			Temperature: 0.0,
			MaxRetries:  3,
		},
		Grading: GradingConfig{
			NumVerifiers:          3,
			DisagreementThreshold: 0.20,
			Seed:                  42,
		},
		HTTP: HTTPConfig{
			Timeout:   10 * time.Second,
			UserAgent: "medeval/0.1 (+https://github.com/ppiankov/medeval)",
		},
		Cache: CacheConfig{
			Enabled:   true,
			Dir:       ".medeval-cache",
			MemoryTTL: time.Hour,
			DiskTTL:   7 * 24 * time.Hour,
		},
		Concurrency: ConcurrencyConfig{
			Workers:      4,
			CheckWorkers: 10,
		},
		RateLimiting: RateLimitConfig{
			RequestsPerSecond: 2.0,
			BurstSize:         4,
		},
		Authority: AuthorityConfig{
			PrimaryDomains: []string{
				"medicare.gov",
				"cms.gov",
				"ssa.gov",
				"hhs.gov",
				"ecfr.gov",
				"federalregister.gov",
			},
			SecondaryDomains: []string{
				"shiphelp.org",
				"kff.org",
				"medicareinteractive.org",
				"ncoa.org",
			},
		},
		Output: OutputConfig{
			RunsDir:          "runs",
			SaveIntermediate: true,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}
