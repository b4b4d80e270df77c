package config

import (
	"time"

	"github.com/jackzampolin/notewise/internal/notes"
)

// Config holds notewise configuration.
// Stored at: {home}/config.yaml
type Config struct {
	LLMProviders map[string]LLMProviderCfg `mapstructure:"llm_providers" yaml:"llm_providers"`
	Defaults     DefaultsCfg               `mapstructure:"defaults" yaml:"defaults"`
	Extraction   ExtractionCfg             `mapstructure:"extraction" yaml:"extraction"`
	Advisor      AdvisorCfg                `mapstructure:"advisor" yaml:"advisor"`
	Profile      ProfileCfg                `mapstructure:"profile" yaml:"profile"`
}

// LLMProviderCfg configures an OpenAI-compatible inference endpoint.
// APIKey supports ${ENV_VAR} syntax; BaseURL is an optional override.
type LLMProviderCfg struct {
	Type           string `mapstructure:"type" yaml:"type"` // "gemini", "openai", "openrouter"
	Model          string `mapstructure:"model" yaml:"model"`
	APIKey         string `mapstructure:"api_key" yaml:"api_key"`
	BaseURL        string `mapstructure:"base_url" yaml:"base_url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
	Enabled        bool   `mapstructure:"enabled" yaml:"enabled"`

	// RequestsPerMinute throttles calls to the endpoint; 0 disables it.
	RequestsPerMinute int `mapstructure:"requests_per_minute" yaml:"requests_per_minute"`
}

// DefaultsCfg specifies provider selection and caller-side policy.
type DefaultsCfg struct {
	// LLMProvider names the provider used when --provider is not given.
	LLMProvider string `mapstructure:"llm_provider" yaml:"llm_provider"`
	// MaxWorkers bounds how many files are extracted in parallel.
	MaxWorkers int `mapstructure:"max_workers" yaml:"max_workers"`
	// Retries is how many times a retryable failure is retried.
	Retries int `mapstructure:"retries" yaml:"retries"`
	// TimeoutSeconds is the deadline of one call, including retries.
	TimeoutSeconds int `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
}

// ExtractionCfg tunes extraction requests.
type ExtractionCfg struct {
	Model       string  `mapstructure:"model" yaml:"model"`
	Temperature float64 `mapstructure:"temperature" yaml:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens" yaml:"max_tokens"`
	Instruction string  `mapstructure:"instruction" yaml:"instruction"`
}

// AdvisorCfg tunes advisory requests.
type AdvisorCfg struct {
	Model         string  `mapstructure:"model" yaml:"model"`
	Temperature   float64 `mapstructure:"temperature" yaml:"temperature"`
	MaxTokens     int     `mapstructure:"max_tokens" yaml:"max_tokens"`
	QuestionCount int     `mapstructure:"question_count" yaml:"question_count"`
}

// ProfileCfg is the investor profile passed to ranking prompts.
type ProfileCfg struct {
	RiskAppetite         string   `mapstructure:"risk_appetite" yaml:"risk_appetite"`
	TargetAnnualReturn   float64  `mapstructure:"target_annual_return" yaml:"target_annual_return"`
	MinAcceptableBarrier float64  `mapstructure:"min_acceptable_barrier" yaml:"min_acceptable_barrier"`
	ExcludedSectors      []string `mapstructure:"excluded_sectors" yaml:"excluded_sectors"`
	PreferredMarkets     []string `mapstructure:"preferred_markets" yaml:"preferred_markets"`
}

// InvestorProfile converts the profile section to the domain type.
func (p ProfileCfg) InvestorProfile() notes.InvestorProfile {
	return notes.InvestorProfile{
		RiskAppetite:         p.RiskAppetite,
		TargetAnnualReturn:   p.TargetAnnualReturn,
		MinAcceptableBarrier: p.MinAcceptableBarrier,
		ExcludedSectors:      p.ExcludedSectors,
		PreferredMarkets:     p.PreferredMarkets,
	}
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() *Config {
	profile := notes.DefaultInvestorProfile()
	return &Config{
		LLMProviders: map[string]LLMProviderCfg{
			"gemini": {
				Type:           "gemini",
				Model:          "gemini-2.0-flash",
				APIKey:         "${GOOGLE_API_KEY}",
				TimeoutSeconds: 120,
				Enabled:        true,
			},
			"openai": {
				Type:           "openai",
				Model:          "gpt-4o-mini",
				APIKey:         "${OPENAI_API_KEY}",
				TimeoutSeconds: 120,
				Enabled:        false,
			},
			"openrouter": {
				Type:           "openrouter",
				Model:          "google/gemini-2.0-flash-001",
				APIKey:         "${OPENROUTER_API_KEY}",
				TimeoutSeconds: 120,
				Enabled:        false,
			},
		},
		Defaults: DefaultsCfg{
			LLMProvider:    "gemini",
			MaxWorkers:     4,
			Retries:        0,
			TimeoutSeconds: 120,
		},
		Extraction: ExtractionCfg{
			Temperature: 0.1,
			MaxTokens:   4096,
		},
		Advisor: AdvisorCfg{
			Temperature:   0.4,
			QuestionCount: 3,
		},
		Profile: ProfileCfg{
			RiskAppetite:         profile.RiskAppetite,
			TargetAnnualReturn:   profile.TargetAnnualReturn,
			MinAcceptableBarrier: profile.MinAcceptableBarrier,
			ExcludedSectors:      []string{},
			PreferredMarkets:     profile.PreferredMarkets,
		},
	}
}

// GetLLMProvider returns an LLM provider config by name.
func (c *Config) GetLLMProvider(name string) (LLMProviderCfg, bool) {
	cfg, ok := c.LLMProviders[name]
	return cfg, ok
}

// EnabledLLMProviders returns all enabled LLM providers.
func (c *Config) EnabledLLMProviders() map[string]LLMProviderCfg {
	result := make(map[string]LLMProviderCfg)
	for name, cfg := range c.LLMProviders {
		if cfg.Enabled {
			result[name] = cfg
		}
	}
	return result
}

// Timeout returns the per-call deadline, or zero for none.
func (d DefaultsCfg) Timeout() time.Duration {
	if d.TimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(d.TimeoutSeconds) * time.Second
}
