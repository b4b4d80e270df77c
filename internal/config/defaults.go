package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrNoDefault is returned when no default value exists for a config key.
var ErrNoDefault = errors.New("no default exists")

// Entry is a single configuration key with its default value.
type Entry struct {
	Key         string `json:"key" yaml:"key"`
	Value       any    `json:"value" yaml:"value"`
	Description string `json:"description" yaml:"description"`
}

// providerDescriptions documents the per-provider keys.
var providerDescriptions = map[string]string{
	"type":            "Provider type: gemini, openai or openrouter",
	"model":           "Default model",
	"api_key":         "API key (supports ${ENV_VAR} syntax)",
	"base_url":        "Endpoint override (empty uses the type's default)",
	"timeout_seconds": "HTTP timeout in seconds",
	"enabled":         "Whether the provider is enabled",

	"requests_per_minute": "Client-side request rate limit (0 for none)",
}

// DefaultEntries returns every configuration key with its default value,
// sorted by key. They are registered as viper defaults, which also makes
// each key overridable from the environment.
func DefaultEntries() []Entry {
	cfg := DefaultConfig()
	var entries []Entry

	for name, p := range cfg.LLMProviders {
		prefix := "llm_providers." + name + "."
		values := map[string]any{
			"type":            p.Type,
			"model":           p.Model,
			"api_key":         p.APIKey,
			"base_url":        p.BaseURL,
			"timeout_seconds": p.TimeoutSeconds,
			"enabled":         p.Enabled,

			"requests_per_minute": p.RequestsPerMinute,
		}
		for field, value := range values {
			entries = append(entries, Entry{
				Key:         prefix + field,
				Value:       value,
				Description: fmt.Sprintf("%s (%s)", providerDescriptions[field], name),
			})
		}
	}

	entries = append(entries,
		Entry{"defaults.llm_provider", cfg.Defaults.LLMProvider, "Default LLM provider"},
		Entry{"defaults.max_workers", cfg.Defaults.MaxWorkers, "Files extracted in parallel"},
		Entry{"defaults.retries", cfg.Defaults.Retries, "Retries of timeouts, transient service errors and malformed responses"},
		Entry{"defaults.timeout_seconds", cfg.Defaults.TimeoutSeconds, "Deadline in seconds for one call, retries included"},

		Entry{"extraction.model", cfg.Extraction.Model, "Extraction model (empty uses the provider model)"},
		Entry{"extraction.temperature", cfg.Extraction.Temperature, "Extraction sampling temperature"},
		Entry{"extraction.max_tokens", cfg.Extraction.MaxTokens, "Extraction completion token limit"},
		Entry{"extraction.instruction", cfg.Extraction.Instruction, "Extraction instruction (empty uses the built-in one)"},

		Entry{"advisor.model", cfg.Advisor.Model, "Advisory model (empty uses the provider model)"},
		Entry{"advisor.temperature", cfg.Advisor.Temperature, "Advisory sampling temperature"},
		Entry{"advisor.max_tokens", cfg.Advisor.MaxTokens, "Advisory completion token limit (0 for provider default)"},
		Entry{"advisor.question_count", cfg.Advisor.QuestionCount, "Number of discovery questions requested"},

		Entry{"profile.risk_appetite", cfg.Profile.RiskAppetite, "Conservative, Moderate or Aggressive"},
		Entry{"profile.target_annual_return", cfg.Profile.TargetAnnualReturn, "Target annual return as a fraction"},
		Entry{"profile.min_acceptable_barrier", cfg.Profile.MinAcceptableBarrier, "Lowest acceptable barrier as a fraction"},
		Entry{"profile.excluded_sectors", cfg.Profile.ExcludedSectors, "Sectors the investor avoids"},
		Entry{"profile.preferred_markets", cfg.Profile.PreferredMarkets, "Markets the investor prefers"},
	)

	sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })
	return entries
}

// GetDefault returns the default entry for a config key.
// Returns nil if no default exists for the key.
func GetDefault(key string) *Entry {
	for _, entry := range DefaultEntries() {
		if entry.Key == key {
			return &entry
		}
	}
	return nil
}

// DefaultsWithPrefix returns the default entries under prefix.
func DefaultsWithPrefix(prefix string) []Entry {
	var out []Entry
	for _, entry := range DefaultEntries() {
		if strings.HasPrefix(entry.Key, prefix) {
			out = append(out, entry)
		}
	}
	return out
}
