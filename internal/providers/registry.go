package providers

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"
)

// Registry maps provider names from the config file to live clients. It is
// rebuilt in place by Reload when the config changes.
type Registry struct {
	mu         sync.RWMutex
	llmClients map[string]LLMClient
	configs    map[string]LLMProviderConfig
	skipped    map[string]error // enabled providers that could not be created
	logger     *slog.Logger
}

// NewRegistry is empty; tests register mocks into it directly.
func NewRegistry() *Registry {
	return &Registry{
		llmClients: make(map[string]LLMClient),
		configs:    make(map[string]LLMProviderConfig),
		skipped:    make(map[string]error),
		logger:     slog.Default(),
	}
}

func (r *Registry) SetLogger(logger *slog.Logger) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logger = logger
}

// RegisterLLM replaces any client already under name.
func (r *Registry) RegisterLLM(name string, client LLMClient) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.llmClients[name] = client
	delete(r.skipped, name)
	if r.logger != nil {
		r.logger.Debug("registered LLM client", "name", name)
	}
}

// GetLLM returns an LLM client by name. An enabled provider that could not be
// created (usually for want of an API key) yields its *ConfigurationError.
func (r *Registry) GetLLM(name string) (LLMClient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if client, ok := r.llmClients[name]; ok {
		return client, nil
	}
	if err, ok := r.skipped[name]; ok {
		return nil, err
	}
	return nil, &ConfigurationError{Provider: name, Setting: "llm_providers." + name, Reason: "provider not found or disabled"}
}

// ListLLM returns all registered LLM client names, sorted.
func (r *Registry) ListLLM() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.llmClients))
	for name := range r.llmClients {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) HasLLM(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.llmClients[name]
	return ok
}

// RegistryConfig is the provider section of the config with keys resolved.
type RegistryConfig struct {
	LLMProviders map[string]LLMProviderConfig
}

type LLMProviderConfig struct {
	Type      string // gemini, openai or openrouter
	Model     string
	APIKey    string
	APIKeyEnv string // Variable the key came from, for error messages
	BaseURL   string // empty uses the vendor endpoint
	Timeout   time.Duration
	Enabled   bool

	// RequestsPerMinute wraps the client in a RateLimitedClient when set.
	RequestsPerMinute int
}

// NewRegistryFromConfig creates a client per provider. Only enabled providers are considered; those missing an API key are
// remembered so GetLLM can report why.
func NewRegistryFromConfig(cfg RegistryConfig) *Registry {
	r := NewRegistry()
	r.Reload(cfg)
	return r
}

// Reload brings the registry in line with cfg: dropped or disabled providers
// are removed and changed ones rebuilt. Unchanged clients are kept along with
// their rate limiter state.
func (r *Registry) Reload(cfg RegistryConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()

	want := make(map[string]bool)
	for name, provCfg := range cfg.LLMProviders {
		if !provCfg.Enabled {
			continue
		}
		want[name] = true

		if old, ok := r.configs[name]; ok && old == provCfg {
			if _, has := r.llmClients[name]; has {
				continue
			}
		}

		client, err := createLLMClient(name, provCfg)
		r.configs[name] = provCfg
		if err != nil {
			delete(r.llmClients, name)
			r.skipped[name] = err
			if r.logger != nil {
				r.logger.Debug("skipped LLM client", "name", name, "type", provCfg.Type, "error", err)
			}
			continue
		}
		_, existed := r.llmClients[name]
		r.llmClients[name] = client
		delete(r.skipped, name)
		if r.logger != nil {
			if existed {
				r.logger.Info("updated LLM client", "name", name, "type", provCfg.Type)
			} else {
				r.logger.Debug("registered LLM client", "name", name, "type", provCfg.Type)
			}
		}
	}

	// Drop what cfg no longer enables.
	for name := range r.configs {
		if !want[name] {
			delete(r.configs, name)
			delete(r.llmClients, name)
			delete(r.skipped, name)
			if r.logger != nil {
				r.logger.Info("unregistered LLM client", "name", name)
			}
		}
	}
}

// createLLMClient dispatches on cfg.Type.
func createLLMClient(name string, cfg LLMProviderConfig) (LLMClient, error) {
	oc := OpenAIConfig{
		Name:         name,
		APIKey:       cfg.APIKey,
		APIKeyEnv:    cfg.APIKeyEnv,
		BaseURL:      cfg.BaseURL,
		DefaultModel: cfg.Model,
		Timeout:      cfg.Timeout,
	}
	switch cfg.Type {
	case GeminiName:
		if oc.BaseURL == "" {
			oc.BaseURL = GeminiBaseURL
		}
		if oc.DefaultModel == "" {
			oc.DefaultModel = GeminiDefaultModel
		}
	case OpenRouterName:
		if oc.BaseURL == "" {
			oc.BaseURL = OpenRouterBaseURL
		}
	case OpenAIName:
	default:
		return nil, &ConfigurationError{Provider: name, Setting: "type", Reason: fmt.Sprintf("unknown provider type %q", cfg.Type)}
	}
	client, err := NewOpenAIClient(oc)
	if err != nil {
		return nil, err
	}
	if cfg.RequestsPerMinute > 0 {
		return NewRateLimitedClient(client, cfg.RequestsPerMinute), nil
	}
	return client, nil
}
