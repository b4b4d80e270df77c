package providers

import (
	"errors"
	"sync"
	"testing"
)

func TestRegistry(t *testing.T) {
	t.Run("register and get LLM", func(t *testing.T) {
		r := NewRegistry()
		mock := NewMockClient()

		r.RegisterLLM("test-llm", mock)

		client, err := r.GetLLM("test-llm")
		if err != nil {
			t.Fatalf("GetLLM() error = %v", err)
		}
		if client != mock {
			t.Error("got different client than registered")
		}
	})

	t.Run("get nonexistent LLM", func(t *testing.T) {
		r := NewRegistry()

		_, err := r.GetLLM("nonexistent")
		if !errors.Is(err, ErrConfiguration) {
			t.Errorf("GetLLM() error = %v, want ErrConfiguration", err)
		}
	})

	t.Run("list sorted", func(t *testing.T) {
		r := NewRegistry()
		r.RegisterLLM("b", NewMockClient())
		r.RegisterLLM("a", NewMockClient())

		got := r.ListLLM()
		if len(got) != 2 || got[0] != "a" || got[1] != "b" {
			t.Errorf("ListLLM() = %v", got)
		}
		if !r.HasLLM("a") || r.HasLLM("c") {
			t.Error("HasLLM() mismatch")
		}
	})

	t.Run("concurrent access", func(t *testing.T) {
		r := NewRegistry()
		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(2)
			go func() {
				defer wg.Done()
				r.RegisterLLM("llm", NewMockClient())
			}()
			go func() {
				defer wg.Done()
				_, _ = r.GetLLM("llm")
				_ = r.ListLLM()
			}()
		}
		wg.Wait()
	})
}

func TestRegistryFromConfig(t *testing.T) {
	cfg := RegistryConfig{
		LLMProviders: map[string]LLMProviderConfig{
			"gemini":     {Type: "gemini", APIKey: "g-key", Enabled: true},
			"openai":     {Type: "openai", APIKeyEnv: "OPENAI_API_KEY", Enabled: true},
			"openrouter": {Type: "openrouter", APIKey: "or-key", Enabled: false},
			"weird":      {Type: "carrier-pigeon", APIKey: "x", Enabled: true},
		},
	}
	r := NewRegistryFromConfig(cfg)

	client, err := r.GetLLM("gemini")
	if err != nil {
		t.Fatalf("GetLLM(gemini) error = %v", err)
	}
	oc, ok := client.(*OpenAIClient)
	if !ok {
		t.Fatalf("client type = %T", client)
	}
	if oc.Name() != "gemini" || oc.Model() != GeminiDefaultModel || oc.baseURL != GeminiBaseURL {
		t.Errorf("gemini client = name %q model %q base %q", oc.Name(), oc.Model(), oc.baseURL)
	}

	_, err = r.GetLLM("openai")
	var cfgErr *ConfigurationError
	if !errors.As(err, &cfgErr) || cfgErr.Setting != "OPENAI_API_KEY" {
		t.Errorf("GetLLM(openai) error = %v, want missing OPENAI_API_KEY", err)
	}

	if _, err := r.GetLLM("openrouter"); !errors.Is(err, ErrConfiguration) {
		t.Errorf("disabled provider error = %v", err)
	}
	if _, err := r.GetLLM("weird"); !errors.Is(err, ErrConfiguration) {
		t.Errorf("unknown type error = %v", err)
	}
	if got := r.ListLLM(); len(got) != 1 || got[0] != "gemini" {
		t.Errorf("ListLLM() = %v", got)
	}
}

func TestRegistryReload(t *testing.T) {
	r := NewRegistryFromConfig(RegistryConfig{
		LLMProviders: map[string]LLMProviderConfig{
			"gemini": {Type: "gemini", APIKey: "old", Enabled: true},
			"openai": {Type: "openai", APIKey: "sk", Enabled: true},
		},
	})
	before, _ := r.GetLLM("gemini")
	openaiBefore, _ := r.GetLLM("openai")

	r.Reload(RegistryConfig{
		LLMProviders: map[string]LLMProviderConfig{
			"gemini": {Type: "gemini", APIKey: "new", Enabled: true},
			"openai": {Type: "openai", APIKey: "sk", Enabled: true},
		},
	})

	after, err := r.GetLLM("gemini")
	if err != nil {
		t.Fatalf("GetLLM() after reload error = %v", err)
	}
	if after == before {
		t.Error("changed provider was not recreated")
	}
	if after.(*OpenAIClient).apiKey != "new" {
		t.Error("reloaded client has the old key")
	}
	openaiAfter, _ := r.GetLLM("openai")
	if openaiAfter != openaiBefore {
		t.Error("unchanged provider was recreated")
	}

	r.Reload(RegistryConfig{})
	if r.HasLLM("gemini") || r.HasLLM("openai") {
		t.Errorf("providers not removed: %v", r.ListLLM())
	}
}

func TestRegistryRateLimited(t *testing.T) {
	r := NewRegistryFromConfig(RegistryConfig{
		LLMProviders: map[string]LLMProviderConfig{
			"gemini": {Type: "gemini", APIKey: "g-key", Enabled: true, RequestsPerMinute: 30},
		},
	})

	client, err := r.GetLLM("gemini")
	if err != nil {
		t.Fatalf("GetLLM() error = %v", err)
	}
	limited, ok := client.(*RateLimitedClient)
	if !ok {
		t.Fatalf("client = %T, want *RateLimitedClient", client)
	}
	if limited.Name() != "gemini" || limited.Limiter().Status().TokensLimit != 30 {
		t.Errorf("name = %s, status = %+v", limited.Name(), limited.Limiter().Status())
	}
}
