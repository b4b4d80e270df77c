package prompts

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"sync"
)

// ErrUnknownPrompt is returned for keys no package registered.
var ErrUnknownPrompt = errors.New("unknown prompt")

// Resolver hands out prompt text, preferring an override file in the store
// over the embedded default. Unreadable overrides are logged and skipped.
type Resolver struct {
	store    *Store
	embedded map[string]EmbeddedPrompt
	mu       sync.RWMutex
	logger   *slog.Logger
}

// NewResolver creates a new prompt resolver. store may be nil.
func NewResolver(store *Store, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		store:    store,
		embedded: make(map[string]EmbeddedPrompt),
		logger:   logger,
	}
}

// Register adds or replaces the embedded default for prompt.Key.
func (r *Resolver) Register(prompt EmbeddedPrompt) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prompt.Hash == "" {
		prompt.Hash = HashText(prompt.Text)
	}
	if prompt.Variables == nil {
		prompt.Variables = ExtractVariables(prompt.Text)
	}

	r.embedded[prompt.Key] = prompt
	r.logger.Debug("registered embedded prompt", "key", prompt.Key, "vars", prompt.Variables)
}

func (r *Resolver) Resolve(key string) (*ResolvedPrompt, error) {
	embedded, ok := r.GetEmbedded(key)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPrompt, key)
	}

	text, path, found, err := r.store.Get(key)
	if err != nil {
		r.logger.Warn("ignoring prompt override", "key", key, "error", err)
	} else if found {
		return &ResolvedPrompt{
			Key:        key,
			Text:       text,
			Variables:  ExtractVariables(text),
			IsOverride: true,
			Hash:       HashText(text),
			Path:       path,
		}, nil
	}

	return &ResolvedPrompt{
		Key:       key,
		Text:      embedded.Text,
		Variables: embedded.Variables,
		Hash:      embedded.Hash,
	}, nil
}

// Text is Resolve for callers that carry their own default. A nil Resolver
// or an unknown key yields fallback.
func (r *Resolver) Text(key, fallback string) string {
	if r == nil {
		return fallback
	}
	p, err := r.Resolve(key)
	if err != nil {
		return fallback
	}
	return p.Text
}

// GetEmbedded ignores overrides.
func (r *Resolver) GetEmbedded(key string) (*EmbeddedPrompt, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.embedded[key]
	if !ok {
		return nil, false
	}
	return &p, true
}

// AllEmbedded returns the registered defaults ordered by key.
func (r *Resolver) AllEmbedded() []EmbeddedPrompt {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.SortedFunc(maps.Values(r.embedded), func(a, b EmbeddedPrompt) int {
		return strings.Compare(a.Key, b.Key)
	})
}

func (r *Resolver) List() []PromptInfo {
	all := r.AllEmbedded()
	infos := make([]PromptInfo, 0, len(all))
	for _, p := range all {
		_, _, found, _ := r.store.Get(p.Key)
		infos = append(infos, PromptInfo{
			Key:         p.Key,
			Description: p.Description,
			Variables:   p.Variables,
			Overridden:  found,
		})
	}
	return infos
}

// Export copies the embedded default for key into the store for editing.
// An existing override is only replaced when force is set.
func (r *Resolver) Export(key string, force bool) (string, error) {
	embedded, ok := r.GetEmbedded(key)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownPrompt, key)
	}
	if !force {
		_, path, found, err := r.store.Get(key)
		if err != nil {
			return "", err
		}
		if found {
			return "", fmt.Errorf("override already exists: %s (use --force to replace)", path)
		}
	}
	return r.store.Put(key, embedded.Text)
}

// Reset drops any override so key resolves to its embedded default again.
func (r *Resolver) Reset(key string) error {
	if _, ok := r.GetEmbedded(key); !ok {
		return fmt.Errorf("%w: %s", ErrUnknownPrompt, key)
	}
	return r.store.Delete(key)
}
