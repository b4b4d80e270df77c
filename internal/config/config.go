// Package config loads notewise configuration from defaults, a YAML file,
// .env files and NOTEWISE_* environment variables, and hot-reloads it.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"regexp"
	"slices"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"github.com/samber/lo"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v2"

	"github.com/jackzampolin/notewise/internal/providers"
)

// EnvPrefix prefixes environment overrides, e.g. NOTEWISE_DEFAULTS_RETRIES.
const EnvPrefix = "NOTEWISE"

// ErrInvalidKey is returned when a config key contains invalid characters.
var ErrInvalidKey = errors.New("invalid config key")

// ValidateKey checks if a config key contains only allowed characters.
// Valid keys contain: letters, digits, dots, underscores, and hyphens.
func ValidateKey(key string) error {
	if key == "" {
		return fmt.Errorf("%w: key cannot be empty", ErrInvalidKey)
	}
	for i, r := range key {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '.' && r != '_' && r != '-' {
			return fmt.Errorf("%w: invalid character %q at position %d", ErrInvalidKey, r, i)
		}
	}
	// Don't allow keys starting or ending with dots
	if key[0] == '.' || key[len(key)-1] == '.' {
		return fmt.Errorf("%w: key cannot start or end with a dot", ErrInvalidKey)
	}
	return nil
}

// Manager owns the viper instance behind the effective configuration and
// republishes it to subscribers when the file changes.
type Manager struct {
	mu        sync.RWMutex
	v         *viper.Viper
	config    *Config
	callbacks []func(*Config)
	logger    *slog.Logger
}

// NewManager reads the configuration once. An explicit cfgFile must parse;
// an empty cfgFile searches for config.yaml in searchPaths, or in the
// working directory and $HOME/.notewise when none are given.
func NewManager(cfgFile string, searchPaths ...string) (*Manager, error) {
	m := &Manager{v: viper.New(), logger: slog.Default()}
	if err := m.initViper(cfgFile, searchPaths); err != nil {
		return nil, err
	}
	current, err := m.load()
	if err != nil {
		return nil, err
	}
	m.config = current
	return m, nil
}

// initViper layers defaults, NOTEWISE_* variables and the config file.
func (cm *Manager) initViper(cfgFile string, searchPaths []string) error {
	for _, entry := range DefaultEntries() {
		cm.v.SetDefault(entry.Key, entry.Value)
	}

	cm.v.SetEnvPrefix(EnvPrefix)
	cm.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	cm.v.AutomaticEnv()

	if cfgFile != "" {
		cm.v.SetConfigFile(cfgFile)
	} else {
		cm.v.SetConfigName("config")
		cm.v.SetConfigType("yaml")
		if len(searchPaths) == 0 {
			searchPaths = []string{".", "$HOME/.notewise"}
		}
		for _, p := range searchPaths {
			cm.v.AddConfigPath(p)
		}
	}

	// Running without any config file is fine; defaults cover everything.
	err := cm.v.ReadInConfig()
	var notFound viper.ConfigFileNotFoundError
	if err != nil && !errors.As(err, &notFound) {
		return fmt.Errorf("read config file: %w", err)
	}
	return nil
}

func (cm *Manager) load() (*Config, error) {
	out := new(Config)
	if err := cm.v.Unmarshal(out); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return out, nil
}

// SetLogger sets the logger used for reload messages.
func (cm *Manager) SetLogger(logger *slog.Logger) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.logger = logger
}

// Get returns the configuration in effect. Callers must treat it as read-only;
// a reload swaps in a new value rather than mutating this one.
func (cm *Manager) Get() *Config {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.config
}

// ConfigFile returns the config file in use, or "" when running on defaults.
func (cm *Manager) ConfigFile() string {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.v.ConfigFileUsed()
}

// Value returns the effective value of a single key.
func (cm *Manager) Value(key string) (any, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	if !cm.v.IsSet(key) {
		return nil, fmt.Errorf("%w: unknown key %q", ErrInvalidKey, key)
	}
	return cm.v.Get(key), nil
}

// OnChange subscribes fn to successful reloads.
func (cm *Manager) OnChange(fn func(*Config)) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.callbacks = append(cm.callbacks, fn)
}

// WatchConfig re-reads the file on every write. A file that no longer
// parses keeps the previous configuration in effect.
func (cm *Manager) WatchConfig() {
	cm.v.OnConfigChange(func(e fsnotify.Event) {
		next, err := cm.load()

		cm.mu.Lock()
		logger := cm.logger
		if err != nil {
			cm.mu.Unlock()
			logger.Warn("config reload failed", "file", e.Name, "error", err)
			return
		}
		cm.config = next
		subscribers := slices.Clone(cm.callbacks)
		cm.mu.Unlock()

		logger.Info("config reloaded", "file", e.Name)
		for _, notify := range subscribers {
			notify(next)
		}
	})
	cm.v.WatchConfig()
}

// LoadDotEnv loads environment variables from the given .env files. Missing
// files are skipped and variables already set in the environment win.
func LoadDotEnv(paths ...string) error {
	for _, p := range paths {
		if _, err := os.Stat(p); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// ResolveEnvVars substitutes every ${NAME} in value with $NAME from the
// environment. Unset variables become empty.
func ResolveEnvVars(value string) string {
	return envVarPattern.ReplaceAllStringFunc(value, func(ref string) string {
		return os.Getenv(envVarPattern.FindStringSubmatch(ref)[1])
	})
}

// envVarName returns VAR when value is exactly "${VAR}".
func envVarName(value string) string {
	m := envVarPattern.FindStringSubmatch(strings.TrimSpace(value))
	if m == nil || m[0] != strings.TrimSpace(value) {
		return ""
	}
	return m[1]
}

// ToProviderRegistryConfig builds what providers.Registry needs, with API
// keys expanded from the environment. APIKeyEnv keeps the variable name so
// a missing key can be reported by name.
func (c *Config) ToProviderRegistryConfig() providers.RegistryConfig {
	return providers.RegistryConfig{
		LLMProviders: lo.MapValues(c.LLMProviders, func(p LLMProviderCfg, _ string) providers.LLMProviderConfig {
			return providers.LLMProviderConfig{
				Type:              p.Type,
				Model:             p.Model,
				APIKey:            ResolveEnvVars(p.APIKey),
				APIKeyEnv:         envVarName(p.APIKey),
				BaseURL:           p.BaseURL,
				Timeout:           time.Duration(p.TimeoutSeconds) * time.Second,
				Enabled:           p.Enabled,
				RequestsPerMinute: p.RequestsPerMinute,
			}
		}),
	}
}

// WriteDefault writes DefaultConfig to path as commented YAML, the file
// `notewise config init` creates.
func WriteDefault(path string) error {
	body, err := yaml.Marshal(DefaultConfig())
	if err != nil {
		return fmt.Errorf("encode default config: %w", err)
	}

	header := []byte(`# notewise configuration
# api_key values may reference the environment as ${NAME}.
# Set these in your shell or in ~/.notewise/.env: GOOGLE_API_KEY=xxx
# Any key can be overridden with NOTEWISE_<KEY>, e.g. NOTEWISE_DEFAULTS_RETRIES=2

`)
	return os.WriteFile(path, append(header, body...), 0o644)
}
