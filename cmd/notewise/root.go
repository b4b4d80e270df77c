package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/notewise/internal/config"
	"github.com/jackzampolin/notewise/internal/home"
	"github.com/jackzampolin/notewise/internal/output"
	"github.com/jackzampolin/notewise/internal/prompts"
	"github.com/jackzampolin/notewise/internal/prompts/advisory"
	"github.com/jackzampolin/notewise/internal/prompts/extraction"
	"github.com/jackzampolin/notewise/internal/providers"
	"github.com/jackzampolin/notewise/internal/svcctx"
	"github.com/jackzampolin/notewise/version"
)

var (
	cfgFile      string
	homeDir      string
	outputFormat string
	logLevel     string
	providerName string
)

var rootCmd = &cobra.Command{
	Use:   "notewise",
	Short: "Structured note extraction and advisory",
	Long: `Notewise turns term sheets, emails and screenshots describing structured
notes into validated records, and asks a language model for advice on them.

Each document is sent to the configured inference service once. Every record
it returns is canonicalized, normalized and validated on its own, so a bad
record is reported without discarding the others.`,
	Version:           version.GitRelease,
	SilenceUsage:      true,
	PersistentPreRunE: setupServices,
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ./config.yaml or ~/.notewise/config.yaml)",
	)
	rootCmd.PersistentFlags().StringVar(
		&homeDir, "home", "", "notewise home directory (default: $NOTEWISE_HOME or ~/.notewise)",
	)
	rootCmd.PersistentFlags().StringVarP(
		&outputFormat, "output", "o", "yaml", "output format: yaml or json",
	)
	rootCmd.PersistentFlags().StringVar(
		&logLevel, "log-level", "warn", "log level: debug, info, warn or error",
	)
	rootCmd.PersistentFlags().StringVar(
		&providerName, "provider", "", "LLM provider (default: defaults.llm_provider)",
	)

	rootCmd.AddCommand(extractCmd)
	rootCmd.AddCommand(adviseCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(promptsCmd)
	rootCmd.AddCommand(versionCmd)
}

// setupServices builds the logger, config, provider registry and prompt
// resolver, and attaches them to the command context.
func setupServices(cmd *cobra.Command, args []string) error {
	output.SetFormat(outputFormat)

	var level slog.Level
	if err := level.UnmarshalText([]byte(logLevel)); err != nil {
		return fmt.Errorf("invalid --log-level %q: %w", logLevel, err)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	h, err := home.New(homeDir)
	if err != nil {
		return err
	}

	if err := config.LoadDotEnv(".env", h.EnvPath()); err != nil {
		return err
	}

	mgr, err := config.NewManager(cfgFile, ".", h.Path())
	if err != nil {
		return err
	}
	mgr.SetLogger(logger)

	registry := providers.NewRegistry()
	registry.SetLogger(logger)
	registry.Reload(mgr.Get().ToProviderRegistryConfig())

	resolver := prompts.NewResolver(prompts.NewStore(h.PromptsDir(), logger), logger)
	extraction.RegisterPrompts(resolver)
	advisory.RegisterPrompts(resolver)

	cmd.SetContext(svcctx.WithServices(cmd.Context(), &svcctx.Services{
		Registry: registry,
		Config:   mgr,
		Prompts:  resolver,
		Logger:   logger,
		Home:     h,
	}))
	return nil
}
