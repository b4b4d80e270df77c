package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/notewise/internal/config"
	"github.com/jackzampolin/notewise/internal/output"
	"github.com/jackzampolin/notewise/internal/svcctx"
)

var configInitForce bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and initialize configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default config to the home directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		h := svcctx.HomeFrom(cmd.Context())
		if err := h.EnsureExists(); err != nil {
			return err
		}
		path := h.ConfigPath()
		if h.ConfigExists() && !configInitForce {
			return fmt.Errorf("config already exists: %s (use --force to replace)", path)
		}
		if err := config.WriteDefault(path); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Long: `Print the effective configuration: defaults, then the config file, then
NOTEWISE_* environment overrides. API keys are shown as written, so
${ENV_VAR} references are not expanded.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return output.Print(svcctx.ConfigFrom(cmd.Context()).Get())
	},
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Print one configuration value",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		value, err := svcctx.ConfigFrom(cmd.Context()).Value(args[0])
		if err != nil {
			return err
		}
		return output.Print(map[string]any{args[0]: value})
	},
}

var configDefaultsCmd = &cobra.Command{
	Use:   "defaults [prefix]",
	Short: "List configuration keys with their defaults",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 1 {
			return output.Print(config.DefaultsWithPrefix(args[0]))
		}
		return output.Print(config.DefaultEntries())
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config file in use",
	Run: func(cmd *cobra.Command, args []string) {
		if path := svcctx.ConfigFrom(cmd.Context()).ConfigFile(); path != "" {
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return
		}
		fmt.Fprintf(cmd.OutOrStdout(), "none (defaults only; run notewise config init to create %s)\n",
			svcctx.HomeFrom(cmd.Context()).ConfigPath())
	},
}

func init() {
	configInitCmd.Flags().BoolVar(&configInitForce, "force", false, "overwrite an existing config")

	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configDefaultsCmd)
	configCmd.AddCommand(configPathCmd)
}
