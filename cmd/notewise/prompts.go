package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/notewise/internal/output"
	"github.com/jackzampolin/notewise/internal/svcctx"
)

var (
	promptsExportForce bool
	promptsExportAll   bool
)

var promptsCmd = &cobra.Command{
	Use:   "prompts",
	Short: "Manage prompt overrides",
	Long: `Prompts are embedded in the binary. Exporting one writes it to the prompts
directory under the notewise home, where edits override the embedded text.
Resetting deletes the override.`,
}

var promptsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List prompts and whether they are overridden",
	RunE: func(cmd *cobra.Command, args []string) error {
		return output.Print(svcctx.PromptsFrom(cmd.Context()).List())
	},
}

var promptsShowCmd = &cobra.Command{
	Use:   "show <key>",
	Short: "Print the prompt text in effect",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		resolved, err := svcctx.PromptsFrom(cmd.Context()).Resolve(args[0])
		if err != nil {
			return err
		}
		return output.Print(resolved)
	},
}

var promptsExportCmd = &cobra.Command{
	Use:   "export [key]",
	Short: "Write embedded prompts to the override directory for editing",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		resolver := svcctx.PromptsFrom(cmd.Context())

		var keys []string
		switch {
		case promptsExportAll:
			for _, p := range resolver.AllEmbedded() {
				keys = append(keys, p.Key)
			}
		case len(args) == 1:
			keys = args
		default:
			return fmt.Errorf("pass a prompt key or --all")
		}

		for _, key := range keys {
			path, err := resolver.Export(key, promptsExportForce)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s\n", key, path)
		}
		return nil
	},
}

var promptsResetCmd = &cobra.Command{
	Use:   "reset <key>",
	Short: "Delete a prompt override",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := svcctx.PromptsFrom(cmd.Context()).Reset(args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Reset %s\n", args[0])
		return nil
	},
}

func init() {
	promptsExportCmd.Flags().BoolVar(&promptsExportForce, "force", false, "replace existing overrides")
	promptsExportCmd.Flags().BoolVar(&promptsExportAll, "all", false, "export every prompt")

	promptsCmd.AddCommand(promptsListCmd)
	promptsCmd.AddCommand(promptsShowCmd)
	promptsCmd.AddCommand(promptsExportCmd)
	promptsCmd.AddCommand(promptsResetCmd)
}
