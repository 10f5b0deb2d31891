package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/Dicklesworthstone/chatrail/internal/config"
)

func newFlagsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "flags",
		Short: "Switch the rail on or off",
		Long: `Show or change the feature flags that decide whether the rail is shown.

The rail is shown when the global switch is on and the conversation's provider
(claude, codex, generic) is not disabled. Running viewers apply changes live.

Examples:
  chatrail flags show
  chatrail flags disable                    # rail off everywhere
  chatrail flags disable --provider codex   # off for Codex logs only`,
	}

	cmd.AddCommand(
		newFlagsShowCmd(),
		newFlagsSetCmd("enable", true),
		newFlagsSetCmd("disable", false),
	)
	return cmd
}

func newFlagsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the current flags",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := config.LoadFlags(config.FlagsPath())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if jsonOutput {
				return writeJSON(out, f)
			}
			fmt.Fprintf(out, "enabled: %t\n", f.Enabled)
			names := make([]string, 0, len(f.Providers))
			for p := range f.Providers {
				names = append(names, p)
			}
			sort.Strings(names)
			for _, p := range names {
				fmt.Fprintf(out, "provider %s: %t\n", p, f.Providers[p])
			}
			return nil
		},
	}
}

func newFlagsSetCmd(name string, on bool) *cobra.Command {
	var provider string

	cmd := &cobra.Command{
		Use:   name,
		Short: fmt.Sprintf("%s the rail globally or for one provider", name),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.FlagsPath()
			f, err := config.LoadFlags(path)
			if err != nil {
				return err
			}
			if provider == "" {
				f.Enabled = on
			} else {
				providers := make(map[string]bool, len(f.Providers)+1)
				for k, v := range f.Providers {
					providers[k] = v
				}
				providers[provider] = on
				f.Providers = providers
			}
			if err := config.SaveFlags(path, f); err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd.OutOrStdout(), f)
			}
			what := "rail"
			if provider != "" {
				what = "rail for " + provider
			}
			fmt.Fprintln(cmd.OutOrStdout(), SuccessMessage(outputTheme(), fmt.Sprintf("%s %sd", what, name)))
			return nil
		},
	}

	cmd.Flags().StringVar(&provider, "provider", "", "Only change this provider (claude, codex, generic)")
	return cmd
}
