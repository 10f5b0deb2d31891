package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Dicklesworthstone/chatrail/internal/config"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the configuration",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Print the effective configuration as TOML",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				if jsonOutput {
					return writeJSON(cmd.OutOrStdout(), cfg)
				}
				return config.Print(cfg, cmd.OutOrStdout())
			},
		},
		&cobra.Command{
			Use:   "path",
			Short: "Print the config and flags file locations",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				path := cfgFile
				if path == "" {
					path = config.DefaultPath()
				}
				fmt.Fprintln(cmd.OutOrStdout(), path)
				fmt.Fprintln(cmd.OutOrStdout(), config.FlagsPath())
				return nil
			},
		},
		&cobra.Command{
			Use:   "init",
			Short: "Write a default config file if none exists",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				path, err := config.CreateDefault()
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), SuccessMessage(outputTheme(), "Created "+path))
				return nil
			},
		},
	)
	return cmd
}
