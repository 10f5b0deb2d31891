// Package cli implements the chatrail command line.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/Dicklesworthstone/chatrail/internal/config"
	"github.com/Dicklesworthstone/chatrail/internal/logging"
)

var (
	cfgFile string
	cfg     *config.Config

	// Global JSON output flag - inherited by all subcommands
	jsonOutput bool

	// --debug logs to stderr instead of the log file
	debug bool

	logger    = zerolog.Nop()
	logCloser io.Closer

	// Build information - set via ldflags
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "chatrail [conversation]",
	Short: "Read AI assistant transcripts with a turn navigation rail",
	Long: `chatrail renders Claude, Codex, and generic JSONL session logs in the
terminal with a rail of your own prompts along the right edge. Click or press
enter on a rail mark to jump to that turn; long-press or press s to star it.

A conversation can be named by token, by route (/chat/<token>), or by path.
Without an argument the most recently modified conversation is opened.

Examples:
  chatrail                         # newest conversation
  chatrail fix-login-bug           # by token
  chatrail ~/logs/session.jsonl    # by path
  chatrail list                    # what is in the library
  chatrail rail fix-login-bug      # print the rail without the TUI`,
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return loadConfig()
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return closeLog()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runView(cmd.Context(), args)
	},
}

func loadConfig() error {
	c, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	cfg = c

	l, closer, err := logging.Open(cfg.Log, debug)
	if err != nil {
		// a broken log file does not stop the command
		fmt.Fprintf(os.Stderr, "warning: %v\n", err)
		l, closer = zerolog.Nop(), nil
	}
	logger, logCloser = l, closer
	return nil
}

func closeLog() error {
	if logCloser == nil {
		return nil
	}
	err := logCloser.Close()
	logCloser = nil
	return err
}

// Execute runs the root command until it finishes or the process is interrupted.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		// SilenceErrors is set so JSON mode can report errors itself
		if !jsonOutput {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		return err
	}
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.config/chatrail/config.toml)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format (machine-readable)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Log to stderr at debug level")

	rootCmd.AddCommand(
		newViewCmd(),
		newListCmd(),
		newRailCmd(),
		newBookmarksCmd(),
		newFlagsCmd(),
		newConfigCmd(),
		newVersionCmd(),
	)
}
