package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Dicklesworthstone/chatrail/internal/bookmarks"
	"github.com/Dicklesworthstone/chatrail/internal/config"
	"github.com/Dicklesworthstone/chatrail/internal/tui/theme"
	"github.com/Dicklesworthstone/chatrail/internal/tui/viewer"
)

func newViewCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "view [conversation]",
		Short: "Open a conversation in the viewer",
		Long: `Open a conversation in the interactive viewer.

The conversation is followed while it is open: messages appended by a running
assistant show up live and the rail grows with them. ctrl+n and ctrl+p move
through the other conversations in the library.

Examples:
  chatrail view                     # newest conversation
  chatrail view /chat/fix-login     # by route
  chatrail view ./session.jsonl     # any JSONL file`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runView(cmd.Context(), args)
		},
	}
}

func runView(ctx context.Context, args []string) error {
	var arg string
	if len(args) > 0 {
		arg = args[0]
	}
	entries, start, err := resolveEntries(arg)
	if err != nil {
		return err
	}

	flagsPath := config.FlagsPath()
	flags, err := config.LoadFlags(flagsPath)
	if err != nil {
		logger.Warn().Err(err).Str("path", flagsPath).Msg("flags unreadable, using defaults")
		flags = config.DefaultFlags()
	}

	store := bookmarks.OpenOrMemory(ctx, cfg.Bookmarks(), logger)
	defer func() {
		if err := store.Close(); err != nil {
			logger.Debug().Err(err).Msg("close bookmark store")
		}
	}()

	w, h := terminalSize(80, 24)
	logger.Info().Str("conversation", entries[start].Token).Int("library", len(entries)).Msg("viewer starting")
	if err := viewer.Run(ctx, viewer.Options{
		Config:    cfg,
		Entries:   entries,
		Start:     start,
		Store:     store,
		Flags:     flags,
		FlagsPath: flagsPath,
		Dark:      theme.DetectDark(cfg.Theme),
		Logger:    logger,
		Width:     w,
		Height:    h,
	}); err != nil {
		return fmt.Errorf("viewer: %w", err)
	}
	return nil
}
