package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Dicklesworthstone/chatrail/internal/bookmarks"
)

// StarredTurn is a bookmarked prompt.
type StarredTurn struct {
	Turn    int    `json:"turn" yaml:"turn"`
	ID      string `json:"id" yaml:"id"`
	Summary string `json:"summary" yaml:"summary"`
}

// BookmarkSet is the stored bookmark list of one conversation.
type BookmarkSet struct {
	Conversation string   `json:"conversation" yaml:"conversation"`
	IDs          []string `json:"ids" yaml:"ids"`
}

func newBookmarksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "bookmarks",
		Aliases: []string{"stars"},
		Short:   "Manage starred turns",
		Long: `Manage starred turns. Bookmarks live in the configured store (file,
sqlite, redis, or memory) under "<namespace>:<conversation>" and are shared with
running viewers, which pick up changes live.

Subcommands:
  list    Show starred turns
  toggle  Star or unstar a turn
  export  Dump every bookmark set`,
	}

	cmd.AddCommand(
		newBookmarksListCmd(),
		newBookmarksToggleCmd(),
		newBookmarksExportCmd(),
	)
	return cmd
}

func newBookmarksListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list [conversation]",
		Short: "Show starred turns",
		Long: `Show the starred turns of one conversation, or a count per conversation
when none is named.

Examples:
  chatrail bookmarks list
  chatrail bookmarks list fix-login --json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()

			out := cmd.OutOrStdout()
			if len(args) == 0 {
				sets, err := allBookmarks(cmd.Context(), store)
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(out, sets)
				}
				t := NewStyledTable(outputTheme(), "CONVERSATION", "STARRED")
				for _, s := range sets {
					t.AddRow(s.Conversation, strconv.Itoa(len(s.IDs)))
				}
				fmt.Fprint(out, t.Render())
				return nil
			}

			turns, err := starredTurns(args[0], store)
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(out, turns)
			}
			if len(turns) == 0 {
				fmt.Fprintln(out, SubtleText(outputTheme(), "No starred turns"))
				return nil
			}
			t := NewStyledTable(outputTheme(), "TURN", "ID", "PROMPT")
			for _, st := range turns {
				t.AddRow(strconv.Itoa(st.Turn), st.ID, st.Summary)
			}
			fmt.Fprint(out, t.Render())
			return nil
		},
	}
}

func newBookmarksToggleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "toggle <conversation> <turn>",
		Short: "Star or unstar a turn",
		Long: `Flip the starred state of the n-th prompt (1-based) of a conversation.

Examples:
  chatrail bookmarks toggle fix-login 3`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid turn %q: %w", args[1], err)
			}
			store, err := openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()

			e, err := resolveEntry(args[0])
			if err != nil {
				return err
			}
			s, err := loadSnapshot(e, 80, 24, store)
			if err != nil {
				return err
			}
			defer s.close()

			markers := s.overlay.Markers()
			if n < 1 || n > len(markers) {
				return fmt.Errorf("turn %d out of range (1-%d)", n, len(markers))
			}
			m := markers[n-1]
			s.overlay.ToggleBookmark(m.ID)
			starred := s.overlay.Bookmarks().Has(m.ID)

			if jsonOutput {
				return writeJSON(cmd.OutOrStdout(), map[string]any{
					"conversation": e.Token,
					"turn":         n,
					"id":           m.ID,
					"starred":      starred,
				})
			}
			verb := "Unstarred"
			if starred {
				verb = "Starred"
			}
			fmt.Fprintln(cmd.OutOrStdout(), SuccessMessage(outputTheme(), fmt.Sprintf("%s turn %d of %s", verb, n, e.Token)))
			return nil
		},
	}
}

func newBookmarksExportCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Dump every bookmark set",
		Long: `Write every stored bookmark set as YAML or JSON.

Examples:
  chatrail bookmarks export > stars.yaml
  chatrail bookmarks export --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()

			sets, err := allBookmarks(cmd.Context(), store)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if jsonOutput {
				format = "json"
			}
			switch format {
			case "json":
				return writeJSON(out, sets)
			case "yaml", "yml":
				enc := yaml.NewEncoder(out)
				enc.SetIndent(2)
				if err := enc.Encode(sets); err != nil {
					return fmt.Errorf("encoding yaml: %w", err)
				}
				return enc.Close()
			default:
				return fmt.Errorf("unknown export format %q (want yaml or json)", format)
			}
		},
	}

	cmd.Flags().StringVar(&format, "format", "yaml", "Output format: yaml or json")
	return cmd
}

// allBookmarks reads every non-empty set in the configured namespace.
func allBookmarks(ctx context.Context, store bookmarks.Store) ([]BookmarkSet, error) {
	ns := cfg.Storage.Namespace
	keys, err := store.Keys(ctx, bookmarks.Key(ns, ""))
	if err != nil {
		return nil, fmt.Errorf("listing bookmarks: %w", err)
	}
	sets := make([]BookmarkSet, 0, len(keys))
	for _, k := range keys {
		cid, ok := bookmarks.ConversationFromKey(ns, k)
		if !ok {
			continue
		}
		raw, err := store.Get(ctx, k)
		if err != nil {
			logger.Debug().Err(err).Str("key", k).Msg("read bookmarks")
			continue
		}
		ids, err := bookmarks.Decode(raw)
		if err != nil {
			logger.Debug().Err(err).Str("key", k).Msg("malformed bookmarks")
		}
		if len(ids) == 0 {
			continue
		}
		sets = append(sets, BookmarkSet{Conversation: cid, IDs: ids})
	}
	return sets, nil
}

func starredTurns(arg string, store bookmarks.Store) ([]StarredTurn, error) {
	e, err := resolveEntry(arg)
	if err != nil {
		return nil, err
	}
	s, err := loadSnapshot(e, 80, 24, store)
	if err != nil {
		return nil, err
	}
	defer s.close()

	var out []StarredTurn
	for i, m := range s.overlay.Markers() {
		if m.Starred {
			out = append(out, StarredTurn{Turn: i + 1, ID: m.ID, Summary: m.Summary})
		}
	}
	return out, nil
}
