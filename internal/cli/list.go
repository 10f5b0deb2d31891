package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Dicklesworthstone/chatrail/internal/transcript"
	"github.com/Dicklesworthstone/chatrail/internal/util"
)

// ConversationInfo is one row of `chatrail list`.
type ConversationInfo struct {
	Token    string    `json:"token" yaml:"token"`
	Route    string    `json:"route" yaml:"route"`
	Path     string    `json:"path" yaml:"path"`
	Format   string    `json:"format,omitempty" yaml:"format,omitempty"`
	Turns    int       `json:"turns" yaml:"turns"`
	Messages int       `json:"messages" yaml:"messages"`
	Size     int64     `json:"size" yaml:"size"`
	Modified time.Time `json:"modified" yaml:"modified"`
}

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List conversations in the library",
		Long: `List the conversations in the configured directory, newest first.

Examples:
  chatrail list
  chatrail list --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			infos, err := listConversations()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if jsonOutput {
				return writeJSON(out, infos)
			}
			if len(infos) == 0 {
				fmt.Fprintln(out, SubtleText(outputTheme(), "No conversations in "+cfg.ConversationsDir))
				return nil
			}
			t := NewStyledTable(outputTheme(), "CONVERSATION", "FORMAT", "TURNS", "SIZE", "MODIFIED")
			for _, c := range infos {
				t.AddRow(c.Token, c.Format, fmt.Sprint(c.Turns), util.FormatBytes(c.Size), c.Modified.Format("2006-01-02 15:04"))
			}
			t.WithFooter(fmt.Sprintf("%d conversation(s) in %s", len(infos), cfg.ConversationsDir))
			fmt.Fprint(out, t.Render())
			return nil
		},
	}
}

func listConversations() ([]ConversationInfo, error) {
	entries, err := library().List()
	if err != nil {
		return nil, err
	}
	infos := make([]ConversationInfo, 0, len(entries))
	for _, e := range entries {
		info := ConversationInfo{
			Token:    e.Token,
			Route:    e.Route(),
			Path:     e.Path,
			Size:     e.Size,
			Modified: e.ModTime,
		}
		f := transcript.NewFollower(e.Path, cfg.TranscriptFormat(), nil)
		msgs, err := f.Load()
		if err != nil {
			logger.Debug().Err(err).Str("path", e.Path).Msg("read conversation")
		}
		info.Format = string(f.Format())
		info.Messages = len(msgs)
		for _, m := range msgs {
			if m.IsUser() {
				info.Turns++
			}
		}
		infos = append(infos, info)
	}
	return infos, nil
}
