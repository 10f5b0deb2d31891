package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Dicklesworthstone/chatrail/internal/tui/layout"
)

// RailItemInfo is one rail item in `chatrail rail --json` output.
type RailItemInfo struct {
	Kind    string   `json:"kind"`
	Handle  string   `json:"handle"`
	Row     int      `json:"row"`
	Offset  float64  `json:"offset"`
	Members []string `json:"members"`
	Starred bool     `json:"starred,omitempty"`
	Active  bool     `json:"active,omitempty"`
	Label   string   `json:"label"`
}

// RailInfo is the JSON form of a rail snapshot.
type RailInfo struct {
	Conversation string         `json:"conversation"`
	Turns        int            `json:"turns"`
	Active       string         `json:"active,omitempty"`
	ActiveIndex  int            `json:"active_index"`
	Fisheye      bool           `json:"fisheye"`
	ScrollRow    int            `json:"scroll_row"`
	Height       int            `json:"height"`
	Items        []RailItemInfo `json:"items"`
}

func newRailCmd() *cobra.Command {
	var (
		height int
		width  int
		scroll int
		turn   int
	)

	cmd := &cobra.Command{
		Use:   "rail <conversation>",
		Short: "Print the navigation rail for a conversation",
		Long: `Lay out the rail for a conversation without starting the viewer and print
it, one line per terminal row, with the label of every mark.

The size defaults to the current terminal (80x24 when output is not a terminal).

Examples:
  chatrail rail fix-login                 # rail at the top of the conversation
  chatrail rail fix-login --scroll 200    # as seen with row 200 at the top
  chatrail rail fix-login --turn 12       # after jumping to the 12th prompt
  chatrail rail fix-login --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := resolveEntry(args[0])
			if err != nil {
				return err
			}
			tw, th := terminalSize(80, 24)
			if width <= 0 {
				width = tw
			}
			if height <= 0 {
				height = th
			}

			store, err := openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()

			s, err := loadSnapshot(e, width, height, store)
			if err != nil {
				return err
			}
			defer s.close()

			if scroll > 0 {
				s.scrollToRow(scroll)
			}
			if turn > 0 {
				if err := s.jumpToTurn(turn); err != nil {
					return err
				}
			}

			if jsonOutput {
				return writeJSON(cmd.OutOrStdout(), s.railInfo())
			}
			s.printRail(cmd.OutOrStdout())
			return nil
		},
	}

	cmd.Flags().IntVar(&height, "height", 0, "Terminal height in rows (default: current terminal)")
	cmd.Flags().IntVar(&width, "width", 0, "Terminal width in columns (default: current terminal)")
	cmd.Flags().IntVar(&scroll, "scroll", 0, "Scroll the transcript to this row first")
	cmd.Flags().IntVar(&turn, "turn", 0, "Jump to this prompt (1-based) first")

	return cmd
}

func (s *snapshot) railInfo() RailInfo {
	v := s.rail.RailView()
	info := RailInfo{
		Conversation: s.entry.Token,
		Turns:        v.Total,
		Active:       v.ActiveID,
		ActiveIndex:  v.ActiveIndex,
		Fisheye:      v.Fisheye(),
		ScrollRow:    s.doc.ScrollRow(),
		Height:       s.rail.Height(),
		Items:        make([]RailItemInfo, 0, len(v.Items)),
	}
	for _, it := range v.Items {
		info.Items = append(info.Items, RailItemInfo{
			Kind:    it.Kind.String(),
			Handle:  it.Handle,
			Row:     s.rail.Row(it.Offset),
			Offset:  it.Offset,
			Members: it.IDs,
			Starred: it.Starred,
			Active:  it.Active,
			Label:   it.Label(),
		})
	}
	return info
}

func (s *snapshot) printRail(w io.Writer) {
	docWidth, _ := s.doc.Size()
	labelWidth := max(layout.TooltipMax, docWidth/2)
	lines := strings.Split(s.rail.View(), "\n")
	for row, line := range lines {
		if it, ok := s.rail.ItemAt(row); ok {
			line += " " + layout.TruncateWidthDefault(it.Label(), labelWidth)
		}
		fmt.Fprintln(w, strings.TrimRight(line, " "))
	}
	v := s.rail.RailView()
	if v.Total > 0 && v.ActiveIndex >= 0 {
		fmt.Fprintln(w, SubtleText(outputTheme(), fmt.Sprintf("turn %d/%d", v.ActiveIndex+1, v.Total)))
	}
}
