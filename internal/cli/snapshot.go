package cli

import (
	"fmt"
	"time"

	"github.com/Dicklesworthstone/chatrail/internal/bookmarks"
	"github.com/Dicklesworthstone/chatrail/internal/host"
	"github.com/Dicklesworthstone/chatrail/internal/scheduler"
	"github.com/Dicklesworthstone/chatrail/internal/timeline"
	"github.com/Dicklesworthstone/chatrail/internal/transcript"
	"github.com/Dicklesworthstone/chatrail/internal/tui/layout"
	"github.com/Dicklesworthstone/chatrail/internal/tui/panels"
)

// settle is how far the headless clock is advanced for the rail to attach,
// lay out, and finish a scroll animation.
const settle = 5 * time.Second

// snapshot is a headless rail over one conversation, driven by a manual clock.
type snapshot struct {
	entry   transcript.Entry
	doc     *host.Document
	rail    *panels.RailPanel
	overlay *timeline.Overlay
	sched   *scheduler.Manual
}

func loadSnapshot(e transcript.Entry, width, height int, store bookmarks.Store) (*snapshot, error) {
	msgs, err := transcript.ParseFile(e.Path, cfg.TranscriptFormat())
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", e.Token, err)
	}

	sched := scheduler.NewManual(time.Now())
	regions := layout.Split(width, height, cfg.Rail.Width)
	doc := host.New(
		host.WithSize(regions.TranscriptWidth, regions.BodyHeight),
		host.WithMargin(2),
		host.WithPost(sched.Post),
		host.WithLogger(logger),
	)
	doc.Reset(msgs)

	rail := panels.NewRailPanel(outputTheme().Styles(), nil)
	rail.SetSize(regions.RailWidth, regions.BodyHeight)

	ov := timeline.NewOverlay(e.Token, doc, rail, sched,
		timeline.WithOptions(cfg.Overlay()),
		timeline.WithStore(store),
		timeline.WithLogger(logger),
	)
	ov.Start()
	sched.Advance(settle)

	return &snapshot{entry: e, doc: doc, rail: rail, overlay: ov, sched: sched}, nil
}

func (s *snapshot) scrollToRow(row int) {
	s.doc.ScrollToRow(row)
	s.sched.Advance(settle)
}

// jumpToTurn navigates to the n-th user turn (1-based) like a rail click.
func (s *snapshot) jumpToTurn(n int) error {
	markers := s.overlay.Markers()
	if n < 1 || n > len(markers) {
		return fmt.Errorf("turn %d out of range (1-%d)", n, len(markers))
	}
	s.overlay.Navigate(markers[n-1].ID)
	s.sched.Advance(settle)
	return nil
}

func (s *snapshot) close() {
	if err := s.overlay.Destroy(); err != nil {
		logger.Debug().Err(err).Msg("snapshot teardown")
	}
}
