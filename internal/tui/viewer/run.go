package viewer

import (
	"context"
	"errors"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Dicklesworthstone/chatrail/internal/config"
)

// Run shows the viewer until the user quits or ctx ends. Changes to the
// flags file made by other processes are applied live.
func Run(ctx context.Context, opts Options) error {
	opts.Context = ctx
	opts.Watch = true
	m, err := New(opts)
	if err != nil {
		return err
	}
	defer m.shutdown()

	if opts.FlagsPath != "" {
		fw, err := config.WatchFlags(ctx, opts.FlagsPath, func(f config.Flags) {
			m.sched.Post(func() { m.ApplyFlags(f) })
		}, m.logger)
		if err != nil {
			m.logger.Warn().Err(err).Str("path", opts.FlagsPath).Msg("watch flags")
		} else {
			defer func() { _ = fw.Stop() }()
		}
	}

	p := tea.NewProgram(m,
		tea.WithAltScreen(),
		tea.WithMouseAllMotion(),
		tea.WithContext(ctx),
	)
	if _, err := p.Run(); err != nil && !(errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil) {
		return err
	}
	return nil
}
