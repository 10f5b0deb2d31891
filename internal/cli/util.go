package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"golang.org/x/term"

	"github.com/Dicklesworthstone/chatrail/internal/bookmarks"
	"github.com/Dicklesworthstone/chatrail/internal/transcript"
	"github.com/Dicklesworthstone/chatrail/internal/tui/theme"
)

// errEmptyLibrary is returned when no conversation was named and none exist.
var errEmptyLibrary = errors.New("no conversations found")

func library() *transcript.Library {
	return transcript.NewLibrary(cfg.ConversationsDir)
}

// resolveEntries returns the conversation ring and the index to start at. A
// file outside the library is put first in the ring.
func resolveEntries(arg string) ([]transcript.Entry, int, error) {
	lib := library()
	entries, err := lib.List()
	if err != nil {
		return nil, 0, err
	}
	if arg == "" {
		if len(entries) == 0 {
			return nil, 0, fmt.Errorf("%w in %s", errEmptyLibrary, lib.Dir())
		}
		return entries, 0, nil
	}
	e, err := lib.Resolve(arg)
	if err != nil {
		return nil, 0, err
	}
	for i, x := range entries {
		if x.Path == e.Path {
			return entries, i, nil
		}
	}
	return append([]transcript.Entry{e}, entries...), 0, nil
}

// resolveEntry resolves a single conversation argument.
func resolveEntry(arg string) (transcript.Entry, error) {
	entries, i, err := resolveEntries(arg)
	if err != nil {
		return transcript.Entry{}, err
	}
	return entries[i], nil
}

func openStore(ctx context.Context) (bookmarks.Store, error) {
	s, err := bookmarks.Open(ctx, cfg.Bookmarks(), logger)
	if err != nil {
		return nil, fmt.Errorf("opening bookmark store: %w", err)
	}
	return s, nil
}

// terminalSize reports the stdout terminal size, or the fallback when stdout
// is not a terminal.
func terminalSize(fallbackW, fallbackH int) (int, int) {
	fd := os.Stdout.Fd()
	if !isatty.IsTerminal(fd) && !isatty.IsCygwinTerminal(fd) {
		return fallbackW, fallbackH
	}
	w, h, err := term.GetSize(int(fd))
	if err != nil || w <= 0 || h <= 0 {
		return fallbackW, fallbackH
	}
	return w, h
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputTheme picks the palette for printed output. Only a terminal is
// asked about its background.
func outputTheme() theme.Theme {
	if cfg.Theme == "auto" && !isatty.IsTerminal(os.Stdout.Fd()) {
		return theme.Mocha()
	}
	return theme.For(theme.DetectDark(cfg.Theme))
}
