package config

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/rs/zerolog"

	"github.com/Dicklesworthstone/chatrail/internal/timeline"
	"github.com/Dicklesworthstone/chatrail/internal/util"
	"github.com/Dicklesworthstone/chatrail/internal/watcher"
)

// Flags are the runtime switches for the rail, kept in their own file so they
// can change while a viewer is running.
type Flags struct {
	Enabled   bool            `toml:"enabled" json:"enabled"`
	Providers map[string]bool `toml:"providers" json:"providers,omitempty"`
}

// DefaultFlags enables the rail for every provider.
func DefaultFlags() Flags {
	return Flags{Enabled: true}
}

// ProviderEnabled reports whether provider is on. Providers without an entry are on.
func (f Flags) ProviderEnabled(provider string) bool {
	v, ok := f.Providers[provider]
	return !ok || v
}

// For returns the rail switches for provider.
func (f Flags) For(provider string) timeline.Flags {
	return timeline.Flags{Enabled: f.Enabled, Provider: f.ProviderEnabled(provider)}
}

// Equal compares two flag sets.
func (f Flags) Equal(o Flags) bool {
	if f.Enabled != o.Enabled || len(f.Providers) != len(o.Providers) {
		return false
	}
	for k, v := range f.Providers {
		if ov, ok := o.Providers[k]; !ok || ov != v {
			return false
		}
	}
	return true
}

// FlagsPath returns the flags file next to the config file.
func FlagsPath() string {
	return filepath.Join(filepath.Dir(DefaultPath()), "flags.toml")
}

// LoadFlags reads path. A missing file yields DefaultFlags.
func LoadFlags(path string) (Flags, error) {
	f := DefaultFlags()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return f, nil
		}
		return f, fmt.Errorf("reading flags: %w", err)
	}
	if err := toml.Unmarshal(data, &f); err != nil {
		return DefaultFlags(), fmt.Errorf("parsing flags: %w", err)
	}
	return f, nil
}

// SaveFlags writes f to path atomically.
func SaveFlags(path string, f Flags) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating flags directory: %w", err)
	}
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(f); err != nil {
		return fmt.Errorf("encoding flags: %w", err)
	}
	return util.AtomicWriteFile(path, buf.Bytes(), 0644)
}

// FlagWatcher reloads the flags file whenever it changes.
type FlagWatcher struct {
	path   string
	fn     func(Flags)
	logger zerolog.Logger
	w      *watcher.Watcher

	mu   sync.Mutex
	last Flags
}

// WatchFlags calls fn with the new flags after every effective change to
// path. fn runs on the watcher goroutine.
func WatchFlags(ctx context.Context, path string, fn func(Flags), logger zerolog.Logger) (*FlagWatcher, error) {
	initial, err := LoadFlags(path)
	if err != nil {
		logger.Warn().Err(err).Str("path", path).Msg("flags unreadable, using defaults")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating flags directory: %w", err)
	}
	fw := &FlagWatcher{path: path, fn: fn, logger: logger, last: initial}
	w, err := watcher.New(fw.onChange, watcher.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	if err := w.WatchFile(path); err != nil {
		_ = w.Stop()
		return nil, err
	}
	w.Start(ctx)
	fw.w = w
	return fw, nil
}

// Current returns the last flags seen.
func (fw *FlagWatcher) Current() Flags {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	return fw.last
}

func (fw *FlagWatcher) onChange([]watcher.Event) {
	f, err := LoadFlags(fw.path)
	if err != nil {
		fw.logger.Debug().Err(err).Msg("reload flags")
		return
	}
	fw.mu.Lock()
	changed := !f.Equal(fw.last)
	fw.last = f
	fw.mu.Unlock()
	if changed {
		fw.fn(f)
	}
}

// Stop ends watching.
func (fw *FlagWatcher) Stop() error {
	return fw.w.Stop()
}
