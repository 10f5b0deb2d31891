package watcher

import "time"

// ConfigValues holds primitive watcher settings so callers can build a
// Watcher without importing the config package.
type ConfigValues struct {
	DebounceMs int
}

// DefaultConfigValues returns the values used when no config is available.
func DefaultConfigValues() ConfigValues {
	return ConfigValues{DebounceMs: int(DefaultDebounce / time.Millisecond)}
}

// Options converts config values into watcher options.
func (c ConfigValues) Options() []Option {
	var opts []Option
	if c.DebounceMs >= 0 {
		opts = append(opts, WithDebounce(time.Duration(c.DebounceMs)*time.Millisecond))
	}
	return opts
}
