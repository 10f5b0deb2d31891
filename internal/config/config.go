package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/Dicklesworthstone/chatrail/internal/bookmarks"
	"github.com/Dicklesworthstone/chatrail/internal/timeline"
	"github.com/Dicklesworthstone/chatrail/internal/transcript"
	"github.com/Dicklesworthstone/chatrail/internal/util"
	"github.com/Dicklesworthstone/chatrail/internal/watcher"
)

// Config is the viewer configuration.
type Config struct {
	ConversationsDir string `toml:"conversations_dir"`
	// Format forces a transcript dialect: auto, claude, codex or generic.
	Format string `toml:"format"`
	// Theme is auto, dark or light.
	Theme string `toml:"theme"`

	Rail     RailConfig     `toml:"rail"`
	Timing   TimingConfig   `toml:"timing"`
	Tracking TrackingConfig `toml:"tracking"`
	Storage  StorageConfig  `toml:"storage"`
	Watch    WatchConfig    `toml:"watch"`
	Log      LogConfig      `toml:"log"`
}

// RailConfig holds rail geometry in logical pixels (one terminal row is 14).
type RailConfig struct {
	Pad       float64 `toml:"pad"`
	MinGap    float64 `toml:"min_gap"`
	WheelStep int     `toml:"wheel_step"`
	// Width is the rail column width in cells.
	Width int `toml:"width"`
}

// TimingConfig holds delays in milliseconds.
type TimingConfig struct {
	Debounce         int     `toml:"debounce"`
	LongPress        int     `toml:"long_press"`
	MoveTolerance    float64 `toml:"move_tolerance"`
	ClickSuppress    int     `toml:"click_suppress"`
	DiscoveryTimeout int     `toml:"discovery_timeout"`
	EnsureRetry      int     `toml:"ensure_retry"`
	Frame            int     `toml:"frame"`
	ScrollDuration   int     `toml:"scroll_duration"`
}

// TrackingConfig shapes active-turn detection. All values are viewport fractions.
type TrackingConfig struct {
	ReadingLine float64 `toml:"reading_line"`
	Threshold   float64 `toml:"threshold"`
	BandTop     float64 `toml:"band_top"`
	BandBottom  float64 `toml:"band_bottom"`
}

// StorageConfig selects the bookmark backend.
type StorageConfig struct {
	Backend   string `toml:"backend"`
	Path      string `toml:"path"`
	RedisURL  string `toml:"redis_url"`
	Namespace string `toml:"namespace"`
	// PollInterval is how often the sqlite backend checks for external writes (ms).
	PollInterval int `toml:"poll_interval"`
}

// WatchConfig tunes file watching.
type WatchConfig struct {
	DebounceMs int `toml:"debounce_ms"`
}

// LogConfig configures the log sink.
type LogConfig struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

func ms(n int) time.Duration { return time.Duration(n) * time.Millisecond }

// Default returns the built-in configuration.
func Default() *Config {
	layout := timeline.DefaultLayout()
	gestures := timeline.DefaultGestures()
	vis := timeline.DefaultVisibility()
	opts := timeline.DefaultOptions()
	return &Config{
		ConversationsDir: DefaultConversationsDir(),
		Format:           "auto",
		Theme:            "auto",
		Rail: RailConfig{
			Pad:       layout.Pad,
			MinGap:    layout.MinGap,
			WheelStep: gestures.WheelStep,
			Width:     3,
		},
		Timing: TimingConfig{
			Debounce:         int(opts.Debounce / time.Millisecond),
			LongPress:        int(gestures.LongPress / time.Millisecond),
			MoveTolerance:    gestures.MoveTolerance,
			ClickSuppress:    int(gestures.ClickSuppress / time.Millisecond),
			DiscoveryTimeout: int(opts.DiscoveryTimeout / time.Millisecond),
			EnsureRetry:      int(timeline.DefaultEnsureRetry / time.Millisecond),
			Frame:            16,
			ScrollDuration:   int(opts.ScrollDuration / time.Millisecond),
		},
		Tracking: TrackingConfig{
			ReadingLine: timeline.DefaultReadingLine,
			Threshold:   vis.Threshold,
			BandTop:     vis.TopMargin,
			BandBottom:  vis.BottomMargin,
		},
		Storage: StorageConfig{
			Backend:      "file",
			Namespace:    bookmarks.DefaultNamespace,
			PollInterval: int(bookmarks.DefaultPollInterval / time.Millisecond),
		},
		Watch: WatchConfig{DebounceMs: watcher.DefaultConfigValues().DebounceMs},
		Log: LogConfig{
			Level: "info",
			File:  filepath.Join(DefaultStateDir(), "chatrail.log"),
		},
	}
}

// DefaultPath returns the default config file path.
func DefaultPath() string {
	if env := os.Getenv("CHATRAIL_CONFIG"); env != "" {
		return ExpandHome(env)
	}
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "chatrail", "config.toml")
	}
	return filepath.Join(homeDir(), ".config", "chatrail", "config.toml")
}

// DefaultStateDir is where logs and bookmarks live.
func DefaultStateDir() string {
	if xdg := os.Getenv("XDG_STATE_HOME"); xdg != "" {
		return filepath.Join(xdg, "chatrail")
	}
	return filepath.Join(homeDir(), ".local", "state", "chatrail")
}

// DefaultConversationsDir is where <token>.jsonl transcripts are looked up.
func DefaultConversationsDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "chatrail", "conversations")
	}
	return filepath.Join(homeDir(), ".local", "share", "chatrail", "conversations")
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		// containers without a home directory
		return os.TempDir()
	}
	return home
}

// Load reads path over the defaults and applies environment overrides.
// A missing file is not an error.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath()
	}

	// 1. Defaults
	cfg := Default()

	// 2. TOML over defaults
	if data, err := os.ReadFile(path); err == nil {
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	// 3. Env > TOML > Default
	applyEnv(cfg)

	cfg.ConversationsDir = ExpandHome(cfg.ConversationsDir)
	cfg.Storage.Path = ExpandHome(cfg.Storage.Path)
	cfg.Log.File = ExpandHome(cfg.Log.File)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if dir := os.Getenv("CHATRAIL_CONVERSATIONS_DIR"); dir != "" {
		cfg.ConversationsDir = dir
	}
	if backend := os.Getenv("CHATRAIL_STORAGE"); backend != "" {
		cfg.Storage.Backend = backend
	}
	if url := os.Getenv("CHATRAIL_REDIS_URL"); url != "" {
		cfg.Storage.RedisURL = url
		if os.Getenv("CHATRAIL_STORAGE") == "" {
			cfg.Storage.Backend = "redis"
		}
	}
	if level := os.Getenv("CHATRAIL_LOG_LEVEL"); level != "" {
		cfg.Log.Level = level
	}
	if debounce := os.Getenv("CHATRAIL_DEBOUNCE_MS"); debounce != "" {
		if n, err := strconv.Atoi(debounce); err == nil && n > 0 {
			cfg.Timing.Debounce = n
		}
	}
}

// Validate rejects values the rail cannot work with.
func (c *Config) Validate() error {
	var errs []error
	positive := func(name string, v float64) {
		if v <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %v", name, v))
		}
	}
	fraction := func(name string, v float64) {
		if v < 0 || v > 1 {
			errs = append(errs, fmt.Errorf("%s must be within [0,1], got %v", name, v))
		}
	}

	positive("rail.pad", c.Rail.Pad)
	positive("rail.min_gap", c.Rail.MinGap)
	positive("rail.wheel_step", float64(c.Rail.WheelStep))
	positive("rail.width", float64(c.Rail.Width))
	positive("timing.debounce", float64(c.Timing.Debounce))
	positive("timing.long_press", float64(c.Timing.LongPress))
	positive("timing.move_tolerance", c.Timing.MoveTolerance)
	positive("timing.click_suppress", float64(c.Timing.ClickSuppress))
	positive("timing.discovery_timeout", float64(c.Timing.DiscoveryTimeout))
	positive("timing.ensure_retry", float64(c.Timing.EnsureRetry))
	positive("timing.frame", float64(c.Timing.Frame))
	positive("timing.scroll_duration", float64(c.Timing.ScrollDuration))
	positive("storage.poll_interval", float64(c.Storage.PollInterval))

	if c.Tracking.ReadingLine <= 0 || c.Tracking.ReadingLine >= 1 {
		errs = append(errs, fmt.Errorf("tracking.reading_line must be within (0,1), got %v", c.Tracking.ReadingLine))
	}
	fraction("tracking.threshold", c.Tracking.Threshold)
	fraction("tracking.band_top", c.Tracking.BandTop)
	fraction("tracking.band_bottom", c.Tracking.BandBottom)
	if c.Tracking.BandTop+c.Tracking.BandBottom >= 1 {
		errs = append(errs, fmt.Errorf("tracking band is empty: band_top %v + band_bottom %v >= 1", c.Tracking.BandTop, c.Tracking.BandBottom))
	}

	switch transcript.Format(strings.ToLower(c.Format)) {
	case "auto", transcript.FormatAuto, transcript.FormatClaude, transcript.FormatCodex, transcript.FormatGeneric:
	default:
		errs = append(errs, fmt.Errorf("unknown format %q", c.Format))
	}
	switch strings.ToLower(c.Theme) {
	case "", "auto", "dark", "light":
	default:
		errs = append(errs, fmt.Errorf("unknown theme %q", c.Theme))
	}
	return errors.Join(errs...)
}

// TranscriptFormat returns the configured dialect.
func (c *Config) TranscriptFormat() transcript.Format {
	f := transcript.Format(strings.ToLower(c.Format))
	if f == "auto" {
		return transcript.FormatAuto
	}
	return f
}

// Overlay converts the rail settings into overlay options.
func (c *Config) Overlay() timeline.Options {
	o := timeline.DefaultOptions()
	o.Layout = timeline.LayoutOptions{Pad: c.Rail.Pad, MinGap: c.Rail.MinGap, Epsilon: o.Layout.Epsilon}
	o.Gestures = timeline.GestureOptions{
		LongPress:     ms(c.Timing.LongPress),
		MoveTolerance: c.Timing.MoveTolerance,
		ClickSuppress: ms(c.Timing.ClickSuppress),
		WheelStep:     c.Rail.WheelStep,
	}
	o.Visibility = timeline.VisibilityOptions{
		Threshold:    c.Tracking.Threshold,
		TopMargin:    c.Tracking.BandTop,
		BottomMargin: c.Tracking.BandBottom,
	}
	o.ReadingLine = c.Tracking.ReadingLine
	o.Debounce = ms(c.Timing.Debounce)
	o.DiscoveryTimeout = ms(c.Timing.DiscoveryTimeout)
	o.Retry = ms(c.Timing.EnsureRetry)
	o.ScrollDuration = ms(c.Timing.ScrollDuration)
	if c.Storage.Namespace != "" {
		o.Namespace = c.Storage.Namespace
	}
	return o
}

// EnsureRetry returns the supervisor retry interval.
func (c *Config) EnsureRetry() time.Duration { return ms(c.Timing.EnsureRetry) }

// FrameInterval returns the scheduler frame interval.
func (c *Config) FrameInterval() time.Duration { return ms(c.Timing.Frame) }

// Bookmarks converts the storage section, filling in default paths.
func (c *Config) Bookmarks() bookmarks.Config {
	bc := bookmarks.Config{
		Backend:      c.Storage.Backend,
		Path:         c.Storage.Path,
		RedisURL:     c.Storage.RedisURL,
		Namespace:    c.Storage.Namespace,
		PollInterval: ms(c.Storage.PollInterval),
	}
	if bc.Path == "" {
		switch strings.ToLower(bc.Backend) {
		case "file":
			bc.Path = filepath.Join(DefaultStateDir(), "bookmarks")
		case "sqlite":
			bc.Path = filepath.Join(DefaultStateDir(), "bookmarks.db")
		}
	}
	return bc
}

// WatcherValues returns the file watcher settings.
func (c *Config) WatcherValues() watcher.ConfigValues {
	return watcher.ConfigValues{DebounceMs: c.Watch.DebounceMs}
}

// CreateDefault writes the default config to DefaultPath.
func CreateDefault() (string, error) {
	path := DefaultPath()

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("creating config directory: %w", err)
	}
	if _, err := os.Stat(path); err == nil {
		return "", fmt.Errorf("config file already exists: %s", path)
	}

	var buffer strings.Builder
	if err := Print(Default(), &buffer); err != nil {
		return "", err
	}
	if err := util.AtomicWriteFile(path, []byte(buffer.String()), 0644); err != nil {
		return "", err
	}
	return path, nil
}

// Print writes cfg as TOML.
func Print(cfg *Config, w io.Writer) error {
	fmt.Fprintln(w, "# chatrail configuration")
	fmt.Fprintln(w, "# Rail geometry is in logical pixels; one terminal row is 14, timings are milliseconds.")
	fmt.Fprintln(w)
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	return nil
}

// ExpandHome expands a leading "~" to the user's home directory.
func ExpandHome(path string) string {
	if path == "~" {
		if home, err := os.UserHomeDir(); err == nil {
			return home
		}
		return path
	}
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
