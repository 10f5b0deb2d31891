package transcript

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/rs/zerolog"

	"github.com/Dicklesworthstone/chatrail/internal/watcher"
)

// Update reports a change to a followed conversation.
type Update struct {
	// Reset is set when the file shrank, was replaced, or disappeared; Messages
	// is then the complete new content.
	Reset bool
	// From is the first message index that was added or changed.
	From     int
	Messages []Message
}

// Follower tails a growing session log.
type Follower struct {
	path    string
	format  Format
	handler func(Update)
	logger  zerolog.Logger

	mu      sync.Mutex
	dec     *Decoder
	offset  int64
	partial []byte
	w       *watcher.Watcher
	wopts   []watcher.Option
}

// FollowOption configures a Follower.
type FollowOption func(*Follower)

// WithFollowLogger sets the logger.
func WithFollowLogger(l zerolog.Logger) FollowOption {
	return func(f *Follower) { f.logger = l }
}

// WithWatchOptions passes options to the underlying file watcher.
func WithWatchOptions(opts ...watcher.Option) FollowOption {
	return func(f *Follower) { f.wopts = append(f.wopts, opts...) }
}

// NewFollower creates a follower for path. handler is called from the watcher
// goroutine.
func NewFollower(path string, format Format, handler func(Update), opts ...FollowOption) *Follower {
	f := &Follower{
		path:    path,
		format:  format,
		handler: handler,
		logger:  zerolog.Nop(),
		dec:     NewDecoder(format),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Load reads everything currently in the file and returns the messages.
func (f *Follower) Load() ([]Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reset()
	if _, err := f.readLocked(); err != nil {
		return nil, err
	}
	return f.snapshot(), nil
}

// Poll reads whatever was appended since the last read. ok is false when
// nothing changed.
func (f *Follower) Poll() (u Update, ok bool, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	info, statErr := os.Stat(f.path)
	switch {
	case os.IsNotExist(statErr):
		if f.offset == 0 && len(f.dec.Messages()) == 0 {
			return Update{}, false, nil
		}
		f.reset()
		return Update{Reset: true}, true, nil
	case statErr != nil:
		return Update{}, false, fmt.Errorf("stat transcript: %w", statErr)
	}

	reset := info.Size() < f.offset
	if reset {
		f.reset()
	}
	from, err := f.readLocked()
	if err != nil {
		return Update{}, false, err
	}
	if reset {
		return Update{Reset: true, Messages: f.snapshot()}, true, nil
	}
	if from < 0 {
		return Update{}, false, nil
	}
	return Update{From: from, Messages: f.snapshot()}, true, nil
}

func (f *Follower) reset() {
	f.dec = NewDecoder(f.format)
	f.offset = 0
	f.partial = nil
}

// readLocked consumes complete lines from offset to EOF and returns the first
// changed message index, or -1.
func (f *Follower) readLocked() (int, error) {
	file, err := os.Open(f.path)
	if err != nil {
		return -1, fmt.Errorf("open transcript: %w", err)
	}
	defer file.Close()

	if _, err := file.Seek(f.offset, io.SeekStart); err != nil {
		return -1, fmt.Errorf("seek transcript: %w", err)
	}
	data, err := io.ReadAll(file)
	if err != nil {
		return -1, fmt.Errorf("read transcript: %w", err)
	}
	f.offset += int64(len(data))

	buf := append(f.partial, data...)
	first := -1
	for {
		i := bytes.IndexByte(buf, '\n')
		if i < 0 {
			break
		}
		if idx := f.dec.Feed(buf[:i]); idx >= 0 && (first < 0 || idx < first) {
			first = idx
		}
		buf = buf[i+1:]
	}
	f.partial = append([]byte(nil), buf...)
	return first, nil
}

func (f *Follower) snapshot() []Message {
	return append([]Message(nil), f.dec.Messages()...)
}

// Start watches the file and calls the handler for every change.
func (f *Follower) Start(ctx context.Context) error {
	opts := append([]watcher.Option{watcher.WithLogger(f.logger)}, f.wopts...)
	w, err := watcher.New(f.onEvents, opts...)
	if err != nil {
		return err
	}
	if err := w.WatchFile(f.path); err != nil {
		_ = w.Stop()
		return err
	}
	w.Start(ctx)
	f.mu.Lock()
	f.w = w
	f.mu.Unlock()
	return nil
}

func (f *Follower) onEvents([]watcher.Event) {
	u, ok, err := f.Poll()
	if err != nil {
		f.logger.Debug().Err(err).Str("path", f.path).Msg("follow transcript")
		return
	}
	if ok && f.handler != nil {
		f.handler(u)
	}
}

// Stop ends watching.
func (f *Follower) Stop() error {
	f.mu.Lock()
	w := f.w
	f.w = nil
	f.mu.Unlock()
	if w == nil {
		return nil
	}
	return w.Stop()
}

// Format returns the detected (or forced) log format.
func (f *Follower) Format() Format {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.dec.Format()
}
