// Package watcher provides file watching with debouncing using fsnotify.
package watcher

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// DefaultDebounce is the quiet period before a batch of events is delivered.
const DefaultDebounce = 100 * time.Millisecond

// Event is a coalesced change to one path.
type Event struct {
	Path string
	Op   fsnotify.Op
}

// Removed reports whether the path was removed or renamed away.
func (e Event) Removed() bool {
	return e.Op.Has(fsnotify.Remove) || e.Op.Has(fsnotify.Rename)
}

// Handler receives debounced batches, sorted by path.
type Handler func(events []Event)

// Watcher watches files and directories and delivers debounced batches to a Handler.
type Watcher struct {
	fs       *fsnotify.Watcher
	handler  Handler
	debounce time.Duration
	logger   zerolog.Logger

	mu      sync.Mutex
	dirs    map[string]bool            // watched whole
	files   map[string]map[string]bool // dir -> file names of interest
	pending map[string]fsnotify.Op
	timer   *time.Timer

	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets the quiet period. Zero delivers every event immediately.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d >= 0 {
			w.debounce = d
		}
	}
}

// WithLogger sets the logger used for watch errors.
func WithLogger(l zerolog.Logger) Option {
	return func(w *Watcher) {
		w.logger = l
	}
}

// New creates a Watcher. Call Start to begin delivering events.
func New(handler Handler, opts ...Option) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}
	w := &Watcher{
		fs:       fw,
		handler:  handler,
		debounce: DefaultDebounce,
		logger:   zerolog.Nop(),
		dirs:     make(map[string]bool),
		files:    make(map[string]map[string]bool),
		pending:  make(map[string]fsnotify.Op),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// WatchDir reports every change inside dir.
func (w *Watcher) WatchDir(dir string) error {
	dir = filepath.Clean(dir)
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.addLocked(dir); err != nil {
		return err
	}
	w.dirs[dir] = true
	return nil
}

// WatchFile reports changes to a single file. The parent directory is watched
// so that atomic replace-by-rename is seen; the file itself may not exist yet.
func (w *Watcher) WatchFile(path string) error {
	path = filepath.Clean(path)
	dir, name := filepath.Split(path)
	dir = filepath.Clean(dir)
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.addLocked(dir); err != nil {
		return err
	}
	if w.files[dir] == nil {
		w.files[dir] = make(map[string]bool)
	}
	w.files[dir][name] = true
	return nil
}

func (w *Watcher) addLocked(dir string) error {
	if w.dirs[dir] || w.files[dir] != nil {
		return nil
	}
	if err := w.fs.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	return nil
}

// Start begins processing events in a background goroutine.
func (w *Watcher) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	w.cancelFunc = cancel

	w.wg.Add(1)
	go w.run(ctx)
}

// Stop halts the watcher and releases the fsnotify handle. Pending batches are dropped.
func (w *Watcher) Stop() error {
	if w.cancelFunc != nil {
		w.cancelFunc()
	}
	err := w.fs.Close()
	w.wg.Wait()

	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	clear(w.pending)
	w.mu.Unlock()
	return err
}

func (w *Watcher) run(ctx context.Context) {
	defer w.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.fs.Events:
			if !ok {
				return
			}
			w.record(ev)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.logger.Warn().Err(err).Msg("watcher error")
		}
	}
}

func (w *Watcher) interested(path string) bool {
	dir, name := filepath.Split(path)
	dir = filepath.Clean(dir)
	if w.dirs[dir] {
		return true
	}
	return w.files[dir][name]
}

func (w *Watcher) record(ev fsnotify.Event) {
	path := filepath.Clean(ev.Name)
	w.mu.Lock()
	if !w.interested(path) {
		w.mu.Unlock()
		return
	}
	w.pending[path] |= ev.Op
	if w.debounce == 0 {
		batch := w.drainLocked()
		w.mu.Unlock()
		w.handler(batch)
		return
	}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.flush)
	w.mu.Unlock()
}

func (w *Watcher) flush() {
	w.mu.Lock()
	w.timer = nil
	batch := w.drainLocked()
	w.mu.Unlock()
	if len(batch) > 0 {
		w.handler(batch)
	}
}

func (w *Watcher) drainLocked() []Event {
	batch := make([]Event, 0, len(w.pending))
	for p, op := range w.pending {
		batch = append(batch, Event{Path: p, Op: op})
	}
	clear(w.pending)
	sort.Slice(batch, func(i, j int) bool { return batch[i].Path < batch[j].Path })
	return batch
}
