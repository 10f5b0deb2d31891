package bookmarks

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/Dicklesworthstone/chatrail/internal/util"
	"github.com/Dicklesworthstone/chatrail/internal/watcher"
)

// File stores each key as a JSON file in a directory and reports changes
// made by other processes through fsnotify.
type File struct {
	dir    string
	logger zerolog.Logger

	mu    sync.Mutex
	known map[string]string // last value seen per key
	subs  map[int]func(Event)
	next  int
	w     *watcher.Watcher
}

// OpenFile opens (creating if needed) a directory-backed store.
func OpenFile(dir string, logger zerolog.Logger) (*File, error) {
	if dir == "" {
		return nil, errors.New("file bookmark store: empty path")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create bookmark dir: %w", err)
	}
	return &File{
		dir:    dir,
		logger: logger,
		known:  make(map[string]string),
		subs:   make(map[int]func(Event)),
	}, nil
}

func (f *File) path(key string) string {
	return filepath.Join(f.dir, url.QueryEscape(key)+".json")
}

func keyFromFile(name string) (string, bool) {
	stem, ok := strings.CutSuffix(name, ".json")
	if !ok {
		return "", false
	}
	key, err := url.QueryUnescape(stem)
	if err != nil {
		return "", false
	}
	return key, true
}

// Get implements Store.
func (f *File) Get(_ context.Context, key string) (string, error) {
	data, err := os.ReadFile(f.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("read bookmarks: %w", err)
	}
	f.mu.Lock()
	f.known[key] = string(data)
	f.mu.Unlock()
	return string(data), nil
}

// Set implements Store.
func (f *File) Set(_ context.Context, key, value string) error {
	f.mu.Lock()
	f.known[key] = value
	f.mu.Unlock()
	if err := util.AtomicWriteFile(f.path(key), []byte(value), 0o644); err != nil {
		return fmt.Errorf("write bookmarks: %w", err)
	}
	return nil
}

// Keys implements Store.
func (f *File) Keys(_ context.Context, prefix string) ([]string, error) {
	entries, err := os.ReadDir(f.dir)
	if err != nil {
		return nil, fmt.Errorf("list bookmarks: %w", err)
	}
	var keys []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if key, ok := keyFromFile(e.Name()); ok && strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Subscribe implements Store. The directory watch starts with the first subscriber.
func (f *File) Subscribe(fn func(Event)) (func() error, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.w == nil {
		w, err := watcher.New(f.onFiles, watcher.WithLogger(f.logger), watcher.WithDebounce(0))
		if err != nil {
			return nil, err
		}
		if err := w.WatchDir(f.dir); err != nil {
			_ = w.Stop()
			return nil, err
		}
		w.Start(context.Background())
		f.w = w
	}
	f.next++
	id := f.next
	f.subs[id] = fn
	return func() error {
		f.mu.Lock()
		delete(f.subs, id)
		f.mu.Unlock()
		return nil
	}, nil
}

func (f *File) onFiles(events []watcher.Event) {
	for _, ev := range events {
		key, ok := keyFromFile(filepath.Base(ev.Path))
		if !ok {
			continue
		}
		var next string
		if !ev.Removed() {
			data, err := os.ReadFile(ev.Path)
			if err != nil {
				f.logger.Debug().Err(err).Str("key", key).Msg("read changed bookmark file")
				continue
			}
			next = string(data)
		}

		f.mu.Lock()
		old := f.known[key]
		if old == next {
			// our own write, or a touch without a content change
			f.mu.Unlock()
			continue
		}
		f.known[key] = next
		subs := make([]func(Event), 0, len(f.subs))
		for _, fn := range f.subs {
			subs = append(subs, fn)
		}
		f.mu.Unlock()

		for _, fn := range subs {
			fn(Event{Key: key, OldValue: old, NewValue: next})
		}
	}
}

// Close implements Store.
func (f *File) Close() error {
	f.mu.Lock()
	w := f.w
	f.w = nil
	clear(f.subs)
	f.mu.Unlock()
	if w != nil {
		return w.Stop()
	}
	return nil
}
