package transcript

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/Dicklesworthstone/chatrail/internal/route"
)

// Ext is the file extension of a conversation log.
const Ext = ".jsonl"

// ErrNotFound is returned when no conversation matches a lookup.
var ErrNotFound = errors.New("conversation not found")

// Entry describes one conversation file.
type Entry struct {
	Token   string
	Path    string
	Size    int64
	ModTime time.Time
}

// Route returns the viewer location of the conversation.
func (e Entry) Route() string { return route.Path(e.Token) }

// Library is a directory of <token>.jsonl conversation logs.
type Library struct {
	dir string
}

// NewLibrary creates a library rooted at dir.
func NewLibrary(dir string) *Library {
	return &Library{dir: dir}
}

// Dir returns the library directory.
func (l *Library) Dir() string { return l.dir }

// List returns every conversation, newest first. A missing directory is empty.
func (l *Library) List() ([]Entry, error) {
	items, err := os.ReadDir(l.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read conversations dir: %w", err)
	}
	var out []Entry
	for _, it := range items {
		if it.IsDir() || !strings.HasSuffix(it.Name(), Ext) {
			continue
		}
		info, err := it.Info()
		if err != nil {
			continue
		}
		out = append(out, entryFor(filepath.Join(l.dir, it.Name()), info))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].ModTime.Equal(out[j].ModTime) {
			return out[i].ModTime.After(out[j].ModTime)
		}
		return out[i].Token < out[j].Token
	})
	return out, nil
}

// Resolve finds a conversation by file path, route, or token.
func (l *Library) Resolve(arg string) (Entry, error) {
	if info, err := os.Stat(arg); err == nil && !info.IsDir() {
		return entryFor(arg, info), nil
	}

	token := arg
	if strings.HasPrefix(arg, "/") {
		id, err := route.ParseConversationID(arg)
		if err != nil {
			return Entry{}, fmt.Errorf("%q: %w: %w", arg, ErrNotFound, err)
		}
		token = id
	}
	if !route.ValidToken(token) {
		return Entry{}, fmt.Errorf("%q: %w", arg, ErrNotFound)
	}
	entries, err := l.List()
	if err != nil {
		return Entry{}, err
	}
	for _, e := range entries {
		if e.Token == token {
			return e, nil
		}
	}
	return Entry{}, fmt.Errorf("%q: %w", arg, ErrNotFound)
}

func entryFor(path string, info os.FileInfo) Entry {
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return Entry{
		Token:   route.Sanitize(stem),
		Path:    path,
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}
}
