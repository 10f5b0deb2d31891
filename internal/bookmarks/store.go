// Package bookmarks provides the key/value stores that persist starred turns.
// Values are JSON arrays of marker ids stored under "<namespace>:<conversation>".
// Every store reports changes made through other handles (another process,
// another viewer) as Events; a handle never hears its own writes.
package bookmarks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

var (
	// ErrNotFound is returned by Get for a missing key.
	ErrNotFound = errors.New("bookmark key not found")
	// ErrUnknownBackend is returned by Open for an unsupported backend name.
	ErrUnknownBackend = errors.New("unknown bookmark backend")
)

// DefaultNamespace prefixes every key.
const DefaultNamespace = "chatrailStars"

// Event describes an external change to a key. An empty NewValue means the key was removed.
type Event struct {
	Key      string
	OldValue string
	NewValue string
}

// Store is a string key/value store with change notifications.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	// Keys lists keys starting with prefix, sorted.
	Keys(ctx context.Context, prefix string) ([]string, error)
	// Subscribe registers fn for external changes. fn may run on any goroutine.
	Subscribe(fn func(Event)) (unsubscribe func() error, err error)
	Close() error
}

// Config selects and configures a backend.
type Config struct {
	Backend      string        `toml:"backend"`
	Path         string        `toml:"path"`
	RedisURL     string        `toml:"redis_url"`
	Namespace    string        `toml:"namespace"`
	PollInterval time.Duration `toml:"-"`
}

// Key builds the storage key for a conversation.
func Key(namespace, conversationID string) string {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	return namespace + ":" + conversationID
}

// ConversationFromKey strips the namespace from key.
func ConversationFromKey(namespace, key string) (string, bool) {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	return strings.CutPrefix(key, namespace+":")
}

// Open creates the configured backend.
func Open(ctx context.Context, cfg Config, logger zerolog.Logger) (Store, error) {
	switch strings.ToLower(cfg.Backend) {
	case "", "memory":
		return NewMemory(), nil
	case "file":
		return OpenFile(cfg.Path, logger)
	case "sqlite":
		return OpenSQLite(cfg.Path, cfg.PollInterval, logger)
	case "redis":
		return OpenRedis(ctx, cfg.RedisURL, logger)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Backend)
	}
}

// OpenOrMemory opens the configured backend and falls back to an in-memory
// store when it cannot be opened. Bookmarks are never worth failing over.
func OpenOrMemory(ctx context.Context, cfg Config, logger zerolog.Logger) Store {
	s, err := Open(ctx, cfg, logger)
	if err != nil {
		logger.Warn().Err(err).Str("backend", cfg.Backend).Msg("bookmark store unavailable, using memory")
		return NewMemory()
	}
	return s
}

// Decode parses a stored value. Malformed input yields an empty list and the parse error.
func Decode(value string) ([]string, error) {
	if strings.TrimSpace(value) == "" {
		return nil, nil
	}
	var raw []any
	if err := json.Unmarshal([]byte(value), &raw); err != nil {
		return nil, fmt.Errorf("decode bookmarks: %w", err)
	}
	ids := make([]string, 0, len(raw))
	for _, v := range raw {
		switch x := v.(type) {
		case string:
			ids = append(ids, x)
		case nil:
		default:
			ids = append(ids, fmt.Sprint(x))
		}
	}
	return ids, nil
}

// Encode serialises ids as a sorted JSON array.
func Encode(ids []string) string {
	out := append([]string(nil), ids...)
	sort.Strings(out)
	if out == nil {
		out = []string{}
	}
	b, _ := json.Marshal(out)
	return string(b)
}
