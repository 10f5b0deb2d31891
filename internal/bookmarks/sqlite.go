package bookmarks

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
	"github.com/rs/zerolog"
)

// DefaultPollInterval is how often SQLite stores look for writes from other processes.
const DefaultPollInterval = 500 * time.Millisecond

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS bookmarks (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);`

// SQLite stores keys in a single table. Changes from other connections are
// detected by polling PRAGMA data_version and diffing against the last snapshot.
type SQLite struct {
	db     *sql.DB
	path   string
	poll   time.Duration
	logger zerolog.Logger

	mu      sync.Mutex
	known   map[string]string
	version int64
	subs    map[int]func(Event)
	next    int

	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
}

// OpenSQLite opens or creates a database at path.
func OpenSQLite(path string, poll time.Duration, logger zerolog.Logger) (*SQLite, error) {
	if path == "" {
		return nil, errors.New("sqlite bookmark store: empty path")
	}
	if poll <= 0 {
		poll = DefaultPollInterval
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create bookmark dir: %w", err)
	}

	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=5000", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite only supports one writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	s := &SQLite{
		db:     db,
		path:   path,
		poll:   poll,
		logger: logger,
		known:  make(map[string]string),
		subs:   make(map[int]func(Event)),
	}
	if err := s.snapshot(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Path returns the database file.
func (s *SQLite) Path() string { return s.path }

func (s *SQLite) snapshot(ctx context.Context) error {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM bookmarks`)
	if err != nil {
		return fmt.Errorf("snapshot bookmarks: %w", err)
	}
	defer rows.Close()

	next := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return fmt.Errorf("scan bookmark: %w", err)
		}
		next[k] = v
	}
	if err := rows.Err(); err != nil {
		return err
	}
	var version int64
	if err := s.db.QueryRowContext(ctx, `PRAGMA data_version`).Scan(&version); err != nil {
		return fmt.Errorf("read data_version: %w", err)
	}

	s.mu.Lock()
	s.known = next
	s.version = version
	s.mu.Unlock()
	return nil
}

// Get implements Store.
func (s *SQLite) Get(ctx context.Context, key string) (string, error) {
	var v string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM bookmarks WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get bookmark: %w", err)
	}
	return v, nil
}

// Set implements Store.
func (s *SQLite) Set(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO bookmarks (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value)
	if err != nil {
		return fmt.Errorf("set bookmark: %w", err)
	}
	s.mu.Lock()
	s.known[key] = value
	s.mu.Unlock()
	return nil
}

// Keys implements Store.
func (s *SQLite) Keys(ctx context.Context, prefix string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key FROM bookmarks WHERE substr(key, 1, length(?)) = ? ORDER BY key`, prefix, prefix)
	if err != nil {
		return nil, fmt.Errorf("list bookmarks: %w", err)
	}
	defer rows.Close()
	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// Subscribe implements Store. Polling starts with the first subscriber.
func (s *SQLite) Subscribe(fn func(Event)) (func() error, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancelFunc == nil {
		ctx, cancel := context.WithCancel(context.Background())
		s.cancelFunc = cancel
		s.wg.Add(1)
		go s.run(ctx)
	}
	s.next++
	id := s.next
	s.subs[id] = fn
	return func() error {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
		return nil
	}, nil
}

func (s *SQLite) run(ctx context.Context) {
	defer s.wg.Done()
	ticker := time.NewTicker(s.poll)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.check(ctx); err != nil && ctx.Err() == nil {
				s.logger.Debug().Err(err).Msg("bookmark poll failed")
			}
		}
	}
}

// check diffs the table against the last snapshot when another connection committed.
func (s *SQLite) check(ctx context.Context) error {
	var version int64
	if err := s.db.QueryRowContext(ctx, `PRAGMA data_version`).Scan(&version); err != nil {
		return err
	}
	s.mu.Lock()
	unchanged := version == s.version
	old := s.known
	s.mu.Unlock()
	if unchanged {
		return nil
	}

	if err := s.snapshot(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	cur := s.known
	subs := make([]func(Event), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	for _, ev := range diff(old, cur) {
		for _, fn := range subs {
			fn(ev)
		}
	}
	return nil
}

func diff(old, cur map[string]string) []Event {
	var events []Event
	for k, v := range cur {
		if old[k] != v {
			events = append(events, Event{Key: k, OldValue: old[k], NewValue: v})
		}
	}
	for k, v := range old {
		if _, ok := cur[k]; !ok {
			events = append(events, Event{Key: k, OldValue: v})
		}
	}
	sort.Slice(events, func(i, j int) bool { return events[i].Key < events[j].Key })
	return events
}

// Close implements Store.
func (s *SQLite) Close() error {
	s.mu.Lock()
	cancel := s.cancelFunc
	s.cancelFunc = nil
	clear(s.subs)
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	s.wg.Wait()
	return s.db.Close()
}
