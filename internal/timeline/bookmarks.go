package timeline

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/Dicklesworthstone/chatrail/internal/bookmarks"
	"github.com/Dicklesworthstone/chatrail/internal/scheduler"
)

const storageTimeout = 2 * time.Second

// Bookmarks is the starred set of one conversation. Storage failures are
// logged and otherwise ignored; the set then simply is not persisted.
type Bookmarks struct {
	store  bookmarks.Store
	key    string
	sched  scheduler.Scheduler
	logger zerolog.Logger
	set    map[string]bool
	closed bool
}

// NewBookmarks binds a starred set to key in store. A nil store keeps the set in memory only.
func NewBookmarks(store bookmarks.Store, namespace, conversationID string, s scheduler.Scheduler, logger zerolog.Logger) *Bookmarks {
	return &Bookmarks{
		store:  store,
		key:    bookmarks.Key(namespace, conversationID),
		sched:  s,
		logger: logger,
		set:    make(map[string]bool),
	}
}

// Key returns the storage key.
func (b *Bookmarks) Key() string { return b.key }

// Load replaces the set with the stored one.
func (b *Bookmarks) Load() {
	b.set = make(map[string]bool)
	if b.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), storageTimeout)
	defer cancel()
	raw, err := b.store.Get(ctx, b.key)
	if err != nil {
		if !errors.Is(err, bookmarks.ErrNotFound) {
			b.logger.Debug().Err(err).Str("key", b.key).Msg("load bookmarks")
		}
		return
	}
	b.replace(raw)
}

func (b *Bookmarks) replace(raw string) {
	ids, err := bookmarks.Decode(raw)
	if err != nil {
		b.logger.Debug().Err(err).Str("key", b.key).Msg("malformed bookmarks")
	}
	b.set = make(map[string]bool, len(ids))
	for _, id := range ids {
		b.set[id] = true
	}
}

// Has reports whether id is starred.
func (b *Bookmarks) Has(id string) bool { return b.set[id] }

// IDs returns the starred ids, sorted.
func (b *Bookmarks) IDs() []string {
	ids := make([]string, 0, len(b.set))
	for id := range b.set {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Toggle flips id and persists the set. It returns the new state.
func (b *Bookmarks) Toggle(id string) bool {
	if id == "" {
		return false
	}
	if b.set[id] {
		delete(b.set, id)
	} else {
		b.set[id] = true
	}
	b.save()
	return b.set[id]
}

func (b *Bookmarks) save() {
	if b.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), storageTimeout)
	defer cancel()
	if err := b.store.Set(ctx, b.key, bookmarks.Encode(b.IDs())); err != nil {
		b.logger.Debug().Err(err).Str("key", b.key).Msg("save bookmarks")
	}
}

// Watch calls onChange on the scheduler after an external write replaced the
// set for this conversation. Events for other keys are ignored.
func (b *Bookmarks) Watch(onChange func()) (Detach, error) {
	if b.store == nil {
		return func() error { return nil }, nil
	}
	unsub, err := b.store.Subscribe(func(ev bookmarks.Event) {
		if ev.Key != b.key {
			return
		}
		b.sched.Post(func() {
			if b.closed {
				return
			}
			b.replace(ev.NewValue)
			onChange()
		})
	})
	if err != nil {
		return nil, err
	}
	b.closed = false
	return func() error {
		b.closed = true
		return unsub()
	}, nil
}
