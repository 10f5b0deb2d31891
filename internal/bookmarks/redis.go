package bookmarks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// ChangeChannel is the pub/sub channel every Redis store publishes writes on.
const ChangeChannel = "chatrail:bookmarks:changes"

type changeMessage struct {
	Origin   string `json:"origin"`
	Key      string `json:"key"`
	OldValue string `json:"old"`
	NewValue string `json:"new"`
}

// Redis keeps values in Redis strings and fans out changes over pub/sub.
// Each handle tags its publications with a random origin so it can ignore its own.
type Redis struct {
	client *redis.Client
	origin string
	logger zerolog.Logger

	mu     sync.Mutex
	subs   map[int]func(Event)
	next   int
	pubsub *redis.PubSub
	wg     sync.WaitGroup
}

// OpenRedis connects to redisURL and verifies the connection.
func OpenRedis(ctx context.Context, redisURL string, logger zerolog.Logger) (*Redis, error) {
	if redisURL == "" {
		return nil, errors.New("redis bookmark store: empty url")
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &Redis{
		client: client,
		origin: uuid.NewString(),
		logger: logger,
		subs:   make(map[int]func(Event)),
	}, nil
}

// Get implements Store.
func (r *Redis) Get(ctx context.Context, key string) (string, error) {
	v, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("redis get: %w", err)
	}
	return v, nil
}

// Set implements Store. The previous value is swapped atomically and published.
func (r *Redis) Set(ctx context.Context, key, value string) error {
	old, err := r.client.SetArgs(ctx, key, value, redis.SetArgs{Get: true}).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("redis set: %w", err)
	}
	if old == value {
		return nil
	}
	payload, err := json.Marshal(changeMessage{Origin: r.origin, Key: key, OldValue: old, NewValue: value})
	if err != nil {
		return fmt.Errorf("encode change: %w", err)
	}
	if err := r.client.Publish(ctx, ChangeChannel, payload).Err(); err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}
	return nil
}

// Keys implements Store.
func (r *Redis) Keys(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	iter := r.client.Scan(ctx, 0, prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("redis scan: %w", err)
	}
	sort.Strings(keys)
	return keys, nil
}

// Subscribe implements Store. The pub/sub connection opens with the first subscriber.
func (r *Redis) Subscribe(fn func(Event)) (func() error, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.pubsub == nil {
		ctx := context.Background()
		ps := r.client.Subscribe(ctx, ChangeChannel)
		if _, err := ps.Receive(ctx); err != nil {
			ps.Close()
			return nil, fmt.Errorf("redis subscribe: %w", err)
		}
		r.pubsub = ps
		r.wg.Add(1)
		go r.listen(ps.Channel())
	}
	r.next++
	id := r.next
	r.subs[id] = fn
	return func() error {
		r.mu.Lock()
		delete(r.subs, id)
		r.mu.Unlock()
		return nil
	}, nil
}

func (r *Redis) listen(ch <-chan *redis.Message) {
	defer r.wg.Done()
	for msg := range ch {
		var cm changeMessage
		if err := json.Unmarshal([]byte(msg.Payload), &cm); err != nil {
			r.logger.Debug().Err(err).Msg("ignoring malformed bookmark change")
			continue
		}
		if cm.Origin == r.origin {
			continue
		}
		r.mu.Lock()
		subs := make([]func(Event), 0, len(r.subs))
		for _, fn := range r.subs {
			subs = append(subs, fn)
		}
		r.mu.Unlock()
		ev := Event{Key: cm.Key, OldValue: cm.OldValue, NewValue: cm.NewValue}
		for _, fn := range subs {
			fn(ev)
		}
	}
}

// Close implements Store.
func (r *Redis) Close() error {
	r.mu.Lock()
	ps := r.pubsub
	r.pubsub = nil
	clear(r.subs)
	r.mu.Unlock()

	var errs []error
	if ps != nil {
		errs = append(errs, ps.Close())
		r.wg.Wait()
	}
	errs = append(errs, r.client.Close())
	return errors.Join(errs...)
}
