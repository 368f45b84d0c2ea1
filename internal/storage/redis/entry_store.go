// Package redis stores shared cache entries in Redis.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"farcaster-tv/internal/observability"
	"farcaster-tv/internal/storage"
)

// DefaultPrefix namespaces every key written by EntryStore.
const DefaultPrefix = "farcaster-tv"

// Options configures EntryStore.
type Options struct {
	Prefix string        // key namespace, default DefaultPrefix
	TTL    time.Duration // hard expiry of entries, 0 keeps them until invalidated
}

// EntryStore implements storage.EntryStore on Redis. Entries are JSON
// strings; each tag is a set of the entry keys carrying it.
type EntryStore struct {
	client goredis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewEntryStore creates a new EntryStore.
func NewEntryStore(client goredis.UniversalClient, opts Options) *EntryStore {
	if opts.Prefix == "" {
		opts.Prefix = DefaultPrefix
	}
	return &EntryStore{client: client, prefix: opts.Prefix, ttl: opts.TTL}
}

// Compile-time interface check.
var _ storage.EntryStore = (*EntryStore)(nil)

// NewClient connects to addr and pings it.
func NewClient(ctx context.Context, addr, password string, db int) (*goredis.Client, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

type record struct {
	Value    []byte   `json:"value"`
	Tags     []string `json:"tags"`
	StoredAt int64    `json:"storedAt"`
}

func (s *EntryStore) entryKey(key string) string { return s.prefix + ":entry:" + key }
func (s *EntryStore) tagKey(tag string) string   { return s.prefix + ":tag:" + tag }

// Get retrieves an entry by key. Returns ErrNotFound if not exists.
func (s *EntryStore) Get(ctx context.Context, key string) (_ *storage.Entry, err error) {
	defer recordQuery("get_entry", time.Now(), &err)

	raw, err := s.client.Get(ctx, s.entryKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get entry: %w", err)
	}

	var rec record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("decode entry: %w", err)
	}
	return &storage.Entry{Key: key, Value: rec.Value, Tags: rec.Tags, StoredAt: rec.StoredAt}, nil
}

// Put inserts or replaces an entry and indexes it under its tags.
func (s *EntryStore) Put(ctx context.Context, e *storage.Entry) (err error) {
	if !storage.ValidEntry(e) {
		return storage.ErrInvalidInput
	}
	defer recordQuery("put_entry", time.Now(), &err)

	raw, err := json.Marshal(record{Value: e.Value, Tags: e.Tags, StoredAt: e.StoredAt})
	if err != nil {
		return fmt.Errorf("encode entry: %w", err)
	}

	_, err = s.client.TxPipelined(ctx, func(p goredis.Pipeliner) error {
		p.Set(ctx, s.entryKey(e.Key), raw, s.ttl)
		for _, tag := range e.Tags {
			p.SAdd(ctx, s.tagKey(tag), e.Key)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("put entry: %w", err)
	}
	return nil
}

// DeleteByTag removes every entry carrying tag.
func (s *EntryStore) DeleteByTag(ctx context.Context, tag string) (_ int, err error) {
	defer recordQuery("delete_by_tag", time.Now(), &err)

	keys, err := s.client.SMembers(ctx, s.tagKey(tag)).Result()
	if err != nil {
		return 0, fmt.Errorf("tag members: %w", err)
	}

	toDelete := make([]string, 0, len(keys))
	for _, k := range keys {
		toDelete = append(toDelete, s.entryKey(k))
	}

	var removed *goredis.IntCmd
	_, err = s.client.TxPipelined(ctx, func(p goredis.Pipeliner) error {
		if len(toDelete) > 0 {
			removed = p.Del(ctx, toDelete...)
		}
		p.Del(ctx, s.tagKey(tag))
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("delete by tag: %w", err)
	}
	if removed == nil {
		return 0, nil
	}
	return int(removed.Val()), nil
}

func recordQuery(op string, started time.Time, err *error) {
	observability.RecordDBQuery("redis", op, time.Since(started).Seconds(), *err)
}
