package postgres

import (
	"context"
	"fmt"
	"time"

	"farcaster-tv/internal/observability"
	"farcaster-tv/internal/storage"
)

// EntryStore implements storage.EntryStore using PostgreSQL.
type EntryStore struct {
	pool *Pool
}

// NewEntryStore creates a new EntryStore.
func NewEntryStore(pool *Pool) *EntryStore {
	return &EntryStore{pool: pool}
}

// Compile-time interface check.
var _ storage.EntryStore = (*EntryStore)(nil)

// Get retrieves an entry by key. Returns ErrNotFound if not exists.
func (s *EntryStore) Get(ctx context.Context, key string) (_ *storage.Entry, err error) {
	defer recordQuery("get_entry", time.Now(), &err)

	query := `
		SELECT cache_key, value, tags, stored_at
		FROM cache_entries
		WHERE cache_key = $1
	`

	var e storage.Entry
	err = s.pool.QueryRow(ctx, query, key).Scan(&e.Key, &e.Value, &e.Tags, &e.StoredAt)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get entry: %w", err)
	}
	return &e, nil
}

// Put inserts or replaces an entry.
func (s *EntryStore) Put(ctx context.Context, e *storage.Entry) (err error) {
	if !storage.ValidEntry(e) {
		return storage.ErrInvalidInput
	}
	defer recordQuery("put_entry", time.Now(), &err)

	tags := e.Tags
	if tags == nil {
		tags = []string{}
	}

	query := `
		INSERT INTO cache_entries (cache_key, value, tags, stored_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (cache_key) DO UPDATE SET
			value = EXCLUDED.value,
			tags = EXCLUDED.tags,
			stored_at = EXCLUDED.stored_at,
			updated_at = now()
	`

	if _, err = s.pool.Exec(ctx, query, e.Key, e.Value, tags, e.StoredAt); err != nil {
		if isUndefinedTableError(err) {
			return fmt.Errorf("put entry: cache_entries missing, run migrations: %w", err)
		}
		return fmt.Errorf("put entry: %w", err)
	}
	return nil
}

// DeleteByTag removes every entry carrying tag.
func (s *EntryStore) DeleteByTag(ctx context.Context, tag string) (_ int, err error) {
	defer recordQuery("delete_by_tag", time.Now(), &err)

	res, err := s.pool.Exec(ctx, `DELETE FROM cache_entries WHERE $1 = ANY(tags)`, tag)
	if err != nil {
		return 0, fmt.Errorf("delete by tag: %w", err)
	}
	return int(res.RowsAffected()), nil
}

func recordQuery(op string, started time.Time, err *error) {
	observability.RecordDBQuery("postgres", op, time.Since(started).Seconds(), *err)
}
