package storage

import (
	"context"

	"farcaster-tv/internal/domain"
)

// Entry is one persisted cache record.
type Entry struct {
	Key      string
	Value    []byte   // JSON-encoded payload
	Tags     []string // invalidation tags
	StoredAt int64    // unix ms, drives revalidation
}

// EntryStore persists cache entries shared across processes and restarts.
type EntryStore interface {
	// Get retrieves an entry by key. Returns ErrNotFound if not exists.
	Get(ctx context.Context, key string) (*Entry, error)

	// Put inserts or replaces the entry stored under e.Key.
	Put(ctx context.Context, e *Entry) error

	// DeleteByTag removes every entry carrying tag and returns how many
	// were removed.
	DeleteByTag(ctx context.Context, tag string) (int, error)
}

// RunStore records creator pipeline runs.
type RunStore interface {
	// Insert adds a run. Returns ErrDuplicateKey if run_id exists.
	Insert(ctx context.Context, r *domain.AggregationRun) error

	// Recent returns up to limit runs, newest first.
	Recent(ctx context.Context, limit int) ([]*domain.AggregationRun, error)
}
