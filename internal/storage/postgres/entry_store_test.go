package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"farcaster-tv/internal/storage"
)

func TestEntryStore_PutGetDelete(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewEntryStore(pool)
	ctx := context.Background()

	entry := &storage.Entry{
		Key:      "farcaster-tv:v1",
		Value:    []byte(`{"items":[]}`),
		Tags:     []string{"farcaster-tv"},
		StoredAt: 1700000000000,
	}
	require.NoError(t, store.Put(ctx, entry))

	got, err := store.Get(ctx, "farcaster-tv:v1")
	require.NoError(t, err)
	assert.Equal(t, entry, got)

	// Upsert replaces value and timestamp
	entry.Value = []byte(`{"items":[1]}`)
	entry.StoredAt = 1700000001000
	require.NoError(t, store.Put(ctx, entry))

	got, err = store.Get(ctx, "farcaster-tv:v1")
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"items":[1]}`), got.Value)
	assert.Equal(t, int64(1700000001000), got.StoredAt)

	require.NoError(t, store.Put(ctx, &storage.Entry{Key: "other", Value: []byte("1"), Tags: nil}))

	n, err := store.DeleteByTag(ctx, "farcaster-tv")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = store.Get(ctx, "farcaster-tv:v1")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = store.Get(ctx, "other")
	assert.NoError(t, err)
}

func TestEntryStore_InvalidInput(t *testing.T) {
	store := NewEntryStore(nil)
	assert.ErrorIs(t, store.Put(context.Background(), &storage.Entry{}), storage.ErrInvalidInput)
}
