package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"farcaster-tv/internal/observability"
	"farcaster-tv/internal/storage"
)

const (
	DefaultKey             = "farcaster-tv:v1"
	DefaultTag             = "farcaster-tv"
	DefaultRevalidateAfter = 10 * time.Minute
)

// Loader computes a fresh value for the revalidating cache.
type Loader[V any] func(ctx context.Context) (V, error)

// RevalidatingOptions configures a Revalidating cache.
type RevalidatingOptions struct {
	Store           storage.EntryStore
	Key             string        // DefaultKey when empty
	Tags            []string      // [DefaultTag] when empty
	RevalidateAfter time.Duration // DefaultRevalidateAfter when <= 0
	Logger          *zap.Logger
	Now             func() time.Time
}

// Revalidating serves a single keyed value from a shared store with
// stale-while-revalidate semantics. Fresh entries are returned as-is. Stale
// entries are returned immediately while one background refresh runs. A
// missing entry is computed synchronously, and concurrent misses share one
// computation.
type Revalidating[V any] struct {
	store           storage.EntryStore
	key             string
	tags            []string
	revalidateAfter time.Duration
	load            Loader[V]
	logger          *zap.Logger
	now             func() time.Time

	group singleflight.Group
	bg    sync.WaitGroup
}

// NewRevalidating creates a Revalidating cache around load.
func NewRevalidating[V any](opts RevalidatingOptions, load Loader[V]) *Revalidating[V] {
	if opts.Key == "" {
		opts.Key = DefaultKey
	}
	if len(opts.Tags) == 0 {
		opts.Tags = []string{DefaultTag}
	}
	if opts.RevalidateAfter <= 0 {
		opts.RevalidateAfter = DefaultRevalidateAfter
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Revalidating[V]{
		store:           opts.Store,
		key:             opts.Key,
		tags:            opts.Tags,
		revalidateAfter: opts.RevalidateAfter,
		load:            load,
		logger:          logger.Named("revalidate"),
		now:             opts.Now,
	}
}

// Get returns the cached value, computing it when absent.
func (r *Revalidating[V]) Get(ctx context.Context) (V, error) {
	if v, storedAt, ok := r.lookup(ctx); ok {
		age := r.now().Sub(time.UnixMilli(storedAt))
		if age < r.revalidateAfter {
			observability.RecordCacheLookup("shared", "hit")
			return v, nil
		}
		observability.RecordCacheLookup("shared", "stale")
		r.refreshInBackground(ctx)
		return v, nil
	}

	observability.RecordCacheLookup("shared", "miss")
	return r.compute(ctx)
}

// InvalidateTag deletes every stored entry carrying tag.
func (r *Revalidating[V]) InvalidateTag(ctx context.Context, tag string) (int, error) {
	n, err := r.store.DeleteByTag(ctx, tag)
	if err != nil {
		return 0, fmt.Errorf("invalidate tag %q: %w", tag, err)
	}
	r.logger.Info("tag invalidated", zap.String("tag", tag), zap.Int("entries", n))
	return n, nil
}

// Refresh recomputes and stores the value regardless of its age.
func (r *Revalidating[V]) Refresh(ctx context.Context) (V, error) {
	return r.compute(ctx)
}

// compute loads and stores the value once for all concurrent callers. The
// loader runs detached from ctx so a cancelled caller cannot store the
// partial result of an interrupted load.
func (r *Revalidating[V]) compute(ctx context.Context) (V, error) {
	loadCtx := context.WithoutCancel(ctx)
	res, err, _ := r.group.Do(r.key, func() (any, error) {
		return r.refresh(loadCtx)
	})
	if err != nil {
		var zero V
		return zero, err
	}
	return res.(V), nil
}

func (r *Revalidating[V]) lookup(ctx context.Context) (V, int64, bool) {
	var zero V
	entry, err := r.store.Get(ctx, r.key)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			r.logger.Warn("cache read failed", zap.String("key", r.key), zap.Error(err))
		}
		return zero, 0, false
	}

	var v V
	if err := json.Unmarshal(entry.Value, &v); err != nil {
		r.logger.Warn("cache entry undecodable", zap.String("key", r.key), zap.Error(err))
		return zero, 0, false
	}
	return v, entry.StoredAt, true
}

func (r *Revalidating[V]) refreshInBackground(ctx context.Context) {
	bgCtx := context.WithoutCancel(ctx)
	r.bg.Add(1)
	go func() {
		defer r.bg.Done()
		// joins an in-flight refresh instead of starting another
		_, err, shared := r.group.Do(r.key, func() (any, error) {
			return r.refresh(bgCtx)
		})
		if err != nil && !shared {
			r.logger.Warn("background refresh failed", zap.Error(err))
		}
	}()
}

func (r *Revalidating[V]) refresh(ctx context.Context) (V, error) {
	v, err := r.load(ctx)
	if err != nil {
		var zero V
		return zero, err
	}
	if err := ctx.Err(); err != nil {
		var zero V
		return zero, fmt.Errorf("load interrupted: %w", err)
	}

	data, err := json.Marshal(v)
	if err != nil {
		return v, fmt.Errorf("encode cache entry: %w", err)
	}
	entry := &storage.Entry{
		Key:      r.key,
		Value:    data,
		Tags:     r.tags,
		StoredAt: r.now().UnixMilli(),
	}
	if err := r.store.Put(ctx, entry); err != nil {
		r.logger.Warn("cache write failed", zap.String("key", r.key), zap.Error(err))
	}
	return v, nil
}

// wait blocks until background refreshes finish.
func (r *Revalidating[V]) wait() {
	r.bg.Wait()
}
