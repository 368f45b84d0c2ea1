// Package concurrency bounds fan-out over slices of work.
package concurrency

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Map calls fn for every item with at most limit calls in flight.
// Results are collected in completion order. A limit below 1 is treated as 1.
//
// The first error returned by fn is returned once all started calls have
// finished; items not yet started at that point are skipped. Callers that
// must not fail should swallow errors inside fn.
func Map[T, R any](ctx context.Context, items []T, limit int, fn func(context.Context, T) (R, error)) ([]R, error) {
	if limit < 1 {
		limit = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	var mu sync.Mutex
	results := make([]R, 0, len(items))

	for _, item := range items {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			r, err := fn(gctx, item)
			if err != nil {
				return err
			}
			mu.Lock()
			results = append(results, r)
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return results, err
	}
	if err := ctx.Err(); err != nil {
		return results, err
	}
	return results, nil
}

// Indexed pairs a result with the position of its input item.
type Indexed[R any] struct {
	Index int
	Value R
}

// MapIndexed is Map with results placed back in input order.
func MapIndexed[T, R any](ctx context.Context, items []T, limit int, fn func(context.Context, T) (R, error)) ([]R, error) {
	type job struct {
		i    int
		item T
	}
	jobs := make([]job, len(items))
	for i, item := range items {
		jobs[i] = job{i: i, item: item}
	}

	done, err := Map(ctx, jobs, limit, func(ctx context.Context, j job) (Indexed[R], error) {
		r, err := fn(ctx, j.item)
		return Indexed[R]{Index: j.i, Value: r}, err
	})
	if err != nil {
		return nil, err
	}

	out := make([]R, len(items))
	for _, d := range done {
		out[d.Index] = d.Value
	}
	return out, nil
}
