package concurrency

import (
	"context"
	"errors"
	"math/rand"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMap_BoundsInFlight(t *testing.T) {
	for _, limit := range []int{1, 2, 4, 8} {
		var inFlight, peak atomic.Int64
		items := make([]int, 40)
		for i := range items {
			items[i] = i
		}

		results, err := Map(context.Background(), items, limit, func(_ context.Context, n int) (int, error) {
			cur := inFlight.Add(1)
			for {
				p := peak.Load()
				if cur <= p || peak.CompareAndSwap(p, cur) {
					break
				}
			}
			time.Sleep(time.Duration(rand.Intn(3)) * time.Millisecond)
			inFlight.Add(-1)
			return n * 2, nil
		})

		require.NoError(t, err)
		assert.Len(t, results, len(items), "limit %d", limit)
		assert.LessOrEqual(t, peak.Load(), int64(limit), "limit %d", limit)
	}
}

func TestMap_ZeroLimitRunsSequentially(t *testing.T) {
	var inFlight, peak atomic.Int64
	_, err := Map(context.Background(), []int{1, 2, 3, 4}, 0, func(_ context.Context, n int) (int, error) {
		if c := inFlight.Add(1); c > peak.Load() {
			peak.Store(c)
		}
		time.Sleep(time.Millisecond)
		inFlight.Add(-1)
		return n, nil
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), peak.Load())
}

func TestMap_EmptyInput(t *testing.T) {
	results, err := Map(context.Background(), []string(nil), 4, func(_ context.Context, s string) (string, error) {
		t.Fatal("fn must not be called")
		return s, nil
	})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestMap_ReturnsFirstErrorAndSkipsRest(t *testing.T) {
	boom := errors.New("boom")
	var calls atomic.Int64

	items := make([]int, 100)
	_, err := Map(context.Background(), items, 1, func(_ context.Context, _ int) (int, error) {
		if calls.Add(1) == 3 {
			return 0, boom
		}
		return 1, nil
	})

	require.ErrorIs(t, err, boom)
	assert.Less(t, calls.Load(), int64(100))
}

func TestMap_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Map(ctx, []int{1, 2, 3}, 2, func(_ context.Context, n int) (int, error) {
		return n, nil
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMapIndexed_KeepsInputOrder(t *testing.T) {
	items := []int{5, 4, 3, 2, 1}
	out, err := MapIndexed(context.Background(), items, 5, func(_ context.Context, n int) (int, error) {
		time.Sleep(time.Duration(n) * time.Millisecond)
		return n * 10, nil
	})
	require.NoError(t, err)
	assert.Equal(t, []int{50, 40, 30, 20, 10}, out)
}
