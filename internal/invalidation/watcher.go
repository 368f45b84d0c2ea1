// Package invalidation drops cached feed payloads when the reference NFT
// collection changes hands on chain.
package invalidation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"farcaster-tv/internal/aggregator"
	"farcaster-tv/internal/chain"
	"farcaster-tv/internal/observability"
)

// DefaultDebounce coalesces bursts of transfers into one invalidation.
const DefaultDebounce = 30 * time.Second

// Invalidator drops cached entries by tag.
type Invalidator interface {
	InvalidateTag(ctx context.Context, tag string) (int, error)
}

// Options configures a Watcher.
type Options struct {
	Subscriber  chain.LogSubscriber
	Invalidator Invalidator
	Contract    string // reference NFT collection
	Tag         string
	Debounce    time.Duration // DefaultDebounce when <= 0
	Logger      *zap.Logger
}

// Watcher subscribes to Transfer logs of the NFT contract and invalidates
// the cache tag after each burst of transfers.
type Watcher struct {
	sub         chain.LogSubscriber
	invalidator Invalidator
	contract    common.Address
	tag         string
	debounce    time.Duration
	logger      *zap.Logger
}

// NewWatcher creates a Watcher.
func NewWatcher(opts Options) (*Watcher, error) {
	if !common.IsHexAddress(opts.Contract) {
		return nil, fmt.Errorf("invalid contract address %q", opts.Contract)
	}
	if opts.Subscriber == nil || opts.Invalidator == nil {
		return nil, errors.New("subscriber and invalidator are required")
	}
	if opts.Tag == "" {
		return nil, errors.New("tag is required")
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Watcher{
		sub:         opts.Subscriber,
		invalidator: opts.Invalidator,
		contract:    common.HexToAddress(opts.Contract),
		tag:         opts.Tag,
		debounce:    opts.Debounce,
		logger:      logger.Named("invalidation"),
	}, nil
}

// Run blocks until ctx is done or the subscription closes.
func (w *Watcher) Run(ctx context.Context) error {
	logs, err := w.sub.SubscribeLogs(ctx, chain.LogsFilter{
		Addresses: []common.Address{w.contract},
		Topics:    []common.Hash{chain.TransferTopic},
	})
	if err != nil {
		return fmt.Errorf("subscribe transfer logs: %w", err)
	}
	w.logger.Info("watching transfers", zap.String("contract", w.contract.Hex()))

	var (
		timer   *time.Timer
		fire    <-chan time.Time
		pending int
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case n, ok := <-logs:
			if !ok {
				return errors.New("log subscription closed")
			}
			if n.Removed || n.Address != w.contract || len(n.Topics) == 0 || n.Topics[0] != chain.TransferTopic {
				continue
			}
			observability.RecordChainEvent(w.contract.Hex())
			pending++
			if fire == nil {
				timer = time.NewTimer(w.debounce)
				fire = timer.C
			}

		case <-fire:
			fire = nil
			w.invalidate(ctx, pending)
			pending = 0
		}
	}
}

func (w *Watcher) invalidate(ctx context.Context, transfers int) {
	n, err := w.invalidator.InvalidateTag(aggregator.WithTrigger(ctx, "transfer"), w.tag)
	if err != nil {
		w.logger.Warn("invalidation failed", zap.String("tag", w.tag), zap.Error(err))
		return
	}
	w.logger.Info("cache invalidated by transfers",
		zap.Int("transfers", transfers),
		zap.Int("entries", n))
}
