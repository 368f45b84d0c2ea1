// Package content turns matched creators into coin and NFT feed items.
package content

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"farcaster-tv/internal/concurrency"
	"farcaster-tv/internal/domain"
)

const (
	DefaultMaxItemsPerCreator = 6
	DefaultLimit              = 4
	DefaultResolveLimit       = 4
	DefaultChain              = "base"
)

// HoldingsSource lists what a Farcaster identity holds.
type HoldingsSource interface {
	CoinBalances(ctx context.Context, fid int64) ([]domain.CoinBalance, error)
	NFTHoldings(ctx context.Context, fid int64) ([]domain.NFTHolding, error)
}

// CoinResolver loads full coin metadata. A nil coin means unknown.
type CoinResolver interface {
	Coin(ctx context.Context, address string) (*domain.Coin, error)
}

// Options configures a Fetcher.
type Options struct {
	Holdings           HoldingsSource
	Coins              CoinResolver
	Allowlist          []string // coin addresses related to the community
	MaxItemsPerCreator int
	Limit              int    // creators fetched concurrently
	ResolveLimit       int    // coin metadata lookups in flight per creator
	Chain              string // expected NFT chain tag
	Logger             *zap.Logger
	Now                func() time.Time
}

// Fetcher collects per-creator content for matched creators.
type Fetcher struct {
	holdings     HoldingsSource
	coins        CoinResolver
	allow        map[string]struct{}
	maxItems     int
	limit        int
	resolveLimit int
	chain        string
	logger       *zap.Logger
	now          func() time.Time
}

// NewFetcher creates a Fetcher.
func NewFetcher(opts Options) *Fetcher {
	if opts.MaxItemsPerCreator < 1 {
		opts.MaxItemsPerCreator = DefaultMaxItemsPerCreator
	}
	if opts.Limit < 1 {
		opts.Limit = DefaultLimit
	}
	if opts.ResolveLimit < 1 {
		opts.ResolveLimit = DefaultResolveLimit
	}
	if opts.Chain == "" {
		opts.Chain = DefaultChain
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	allow := make(map[string]struct{}, len(opts.Allowlist))
	for _, a := range domain.NormalizeAddresses(opts.Allowlist) {
		allow[a] = struct{}{}
	}

	return &Fetcher{
		holdings:     opts.Holdings,
		coins:        opts.Coins,
		allow:        allow,
		maxItems:     opts.MaxItemsPerCreator,
		limit:        opts.Limit,
		resolveLimit: opts.ResolveLimit,
		chain:        strings.ToLower(opts.Chain),
		logger:       logger.Named("content"),
		now:          opts.Now,
	}
}

// Fetch returns the coin and NFT items of every match. Fetching runs
// concurrently; admission is sequential in match order, keyed by
// address:fid so no item is attributed twice.
func (f *Fetcher) Fetch(ctx context.Context, matches []domain.CreatorMatch) []domain.TVItem {
	perCreator, err := concurrency.MapIndexed(ctx, matches, f.limit,
		func(ctx context.Context, m domain.CreatorMatch) ([]domain.TVItem, error) {
			return f.fetchCreator(ctx, m), nil
		})
	if err != nil {
		f.logger.Warn("content fetch interrupted", zap.Error(err))
	}

	seen := make(map[string]struct{})
	items := make([]domain.TVItem, 0)
	for i, batch := range perCreator {
		if len(batch) == 0 {
			f.logger.Debug("creator yielded no items",
				zap.String("handle", matches[i].Creator.Handle),
				zap.Int64("fid", matches[i].Profile.FID))
			continue
		}
		for _, item := range batch {
			key := item.DedupKey()
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			items = append(items, item)
		}
	}
	return items
}

func (f *Fetcher) fetchCreator(ctx context.Context, m domain.CreatorMatch) []domain.TVItem {
	var (
		wg       sync.WaitGroup
		balances []domain.CoinBalance
		nfts     []domain.NFTHolding
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		var err error
		if balances, err = f.holdings.CoinBalances(ctx, m.Profile.FID); err != nil {
			f.logger.Warn("coin balances failed", zap.Int64("fid", m.Profile.FID), zap.Error(err))
			balances = nil
		}
	}()
	go func() {
		defer wg.Done()
		var err error
		if nfts, err = f.holdings.NFTHoldings(ctx, m.Profile.FID); err != nil {
			f.logger.Warn("nft holdings failed", zap.Int64("fid", m.Profile.FID), zap.Error(err))
			nfts = nil
		}
	}()
	wg.Wait()

	items := f.coinItems(ctx, m, f.selectCoins(balances))
	return append(items, f.nftItems(m, f.selectNFTs(nfts))...)
}

// selectCoins keeps related coins with a positive balance, most valuable first.
func (f *Fetcher) selectCoins(balances []domain.CoinBalance) []domain.CoinBalance {
	out := make([]domain.CoinBalance, 0, len(balances))
	for _, b := range balances {
		if b.Balance <= 0 || !common.IsHexAddress(b.Address) {
			continue
		}
		if _, ok := f.allow[domain.NormalizeAddress(b.Address)]; !ok {
			continue
		}
		out = append(out, b)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ValueUSD > out[j].ValueUSD
	})
	if len(out) > f.maxItems {
		out = out[:f.maxItems]
	}
	return out
}

func (f *Fetcher) selectNFTs(nfts []domain.NFTHolding) []domain.NFTHolding {
	out := make([]domain.NFTHolding, 0, len(nfts))
	for _, n := range nfts {
		if strings.TrimSpace(n.ImageURL) == "" || strings.TrimSpace(n.Contract) == "" {
			continue
		}
		if n.Chain != "" && strings.ToLower(n.Chain) != f.chain {
			continue
		}
		out = append(out, n)
		if len(out) == f.maxItems {
			break
		}
	}
	return out
}

func (f *Fetcher) coinItems(ctx context.Context, m domain.CreatorMatch, coins []domain.CoinBalance) []domain.TVItem {
	if len(coins) == 0 {
		return nil
	}
	resolved, err := concurrency.MapIndexed(ctx, coins, f.resolveLimit,
		func(ctx context.Context, b domain.CoinBalance) (*domain.Coin, error) {
			coin, err := f.coins.Coin(ctx, b.Address)
			if err != nil {
				f.logger.Warn("coin resolve failed", zap.String("coin", b.Address), zap.Error(err))
				return nil, nil
			}
			return coin, nil
		})
	if err != nil {
		return nil
	}

	items := make([]domain.TVItem, 0, len(resolved))
	for _, coin := range resolved {
		if coin == nil {
			continue
		}
		item, ok := domain.ItemFromCoin(*coin)
		if !ok {
			continue
		}
		items = append(items, item.WithProfile(m.Profile, domain.ItemKindCoin))
	}
	return items
}

func (f *Fetcher) nftItems(m domain.CreatorMatch, nfts []domain.NFTHolding) []domain.TVItem {
	fallback := domain.FormatMillis(f.now().UnixMilli())
	items := make([]domain.TVItem, 0, len(nfts))
	for _, n := range nfts {
		if item, ok := domain.ItemFromNFT(n, m, fallback); ok {
			items = append(items, item)
		}
	}
	return items
}
