// Package app wires configuration into the running component graph.
package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"farcaster-tv/internal/aggregator"
	"farcaster-tv/internal/apiclient"
	"farcaster-tv/internal/cache"
	"farcaster-tv/internal/chain"
	"farcaster-tv/internal/config"
	"farcaster-tv/internal/content"
	"farcaster-tv/internal/discovery"
	"farcaster-tv/internal/domain"
	"farcaster-tv/internal/feed"
	"farcaster-tv/internal/invalidation"
	"farcaster-tv/internal/neynar"
	"farcaster-tv/internal/social"
	"farcaster-tv/internal/storage"
	chstore "farcaster-tv/internal/storage/clickhouse"
	"farcaster-tv/internal/storage/memory"
	pgstore "farcaster-tv/internal/storage/postgres"
	redisstore "farcaster-tv/internal/storage/redis"
	"farcaster-tv/internal/subgraph"
	"farcaster-tv/internal/zora"
)

// redisEntryTTL bounds how long an orphaned shared entry survives in Redis.
const redisEntryTTL = 24 * time.Hour

// App holds the wired components.
type App struct {
	Config     *config.Config
	Aggregator *aggregator.Aggregator
	Feed       *feed.Service
	Logger     *zap.Logger

	closers []func()
}

// Build connects stores and constructs every component from cfg.
func Build(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &App{Config: cfg, Logger: logger}

	entries, err := a.entryStore(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}
	runs, err := a.runStore(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	timeout := apiclient.WithTimeout(cfg.RequestTimeout)
	rpc := chain.NewHTTPClient(cfg.BaseRPCURL, timeout)
	zoraClient := zora.NewClient(cfg.ZoraAPIURL, cfg.ZoraAPIKey, timeout)
	neynarClient := neynar.NewClient(cfg.NeynarAPIURL, cfg.NeynarAPIKey, timeout)

	disc := discovery.NewCreatorDiscovery(discovery.Options{
		Config: discovery.Config{
			Thresholds: domain.Thresholds{
				MinCoinBalance: cfg.MinCoinBalance,
				MinNFTBalance:  cfg.MinNFTBalance,
			},
		},
		Holders:     zoraClient,
		Wallets:     zoraClient,
		Balances:    chain.NewBalanceBatcher(chain.BatcherOptions{Reader: rpc, Logger: logger}),
		CoinAddress: cfg.ReferenceCoinAddress,
		NFTContract: cfg.NFTContractAddress,
		Logger:      logger,
	})

	matcher := social.NewMatcher(social.Options{
		Profiles: neynarClient,
		MaxUsers: cfg.MaxFarcasterUsers,
		Logger:   logger,
	})

	fetcher := content.NewFetcher(content.Options{
		Holdings:           neynarClient,
		Coins:              zoraClient,
		Allowlist:          []string{cfg.ReferenceCoinAddress},
		MaxItemsPerCreator: cfg.MaxItemsPerCreator,
		Logger:             logger,
	})

	a.Aggregator = aggregator.New(aggregator.Options{
		Discovery:       disc,
		Matcher:         matcher,
		Content:         fetcher,
		SocialEnabled:   cfg.SocialEnabled(),
		Entries:         entries,
		Runs:            runs,
		LRUSize:         cfg.LRUSize,
		LRUTTL:          cfg.LRUTTL,
		RevalidateAfter: cfg.RevalidateAfter,
		Logger:          logger,
	})

	feedOpts := feed.Options{
		Config:     feed.Config{ProfileHandle: cfg.DAOProfileHandle},
		Profiles:   zoraClient,
		Aggregator: a.Aggregator,
		Logger:     logger,
	}
	if cfg.SubgraphURL != "" && cfg.DAOTokenAddress != "" {
		sg := subgraph.NewClient(cfg.SubgraphURL, cfg.DAOTokenAddress, timeout)
		feedOpts.Paired = sg
		feedOpts.Drops = sg
	} else {
		logger.Info("subgraph not configured, paired coins and drops disabled")
	}
	a.Feed = feed.NewService(feedOpts)

	return a, nil
}

// Watch runs the transfer invalidation watcher until ctx is done. It
// returns immediately when no WebSocket endpoint is configured.
func (a *App) Watch(ctx context.Context) error {
	if a.Config.BaseWSURL == "" {
		a.Logger.Info("BASE_WS_URL not set, transfer invalidation disabled")
		return nil
	}

	wsCfg := chain.DefaultWSConfig()
	wsCfg.Logger = a.Logger
	ws, err := chain.NewWSClient(ctx, a.Config.BaseWSURL, &wsCfg)
	if err != nil {
		return fmt.Errorf("connect websocket: %w", err)
	}
	defer ws.Close()

	w, err := invalidation.NewWatcher(invalidation.Options{
		Subscriber:  ws,
		Invalidator: a.Aggregator,
		Contract:    a.Config.NFTContractAddress,
		Tag:         cache.DefaultTag,
		Logger:      a.Logger,
	})
	if err != nil {
		return err
	}
	return w.Run(ctx)
}

// Close releases store connections.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func (a *App) entryStore(ctx context.Context) (storage.EntryStore, error) {
	switch a.Config.CacheBackend {
	case config.BackendPostgres:
		pool, err := pgstore.NewPool(ctx, a.Config.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("connect to postgres: %w", err)
		}
		a.closers = append(a.closers, pool.Close)
		return pgstore.NewEntryStore(pool), nil

	case config.BackendRedis:
		client, err := redisstore.NewClient(ctx, a.Config.RedisAddr, a.Config.RedisPassword, a.Config.RedisDB)
		if err != nil {
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		a.closers = append(a.closers, func() { client.Close() })
		return redisstore.NewEntryStore(client, redisstore.Options{TTL: redisEntryTTL}), nil

	default:
		return memory.NewEntryStore(), nil
	}
}

func (a *App) runStore(ctx context.Context) (storage.RunStore, error) {
	if a.Config.ClickhouseDSN == "" {
		return memory.NewRunStore(), nil
	}
	conn, err := chstore.NewConn(ctx, a.Config.ClickhouseDSN)
	if err != nil {
		return nil, fmt.Errorf("connect to clickhouse: %w", err)
	}
	a.closers = append(a.closers, func() { conn.Close() })
	return chstore.NewRunStore(conn), nil
}
