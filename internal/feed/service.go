package feed

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"farcaster-tv/internal/cache"
	"farcaster-tv/internal/concurrency"
	"farcaster-tv/internal/domain"
	"farcaster-tv/internal/observability"
)

// PairedSource lists coins paired with the DAO token.
type PairedSource interface {
	PairedCoins(ctx context.Context, first int) ([]domain.Coin, error)
}

// DropSource lists drop announcements.
type DropSource interface {
	Drops(ctx context.Context, first int) ([]domain.Drop, error)
}

// ProfileCoinSource lists the coins created by a profile.
type ProfileCoinSource interface {
	ProfileCoins(ctx context.Context, handle string, count int) ([]domain.Coin, error)
}

// CreatorPayloadSource serves the creator aggregator payload.
type CreatorPayloadSource interface {
	Get(ctx context.Context, scope *cache.Scope) *domain.Payload
}

// Config holds merge parameters.
type Config struct {
	PairedCount    int    // paired coins requested (50)
	DropCount      int    // drops requested (20)
	ProfileHandle  string // DAO profile; empty disables the profile source
	ProfileCount   int    // DAO profile coins requested (20)
	CreatorCount   int    // coins requested per qualified creator (6)
	CreatorLimit   int    // concurrent creator coin lookups (4)
	MaxCreatorsRun int    // qualified creators whose coins are fetched (50)
}

// DefaultConfig returns default merge configuration.
func DefaultConfig() Config {
	return Config{
		PairedCount:    50,
		DropCount:      20,
		ProfileCount:   20,
		CreatorCount:   6,
		CreatorLimit:   4,
		MaxCreatorsRun: 50,
	}
}

// Options configures a Service. Nil sources contribute nothing.
type Options struct {
	Config     Config
	Paired     PairedSource
	Drops      DropSource
	Profiles   ProfileCoinSource
	Aggregator CreatorPayloadSource
	Logger     *zap.Logger
}

// Service builds the merged TV feed.
type Service struct {
	cfg        Config
	paired     PairedSource
	drops      DropSource
	profiles   ProfileCoinSource
	aggregator CreatorPayloadSource
	logger     *zap.Logger
}

// Result is the merged feed response.
type Result struct {
	Items             []domain.TVItem           `json:"items"`
	QualifiedCreators []domain.QualifiedCreator `json:"qualifiedCreators"`
	Stats             domain.Stats              `json:"stats"`
	DurationMs        int64                     `json:"durationMs"`
	Cache             domain.CacheInfo          `json:"cache"`
}

// NewService creates a Service. Zero config fields take their defaults.
func NewService(opts Options) *Service {
	cfg := opts.Config
	def := DefaultConfig()
	if cfg.PairedCount <= 0 {
		cfg.PairedCount = def.PairedCount
	}
	if cfg.DropCount <= 0 {
		cfg.DropCount = def.DropCount
	}
	if cfg.ProfileCount <= 0 {
		cfg.ProfileCount = def.ProfileCount
	}
	if cfg.CreatorCount <= 0 {
		cfg.CreatorCount = def.CreatorCount
	}
	if cfg.CreatorLimit <= 0 {
		cfg.CreatorLimit = def.CreatorLimit
	}
	if cfg.MaxCreatorsRun <= 0 {
		cfg.MaxCreatorsRun = def.MaxCreatorsRun
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Service{
		cfg:        cfg,
		paired:     opts.Paired,
		drops:      opts.Drops,
		profiles:   opts.Profiles,
		aggregator: opts.Aggregator,
		logger:     logger.Named("feed"),
	}
}

// Feed fetches all sources in parallel and merges them. A failing source
// contributes no items; Feed itself never fails.
func (s *Service) Feed(ctx context.Context, limit int) *Result {
	started := time.Now()

	var (
		src     Sources
		payload *domain.Payload
		g       errgroup.Group
	)
	g.Go(func() error {
		src.Paired = s.pairedItems(ctx)
		return nil
	})
	g.Go(func() error {
		src.Profile = s.profileItems(ctx)
		return nil
	})
	g.Go(func() error {
		payload = s.creatorPayload(ctx)
		src.Social = payload.Items
		src.Creator = s.creatorItems(ctx, payload.QualifiedCreators)
		return nil
	})
	g.Go(func() error {
		src.Drops = s.dropItems(ctx)
		return nil
	})
	_ = g.Wait()

	items, counts := merge(src, limit)
	elapsed := time.Since(started)
	observability.RecordFeedMerge(elapsed.Seconds(), counts)

	fields := make([]zap.Field, 0, len(domain.SourcePriority)+2)
	for _, source := range domain.SourcePriority {
		fields = append(fields, zap.Int(source.String(), len(src.Items(source))))
	}
	fields = append(fields, zap.Int("items", len(items)), zap.Duration("elapsed", elapsed))
	s.logger.Info("feed merged", fields...)

	return &Result{
		Items:             items,
		QualifiedCreators: payload.QualifiedCreators,
		Stats:             payload.Stats,
		DurationMs:        elapsed.Milliseconds(),
		Cache:             payload.Cache,
	}
}

func (s *Service) creatorPayload(ctx context.Context) *domain.Payload {
	empty := &domain.Payload{
		QualifiedCreators: []domain.QualifiedCreator{},
		Items:             []domain.TVItem{},
		Cache:             domain.CacheInfo{Source: domain.CacheSourceNone},
	}
	if s.aggregator == nil {
		return empty
	}
	if p := s.aggregator.Get(ctx, cache.ScopeFrom(ctx)); p != nil {
		return p
	}
	return empty
}

func (s *Service) pairedItems(ctx context.Context) []domain.TVItem {
	if s.paired == nil {
		return nil
	}
	coins, err := s.paired.PairedCoins(ctx, s.cfg.PairedCount)
	if err != nil {
		s.logger.Warn("paired coins failed", zap.Error(err))
		return nil
	}
	return coinItems(coins)
}

func (s *Service) profileItems(ctx context.Context) []domain.TVItem {
	if s.profiles == nil || s.cfg.ProfileHandle == "" {
		return nil
	}
	coins, err := s.profiles.ProfileCoins(ctx, s.cfg.ProfileHandle, s.cfg.ProfileCount)
	if err != nil {
		s.logger.Warn("profile coins failed", zap.String("handle", s.cfg.ProfileHandle), zap.Error(err))
		return nil
	}
	return coinItems(coins)
}

// creatorItems lists coins created by qualified creators.
func (s *Service) creatorItems(ctx context.Context, creators []domain.QualifiedCreator) []domain.TVItem {
	if s.profiles == nil || len(creators) == 0 {
		return nil
	}
	if len(creators) > s.cfg.MaxCreatorsRun {
		creators = creators[:s.cfg.MaxCreatorsRun]
	}

	perCreator, err := concurrency.MapIndexed(ctx, creators, s.cfg.CreatorLimit,
		func(ctx context.Context, c domain.QualifiedCreator) ([]domain.Coin, error) {
			coins, err := s.profiles.ProfileCoins(ctx, c.Handle, s.cfg.CreatorCount)
			if err != nil {
				s.logger.Debug("creator coins failed", zap.String("handle", c.Handle), zap.Error(err))
				return nil, nil
			}
			return coins, nil
		})
	if err != nil {
		s.logger.Warn("creator coins interrupted", zap.Error(err))
		return nil
	}

	var items []domain.TVItem
	for _, coins := range perCreator {
		items = append(items, coinItems(coins)...)
	}
	return items
}

func (s *Service) dropItems(ctx context.Context) []domain.TVItem {
	if s.drops == nil {
		return nil
	}
	drops, err := s.drops.Drops(ctx, s.cfg.DropCount)
	if err != nil {
		s.logger.Warn("drops failed", zap.Error(err))
		return nil
	}
	items := make([]domain.TVItem, 0, len(drops))
	for _, d := range drops {
		if item, ok := domain.ItemFromDrop(d); ok {
			items = append(items, item)
		}
	}
	return items
}

func coinItems(coins []domain.Coin) []domain.TVItem {
	items := make([]domain.TVItem, 0, len(coins))
	for _, c := range coins {
		if item, ok := domain.ItemFromCoin(c); ok {
			items = append(items, item)
		}
	}
	return items
}
