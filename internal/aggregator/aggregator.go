// Package aggregator runs the creator pipeline (discovery, social
// matching, content fetch) behind the scope, LRU and shared cache tiers.
package aggregator

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"farcaster-tv/internal/cache"
	"farcaster-tv/internal/discovery"
	"farcaster-tv/internal/domain"
	"farcaster-tv/internal/observability"
	"farcaster-tv/internal/storage"
)

const (
	scopeKey = "aggregator"
	lruKey   = "payload"
)

// CreatorSource finds qualified creators.
type CreatorSource interface {
	Run(ctx context.Context) discovery.Report
}

// ProfileMatcher binds creators to social profiles.
type ProfileMatcher interface {
	Match(ctx context.Context, creators []domain.QualifiedCreator) []domain.CreatorMatch
	MatchUncached(ctx context.Context, creators []domain.QualifiedCreator) []domain.CreatorMatch
}

// ContentSource collects feed items for matched creators.
type ContentSource interface {
	Fetch(ctx context.Context, matches []domain.CreatorMatch) []domain.TVItem
}

// Options configures an Aggregator.
type Options struct {
	Discovery CreatorSource
	Matcher   ProfileMatcher
	Content   ContentSource

	// SocialEnabled is false when no social API credential is configured;
	// matching and content are then skipped.
	SocialEnabled bool

	Entries         storage.EntryStore // shared cache tier
	Runs            storage.RunStore   // optional run history
	LRUSize         int
	LRUTTL          time.Duration
	RevalidateAfter time.Duration
	Logger          *zap.Logger
	Now             func() time.Time
}

// Aggregator serves the creator payload.
type Aggregator struct {
	discovery     CreatorSource
	matcher       ProfileMatcher
	content       ContentSource
	socialEnabled bool
	runs          storage.RunStore
	lru           *cache.LRU[*domain.Payload]
	shared        *cache.Revalidating[*domain.Payload]
	logger        *zap.Logger
	now           func() time.Time
}

// New creates an Aggregator.
func New(opts Options) *Aggregator {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	a := &Aggregator{
		discovery:     opts.Discovery,
		matcher:       opts.Matcher,
		content:       opts.Content,
		socialEnabled: opts.SocialEnabled,
		runs:          opts.Runs,
		lru:           cache.NewLRU[*domain.Payload]("lru", opts.LRUSize, opts.LRUTTL),
		logger:        logger.Named("aggregator"),
		now:           now,
	}
	a.shared = cache.NewRevalidating(cache.RevalidatingOptions{
		Store:           opts.Entries,
		RevalidateAfter: opts.RevalidateAfter,
		Logger:          logger,
		Now:             now,
	}, func(ctx context.Context) (*domain.Payload, error) {
		return a.run(ctx, true), nil
	})

	if !opts.SocialEnabled {
		a.logger.Warn("social API key missing, creator items disabled")
	}
	return a
}

// Get returns the payload through the cache tiers: the request scope, the
// in-process LRU, then the shared revalidating cache.
func (a *Aggregator) Get(ctx context.Context, scope *cache.Scope) *domain.Payload {
	p, _ := cache.Do(scope, scopeKey, func() (*domain.Payload, error) {
		return a.get(ctx), nil
	})
	return p
}

func (a *Aggregator) get(ctx context.Context) *domain.Payload {
	started := a.now()

	if p, ok := a.lru.Get(lruKey); ok {
		return p.Served(domain.CacheSourceLRU, a.since(started))
	}

	p, err := a.shared.Get(ctx)
	if err != nil || p == nil {
		a.logger.Warn("shared cache unavailable, running uncached", zap.Error(err))
		p = a.run(ctx, true)
		if ctx.Err() != nil {
			// stages reduced the interruption to empty results
			return p.Served(domain.CacheSourceNone, a.since(started))
		}
	}
	a.lru.Add(lruKey, p)
	return p.Served(domain.CacheSourceShared, a.since(started))
}

// GetUncached runs the pipeline directly, bypassing every cache tier.
func (a *Aggregator) GetUncached(ctx context.Context) *domain.Payload {
	started := a.now()
	p := a.run(ctx, false)
	return p.Served(domain.CacheSourceNone, a.since(started))
}

// Refresh recomputes the shared entry and repopulates the LRU.
func (a *Aggregator) Refresh(ctx context.Context) (*domain.Payload, error) {
	p, err := a.shared.Refresh(ctx)
	if err != nil {
		return nil, err
	}
	a.lru.Add(lruKey, p)
	return p, nil
}

// InvalidateTag drops shared entries carrying tag and purges the LRU.
func (a *Aggregator) InvalidateTag(ctx context.Context, tag string) (int, error) {
	a.lru.Purge()
	n, err := a.shared.InvalidateTag(ctx, tag)
	trigger := "api"
	if v, ok := ctx.Value(triggerKey{}).(string); ok {
		trigger = v
	}
	observability.RecordInvalidation(trigger)
	return n, err
}

// RecentRuns returns the latest recorded runs, newest first.
func (a *Aggregator) RecentRuns(ctx context.Context, limit int) ([]*domain.AggregationRun, error) {
	if a.runs == nil {
		return []*domain.AggregationRun{}, nil
	}
	return a.runs.Recent(ctx, limit)
}

type triggerKey struct{}

// WithTrigger labels invalidations made with ctx for metrics.
func WithTrigger(ctx context.Context, trigger string) context.Context {
	return context.WithValue(ctx, triggerKey{}, trigger)
}

// run executes the pipeline once. It never fails: upstream errors have
// already been reduced to empty results by the stages.
func (a *Aggregator) run(ctx context.Context, cached bool) *domain.Payload {
	started := a.now()
	report := a.discovery.Run(ctx)

	p := &domain.Payload{
		QualifiedCreators: report.Creators,
		Items:             []domain.TVItem{},
	}

	var matched int
	if a.socialEnabled {
		var matches []domain.CreatorMatch
		if cached {
			matches = a.matcher.Match(ctx, report.Creators)
		} else {
			matches = a.matcher.MatchUncached(ctx, report.Creators)
		}
		matched = len(matches)

		p.Items = a.content.Fetch(ctx, matches)
		p.Stats.Creators = matched
		for _, item := range p.Items {
			switch item.FarcasterType {
			case domain.ItemKindCoin:
				p.Stats.Coins++
			case domain.ItemKindNFT:
				p.Stats.NFTs++
			}
		}
	}

	finished := a.now()
	p.DurationMs = finished.Sub(started).Milliseconds()
	p.GeneratedAt = finished.UnixMilli()

	a.record(ctx, started, report, p)
	observability.RecordAggregation(a.socialEnabled, finished.Sub(started).Seconds(),
		len(report.Creators), matched, finished.Unix())

	a.logger.Info("aggregation complete",
		zap.Int("holders", report.Holders),
		zap.Int("qualified", len(report.Creators)),
		zap.Int("creators", p.Stats.Creators),
		zap.Int("coins", p.Stats.Coins),
		zap.Int("nfts", p.Stats.NFTs),
		zap.Int64("duration_ms", p.DurationMs),
		zap.Bool("cached_lookup", cached))
	return p
}

func (a *Aggregator) record(ctx context.Context, started time.Time, report discovery.Report, p *domain.Payload) {
	if a.runs == nil {
		return
	}
	run := &domain.AggregationRun{
		RunID:         uuid.NewString(),
		StartedAt:     started.UnixMilli(),
		DurationMs:    p.DurationMs,
		Holders:       report.Holders,
		Qualified:     len(report.Creators),
		Creators:      p.Stats.Creators,
		Coins:         p.Stats.Coins,
		NFTs:          p.Stats.NFTs,
		SocialEnabled: a.socialEnabled,
	}
	if err := a.runs.Insert(context.WithoutCancel(ctx), run); err != nil {
		a.logger.Warn("record run failed", zap.String("run_id", run.RunID), zap.Error(err))
	}
}

func (a *Aggregator) since(t time.Time) int64 {
	return a.now().Sub(t).Milliseconds()
}
