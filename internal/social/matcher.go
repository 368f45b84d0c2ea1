// Package social matches qualified creators to Farcaster profiles.
package social

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"farcaster-tv/internal/cache"
	"farcaster-tv/internal/domain"
)

const (
	DefaultMaxUsers  = 50
	DefaultCacheTTL  = 10 * time.Minute
	DefaultCacheSize = 4096
)

// ProfileSource resolves wallet addresses to social profiles in bulk.
// Result keys are lowercase addresses.
type ProfileSource interface {
	ProfilesByAddress(ctx context.Context, addresses []string) (map[string][]domain.SocialProfile, error)
}

// Options configures a Matcher.
type Options struct {
	Profiles  ProfileSource
	MaxUsers  int           // DefaultMaxUsers when < 1
	CacheTTL  time.Duration // DefaultCacheTTL when <= 0
	CacheSize int           // DefaultCacheSize when < 1
	Logger    *zap.Logger
}

// Matcher binds creators to their best Farcaster profile.
type Matcher struct {
	profiles ProfileSource
	maxUsers int
	cache    *cache.LRU[[]domain.SocialProfile]
	logger   *zap.Logger
}

// NewMatcher creates a Matcher.
func NewMatcher(opts Options) *Matcher {
	if opts.MaxUsers < 1 {
		opts.MaxUsers = DefaultMaxUsers
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = DefaultCacheTTL
	}
	if opts.CacheSize < 1 {
		opts.CacheSize = DefaultCacheSize
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Matcher{
		profiles: opts.Profiles,
		maxUsers: opts.MaxUsers,
		cache:    cache.NewLRU[[]domain.SocialProfile]("social", opts.CacheSize, opts.CacheTTL),
		logger:   logger.Named("social"),
	}
}

// Match resolves creators through the per-address profile cache.
func (m *Matcher) Match(ctx context.Context, creators []domain.QualifiedCreator) []domain.CreatorMatch {
	return m.match(ctx, creators, m.cachedLookup)
}

// MatchUncached resolves creators with one fresh bulk lookup.
func (m *Matcher) MatchUncached(ctx context.Context, creators []domain.QualifiedCreator) []domain.CreatorMatch {
	return m.match(ctx, creators, m.profiles.ProfilesByAddress)
}

type lookupFunc func(ctx context.Context, addresses []string) (map[string][]domain.SocialProfile, error)

func (m *Matcher) match(ctx context.Context, creators []domain.QualifiedCreator, lookup lookupFunc) []domain.CreatorMatch {
	var all []string
	for _, c := range creators {
		all = append(all, c.Wallets...)
	}
	addresses := domain.NormalizeAddresses(all)
	if len(addresses) == 0 {
		return []domain.CreatorMatch{}
	}

	byAddress, err := lookup(ctx, addresses)
	if err != nil {
		// cached and partially fetched results are still usable
		m.logger.Warn("profile lookup failed", zap.Int("addresses", len(addresses)), zap.Error(err))
	}

	matches := make([]domain.CreatorMatch, 0, len(creators))
	for _, c := range creators {
		match, ok := bestProfile(c, byAddress)
		if !ok {
			m.logger.Debug("no profile for creator", zap.String("handle", c.Handle))
			continue
		}
		matches = append(matches, match)
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return better(matches[i].Profile, matches[j].Profile)
	})

	if len(matches) > m.maxUsers {
		m.logger.Info("truncating matched creators",
			zap.Int("matched", len(matches)),
			zap.Int("max", m.maxUsers))
		matches = matches[:m.maxUsers]
	}
	return matches
}

// bestProfile picks the creator's most-followed profile across all wallets.
func bestProfile(c domain.QualifiedCreator, byAddress map[string][]domain.SocialProfile) (domain.CreatorMatch, bool) {
	var (
		match domain.CreatorMatch
		found bool
	)
	for _, wallet := range c.Wallets {
		wallet = domain.NormalizeAddress(wallet)
		for _, p := range byAddress[wallet] {
			if p.FID == 0 {
				continue
			}
			if !found || better(p, match.Profile) {
				match = domain.CreatorMatch{Creator: c, Profile: p, Wallet: wallet}
				found = true
			}
		}
	}
	return match, found
}

// better orders profiles by follower count descending, then fid ascending.
func better(a, b domain.SocialProfile) bool {
	if a.FollowerCount != b.FollowerCount {
		return a.FollowerCount > b.FollowerCount
	}
	return a.FID < b.FID
}

func (m *Matcher) cachedLookup(ctx context.Context, addresses []string) (map[string][]domain.SocialProfile, error) {
	out := make(map[string][]domain.SocialProfile, len(addresses))
	var misses []string
	for _, addr := range addresses {
		if profiles, ok := m.cache.Get(addr); ok {
			out[addr] = profiles
			continue
		}
		misses = append(misses, addr)
	}
	if len(misses) == 0 {
		return out, nil
	}

	fetched, err := m.profiles.ProfilesByAddress(ctx, misses)
	if err != nil {
		// partial result: an absent address may belong to a failed chunk,
		// so only addresses with profiles are cached
		for addr, profiles := range fetched {
			m.cache.Add(addr, profiles)
			out[addr] = profiles
		}
		return out, err
	}
	for _, addr := range misses {
		// addresses without profiles are cached as empty too
		profiles := fetched[addr]
		m.cache.Add(addr, profiles)
		out[addr] = profiles
	}
	m.logger.Debug("profile lookup",
		zap.Int("cached", len(addresses)-len(misses)),
		zap.Int("fetched", len(misses)))
	return out, nil
}
