package social

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"farcaster-tv/internal/domain"
)

type fakeProfiles struct {
	mu       sync.Mutex
	profiles map[string][]domain.SocialProfile
	err      error
	partial  bool // return found profiles alongside err
	requests [][]string
}

func (f *fakeProfiles) ProfilesByAddress(_ context.Context, addrs []string) (map[string][]domain.SocialProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, append([]string(nil), addrs...))
	if f.err != nil && !f.partial {
		return nil, f.err
	}
	out := make(map[string][]domain.SocialProfile)
	for _, a := range addrs {
		if p, ok := f.profiles[a]; ok {
			out[a] = p
		}
	}
	return out, f.err
}

func creator(handle string, wallets ...string) domain.QualifiedCreator {
	return domain.QualifiedCreator{Handle: handle, CoinBalance: 5000, NFTBalance: 1, Wallets: wallets}
}

func TestMatch_BestProfileAcrossWallets(t *testing.T) {
	src := &fakeProfiles{profiles: map[string][]domain.SocialProfile{
		"0xa1": {{FID: 10, Username: "alice-old", FollowerCount: 50}},
		"0xa2": {{FID: 11, Username: "alice", FollowerCount: 900}},
	}}
	m := NewMatcher(Options{Profiles: src})

	matches := m.MatchUncached(context.Background(), []domain.QualifiedCreator{creator("alice", "0xa1", "0xa2")})

	require.Len(t, matches, 1)
	assert.Equal(t, int64(11), matches[0].Profile.FID)
	assert.Equal(t, "0xa2", matches[0].Wallet)
	assert.Equal(t, "alice", matches[0].Creator.Handle)
}

func TestMatch_TieBreaksOnLowerFID(t *testing.T) {
	src := &fakeProfiles{profiles: map[string][]domain.SocialProfile{
		"0xa1": {{FID: 30, FollowerCount: 100}, {FID: 20, FollowerCount: 100}},
	}}
	m := NewMatcher(Options{Profiles: src})

	matches := m.MatchUncached(context.Background(), []domain.QualifiedCreator{creator("a", "0xa1")})

	require.Len(t, matches, 1)
	assert.Equal(t, int64(20), matches[0].Profile.FID)
}

func TestMatch_DropsCreatorsWithoutProfile(t *testing.T) {
	src := &fakeProfiles{profiles: map[string][]domain.SocialProfile{
		"0xa1": {{FID: 1, FollowerCount: 5}},
	}}
	m := NewMatcher(Options{Profiles: src})

	matches := m.MatchUncached(context.Background(), []domain.QualifiedCreator{
		creator("a", "0xa1"),
		creator("b", "0xb1"),
	})

	require.Len(t, matches, 1)
	assert.Equal(t, "a", matches[0].Creator.Handle)
}

func TestMatch_SortedAndTruncated(t *testing.T) {
	src := &fakeProfiles{profiles: map[string][]domain.SocialProfile{}}
	var creators []domain.QualifiedCreator
	for i := 1; i <= 5; i++ {
		addr := fmt.Sprintf("0x%02d", i)
		src.profiles[addr] = []domain.SocialProfile{{FID: int64(i), FollowerCount: i * 10}}
		creators = append(creators, creator(fmt.Sprintf("c%d", i), addr))
	}
	m := NewMatcher(Options{Profiles: src, MaxUsers: 3})

	matches := m.MatchUncached(context.Background(), creators)

	require.Len(t, matches, 3)
	assert.Equal(t, int64(5), matches[0].Profile.FID)
	assert.Equal(t, int64(4), matches[1].Profile.FID)
	assert.Equal(t, int64(3), matches[2].Profile.FID)
}

func TestMatch_CachesPerAddress(t *testing.T) {
	src := &fakeProfiles{profiles: map[string][]domain.SocialProfile{
		"0xa1": {{FID: 1, FollowerCount: 5}},
	}}
	m := NewMatcher(Options{Profiles: src})
	ctx := context.Background()

	first := m.Match(ctx, []domain.QualifiedCreator{creator("a", "0xa1"), creator("b", "0xb1")})
	require.Len(t, first, 1)

	// second run adds one new wallet; only that one is fetched
	second := m.Match(ctx, []domain.QualifiedCreator{creator("a", "0xa1"), creator("b", "0xb1"), creator("c", "0xc1")})
	require.Len(t, second, 1)

	require.Len(t, src.requests, 2)
	assert.ElementsMatch(t, []string{"0xa1", "0xb1"}, src.requests[0])
	assert.Equal(t, []string{"0xc1"}, src.requests[1])

	// uncached bypasses the cache entirely
	m.MatchUncached(ctx, []domain.QualifiedCreator{creator("a", "0xa1")})
	require.Len(t, src.requests, 3)
}

func TestMatch_LookupFailureYieldsEmpty(t *testing.T) {
	src := &fakeProfiles{err: errors.New("neynar down")}
	m := NewMatcher(Options{Profiles: src})

	matches := m.Match(context.Background(), []domain.QualifiedCreator{creator("a", "0xa1")})
	assert.Empty(t, matches)
	assert.NotNil(t, matches)
}

func TestMatch_NoWallets(t *testing.T) {
	src := &fakeProfiles{}
	m := NewMatcher(Options{Profiles: src})

	matches := m.Match(context.Background(), nil)
	assert.Empty(t, matches)
	assert.Empty(t, src.requests)
}

func TestMatch_PartialLookupKeepsFoundProfiles(t *testing.T) {
	src := &fakeProfiles{
		profiles: map[string][]domain.SocialProfile{"0xa1": {{FID: 1, FollowerCount: 5}}},
		err:      errors.New("second chunk failed"),
		partial:  true,
	}
	m := NewMatcher(Options{Profiles: src})
	ctx := context.Background()
	creators := []domain.QualifiedCreator{creator("a", "0xa1"), creator("b", "0xb1")}

	matches := m.Match(ctx, creators)
	require.Len(t, matches, 1)
	assert.Equal(t, "a", matches[0].Creator.Handle)

	// 0xb1 was not cached as empty, so it is asked for again
	src.err = nil
	m.Match(ctx, creators)
	require.Len(t, src.requests, 2)
	assert.Equal(t, []string{"0xb1"}, src.requests[1])
}
