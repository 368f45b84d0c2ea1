// Package feed merges the TV feed sources into one ranked list.
package feed

import (
	"sort"
	"time"

	"farcaster-tv/internal/domain"
)

const (
	FollowerCap = 50_000
	MaxBoost    = 6 * time.Hour
)

// Sources holds the items of every feed input.
type Sources struct {
	Paired  []domain.TVItem
	Profile []domain.TVItem
	Creator []domain.TVItem
	Social  []domain.TVItem
	Drops   []domain.TVItem
}

// Items returns the items of src, or nil for an unknown source.
func (s Sources) Items(src domain.Source) []domain.TVItem {
	switch src {
	case domain.SourcePaired:
		return s.Paired
	case domain.SourceProfile:
		return s.Profile
	case domain.SourceCreator:
		return s.Creator
	case domain.SourceSocial:
		return s.Social
	case domain.SourceDrops:
		return s.Drops
	}
	return nil
}

// ordered concatenates the sources in admission priority.
func (s Sources) ordered() []sourced {
	var out []sourced
	for _, src := range domain.SourcePriority {
		for _, it := range s.Items(src) {
			out = append(out, sourced{item: it, source: src})
		}
	}
	return out
}

type sourced struct {
	item   domain.TVItem
	source domain.Source
	score  int64
}

// Merge de-duplicates and ranks the sources. limit <= 0 keeps every item.
func Merge(s Sources, limit int) []domain.TVItem {
	items, _ := merge(s, limit)
	return items
}

// merge also returns admitted item counts per source.
func merge(s Sources, limit int) ([]domain.TVItem, map[string]int) {
	admitted := admit(s.ordered())

	for i := range admitted {
		admitted[i].score = Score(admitted[i].item)
	}
	// ties keep priority order, then input order within a source
	sort.SliceStable(admitted, func(i, j int) bool {
		if admitted[i].score != admitted[j].score {
			return admitted[i].score > admitted[j].score
		}
		return admitted[i].source.Priority() < admitted[j].source.Priority()
	})

	if limit > 0 && len(admitted) > limit {
		admitted = admitted[:limit]
	}

	counts := make(map[string]int)
	items := make([]domain.TVItem, 0, len(admitted))
	for _, a := range admitted {
		items = append(items, a.item)
		counts[a.source.String()]++
	}
	return items, counts
}

// admit runs the sequential first-seen-wins pass. Plain items claim their
// address; social items claim address:fid and lose to a plain claim.
func admit(in []sourced) []sourced {
	plain := make(map[string]struct{})
	social := make(map[string]struct{})
	socialAddr := make(map[string]struct{})

	out := make([]sourced, 0, len(in))
	for _, s := range in {
		it := s.item
		if !it.HasMedia() {
			continue
		}
		addr := it.Address()
		if addr == "" {
			continue
		}
		if _, taken := plain[addr]; taken {
			continue
		}

		if it.IsSocial() {
			key := it.DedupKey()
			if _, dup := social[key]; dup {
				continue
			}
			social[key] = struct{}{}
			socialAddr[addr] = struct{}{}
		} else {
			if _, taken := socialAddr[addr]; taken {
				continue
			}
			plain[addr] = struct{}{}
		}
		out = append(out, s)
	}
	return out
}

// Score is the ranking key: createdAt in ms plus a follower boost of up to
// MaxBoost, linear below FollowerCap followers.
func Score(it domain.TVItem) int64 {
	return it.CreatedAtMillis() + FollowerBoost(it.FarcasterFollowerCount)
}

// FollowerBoost returns the boost in ms for a follower count.
func FollowerBoost(followers int) int64 {
	if followers <= 0 {
		return 0
	}
	if followers > FollowerCap {
		followers = FollowerCap
	}
	return int64(followers) * MaxBoost.Milliseconds() / FollowerCap
}
