package domain

// CacheSource tells which cache tier answered an aggregator call.
type CacheSource string

const (
	CacheSourceLRU    CacheSource = "lru"  // in-process LRU
	CacheSourceShared CacheSource = "next" // cross-invocation revalidating cache
	CacheSourceNone   CacheSource = "none" // uncached run
)

// Stats counts the output of one aggregation run.
type Stats struct {
	Creators int `json:"creators"`
	Coins    int `json:"coins"`
	NFTs     int `json:"nfts"`
}

// CacheInfo describes how a payload was served.
type CacheInfo struct {
	Source CacheSource `json:"source"`
}

// Payload is the aggregator result.
type Payload struct {
	QualifiedCreators []QualifiedCreator `json:"qualifiedCreators"`
	Items             []TVItem           `json:"items"`
	Stats             Stats              `json:"stats"`
	DurationMs        int64              `json:"durationMs"`
	Cache             CacheInfo          `json:"cache"`
	GeneratedAt       int64              `json:"generatedAt"`
}

// Served returns a shallow copy of p tagged with how it was served.
// Cached payloads are shared, so callers never mutate p itself.
func (p *Payload) Served(source CacheSource, durationMs int64) *Payload {
	if p == nil {
		return nil
	}
	out := *p
	out.Cache = CacheInfo{Source: source}
	out.DurationMs = durationMs
	return &out
}

// AggregationRun records one execution of the creator pipeline.
type AggregationRun struct {
	RunID         string
	StartedAt     int64 // unix ms
	DurationMs    int64
	Holders       int
	Qualified     int
	Creators      int
	Coins         int
	NFTs          int
	SocialEnabled bool
}
