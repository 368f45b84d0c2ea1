package clickhouse

import (
	"context"
	"fmt"
	"time"

	"farcaster-tv/internal/domain"
	"farcaster-tv/internal/observability"
	"farcaster-tv/internal/storage"
)

// RunStore implements storage.RunStore using ClickHouse.
type RunStore struct {
	conn *Conn
}

// NewRunStore creates a new RunStore.
func NewRunStore(conn *Conn) *RunStore {
	return &RunStore{conn: conn}
}

// Compile-time interface check.
var _ storage.RunStore = (*RunStore)(nil)

// Insert adds a run. Returns ErrDuplicateKey if run_id exists.
func (s *RunStore) Insert(ctx context.Context, r *domain.AggregationRun) (err error) {
	if r == nil || r.RunID == "" {
		return storage.ErrInvalidInput
	}
	started := time.Now()
	defer func() {
		observability.RecordDBQuery("clickhouse", "insert_run", time.Since(started).Seconds(), err)
	}()

	// MergeTree does not enforce uniqueness
	var count uint64
	if err := s.conn.QueryRow(ctx, `SELECT count() FROM aggregation_runs WHERE run_id = ?`, r.RunID).Scan(&count); err != nil {
		return fmt.Errorf("check exists: %w", err)
	}
	if count > 0 {
		return storage.ErrDuplicateKey
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO aggregation_runs (
			run_id, started_at, duration_ms, holders, qualified,
			creators, coins, nfts, social_enabled
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	var social uint8
	if r.SocialEnabled {
		social = 1
	}
	if err := batch.Append(
		r.RunID,
		uint64(r.StartedAt),
		uint64(r.DurationMs),
		uint32(r.Holders),
		uint32(r.Qualified),
		uint32(r.Creators),
		uint32(r.Coins),
		uint32(r.NFTs),
		social,
	); err != nil {
		return fmt.Errorf("append run: %w", err)
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// Recent returns up to limit runs, newest first.
func (s *RunStore) Recent(ctx context.Context, limit int) ([]*domain.AggregationRun, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.conn.Query(ctx, `
		SELECT run_id, started_at, duration_ms, holders, qualified,
			creators, coins, nfts, social_enabled
		FROM aggregation_runs
		ORDER BY started_at DESC, run_id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var result []*domain.AggregationRun
	for rows.Next() {
		var (
			runID                                     string
			startedAt, durationMs                     uint64
			holders, qualified, creators, coins, nfts uint32
			social                                    uint8
		)
		if err := rows.Scan(&runID, &startedAt, &durationMs, &holders, &qualified,
			&creators, &coins, &nfts, &social); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		result = append(result, &domain.AggregationRun{
			RunID:         runID,
			StartedAt:     int64(startedAt),
			DurationMs:    int64(durationMs),
			Holders:       int(holders),
			Qualified:     int(qualified),
			Creators:      int(creators),
			Coins:         int(coins),
			NFTs:          int(nfts),
			SocialEnabled: social == 1,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return result, nil
}
