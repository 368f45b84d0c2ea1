package server

import (
	"crypto/subtle"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"farcaster-tv/internal/cache"
	"farcaster-tv/internal/domain"
	"farcaster-tv/internal/idhash"
)

const (
	feedCacheControl = "public, s-maxage=300, stale-while-revalidate=600"
	maxFeedLimit     = 500
	statusRuns       = 10
)

func (s *Server) getFeed(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 || n > maxFeedLimit {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be an integer between 0 and 500"})
			return
		}
		limit = n
	}

	res := s.feed.Feed(c.Request.Context(), limit)

	etag := idhash.PayloadETag(res.Items, res.QualifiedCreators)
	c.Header("ETag", etag)
	c.Header("Cache-Control", feedCacheControl)
	c.Header("X-Cache-Source", string(res.Cache.Source))
	if etagMatches(c.GetHeader("If-None-Match"), etag) {
		c.Status(http.StatusNotModified)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) getCreators(c *gin.Context) {
	ctx := c.Request.Context()
	p := s.creators.Get(ctx, cache.ScopeFrom(ctx))

	c.Header("Cache-Control", feedCacheControl)
	c.Header("X-Cache-Source", string(p.Cache.Source))
	c.JSON(http.StatusOK, p)
}

type revalidateRequest struct {
	Tag string `json:"tag"`
}

func (s *Server) postRevalidate(c *gin.Context) {
	if s.secret == "" {
		c.JSON(http.StatusForbidden, gin.H{"error": "revalidation disabled"})
		return
	}
	token := strings.TrimSpace(strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer "))
	if subtle.ConstantTimeCompare([]byte(token), []byte(s.secret)) != 1 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	var req revalidateRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	if req.Tag == "" {
		req.Tag = cache.DefaultTag
	}

	n, err := s.creators.InvalidateTag(c.Request.Context(), req.Tag)
	if err != nil {
		s.logger.Error("revalidate failed", zap.String("tag", req.Tag), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "revalidation failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"revalidated": true,
		"tag":         req.Tag,
		"entries":     n,
		"now":         time.Now().UnixMilli(),
	})
}

func (s *Server) getHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// StatusResponse is the JSON response of /status.
type StatusResponse struct {
	Status     string       `json:"status"`
	Uptime     string       `json:"uptime"`
	StartedAt  time.Time    `json:"started_at"`
	RecentRuns []runSummary `json:"recent_runs"`
}

type runSummary struct {
	RunID         string `json:"run_id"`
	StartedAt     string `json:"started_at"`
	DurationMs    int64  `json:"duration_ms"`
	Holders       int    `json:"holders"`
	Qualified     int    `json:"qualified"`
	Creators      int    `json:"creators"`
	Coins         int    `json:"coins"`
	NFTs          int    `json:"nfts"`
	SocialEnabled bool   `json:"social_enabled"`
}

func (s *Server) getStatus(c *gin.Context) {
	resp := StatusResponse{
		Status:     "running",
		Uptime:     time.Since(s.startedAt).Round(time.Second).String(),
		StartedAt:  s.startedAt,
		RecentRuns: []runSummary{},
	}

	runs, err := s.creators.RecentRuns(c.Request.Context(), statusRuns)
	if err != nil {
		s.logger.Warn("load recent runs failed", zap.Error(err))
		resp.Status = "degraded"
	}
	for _, r := range runs {
		resp.RecentRuns = append(resp.RecentRuns, runSummary{
			RunID:         r.RunID,
			StartedAt:     domain.FormatMillis(r.StartedAt),
			DurationMs:    r.DurationMs,
			Holders:       r.Holders,
			Qualified:     r.Qualified,
			Creators:      r.Creators,
			Coins:         r.Coins,
			NFTs:          r.NFTs,
			SocialEnabled: r.SocialEnabled,
		})
	}
	c.JSON(http.StatusOK, resp)
}

// etagMatches implements If-None-Match with weak comparison.
func etagMatches(header, etag string) bool {
	if header == "" {
		return false
	}
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimSpace(candidate)
		if candidate == "*" || strings.TrimPrefix(candidate, "W/") == etag {
			return true
		}
	}
	return false
}
