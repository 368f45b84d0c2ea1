// Package server exposes the TV feed over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"farcaster-tv/internal/cache"
	"farcaster-tv/internal/domain"
	"farcaster-tv/internal/feed"
	"farcaster-tv/internal/observability"
)

// FeedService builds the merged feed.
type FeedService interface {
	Feed(ctx context.Context, limit int) *feed.Result
}

// CreatorService serves the creator payload and manages its cache.
type CreatorService interface {
	Get(ctx context.Context, scope *cache.Scope) *domain.Payload
	InvalidateTag(ctx context.Context, tag string) (int, error)
	RecentRuns(ctx context.Context, limit int) ([]*domain.AggregationRun, error)
}

// Options configures a Server.
type Options struct {
	Feed             FeedService
	Creators         CreatorService
	RevalidateSecret string // empty disables POST /api/tv/revalidate
	Logger           *zap.Logger
}

// Server is the HTTP front of the service.
type Server struct {
	engine    *gin.Engine
	feed      FeedService
	creators  CreatorService
	secret    string
	logger    *zap.Logger
	startedAt time.Time
}

// New creates a Server with all routes registered.
func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{
		engine:    gin.New(),
		feed:      opts.Feed,
		creators:  opts.Creators,
		secret:    opts.RevalidateSecret,
		logger:    logger.Named("http"),
		startedAt: time.Now(),
	}

	s.engine.Use(gin.Recovery(), requestID(), requestScope(), requestLogger(s.logger))
	s.routes()
	return s
}

func (s *Server) routes() {
	api := s.engine.Group("/api/tv")
	{
		api.GET("/feed", s.getFeed)
		api.GET("/creators", s.getCreators)
		api.POST("/revalidate", s.postRevalidate)
	}

	s.engine.GET("/health", s.getHealth)
	s.engine.GET("/status", s.getStatus)
	s.engine.GET("/metrics", gin.WrapH(observability.Handler()))
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves on addr until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return ctx.Err()
}
