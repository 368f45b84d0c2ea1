// Package main runs the feed HTTP server together with the transfer
// watcher and the periodic creator payload refresher.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"farcaster-tv/internal/app"
	"farcaster-tv/internal/config"
	"farcaster-tv/internal/logging"
	"farcaster-tv/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	// Flags override env values
	addr := flag.String("addr", cfg.HTTPAddr, "HTTP listen address")
	logLevel := flag.String("log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")
	refreshEvery := flag.Duration("refresh-interval", cfg.RevalidateAfter, "Creator payload refresh interval (0 disables)")
	noWatch := flag.Bool("no-watch", false, "Disable transfer invalidation watcher")
	flag.Parse()

	logger, err := logging.New(*logLevel, cfg.Environment)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := app.Build(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("build app", zap.Error(err))
	}
	defer a.Close()

	srv := server.New(server.Options{
		Feed:             a.Feed,
		Creators:         a.Aggregator,
		RevalidateSecret: cfg.RevalidateSecret,
		Logger:           logger,
	})

	done := make(chan struct{})

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Info("received signal, shutting down", zap.Stringer("signal", sig))
		cancel()

		// Second signal forces exit
		select {
		case sig := <-sigCh:
			logger.Warn("received second signal, forcing exit", zap.Stringer("signal", sig))
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Error("graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		case <-done:
		}
	}()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Run(gctx, *addr); err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	if !*noWatch {
		g.Go(func() error {
			err := a.Watch(gctx)
			if err != nil && !errors.Is(err, context.Canceled) {
				// The feed keeps serving; freshness falls back to the refresh loop.
				logger.Error("transfer watcher stopped", zap.Error(err))
			}
			return nil
		})
	}
	if *refreshEvery > 0 {
		g.Go(func() error {
			runRefresher(gctx, a, *refreshEvery, logger)
			return nil
		})
	}

	err = g.Wait()
	close(done)
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal("server error", zap.Error(err))
	}
	logger.Info("shutdown complete")
}

// runRefresher warms the creator payload on start and then every interval.
func runRefresher(ctx context.Context, a *app.App, interval time.Duration, logger *zap.Logger) {
	logger = logger.Named("refresher")
	logger.Info("starting refresher", zap.Duration("interval", interval))

	refresh := func() {
		p, err := a.Aggregator.Refresh(ctx)
		if err != nil {
			logger.Warn("refresh failed", zap.Error(err))
			return
		}
		logger.Debug("payload refreshed",
			zap.Int("creators", len(p.QualifiedCreators)),
			zap.Int("items", len(p.Items)))
	}

	refresh()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			refresh()
		}
	}
}
