// Package main runs the creator pipeline (or the full feed) once and
// prints the result as JSON.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"farcaster-tv/internal/app"
	"farcaster-tv/internal/config"
	"farcaster-tv/internal/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	withFeed := flag.Bool("feed", false, "Print the merged feed instead of the creator payload")
	limit := flag.Int("limit", 100, "Feed item limit (with --feed)")
	logLevel := flag.String("log-level", "warn", "Log level (debug, info, warn, error)")
	flag.Parse()

	// One-off runs keep the shared tier in process memory.
	cfg.CacheBackend = config.BackendMemory

	logger, err := logging.New(*logLevel, "development")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	ctx := context.Background()
	a, err := app.Build(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("build app", zap.Error(err))
	}
	defer a.Close()

	var out any
	if *withFeed {
		out = a.Feed.Feed(ctx, *limit)
	} else {
		out = a.Aggregator.GetUncached(ctx)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		fmt.Fprintf(os.Stderr, "Error: encode: %v\n", err)
		os.Exit(1)
	}
}
