package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/showscout/showscout-cli/internal/dedup"
	"github.com/showscout/showscout-cli/internal/extract"
	"github.com/showscout/showscout-cli/internal/fetch"
	"github.com/showscout/showscout-cli/internal/normalize"
	"github.com/showscout/showscout-cli/internal/pipeline"
	"github.com/showscout/showscout-cli/internal/resilience"
	"github.com/showscout/showscout-cli/internal/store"
	anthropicpkg "github.com/showscout/showscout-cli/pkg/anthropic"
	"github.com/showscout/showscout-cli/pkg/geocode"
)

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "showscout.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, nil)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// initMigratedStore opens the store and applies migrations. Callers should
// defer st.Close().
func initMigratedStore(ctx context.Context) (store.Store, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}

// buildRunner wires the full ingestion pipeline from config.
func buildRunner(st store.Store, skipGeocode, dryRun bool, batchSize int) (*pipeline.Runner, error) {
	// Dry runs still fetch and extract, so the key is required either way.
	if cfg.Anthropic.Key == "" {
		return nil, eris.New("anthropic API key is required (SHOWSCOUT_ANTHROPIC_KEY)")
	}

	retry := resilience.DefaultRetryConfig()
	if cfg.Fetch.MaxRetries > 0 {
		retry.MaxAttempts = cfg.Fetch.MaxRetries
	}

	fetcher := fetch.New(fetch.Options{
		UserAgent: cfg.Fetch.UserAgent,
		Timeout:   time.Duration(cfg.Fetch.TimeoutSecs) * time.Second,
		HostRPS:   cfg.Fetch.RatePerHost,
		MaxBody:   cfg.Fetch.MaxBodyBytes,
		Retry:     retry,
	})

	extractor := extract.New(anthropicpkg.NewClient(cfg.Anthropic.Key), extract.Options{
		Model:      cfg.Anthropic.Model,
		MaxTokens:  cfg.Anthropic.MaxTokens,
		ChunkBytes: cfg.Fetch.ChunkBytes,
		Retry:      retry,
	})

	var geocoder geocode.Client = geocode.NoopClient{}
	if cfg.Geocode.Enabled && !skipGeocode {
		geocoder = geocode.NewClient(geocode.WithRateLimit(cfg.Geocode.RateLimit))
	}

	matcher := dedup.NewMatcher(cfg.Dedup.Threshold, cfg.Dedup.WindowDays)

	if batchSize <= 0 {
		batchSize = cfg.Scheduler.BatchSize
	}

	return pipeline.New(st, fetcher, extractor, normalize.New(), geocoder, matcher, pipeline.Options{
		BatchSize:     batchSize,
		ClaimTTL:      time.Duration(cfg.Scheduler.ClaimTTLMins) * time.Minute,
		DisableStreak: cfg.Scheduler.DisableStreak,
		Concurrency:   cfg.Fetch.Concurrency,
		SkipGeocode:   skipGeocode || !cfg.Geocode.Enabled,
		DryRun:        dryRun,
	}), nil
}
