// Command merra2-etl consumes extraction requests from Kafka, samples the
// daily MERRA-2 grids at the requested points and publishes the resulting
// profiles.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpadapter "github.com/couchcryptid/merra2-etl/internal/adapter/http"
	"github.com/couchcryptid/merra2-etl/internal/adapter/gridcache"
	kafkaadapter "github.com/couchcryptid/merra2-etl/internal/adapter/kafka"
	"github.com/couchcryptid/merra2-etl/internal/adapter/merra2"
	"github.com/couchcryptid/merra2-etl/internal/adapter/store"
	"github.com/couchcryptid/merra2-etl/internal/config"
	"github.com/couchcryptid/merra2-etl/internal/grid"
	"github.com/couchcryptid/merra2-etl/internal/observability"
	"github.com/couchcryptid/merra2-etl/internal/pipeline"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to load .env", "error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	reader := merra2.NewReader(cfg.DataDir, cfg.FilePrefix, logger, metrics)
	source := gridcache.New(reader, cfg.GridCacheSize, metrics)
	sampler := grid.NewSampler(cfg.GridEpsilon)
	transformer := pipeline.NewTransformer(source, sampler, cfg.Variable, logger)
	logger.Info("grid source configured",
		"dir", cfg.DataDir,
		"prefix", cfg.FilePrefix,
		"cache_size", cfg.GridCacheSize,
		"epsilon", cfg.GridEpsilon,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	kafkaReader := kafkaadapter.NewReader(cfg, logger)
	kafkaWriter := kafkaadapter.NewWriter(cfg, logger)
	loaders := pipeline.MultiLoader{kafkaWriter}
	opts := []httpadapter.Option{
		httpadapter.WithSampling(transformer, cfg.SampleRateLimit, cfg.SampleRateBurst),
	}

	var profileStore *store.Store
	if cfg.StorePath != "" {
		profileStore, err = store.Open(cfg.StorePath, cfg.StoreRetention, logger)
		if err != nil {
			logger.Error("failed to open profile store", "error", err)
			os.Exit(1)
		}
		loaders = append(loaders, profileStore)
		opts = append(opts, httpadapter.WithProfiles(profileStore))
		go profileStore.RunGC(ctx, 10*time.Minute)
		logger.Info("profile store enabled", "path", cfg.StorePath, "retention", cfg.StoreRetention)
	} else {
		logger.Info("profile store disabled")
	}

	p := pipeline.New(kafkaReader, transformer, loaders, logger, metrics, cfg.BatchSize)

	srv := httpadapter.NewServer(cfg.HTTPAddr, p, logger, opts...)

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start ETL pipeline.
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := p.Run(ctx); err != nil {
			logger.Error("pipeline error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	select {
	case <-done:
	case <-shutdownCtx.Done():
		logger.Warn("pipeline did not stop before shutdown timeout")
	}
	if err := kafkaReader.Close(); err != nil {
		logger.Error("kafka reader close error", "error", err)
	}
	if err := kafkaWriter.Close(); err != nil {
		logger.Error("kafka writer close error", "error", err)
	}
	if profileStore != nil {
		if err := profileStore.Close(); err != nil {
			logger.Error("profile store close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
