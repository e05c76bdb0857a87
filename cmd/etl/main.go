package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/couchcryptid/city-livability-etl/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/city-livability-etl/internal/adapter/kafka"
	"github.com/couchcryptid/city-livability-etl/internal/adapter/source"
	"github.com/couchcryptid/city-livability-etl/internal/adapter/store"
	"github.com/couchcryptid/city-livability-etl/internal/config"
	"github.com/couchcryptid/city-livability-etl/internal/observability"
	"github.com/couchcryptid/city-livability-etl/internal/pipeline"
	"github.com/couchcryptid/city-livability-etl/internal/query"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/jonboulle/clockwork"
)

func main() {
	if _, err := config.LoadDotEnv(".env"); err != nil {
		slog.Warn("failed to read .env file", "error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := sharedobs.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	catalog, err := config.LoadCatalog(cfg.CatalogFile)
	if err != nil {
		logger.Error("failed to load metric catalog", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	docs, err := openStore(ctx, cfg, logger, metrics)
	if err != nil {
		logger.Error("failed to open document store", "driver", cfg.StoreDriver, "error", err)
		os.Exit(1)
	}

	registry := source.NewDefaultRegistry(source.Options{
		BaseURL:   cfg.SourceBaseURL,
		APIKeys:   cfg.SourceAPIKeys,
		Timeout:   cfg.SourceTimeout,
		CacheSize: cfg.SourceCacheSize,
		CacheTTL:  cfg.SourceCacheTTL,
	}, metrics, logger)

	p := pipeline.New(registry, docs, catalog, logger, metrics)
	if err := p.SeedCountries(ctx); err != nil {
		logger.Error("country seeding failed", "error", err)
	}

	srv := httpadapter.NewServer(cfg.HTTPAddr, p, p, query.NewService(docs), docs, logger)

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start scheduled runs.
	scheduleDone := pipeline.StartSchedule(ctx, p, cfg.RunInterval, cfg.RunOnStart, clockwork.NewRealClock(), logger)

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	select {
	case <-scheduleDone:
	case <-shutdownCtx.Done():
		logger.Warn("scheduled run still active at shutdown deadline")
	}
	if err := docs.Close(); err != nil {
		logger.Error("document store close error", "error", err)
	}

	logger.Info("shutdown complete")
}

// openStore selects the primary store and wraps it with the Kafka mirror
// when brokers are configured.
func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) (store.Store, error) {
	var primary store.Store
	switch cfg.StoreDriver {
	case config.StorePostgres:
		pg, err := store.NewPostgresStore(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			return nil, err
		}
		primary = pg
	default:
		primary = store.NewMemoryStore()
	}
	logger.Info("document store ready", "driver", cfg.StoreDriver)

	if len(cfg.KafkaBrokers) == 0 {
		return primary, nil
	}
	writer := kafkaadapter.NewWriter(cfg, logger)
	logger.Info("kafka mirror enabled", "topic", cfg.KafkaTopic, "collections", cfg.KafkaCollections)
	return store.NewTeeStore(primary, logger, metrics, writer), nil
}
