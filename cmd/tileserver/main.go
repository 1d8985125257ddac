package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/flood-tile-service/internal/adapter/granule"
	httpadapter "github.com/couchcryptid/flood-tile-service/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/flood-tile-service/internal/adapter/kafka"
	"github.com/couchcryptid/flood-tile-service/internal/adapter/mbtiles"
	"github.com/couchcryptid/flood-tile-service/internal/audit"
	"github.com/couchcryptid/flood-tile-service/internal/cache"
	"github.com/couchcryptid/flood-tile-service/internal/config"
	"github.com/couchcryptid/flood-tile-service/internal/domain"
	"github.com/couchcryptid/flood-tile-service/internal/observability"
	"github.com/couchcryptid/flood-tile-service/internal/prefetch"
	"github.com/couchcryptid/flood-tile-service/internal/render"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	store, err := granule.NewStore(cfg.GranuleDir, logger)
	if err != nil {
		logger.Error("failed to index granule archive", "error", err, "dir", cfg.GranuleDir)
		os.Exit(1)
	}

	// Vector cross-reference probe (feature-flagged via MBTILES_PATH).
	var probe domain.VectorProbe
	if cfg.MBTilesPath != "" {
		p, err := mbtiles.Open(cfg.MBTilesPath)
		if err != nil {
			logger.Error("failed to open vector tileset", "error", err, "path", cfg.MBTilesPath)
			os.Exit(1)
		}
		defer p.Close()
		probe = p
		metrics.VectorProbeEnabled.Set(1)
		logger.Info("vector probe enabled", "path", cfg.MBTilesPath)
	} else {
		logger.Info("vector probe disabled")
	}

	renderCache := cache.New(cfg.CacheMaxTiles, cfg.CacheTTL, metrics)
	extractor := render.NewExtractor(store, logger, metrics)
	renderer := render.NewRenderer(extractor, renderCache, logger, metrics,
		cfg.TileSize, cfg.MaxZoom, cfg.WaterLevelQuantum)
	auditor := audit.New(store, extractor, probe, logger, metrics, cfg.TileSize)

	srv := httpadapter.NewServer(cfg.HTTPAddr, renderer, auditor, renderCache, store, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Granule update consumer (feature-flagged via KAFKA_ENABLED).
	var consumer *kafkaadapter.Consumer
	if cfg.KafkaEnabled {
		consumer = kafkaadapter.NewConsumer(cfg, store, renderCache, logger, metrics)
		go func() {
			if err := consumer.Run(ctx); err != nil {
				logger.Error("granule update consumer error", "error", err)
			}
		}()
	} else {
		logger.Info("granule updates disabled")
	}

	if cfg.WarmupEnabled {
		warmer := prefetch.NewWarmer(cfg, renderer, logger, metrics)
		go warmer.Run(ctx)
	}

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if consumer != nil {
		if err := consumer.Close(); err != nil {
			logger.Error("kafka consumer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
