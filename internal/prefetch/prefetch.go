// Package prefetch primes the render cache at startup so the first map loads
// over an area of interest are served warm.
package prefetch

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/flood-tile-service/internal/config"
	"github.com/couchcryptid/flood-tile-service/internal/domain"
	"github.com/couchcryptid/flood-tile-service/internal/observability"
)

// TileRenderer renders tiles into the shared cache.
type TileRenderer interface {
	RenderTile(ctx context.Context, waterLevel float64, z, x, y int) ([]byte, string, error)
	Cached(waterLevel float64, z, x, y int) bool
}

// Warmer renders every tile of a configured area, zoom span, and water level
// set through the regular render path.
type Warmer struct {
	renderer TileRenderer
	logger   *slog.Logger
	metrics  *observability.Metrics

	minLon, minLat float64
	maxLon, maxLat float64
	minZoom        int
	maxZoom        int
	waterLevels    []float64
	workers        int
}

// NewWarmer creates a warmer from the warmup section of the configuration.
func NewWarmer(cfg *config.Config, renderer TileRenderer, logger *slog.Logger, metrics *observability.Metrics) *Warmer {
	workers := cfg.WarmupWorkers
	if workers < 1 {
		workers = 1
	}

	return &Warmer{
		renderer:    renderer,
		logger:      logger,
		metrics:     metrics,
		minLon:      cfg.WarmupMinLon,
		minLat:      cfg.WarmupMinLat,
		maxLon:      cfg.WarmupMaxLon,
		maxLat:      cfg.WarmupMaxLat,
		minZoom:     cfg.WarmupMinZoom,
		maxZoom:     cfg.WarmupMaxZoom,
		waterLevels: cfg.WarmupWaterLevels,
		workers:     workers,
	}
}

// Run renders the configured tiles until done or the context is cancelled.
// Individual tile failures are logged and skipped; warmup never takes the
// service down.
func (w *Warmer) Run(ctx context.Context) {
	start := time.Now()
	w.logger.Info("cache warmup started",
		"zoom_min", w.minZoom,
		"zoom_max", w.maxZoom,
		"water_levels", len(w.waterLevels),
		"workers", w.workers,
	)

	sem := make(chan struct{}, w.workers)
	var wg sync.WaitGroup
	var primed atomic.Int64

	for _, level := range w.waterLevels {
		for z := w.minZoom; z <= w.maxZoom; z++ {
			rng, err := domain.BBoxToTileRange(w.minLon, w.minLat, w.maxLon, w.maxLat, z)
			if err != nil {
				w.logger.Warn("skipping warmup zoom level", "zoom", z, "error", err)
				continue
			}

			for y := rng.MinY; y <= rng.MaxY; y++ {
				for x := rng.MinX; x <= rng.MaxX; x++ {
					if ctx.Err() != nil {
						wg.Wait()
						w.logger.Info("cache warmup aborted",
							"reason", ctx.Err(),
							"primed", primed.Load(),
						)
						return
					}
					if w.renderer.Cached(level, z, x, y) {
						continue
					}

					wg.Add(1)
					sem <- struct{}{}
					go func(level float64, z, x, y int) {
						defer wg.Done()
						defer func() { <-sem }()

						if _, _, err := w.renderer.RenderTile(ctx, level, z, x, y); err != nil {
							w.logger.Debug("warmup tile failed",
								"z", z, "x", x, "y", y,
								"water_level", level,
								"error", err,
							)
							return
						}
						w.metrics.WarmupTilesPrimed.Inc()
						primed.Add(1)
					}(level, z, x, y)
				}
			}
		}
	}

	wg.Wait()
	w.logger.Info("cache warmup complete",
		"primed", primed.Load(),
		"duration_ms", time.Since(start).Milliseconds(),
	)
}
