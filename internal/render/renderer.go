package render

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"log/slog"
	"time"

	"github.com/couchcryptid/flood-tile-service/internal/cache"
	"github.com/couchcryptid/flood-tile-service/internal/domain"
	"github.com/couchcryptid/flood-tile-service/internal/observability"
)

// ContentType is the MIME type of every rendered tile.
const ContentType = "image/png"

// tileFormat is the format axis of the cache key.
const tileFormat = "png"

// TileExtractor produces the elevation grid under a tile, or nil when nothing
// covers the tile.
type TileExtractor interface {
	ExtractTile(ctx context.Context, z, x, y, size int) (*domain.ElevationGrid, error)
}

// Renderer renders flood-risk overlay tiles for arbitrary water levels,
// with a quantizing cache in front of the extract-map-encode path.
type Renderer struct {
	extractor TileExtractor
	cache     *cache.Cache
	logger    *slog.Logger
	metrics   *observability.Metrics
	tileSize  int
	maxZoom   int
	quantum   float64
}

// NewRenderer creates a Renderer. tileSize is the output edge length in
// pixels, maxZoom the deepest zoom served, and quantum the water-level
// quantization step in meters.
func NewRenderer(e TileExtractor, c *cache.Cache, logger *slog.Logger, metrics *observability.Metrics, tileSize, maxZoom int, quantum float64) *Renderer {
	return &Renderer{
		extractor: e,
		cache:     c,
		logger:    logger,
		metrics:   metrics,
		tileSize:  tileSize,
		maxZoom:   maxZoom,
		quantum:   quantum,
	}
}

// RenderTile returns the encoded overlay tile for a water-level scenario,
// serving from cache when a near-enough level was already rendered. The
// returned content type is always image/png. Tiles with no elevation
// coverage render fully transparent, and are cached like any other tile.
func (r *Renderer) RenderTile(ctx context.Context, waterLevel float64, z, x, y int) ([]byte, string, error) {
	coord := domain.TileCoord{Z: z, X: x, Y: y}
	if !coord.Valid() {
		return nil, "", fmt.Errorf("%w: tile %s does not exist", domain.ErrInvalidInput, coord)
	}
	if z > r.maxZoom {
		return nil, "", fmt.Errorf("%w: zoom %d beyond configured maximum %d", domain.ErrInvalidInput, z, r.maxZoom)
	}
	if err := domain.ValidateWaterLevel(waterLevel); err != nil {
		return nil, "", err
	}

	key, level := cache.KeyFor(waterLevel, r.quantum, z, x, y, tileFormat)
	if data, ok := r.cache.Get(key); ok {
		return data, ContentType, nil
	}

	start := time.Now()

	grid, err := r.extractor.ExtractTile(ctx, z, x, y, r.tileSize)
	if err != nil {
		return nil, "", err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, r.rasterize(grid, level)); err != nil {
		return nil, "", fmt.Errorf("encode tile %s: %w", coord, err)
	}
	data := buf.Bytes()

	r.cache.Put(key, data, level)
	r.metrics.TilesRendered.Inc()
	r.metrics.TileRenderDuration.Observe(time.Since(start).Seconds())
	r.logger.Debug("tile rendered",
		"tile", coord.String(), "water_level", level, "bytes", len(data))

	return data, ContentType, nil
}

// Cached reports whether a render for the tile at the given water level is
// already cached. The check counts toward cache statistics and refreshes the
// entry's recency like a lookup.
func (r *Renderer) Cached(waterLevel float64, z, x, y int) bool {
	if !(domain.TileCoord{Z: z, X: x, Y: y}).Valid() {
		return false
	}
	if domain.ValidateWaterLevel(waterLevel) != nil {
		return false
	}
	key, _ := cache.KeyFor(waterLevel, r.quantum, z, x, y, tileFormat)
	return r.cache.Exists(key)
}

// rasterize colors an elevation grid through the risk ramp. A nil grid means
// no coverage and yields an untouched, fully transparent image.
func (r *Renderer) rasterize(grid *domain.ElevationGrid, waterLevel float64) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, r.tileSize, r.tileSize))
	if grid == nil {
		return img
	}
	for row := 0; row < r.tileSize; row++ {
		for col := 0; col < r.tileSize; col++ {
			c := domain.ColorForElevation(grid.At(row, col), waterLevel)
			img.SetNRGBA(col, row, color.NRGBA{R: c.R, G: c.G, B: c.B, A: c.A})
		}
	}
	return img
}
