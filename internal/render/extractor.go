// Package render turns tile addresses and flood scenarios into PNG images:
// the extractor resamples elevation granules into per-tile grids, and the
// renderer colors those grids through the risk ramp and encodes them, with a
// shared cache in front.
package render

import (
	"context"
	"log/slog"

	"github.com/couchcryptid/flood-tile-service/internal/domain"
	"github.com/couchcryptid/flood-tile-service/internal/observability"
)

// Extractor resamples elevation granules into fixed-size per-tile grids by
// nearest-neighbor sampling at each output pixel center.
type Extractor struct {
	source  domain.GranuleSource
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewExtractor creates an Extractor over the given granule source.
func NewExtractor(source domain.GranuleSource, logger *slog.Logger, metrics *observability.Metrics) *Extractor {
	return &Extractor{source: source, logger: logger, metrics: metrics}
}

// ExtractTile samples the elevation under every pixel of the addressed tile
// into a size x size grid. A nil grid with a nil error means no granule
// overlaps the tile at all, the normal case over open ocean.
//
// A granule that fails to read or decode degrades to missing data for the
// pixels it would have covered instead of failing the tile; one corrupt file
// must not take out every tile that touches it. The grid is always exactly
// size x size regardless of how many granules contributed.
func (e *Extractor) ExtractTile(ctx context.Context, z, x, y, size int) (*domain.ElevationGrid, error) {
	bounds, err := domain.TileToBounds(z, x, y)
	if err != nil {
		return nil, err
	}

	ids := e.source.GranulesForBounds(bounds)
	if len(ids) == 0 {
		return nil, nil
	}

	// One read per granule per call. A nil raster marks a failed read so the
	// pixel loop below leaves its cells at NoData.
	rasters := make(map[domain.GranuleID]*domain.Raster, len(ids))
	for _, id := range ids {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		raster, err := e.source.Read(id)
		if err != nil {
			e.logger.Warn("granule read failed, degrading to missing data",
				"granule", id.Name(), "error", err)
			e.metrics.GranuleReadErrors.Inc()
			rasters[id] = nil
			continue
		}
		e.metrics.GranulesRead.Inc()
		rasters[id] = raster
	}

	grid := domain.NewElevationGrid(size)
	latStep := (bounds.LatTop - bounds.LatBottom) / float64(size)
	lonStep := (bounds.LonRight - bounds.LonLeft) / float64(size)

	for row := 0; row < size; row++ {
		lat := bounds.LatTop - (float64(row)+0.5)*latStep
		for col := 0; col < size; col++ {
			lon := bounds.LonLeft + (float64(col)+0.5)*lonStep
			raster := rasters[domain.CellForPoint(lat, lon)]
			if raster == nil {
				continue
			}
			grid.Set(row, col, raster.Sample(lat, lon))
		}
	}
	return grid, nil
}
