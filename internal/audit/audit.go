// Package audit classifies elevation coverage over an area without touching
// the render path's cache or state. It answers the operational question
// "is this hole in the map real ocean or a missing granule" by combining
// extraction results with an independent vector data probe.
package audit

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/stat"

	"github.com/couchcryptid/flood-tile-service/internal/domain"
	"github.com/couchcryptid/flood-tile-service/internal/observability"
)

// Class labels what an audit found under one tile.
type Class string

const (
	// ClassHasElevation means at least one pixel sampled usable elevation.
	ClassHasElevation Class = "has-elevation"
	// ClassOverlapNoExtract means granules overlap the tile but every sample
	// came back void, either voids in the data or failed granule reads.
	ClassOverlapNoExtract Class = "overlap-no-extract"
	// ClassNoOverlap means no granule in the inventory touches the tile.
	ClassNoOverlap Class = "no-overlap"
	// ClassExtractionError means extraction itself failed for the tile.
	ClassExtractionError Class = "extraction-error"
)

// ElevationStats summarizes the usable samples in a tile's grid.
type ElevationStats struct {
	Min    int16   `json:"min"`
	Max    int16   `json:"max"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
}

// TileReport is the audit result for a single tile.
type TileReport struct {
	Tile          domain.TileCoord `json:"tile"`
	Class         Class            `json:"class"`
	Granules      []string         `json:"granules,omitempty"`
	ValidFraction float64          `json:"valid_fraction"`
	Elevation     *ElevationStats  `json:"elevation,omitempty"`
	Error         string           `json:"error,omitempty"`
	// VectorPresent is nil when the probe is disabled or failed for the tile.
	VectorPresent *bool `json:"vector_present,omitempty"`
	SuspectGap    bool  `json:"suspect_gap"`
}

// Report is the result of one coverage audit run.
type Report struct {
	RunID       string             `json:"run_id"`
	Zoom        int                `json:"zoom"`
	TileCount   int                `json:"tile_count"`
	Counts      map[Class]int      `json:"counts"`
	SuspectGaps []domain.TileCoord `json:"suspect_gaps,omitempty"`
	Tiles       []TileReport       `json:"tiles"`
	GeneratedAt time.Time          `json:"generated_at"`
}

// TileExtractor produces the elevation grid under a tile, nil when no
// granule overlaps it.
type TileExtractor interface {
	ExtractTile(ctx context.Context, z, x, y, size int) (*domain.ElevationGrid, error)
}

// Auditor inspects elevation coverage tile by tile. It is read-only over the
// granule inventory and keeps no state between runs.
type Auditor struct {
	source    domain.GranuleSource
	extractor TileExtractor
	probe     domain.VectorProbe // nil when the cross-reference is disabled
	logger    *slog.Logger
	metrics   *observability.Metrics
	tileSize  int
}

// New creates an Auditor. probe may be nil, which disables suspect-gap
// detection the same way a disabled collaborator does elsewhere.
func New(source domain.GranuleSource, extractor TileExtractor, probe domain.VectorProbe, logger *slog.Logger, metrics *observability.Metrics, tileSize int) *Auditor {
	return &Auditor{
		source:    source,
		extractor: extractor,
		probe:     probe,
		logger:    logger,
		metrics:   metrics,
		tileSize:  tileSize,
	}
}

// AuditBBox inspects every tile covering the bounding box at the given zoom
// and classifies each one. Per-tile failures are captured in the report, not
// propagated; the only errors returned are invalid input and cancellation.
func (a *Auditor) AuditBBox(ctx context.Context, minLon, minLat, maxLon, maxLat float64, z int) (*Report, error) {
	tr, err := domain.BBoxToTileRange(minLon, minLat, maxLon, maxLat, z)
	if err != nil {
		return nil, err
	}

	report := &Report{
		RunID:       uuid.NewString(),
		Zoom:        z,
		Counts:      make(map[Class]int),
		GeneratedAt: clock.Now().UTC(),
	}

	for y := tr.MinY; y <= tr.MaxY; y++ {
		for x := tr.MinX; x <= tr.MaxX; x++ {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			tile := a.inspect(ctx, z, x, y)
			report.Tiles = append(report.Tiles, tile)
			report.Counts[tile.Class]++
			if tile.SuspectGap {
				report.SuspectGaps = append(report.SuspectGaps, tile.Tile)
				a.metrics.AuditSuspectGaps.Inc()
			}
		}
	}
	report.TileCount = len(report.Tiles)

	a.metrics.AuditRuns.Inc()
	a.logger.Info("coverage audit complete",
		"run_id", report.RunID,
		"zoom", z,
		"tiles", report.TileCount,
		"suspect_gaps", len(report.SuspectGaps),
	)
	return report, nil
}

// InspectTile audits a single tile.
func (a *Auditor) InspectTile(ctx context.Context, z, x, y int) (*TileReport, error) {
	coord := domain.TileCoord{Z: z, X: x, Y: y}
	if !coord.Valid() {
		return nil, fmt.Errorf("%w: tile %s does not exist", domain.ErrInvalidInput, coord)
	}
	tile := a.inspect(ctx, z, x, y)
	return &tile, nil
}

func (a *Auditor) inspect(ctx context.Context, z, x, y int) TileReport {
	tile := TileReport{Tile: domain.TileCoord{Z: z, X: x, Y: y}}

	if bounds, err := domain.TileToBounds(z, x, y); err == nil {
		for _, id := range a.source.GranulesForBounds(bounds) {
			tile.Granules = append(tile.Granules, id.Name())
		}
	}

	grid, err := a.extractor.ExtractTile(ctx, z, x, y, a.tileSize)
	switch {
	case err != nil:
		tile.Class = ClassExtractionError
		tile.Error = err.Error()
	case grid == nil:
		tile.Class = ClassNoOverlap
	default:
		tile.ValidFraction = grid.ValidFraction()
		if tile.ValidFraction > 0 {
			tile.Class = ClassHasElevation
			tile.Elevation = summarize(grid)
		} else {
			tile.Class = ClassOverlapNoExtract
		}
	}

	a.crossReference(ctx, &tile)
	return tile
}

// crossReference asks the vector probe for a second opinion. Vector features
// imply land; land where extraction found nothing points at a hole in the
// granule inventory rather than genuine ocean. A probe failure leaves the
// tile unflagged; missing evidence is not evidence of a gap.
func (a *Auditor) crossReference(ctx context.Context, tile *TileReport) {
	if a.probe == nil {
		return
	}

	present, err := a.probe.HasVectorFeatures(ctx, tile.Tile.Z, tile.Tile.X, tile.Tile.Y)
	if err != nil {
		a.logger.Warn("vector probe failed", "tile", tile.Tile.String(), "error", err)
		return
	}
	tile.VectorPresent = &present

	if present && tile.Class != ClassHasElevation {
		tile.SuspectGap = true
	}
}

// summarize computes elevation statistics over the usable samples.
// Returns nil when the grid holds nothing usable.
func summarize(grid *domain.ElevationGrid) *ElevationStats {
	valid := make([]float64, 0, len(grid.Samples))
	lo, hi := int16(math.MaxInt16), int16(math.MinInt16)
	for _, v := range grid.Samples {
		if domain.IsNoData(v) {
			continue
		}
		valid = append(valid, float64(v))
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	if len(valid) == 0 {
		return nil
	}

	mean, std := stat.MeanStdDev(valid, nil)
	if math.IsNaN(std) {
		std = 0 // a single sample has no spread
	}
	return &ElevationStats{Min: lo, Max: hi, Mean: mean, StdDev: std}
}
