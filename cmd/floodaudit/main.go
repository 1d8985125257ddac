// Command floodaudit runs an offline coverage audit over a bounding box and
// prints a per-class breakdown of the tiles inside it. With a vector tileset
// it additionally cross-references elevation gaps against vector features and
// exits non-zero when suspect gaps are found, so archive regressions fail
// loudly in CI.
//
// Usage:
//
//	go run ./cmd/floodaudit \
//	  -granule-dir ./data/granules \
//	  -bbox 8.5,47.3,9.3,47.45 \
//	  -zoom 10 \
//	  -mbtiles ./data/coastline.mbtiles
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/couchcryptid/flood-tile-service/internal/adapter/granule"
	"github.com/couchcryptid/flood-tile-service/internal/adapter/mbtiles"
	"github.com/couchcryptid/flood-tile-service/internal/audit"
	"github.com/couchcryptid/flood-tile-service/internal/domain"
	"github.com/couchcryptid/flood-tile-service/internal/observability"
	"github.com/couchcryptid/flood-tile-service/internal/render"
)

// classOrder fixes the report ordering from healthy to broken.
var classOrder = []audit.Class{
	audit.ClassHasElevation,
	audit.ClassOverlapNoExtract,
	audit.ClassNoOverlap,
	audit.ClassExtractionError,
}

func main() {
	granuleDir := flag.String("granule-dir", "", "directory containing .hgt elevation granules")
	bbox := flag.String("bbox", "", "audit area as min_lon,min_lat,max_lon,max_lat")
	zoom := flag.Int("zoom", 10, "tile zoom level to audit")
	mbtilesPath := flag.String("mbtiles", "", "optional vector tileset for suspect-gap cross-referencing")
	tileSize := flag.Int("tile-size", 64, "samples per tile edge used for classification")
	verbose := flag.Bool("v", false, "print one line per audited tile")
	flag.Parse()

	if *granuleDir == "" || *bbox == "" {
		flag.Usage()
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if code := run(ctx, *granuleDir, *bbox, *zoom, *mbtilesPath, *tileSize, *verbose); code != 0 {
		os.Exit(code)
	}
}

func run(ctx context.Context, granuleDir, bbox string, zoom int, mbtilesPath string, tileSize int, verbose bool) int {
	coords, err := parseBBox(bbox)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		return 1
	}

	// Index scans and skipped files log at warn so the report stays clean.
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	metrics := observability.NewMetrics()

	store, err := granule.NewStore(granuleDir, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: index granule archive: %v\n", err)
		return 1
	}

	var probe domain.VectorProbe
	if mbtilesPath != "" {
		p, err := mbtiles.Open(mbtilesPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "FATAL: open vector tileset: %v\n", err)
			return 1
		}
		defer p.Close()
		probe = p
	}

	extractor := render.NewExtractor(store, logger, metrics)
	auditor := audit.New(store, extractor, probe, logger, metrics, tileSize)

	report, err := auditor.AuditBBox(ctx, coords[0], coords[1], coords[2], coords[3], zoom)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: audit: %v\n", err)
		return 1
	}

	printReport(report, coords, granuleDir, store.Count(), mbtilesPath, verbose)

	if len(report.SuspectGaps) > 0 {
		fmt.Printf("\n\033[31mAudit FAILED: %d suspect gap(s).\033[0m\n", len(report.SuspectGaps))
		return 1
	}
	fmt.Println("\n\033[32mAudit passed.\033[0m")
	return 0
}

func printReport(report *audit.Report, coords [4]float64, granuleDir string, granules int, mbtilesPath string, verbose bool) {
	fmt.Println("=== Flood Coverage Audit ===")
	fmt.Println()
	fmt.Printf("Run:     %s\n", report.RunID)
	fmt.Printf("Area:    [%g,%g] - [%g,%g], zoom %d\n",
		coords[0], coords[1], coords[2], coords[3], report.Zoom)
	fmt.Printf("Archive: %s (%d granules)\n", granuleDir, granules)
	if mbtilesPath != "" {
		fmt.Printf("Probe:   %s\n", mbtilesPath)
	} else {
		fmt.Println("Probe:   disabled")
	}
	fmt.Println()

	fmt.Printf("Tiles audited: %d\n", report.TileCount)
	for _, class := range classOrder {
		fmt.Printf("  %-20s %d\n", class, report.Counts[class])
	}

	if verbose {
		fmt.Println()
		for _, tile := range report.Tiles {
			printTile(tile)
		}
	}

	if len(report.SuspectGaps) > 0 {
		fmt.Printf("\nSuspect gaps (%d):\n", len(report.SuspectGaps))
		for _, tile := range report.SuspectGaps {
			fmt.Printf("  %s\n", tile)
		}
	}
}

func printTile(tile audit.TileReport) {
	line := fmt.Sprintf("  %-14s %-20s valid=%5.1f%%", tile.Tile, tile.Class, tile.ValidFraction*100)
	if tile.Elevation != nil {
		line += fmt.Sprintf("  elev %d..%d mean %.1f", tile.Elevation.Min, tile.Elevation.Max, tile.Elevation.Mean)
	}
	if tile.VectorPresent != nil {
		if *tile.VectorPresent {
			line += "  vector=present"
		} else {
			line += "  vector=absent"
		}
	}
	if tile.Error != "" {
		line += "  error=" + tile.Error
	}
	if tile.SuspectGap {
		line += "  SUSPECT"
	}
	fmt.Println(line)
}

func parseBBox(s string) ([4]float64, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return [4]float64{}, fmt.Errorf("bbox must be min_lon,min_lat,max_lon,max_lat, got %q", s)
	}
	var coords [4]float64
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return [4]float64{}, fmt.Errorf("invalid bbox coordinate %q", p)
		}
		coords[i] = v
	}
	return coords, nil
}
