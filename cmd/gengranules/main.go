// Command gengranules writes synthetic .hgt elevation granules for local
// development and demos. Each granule holds a radially symmetric island with
// a central peak, a sea-level ring, and void corners, so rendered tiles show
// every risk band plus transparent no-data areas without real SRTM downloads.
//
// Usage:
//
//	go run ./cmd/gengranules \
//	  -out ./data/granules \
//	  -granules N47E008,N47E009 \
//	  -size 1201 \
//	  -peak 1500
package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/couchcryptid/flood-tile-service/internal/adapter/granule"
	"github.com/couchcryptid/flood-tile-service/internal/domain"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	out := flag.String("out", "", "output directory for .hgt files")
	granules := flag.String("granules", "N47E008", "comma-separated granule names to generate")
	size := flag.Int("size", 1201, "samples per granule edge")
	peak := flag.Float64("peak", 1500, "island peak elevation in meters")
	flag.Parse()

	if *out == "" {
		flag.Usage()
		return errors.New("missing required flag: -out")
	}
	if *size < 2 {
		return fmt.Errorf("size must be at least 2, got %d", *size)
	}
	if *peak < 1 || *peak > math.MaxInt16 {
		return fmt.Errorf("peak must be between 1 and %d meters, got %g", math.MaxInt16, *peak)
	}

	if err := os.MkdirAll(*out, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	names := strings.Split(*granules, ",")
	for _, name := range names {
		name = strings.TrimSpace(name)
		id, err := domain.ParseGranuleName(name)
		if err != nil {
			return err
		}

		data := granule.Encode(islandTerrain(*size, *peak))
		path := filepath.Join(*out, id.Name()+".hgt")
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		log.Printf("%s: %dx%d samples, peak %gm -> %s (%d bytes)",
			id.Name(), *size, *size, *peak, path, len(data))
	}

	log.Printf("wrote %d granule(s) to %s", len(names), *out)
	return nil
}

// islandTerrain builds a square grid holding one island: elevation peaks at
// the center and falls to sea level at the inscribed circle. Beyond it the
// ring down to the corners is ocean at zero, and the outermost corners are
// voids, which keeps all four coverage classes reachable from one granule.
func islandTerrain(size int, peak float64) []int16 {
	samples := make([]int16, size*size)
	half := float64(size-1) / 2

	for row := 0; row < size; row++ {
		for col := 0; col < size; col++ {
			nx := (float64(col) - half) / half
			ny := (float64(row) - half) / half
			d := math.Hypot(nx, ny)

			var v int16
			switch {
			case d > 1.2:
				v = domain.NoData
			case d >= 1:
				v = 0
			default:
				v = int16(math.Round(peak * math.Pow(1-d, 1.5)))
			}
			samples[row*size+col] = v
		}
	}
	return samples
}
