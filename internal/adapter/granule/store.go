// Package granule reads SRTM .hgt elevation granules from the local
// filesystem and implements the domain's granule source.
package granule

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/couchcryptid/flood-tile-service/internal/domain"
)

// Store inventories and decodes .hgt granules from a single directory.
// The directory is scanned once at construction; Refresh rescans after
// out-of-band changes, such as new granules delivered by ingestion tooling.
// Reads hit the filesystem every time and lean on the OS page cache; the
// render cache above makes repeat decodes rare.
type Store struct {
	dir    string
	logger *slog.Logger

	mu    sync.RWMutex
	index map[domain.GranuleID]string // granule -> file path
}

// NewStore indexes every *.hgt file in dir by its granule name.
func NewStore(dir string, logger *slog.Logger) (*Store, error) {
	s := &Store{dir: dir, logger: logger}
	if err := s.Refresh(); err != nil {
		return nil, err
	}
	return s, nil
}

// Refresh rescans the directory and atomically swaps in the new index.
// Files whose names do not parse as granule names are skipped with a warning.
func (s *Store) Refresh() error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return fmt.Errorf("scan granule dir: %w", err)
	}

	index := make(map[domain.GranuleID]string)
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".hgt") {
			continue
		}
		stem := strings.TrimSuffix(e.Name(), filepath.Ext(e.Name()))
		id, err := domain.ParseGranuleName(stem)
		if err != nil {
			s.logger.Warn("skipping unrecognized granule file", "file", e.Name())
			continue
		}
		index[id] = filepath.Join(s.dir, e.Name())
	}

	s.mu.Lock()
	s.index = index
	s.mu.Unlock()

	s.logger.Info("granule index refreshed", "dir", s.dir, "granules", len(index))
	return nil
}

// Count returns the number of indexed granules.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.index)
}

// CheckReadiness reports whether the store can serve extractions. An empty
// index almost always means a wrong directory, not a healthy empty archive.
func (s *Store) CheckReadiness(_ context.Context) error {
	if s.Count() == 0 {
		return errors.New("granule index is empty")
	}
	return nil
}

// GranulesForBounds returns the indexed granules intersecting the bounds, in
// enumeration order. Cells with no granule on disk are silently absent.
func (s *Store) GranulesForBounds(b domain.GeoBounds) []domain.GranuleID {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var ids []domain.GranuleID
	for _, id := range domain.CellsForBounds(b) {
		if _, ok := s.index[id]; ok {
			ids = append(ids, id)
		}
	}
	return ids
}

// Read loads and decodes one granule.
func (s *Store) Read(id domain.GranuleID) (*domain.Raster, error) {
	s.mu.RLock()
	path, ok := s.index[id]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("granule %s not in index", id.Name())
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read granule %s: %w", id.Name(), err)
	}
	return Decode(id, data)
}

// Decode validates and decodes raw .hgt bytes: a square grid of big-endian
// int16 samples.
func Decode(id domain.GranuleID, data []byte) (*domain.Raster, error) {
	if len(data) == 0 || len(data)%2 != 0 {
		return nil, fmt.Errorf("granule %s: truncated file (%d bytes)", id.Name(), len(data))
	}
	n := len(data) / 2
	size := int(math.Sqrt(float64(n)))
	if size < 2 || size*size != n {
		return nil, fmt.Errorf("granule %s: %d samples is not a square grid", id.Name(), n)
	}

	samples := make([]int16, n)
	for i := range samples {
		samples[i] = int16(binary.BigEndian.Uint16(data[2*i:]))
	}

	return &domain.Raster{
		ID:        id,
		Size:      size,
		Transform: domain.SRTMTransform(id, size),
		Samples:   samples,
	}, nil
}

// Encode serializes samples into the .hgt wire format, the inverse of Decode.
// Fixture tooling and tests use it to write synthetic granules.
func Encode(samples []int16) []byte {
	out := make([]byte, 2*len(samples))
	for i, v := range samples {
		binary.BigEndian.PutUint16(out[2*i:], uint16(v))
	}
	return out
}
