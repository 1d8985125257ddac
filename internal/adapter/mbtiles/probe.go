// Package mbtiles probes an MBTiles vector tileset for tile presence. The
// audit uses it as the independent land/no-land signal when judging whether
// an elevation hole is a real ocean or a missing granule.
package mbtiles

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"
)

// Probe answers presence queries against a read-only MBTiles database.
// MBTiles stores rows in TMS order, so the slippy y is flipped before lookup.
type Probe struct {
	db *sql.DB
}

// Open opens the tileset read-only and verifies it carries a tiles table.
func Open(path string) (*Probe, error) {
	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s?mode=ro", path))
	if err != nil {
		return nil, fmt.Errorf("open mbtiles %s: %w", path, err)
	}

	// The driver connects lazily; a schema probe both forces the connection
	// and rejects databases that are not MBTiles. The format allows tiles to
	// be a table or a view.
	var name string
	err = db.QueryRow(
		`SELECT name FROM sqlite_master WHERE type IN ('table', 'view') AND name = 'tiles'`,
	).Scan(&name)
	if err != nil {
		db.Close()
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("open mbtiles %s: no tiles table", path)
		}
		return nil, fmt.Errorf("open mbtiles %s: %w", path, err)
	}

	return &Probe{db: db}, nil
}

// HasVectorFeatures reports whether the tileset stores a tile at the slippy
// address. Producers drop empty tiles rather than store them, so a stored
// row counts as feature presence.
func (p *Probe) HasVectorFeatures(ctx context.Context, z, x, y int) (bool, error) {
	tmsRow := (1 << z) - 1 - y

	var one int
	err := p.db.QueryRowContext(ctx,
		`SELECT 1 FROM tiles WHERE zoom_level = ? AND tile_column = ? AND tile_row = ? LIMIT 1`,
		z, x, tmsRow,
	).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query tiles %d/%d/%d: %w", z, x, y, err)
	}
	return true, nil
}

// Close releases the underlying database.
func (p *Probe) Close() error {
	return p.db.Close()
}
