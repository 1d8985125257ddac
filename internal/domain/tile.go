package domain

import (
	"errors"
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/maptile"
)

// MaxZoom is the deepest zoom level the service addresses. Beyond this the
// tile index arithmetic still fits comfortably in an int but no elevation
// source resolves finer detail.
const MaxZoom = 22

// Web-Mercator latitude limit. The projection diverges at the poles; tiles
// only exist between these latitudes.
const (
	MaxLatitude = 85.05112878
	MinLatitude = -85.05112878
)

// ErrInvalidInput marks request parameters that can never produce a tile:
// out-of-range coordinates, non-finite numbers, inverted bounding boxes.
// Transport adapters map it to a client error; everything else is a server
// fault.
var ErrInvalidInput = errors.New("invalid input")

// TileCoord addresses a single slippy-map tile.
type TileCoord struct {
	Z int `json:"z"`
	X int `json:"x"`
	Y int `json:"y"`
}

// Valid reports whether the coordinate addresses an existing tile.
func (c TileCoord) Valid() bool {
	if c.Z < 0 || c.Z > MaxZoom {
		return false
	}
	n := 1 << c.Z
	return c.X >= 0 && c.X < n && c.Y >= 0 && c.Y < n
}

func (c TileCoord) String() string {
	return fmt.Sprintf("%d/%d/%d", c.Z, c.X, c.Y)
}

// GeoBounds is a geographic rectangle in WGS-84 degrees. LatTop > LatBottom;
// LonLeft < LonRight (the service does not cross the antimeridian).
type GeoBounds struct {
	LatTop    float64 `json:"lat_top"`
	LatBottom float64 `json:"lat_bottom"`
	LonLeft   float64 `json:"lon_left"`
	LonRight  float64 `json:"lon_right"`
}

// TileRange is a closed rectangle of tile indices at one zoom level.
type TileRange struct {
	Z    int
	MinX int
	MinY int
	MaxX int
	MaxY int
}

// Count returns the number of tiles in the range.
func (r TileRange) Count() int {
	return (r.MaxX - r.MinX + 1) * (r.MaxY - r.MinY + 1)
}

// TileToBounds returns the geographic footprint of a tile. The north edge of
// tile y meets the south edge of tile y-1 exactly; adjacent footprints share
// edges with no gaps or overlaps.
func TileToBounds(z, x, y int) (GeoBounds, error) {
	c := TileCoord{Z: z, X: x, Y: y}
	if !c.Valid() {
		return GeoBounds{}, fmt.Errorf("%w: tile %s does not exist", ErrInvalidInput, c)
	}

	b := maptile.New(uint32(x), uint32(y), maptile.Zoom(z)).Bound()
	return GeoBounds{
		LatTop:    b.Max[1],
		LatBottom: b.Min[1],
		LonLeft:   b.Min[0],
		LonRight:  b.Max[0],
	}, nil
}

// DegToTile returns the tile containing the given WGS-84 coordinate.
// Latitude is clamped to the Web-Mercator limits and longitude to ±180 before
// conversion, so any finite point maps to some tile. Points exactly on the
// east or south edge of the world land on the last tile, not one past it.
func DegToTile(lat, lon float64, z int) (x, y int, err error) {
	if err := validateZoom(z); err != nil {
		return 0, 0, err
	}
	if !isFinite(lat) || !isFinite(lon) {
		return 0, 0, fmt.Errorf("%w: non-finite coordinate lat=%v lon=%v", ErrInvalidInput, lat, lon)
	}

	lat = clampLat(lat)
	lon = clampLon(lon)

	t := maptile.At(orb.Point{lon, lat}, maptile.Zoom(z))
	return clampIndex(int(t.X), z), clampIndex(int(t.Y), z), nil
}

// BBoxToTileRange returns the closed range of tiles covering a geographic
// bounding box at the given zoom. The box is clamped to the projection limits
// first; a degenerate box (a point or a line) still yields at least one tile.
func BBoxToTileRange(minLon, minLat, maxLon, maxLat float64, z int) (TileRange, error) {
	if err := validateZoom(z); err != nil {
		return TileRange{}, err
	}
	if !isFinite(minLon) || !isFinite(minLat) || !isFinite(maxLon) || !isFinite(maxLat) {
		return TileRange{}, fmt.Errorf("%w: non-finite bounding box", ErrInvalidInput)
	}
	if minLon > maxLon || minLat > maxLat {
		return TileRange{}, fmt.Errorf("%w: inverted bounding box [%v,%v,%v,%v]",
			ErrInvalidInput, minLon, minLat, maxLon, maxLat)
	}

	// North-west corner gives the smallest x and y, south-east the largest;
	// y grows southward.
	minX, minY, err := DegToTile(maxLat, minLon, z)
	if err != nil {
		return TileRange{}, err
	}
	maxX, maxY, err := DegToTile(minLat, maxLon, z)
	if err != nil {
		return TileRange{}, err
	}

	return TileRange{Z: z, MinX: minX, MinY: minY, MaxX: maxX, MaxY: maxY}, nil
}

func validateZoom(z int) error {
	if z < 0 || z > MaxZoom {
		return fmt.Errorf("%w: zoom %d outside [0,%d]", ErrInvalidInput, z, MaxZoom)
	}
	return nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func clampLat(lat float64) float64 {
	return math.Max(MinLatitude, math.Min(MaxLatitude, lat))
}

func clampLon(lon float64) float64 {
	return math.Max(-180, math.Min(180, lon))
}

func clampIndex(i, z int) int {
	if i < 0 {
		return 0
	}
	if max := (1 << z) - 1; i > max {
		return max
	}
	return i
}
