package domain

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
)

// granuleNameRe matches SRTM-style granule names: hemisphere letter, two-digit
// latitude, hemisphere letter, three-digit longitude, e.g. "N47E008".
var granuleNameRe = regexp.MustCompile(`^([NS])(\d{2})([EW])(\d{3})$`)

// GranuleID identifies a 1°x1° elevation granule by the integer degrees of
// its southwest corner.
type GranuleID struct {
	Lat int `json:"lat"`
	Lon int `json:"lon"`
}

// Name returns the SRTM file stem for the granule, e.g. {47, 8} -> "N47E008"
// and {-4, -73} -> "S04W073".
func (id GranuleID) Name() string {
	ns, lat := byte('N'), id.Lat
	if lat < 0 {
		ns, lat = 'S', -lat
	}
	ew, lon := byte('E'), id.Lon
	if lon < 0 {
		ew, lon = 'W', -lon
	}
	return fmt.Sprintf("%c%02d%c%03d", ns, lat, ew, lon)
}

// ParseGranuleName inverts Name. The input must be the bare stem without
// extension.
func ParseGranuleName(name string) (GranuleID, error) {
	m := granuleNameRe.FindStringSubmatch(name)
	if m == nil {
		return GranuleID{}, fmt.Errorf("%w: malformed granule name %q", ErrInvalidInput, name)
	}

	lat, _ := strconv.Atoi(m[2])
	lon, _ := strconv.Atoi(m[4])
	if m[1] == "S" {
		lat = -lat
	}
	if m[3] == "W" {
		lon = -lon
	}

	// Southwest corners run to one degree short of the upper edge: a granule
	// at N89 already covers up to the pole, and E179 up to the antimeridian.
	if lat < -90 || lat > 89 || lon < -180 || lon > 179 {
		return GranuleID{}, fmt.Errorf("%w: granule corner %s out of range", ErrInvalidInput, name)
	}
	return GranuleID{Lat: lat, Lon: lon}, nil
}

// CellForPoint returns the granule whose footprint contains the point.
// Footprints are half-open [lat, lat+1) x [lon, lon+1), so a point on an
// integer degree belongs to the cell to its north-east.
func CellForPoint(lat, lon float64) GranuleID {
	return GranuleID{
		Lat: int(math.Floor(lat)),
		Lon: int(math.Floor(lon)),
	}
}

// CellsForBounds enumerates every granule whose footprint intersects the
// bounds, ordered south to north then west to east. The enumeration is pure
// arithmetic; whether a granule actually exists is the store's concern.
func CellsForBounds(b GeoBounds) []GranuleID {
	latLo := int(math.Floor(b.LatBottom))
	latHi := int(math.Floor(b.LatTop))
	lonLo := int(math.Floor(b.LonLeft))
	lonHi := int(math.Floor(b.LonRight))

	cells := make([]GranuleID, 0, (latHi-latLo+1)*(lonHi-lonLo+1))
	for lat := latLo; lat <= latHi; lat++ {
		for lon := lonLo; lon <= lonHi; lon++ {
			cells = append(cells, GranuleID{Lat: lat, Lon: lon})
		}
	}
	return cells
}

// GeoTransform maps geographic coordinates to fractional sample indices of a
// north-up axis-aligned raster. Row 0 sits at OriginLat and rows advance
// southward.
type GeoTransform struct {
	OriginLat float64
	OriginLon float64
	StepLat   float64 // degrees per row, positive
	StepLon   float64 // degrees per column, positive
}

// RowCol returns the fractional raster position of a geographic point.
func (t GeoTransform) RowCol(lat, lon float64) (row, col float64) {
	return (t.OriginLat - lat) / t.StepLat, (lon - t.OriginLon) / t.StepLon
}

// SRTMTransform is the geotransform of a standard SRTM granule: samples span
// the full degree with both edges included, so a size-n granule has sample
// spacing 1/(n-1) degrees and row 0 on the northern edge.
func SRTMTransform(id GranuleID, size int) GeoTransform {
	step := 1.0 / float64(size-1)
	return GeoTransform{
		OriginLat: float64(id.Lat + 1),
		OriginLon: float64(id.Lon),
		StepLat:   step,
		StepLon:   step,
	}
}

// Raster is a decoded elevation granule: square, row-major, row 0 north.
type Raster struct {
	ID        GranuleID
	Size      int
	Transform GeoTransform
	Samples   []int16
}

// Sample returns the nearest-neighbor elevation for a geographic point,
// rounding half up on the fractional index. Points more than half a sample
// outside the raster return NoData.
func (r *Raster) Sample(lat, lon float64) int16 {
	row, col := r.Transform.RowCol(lat, lon)
	ri := int(math.Round(row))
	ci := int(math.Round(col))
	if ri < 0 || ri >= r.Size || ci < 0 || ci >= r.Size {
		return NoData
	}
	return r.Samples[ri*r.Size+ci]
}

// GranuleSource is the inventory of elevation granules available for
// extraction. Implementations report which granules exist for an area and
// decode them on demand.
type GranuleSource interface {
	// GranulesForBounds returns the available granules intersecting the
	// bounds, in CellsForBounds order. An empty result is normal over oceans.
	GranulesForBounds(b GeoBounds) []GranuleID

	// Read decodes a single granule. Errors cover missing and corrupt files;
	// callers decide whether a failed granule degrades or aborts.
	Read(id GranuleID) (*Raster, error)
}
