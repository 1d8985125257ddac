package domain

// NoData is the SRTM sentinel for a raster cell with no usable sample.
const NoData int16 = -32768

// Plausible Earth-surface elevation range in meters. The Dead Sea shore is
// around -430 m and Everest 8849 m; anything outside is a void or corruption.
const (
	MinPlausibleElevation = -500
	MaxPlausibleElevation = 9000
)

// IsNoData reports whether an elevation sample carries no usable information,
// either the explicit sentinel or a value outside the plausible range.
func IsNoData(v int16) bool {
	return v == NoData || v < MinPlausibleElevation || v > MaxPlausibleElevation
}

// ElevationGrid is a square raster of elevation samples covering one map tile,
// row-major with row 0 at the northern edge.
type ElevationGrid struct {
	Size    int
	Samples []int16
}

// NewElevationGrid returns a Size x Size grid with every sample set to NoData.
func NewElevationGrid(size int) *ElevationGrid {
	g := &ElevationGrid{
		Size:    size,
		Samples: make([]int16, size*size),
	}
	for i := range g.Samples {
		g.Samples[i] = NoData
	}
	return g
}

// At returns the sample at (row, col). Out-of-range indices return NoData.
func (g *ElevationGrid) At(row, col int) int16 {
	if row < 0 || row >= g.Size || col < 0 || col >= g.Size {
		return NoData
	}
	return g.Samples[row*g.Size+col]
}

// Set stores a sample at (row, col). Out-of-range indices are ignored.
func (g *ElevationGrid) Set(row, col int, v int16) {
	if row < 0 || row >= g.Size || col < 0 || col >= g.Size {
		return
	}
	g.Samples[row*g.Size+col] = v
}

// ValidFraction returns the share of samples carrying usable elevation,
// in [0, 1]. An empty grid counts as fully void.
func (g *ElevationGrid) ValidFraction() float64 {
	if len(g.Samples) == 0 {
		return 0
	}
	valid := 0
	for _, v := range g.Samples {
		if !IsNoData(v) {
			valid++
		}
	}
	return float64(valid) / float64(len(g.Samples))
}
