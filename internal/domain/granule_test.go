package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGranuleName(t *testing.T) {
	tests := []struct {
		name string
		id   GranuleID
		want string
	}{
		{"northeast", GranuleID{Lat: 47, Lon: 8}, "N47E008"},
		{"northwest", GranuleID{Lat: 36, Lon: -120}, "N36W120"},
		{"southwest", GranuleID{Lat: -4, Lon: -73}, "S04W073"},
		{"southeast", GranuleID{Lat: -34, Lon: 151}, "S34E151"},
		{"equator prime meridian", GranuleID{Lat: 0, Lon: 0}, "N00E000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.id.Name())

			parsed, err := ParseGranuleName(tt.want)
			require.NoError(t, err)
			assert.Equal(t, tt.id, parsed)
		})
	}
}

func TestParseGranuleNameRejectsMalformed(t *testing.T) {
	for _, name := range []string{"", "N47", "X47E008", "N47E08", "N476E008", "n47e008", "N47E008.hgt", "N99E008", "N47E200"} {
		t.Run(name, func(t *testing.T) {
			_, err := ParseGranuleName(name)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestCellForPoint(t *testing.T) {
	tests := []struct {
		name     string
		lat, lon float64
		want     GranuleID
	}{
		{"interior", 47.37, 8.54, GranuleID{Lat: 47, Lon: 8}},
		{"southern hemisphere floors down", -3.2, -73.9, GranuleID{Lat: -4, Lon: -74}},
		{"integer degree belongs north-east", 47.0, 8.0, GranuleID{Lat: 47, Lon: 8}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CellForPoint(tt.lat, tt.lon))
		})
	}
}

func TestCellsForBounds(t *testing.T) {
	t.Run("bounds inside one cell", func(t *testing.T) {
		cells := CellsForBounds(GeoBounds{LatTop: 47.8, LatBottom: 47.2, LonLeft: 8.1, LonRight: 8.9})
		assert.Equal(t, []GranuleID{{Lat: 47, Lon: 8}}, cells)
	})

	t.Run("bounds spanning four cells", func(t *testing.T) {
		cells := CellsForBounds(GeoBounds{LatTop: 48.5, LatBottom: 47.5, LonLeft: 8.5, LonRight: 9.5})

		assert.Equal(t, []GranuleID{
			{Lat: 47, Lon: 8},
			{Lat: 47, Lon: 9},
			{Lat: 48, Lon: 8},
			{Lat: 48, Lon: 9},
		}, cells)
	})

	t.Run("order is south to north then west to east", func(t *testing.T) {
		cells := CellsForBounds(GeoBounds{LatTop: 1.5, LatBottom: -0.5, LonLeft: -0.5, LonRight: 0.5})

		require.Len(t, cells, 6)
		assert.Equal(t, GranuleID{Lat: -1, Lon: -1}, cells[0])
		assert.Equal(t, GranuleID{Lat: 1, Lon: 0}, cells[5])
	})
}

func TestSRTMTransform(t *testing.T) {
	tr := SRTMTransform(GranuleID{Lat: 47, Lon: 8}, 1201)

	assert.Equal(t, 48.0, tr.OriginLat)
	assert.Equal(t, 8.0, tr.OriginLon)
	assert.InDelta(t, 1.0/1200, tr.StepLat, 1e-15)

	t.Run("north west corner is sample zero", func(t *testing.T) {
		row, col := tr.RowCol(48.0, 8.0)
		assert.InDelta(t, 0, row, 1e-9)
		assert.InDelta(t, 0, col, 1e-9)
	})

	t.Run("south east corner is the last sample", func(t *testing.T) {
		row, col := tr.RowCol(47.0, 9.0)
		assert.InDelta(t, 1200, row, 1e-9)
		assert.InDelta(t, 1200, col, 1e-9)
	})
}

func TestRasterSample(t *testing.T) {
	// A tiny 3x3 granule spanning one degree keeps the arithmetic inspectable:
	// samples sit at the corners, edge midpoints, and center.
	id := GranuleID{Lat: 47, Lon: 8}
	r := &Raster{
		ID:        id,
		Size:      3,
		Transform: SRTMTransform(id, 3),
		Samples: []int16{
			10, 11, 12,
			20, 21, 22,
			30, 31, 32,
		},
	}

	tests := []struct {
		name     string
		lat, lon float64
		want     int16
	}{
		{"north west corner", 48.0, 8.0, 10},
		{"center", 47.5, 8.5, 21},
		{"south east corner", 47.0, 9.0, 32},
		{"nearest neighbor pulls toward center", 47.6, 8.6, 21},
		{"half distance rounds up", 47.25, 8.25, 31},
		{"within half a sample outside snaps to the edge row", 48.2, 8.5, 11},
		{"beyond half a sample outside", 48.3, 8.5, NoData},
		{"far outside", 50.0, 8.5, NoData},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, r.Sample(tt.lat, tt.lon))
		})
	}
}
