package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestElevationToRisk(t *testing.T) {
	t.Run("extremes are exact", func(t *testing.T) {
		// High ground must be exactly zero and submerged ground exactly one,
		// so the anchor colors render pure.
		assert.Equal(t, 0.0, ElevationToRisk(100, 0))
		assert.Equal(t, 0.0, ElevationToRisk(10, 0))
		assert.Equal(t, 1.0, ElevationToRisk(0, 0.5))
		assert.Equal(t, 1.0, ElevationToRisk(-100, 0))
	})

	t.Run("breakpoint values", func(t *testing.T) {
		// Water level 0 keeps freeboard equal to the raw elevation.
		assert.InDelta(t, 0.33, ElevationToRisk(3, 0), 1e-12)
		assert.InDelta(t, 0.66, ElevationToRisk(1, 0.5), 1e-12)
	})

	t.Run("interior of each band", func(t *testing.T) {
		tests := []struct {
			name       string
			elevation  int16
			waterLevel float64
			want       float64
		}{
			{"halfway safe to caution", 13, 6.5, 0.165},
			{"halfway caution to danger", 20, 18.25, 0.495},
			{"at the waterline", 5, 5, 0.66 + 0.5/1.0*0.34},
			{"deep in third band", 10, 10.25, 0.66 + 0.75/1.0*0.34},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				assert.InDelta(t, tt.want, ElevationToRisk(tt.elevation, tt.waterLevel), 1e-9)
			})
		}
	})

	t.Run("monotone as terrain drops", func(t *testing.T) {
		const waterLevel = 2.0
		prev := -1.0
		for elev := int16(50); elev >= -50; elev-- {
			risk := ElevationToRisk(elev, waterLevel)
			assert.GreaterOrEqual(t, risk, prev, "risk dropped at elevation %d", elev)
			assert.GreaterOrEqual(t, risk, 0.0)
			assert.LessOrEqual(t, risk, 1.0)
			prev = risk
		}
	})

	t.Run("continuous at breakpoints", func(t *testing.T) {
		// Nudge the water level so freeboard straddles each breakpoint.
		for _, freeboard := range []float64{10, 3, 0.5, -0.5} {
			below := ElevationToRisk(50, 50-freeboard+1e-9)
			above := ElevationToRisk(50, 50-freeboard-1e-9)
			assert.InDelta(t, below, above, 1e-6, "discontinuity at freeboard %v", freeboard)
		}
	})

	t.Run("raising water raises risk", func(t *testing.T) {
		const elevation = int16(4)
		low := ElevationToRisk(elevation, 0)
		high := ElevationToRisk(elevation, 2)
		assert.Greater(t, high, low)
	})
}

func TestRiskToColor(t *testing.T) {
	t.Run("anchor colors", func(t *testing.T) {
		tests := []struct {
			name string
			risk float64
			want RGBA
		}{
			{"zero is pure safe green", 0, RGBA{R: 76, G: 175, B: 80, A: 70}},
			{"band one end is pure caution amber", 0.33, RGBA{R: 255, G: 193, B: 7, A: 120}},
			{"band two end is pure danger red", 0.66, RGBA{R: 244, G: 67, B: 54, A: 170}},
			{"one is pure flooded blue", 1, RGBA{R: 33, G: 150, B: 243, A: 210}},
			{"below range clamps to safe", -0.25, RGBA{R: 76, G: 175, B: 80, A: 70}},
			{"above range clamps to flooded", 1.5, RGBA{R: 33, G: 150, B: 243, A: 210}},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				assert.Equal(t, tt.want, RiskToColor(tt.risk))
			})
		}
	})

	t.Run("midpoint of first band blends evenly", func(t *testing.T) {
		got := RiskToColor(0.165)
		assert.Equal(t, RGBA{R: 166, G: 184, B: 44, A: 95}, got)
	})

	t.Run("alpha never decreases with risk", func(t *testing.T) {
		prev := uint8(0)
		for risk := 0.0; risk <= 1.0; risk += 0.01 {
			c := RiskToColor(risk)
			assert.GreaterOrEqual(t, c.A, prev, "alpha dropped at risk %v", risk)
			prev = c.A
		}
	})
}

func TestColorForElevation(t *testing.T) {
	t.Run("void samples render transparent", func(t *testing.T) {
		assert.Equal(t, RGBA{}, ColorForElevation(NoData, 0))
		assert.Equal(t, RGBA{}, ColorForElevation(-600, 0))
		assert.Equal(t, RGBA{}, ColorForElevation(9500, 0))
	})

	t.Run("valid samples render visible", func(t *testing.T) {
		c := ColorForElevation(5, 4)
		assert.Greater(t, c.A, uint8(0))
	})

	t.Run("deterministic", func(t *testing.T) {
		first := ColorForElevation(7, 5.5)
		second := ColorForElevation(7, 5.5)
		assert.Equal(t, first, second)
	})
}

func TestBlendChannel(t *testing.T) {
	assert.Equal(t, uint8(10), blendChannel(10, 200, 0))
	assert.Equal(t, uint8(200), blendChannel(10, 200, 1))
	assert.Equal(t, uint8(105), blendChannel(10, 200, 0.5))
}

func TestValidateWaterLevel(t *testing.T) {
	tests := []struct {
		name    string
		level   float64
		wantErr bool
	}{
		{"zero", 0, false},
		{"negative", -430, false},
		{"huge saturates instead of failing", 1e12, false},
		{"nan", math.NaN(), true},
		{"positive infinity", math.Inf(1), true},
		{"negative infinity", math.Inf(-1), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateWaterLevel(tt.level)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidInput)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
