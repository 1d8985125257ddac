package domain

import (
	"fmt"
	"math"
)

// Freeboard breakpoints in meters relative to the water level. Between
// adjacent breakpoints risk interpolates linearly; see the package doc for
// the full ramp.
const (
	safeFreeboard    = 10.0
	cautionFreeboard = 3.0
	dangerFreeboard  = 0.5
	floodedFreeboard = -0.5
)

// Risk scores at the interior breakpoints. The bands deliberately split
// uneven (0.33/0.33/0.34) so the ramp ends exactly at 1.
const (
	cautionRisk = 0.33
	dangerRisk  = 0.66
)

// RGBA is a non-premultiplied 8-bit color, matching image.NRGBA channels.
type RGBA struct {
	R, G, B, A uint8
}

// Anchor colors for the risk ramp. Alpha rises with risk so safe terrain is
// a faint wash and flooded terrain a strong overlay.
var (
	colorSafe    = RGBA{R: 0x4C, G: 0xAF, B: 0x50, A: 70}  // green
	colorCaution = RGBA{R: 0xFF, G: 0xC1, B: 0x07, A: 120} // amber
	colorDanger  = RGBA{R: 0xF4, G: 0x43, B: 0x36, A: 170} // red
	colorFlooded = RGBA{R: 0x21, G: 0x96, B: 0xF3, A: 210} // blue
)

// ValidateWaterLevel rejects scenario water levels no render can use.
// Any finite value is acceptable; extreme magnitudes simply saturate the ramp.
func ValidateWaterLevel(wl float64) error {
	if !isFinite(wl) {
		return fmt.Errorf("%w: non-finite water level %v", ErrInvalidInput, wl)
	}
	return nil
}

// ElevationToRisk maps an elevation sample to a flood risk score in [0, 1]
// for the given water level. Risk never decreases as terrain drops toward and
// below the water line, and the two extremes return exact 0 and 1.
// NoData samples have no risk; callers filter them first.
func ElevationToRisk(elevation int16, waterLevel float64) float64 {
	freeboard := float64(elevation) - waterLevel

	switch {
	case freeboard >= safeFreeboard:
		return 0
	case freeboard <= floodedFreeboard:
		return 1
	case freeboard >= cautionFreeboard:
		return (safeFreeboard - freeboard) / (safeFreeboard - cautionFreeboard) * cautionRisk
	case freeboard >= dangerFreeboard:
		return cautionRisk + (cautionFreeboard-freeboard)/(cautionFreeboard-dangerFreeboard)*(dangerRisk-cautionRisk)
	default:
		return dangerRisk + (dangerFreeboard-freeboard)/(dangerFreeboard-floodedFreeboard)*(1-dangerRisk)
	}
}

// RiskToColor maps a risk score to its ramp color. Scores outside [0, 1] are
// clamped to the pure anchors.
func RiskToColor(risk float64) RGBA {
	switch {
	case risk <= 0:
		return colorSafe
	case risk >= 1:
		return colorFlooded
	case risk <= cautionRisk:
		return blend(colorSafe, colorCaution, risk/cautionRisk)
	case risk <= dangerRisk:
		return blend(colorCaution, colorDanger, (risk-cautionRisk)/(dangerRisk-cautionRisk))
	default:
		return blend(colorDanger, colorFlooded, (risk-dangerRisk)/(1-dangerRisk))
	}
}

// ColorForElevation is the full pixel mapping: NoData renders fully
// transparent, everything else through the risk ramp.
func ColorForElevation(elevation int16, waterLevel float64) RGBA {
	if IsNoData(elevation) {
		return RGBA{}
	}
	return RiskToColor(ElevationToRisk(elevation, waterLevel))
}

// blend interpolates each channel independently, t in [0, 1].
func blend(from, to RGBA, t float64) RGBA {
	return RGBA{
		R: blendChannel(from.R, to.R, t),
		G: blendChannel(from.G, to.G, t),
		B: blendChannel(from.B, to.B, t),
		A: blendChannel(from.A, to.A, t),
	}
}

func blendChannel(from, to uint8, t float64) uint8 {
	return uint8(math.Round(float64(from)*(1-t) + float64(to)*t))
}
