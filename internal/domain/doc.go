// Package domain models flood-risk tile rendering over SRTM-style elevation data.
//
// # Tile Addressing
//
// Tiles use the slippy-map scheme shared by OSM and the Google Maps XYZ layout:
// Web-Mercator (EPSG:3857) projection, zoom z splitting the world into 2^z by 2^z
// tiles, x growing eastward from the antimeridian and y growing southward from
// the north edge. The projection is undefined at the poles, so latitudes are
// clamped to ±85.05113° before conversion; longitudes clamp to ±180°. Tile
// indices are clamped into [0, 2^z-1], which matters at the exact east and
// south edges where the raw formula lands one past the last tile.
//
// # Elevation Source
//
// Elevation comes from 1°x1° raster granules in the SRTM .hgt layout: a square
// grid of big-endian int16 samples in meters, row-major with row 0 at the
// northern edge, named by the southwest corner ("N47E008"). Standard sizes are
// 1201x1201 (SRTM3, 3 arc-second) and 3601x3601 (SRTM1, 1 arc-second); edge
// rows and columns overlap the neighboring granule.
//
// Void cells:
//
//	-32768 is the SRTM sentinel for "no data" (radar shadow, open water).
//	Samples below -500 m or above 9000 m fall outside any plausible Earth
//	surface and are treated the same way. [IsNoData] is the single test all
//	consumers use; void pixels render fully transparent and never enter
//	statistics.
//
// # Risk Mapping
//
// A pixel's flood risk depends only on its freeboard: elevation minus the
// scenario water level, in meters. Freeboard maps onto a risk score in [0, 1]
// through four breakpoints, piecewise linear and continuous:
//
//	freeboard ≥ 10 m    risk 0           comfortably above the water
//	10 m .. 3 m         risk 0 .. 0.33   safe, trending toward caution
//	3 m .. 0.5 m        risk 0.33 .. 0.66
//	0.5 m .. -0.5 m     risk 0.66 .. 1
//	freeboard ≤ -0.5 m  risk 1           submerged
//
// The extremes return exact 0 and 1 so fully-safe and fully-flooded pixels hit
// the pure anchor colors. Risk then blends per channel across four RGBA
// anchors (green, amber, red, blue with rising opacity), giving a smooth ramp
// from a faint green wash to a strong blue flood overlay. The mapping is pure:
// same elevation and water level, same color, always. So is the tile math;
// nothing in this package reads the clock or touches shared state.
package domain
