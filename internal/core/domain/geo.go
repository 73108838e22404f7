package domain

import "math"

// Coordinate is a position in the map's planar CRS (not latitude/longitude).
// X grows to the right of the raster; Y decreases as raster rows increase.
type Coordinate struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Finite reports whether both components are real numbers.
func (c Coordinate) Finite() bool {
	return !math.IsNaN(c.X) && !math.IsInf(c.X, 0) && !math.IsNaN(c.Y) && !math.IsInf(c.Y, 0)
}

// Pixel is a position in tile pixel space at some zoom level.
type Pixel struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// GeoBounds is a pair of opposite corners in the plane CRS.
// The corners are not ordered: projected tile bounds may have one axis inverted.
type GeoBounds struct {
	SouthWest Coordinate `json:"south_west"`
	NorthEast Coordinate `json:"north_east"`
}

// Min returns the component-wise minimum corner.
func (b GeoBounds) Min() Coordinate {
	return Coordinate{X: math.Min(b.SouthWest.X, b.NorthEast.X), Y: math.Min(b.SouthWest.Y, b.NorthEast.Y)}
}

// Max returns the component-wise maximum corner.
func (b GeoBounds) Max() Coordinate {
	return Coordinate{X: math.Max(b.SouthWest.X, b.NorthEast.X), Y: math.Max(b.SouthWest.Y, b.NorthEast.Y)}
}

// Normalized returns the bounds with SouthWest at the minimum and NorthEast at the maximum corner.
func (b GeoBounds) Normalized() GeoBounds {
	return GeoBounds{SouthWest: b.Min(), NorthEast: b.Max()}
}

// Contains reports whether c lies inside the bounds, edges included.
func (b GeoBounds) Contains(c Coordinate) bool {
	lo, hi := b.Min(), b.Max()
	return c.X >= lo.X && c.X <= hi.X && c.Y >= lo.Y && c.Y <= hi.Y
}

// Clamp moves c to the nearest point inside the bounds.
func (b GeoBounds) Clamp(c Coordinate) Coordinate {
	lo, hi := b.Min(), b.Max()
	return Coordinate{
		X: math.Min(math.Max(c.X, lo.X), hi.X),
		Y: math.Min(math.Max(c.Y, lo.Y), hi.Y),
	}
}
