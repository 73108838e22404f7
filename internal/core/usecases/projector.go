package usecases

import (
	"github.com/samirrijal/mapcanvas/internal/core/domain"
	"github.com/samirrijal/mapcanvas/internal/core/ports"
)

// SeamPad is the pixel overlap added to every tile's right and bottom edge.
// Neighbouring tiles overlap by this much; it must not be dropped.
const SeamPad = 2

// CoordinateProjector places raster tiles into the plane CRS.
type CoordinateProjector struct {
	proj  ports.Projector
	tileW int
	tileH int
}

// NewCoordinateProjector creates a projector for tiles of tileW x tileH pixels.
func NewCoordinateProjector(proj ports.Projector, tileW, tileH int) *CoordinateProjector {
	return &CoordinateProjector{proj: proj, tileW: tileW, tileH: tileH}
}

// OverlayZoom is the zoom at which tile pixels map 1:1 onto the plane.
func (c *CoordinateProjector) OverlayZoom() int {
	return c.proj.MaxZoom() - 1
}

func (c *CoordinateProjector) TileSize() (w, h int) { return c.tileW, c.tileH }

// ToBounds computes the plane bounds of the tile at (col, row).
//
// The tile's top-left pixel is (tileW*col, tileH*row) and its bottom-right
// pixel is padded by SeamPad on both axes. SouthWest is the unprojected
// bottom-left pixel and NorthEast the unprojected top-right pixel, so with
// the simple CRS the Y axis of the result runs opposite to pixel Y.
func (c *CoordinateProjector) ToBounds(col, row, tileW, tileH, zoom int) domain.GeoBounds {
	x := float64(tileW * col)
	y := float64(tileH * row)

	sw := c.proj.Unproject(domain.Pixel{X: x, Y: float64(tileH) + y + SeamPad}, zoom)
	ne := c.proj.Unproject(domain.Pixel{X: float64(tileW) + SeamPad + x, Y: y}, zoom)

	return domain.GeoBounds{SouthWest: sw, NorthEast: ne}
}

// CellBounds is ToBounds with the configured tile size at OverlayZoom.
func (c *CoordinateProjector) CellBounds(col, row int) domain.GeoBounds {
	return c.ToBounds(col, row, c.tileW, c.tileH, c.OverlayZoom())
}

// PixelToPlane unprojects a pixel at OverlayZoom.
func (c *CoordinateProjector) PixelToPlane(p domain.Pixel) domain.Coordinate {
	return c.proj.Unproject(p, c.OverlayZoom())
}
