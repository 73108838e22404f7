package domain

import (
	"fmt"
	"math"
)

// GeometryKind names one variant of the annotation geometry union.
// The values double as drawing tool names.
type GeometryKind string

const (
	KindMarker       GeometryKind = "marker"
	KindPolyline     GeometryKind = "polyline"
	KindPolygon      GeometryKind = "polygon"
	KindRectangle    GeometryKind = "rectangle"
	KindCircle       GeometryKind = "circle"
	KindCircleMarker GeometryKind = "circlemarker"
)

// GeometryKinds lists every kind in toolbar order.
var GeometryKinds = []GeometryKind{
	KindPolyline, KindPolygon, KindRectangle, KindCircle, KindMarker, KindCircleMarker,
}

// ParseGeometryKind validates a tool or kind name.
func ParseGeometryKind(s string) (GeometryKind, error) {
	for _, k := range GeometryKinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownGeometryKind, s)
}

// Geometry is the sealed union of annotation shapes.
type Geometry interface {
	Kind() GeometryKind
	Validate() error
	isGeometry()
}

// Point is a marker.
type Point struct {
	At Coordinate
}

// LineString is an open polyline.
type LineString struct {
	Path []Coordinate
}

// Polygon holds closed linear rings; the first ring is the outer boundary.
type Polygon struct {
	Rings [][]Coordinate
}

// Circle has a radius in plane units.
type Circle struct {
	Center Coordinate
	Radius float64
}

// CircleMarker is a circle whose radius is in screen pixels.
type CircleMarker struct {
	Center Coordinate
	Radius float64
}

// Rectangle is an axis-aligned box.
type Rectangle struct {
	Bounds GeoBounds
}

func (Point) Kind() GeometryKind        { return KindMarker }
func (LineString) Kind() GeometryKind   { return KindPolyline }
func (Polygon) Kind() GeometryKind      { return KindPolygon }
func (Circle) Kind() GeometryKind       { return KindCircle }
func (CircleMarker) Kind() GeometryKind { return KindCircleMarker }
func (Rectangle) Kind() GeometryKind    { return KindRectangle }

func (Point) isGeometry()        {}
func (LineString) isGeometry()   {}
func (Polygon) isGeometry()      {}
func (Circle) isGeometry()       {}
func (CircleMarker) isGeometry() {}
func (Rectangle) isGeometry()    {}

func (g Point) Validate() error {
	if !g.At.Finite() {
		return fmt.Errorf("point: non-finite coordinate")
	}
	return nil
}

func (g LineString) Validate() error {
	if len(g.Path) < 2 {
		return fmt.Errorf("linestring: need at least 2 positions, got %d", len(g.Path))
	}
	return allFinite("linestring", g.Path)
}

func (g Polygon) Validate() error {
	if len(g.Rings) == 0 {
		return fmt.Errorf("polygon: no rings")
	}
	for i, ring := range g.Rings {
		if len(ring) < 4 {
			return fmt.Errorf("polygon: ring %d needs at least 4 positions, got %d", i, len(ring))
		}
		if ring[0] != ring[len(ring)-1] {
			return fmt.Errorf("polygon: ring %d is not closed", i)
		}
		if err := allFinite("polygon", ring); err != nil {
			return err
		}
	}
	return nil
}

func (g Circle) Validate() error {
	return validateRadius("circle", g.Center, g.Radius)
}

func (g CircleMarker) Validate() error {
	return validateRadius("circlemarker", g.Center, g.Radius)
}

func (g Rectangle) Validate() error {
	if !g.Bounds.SouthWest.Finite() || !g.Bounds.NorthEast.Finite() {
		return fmt.Errorf("rectangle: non-finite corner")
	}
	return nil
}

// Ring returns the closed ring sw, nw, ne, se, sw.
func (g Rectangle) Ring() []Coordinate {
	sw, ne := g.Bounds.SouthWest, g.Bounds.NorthEast
	return []Coordinate{
		sw,
		{X: sw.X, Y: ne.Y},
		ne,
		{X: ne.X, Y: sw.Y},
		sw,
	}
}

func validateRadius(name string, center Coordinate, radius float64) error {
	if !center.Finite() {
		return fmt.Errorf("%s: non-finite center", name)
	}
	if math.IsNaN(radius) || math.IsInf(radius, 0) || radius < 0 {
		return fmt.Errorf("%s: invalid radius %v", name, radius)
	}
	return nil
}

func allFinite(name string, cs []Coordinate) error {
	for i, c := range cs {
		if !c.Finite() {
			return fmt.Errorf("%s: non-finite position %d", name, i)
		}
	}
	return nil
}
