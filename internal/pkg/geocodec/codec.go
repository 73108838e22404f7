// Package geocodec converts annotation features to and from GeoJSON.
//
// Shapes without a native GeoJSON type are written as their closest GeoJSON
// geometry and tagged through reserved properties:
//
//	circle, circlemarker  Point   + draw:shape, draw:radius
//	rectangle             Polygon + draw:shape (ring sw, nw, ne, se, sw)
//
// Decode strips the reserved keys again, so user properties survive a round trip
// unchanged. User properties may not carry the reserved keys themselves.
package geocodec

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strconv"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/samirrijal/mapcanvas/internal/core/domain"
)

const (
	ShapeKey  = "draw:shape"
	RadiusKey = "draw:radius"
)

// CheckProperties rejects user properties that use a reserved key.
func CheckProperties(props map[string]any) error {
	for _, k := range []string{ShapeKey, RadiusKey} {
		if _, ok := props[k]; ok {
			return fmt.Errorf("%w: property %q is reserved", domain.ErrMalformedFeature, k)
		}
	}
	return nil
}

// Encode serializes a collection as a GeoJSON FeatureCollection.
// An empty collection encodes with an empty features array.
func Encode(fc domain.FeatureCollection) ([]byte, error) {
	out, err := ToGeoJSON(fc)
	if err != nil {
		return nil, err
	}
	return json.Marshal(out)
}

// ToGeoJSON converts a collection to its orb representation.
func ToGeoJSON(fc domain.FeatureCollection) (*geojson.FeatureCollection, error) {
	out := geojson.NewFeatureCollection()
	for i, f := range fc.Features {
		gf, err := EncodeFeature(f)
		if err != nil {
			return nil, fmt.Errorf("feature %d: %w", i, err)
		}
		out.Append(gf)
	}
	return out, nil
}

// EncodeFeature converts one feature.
func EncodeFeature(f domain.Feature) (*geojson.Feature, error) {
	if f.Geometry == nil {
		return nil, fmt.Errorf("%w: missing geometry", domain.ErrMalformedFeature)
	}
	if err := CheckProperties(f.Properties); err != nil {
		return nil, err
	}

	props := geojson.Properties{}
	for k, v := range f.Properties {
		props[k] = v
	}

	var g orb.Geometry
	switch geom := f.Geometry.(type) {
	case domain.Point:
		g = toPoint(geom.At)
	case domain.LineString:
		g = orb.LineString(toPoints(geom.Path))
	case domain.Polygon:
		poly := make(orb.Polygon, 0, len(geom.Rings))
		for _, ring := range geom.Rings {
			poly = append(poly, orb.Ring(toPoints(ring)))
		}
		g = poly
	case domain.Circle:
		g = toPoint(geom.Center)
		props[ShapeKey] = string(domain.KindCircle)
		props[RadiusKey] = geom.Radius
	case domain.CircleMarker:
		g = toPoint(geom.Center)
		props[ShapeKey] = string(domain.KindCircleMarker)
		props[RadiusKey] = geom.Radius
	case domain.Rectangle:
		g = orb.Polygon{orb.Ring(toPoints(geom.Ring()))}
		props[ShapeKey] = string(domain.KindRectangle)
	default:
		return nil, fmt.Errorf("%w: %T", domain.ErrUnsupportedGeometry, f.Geometry)
	}

	gf := geojson.NewFeature(g)
	gf.Properties = props
	switch {
	case f.ID == "":
	case f.NumericID:
		if n, err := strconv.ParseFloat(f.ID, 64); err == nil {
			gf.ID = n
		} else {
			gf.ID = f.ID
		}
	default:
		gf.ID = f.ID
	}
	return gf, nil
}

// EncodeFeatureJSON serializes one feature as a GeoJSON Feature object.
func EncodeFeatureJSON(f domain.Feature) ([]byte, error) {
	gf, err := EncodeFeature(f)
	if err != nil {
		return nil, err
	}
	return json.Marshal(gf)
}

// Decode parses a GeoJSON FeatureCollection. Any malformed feature fails the
// whole collection; the error wraps domain.ErrMalformedFeature.
func Decode(data []byte) (domain.FeatureCollection, error) {
	var doc struct {
		Type     string             `json:"type"`
		Features *[]json.RawMessage `json:"features"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return domain.FeatureCollection{}, fmt.Errorf("%w: %v", domain.ErrMalformedFeature, err)
	}
	if doc.Type != "FeatureCollection" {
		return domain.FeatureCollection{}, fmt.Errorf("%w: type %q is not FeatureCollection", domain.ErrMalformedFeature, doc.Type)
	}
	if doc.Features == nil {
		return domain.FeatureCollection{}, fmt.Errorf("%w: missing features", domain.ErrMalformedFeature)
	}

	fc := domain.NewFeatureCollection()
	for i, raw := range *doc.Features {
		f, err := DecodeFeature(raw)
		if err != nil {
			return domain.FeatureCollection{}, fmt.Errorf("feature %d: %w", i, err)
		}
		fc.Features = append(fc.Features, f)
	}
	return fc, nil
}

// DecodeFeature parses a single GeoJSON Feature object.
func DecodeFeature(data []byte) (domain.Feature, error) {
	if err := checkCoordinates(data); err != nil {
		return domain.Feature{}, fmt.Errorf("%w: %v", domain.ErrMalformedFeature, err)
	}
	gf, err := geojson.UnmarshalFeature(data)
	if err != nil {
		return domain.Feature{}, fmt.Errorf("%w: %v", domain.ErrMalformedFeature, err)
	}
	return FromGeoJSON(gf)
}

// positionDepth is how deeply positions nest inside each geometry's coordinates.
var positionDepth = map[string]int{
	"Point":           0,
	"MultiPoint":      1,
	"LineString":      1,
	"MultiLineString": 2,
	"Polygon":         2,
	"MultiPolygon":    3,
}

// checkCoordinates rejects positions with fewer than two numbers. orb reads
// positions into fixed pairs and would zero-fill the missing values.
func checkCoordinates(data []byte) error {
	var doc struct {
		Geometry *struct {
			Type        string          `json:"type"`
			Coordinates json.RawMessage `json:"coordinates"`
		} `json:"geometry"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	if doc.Geometry == nil {
		return nil
	}
	depth, ok := positionDepth[doc.Geometry.Type]
	if !ok {
		return nil
	}
	if len(doc.Geometry.Coordinates) == 0 {
		return fmt.Errorf("%s: missing coordinates", doc.Geometry.Type)
	}
	return checkPositions(doc.Geometry.Coordinates, depth)
}

func checkPositions(raw json.RawMessage, depth int) error {
	if depth == 0 {
		var pos []float64
		if err := json.Unmarshal(raw, &pos); err != nil {
			return fmt.Errorf("position: %v", err)
		}
		if len(pos) < 2 {
			return fmt.Errorf("position needs at least 2 numbers, got %d", len(pos))
		}
		return nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return fmt.Errorf("coordinates: %v", err)
	}
	for _, item := range items {
		if err := checkPositions(item, depth-1); err != nil {
			return err
		}
	}
	return nil
}

// FromGeoJSON converts and validates one orb feature.
func FromGeoJSON(gf *geojson.Feature) (domain.Feature, error) {
	if gf == nil || gf.Geometry == nil {
		return domain.Feature{}, fmt.Errorf("%w: missing geometry", domain.ErrMalformedFeature)
	}

	props := make(map[string]any, len(gf.Properties))
	maps.Copy(props, gf.Properties)
	shapeRaw, hasShape := props[ShapeKey]
	shape, ok := shapeRaw.(string)
	if hasShape && !ok {
		return domain.Feature{}, fmt.Errorf("%w: %s is not a string", domain.ErrMalformedFeature, ShapeKey)
	}
	radiusRaw, hasRadius := props[RadiusKey]
	delete(props, ShapeKey)
	delete(props, RadiusKey)
	isCircle := shape == string(domain.KindCircle) || shape == string(domain.KindCircleMarker)
	if hasRadius && !isCircle {
		return domain.Feature{}, fmt.Errorf("%w: %s without a circle %s", domain.ErrMalformedFeature, RadiusKey, ShapeKey)
	}

	var geom domain.Geometry
	switch g := gf.Geometry.(type) {
	case orb.Point:
		center := fromPoint(g)
		switch shape {
		case "", string(domain.KindMarker):
			geom = domain.Point{At: center}
		case string(domain.KindCircle), string(domain.KindCircleMarker):
			radius, ok := radiusRaw.(float64)
			if !hasRadius || !ok {
				return domain.Feature{}, fmt.Errorf("%w: %s without numeric %s", domain.ErrMalformedFeature, shape, RadiusKey)
			}
			if shape == string(domain.KindCircle) {
				geom = domain.Circle{Center: center, Radius: radius}
			} else {
				geom = domain.CircleMarker{Center: center, Radius: radius}
			}
		default:
			return domain.Feature{}, fmt.Errorf("%w: shape %q on a Point", domain.ErrMalformedFeature, shape)
		}
	case orb.LineString:
		if hasShape {
			return domain.Feature{}, fmt.Errorf("%w: shape %q on a LineString", domain.ErrMalformedFeature, shape)
		}
		geom = domain.LineString{Path: fromPoints(g)}
	case orb.Polygon:
		rings := make([][]domain.Coordinate, 0, len(g))
		for _, r := range g {
			rings = append(rings, fromPoints(r))
		}
		switch shape {
		case "":
			geom = domain.Polygon{Rings: rings}
		case string(domain.KindRectangle):
			if len(rings) != 1 || len(rings[0]) != 5 {
				return domain.Feature{}, fmt.Errorf("%w: rectangle needs one 5-position ring", domain.ErrMalformedFeature)
			}
			rect := domain.Rectangle{Bounds: domain.GeoBounds{SouthWest: rings[0][0], NorthEast: rings[0][2]}}
			if !slices.Equal(rings[0], rect.Ring()) {
				return domain.Feature{}, fmt.Errorf("%w: rectangle ring is not an axis-aligned box", domain.ErrMalformedFeature)
			}
			geom = rect
		default:
			return domain.Feature{}, fmt.Errorf("%w: shape %q on a Polygon", domain.ErrMalformedFeature, shape)
		}
	default:
		return domain.Feature{}, fmt.Errorf("%w: %w: %s", domain.ErrMalformedFeature, domain.ErrUnsupportedGeometry, gf.Geometry.GeoJSONType())
	}

	if err := geom.Validate(); err != nil {
		return domain.Feature{}, fmt.Errorf("%w: %v", domain.ErrMalformedFeature, err)
	}

	_, numeric := gf.ID.(float64)
	return domain.Feature{ID: idString(gf.ID), NumericID: numeric, Geometry: geom, Properties: props}, nil
}

func idString(id any) string {
	switch v := id.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

func toPoint(c domain.Coordinate) orb.Point { return orb.Point{c.X, c.Y} }

func fromPoint(p orb.Point) domain.Coordinate { return domain.Coordinate{X: p[0], Y: p[1]} }

func toPoints(cs []domain.Coordinate) []orb.Point {
	out := make([]orb.Point, len(cs))
	for i, c := range cs {
		out[i] = toPoint(c)
	}
	return out
}

func fromPoints[S ~[]orb.Point](ps S) []domain.Coordinate {
	out := make([]domain.Coordinate, len(ps))
	for i, p := range ps {
		out[i] = fromPoint(p)
	}
	return out
}
