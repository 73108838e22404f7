package domain

import (
	"fmt"
	"maps"
	"time"
)

// Feature is one annotation: a geometry plus optional properties.
type Feature struct {
	ID         string
	// NumericID is set when the ID was a JSON number in the source document.
	NumericID  bool
	Geometry   Geometry
	Properties map[string]any
}

// Kind returns the geometry kind, or "" when the geometry is missing.
func (f Feature) Kind() GeometryKind {
	if f.Geometry == nil {
		return ""
	}
	return f.Geometry.Kind()
}

// Clone returns a copy whose properties map can be mutated independently.
func (f Feature) Clone() Feature {
	out := f
	out.Properties = maps.Clone(f.Properties)
	if out.Properties == nil {
		out.Properties = map[string]any{}
	}
	return out
}

// FeatureCollection is an ordered sequence of features; order is insertion order.
type FeatureCollection struct {
	Features []Feature
}

// NewFeatureCollection returns an empty collection with a non-nil feature slice.
func NewFeatureCollection(features ...Feature) FeatureCollection {
	fc := FeatureCollection{Features: make([]Feature, 0, len(features))}
	fc.Features = append(fc.Features, features...)
	return fc
}

func (fc FeatureCollection) Len() int { return len(fc.Features) }

// Validate checks every feature's geometry and reports the first failure.
func (fc FeatureCollection) Validate() error {
	for i, f := range fc.Features {
		if f.Geometry == nil {
			return fmt.Errorf("%w: feature %d: missing geometry", ErrMalformedFeature, i)
		}
		if err := f.Geometry.Validate(); err != nil {
			return fmt.Errorf("%w: feature %d: %v", ErrMalformedFeature, i, err)
		}
	}
	return nil
}

// GridSize is the number of tile rows and columns of the base map.
type GridSize struct {
	Rows int `json:"rows"`
	Cols int `json:"cols"`
}

// Cells returns Rows*Cols.
func (g GridSize) Cells() int { return g.Rows * g.Cols }

// TileSpec identifies one raster tile. Row and Col are 1-indexed.
type TileSpec struct {
	Row int    `json:"row"`
	Col int    `json:"col"`
	URL string `json:"url"`
}

// PlacedTile is a tile registered with the viewport at its plane bounds.
type PlacedTile struct {
	TileSpec
	Bounds  GeoBounds `json:"bounds"`
	LayerID string    `json:"layer_id"`
}

// IconOptions configures how markers are drawn.
type IconOptions struct {
	IconURL       string `json:"icon_url"`
	IconRetinaURL string `json:"icon_retina_url,omitempty"`
	ShadowURL     string `json:"shadow_url"`
	Size          [2]int `json:"icon_size"`
	Anchor        [2]int `json:"icon_anchor"`
}

// HasShadow reports whether the icon renders a drop shadow.
func (o IconOptions) HasShadow() bool { return o.ShadowURL != "" }

// SessionState is the authoring state machine's current state.
type SessionState string

const (
	StateInactive SessionState = "inactive"
	StateIdle     SessionState = "idle"
	StateDrawing  SessionState = "drawing"
)

// SessionStatus is a snapshot of the authoring session.
type SessionStatus struct {
	State    SessionState `json:"state"`
	Tool     GeometryKind `json:"tool,omitempty"`
	Vertices int          `json:"vertices"`
	Features int          `json:"features"`
}

// AnnotationEventType names an authoring event.
type AnnotationEventType string

const (
	EventFeatureCreated     AnnotationEventType = "feature.created"
	EventFeatureRemoved     AnnotationEventType = "feature.removed"
	EventCollectionCleared  AnnotationEventType = "collection.cleared"
	EventCollectionExported AnnotationEventType = "collection.exported"
	EventCollectionImported AnnotationEventType = "collection.imported"
)

// AnnotationEvent is published after an editable group mutation or export.
type AnnotationEvent struct {
	Type      AnnotationEventType `json:"type"`
	FeatureID string              `json:"feature_id,omitempty"`
	Kind      GeometryKind        `json:"kind,omitempty"`
	Count     int                 `json:"count"`
	At        time.Time           `json:"at"`
}
