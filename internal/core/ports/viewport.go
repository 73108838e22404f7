package ports

import "github.com/samirrijal/mapcanvas/internal/core/domain"

// LayerID identifies a layer registered with a Viewport.
type LayerID string

// Projector converts between tile pixel space and the plane CRS.
type Projector interface {
	Unproject(p domain.Pixel, zoom int) domain.Coordinate
	Project(c domain.Coordinate, zoom int) domain.Pixel
	MaxZoom() int
}

// VectorLayerSpec describes a feature overlay for the rendering engine.
type VectorLayerSpec struct {
	Name     string
	Editable bool
	// Source is where the engine fetches the layer's features.
	Source string
}

// DrawControls is the authoring toolbar attached to the viewport.
type DrawControls struct {
	Tools      []domain.GeometryKind
	MarkerIcon domain.IconOptions
	Group      LayerID
}

// Viewport is the pan/zoom/render host. There is one per process.
type Viewport interface {
	Projector
	AddImageOverlay(url string, bounds domain.GeoBounds) LayerID
	AddVectorLayer(spec VectorLayerSpec) LayerID
	RemoveLayer(id LayerID) bool
	AttachDrawControls(controls DrawControls)
}
