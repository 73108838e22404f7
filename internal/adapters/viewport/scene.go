// Package viewport models the browser map engine's layer set on the server.
//
// Scene uses a simple CRS: a linear scale of 2^zoom with the Y axis flipped,
// so unprojecting pixel (x, y) at zoom z gives plane (x/2^z, -y/2^z).
package viewport

import (
	"fmt"
	"math"
	"sync"

	"github.com/samirrijal/mapcanvas/internal/core/domain"
	"github.com/samirrijal/mapcanvas/internal/core/ports"
	"github.com/samirrijal/mapcanvas/internal/pkg/metrics"
)

var _ ports.Viewport = (*Scene)(nil)

// Options are the view constraints handed to the engine.
type Options struct {
	MinZoom     int
	MaxZoom     int
	InitialZoom int
	Center      domain.Coordinate
	MaxBounds   domain.GeoBounds
	// DefaultIcon replaces the engine's own default marker icon resolution.
	DefaultIcon domain.IconOptions
}

// LayerKind distinguishes raster overlays from feature overlays.
type LayerKind string

const (
	LayerImage  LayerKind = "image"
	LayerVector LayerKind = "vector"
)

// Layer is one composited layer, in registration order.
type Layer struct {
	ID       ports.LayerID     `json:"id"`
	Kind     LayerKind         `json:"kind"`
	URL      string            `json:"url,omitempty"`
	Bounds   *domain.GeoBounds `json:"bounds,omitempty"`
	Name     string            `json:"name,omitempty"`
	Editable bool              `json:"editable,omitempty"`
	Source   string            `json:"source,omitempty"`
}

// Scene is the single viewport of the process.
type Scene struct {
	opts Options

	mu       sync.Mutex
	seq      int
	layers   []Layer
	controls *ports.DrawControls
}

// New validates the options and returns an empty scene.
func New(opts Options) (*Scene, error) {
	if opts.MaxZoom < 1 {
		return nil, fmt.Errorf("max zoom must be at least 1, got %d", opts.MaxZoom)
	}
	if opts.MinZoom > opts.MaxZoom {
		return nil, fmt.Errorf("min zoom %d exceeds max zoom %d", opts.MinZoom, opts.MaxZoom)
	}
	return &Scene{opts: opts}, nil
}

func scale(zoom int) float64 { return math.Exp2(float64(zoom)) }

// Unproject converts a pixel at zoom into plane coordinates.
func (s *Scene) Unproject(p domain.Pixel, zoom int) domain.Coordinate {
	k := scale(zoom)
	return domain.Coordinate{X: p.X / k, Y: -p.Y / k}
}

// Project is the inverse of Unproject.
func (s *Scene) Project(c domain.Coordinate, zoom int) domain.Pixel {
	k := scale(zoom)
	return domain.Pixel{X: c.X * k, Y: -c.Y * k}
}

func (s *Scene) MaxZoom() int { return s.opts.MaxZoom }

func (s *Scene) MinZoom() int { return s.opts.MinZoom }

// ClampCenter keeps a requested view center inside the max bounds.
func (s *Scene) ClampCenter(c domain.Coordinate) domain.Coordinate {
	return s.opts.MaxBounds.Clamp(c)
}

// ClampZoom keeps a requested zoom within [MinZoom, MaxZoom].
func (s *Scene) ClampZoom(z int) int {
	return min(max(z, s.opts.MinZoom), s.opts.MaxZoom)
}

func (s *Scene) nextID(prefix string) ports.LayerID {
	s.seq++
	return ports.LayerID(fmt.Sprintf("%s-%d", prefix, s.seq))
}

// AddImageOverlay registers a raster at the given bounds. The URL is not checked.
func (s *Scene) AddImageOverlay(url string, bounds domain.GeoBounds) ports.LayerID {
	s.mu.Lock()
	defer s.mu.Unlock()

	b := bounds
	id := s.nextID("image")
	s.layers = append(s.layers, Layer{ID: id, Kind: LayerImage, URL: url, Bounds: &b})
	metrics.SceneLayers.WithLabelValues(string(LayerImage)).Inc()
	return id
}

// AddVectorLayer registers a feature overlay.
func (s *Scene) AddVectorLayer(spec ports.VectorLayerSpec) ports.LayerID {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID("vector")
	s.layers = append(s.layers, Layer{
		ID:       id,
		Kind:     LayerVector,
		Name:     spec.Name,
		Editable: spec.Editable,
		Source:   spec.Source,
	})
	metrics.SceneLayers.WithLabelValues(string(LayerVector)).Inc()
	return id
}

// RemoveLayer drops a layer; it reports false for unknown IDs.
func (s *Scene) RemoveLayer(id ports.LayerID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, l := range s.layers {
		if l.ID == id {
			s.layers = append(s.layers[:i], s.layers[i+1:]...)
			metrics.SceneLayers.WithLabelValues(string(l.Kind)).Dec()
			return true
		}
	}
	return false
}

// AttachDrawControls exposes the authoring toolbar in the manifest.
func (s *Scene) AttachDrawControls(controls ports.DrawControls) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := controls
	c.Tools = append([]domain.GeometryKind(nil), controls.Tools...)
	s.controls = &c
}

// Layers returns a copy of the registered layers.
func (s *Scene) Layers() []Layer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Layer(nil), s.layers...)
}

// Manifest is what the browser needs to build its map.
type Manifest struct {
	CRS          string             `json:"crs"`
	MinZoom      int                `json:"min_zoom"`
	MaxZoom      int                `json:"max_zoom"`
	Zoom         int                `json:"zoom"`
	Center       domain.Coordinate  `json:"center"`
	MaxBounds    domain.GeoBounds   `json:"max_bounds"`
	DefaultIcon  domain.IconOptions `json:"default_icon"`
	Layers       []Layer            `json:"layers"`
	DrawControls *DrawControlsView  `json:"draw_controls,omitempty"`
}

// DrawControlsView is the manifest form of ports.DrawControls.
type DrawControlsView struct {
	Tools      []domain.GeometryKind `json:"tools"`
	MarkerIcon domain.IconOptions    `json:"marker_icon"`
	Group      ports.LayerID         `json:"group"`
}

// Manifest snapshots the scene.
func (s *Scene) Manifest() Manifest {
	s.mu.Lock()
	defer s.mu.Unlock()

	m := Manifest{
		CRS:         "simple",
		MinZoom:     s.opts.MinZoom,
		MaxZoom:     s.opts.MaxZoom,
		Zoom:        s.ClampZoom(s.opts.InitialZoom),
		Center:      s.opts.MaxBounds.Clamp(s.opts.Center),
		MaxBounds:   s.opts.MaxBounds,
		DefaultIcon: s.opts.DefaultIcon,
		Layers:      append([]Layer{}, s.layers...),
	}
	if s.controls != nil {
		m.DrawControls = &DrawControlsView{
			Tools:      append([]domain.GeometryKind(nil), s.controls.Tools...),
			MarkerIcon: s.controls.MarkerIcon,
			Group:      s.controls.Group,
		}
	}
	return m
}
