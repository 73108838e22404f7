package usecases

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/samirrijal/mapcanvas/internal/core/domain"
	"github.com/samirrijal/mapcanvas/internal/core/ports"
	"github.com/samirrijal/mapcanvas/internal/pkg/geocodec"
	"github.com/samirrijal/mapcanvas/internal/pkg/metrics"
	"github.com/samirrijal/mapcanvas/internal/pkg/telemetry"
)

// Layer sources advertised to the viewport.
const (
	BaseLayerSource     = "/v1/base"
	EditableLayerSource = "/v1/annotations/export"
)

// AnnotationLayer owns the read-only base collection and the single editable group.
type AnnotationLayer struct {
	viewport ports.Viewport

	mu        sync.RWMutex
	base      *domain.FeatureCollection
	baseLayer ports.LayerID
	editable  *EditableGroup
}

// NewAnnotationLayer creates an AnnotationLayer bound to viewport.
func NewAnnotationLayer(viewport ports.Viewport) *AnnotationLayer {
	return &AnnotationLayer{viewport: viewport}
}

// LoadBase renders fc as the static base layer. Any malformed feature fails the
// whole load and nothing is rendered. The base can be loaded once.
func (l *AnnotationLayer) LoadBase(fc domain.FeatureCollection) error {
	if err := fc.Validate(); err != nil {
		return fmt.Errorf("load base: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.base != nil {
		return domain.ErrBaseLoaded
	}

	stored := domain.NewFeatureCollection()
	for _, f := range fc.Features {
		stored.Features = append(stored.Features, f.Clone())
	}
	l.base = &stored
	l.baseLayer = l.viewport.AddVectorLayer(ports.VectorLayerSpec{
		Name:   "base",
		Source: BaseLayerSource,
	})
	metrics.BaseFeaturesLoaded.Set(float64(stored.Len()))

	slog.Info("base annotations loaded", "features", stored.Len(), "layer", l.baseLayer)
	return nil
}

// LoadBaseFrom loads the base collection from src.
func (l *AnnotationLayer) LoadBaseFrom(ctx context.Context, src ports.BaseFeatureSource) error {
	ctx, span := telemetry.Tracer().Start(ctx, telemetry.SpanBaseLoad)
	defer span.End()

	fc, err := src.Load(ctx)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("load base: %w", err)
	}
	span.SetAttributes(attribute.Int("features", fc.Len()))

	if err := l.LoadBase(fc); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

// Base returns a copy of the base collection and whether it has been loaded.
func (l *AnnotationLayer) Base() (domain.FeatureCollection, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.base == nil {
		return domain.NewFeatureCollection(), false
	}
	return cloneCollection(l.base.Features), true
}

// AttachEditable binds an empty editable group to the viewport. It can be called once.
func (l *AnnotationLayer) AttachEditable() (*EditableGroup, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.editable != nil {
		return nil, domain.ErrEditableAttached
	}

	id := l.viewport.AddVectorLayer(ports.VectorLayerSpec{
		Name:     "annotations",
		Editable: true,
		Source:   EditableLayerSource,
	})
	l.editable = &EditableGroup{layer: id}
	metrics.EditableFeatures.Set(0)
	return l.editable, nil
}

// Editable returns the editable group, or nil before AttachEditable.
func (l *AnnotationLayer) Editable() *EditableGroup {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.editable
}

// EditableGroup is the mutable, ordered feature group behind the draw toolbar.
// Geometries are treated as immutable once added.
type EditableGroup struct {
	layer ports.LayerID

	mu       sync.RWMutex
	features []domain.Feature
}

// LayerID is the viewport layer the group renders into.
func (g *EditableGroup) LayerID() ports.LayerID { return g.layer }

// Add validates f and appends it. An empty ID is replaced by a fresh UUID.
func (g *EditableGroup) Add(f domain.Feature) (domain.Feature, error) {
	added, err := g.AddAll([]domain.Feature{f})
	if err != nil {
		return domain.Feature{}, err
	}
	return added[0], nil
}

// AddAll appends every feature or none of them.
func (g *EditableGroup) AddAll(features []domain.Feature) ([]domain.Feature, error) {
	prepared := make([]domain.Feature, 0, len(features))
	seen := make(map[string]struct{}, len(features))
	for i, f := range features {
		if f.Geometry == nil {
			return nil, fmt.Errorf("%w: feature %d: missing geometry", domain.ErrMalformedFeature, i)
		}
		if err := f.Geometry.Validate(); err != nil {
			return nil, fmt.Errorf("%w: feature %d: %v", domain.ErrMalformedFeature, i, err)
		}
		if err := geocodec.CheckProperties(f.Properties); err != nil {
			return nil, fmt.Errorf("feature %d: %w", i, err)
		}
		c := f.Clone()
		if c.ID == "" {
			c.ID = uuid.NewString()
		}
		if _, dup := seen[c.ID]; dup {
			return nil, fmt.Errorf("%w: %s", domain.ErrDuplicateFeature, c.ID)
		}
		seen[c.ID] = struct{}{}
		prepared = append(prepared, c)
	}

	g.mu.Lock()
	for _, f := range prepared {
		if g.indexLocked(f.ID) >= 0 {
			g.mu.Unlock()
			return nil, fmt.Errorf("%w: %s", domain.ErrDuplicateFeature, f.ID)
		}
	}
	g.features = append(g.features, prepared...)
	n := len(g.features)
	g.mu.Unlock()

	metrics.EditableFeatures.Set(float64(n))
	out := make([]domain.Feature, len(prepared))
	for i, f := range prepared {
		metrics.FeaturesCreated.WithLabelValues(string(f.Kind())).Inc()
		out[i] = f.Clone()
	}
	return out, nil
}

// Remove deletes the feature with the given ID.
func (g *EditableGroup) Remove(id string) (domain.Feature, error) {
	g.mu.Lock()
	i := g.indexLocked(id)
	if i < 0 {
		g.mu.Unlock()
		return domain.Feature{}, fmt.Errorf("%w: %s", domain.ErrFeatureNotFound, id)
	}
	removed := g.features[i]
	g.features = slices.Delete(g.features, i, i+1)
	n := len(g.features)
	g.mu.Unlock()

	metrics.EditableFeatures.Set(float64(n))
	return removed, nil
}

// Get returns a copy of the feature with the given ID.
func (g *EditableGroup) Get(id string) (domain.Feature, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	i := g.indexLocked(id)
	if i < 0 {
		return domain.Feature{}, fmt.Errorf("%w: %s", domain.ErrFeatureNotFound, id)
	}
	return g.features[i].Clone(), nil
}

// Clear removes every feature and reports how many there were.
func (g *EditableGroup) Clear() int {
	g.mu.Lock()
	n := len(g.features)
	g.features = nil
	g.mu.Unlock()

	metrics.EditableFeatures.Set(0)
	return n
}

func (g *EditableGroup) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.features)
}

// ToCollection snapshots the group in insertion order.
func (g *EditableGroup) ToCollection() domain.FeatureCollection {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return cloneCollection(g.features)
}

func (g *EditableGroup) indexLocked(id string) int {
	return slices.IndexFunc(g.features, func(f domain.Feature) bool { return f.ID == id })
}

func cloneCollection(features []domain.Feature) domain.FeatureCollection {
	fc := domain.FeatureCollection{Features: make([]domain.Feature, len(features))}
	for i, f := range features {
		fc.Features[i] = f.Clone()
	}
	return fc
}
