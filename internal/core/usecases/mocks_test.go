package usecases_test

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/samirrijal/mapcanvas/internal/core/domain"
	"github.com/samirrijal/mapcanvas/internal/core/ports"
)

// --- Mock Viewport (simple CRS) ---

type overlay struct {
	url    string
	bounds domain.GeoBounds
}

type mockViewport struct {
	maxZoom  int
	overlays []overlay
	vectors  []ports.VectorLayerSpec
	controls *ports.DrawControls
}

func newMockViewport() *mockViewport { return &mockViewport{maxZoom: 4} }

func (m *mockViewport) Unproject(p domain.Pixel, zoom int) domain.Coordinate {
	k := math.Exp2(float64(zoom))
	return domain.Coordinate{X: p.X / k, Y: -p.Y / k}
}

func (m *mockViewport) Project(c domain.Coordinate, zoom int) domain.Pixel {
	k := math.Exp2(float64(zoom))
	return domain.Pixel{X: c.X * k, Y: -c.Y * k}
}

func (m *mockViewport) MaxZoom() int { return m.maxZoom }

func (m *mockViewport) AddImageOverlay(url string, bounds domain.GeoBounds) ports.LayerID {
	m.overlays = append(m.overlays, overlay{url: url, bounds: bounds})
	return ports.LayerID(fmt.Sprintf("image-%d", len(m.overlays)))
}

func (m *mockViewport) AddVectorLayer(spec ports.VectorLayerSpec) ports.LayerID {
	m.vectors = append(m.vectors, spec)
	return ports.LayerID(fmt.Sprintf("vector-%d", len(m.vectors)))
}

func (m *mockViewport) RemoveLayer(id ports.LayerID) bool { return false }

func (m *mockViewport) AttachDrawControls(c ports.DrawControls) { m.controls = &c }

// --- Mock EventPublisher ---

type mockPublisher struct {
	mu     sync.Mutex
	events []domain.AnnotationEvent
	err    error
}

func (m *mockPublisher) PublishAnnotationEvent(ctx context.Context, ev domain.AnnotationEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, ev)
	return m.err
}

func (m *mockPublisher) types() []domain.AnnotationEventType {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.AnnotationEventType, len(m.events))
	for i, ev := range m.events {
		out[i] = ev.Type
	}
	return out
}

// --- Mock BaseFeatureSource ---

type mockSource struct {
	loadFn func(ctx context.Context) (domain.FeatureCollection, error)
	calls  int
}

func (m *mockSource) Load(ctx context.Context) (domain.FeatureCollection, error) {
	m.calls++
	if m.loadFn != nil {
		return m.loadFn(ctx)
	}
	return domain.NewFeatureCollection(), nil
}

// --- Mock CacheService ---

type mockCache struct {
	data   map[string][]byte
	getErr error
	sets   int
}

func newMockCache() *mockCache { return &mockCache{data: map[string][]byte{}} }

func (m *mockCache) Get(ctx context.Context, key string) ([]byte, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	v, ok := m.data[key]
	if !ok {
		return nil, fmt.Errorf("miss")
	}
	return v, nil
}

func (m *mockCache) Set(ctx context.Context, key string, value []byte, ttl int) error {
	m.sets++
	m.data[key] = value
	return nil
}

func (m *mockCache) Delete(ctx context.Context, key string) error {
	delete(m.data, key)
	return nil
}
