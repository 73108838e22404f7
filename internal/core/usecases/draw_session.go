package usecases

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"github.com/samirrijal/mapcanvas/internal/core/domain"
	"github.com/samirrijal/mapcanvas/internal/core/ports"
	"github.com/samirrijal/mapcanvas/internal/pkg/geocodec"
	"github.com/samirrijal/mapcanvas/internal/pkg/metrics"
	"github.com/samirrijal/mapcanvas/internal/pkg/telemetry"
)

var (
	ErrNotDrawing      = errors.New("no drawing tool selected")
	ErrAlreadyDrawing  = errors.New("shape already in progress")
	ErrUnknownTool     = errors.New("unknown drawing tool")
	ErrIncompleteShape = errors.New("shape is incomplete")
	ErrInvalidPointer  = errors.New("invalid pointer event")
)

const (
	// DefaultCircleMarkerRadius is the pixel radius of new circle markers.
	DefaultCircleMarkerRadius = 10
	// SnapPixels is how close, in screen pixels, a click must land on an
	// existing vertex to count as clicking that vertex.
	SnapPixels = 8
	// DefaultSnapZoom is assumed when a pointer event carries no zoom level.
	DefaultSnapZoom = 3
)

// PointerAction is the kind of pointer input delivered by the viewport.
type PointerAction string

const (
	PointerDown  PointerAction = "down"
	PointerMove  PointerAction = "move"
	PointerUp    PointerAction = "up"
	PointerClick PointerAction = "click"
)

// PointerEvent is one pointer input at a plane coordinate. Zoom is the
// viewport zoom the input was made at; nil means DefaultSnapZoom.
type PointerEvent struct {
	Action PointerAction
	At     domain.Coordinate
	Zoom   *int
}

// SnapTolerance converts SnapPixels to plane units at the event's zoom.
// CRS.Simple scales by 2^zoom, so the tolerance halves per zoom level.
func (ev PointerEvent) SnapTolerance() float64 {
	zoom := DefaultSnapZoom
	if ev.Zoom != nil {
		zoom = *ev.Zoom
	}
	return math.Ldexp(SnapPixels, -zoom)
}

// Authorized reports whether the raw authoring flag enables drawing.
// Only the exact string "true" does; booleans, other casings and "1" do not.
func Authorized(flag any) bool {
	s, ok := flag.(string)
	return ok && s == "true"
}

// DrawSession is the authoring state machine over the editable group.
//
// The session is Idle when no tool is selected and Drawing otherwise.
// Completing a shape adds it to the group and returns to Idle; cancelling
// adds nothing. Clear and Export are accepted in both states and leave any
// shape in progress untouched.
type DrawSession struct {
	group     *EditableGroup
	publisher ports.EventPublisher
	now       func() time.Time

	mu       sync.Mutex
	tool     domain.GeometryKind
	vertices []domain.Coordinate
	pressed  bool
	anchor   domain.Coordinate
}

// AttachDrawSession creates the session when flag authorizes authoring.
// It returns nil, nil when unauthorized: no editable group and no draw controls
// are attached, and the decision is never revisited.
func AttachDrawSession(flag any, layer *AnnotationLayer, markerIcon domain.IconOptions, publisher ports.EventPublisher) (*DrawSession, error) {
	if !Authorized(flag) {
		slog.Info("authoring disabled")
		return nil, nil
	}

	group, err := layer.AttachEditable()
	if err != nil {
		return nil, fmt.Errorf("attach draw session: %w", err)
	}

	layer.viewport.AttachDrawControls(ports.DrawControls{
		Tools:      domain.GeometryKinds,
		MarkerIcon: markerIcon,
		Group:      group.LayerID(),
	})

	slog.Info("authoring enabled", "group", group.LayerID())
	return &DrawSession{group: group, publisher: publisher, now: time.Now}, nil
}

// Group returns the editable group the session draws into.
func (s *DrawSession) Group() *EditableGroup { return s.group }

// Status snapshots the session.
func (s *DrawSession) Status() domain.SessionStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.statusLocked()
}

func (s *DrawSession) statusLocked() domain.SessionStatus {
	st := domain.SessionStatus{State: domain.StateIdle, Features: s.group.Len()}
	if s.tool != "" {
		st.State = domain.StateDrawing
		st.Tool = s.tool
		st.Vertices = len(s.vertices)
		if s.pressed {
			st.Vertices = 1
		}
	}
	return st
}

// SelectTool enters Drawing with the named tool. Selecting a tool while a
// shape is in progress abandons that shape.
func (s *DrawSession) SelectTool(name string) (domain.SessionStatus, error) {
	kind, err := domain.ParseGeometryKind(name)
	if err != nil {
		return s.Status(), fmt.Errorf("%w: %w", ErrUnknownTool, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.inProgressLocked() {
		metrics.DrawCancellations.Inc()
	}
	s.resetLocked()
	s.tool = kind
	return s.statusLocked(), nil
}

// Pointer feeds one pointer event to the active tool. A completed shape is
// returned along with the new status.
func (s *DrawSession) Pointer(ctx context.Context, ev PointerEvent) (*domain.Feature, domain.SessionStatus, error) {
	slog.DebugContext(ctx, "pointer", "action", ev.Action, "x", ev.At.X, "y", ev.At.Y)

	if !ev.At.Finite() {
		return nil, s.Status(), fmt.Errorf("%w: non-finite coordinate", ErrInvalidPointer)
	}
	switch ev.Action {
	case PointerDown, PointerMove, PointerUp, PointerClick:
	default:
		return nil, s.Status(), fmt.Errorf("%w: action %q", ErrInvalidPointer, ev.Action)
	}

	s.mu.Lock()
	if s.tool == "" {
		st := s.statusLocked()
		s.mu.Unlock()
		return nil, st, ErrNotDrawing
	}

	geom, err := s.stepLocked(ev)
	if err != nil || geom == nil {
		st := s.statusLocked()
		s.mu.Unlock()
		return nil, st, err
	}

	added, err := s.completeLocked(geom)
	st := s.statusLocked()
	s.mu.Unlock()
	if err != nil {
		return nil, st, err
	}

	s.publish(ctx, domain.AnnotationEvent{
		Type:      domain.EventFeatureCreated,
		FeatureID: added.ID,
		Kind:      added.Kind(),
		Count:     st.Features,
	})
	return &added, st, nil
}

// stepLocked advances the active tool; it returns a geometry once the shape is complete.
func (s *DrawSession) stepLocked(ev PointerEvent) (domain.Geometry, error) {
	switch s.tool {
	case domain.KindMarker:
		if ev.Action == PointerClick {
			return domain.Point{At: ev.At}, nil
		}
	case domain.KindCircleMarker:
		if ev.Action == PointerClick {
			return domain.CircleMarker{Center: ev.At, Radius: DefaultCircleMarkerRadius}, nil
		}
	case domain.KindCircle, domain.KindRectangle:
		return s.dragLocked(ev)
	case domain.KindPolyline, domain.KindPolygon:
		if ev.Action == PointerClick {
			return s.clickVertexLocked(ev.At, ev.SnapTolerance())
		}
	}
	return nil, nil
}

// dragLocked handles press-drag-release shapes.
func (s *DrawSession) dragLocked(ev PointerEvent) (domain.Geometry, error) {
	switch ev.Action {
	case PointerDown:
		if s.pressed {
			return nil, ErrAlreadyDrawing
		}
		s.pressed = true
		s.anchor = ev.At
	case PointerUp:
		if !s.pressed {
			return nil, nil
		}
		s.pressed = false
		if ev.At == s.anchor {
			// zero-size drag draws nothing; the tool stays selected
			return nil, nil
		}
		if s.tool == domain.KindCircle {
			r := planar.Distance(orb.Point{s.anchor.X, s.anchor.Y}, orb.Point{ev.At.X, ev.At.Y})
			return domain.Circle{Center: s.anchor, Radius: r}, nil
		}
		b := domain.GeoBounds{SouthWest: s.anchor, NorthEast: ev.At}
		return domain.Rectangle{Bounds: b.Normalized()}, nil
	}
	return nil, nil
}

// clickVertexLocked appends a vertex, or finishes the shape when the click
// lands on the closing vertex.
func (s *DrawSession) clickVertexLocked(at domain.Coordinate, tolerance float64) (domain.Geometry, error) {
	n := len(s.vertices)
	switch {
	case s.tool == domain.KindPolyline && n > 0 && near(at, s.vertices[n-1], tolerance):
		if n < 2 {
			return nil, nil
		}
		return s.buildLocked()
	case s.tool == domain.KindPolygon && n > 0 && near(at, s.vertices[0], tolerance):
		if n < 3 {
			return nil, nil
		}
		return s.buildLocked()
	}
	s.vertices = append(s.vertices, at)
	return nil, nil
}

func (s *DrawSession) buildLocked() (domain.Geometry, error) {
	path := append([]domain.Coordinate(nil), s.vertices...)
	switch s.tool {
	case domain.KindPolyline:
		if len(path) < 2 {
			return nil, fmt.Errorf("%w: polyline needs 2 vertices, has %d", ErrIncompleteShape, len(path))
		}
		return domain.LineString{Path: path}, nil
	case domain.KindPolygon:
		if len(path) < 3 {
			return nil, fmt.Errorf("%w: polygon needs 3 vertices, has %d", ErrIncompleteShape, len(path))
		}
		return domain.Polygon{Rings: [][]domain.Coordinate{append(path, path[0])}}, nil
	}
	return nil, fmt.Errorf("%w: %s completes on pointer input", ErrIncompleteShape, s.tool)
}

func (s *DrawSession) completeLocked(geom domain.Geometry) (domain.Feature, error) {
	added, err := s.group.Add(domain.Feature{Geometry: geom, Properties: map[string]any{}})
	if err != nil {
		return domain.Feature{}, err
	}
	s.resetLocked()
	slog.Info("feature created", "id", added.ID, "kind", added.Kind())
	return added, nil
}

// Finish completes a polyline or polygon from the vertices placed so far.
func (s *DrawSession) Finish(ctx context.Context) (domain.Feature, domain.SessionStatus, error) {
	s.mu.Lock()
	if s.tool == "" {
		st := s.statusLocked()
		s.mu.Unlock()
		return domain.Feature{}, st, ErrNotDrawing
	}
	geom, err := s.buildLocked()
	if err != nil {
		st := s.statusLocked()
		s.mu.Unlock()
		return domain.Feature{}, st, err
	}
	added, err := s.completeLocked(geom)
	st := s.statusLocked()
	s.mu.Unlock()
	if err != nil {
		return domain.Feature{}, st, err
	}

	s.publish(ctx, domain.AnnotationEvent{
		Type:      domain.EventFeatureCreated,
		FeatureID: added.ID,
		Kind:      added.Kind(),
		Count:     st.Features,
	})
	return added, st, nil
}

// Undo removes the last placed vertex of a polyline or polygon.
func (s *DrawSession) Undo() (domain.SessionStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tool == "" {
		return s.statusLocked(), ErrNotDrawing
	}
	if len(s.vertices) == 0 {
		return s.statusLocked(), fmt.Errorf("%w: no vertex to remove", ErrIncompleteShape)
	}
	s.vertices = s.vertices[:len(s.vertices)-1]
	return s.statusLocked(), nil
}

// Cancel abandons the shape in progress and returns to Idle. It is a no-op when Idle.
func (s *DrawSession) Cancel() domain.SessionStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tool != "" {
		metrics.DrawCancellations.Inc()
	}
	s.resetLocked()
	s.tool = ""
	return s.statusLocked()
}

// Clear removes every editable feature. Clearing an empty group succeeds.
func (s *DrawSession) Clear(ctx context.Context) int {
	n := s.group.Clear()
	slog.InfoContext(ctx, "annotations cleared", "removed", n)
	s.publish(ctx, domain.AnnotationEvent{Type: domain.EventCollectionCleared, Count: n})
	return n
}

// Remove deletes one editable feature.
func (s *DrawSession) Remove(ctx context.Context, id string) error {
	removed, err := s.group.Remove(id)
	if err != nil {
		return err
	}
	s.publish(ctx, domain.AnnotationEvent{
		Type:      domain.EventFeatureRemoved,
		FeatureID: removed.ID,
		Kind:      removed.Kind(),
		Count:     s.group.Len(),
	})
	return nil
}

// Export serializes the editable group as it is right now.
func (s *DrawSession) Export(ctx context.Context) (ExportArtifact, error) {
	art, err := ExportCollection(ctx, s.group.ToCollection())
	if err != nil {
		return ExportArtifact{}, err
	}
	s.publish(ctx, domain.AnnotationEvent{Type: domain.EventCollectionExported, Count: art.Count})
	return art, nil
}

// Import decodes a GeoJSON FeatureCollection and appends all of its features.
// Nothing is added if any feature is malformed or collides with an existing ID.
func (s *DrawSession) Import(ctx context.Context, data []byte) ([]domain.Feature, error) {
	_, span := telemetry.Tracer().Start(ctx, telemetry.SpanImport)
	defer span.End()

	fc, err := geocodec.Decode(data)
	if err != nil {
		return nil, err
	}
	added, err := s.group.AddAll(fc.Features)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, domain.AnnotationEvent{Type: domain.EventCollectionImported, Count: len(added)})
	return added, nil
}

func (s *DrawSession) inProgressLocked() bool {
	return len(s.vertices) > 0 || s.pressed
}

func (s *DrawSession) resetLocked() {
	s.tool = ""
	s.vertices = nil
	s.pressed = false
	s.anchor = domain.Coordinate{}
}

// publish is best-effort: failures are logged and never affect the session.
func (s *DrawSession) publish(ctx context.Context, ev domain.AnnotationEvent) {
	if s.publisher == nil {
		return
	}
	ev.At = s.now().UTC()
	if err := s.publisher.PublishAnnotationEvent(ctx, ev); err != nil {
		slog.WarnContext(ctx, "publish annotation event", "type", ev.Type, "error", err)
	}
}

func near(a, b domain.Coordinate, tolerance float64) bool {
	return math.Hypot(a.X-b.X, a.Y-b.Y) <= tolerance
}
