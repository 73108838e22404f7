package usecases

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"go.opentelemetry.io/otel/attribute"

	"github.com/samirrijal/mapcanvas/internal/core/domain"
	"github.com/samirrijal/mapcanvas/internal/core/ports"
	"github.com/samirrijal/mapcanvas/internal/pkg/metrics"
	"github.com/samirrijal/mapcanvas/internal/pkg/telemetry"
)

// URLTemplate returns the image URL of the tile at (row, col).
type URLTemplate func(row, col int) string

// PatternURL substitutes {row} and {col} in pattern.
func PatternURL(pattern string) URLTemplate {
	return func(row, col int) string {
		r := strings.NewReplacer("{row}", strconv.Itoa(row), "{col}", strconv.Itoa(col))
		return r.Replace(pattern)
	}
}

// TileGrid registers the base map tiles with the viewport.
type TileGrid struct {
	viewport  ports.Viewport
	projector *CoordinateProjector

	mu    sync.RWMutex
	tiles []domain.PlacedTile
}

// NewTileGrid creates a TileGrid.
func NewTileGrid(viewport ports.Viewport, projector *CoordinateProjector) *TileGrid {
	return &TileGrid{viewport: viewport, projector: projector}
}

// Build registers one image overlay per cell, rows 1..Rows by cols 1..Cols.
// Image URLs are not checked; a missing image is only a visual gap.
// Calling Build twice registers every tile twice.
func (g *TileGrid) Build(ctx context.Context, size domain.GridSize, urls URLTemplate) []domain.PlacedTile {
	_, span := telemetry.Tracer().Start(ctx, telemetry.SpanTileBuild)
	defer span.End()
	span.SetAttributes(attribute.Int("rows", size.Rows), attribute.Int("cols", size.Cols))

	placed := make([]domain.PlacedTile, 0, max(size.Cells(), 0))
	for row := 1; row <= size.Rows; row++ {
		for col := 1; col <= size.Cols; col++ {
			spec := domain.TileSpec{Row: row, Col: col, URL: urls(row, col)}
			bounds := g.projector.CellBounds(col, row)
			id := g.viewport.AddImageOverlay(spec.URL, bounds)
			placed = append(placed, domain.PlacedTile{TileSpec: spec, Bounds: bounds, LayerID: string(id)})
			metrics.TilesRegistered.Inc()
		}
	}

	g.mu.Lock()
	g.tiles = append(g.tiles, placed...)
	g.mu.Unlock()

	slog.Info("tile grid built", "rows", size.Rows, "cols", size.Cols, "overlays", len(placed))
	return placed
}

// Tiles returns every tile registered so far.
func (g *TileGrid) Tiles() []domain.PlacedTile {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return append([]domain.PlacedTile(nil), g.tiles...)
}

// Projector returns the projector the grid places tiles with.
func (g *TileGrid) Projector() *CoordinateProjector { return g.projector }
