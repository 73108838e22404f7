package usecases

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/samirrijal/mapcanvas/internal/core/domain"
	"github.com/samirrijal/mapcanvas/internal/pkg/geocodec"
	"github.com/samirrijal/mapcanvas/internal/pkg/metrics"
	"github.com/samirrijal/mapcanvas/internal/pkg/telemetry"
)

const (
	ExportFilename  = "data.geojson"
	ExportMediaType = "text/json"
)

// ExportArtifact is a downloadable GeoJSON document.
type ExportArtifact struct {
	Filename  string
	MediaType string
	Body      []byte
	Count     int
}

// DataURI returns the artifact as a data: URI suitable for an anchor href.
func (a ExportArtifact) DataURI() string {
	return geocodec.DataURI(a.MediaType, a.Body)
}

// ExportCollection serializes fc as a GeoJSON FeatureCollection artifact.
// An empty collection exports with an empty features array.
func ExportCollection(ctx context.Context, fc domain.FeatureCollection) (ExportArtifact, error) {
	_, span := telemetry.Tracer().Start(ctx, telemetry.SpanExport)
	defer span.End()

	body, err := geocodec.Encode(fc)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return ExportArtifact{}, fmt.Errorf("export: %w", err)
	}
	span.SetAttributes(attribute.Int("features", fc.Len()), attribute.Int("bytes", len(body)))

	metrics.ExportsTotal.Inc()
	metrics.ExportBytes.Observe(float64(len(body)))

	return ExportArtifact{
		Filename:  ExportFilename,
		MediaType: ExportMediaType,
		Body:      body,
		Count:     fc.Len(),
	}, nil
}
