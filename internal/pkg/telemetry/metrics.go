package telemetry

// Span and SLI names used for instrumentation.
const (
	// Latency
	MetricAPILatencyP50 = "api.latency.p50"
	MetricAPILatencyP95 = "api.latency.p95"
	MetricAPILatencyP99 = "api.latency.p99"

	// Spans
	SpanBaseLoad   = "base.load"
	SpanBaseCache  = "base.cache"
	SpanExport     = "annotations.export"
	SpanImport     = "annotations.import"
	SpanTileBuild  = "tiles.build"
	SpanSeedSource = "base.seed"

	// Business
	MetricFeaturesCreated = "business.features_created"
	MetricExports         = "business.exports"
)
