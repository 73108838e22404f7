package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mapcanvas",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total HTTP requests processed",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "mapcanvas",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"method", "path"})

	httpResponseSize = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "mapcanvas",
		Subsystem: "http",
		Name:      "response_size_bytes",
		Help:      "HTTP response size in bytes",
		Buckets:   prometheus.ExponentialBuckets(100, 10, 6),
	}, []string{"method", "path"})

	// Map metrics
	TilesRegistered = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "mapcanvas",
		Subsystem: "map",
		Name:      "tiles_registered_total",
		Help:      "Total tile overlays registered with the viewport",
	})

	SceneLayers = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "mapcanvas",
		Subsystem: "map",
		Name:      "scene_layers",
		Help:      "Layers currently registered with the viewport",
	}, []string{"kind"})

	BaseFeaturesLoaded = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "mapcanvas",
		Subsystem: "map",
		Name:      "base_features",
		Help:      "Features in the read-only base layer",
	})

	// Authoring metrics
	EditableFeatures = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "mapcanvas",
		Subsystem: "authoring",
		Name:      "editable_features",
		Help:      "Features currently in the editable group",
	})

	FeaturesCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mapcanvas",
		Subsystem: "authoring",
		Name:      "features_created_total",
		Help:      "Total features added to the editable group",
	}, []string{"kind"})

	DrawCancellations = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "mapcanvas",
		Subsystem: "authoring",
		Name:      "draw_cancellations_total",
		Help:      "Total shapes abandoned before completion",
	})

	ExportsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "mapcanvas",
		Subsystem: "authoring",
		Name:      "exports_total",
		Help:      "Total GeoJSON exports",
	})

	ExportBytes = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "mapcanvas",
		Subsystem: "authoring",
		Name:      "export_bytes",
		Help:      "Size of exported GeoJSON documents",
		Buckets:   prometheus.ExponentialBuckets(64, 4, 8),
	})

	ActiveWebSockets = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "mapcanvas",
		Subsystem: "ws",
		Name:      "active_connections",
		Help:      "Current number of active WebSocket connections",
	})

	CacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mapcanvas",
		Subsystem: "cache",
		Name:      "hits_total",
		Help:      "Total cache hits",
	}, []string{"operation"})

	CacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mapcanvas",
		Subsystem: "cache",
		Name:      "misses_total",
		Help:      "Total cache misses",
	}, []string{"operation"})

	// Database pool metrics
	DBPoolConnsOpen = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "mapcanvas",
		Subsystem: "db",
		Name:      "pool_conns_open",
		Help:      "Total connections open in the database pool",
	})

	DBPoolConnsAcquired = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "mapcanvas",
		Subsystem: "db",
		Name:      "pool_conns_acquired",
		Help:      "Connections currently acquired from the database pool",
	})

	DBPoolConnsIdle = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "mapcanvas",
		Subsystem: "db",
		Name:      "pool_conns_idle",
		Help:      "Idle connections in the database pool",
	})
)

// Middleware records request metrics.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Response().StatusCode())
		// fiber resolves the route pattern, which keeps :id out of the labels
		path := c.Route().Path
		if path == "" {
			path = c.Path()
		}
		method := c.Method()

		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpRequestDuration.WithLabelValues(method, path).Observe(duration)
		httpResponseSize.WithLabelValues(method, path).Observe(float64(len(c.Response().Body())))

		return err
	}
}

// Handler returns a Fiber handler serving Prometheus /metrics endpoint.
func Handler() fiber.Handler {
	handler := promhttp.Handler()
	return func(c *fiber.Ctx) error {
		fasthttpadaptor.NewFastHTTPHandler(handler)(c.Context())
		return nil
	}
}

// UpdateDBPoolMetrics copies pgx pool stats into the pool gauges.
// It takes any value with the pgxpool.Stat accessors so this package does not import pgx.
func UpdateDBPoolMetrics(stat interface{}) {
	type poolStat interface {
		AcquiredConns() int32
		IdleConns() int32
		TotalConns() int32
	}

	if s, ok := stat.(poolStat); ok {
		DBPoolConnsAcquired.Set(float64(s.AcquiredConns()))
		DBPoolConnsIdle.Set(float64(s.IdleConns()))
		DBPoolConnsOpen.Set(float64(s.TotalConns()))
	}
}
