package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/middleware/timeout"
	"github.com/gofiber/websocket/v2"

	"github.com/samirrijal/mapcanvas/internal/pkg/metrics"
)

// SetupRoutes registers all REST, GraphQL, and WebSocket routes.
// Authoring routes exist only when deps.Session is set.
func SetupRoutes(app *fiber.App, deps *Dependencies) {
	// Prometheus metrics
	app.Use(metrics.Middleware())
	app.Get("/metrics", metrics.Handler())

	// Response compression (gzip)
	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))

	// Request ID
	app.Use(requestid.New())

	// Propagate request ID into slog context
	app.Use(RequestIDLogMiddleware())

	// Access logs
	app.Use(AccessLogMiddleware())

	// Rate limiting: 600 requests per minute per IP; a drag streams pointer moves
	app.Use(limiter.New(limiter.Config{
		Max:        600,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return newError(c, 429, "rate_limited", "too many requests, please try again later")
		},
	}))

	// Security headers + API version
	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Set("X-API-Version", "1.0.0")
		return c.Next()
	})

	// ETag for conditional caching
	app.Use(ETagMiddleware())

	// Default Cache-Control headers
	app.Use(CachingMiddleware())

	// Tile images and marker icons
	if deps.AssetsDir != "" {
		app.Static("/assets", deps.AssetsDir)
	}

	// Health & readiness (no timeout)
	app.Get("/v1/health", HealthHandler(deps))
	app.Get("/v1/ready", ReadyHandler(deps))

	d := deps.timeout()
	v1 := app.Group("/v1")
	v1.Get("/scene", timeout.NewWithContext(SceneHandler(deps), d))
	v1.Get("/tiles", timeout.NewWithContext(TilesHandler(deps), d))
	v1.Get("/projection/bounds", timeout.NewWithContext(ProjectionBoundsHandler(deps), d))
	v1.Get("/base", timeout.NewWithContext(BaseHandler(deps), d))
	v1.Get("/session", timeout.NewWithContext(SessionHandler(deps), d))

	if deps.Session != nil {
		ann := v1.Group("/annotations")
		ann.Get("/", timeout.NewWithContext(ListAnnotationsHandler(deps), d))
		ann.Get("/export", timeout.NewWithContext(ExportHandler(deps), d))
		ann.Post("/import", timeout.NewWithContext(ImportHandler(deps), d))
		ann.Post("/clear", timeout.NewWithContext(ClearHandler(deps), d))
		ann.Get("/:id", timeout.NewWithContext(GetAnnotationHandler(deps), d))
		ann.Delete("/:id", timeout.NewWithContext(DeleteAnnotationHandler(deps), d))

		sess := v1.Group("/session")
		sess.Post("/tool", timeout.NewWithContext(SelectToolHandler(deps), d))
		sess.Post("/pointer", timeout.NewWithContext(PointerHandler(deps), d))
		sess.Post("/finish", timeout.NewWithContext(FinishHandler(deps), d))
		sess.Post("/undo", timeout.NewWithContext(UndoHandler(deps), d))
		sess.Post("/cancel", timeout.NewWithContext(CancelHandler(deps), d))
	}

	// GraphQL
	app.Post("/graphql", GraphQLHandler(deps))

	// API documentation (Swagger UI)
	SetupDocs(app)

	// WebSocket
	if deps.Events != nil {
		app.Use("/ws", func(c *fiber.Ctx) error {
			if websocket.IsWebSocketUpgrade(c) {
				return c.Next()
			}
			return fiber.ErrUpgradeRequired
		})
		app.Get("/ws", websocket.New(WebSocketHandler(deps.Events)))
	}
}
