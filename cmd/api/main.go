package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/samirrijal/mapcanvas/internal/adapters/filesource"
	"github.com/samirrijal/mapcanvas/internal/adapters/http"
	natsadapter "github.com/samirrijal/mapcanvas/internal/adapters/nats"
	"github.com/samirrijal/mapcanvas/internal/adapters/postgres"
	"github.com/samirrijal/mapcanvas/internal/adapters/valkey"
	"github.com/samirrijal/mapcanvas/internal/adapters/viewport"
	"github.com/samirrijal/mapcanvas/internal/core/domain"
	"github.com/samirrijal/mapcanvas/internal/core/ports"
	"github.com/samirrijal/mapcanvas/internal/core/usecases"
	"github.com/samirrijal/mapcanvas/internal/pkg/config"
	"github.com/samirrijal/mapcanvas/internal/pkg/logging"
	"github.com/samirrijal/mapcanvas/internal/pkg/telemetry"
)

func main() {
	cfg, err := config.Load("mapcanvas-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logging.Setup(cfg.Log.Level, cfg.Log.Format, cfg.Log.File)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telemetry
	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.TempoAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	// Viewport
	scene, err := viewport.New(viewport.Options{
		MinZoom:     cfg.Map.MinZoom,
		MaxZoom:     cfg.Map.MaxZoom,
		InitialZoom: cfg.Map.Zoom,
		Center:      domain.Coordinate{X: cfg.Map.CenterX, Y: cfg.Map.CenterY},
		MaxBounds:   cfg.Map.Bounds.GeoBounds(),
		DefaultIcon: cfg.Map.Icon.Options(),
	})
	if err != nil {
		log.Fatalf("viewport: %v", err)
	}

	// Tiles
	projector := usecases.NewCoordinateProjector(scene, cfg.Map.TileWidth, cfg.Map.TileHeight)
	tiles := usecases.NewTileGrid(scene, projector)
	tiles.Build(ctx, domain.GridSize{Rows: cfg.Map.Rows, Cols: cfg.Map.Cols}, usecases.PatternURL(cfg.Map.URLTemplate))

	// Optional backing services
	var db *postgres.DB
	if cfg.Database.Enabled {
		db, err = postgres.New(ctx, cfg.Database.DSN())
		if err != nil {
			log.Fatalf("database: %v", err)
		}
		defer db.Close()
	}

	var cache *valkey.Cache
	if cfg.Valkey.Enabled {
		cache, err = valkey.New(cfg.Valkey.Addr)
		if err != nil {
			slog.Warn("valkey unavailable", "error", err)
			cache = nil
		} else {
			defer cache.Close()
		}
	}

	var publisher ports.EventPublisher
	var events http.EventRelay
	if cfg.NATS.Enabled {
		pub, err := natsadapter.NewPublisher(cfg.NATS.URL)
		if err != nil {
			slog.Warn("nats unavailable", "error", err)
		} else {
			defer pub.Close()
			publisher = pub
		}

		sub, err := natsadapter.NewSubscriber(cfg.NATS.URL)
		if err != nil {
			slog.Warn("nats ws relay unavailable", "error", err)
		} else {
			defer sub.Close()
			events = sub
		}
	}

	// Base annotations
	var source ports.BaseFeatureSource
	switch cfg.Base.Source {
	case "postgres":
		source = postgres.NewBaseFeatureRepo(db)
	default:
		source = filesource.New(cfg.Base.Path)
	}
	if cfg.Base.CacheEnabled && cache != nil {
		source = usecases.NewCachedBaseSource(source, cache, cfg.Base.CacheTTL)
	}

	layer := usecases.NewAnnotationLayer(scene)
	if err := layer.LoadBaseFrom(ctx, source); err != nil {
		log.Fatalf("base annotations: %v", err)
	}

	// Authoring
	session, err := usecases.AttachDrawSession(cfg.Authoring.Edit, layer, cfg.Map.DrawIcon.Options(), publisher)
	if err != nil {
		log.Fatalf("authoring: %v", err)
	}

	deps := &http.Dependencies{
		Scene:          scene,
		Tiles:          tiles,
		Layer:          layer,
		Session:        session,
		Events:         events,
		DB:             db,
		Cache:          cache,
		AssetsDir:      cfg.Server.AssetsDir,
		RequestTimeout: time.Duration(cfg.Server.RequestTimeout) * time.Second,
	}

	// Fiber
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    cfg.Server.BodyLimit,
		AppName:      "MapCanvas API",
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.AllowOrigins,
		AllowMethods:     "GET,POST,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept",
		ExposeHeaders:    "Content-Disposition, Link, ETag",
		AllowCredentials: false,
		MaxAge:           3600,
	}))

	http.SetupRoutes(app, deps)

	// Graceful shutdown
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr, "authoring", session != nil)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining connections...", "signal", sig.String())

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	slog.Info("server stopped")
}
