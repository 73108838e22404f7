package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/samirrijal/mapcanvas/internal/adapters/filesource"
	"github.com/samirrijal/mapcanvas/internal/adapters/postgres"
	"github.com/samirrijal/mapcanvas/internal/adapters/valkey"
	"github.com/samirrijal/mapcanvas/internal/core/usecases"
	"github.com/samirrijal/mapcanvas/internal/pkg/config"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatal("usage: migrate <up|seed> [file]")
	}

	cfg, err := config.Load("mapcanvas-migrate")
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx := context.Background()
	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer db.Close()

	switch os.Args[1] {
	case "up":
		runMigrations(ctx, db)
	case "seed":
		path := cfg.Base.Path
		if len(os.Args) > 2 {
			path = os.Args[2]
		}
		seedBase(ctx, cfg, db, path)
	default:
		log.Fatalf("unknown command: %s", os.Args[1])
	}
}

func runMigrations(ctx context.Context, db *postgres.DB) {
	files := []string{
		"migrations/001_base_features.sql",
	}

	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			log.Fatalf("read %s: %v", f, err)
		}

		if _, err := db.Pool.Exec(ctx, string(data)); err != nil {
			log.Fatalf("exec %s: %v", f, err)
		}

		fmt.Printf("OK  %s\n", f)
	}

	log.Println("all migrations applied")
}

// seedBase replaces the stored base collection with the GeoJSON file at path
// and drops the cached copy so the next API start reads the new rows.
func seedBase(ctx context.Context, cfg *config.Config, db *postgres.DB, path string) {
	fc, err := filesource.New(path).Load(ctx)
	if err != nil {
		log.Fatalf("seed: %v", err)
	}

	if err := postgres.NewBaseFeatureRepo(db).ReplaceAll(ctx, fc); err != nil {
		log.Fatalf("seed: %v", err)
	}
	fmt.Printf("OK  %s (%d features)\n", path, fc.Len())

	if !cfg.Valkey.Enabled {
		return
	}
	cache, err := valkey.New(cfg.Valkey.Addr)
	if err != nil {
		log.Printf("cache not invalidated: %v", err)
		return
	}
	defer cache.Close()
	if err := cache.Delete(ctx, usecases.BaseCacheKey); err != nil {
		log.Printf("cache not invalidated: %v", err)
	}
}
