package http

import (
	"time"

	"github.com/samirrijal/mapcanvas/internal/adapters/postgres"
	"github.com/samirrijal/mapcanvas/internal/adapters/valkey"
	"github.com/samirrijal/mapcanvas/internal/adapters/viewport"
	"github.com/samirrijal/mapcanvas/internal/core/usecases"
)

// EventRelay delivers broker messages to in-process callbacks.
type EventRelay interface {
	Subscribe(subject string, fn func(data []byte)) (unsubscribe func() error, err error)
	Connected() bool
}

// Dependencies holds all services needed by HTTP handlers.
type Dependencies struct {
	Scene *viewport.Scene
	Tiles *usecases.TileGrid
	Layer *usecases.AnnotationLayer
	// Session is nil when authoring is disabled; authoring routes are then not registered.
	Session *usecases.DrawSession

	Events EventRelay
	DB     *postgres.DB
	Cache  *valkey.Cache

	AssetsDir      string
	RequestTimeout time.Duration
}

func (d *Dependencies) timeout() time.Duration {
	if d.RequestTimeout <= 0 {
		return 15 * time.Second
	}
	return d.RequestTimeout
}
