package ports

import (
	"context"

	"github.com/samirrijal/mapcanvas/internal/core/domain"
)

// BaseFeatureSource loads the static, read-only annotation collection.
type BaseFeatureSource interface {
	Load(ctx context.Context) (domain.FeatureCollection, error)
}

// EventPublisher publishes authoring events to a message broker.
type EventPublisher interface {
	PublishAnnotationEvent(ctx context.Context, event domain.AnnotationEvent) error
}

// CacheService provides read-through caching.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
}
