package usecases

import (
	"context"
	"log/slog"

	"github.com/samirrijal/mapcanvas/internal/core/domain"
	"github.com/samirrijal/mapcanvas/internal/core/ports"
	"github.com/samirrijal/mapcanvas/internal/pkg/geocodec"
	"github.com/samirrijal/mapcanvas/internal/pkg/metrics"
	"github.com/samirrijal/mapcanvas/internal/pkg/telemetry"
)

// BaseCacheKey is the cache key of the encoded base collection.
const BaseCacheKey = "base:collection"

// CachedBaseSource is a read-through cache in front of another base source.
type CachedBaseSource struct {
	next  ports.BaseFeatureSource
	cache ports.CacheService
	ttl   int
}

// NewCachedBaseSource wraps next. A nil cache disables caching.
func NewCachedBaseSource(next ports.BaseFeatureSource, cache ports.CacheService, ttlSeconds int) *CachedBaseSource {
	return &CachedBaseSource{next: next, cache: cache, ttl: ttlSeconds}
}

// Load returns the cached collection if it decodes, otherwise loads from the
// wrapped source and caches the result. Cache failures are never fatal.
func (s *CachedBaseSource) Load(ctx context.Context) (domain.FeatureCollection, error) {
	ctx, span := telemetry.Tracer().Start(ctx, telemetry.SpanBaseCache)
	defer span.End()

	if s.cache != nil {
		if data, err := s.cache.Get(ctx, BaseCacheKey); err == nil && len(data) > 0 {
			if fc, err := geocodec.Decode(data); err == nil {
				metrics.CacheHits.WithLabelValues("base").Inc()
				return fc, nil
			}
			slog.Warn("discarding undecodable cached base collection")
		}
		metrics.CacheMisses.WithLabelValues("base").Inc()
	}

	fc, err := s.next.Load(ctx)
	if err != nil {
		return domain.FeatureCollection{}, err
	}

	if s.cache != nil {
		if data, err := geocodec.Encode(fc); err == nil {
			if err := s.cache.Set(ctx, BaseCacheKey, data, s.ttl); err != nil {
				slog.Warn("cache base collection", "error", err)
			}
		}
	}

	return fc, nil
}

// Invalidate drops the cached collection.
func (s *CachedBaseSource) Invalidate(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Delete(ctx, BaseCacheKey)
}
