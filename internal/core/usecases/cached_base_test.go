package usecases_test

import (
	"context"
	"errors"
	"testing"

	"github.com/samirrijal/mapcanvas/internal/core/domain"
	"github.com/samirrijal/mapcanvas/internal/core/usecases"
)

func TestCachedBaseSource_ReadThrough(t *testing.T) {
	src := &mockSource{loadFn: func(ctx context.Context) (domain.FeatureCollection, error) {
		return baseCollection(), nil
	}}
	cache := newMockCache()
	cached := usecases.NewCachedBaseSource(src, cache, 300)
	ctx := context.Background()

	first, err := cached.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if src.calls != 1 || cache.sets != 1 {
		t.Fatalf("expected one source load and one cache write, got %d/%d", src.calls, cache.sets)
	}
	if _, ok := cache.data[usecases.BaseCacheKey]; !ok {
		t.Fatalf("expected cache key %s", usecases.BaseCacheKey)
	}

	second, err := cached.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if src.calls != 1 {
		t.Errorf("expected cache hit, source called %d times", src.calls)
	}
	if second.Len() != first.Len() || second.Features[0].Properties["title"] != "Quest" {
		t.Errorf("cached collection differs: %+v", second)
	}

	if err := cached.Invalidate(ctx); err != nil {
		t.Fatal(err)
	}
	_, _ = cached.Load(ctx)
	if src.calls != 2 {
		t.Errorf("expected reload after invalidate, source called %d times", src.calls)
	}
}

func TestCachedBaseSource_CorruptEntry(t *testing.T) {
	src := &mockSource{loadFn: func(ctx context.Context) (domain.FeatureCollection, error) {
		return baseCollection(), nil
	}}
	cache := newMockCache()
	cache.data[usecases.BaseCacheKey] = []byte("not geojson")

	fc, err := usecases.NewCachedBaseSource(src, cache, 60).Load(context.Background())
	if err != nil || fc.Len() != 2 {
		t.Fatalf("expected fallback to source, got %d features, %v", fc.Len(), err)
	}
	if src.calls != 1 {
		t.Errorf("expected source load, got %d", src.calls)
	}
}

func TestCachedBaseSource_NoCache(t *testing.T) {
	src := &mockSource{loadFn: func(ctx context.Context) (domain.FeatureCollection, error) {
		return domain.FeatureCollection{}, errors.New("boom")
	}}
	cached := usecases.NewCachedBaseSource(src, nil, 60)

	if _, err := cached.Load(context.Background()); err == nil {
		t.Error("expected source error to propagate")
	}
	if err := cached.Invalidate(context.Background()); err != nil {
		t.Errorf("invalidate without cache must succeed, got %v", err)
	}
}
