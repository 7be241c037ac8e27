package decorator

import (
	"context"
	"sync/atomic"
	"time"
)

type (
	CacheStatus string

	CacheConfig struct {
		Enabled bool
		TTL     time.Duration
	}

	Cache[Q Query, R Result] interface {
		Get(ctx context.Context, query Q) (R, bool, error)
		Set(ctx context.Context, query Q, result R, ttl time.Duration) error
	}

	// GenerationCache is a Cache that can refuse a write back when the entry was
	// invalidated after Generation was read.
	GenerationCache[Q Query, R Result] interface {
		Cache[Q, R]
		Generation(ctx context.Context, query Q) (int64, error)
		SetIfGeneration(ctx context.Context, query Q, result R, generation int64, ttl time.Duration) (bool, error)
	}

	cacheStatusKey struct{}

	queryCachingDecorator[Q Query, R Result] struct {
		base   QueryHandler[Q, R]
		cache  Cache[Q, R]
		config CacheConfig
	}
)

const (
	CacheStatusHit    CacheStatus = "HIT"
	CacheStatusMiss   CacheStatus = "MISS"
	CacheStatusBypass CacheStatus = "BYPASS"
	CacheStatusError  CacheStatus = "ERROR"
)

// TrackCacheStatus installs a slot that caching decorators further down the call
// chain fill in, so the caller can read the outcome after the query returns.
func TrackCacheStatus(ctx context.Context) context.Context {
	return context.WithValue(ctx, cacheStatusKey{}, new(atomic.Value))
}

// GetCacheStatus reports the outcome recorded in ctx, BYPASS when none was recorded.
func GetCacheStatus(ctx context.Context) CacheStatus {
	slot, ok := ctx.Value(cacheStatusKey{}).(*atomic.Value)
	if !ok {
		return CacheStatusBypass
	}

	if status, ok := slot.Load().(CacheStatus); ok {
		return status
	}

	return CacheStatusBypass
}

func recordCacheStatus(ctx context.Context, status CacheStatus) {
	if slot, ok := ctx.Value(cacheStatusKey{}).(*atomic.Value); ok {
		slot.Store(status)
	}
}

// NewQueryCachingDecorator serves results from cache and fills it on a miss.
// Cache failures never fail the query. When cache is a GenerationCache the fill
// only lands if nothing invalidated the entry while the query ran.
func NewQueryCachingDecorator[Q Query, R Result](
	base QueryHandler[Q, R],
	cache Cache[Q, R],
	config CacheConfig,
) QueryHandler[Q, R] {
	return queryCachingDecorator[Q, R]{
		base:   base,
		cache:  cache,
		config: config,
	}
}

func (d queryCachingDecorator[Q, R]) Execute(ctx context.Context, query Q) (R, error) {
	if !d.config.Enabled || d.cache == nil {
		recordCacheStatus(ctx, CacheStatusBypass)

		return d.base.Execute(ctx, query)
	}

	status := CacheStatusMiss

	cached, hit, err := d.cache.Get(ctx, query)

	switch {
	case err != nil:
		status = CacheStatusError
	case hit:
		recordCacheStatus(ctx, CacheStatusHit)

		return cached, nil
	}

	guarded, isGuarded := d.cache.(GenerationCache[Q, R])

	var generation int64

	if isGuarded {
		if generation, err = guarded.Generation(ctx, query); err != nil {
			// Without a generation a fill could resurrect an invalidated entry.
			result, err := d.base.Execute(ctx, query)
			recordCacheStatus(ctx, CacheStatusError)

			return result, err
		}
	}

	result, err := d.base.Execute(ctx, query)
	if err != nil {
		recordCacheStatus(ctx, status)

		return result, err
	}

	if isGuarded {
		_, err = guarded.SetIfGeneration(ctx, query, result, generation, d.config.TTL)
	} else {
		err = d.cache.Set(ctx, query, result, d.config.TTL)
	}

	if err != nil {
		status = CacheStatusError
	}

	recordCacheStatus(ctx, status)

	return result, nil
}
