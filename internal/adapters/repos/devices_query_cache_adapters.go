package repos

import (
	"context"
	"time"

	"github.com/architeacher/device-inventory/internal/domain/model"
	"github.com/architeacher/device-inventory/internal/ports"
	"github.com/architeacher/device-inventory/internal/usecases/queries"
)

// GetDeviceCacheAdapter adapts DevicesCache for GetDeviceQuery. It implements
// decorator.GenerationCache, so write backs that raced an invalidation are dropped.
type GetDeviceCacheAdapter struct {
	cache ports.DevicesCache
}

func NewGetDeviceCacheAdapter(cache ports.DevicesCache) *GetDeviceCacheAdapter {
	return &GetDeviceCacheAdapter{cache: cache}
}

func (a *GetDeviceCacheAdapter) Get(ctx context.Context, query queries.GetDeviceQuery) (*model.Device, bool, error) {
	return a.cache.GetDevice(ctx, query.ID)
}

func (a *GetDeviceCacheAdapter) Set(ctx context.Context, _ queries.GetDeviceQuery, result *model.Device, ttl time.Duration) error {
	return a.cache.SetDevice(ctx, result, ttl)
}

func (a *GetDeviceCacheAdapter) Generation(ctx context.Context, query queries.GetDeviceQuery) (int64, error) {
	return a.cache.DeviceGeneration(ctx, query.ID)
}

func (a *GetDeviceCacheAdapter) SetIfGeneration(
	ctx context.Context,
	_ queries.GetDeviceQuery,
	result *model.Device,
	generation int64,
	ttl time.Duration,
) (bool, error) {
	return a.cache.SetDeviceIfGeneration(ctx, result, generation, ttl)
}
