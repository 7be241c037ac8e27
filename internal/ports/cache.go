package ports

import (
	"context"
	"time"

	"github.com/architeacher/device-inventory/internal/domain/model"
)

type (
	// CachedResponse is an HTTP response stored for idempotent replay.
	CachedResponse struct {
		StatusCode  int               `json:"status_code"`
		Headers     map[string]string `json:"headers"`
		Body        []byte            `json:"body"`
		Fingerprint string            `json:"fingerprint"`
		CreatedAt   time.Time         `json:"created_at"`
	}

	IdempotencyCache interface {
		// Get returns nil, nil when nothing is stored under key.
		Get(ctx context.Context, key string) (*CachedResponse, error)
		Set(ctx context.Context, key string, response *CachedResponse, ttl time.Duration) error
		// SetLock reports false when another request already holds the lock.
		SetLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
		ReleaseLock(ctx context.Context, key string) error
	}

	DevicesCache interface {
		GetDevice(ctx context.Context, id model.DeviceID) (*model.Device, bool, error)
		SetDevice(ctx context.Context, device *model.Device, ttl time.Duration) error
		// DeviceGeneration returns a counter that every InvalidateDevice call for id
		// advances. Read it before loading the device from storage.
		DeviceGeneration(ctx context.Context, id model.DeviceID) (int64, error)
		// SetDeviceIfGeneration stores device only when no invalidation happened since
		// generation was read, and reports whether it did.
		SetDeviceIfGeneration(ctx context.Context, device *model.Device, generation int64, ttl time.Duration) (bool, error)
		InvalidateDevice(ctx context.Context, id model.DeviceID) error
	}
)
