package repos

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/architeacher/device-inventory/internal/domain/model"
	"github.com/architeacher/device-inventory/internal/infrastructure"
	"github.com/architeacher/device-inventory/pkg/logger"
)

const (
	deviceCacheVersion        = "v1"
	deviceKeyPrefix           = "device:" + deviceCacheVersion + ":"
	deviceGenerationKeyPrefix = "device:" + deviceCacheVersion + ":generation:"

	// deviceGenerationTTL must outlast any storage read that raced an invalidation.
	deviceGenerationTTL = 24 * time.Hour
)

type (
	cachedDevice struct {
		ID           string    `json:"id"`
		Name         string    `json:"name"`
		Brand        string    `json:"brand"`
		State        string    `json:"state"`
		CreationTime time.Time `json:"creation_time"`
	}

	// DevicesCacheRepository keeps single device reads in Redis compatible storage.
	DevicesCacheRepository struct {
		client *infrastructure.RedisClient
		logger logger.Logger
	}
)

func NewDevicesCacheRepository(client *infrastructure.RedisClient, log logger.Logger) *DevicesCacheRepository {
	return &DevicesCacheRepository{
		client: client,
		logger: log,
	}
}

// GetDevice reports false without an error on a miss. Entries that no longer decode
// are dropped and treated as a miss.
func (r *DevicesCacheRepository) GetDevice(ctx context.Context, id model.DeviceID) (*model.Device, bool, error) {
	key := deviceKey(id)

	data, err := r.client.Get(ctx, key)
	if err != nil {
		if errors.Is(err, infrastructure.ErrCacheMiss) {
			return nil, false, nil
		}

		return nil, false, fmt.Errorf("getting cached device: %w", err)
	}

	device, err := decodeCachedDevice(data)
	if err != nil {
		r.logger.Warn().Err(err).Str("key", key).Msg("dropping undecodable cache entry")

		if err := r.client.Delete(ctx, key); err != nil {
			r.logger.Warn().Err(err).Str("key", key).Msg("failed to drop cache entry")
		}

		return nil, false, nil
	}

	return device, true, nil
}

func (r *DevicesCacheRepository) SetDevice(ctx context.Context, device *model.Device, ttl time.Duration) error {
	data, err := encodeCachedDevice(device)
	if err != nil {
		return err
	}

	if err := r.client.Set(ctx, deviceKey(device.ID), data, ttl); err != nil {
		return fmt.Errorf("setting cached device: %w", err)
	}

	return nil
}

func (r *DevicesCacheRepository) DeviceGeneration(ctx context.Context, id model.DeviceID) (int64, error) {
	generation, err := r.client.Generation(ctx, deviceGenerationKey(id))
	if err != nil {
		return 0, fmt.Errorf("getting cached device generation: %w", err)
	}

	return generation, nil
}

// SetDeviceIfGeneration skips the write when the device was invalidated after
// generation was read, so a slow read never puts back a deleted or outdated device.
func (r *DevicesCacheRepository) SetDeviceIfGeneration(
	ctx context.Context,
	device *model.Device,
	generation int64,
	ttl time.Duration,
) (bool, error) {
	data, err := encodeCachedDevice(device)
	if err != nil {
		return false, err
	}

	written, err := r.client.SetIfGeneration(ctx, deviceGenerationKey(device.ID), deviceKey(device.ID), generation, data, ttl)
	if err != nil {
		return false, fmt.Errorf("setting cached device: %w", err)
	}

	if !written {
		r.logger.Debug().
			Str("device_id", device.ID.String()).
			Int64("generation", generation).
			Msg("skipped caching a device invalidated during the read")
	}

	return written, nil
}

// InvalidateDevice drops the entry and advances the generation in one step.
func (r *DevicesCacheRepository) InvalidateDevice(ctx context.Context, id model.DeviceID) error {
	if _, err := r.client.BumpGeneration(ctx, deviceGenerationKey(id), deviceGenerationTTL, deviceKey(id)); err != nil {
		return fmt.Errorf("invalidating cached device: %w", err)
	}

	return nil
}

func deviceKey(id model.DeviceID) string {
	return deviceKeyPrefix + id.String()
}

func deviceGenerationKey(id model.DeviceID) string {
	return deviceGenerationKeyPrefix + id.String()
}

func encodeCachedDevice(device *model.Device) ([]byte, error) {
	data, err := json.Marshal(cachedDevice{
		ID:           device.ID.String(),
		Name:         device.Name,
		Brand:        device.Brand,
		State:        device.State.String(),
		CreationTime: device.CreationTime,
	})
	if err != nil {
		return nil, fmt.Errorf("marshalling device: %w", err)
	}

	return data, nil
}

func decodeCachedDevice(data []byte) (*model.Device, error) {
	var cached cachedDevice
	if err := json.Unmarshal(data, &cached); err != nil {
		return nil, fmt.Errorf("unmarshalling cached device: %w", err)
	}

	return convertRowToDevice(deviceRow(cached))
}
