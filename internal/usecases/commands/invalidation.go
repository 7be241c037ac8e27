package commands

import (
	"context"
	"time"

	"github.com/architeacher/device-inventory/internal/domain/model"
	"github.com/architeacher/device-inventory/internal/ports"
	"github.com/architeacher/device-inventory/pkg/logger"
	"github.com/cenkalti/backoff/v5"
)

const (
	invalidationAttempts     = 3
	invalidationInitialDelay = 20 * time.Millisecond
	invalidationMaxElapsed   = time.Second
)

// cacheInvalidator drops the cached copy of a device after it changed. The change
// is already committed, so a failure is retried and then reported without failing
// the command.
type cacheInvalidator struct {
	cache  ports.DevicesCache
	logger logger.Logger
}

func (i cacheInvalidator) invalidate(ctx context.Context, id model.DeviceID) {
	if i.cache == nil {
		return
	}

	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = invalidationInitialDelay

	attempt := 0

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		attempt++

		return struct{}{}, i.cache.InvalidateDevice(ctx, id)
	},
		backoff.WithBackOff(expBackoff),
		backoff.WithMaxTries(invalidationAttempts),
		backoff.WithMaxElapsedTime(invalidationMaxElapsed),
	)
	if err != nil {
		i.logger.WithContext(ctx).Error().
			Err(err).
			Str("device_id", id.String()).
			Int("attempts", attempt).
			Msg("failed to invalidate cached device, readers may see it until it expires")
	}
}
