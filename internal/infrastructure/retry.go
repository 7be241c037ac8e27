package infrastructure

import (
	"context"

	"github.com/architeacher/device-inventory/internal/config"
	"github.com/architeacher/device-inventory/pkg/logger"
	"github.com/cenkalti/backoff/v5"
)

// RetryConnect keeps calling connect with exponential backoff until it succeeds,
// the attempts run out or ctx ends.
func RetryConnect[T any](
	ctx context.Context,
	cfg config.Backoff,
	attempts uint,
	log logger.Logger,
	target string,
	connect func(ctx context.Context) (T, error),
) (T, error) {
	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = cfg.BaseDelay
	expBackoff.Multiplier = cfg.Multiplier
	expBackoff.RandomizationFactor = cfg.Jitter
	expBackoff.MaxInterval = cfg.MaxDelay

	attempt := 0

	return backoff.Retry(ctx, func() (T, error) {
		attempt++

		result, err := connect(ctx)
		if err != nil {
			log.Warn().Err(err).Str("target", target).Int("attempt", attempt).Msg("connection attempt failed")

			return result, err
		}

		return result, nil
	},
		backoff.WithBackOff(expBackoff),
		backoff.WithMaxTries(max(attempts, 1)),
	)
}
