package repos

import (
	"context"
	"errors"

	"github.com/architeacher/device-inventory/internal/config"
	"github.com/architeacher/device-inventory/internal/domain/model"
	"github.com/architeacher/device-inventory/internal/ports"
	"github.com/architeacher/device-inventory/pkg/circuitbreaker"
	"github.com/architeacher/device-inventory/pkg/logger"
)

const storageBreakerName = "storage"

// CircuitBreakingRepository stops calling the store after repeated infrastructure
// failures. Domain outcomes such as a missing device never trip it.
type CircuitBreakingRepository struct {
	next    ports.DeviceRepository
	breaker *circuitbreaker.CircuitBreaker[any]
}

func NewCircuitBreakingRepository(
	next ports.DeviceRepository,
	cfg config.CircuitBreaker,
	log logger.Logger,
) *CircuitBreakingRepository {
	return &CircuitBreakingRepository{
		next: next,
		breaker: circuitbreaker.New[any](circuitbreaker.Config{
			Name:             storageBreakerName,
			Enabled:          cfg.Enabled,
			MaxRequests:      cfg.MaxRequests,
			Interval:         cfg.Interval,
			Timeout:          cfg.Timeout,
			FailureThreshold: cfg.FailureThreshold,
			IsSuccessful:     isStorageSuccess,
			OnStateChange: func(name string, from, to circuitbreaker.State) {
				log.Warn().
					Str("breaker", name).
					Str("from", string(from)).
					Str("to", string(to)).
					Msg("circuit breaker state changed")
			},
		}),
	}
}

// State exposes the breaker position for health reporting.
func (r *CircuitBreakingRepository) State() circuitbreaker.State {
	return r.breaker.State()
}

func (r *CircuitBreakingRepository) FetchByID(ctx context.Context, id model.DeviceID) (*model.Device, error) {
	return guarded(r, func() (*model.Device, error) {
		return r.next.FetchByID(ctx, id)
	})
}

func (r *CircuitBreakingRepository) Create(ctx context.Context, device *model.Device) error {
	_, err := guarded(r, func() (any, error) {
		return nil, r.next.Create(ctx, device)
	})

	return err
}

func (r *CircuitBreakingRepository) Update(ctx context.Context, device *model.Device) error {
	_, err := guarded(r, func() (any, error) {
		return nil, r.next.Update(ctx, device)
	})

	return err
}

func (r *CircuitBreakingRepository) Delete(ctx context.Context, id model.DeviceID) error {
	_, err := guarded(r, func() (any, error) {
		return nil, r.next.Delete(ctx, id)
	})

	return err
}

func (r *CircuitBreakingRepository) List(ctx context.Context, filter model.DeviceFilter) ([]*model.Device, error) {
	return guarded(r, func() ([]*model.Device, error) {
		return r.next.List(ctx, filter)
	})
}

// WithinTransaction counts the whole unit of work as one call; the repository
// handed to fn talks to the store directly.
func (r *CircuitBreakingRepository) WithinTransaction(
	ctx context.Context,
	fn func(ctx context.Context, tx ports.DeviceRepository) error,
) error {
	_, err := guarded(r, func() (any, error) {
		return nil, r.next.WithinTransaction(ctx, fn)
	})

	return err
}

// Ping bypasses the breaker so health checks see the store itself.
func (r *CircuitBreakingRepository) Ping(ctx context.Context) error {
	return r.next.Ping(ctx)
}

func guarded[T any](r *CircuitBreakingRepository, fn func() (T, error)) (T, error) {
	result, err := circuitbreaker.Execute(r.breaker, func() (any, error) {
		return fn()
	})

	typed, _ := result.(T)

	return typed, err
}

func isStorageSuccess(err error) bool {
	if err == nil {
		return true
	}

	var validationErrs *model.ValidationErrors

	return errors.Is(err, model.ErrDeviceNotFound) ||
		errors.Is(err, model.ErrIllegalDeviceState) ||
		errors.Is(err, model.ErrDuplicateDevice) ||
		errors.Is(err, model.ErrUnknownField) ||
		errors.Is(err, context.Canceled) ||
		errors.As(err, &validationErrs)
}
