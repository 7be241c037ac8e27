package ports

import (
	"context"

	"github.com/architeacher/device-inventory/internal/domain/model"
)

type (
	// DeviceRepository persists device records. Implementations wrap driver failures
	// around model.ErrDatabaseQuery and report missing rows as model.ErrDeviceNotFound.
	DeviceRepository interface {
		FetchByID(ctx context.Context, id model.DeviceID) (*model.Device, error)
		Create(ctx context.Context, device *model.Device) error
		Update(ctx context.Context, device *model.Device) error
		Delete(ctx context.Context, id model.DeviceID) error
		List(ctx context.Context, filter model.DeviceFilter) ([]*model.Device, error)

		// WithinTransaction runs fn atomically. Records fetched through the repository
		// handed to fn stay locked against concurrent writers until fn returns; any
		// error returned by fn rolls the unit of work back.
		WithinTransaction(ctx context.Context, fn func(ctx context.Context, tx DeviceRepository) error) error

		DatabaseHealthChecker
	}

	// IdentityAssigner turns a draft into a record with a fresh id and creation time.
	IdentityAssigner interface {
		Assign(draft model.DeviceDraft) *model.Device
	}
)
