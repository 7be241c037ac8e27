package ports

import (
	"context"

	"github.com/architeacher/device-inventory/internal/domain/model"
)

// DevicesService is the device inventory use case boundary.
type DevicesService interface {
	CreateDevice(ctx context.Context, draft model.DeviceDraft) (*model.Device, error)
	GetDevice(ctx context.Context, id model.DeviceID) (*model.Device, error)
	ListDevices(ctx context.Context, filter model.DeviceFilter) ([]*model.Device, error)
	UpdateDevice(ctx context.Context, id model.DeviceID, changes model.DeviceChanges) (*model.Device, error)
	PatchDevice(ctx context.Context, id model.DeviceID, changes model.DeviceChanges) (*model.Device, error)
	DeleteDevice(ctx context.Context, id model.DeviceID) error
}
