package repos

import (
	"context"
	"maps"

	"github.com/architeacher/device-inventory/internal/domain/model"
	"github.com/architeacher/device-inventory/internal/ports"
)

type (
	// MemoryDevicesRepository keeps devices in process. A transaction holds the
	// store lock for its whole duration and restores the previous contents on error.
	MemoryDevicesRepository struct {
		store *memoryStore
		inTx  bool
	}

	memoryStore struct {
		mu      chanMutex
		devices map[model.DeviceID]model.Device
	}

	// chanMutex is a mutex whose acquisition can be abandoned when a context ends.
	chanMutex chan struct{}
)

func NewMemoryDevicesRepository() *MemoryDevicesRepository {
	return &MemoryDevicesRepository{
		store: &memoryStore{
			mu:      make(chanMutex, 1),
			devices: make(map[model.DeviceID]model.Device),
		},
	}
}

func (r *MemoryDevicesRepository) Create(ctx context.Context, device *model.Device) error {
	return r.locked(ctx, func() error {
		if _, ok := r.store.devices[device.ID]; ok {
			return model.ErrDuplicateDevice
		}

		r.store.devices[device.ID] = *device

		return nil
	})
}

func (r *MemoryDevicesRepository) FetchByID(ctx context.Context, id model.DeviceID) (*model.Device, error) {
	var found model.Device

	err := r.locked(ctx, func() error {
		device, ok := r.store.devices[id]
		if !ok {
			return model.ErrDeviceNotFound
		}

		found = device

		return nil
	})
	if err != nil {
		return nil, err
	}

	return &found, nil
}

func (r *MemoryDevicesRepository) List(ctx context.Context, filter model.DeviceFilter) ([]*model.Device, error) {
	criteria := model.FromDeviceFilter(filter)
	matched := make([]model.Device, 0)

	err := r.locked(ctx, func() error {
		for _, device := range r.store.devices {
			if model.Matches(criteria.Spec(), device) {
				matched = append(matched, device)
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	model.SortDevices(matched, criteria.Sorting())

	devices := make([]*model.Device, 0, len(matched))
	for index := range matched {
		devices = append(devices, &matched[index])
	}

	return devices, nil
}

// Update overwrites the client owned fields and keeps the stored creation time.
func (r *MemoryDevicesRepository) Update(ctx context.Context, device *model.Device) error {
	return r.locked(ctx, func() error {
		stored, ok := r.store.devices[device.ID]
		if !ok {
			return model.ErrDeviceNotFound
		}

		stored.Name = device.Name
		stored.Brand = device.Brand
		stored.State = device.State
		r.store.devices[device.ID] = stored

		return nil
	})
}

func (r *MemoryDevicesRepository) Delete(ctx context.Context, id model.DeviceID) error {
	return r.locked(ctx, func() error {
		if _, ok := r.store.devices[id]; !ok {
			return model.ErrDeviceNotFound
		}

		delete(r.store.devices, id)

		return nil
	})
}

func (r *MemoryDevicesRepository) WithinTransaction(
	ctx context.Context,
	fn func(ctx context.Context, tx ports.DeviceRepository) error,
) error {
	if r.inTx {
		return fn(ctx, r)
	}

	if err := r.store.mu.lock(ctx); err != nil {
		return err
	}
	defer r.store.mu.unlock()

	snapshot := maps.Clone(r.store.devices)
	committed := false

	defer func() {
		if !committed {
			r.store.devices = snapshot
		}
	}()

	if err := fn(ctx, &MemoryDevicesRepository{store: r.store, inTx: true}); err != nil {
		return err
	}

	committed = true

	return nil
}

func (r *MemoryDevicesRepository) Ping(context.Context) error {
	return nil
}

func (r *MemoryDevicesRepository) locked(ctx context.Context, fn func() error) error {
	if r.inTx {
		return fn()
	}

	if err := r.store.mu.lock(ctx); err != nil {
		return err
	}
	defer r.store.mu.unlock()

	return fn()
}

func (m chanMutex) lock(ctx context.Context) error {
	select {
	case m <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m chanMutex) unlock() {
	<-m
}
