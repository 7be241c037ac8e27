package services

import (
	"context"

	"github.com/architeacher/device-inventory/internal/domain/model"
	"github.com/architeacher/device-inventory/internal/ports"
)

// DevicesService orchestrates device records around the lifecycle guard. Every
// read-check-write runs in one repository transaction.
type DevicesService struct {
	repo     ports.DeviceRepository
	identity ports.IdentityAssigner
}

func NewDevicesService(repo ports.DeviceRepository, identity ports.IdentityAssigner) *DevicesService {
	return &DevicesService{repo: repo, identity: identity}
}

func (s *DevicesService) CreateDevice(ctx context.Context, draft model.DeviceDraft) (*model.Device, error) {
	if err := validateDraft(draft); err != nil {
		return nil, err
	}

	device := s.identity.Assign(draft)

	if err := s.repo.Create(ctx, device); err != nil {
		return nil, err
	}

	return device, nil
}

func (s *DevicesService) GetDevice(ctx context.Context, id model.DeviceID) (*model.Device, error) {
	return s.repo.FetchByID(ctx, id)
}

func (s *DevicesService) ListDevices(ctx context.Context, filter model.DeviceFilter) ([]*model.Device, error) {
	if filter.State != nil && !filter.State.IsValid() {
		return nil, model.ErrInvalidState
	}

	return s.repo.List(ctx, filter)
}

// UpdateDevice replaces name, brand and state. The id and creation time are kept.
func (s *DevicesService) UpdateDevice(ctx context.Context, id model.DeviceID, changes model.DeviceChanges) (*model.Device, error) {
	return s.modify(ctx, id, func(current *model.Device) (model.Device, error) {
		verdict := model.CheckFullUpdate(current.State, changes.State, changes.Name, changes.Brand)
		if !verdict.Allowed() {
			return model.Device{}, verdict.Err()
		}

		return current.Replace(changes), nil
	})
}

// PatchDevice overwrites only the fields the client supplied a value for.
func (s *DevicesService) PatchDevice(ctx context.Context, id model.DeviceID, changes model.DeviceChanges) (*model.Device, error) {
	return s.modify(ctx, id, func(current *model.Device) (model.Device, error) {
		verdict := model.CheckPartialUpdate(current.State, changes.State)
		if !verdict.Allowed() {
			return model.Device{}, verdict.Err()
		}

		return current.Apply(changes), nil
	})
}

func (s *DevicesService) DeleteDevice(ctx context.Context, id model.DeviceID) error {
	return s.repo.WithinTransaction(ctx, func(ctx context.Context, tx ports.DeviceRepository) error {
		current, err := tx.FetchByID(ctx, id)
		if err != nil {
			return err
		}

		if err := model.CheckDelete(current.State).Err(); err != nil {
			return err
		}

		return tx.Delete(ctx, id)
	})
}

func (s *DevicesService) modify(
	ctx context.Context,
	id model.DeviceID,
	change func(current *model.Device) (model.Device, error),
) (*model.Device, error) {
	var updated model.Device

	err := s.repo.WithinTransaction(ctx, func(ctx context.Context, tx ports.DeviceRepository) error {
		current, err := tx.FetchByID(ctx, id)
		if err != nil {
			return err
		}

		next, err := change(current)
		if err != nil {
			return err
		}

		if err := validateRecord(next); err != nil {
			return err
		}

		if err := tx.Update(ctx, &next); err != nil {
			return err
		}

		updated = next

		return nil
	})
	if err != nil {
		return nil, err
	}

	return &updated, nil
}

func validateDraft(draft model.DeviceDraft) error {
	return validateRecord(model.Device{Name: draft.Name, Brand: draft.Brand, State: draft.State})
}

func validateRecord(device model.Device) error {
	errs := model.NewValidationErrors()

	if device.Name == "" {
		errs.Add("name", model.MessageNameRequired)
	}

	if device.Brand == "" {
		errs.Add("brand", model.MessageBrandRequired)
	}

	if !device.State.IsValid() {
		errs.Add("state", model.MessageStateInvalid)
	}

	return errs.ErrOrNil()
}
