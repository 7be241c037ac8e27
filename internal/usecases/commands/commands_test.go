package commands_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/architeacher/device-inventory/internal/domain/model"
	"github.com/architeacher/device-inventory/internal/usecases/commands"
	"github.com/architeacher/device-inventory/pkg/logger"
	"github.com/architeacher/device-inventory/pkg/metrics/noop"
	"github.com/stretchr/testify/require"
	otelNoop "go.opentelemetry.io/otel/trace/noop"
)

type mockDevicesService struct {
	createDeviceFn func(ctx context.Context, draft model.DeviceDraft) (*model.Device, error)
	updateDeviceFn func(ctx context.Context, id model.DeviceID, changes model.DeviceChanges) (*model.Device, error)
	patchDeviceFn  func(ctx context.Context, id model.DeviceID, changes model.DeviceChanges) (*model.Device, error)
	deleteDeviceFn func(ctx context.Context, id model.DeviceID) error
}

func (m *mockDevicesService) CreateDevice(ctx context.Context, draft model.DeviceDraft) (*model.Device, error) {
	if m.createDeviceFn != nil {
		return m.createDeviceFn(ctx, draft)
	}

	return &model.Device{
		ID:           model.NewDeviceID(),
		Name:         draft.Name,
		Brand:        draft.Brand,
		State:        draft.State,
		CreationTime: time.Now().UTC(),
	}, nil
}

func (m *mockDevicesService) GetDevice(context.Context, model.DeviceID) (*model.Device, error) {
	return nil, model.ErrDeviceNotFound
}

func (m *mockDevicesService) ListDevices(context.Context, model.DeviceFilter) ([]*model.Device, error) {
	return []*model.Device{}, nil
}

func (m *mockDevicesService) UpdateDevice(ctx context.Context, id model.DeviceID, changes model.DeviceChanges) (*model.Device, error) {
	if m.updateDeviceFn != nil {
		return m.updateDeviceFn(ctx, id, changes)
	}

	return nil, model.ErrDeviceNotFound
}

func (m *mockDevicesService) PatchDevice(ctx context.Context, id model.DeviceID, changes model.DeviceChanges) (*model.Device, error) {
	if m.patchDeviceFn != nil {
		return m.patchDeviceFn(ctx, id, changes)
	}

	return nil, model.ErrDeviceNotFound
}

func (m *mockDevicesService) DeleteDevice(ctx context.Context, id model.DeviceID) error {
	if m.deleteDeviceFn != nil {
		return m.deleteDeviceFn(ctx, id)
	}

	return model.ErrDeviceNotFound
}

type mockDevicesCache struct {
	invalidated []model.DeviceID
	err         error
	// failures makes that many first invalidations fail before err applies.
	failures int
}

func (m *mockDevicesCache) GetDevice(context.Context, model.DeviceID) (*model.Device, bool, error) {
	return nil, false, nil
}

func (m *mockDevicesCache) SetDevice(context.Context, *model.Device, time.Duration) error {
	return nil
}

func (m *mockDevicesCache) DeviceGeneration(context.Context, model.DeviceID) (int64, error) {
	return 0, nil
}

func (m *mockDevicesCache) SetDeviceIfGeneration(context.Context, *model.Device, int64, time.Duration) (bool, error) {
	return true, nil
}

func (m *mockDevicesCache) InvalidateDevice(_ context.Context, id model.DeviceID) error {
	m.invalidated = append(m.invalidated, id)

	if len(m.invalidated) <= m.failures {
		return errors.New("redis timeout")
	}

	return m.err
}

func TestCreateDeviceCommandHandler(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name        string
		cmd         commands.CreateDeviceCommand
		setupSvc    func(*mockDevicesService)
		expectedErr error
	}{
		{
			name: "creates the device from the command fields",
			cmd: commands.CreateDeviceCommand{
				Name:  "5530",
				Brand: "nokia",
				State: model.StateAvailable,
			},
		},
		{
			name: "propagates validation failures",
			cmd:  commands.CreateDeviceCommand{Brand: "nokia", State: model.StateAvailable},
			setupSvc: func(m *mockDevicesService) {
				m.createDeviceFn = func(context.Context, model.DeviceDraft) (*model.Device, error) {
					errs := model.NewValidationErrors()
					errs.Add("name", model.MessageNameRequired)

					return nil, errs
				}
			},
			expectedErr: &model.ValidationErrors{},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			svc := &mockDevicesService{}
			if tc.setupSvc != nil {
				tc.setupSvc(svc)
			}

			handler := commands.NewCreateDeviceCommandHandler(
				svc, logger.NewTestLogger(), noop.NewMetricsClient(), otelNoop.NewTracerProvider(),
			)

			device, err := handler.Handle(t.Context(), tc.cmd)

			if tc.expectedErr != nil {
				var validationErrs *model.ValidationErrors
				require.ErrorAs(t, err, &validationErrs)
				require.Nil(t, device)

				return
			}

			require.NoError(t, err)
			require.Equal(t, tc.cmd.Name, device.Name)
			require.Equal(t, tc.cmd.Brand, device.Brand)
			require.Equal(t, tc.cmd.State, device.State)
			require.False(t, device.ID.IsZero())
		})
	}
}

func TestUpdateDeviceCommandHandler(t *testing.T) {
	t.Parallel()

	id := model.NewDeviceID()
	changes := model.DeviceChanges{
		Name:  model.Of("5530"),
		Brand: model.Of("nokia"),
		State: model.Of(model.StateInUse),
	}

	t.Run("invalidates the cached device on success", func(t *testing.T) {
		t.Parallel()

		cache := &mockDevicesCache{}
		svc := &mockDevicesService{
			updateDeviceFn: func(_ context.Context, gotID model.DeviceID, got model.DeviceChanges) (*model.Device, error) {
				require.Equal(t, id, gotID)
				require.Equal(t, changes, got)

				return &model.Device{ID: id, Name: "5530", Brand: "nokia", State: model.StateInUse}, nil
			},
		}

		handler := commands.NewUpdateDeviceCommandHandler(
			svc, cache, logger.NewTestLogger(), noop.NewMetricsClient(), otelNoop.NewTracerProvider(),
		)

		device, err := handler.Handle(t.Context(), commands.UpdateDeviceCommand{ID: id, Changes: changes})
		require.NoError(t, err)
		require.Equal(t, model.StateInUse, device.State)
		require.Equal(t, []model.DeviceID{id}, cache.invalidated)
	})

	t.Run("keeps the cache on guard rejection", func(t *testing.T) {
		t.Parallel()

		cache := &mockDevicesCache{}
		svc := &mockDevicesService{
			updateDeviceFn: func(context.Context, model.DeviceID, model.DeviceChanges) (*model.Device, error) {
				return nil, model.ErrCannotUpdateInUseDevice
			},
		}

		handler := commands.NewUpdateDeviceCommandHandler(
			svc, cache, logger.NewTestLogger(), noop.NewMetricsClient(), otelNoop.NewTracerProvider(),
		)

		_, err := handler.Handle(t.Context(), commands.UpdateDeviceCommand{ID: id, Changes: changes})
		require.ErrorIs(t, err, model.ErrIllegalDeviceState)
		require.Empty(t, cache.invalidated)
	})

	t.Run("works without a cache", func(t *testing.T) {
		t.Parallel()

		svc := &mockDevicesService{
			updateDeviceFn: func(context.Context, model.DeviceID, model.DeviceChanges) (*model.Device, error) {
				return &model.Device{ID: id}, nil
			},
		}

		handler := commands.NewUpdateDeviceCommandHandler(
			svc, nil, logger.NewTestLogger(), noop.NewMetricsClient(), otelNoop.NewTracerProvider(),
		)

		_, err := handler.Handle(t.Context(), commands.UpdateDeviceCommand{ID: id, Changes: changes})
		require.NoError(t, err)
	})
}

func TestPatchDeviceCommandHandler(t *testing.T) {
	t.Parallel()

	id := model.NewDeviceID()

	cases := []struct {
		name                string
		patchErr            error
		cacheErr            error
		cacheFailures       int
		expectedErr         error
		expectInvalidations int
	}{
		{
			name:                "patch succeeds and cache is invalidated",
			expectInvalidations: 1,
		},
		{
			name:                "transient cache failure is retried",
			cacheFailures:       1,
			expectInvalidations: 2,
		},
		{
			name:                "cache failure does not fail the patch after retries",
			cacheErr:            errors.New("redis down"),
			expectInvalidations: 3,
		},
		{
			name:        "missing device",
			patchErr:    model.ErrDeviceNotFound,
			expectedErr: model.ErrDeviceNotFound,
		},
		{
			name:        "in use device without state change",
			patchErr:    model.ErrCannotUpdateInUseDevice,
			expectedErr: model.ErrIllegalDeviceState,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			cache := &mockDevicesCache{err: tc.cacheErr, failures: tc.cacheFailures}
			svc := &mockDevicesService{
				patchDeviceFn: func(context.Context, model.DeviceID, model.DeviceChanges) (*model.Device, error) {
					if tc.patchErr != nil {
						return nil, tc.patchErr
					}

					return &model.Device{ID: id, Name: "renamed"}, nil
				},
			}

			handler := commands.NewPatchDeviceCommandHandler(
				svc, cache, logger.NewTestLogger(), noop.NewMetricsClient(), otelNoop.NewTracerProvider(),
			)

			device, err := handler.Handle(t.Context(), commands.PatchDeviceCommand{
				ID:      id,
				Changes: model.DeviceChanges{Name: model.Of("renamed")},
			})

			if tc.expectedErr != nil {
				require.ErrorIs(t, err, tc.expectedErr)
				require.Nil(t, device)
			} else {
				require.NoError(t, err)
				require.Equal(t, "renamed", device.Name)
			}

			require.Len(t, cache.invalidated, tc.expectInvalidations)
		})
	}
}

func TestDeleteDeviceCommandHandler(t *testing.T) {
	t.Parallel()

	id := model.NewDeviceID()

	cases := []struct {
		name        string
		deleteErr   error
		expectedErr error
	}{
		{name: "deletes the device"},
		{name: "device in use", deleteErr: model.ErrCannotDeleteInUseDevice, expectedErr: model.ErrIllegalDeviceState},
		{name: "device not found", deleteErr: model.ErrDeviceNotFound, expectedErr: model.ErrDeviceNotFound},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			cache := &mockDevicesCache{}
			svc := &mockDevicesService{
				deleteDeviceFn: func(_ context.Context, gotID model.DeviceID) error {
					require.Equal(t, id, gotID)

					return tc.deleteErr
				},
			}

			handler := commands.NewDeleteDeviceCommandHandler(
				svc, cache, logger.NewTestLogger(), noop.NewMetricsClient(), otelNoop.NewTracerProvider(),
			)

			_, err := handler.Handle(t.Context(), commands.DeleteDeviceCommand{ID: id})

			if tc.expectedErr != nil {
				require.ErrorIs(t, err, tc.expectedErr)
				require.Empty(t, cache.invalidated)

				return
			}

			require.NoError(t, err)
			require.Equal(t, []model.DeviceID{id}, cache.invalidated)
		})
	}
}
