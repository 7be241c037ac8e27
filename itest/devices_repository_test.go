//go:build integration

package itest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/architeacher/device-inventory/internal/adapters/repos"
	"github.com/architeacher/device-inventory/internal/domain/model"
	"github.com/architeacher/device-inventory/internal/ports"
	"github.com/architeacher/device-inventory/internal/services"
	"github.com/architeacher/device-inventory/pkg/logger"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	postgresImage    = "postgres:18-alpine"
	postgresDatabase = "devices_test"
	postgresUsername = "test"
	postgresPassword = "test"
)

type DevicesRepositoryIntegrationTestSuite struct {
	suite.Suite
	suiteCtx    context.Context
	suiteCancel context.CancelFunc
	container   *postgres.PostgresContainer
	pool        *pgxpool.Pool
	repo        *repos.DevicesRepository
	service     *services.DevicesService
}

func TestDevicesRepositoryIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(DevicesRepositoryIntegrationTestSuite))
}

func (s *DevicesRepositoryIntegrationTestSuite) SetupSuite() {
	s.suiteCtx, s.suiteCancel = context.WithTimeout(context.Background(), 5*time.Minute)

	container, err := postgres.Run(s.suiteCtx,
		postgresImage,
		postgres.WithDatabase(postgresDatabase),
		postgres.WithUsername(postgresUsername),
		postgres.WithPassword(postgresPassword),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	s.Require().NoError(err)
	s.container = container

	connStr, err := container.ConnectionString(s.suiteCtx, "sslmode=disable")
	s.Require().NoError(err)

	pool, err := pgxpool.New(s.suiteCtx, connStr)
	s.Require().NoError(err)
	s.pool = pool

	s.repo = repos.NewDevicesRepository(s.pool, repos.NewPgxScanner(), repos.NewCriteriaTranslator(), logger.NewTestLogger())
	s.Require().NoError(s.repo.EnsureSchema(s.suiteCtx))
	// Schema creation is idempotent.
	s.Require().NoError(s.repo.EnsureSchema(s.suiteCtx))

	s.service = services.NewDevicesService(s.repo, services.NewIdentityAssigner())
}

func (s *DevicesRepositoryIntegrationTestSuite) TearDownSuite() {
	if s.pool != nil {
		s.pool.Close()
	}
	if s.container != nil {
		_ = s.container.Terminate(s.suiteCtx)
	}
	if s.suiteCancel != nil {
		s.suiteCancel()
	}
}

func (s *DevicesRepositoryIntegrationTestSuite) SetupTest() {
	_, err := s.pool.Exec(s.T().Context(), "TRUNCATE TABLE devices")
	s.Require().NoError(err)
}

func (s *DevicesRepositoryIntegrationTestSuite) newDevice(name, brand string, state model.State) *model.Device {
	return &model.Device{
		ID:           model.NewDeviceID(),
		Name:         name,
		Brand:        brand,
		State:        state,
		CreationTime: time.Now().UTC().Truncate(time.Microsecond),
	}
}

func (s *DevicesRepositoryIntegrationTestSuite) seed(devices ...*model.Device) {
	for _, device := range devices {
		s.Require().NoError(s.repo.Create(s.T().Context(), device))
	}
}

func (s *DevicesRepositoryIntegrationTestSuite) TestCreate_RoundTripsEveryField() {
	ctx := s.T().Context()

	for _, state := range model.AllStates() {
		device := s.newDevice("5530", "nokia", state)
		s.Require().NoError(s.repo.Create(ctx, device))

		stored, err := s.repo.FetchByID(ctx, device.ID)
		s.Require().NoError(err)
		s.Require().Equal(device.ID, stored.ID)
		s.Require().Equal(device.Name, stored.Name)
		s.Require().Equal(device.Brand, stored.Brand)
		s.Require().Equal(state, stored.State)
		s.Require().True(device.CreationTime.Equal(stored.CreationTime))
	}
}

func (s *DevicesRepositoryIntegrationTestSuite) TestCreate_DuplicateID() {
	ctx := s.T().Context()

	device := s.newDevice("original", "nokia", model.StateAvailable)
	s.seed(device)

	duplicate := *device
	duplicate.Name = "duplicate"

	err := s.repo.Create(ctx, &duplicate)
	s.Require().ErrorIs(err, model.ErrDuplicateDevice)
}

func (s *DevicesRepositoryIntegrationTestSuite) TestFetchByID_NotFound() {
	stored, err := s.repo.FetchByID(s.T().Context(), model.NewDeviceID())

	s.Require().ErrorIs(err, model.ErrDeviceNotFound)
	s.Require().Nil(stored)
}

func (s *DevicesRepositoryIntegrationTestSuite) TestList_Filters() {
	ctx := s.T().Context()

	s.seed(
		s.newDevice("iphone", "apple", model.StateAvailable),
		s.newDevice("macbook", "apple", model.StateInUse),
		s.newDevice("galaxy", "samsung", model.StateAvailable),
		s.newDevice("pixel", "Apple", model.StateMaintenance),
	)

	apple := "apple"
	available := model.StateAvailable

	cases := []struct {
		name     string
		filter   model.DeviceFilter
		expected int
	}{
		{name: "no filter", filter: model.DeviceFilter{}, expected: 4},
		{name: "brand is case sensitive", filter: model.DeviceFilter{Brand: &apple}, expected: 2},
		{name: "state", filter: model.DeviceFilter{State: &available}, expected: 2},
		{name: "brand and state", filter: model.DeviceFilter{Brand: &apple, State: &available}, expected: 1},
	}

	for _, tc := range cases {
		s.Run(tc.name, func() {
			devices, err := s.repo.List(ctx, tc.filter)
			s.Require().NoError(err)
			s.Require().Len(devices, tc.expected)

			for _, device := range devices {
				if tc.filter.Brand != nil {
					s.Require().Equal(*tc.filter.Brand, device.Brand)
				}
				if tc.filter.State != nil {
					s.Require().Equal(*tc.filter.State, device.State)
				}
			}
		})
	}
}

func (s *DevicesRepositoryIntegrationTestSuite) TestUpdateAndDelete() {
	ctx := s.T().Context()

	device := s.newDevice("5530", "nokia", model.StateAvailable)
	s.seed(device)

	device.Name = "3310"
	device.State = model.StateMaintenance
	s.Require().NoError(s.repo.Update(ctx, device))

	stored, err := s.repo.FetchByID(ctx, device.ID)
	s.Require().NoError(err)
	s.Require().Equal("3310", stored.Name)
	s.Require().Equal(model.StateMaintenance, stored.State)

	s.Require().NoError(s.repo.Delete(ctx, device.ID))
	s.Require().ErrorIs(s.repo.Delete(ctx, device.ID), model.ErrDeviceNotFound)
	s.Require().ErrorIs(s.repo.Update(ctx, device), model.ErrDeviceNotFound)
}

func (s *DevicesRepositoryIntegrationTestSuite) TestWithinTransaction_RollsBackOnError() {
	ctx := s.T().Context()

	device := s.newDevice("5530", "nokia", model.StateAvailable)
	s.seed(device)

	abort := errors.New("abort")

	err := s.repo.WithinTransaction(ctx, func(ctx context.Context, tx ports.DeviceRepository) error {
		locked, err := tx.FetchByID(ctx, device.ID)
		s.Require().NoError(err)

		locked.Name = "changed"
		s.Require().NoError(tx.Update(ctx, locked))

		return abort
	})
	s.Require().ErrorIs(err, abort)

	stored, err := s.repo.FetchByID(ctx, device.ID)
	s.Require().NoError(err)
	s.Require().Equal("5530", stored.Name)
}

func (s *DevicesRepositoryIntegrationTestSuite) TestService_LifecycleGuard() {
	ctx := s.T().Context()

	created, err := s.service.CreateDevice(ctx, model.DeviceDraft{Name: "5530", Brand: "nokia", State: model.StateInUse})
	s.Require().NoError(err)

	_, err = s.service.PatchDevice(ctx, created.ID, model.DeviceChanges{Name: model.Of("3310")})
	var illegal *model.IllegalStateError
	s.Require().ErrorAs(err, &illegal)

	s.Require().ErrorAs(s.service.DeleteDevice(ctx, created.ID), &illegal)

	released, err := s.service.PatchDevice(ctx, created.ID, model.DeviceChanges{State: model.Of(model.StateAvailable)})
	s.Require().NoError(err)
	s.Require().Equal(model.StateAvailable, released.State)
	s.Require().Equal("5530", released.Name)
	s.Require().True(created.CreationTime.Equal(released.CreationTime))

	s.Require().NoError(s.service.DeleteDevice(ctx, created.ID))

	_, err = s.service.GetDevice(ctx, created.ID)
	s.Require().ErrorIs(err, model.ErrDeviceNotFound)
}

func (s *DevicesRepositoryIntegrationTestSuite) TestService_CreationTimeSurvivesStorage() {
	ctx := s.T().Context()

	for range 5 {
		created, err := s.service.CreateDevice(ctx, model.DeviceDraft{Name: "5530", Brand: "nokia", State: model.StateAvailable})
		s.Require().NoError(err)

		stored, err := s.service.GetDevice(ctx, created.ID)
		s.Require().NoError(err)
		s.Require().Equal(created.CreationTime, stored.CreationTime)
		s.Require().Equal(created, stored)

		patched, err := s.service.PatchDevice(ctx, created.ID, model.DeviceChanges{Name: model.Of("3310")})
		s.Require().NoError(err)
		s.Require().Equal(created.CreationTime, patched.CreationTime)

		replaced, err := s.service.UpdateDevice(ctx, created.ID, model.DeviceChanges{
			Name:  model.Of("6310"),
			Brand: model.Of("nokia"),
			State: model.Of(model.StateMaintenance),
		})
		s.Require().NoError(err)
		s.Require().Equal(created.CreationTime, replaced.CreationTime)
	}
}

// Concurrent writers serialize on the row lock, so exactly one of a delete and a
// check out can win against an available device.
func (s *DevicesRepositoryIntegrationTestSuite) TestService_ConcurrentCheckOutAndDelete() {
	ctx := s.T().Context()

	for range 10 {
		created, err := s.service.CreateDevice(ctx, model.DeviceDraft{Name: "5530", Brand: "nokia", State: model.StateAvailable})
		s.Require().NoError(err)

		var (
			wg        sync.WaitGroup
			patchErr  error
			deleteErr error
		)

		wg.Add(2)
		go func() {
			defer wg.Done()
			_, patchErr = s.service.PatchDevice(ctx, created.ID, model.DeviceChanges{State: model.Of(model.StateInUse)})
		}()
		go func() {
			defer wg.Done()
			deleteErr = s.service.DeleteDevice(ctx, created.ID)
		}()
		wg.Wait()

		stored, fetchErr := s.service.GetDevice(ctx, created.ID)

		switch {
		case deleteErr == nil:
			s.Require().ErrorIs(fetchErr, model.ErrDeviceNotFound)
			s.Require().ErrorIs(patchErr, model.ErrDeviceNotFound)
		default:
			var illegal *model.IllegalStateError
			s.Require().ErrorAs(deleteErr, &illegal)
			s.Require().NoError(patchErr)
			s.Require().NoError(fetchErr)
			s.Require().Equal(model.StateInUse, stored.State)
		}
	}
}
