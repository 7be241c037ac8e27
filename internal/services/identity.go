package services

import (
	"time"

	"github.com/architeacher/device-inventory/internal/domain/model"
)

// creationTimePrecision is the finest resolution every storage driver keeps; Postgres
// TIMESTAMPTZ stops at microseconds.
const creationTimePrecision = time.Microsecond

// IdentityAssigner stamps new records with a time ordered id and the creation time.
type IdentityAssigner struct {
	now   func() time.Time
	newID func() model.DeviceID
}

func NewIdentityAssigner() *IdentityAssigner {
	return &IdentityAssigner{
		now:   time.Now,
		newID: model.NewDeviceID,
	}
}

// NewFixedIdentityAssigner is used where ids and timestamps must be predictable.
func NewFixedIdentityAssigner(now func() time.Time, newID func() model.DeviceID) *IdentityAssigner {
	return &IdentityAssigner{now: now, newID: newID}
}

func (a *IdentityAssigner) Assign(draft model.DeviceDraft) *model.Device {
	return &model.Device{
		ID:           a.newID(),
		Name:         draft.Name,
		Brand:        draft.Brand,
		State:        draft.State,
		CreationTime: a.now().UTC().Truncate(creationTimePrecision),
	}
}
