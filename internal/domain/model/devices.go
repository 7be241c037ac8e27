package model

import (
	"time"

	"github.com/google/uuid"
)

type DeviceID struct {
	uuid.UUID
}

func NewDeviceID() DeviceID {
	return DeviceID{UUID: uuid.Must(uuid.NewV7())}
}

func ParseDeviceID(s string) (DeviceID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return DeviceID{}, ErrInvalidDeviceID
	}

	return DeviceID{UUID: id}, nil
}

func (d DeviceID) String() string {
	return d.UUID.String()
}

func (d DeviceID) IsZero() bool {
	return d.UUID == uuid.Nil
}

// Device is a stored inventory record. ID and CreationTime are assigned once on
// creation and never change afterwards.
type Device struct {
	ID           DeviceID
	Name         string
	Brand        string
	State        State
	CreationTime time.Time
}

// DeviceDraft carries the client owned fields of a device about to be created.
type DeviceDraft struct {
	Name  string
	Brand string
	State State
}

// DeviceChanges carries a client's intended modifications. Absent and null fields
// leave the stored value untouched when applied partially.
type DeviceChanges struct {
	Name  Optional[string]
	Brand Optional[string]
	State Optional[State]
}

// Replace overwrites every client owned field. Fields without a value keep their
// current content, which only happens for name or brand since the state is checked
// beforehand.
func (d Device) Replace(changes DeviceChanges) Device {
	d.Name = changes.Name.OrElse(d.Name)
	d.Brand = changes.Brand.OrElse(d.Brand)
	d.State = changes.State.OrElse(d.State)

	return d
}

// Apply overwrites only the fields carrying a value.
func (d Device) Apply(changes DeviceChanges) Device {
	if name, ok := changes.Name.Get(); ok {
		d.Name = name
	}

	if brand, ok := changes.Brand.Get(); ok {
		d.Brand = brand
	}

	if state, ok := changes.State.Get(); ok {
		d.State = state
	}

	return d
}

// DeviceFilter narrows a listing by exact brand and state. Nil fields do not filter.
type DeviceFilter struct {
	Brand *string
	State *State
}
