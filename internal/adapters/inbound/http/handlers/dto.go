package handlers

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/architeacher/device-inventory/internal/domain/model"
)

var jsonNull = []byte("null")

type (
	// DeviceDTO is the wire form of a device.
	DeviceDTO struct {
		ID           string    `json:"id"`
		Name         string    `json:"name"`
		Brand        string    `json:"brand"`
		State        string    `json:"state"`
		CreationTime time.Time `json:"creationTime"`
	}

	DevicesDTO struct {
		Devices []DeviceDTO `json:"devices"`
	}

	// deviceRequest is the inbound payload of create, update and patch. A client
	// supplied id or creationTime is not decoded at all.
	deviceRequest struct {
		Name  optionalField[string] `json:"name"`
		Brand optionalField[string] `json:"brand"`
		State optionalField[string] `json:"state"`
	}

	// optionalField records whether a JSON member was present and whether it was null.
	// Members missing from the document never reach UnmarshalJSON and stay absent.
	optionalField[T any] struct {
		model.Optional[T]
	}
)

func (f *optionalField[T]) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), jsonNull) {
		f.Optional = model.Null[T]()

		return nil
	}

	var value T
	if err := json.Unmarshal(data, &value); err != nil {
		return err
	}

	f.Optional = model.Of(value)

	return nil
}

func toDeviceDTO(device *model.Device) DeviceDTO {
	return DeviceDTO{
		ID:           device.ID.String(),
		Name:         device.Name,
		Brand:        device.Brand,
		State:        device.State.String(),
		CreationTime: device.CreationTime.UTC(),
	}
}

func toDevicesDTO(devices []*model.Device) DevicesDTO {
	out := DevicesDTO{Devices: make([]DeviceDTO, 0, len(devices))}

	for _, device := range devices {
		out.Devices = append(out.Devices, toDeviceDTO(device))
	}

	return out
}

// requireComplete checks the members a create or a full update cannot do without.
func (r deviceRequest) requireComplete() error {
	errs := model.NewValidationErrors()

	if name, ok := r.Name.Get(); !ok || name == "" {
		errs.Add("name", model.MessageNameRequired)
	}

	if brand, ok := r.Brand.Get(); !ok || brand == "" {
		errs.Add("brand", model.MessageBrandRequired)
	}

	if state, ok := r.State.Get(); !ok || state == "" {
		errs.Add("state", model.MessageStateRequired)
	}

	return errs.ErrOrNil()
}

// toChanges converts the payload into domain changes, rejecting unknown states and
// blank names or brands that were explicitly supplied.
func (r deviceRequest) toChanges() (model.DeviceChanges, error) {
	errs := model.NewValidationErrors()

	changes := model.DeviceChanges{
		Name:  r.Name.Optional,
		Brand: r.Brand.Optional,
	}

	if name, ok := r.Name.Get(); ok && name == "" {
		errs.Add("name", model.MessageNameRequired)
	}

	if brand, ok := r.Brand.Get(); ok && brand == "" {
		errs.Add("brand", model.MessageBrandRequired)
	}

	switch {
	case r.State.IsNull():
		changes.State = model.Null[model.State]()
	case r.State.HasValue():
		raw, _ := r.State.Get()

		state, err := model.ParseCanonicalState(raw)
		if err != nil {
			errs.Add("state", model.MessageStateInvalid)

			break
		}

		changes.State = model.Of(state)
	}

	if err := errs.ErrOrNil(); err != nil {
		return model.DeviceChanges{}, err
	}

	return changes, nil
}

func (r deviceRequest) toDraft() (model.DeviceDraft, error) {
	if err := r.requireComplete(); err != nil {
		return model.DeviceDraft{}, err
	}

	changes, err := r.toChanges()
	if err != nil {
		return model.DeviceDraft{}, err
	}

	name, _ := changes.Name.Get()
	brand, _ := changes.Brand.Get()
	state, _ := changes.State.Get()

	return model.DeviceDraft{Name: name, Brand: brand, State: state}, nil
}
