package repos

import (
	"fmt"
	"time"

	"github.com/architeacher/device-inventory/internal/domain/model"
)

const devicesTable = "devices"

var deviceColumns = []string{"id", "name", "brand", "state", "creation_time"}

type deviceRow struct {
	ID           string    `db:"id"`
	Name         string    `db:"name"`
	Brand        string    `db:"brand"`
	State        string    `db:"state"`
	CreationTime time.Time `db:"creation_time"`
}

func convertRowToDevice(row deviceRow) (*model.Device, error) {
	id, err := model.ParseDeviceID(row.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to parse device ID: %w", err)
	}

	state, err := model.ParseState(row.State)
	if err != nil {
		return nil, fmt.Errorf("failed to parse device state: %w", err)
	}

	return &model.Device{
		ID:           id,
		Name:         row.Name,
		Brand:        row.Brand,
		State:        state,
		CreationTime: row.CreationTime.UTC(),
	}, nil
}

func convertRowsToDevices(rows []deviceRow) ([]*model.Device, error) {
	devices := make([]*model.Device, 0, len(rows))

	for index := range rows {
		device, err := convertRowToDevice(rows[index])
		if err != nil {
			return nil, fmt.Errorf("%w: %v", model.ErrDatabaseQuery, err)
		}

		devices = append(devices, device)
	}

	return devices, nil
}
