package handlers

import (
	"net/http"
	"strings"

	"github.com/architeacher/device-inventory/internal/domain/model"
	"github.com/architeacher/device-inventory/internal/usecases"
	"github.com/architeacher/device-inventory/internal/usecases/commands"
	"github.com/architeacher/device-inventory/internal/usecases/queries"
	"github.com/architeacher/device-inventory/pkg/decorator"
	"github.com/architeacher/device-inventory/pkg/logger"
	"github.com/go-chi/chi/v5"
)

const (
	DevicesPath     = "/devices"
	deviceIDParam   = "id"
	brandQueryParam = "brand"
	stateQueryParam = "state"

	CacheStatusHeader = "X-Cache"
)

type DeviceHandler struct {
	app    *usecases.Application
	logger logger.Logger
}

func NewDeviceHandler(app *usecases.Application, log logger.Logger) *DeviceHandler {
	return &DeviceHandler{
		app:    app,
		logger: log,
	}
}

// Routes mounts the device resource on r.
func (h *DeviceHandler) Routes(r chi.Router) {
	r.Get("/", h.ListDevices)
	r.Post("/", h.CreateDevice)
	r.Get("/{"+deviceIDParam+"}", h.GetDevice)
	r.Put("/{"+deviceIDParam+"}", h.UpdateDevice)
	r.Patch("/{"+deviceIDParam+"}", h.PatchDevice)
	r.Delete("/{"+deviceIDParam+"}", h.DeleteDevice)
}

func (h *DeviceHandler) CreateDevice(w http.ResponseWriter, r *http.Request) {
	req, err := decodeDeviceRequest(w, r)
	if err != nil {
		writeError(r.Context(), w, h.logger, err)

		return
	}

	draft, err := req.toDraft()
	if err != nil {
		writeError(r.Context(), w, h.logger, err)

		return
	}

	device, err := h.app.Commands.CreateDevice.Handle(r.Context(), commands.CreateDeviceCommand{
		Name:  draft.Name,
		Brand: draft.Brand,
		State: draft.State,
	})
	if err != nil {
		writeError(r.Context(), w, h.logger, err)

		return
	}

	w.Header().Set("Location", DevicesPath+"/"+device.ID.String())
	writeJSONResponse(w, http.StatusCreated, toDeviceDTO(device))
}

func (h *DeviceHandler) GetDevice(w http.ResponseWriter, r *http.Request) {
	id, err := model.ParseDeviceID(chi.URLParam(r, deviceIDParam))
	if err != nil {
		writeError(r.Context(), w, h.logger, err)

		return
	}

	ctx := decorator.TrackCacheStatus(r.Context())

	device, err := h.app.Queries.GetDevice.Execute(ctx, queries.GetDeviceQuery{ID: id})
	if err != nil {
		writeError(ctx, w, h.logger, err)

		return
	}

	w.Header().Set(CacheStatusHeader, string(decorator.GetCacheStatus(ctx)))
	writeJSONResponse(w, http.StatusOK, toDeviceDTO(device))
}

// ListDevices returns every device, narrowed by the optional brand and state
// query parameters. Brand matches exactly, state is case-insensitive.
func (h *DeviceHandler) ListDevices(w http.ResponseWriter, r *http.Request) {
	var filter model.DeviceFilter

	query := r.URL.Query()

	if brand := query.Get(brandQueryParam); brand != "" {
		filter.Brand = &brand
	}

	if raw := strings.TrimSpace(query.Get(stateQueryParam)); raw != "" {
		state, err := model.ParseState(raw)
		if err != nil {
			writeError(r.Context(), w, h.logger, err)

			return
		}

		filter.State = &state
	}

	devices, err := h.app.Queries.ListDevices.Execute(r.Context(), queries.ListDevicesQuery{Filter: filter})
	if err != nil {
		writeError(r.Context(), w, h.logger, err)

		return
	}

	writeJSONResponse(w, http.StatusOK, toDevicesDTO(devices))
}

// UpdateDevice replaces name, brand and state at once.
func (h *DeviceHandler) UpdateDevice(w http.ResponseWriter, r *http.Request) {
	id, err := model.ParseDeviceID(chi.URLParam(r, deviceIDParam))
	if err != nil {
		writeError(r.Context(), w, h.logger, err)

		return
	}

	req, err := decodeDeviceRequest(w, r)
	if err != nil {
		writeError(r.Context(), w, h.logger, err)

		return
	}

	if err := req.requireComplete(); err != nil {
		writeError(r.Context(), w, h.logger, err)

		return
	}

	changes, err := req.toChanges()
	if err != nil {
		writeError(r.Context(), w, h.logger, err)

		return
	}

	device, err := h.app.Commands.UpdateDevice.Handle(r.Context(), commands.UpdateDeviceCommand{
		ID:      id,
		Changes: changes,
	})
	if err != nil {
		writeError(r.Context(), w, h.logger, err)

		return
	}

	writeJSONResponse(w, http.StatusOK, toDeviceDTO(device))
}

// PatchDevice applies only the members present in the body.
func (h *DeviceHandler) PatchDevice(w http.ResponseWriter, r *http.Request) {
	id, err := model.ParseDeviceID(chi.URLParam(r, deviceIDParam))
	if err != nil {
		writeError(r.Context(), w, h.logger, err)

		return
	}

	req, err := decodeDeviceRequest(w, r)
	if err != nil {
		writeError(r.Context(), w, h.logger, err)

		return
	}

	changes, err := req.toChanges()
	if err != nil {
		writeError(r.Context(), w, h.logger, err)

		return
	}

	device, err := h.app.Commands.PatchDevice.Handle(r.Context(), commands.PatchDeviceCommand{
		ID:      id,
		Changes: changes,
	})
	if err != nil {
		writeError(r.Context(), w, h.logger, err)

		return
	}

	writeJSONResponse(w, http.StatusOK, toDeviceDTO(device))
}

func (h *DeviceHandler) DeleteDevice(w http.ResponseWriter, r *http.Request) {
	id, err := model.ParseDeviceID(chi.URLParam(r, deviceIDParam))
	if err != nil {
		writeError(r.Context(), w, h.logger, err)

		return
	}

	if _, err := h.app.Commands.DeleteDevice.Handle(r.Context(), commands.DeleteDeviceCommand{ID: id}); err != nil {
		writeError(r.Context(), w, h.logger, err)

		return
	}

	w.WriteHeader(http.StatusNoContent)
}
