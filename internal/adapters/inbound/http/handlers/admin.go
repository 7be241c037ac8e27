package handlers

import (
	"net/http"

	"github.com/architeacher/device-inventory/internal/domain/model"
	"github.com/architeacher/device-inventory/internal/ports"
	"github.com/architeacher/device-inventory/pkg/logger"
	"github.com/go-chi/chi/v5"
)

const (
	AdminCachePath = "/cache/devices"

	MessageCacheDisabled = "Device cache is disabled"
)

// AdminHandler serves maintenance endpoints that never reach the public port.
type AdminHandler struct {
	cache  ports.DevicesCache
	logger logger.Logger
}

func NewAdminHandler(cache ports.DevicesCache, log logger.Logger) *AdminHandler {
	return &AdminHandler{
		cache:  cache,
		logger: log,
	}
}

func (h *AdminHandler) Routes(r chi.Router) {
	r.Delete("/{"+deviceIDParam+"}", h.InvalidateDevice)
}

// InvalidateDevice drops the cached copy of one device. Unknown ids succeed.
func (h *AdminHandler) InvalidateDevice(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		WriteErrorResponse(w, http.StatusServiceUnavailable, MessageCacheDisabled)

		return
	}

	id, err := model.ParseDeviceID(chi.URLParam(r, deviceIDParam))
	if err != nil {
		writeError(r.Context(), w, h.logger, err)

		return
	}

	if err := h.cache.InvalidateDevice(r.Context(), id); err != nil {
		writeError(r.Context(), w, h.logger, err)

		return
	}

	h.logger.WithContext(r.Context()).Info().Str("device_id", id.String()).Msg("device cache entry purged")

	w.WriteHeader(http.StatusNoContent)
}
