package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/architeacher/device-inventory/internal/domain/model"
	"github.com/architeacher/device-inventory/pkg/circuitbreaker"
	"github.com/architeacher/device-inventory/pkg/logger"
)

const (
	MessageMalformedBody      = "Malformed request body"
	MessageInvalidDeviceID    = "Device id must be a valid UUID"
	MessageServiceUnavailable = "Service temporarily unavailable"
)

var errMalformedBody = errors.New("malformed request body")

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Status        int       `json:"status"`
	StatusMessage string    `json:"statusMessage"`
	Errors        []string  `json:"errors"`
	TimeStamp     time.Time `json:"timeStamp"`
}

// ClassifyError maps a failure to the response status and the messages shown to
// the client. Anything unrecognised is an internal error with a generic message.
func ClassifyError(err error) (int, []string) {
	var (
		illegalState   *model.IllegalStateError
		validationErrs *model.ValidationErrors
	)

	switch {
	case errors.Is(err, model.ErrDeviceNotFound):
		return http.StatusNotFound, []string{model.MessageDeviceNotFound}
	case errors.As(err, &illegalState):
		return http.StatusBadRequest, []string{illegalState.Reason}
	case errors.As(err, &validationErrs):
		messages := make([]string, 0, len(validationErrs.Errors))
		for _, e := range validationErrs.Errors {
			messages = append(messages, e.Message)
		}

		return http.StatusBadRequest, messages
	case errors.Is(err, model.ErrInvalidDeviceID):
		return http.StatusBadRequest, []string{MessageInvalidDeviceID}
	case errors.Is(err, model.ErrInvalidState):
		return http.StatusBadRequest, []string{model.MessageStateInvalid}
	case errors.Is(err, errMalformedBody):
		return http.StatusBadRequest, []string{MessageMalformedBody}
	case errors.Is(err, circuitbreaker.ErrCircuitOpen), errors.Is(err, circuitbreaker.ErrTooManyRequests):
		return http.StatusServiceUnavailable, []string{MessageServiceUnavailable}
	default:
		return http.StatusInternalServerError, []string{model.MessageInternalServerError}
	}
}

func NewErrorResponse(status int, messages []string) ErrorResponse {
	return ErrorResponse{
		Status:        status,
		StatusMessage: http.StatusText(status),
		Errors:        messages,
		TimeStamp:     time.Now().UTC(),
	}
}

// writeError renders err once. Internal causes are logged and never echoed.
func writeError(ctx context.Context, w http.ResponseWriter, log logger.Logger, err error) {
	status, messages := ClassifyError(err)

	if status >= http.StatusInternalServerError {
		log.WithContext(ctx).Error().Err(err).Int("status", status).Msg("request failed")
	}

	WriteErrorResponse(w, status, messages...)
}

// WriteErrorResponse renders the error body for failures detected before a
// handler runs, such as rate limiting or a recovered panic.
func WriteErrorResponse(w http.ResponseWriter, status int, messages ...string) {
	writeJSONResponse(w, status, NewErrorResponse(status, messages))
}
