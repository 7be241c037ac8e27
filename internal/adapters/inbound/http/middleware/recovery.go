package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/architeacher/device-inventory/internal/adapters/inbound/http/handlers"
	"github.com/architeacher/device-inventory/internal/domain/model"
	"github.com/architeacher/device-inventory/pkg/logger"
)

// Recovery turns a panic into the standard internal error body. Aborted handlers
// are re-panicked so the server drops the connection.
func Recovery(log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			recorder := NewResponseRecorder(w)

			defer func() {
				rvr := recover()
				if rvr == nil {
					return
				}

				if err, ok := rvr.(error); ok && errors.Is(err, http.ErrAbortHandler) {
					panic(rvr)
				}

				log.WithContext(r.Context()).Error().
					Str("panic", fmt.Sprintf("%v", rvr)).
					Bytes("stack", debug.Stack()).
					Str("method", r.Method).
					Str("path", r.URL.Path).
					Msg("panic recovered")

				if recorder.WroteHeader() {
					return
				}

				handlers.WriteErrorResponse(recorder, http.StatusInternalServerError, model.MessageInternalServerError)
			}()

			next.ServeHTTP(recorder, r)
		})
	}
}
