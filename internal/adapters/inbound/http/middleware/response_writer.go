package middleware

import (
	"net/http"
)

// ResponseRecorder observes the status and size of a response while passing
// everything through to the wrapped writer.
type ResponseRecorder struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten uint64
	wroteHeader  bool
}

func NewResponseRecorder(w http.ResponseWriter) *ResponseRecorder {
	return &ResponseRecorder{
		ResponseWriter: w,
		statusCode:     http.StatusOK,
	}
}

func (w *ResponseRecorder) WriteHeader(code int) {
	if w.wroteHeader {
		return
	}

	w.statusCode = code
	w.wroteHeader = true
	w.ResponseWriter.WriteHeader(code)
}

func (w *ResponseRecorder) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}

	n, err := w.ResponseWriter.Write(b)
	w.bytesWritten += uint64(n)

	return n, err
}

func (w *ResponseRecorder) StatusCode() int {
	return w.statusCode
}

func (w *ResponseRecorder) BytesWritten() uint64 {
	return w.bytesWritten
}

func (w *ResponseRecorder) WroteHeader() bool {
	return w.wroteHeader
}

// Unwrap lets http.ResponseController reach flush and deadline support.
func (w *ResponseRecorder) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
