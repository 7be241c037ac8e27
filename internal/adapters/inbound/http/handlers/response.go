package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

const (
	contentTypeHeader = "Content-Type"
	applicationJSON   = "application/json"

	maxRequestBodyBytes = 1 << 20
)

func writeJSONResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set(contentTypeHeader, applicationJSON)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// decodeDeviceRequest reads a single JSON object from the body. Empty, oversized
// or syntactically broken bodies are reported as malformed.
func decodeDeviceRequest(w http.ResponseWriter, r *http.Request) (deviceRequest, error) {
	var req deviceRequest

	body := http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)
	defer body.Close()

	decoder := json.NewDecoder(body)
	if err := decoder.Decode(&req); err != nil {
		return deviceRequest{}, fmt.Errorf("%w: %w", errMalformedBody, err)
	}

	if _, err := decoder.Token(); !errors.Is(err, io.EOF) {
		return deviceRequest{}, fmt.Errorf("%w: trailing data after JSON object", errMalformedBody)
	}

	return req, nil
}
