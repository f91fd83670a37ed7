package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"mlcshim/internal/bridge"
	"mlcshim/pkg/types"
)

// HTTPError allows services to provide an HTTP status code for an error.
type HTTPError interface {
	error
	StatusCode() int
}

// writeJSONError writes a consistent JSON error payload.
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(types.ErrorResponse{Error: msg, Code: status})
}

// statusFor maps errors returned before streaming starts to HTTP status codes.
func statusFor(err error) int {
	if bridge.IsTooBusy(err) {
		return http.StatusTooManyRequests
	}
	var he HTTPError
	if errors.As(err, &he) {
		return he.StatusCode()
	}
	return http.StatusInternalServerError
}
