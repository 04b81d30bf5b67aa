package httpapi

import (
	"encoding/json"
	"net/http"

	"inferd/internal/engine"
	"inferd/internal/lifecycle"
	"inferd/pkg/types"
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

// statusForError maps well-known lifecycle errors to HTTP status codes.
func statusForError(err error) int {
	switch {
	case lifecycle.IsModelNotFound(err):
		return http.StatusNotFound
	case lifecycle.IsEngineNotReady(err):
		return http.StatusServiceUnavailable
	case engine.IsUnavailable(err):
		return http.StatusServiceUnavailable
	default:
		if he, ok := err.(HTTPError); ok {
			return he.StatusCode()
		}
		return http.StatusInternalServerError
	}
}
