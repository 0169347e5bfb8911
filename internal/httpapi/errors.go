// Package httpapi exposes the product delta feed over HTTP.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rickgao/catalog-feed/internal/auth"
	"github.com/rickgao/catalog-feed/internal/feed"
	"github.com/rickgao/catalog-feed/internal/intake"
)

// jsonError represents a JSON error payload.
type jsonError struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// WriteJSONError writes a JSON error payload with the given status code.
func WriteJSONError(w http.ResponseWriter, status int, message, details string) {
	writeJSON(w, status, jsonError{Error: message, Details: details})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// errorResponse maps a service error to a status code and error code.
func errorResponse(err error) (int, string) {
	switch {
	case errors.Is(err, intake.ErrClosed):
		return http.StatusServiceUnavailable, "shutting_down"
	case errors.Is(err, auth.ErrMissingHeaders),
		errors.Is(err, auth.ErrBadTimestamp),
		errors.Is(err, auth.ErrClockSkew),
		errors.Is(err, auth.ErrInvalidSignature):
		return http.StatusUnauthorized, "unauthorized"
	}

	switch feed.KindOf(err) {
	case feed.KindValidation:
		return http.StatusBadRequest, "validation_error"
	case feed.KindCursorAhead:
		return http.StatusNotAcceptable, "cursor_ahead"
	case feed.KindConsistency:
		return http.StatusInternalServerError, "consistency_failure"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
