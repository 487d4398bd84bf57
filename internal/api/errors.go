// SPDX-License-Identifier: MIT

package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/loomverse/studio/internal/ai"
	"github.com/loomverse/studio/internal/media"
	"github.com/loomverse/studio/internal/output"
	"github.com/loomverse/studio/internal/session"
	"github.com/loomverse/studio/internal/store"
	"github.com/loomverse/studio/internal/studio"
)

// writeJSON writes a JSON response with the given status code
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps domain errors onto HTTP status codes.
func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), map[string]string{"error": err.Error()})
}

func statusFor(err error) int {
	var te *session.TransitionError
	var se *media.SetupError
	switch {
	case errors.Is(err, store.ErrNotFound), errors.Is(err, studio.ErrNoSession):
		return http.StatusNotFound
	case errors.Is(err, studio.ErrSessionActive),
		errors.Is(err, session.ErrNotCompleted),
		errors.As(err, &te):
		return http.StatusConflict
	case errors.Is(err, media.ErrPermissionDenied):
		return http.StatusForbidden
	case errors.Is(err, output.ErrEmptyCapture):
		return http.StatusUnprocessableEntity
	case errors.Is(err, media.ErrPickerDismissed), errors.Is(err, media.ErrNoInput):
		return http.StatusBadRequest
	case errors.Is(err, ai.ErrGeneration):
		return http.StatusBadGateway
	case errors.Is(err, media.ErrDeviceUnavailable), errors.As(err, &se):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeBadRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
}
