package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/dinepos/api/internal/apperr"
	"github.com/dinepos/api/internal/logging"
)

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.FromContext(r.Context()).Error("encode JSON response", "path", r.URL.Path, "error", err)
	}
}

// writeError maps the apperr taxonomy onto HTTP status codes. Validation
// messages are returned verbatim; backend details are not.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *apperr.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, r, http.StatusBadRequest, map[string]string{"error": verr.Error()})
	case errors.Is(err, apperr.ErrEmptyCart):
		writeJSON(w, r, http.StatusBadRequest, map[string]string{"error": "cart is empty"})
	case errors.Is(err, apperr.ErrAuthRequired):
		writeJSON(w, r, http.StatusUnauthorized, map[string]string{"error": "invalid credentials"})
	case errors.Is(err, apperr.ErrNotFound):
		writeJSON(w, r, http.StatusNotFound, map[string]string{"error": "not found"})
	case errors.Is(err, apperr.ErrConfirmationRequired):
		writeJSON(w, r, http.StatusPreconditionRequired, map[string]string{"error": "confirmation required: repeat with ?confirm=true"})
	case errors.Is(err, apperr.ErrConflict):
		writeJSON(w, r, http.StatusConflict, map[string]string{"error": err.Error()})
	case errors.Is(err, apperr.ErrBackendUnavailable):
		logging.FromContext(r.Context()).Error("backend unavailable", "path", r.URL.Path, "error", err)
		writeJSON(w, r, http.StatusServiceUnavailable, map[string]string{"error": "service temporarily unavailable"})
	default:
		logging.FromContext(r.Context()).Error("request failed", "path", r.URL.Path, "error", err)
		writeJSON(w, r, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}
}

func queryBool(r *http.Request, name string) bool {
	ok, _ := strconv.ParseBool(r.URL.Query().Get(name))
	return ok
}
