package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"planilla/internal/core"
	"planilla/internal/log"
)

// requestError is a malformed request: bad JSON, bad path parameter.
type requestError struct {
	msg string
}

func (e *requestError) Error() string { return e.msg }

func badRequest(msg string) error {
	return &requestError{msg: msg}
}

type errorBody struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode JSON response", log.FieldError, err)
	}
}

// errorStatus maps domain errors to HTTP status codes.
func errorStatus(err error) int {
	var re *requestError
	switch {
	case errors.As(err, &re):
		return http.StatusBadRequest
	case core.IsValidation(err):
		return http.StatusUnprocessableEntity
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := errorStatus(err)
	body := errorBody{Error: err.Error()}

	var ve *core.ValidationError
	if errors.As(err, &ve) {
		body.Field = ve.Field
	}
	if status == http.StatusInternalServerError {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Request failed",
			log.FieldPath, r.URL.Path, log.FieldError, err)
		body.Error = "internal error"
	}
	writeJSON(w, status, body)
}
