package apihttp

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	energy "campus-energy/internal/energy/domain"
	"campus-energy/internal/reports"
)

type errorBody struct {
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorBody{Message: message})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, energy.ErrInsufficientRows),
		errors.Is(err, energy.ErrUnknownSourceKind),
		errors.Is(err, energy.ErrInvalidBuilding),
		errors.Is(err, energy.ErrInvalidDate),
		errors.Is(err, energy.ErrUnknownTable),
		errors.Is(err, reports.ErrInvalidWorkbook):
		return http.StatusBadRequest
	case errors.Is(err, energy.ErrNoData):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// writeError maps err to a status. Internal errors are logged and not echoed.
func (s *server) writeError(w http.ResponseWriter, r *http.Request, message string, err error) {
	status := statusFor(err)
	body := errorBody{Message: message}
	if status == http.StatusInternalServerError {
		s.logger.Error(message, zap.String("path", r.URL.Path), zap.Error(err))
	} else {
		body.Error = err.Error()
	}
	writeJSON(w, status, body)
}
