// Package handler contains the HTTP handlers for the JSON API.
package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/quireapp/quire/internal/domain"
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error string `json:"error"`
}

// writeJSON serializes v with the given status. Encoding failures are
// logged and abandoned; headers are already out the door.
func writeJSON(w http.ResponseWriter, logger *slog.Logger, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("failed to encode response", "error", err)
	}
}

// writeError maps a domain error to an HTTP status and writes it.
func writeError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	code := domain.ErrorCode(err)
	status := statusFromCode(code)

	if status >= 500 {
		logger.Error("request error", "method", r.Method, "path", r.URL.Path, "error", err)
	} else {
		logger.Debug("request error", "method", r.Method, "path", r.URL.Path, "error", err)
	}

	writeJSON(w, logger, status, errorBody{Error: domain.ErrorMessage(err)})
}

func statusFromCode(code string) int {
	switch code {
	case domain.EINVALID:
		return http.StatusBadRequest
	case domain.ENOTFOUND:
		return http.StatusNotFound
	case domain.ECONFLICT:
		return http.StatusConflict
	case domain.ETOOLARGE:
		return http.StatusRequestEntityTooLarge
	default:
		return http.StatusInternalServerError
	}
}
