package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"cardscan/internal/common"
)

type errorBody struct {
	Error string `json:"error"`
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// respondError maps domain errors onto HTTP status codes. Internal
// details stay in the log, not the response body.
func respondError(w http.ResponseWriter, logger *slog.Logger, err error) {
	status := http.StatusInternalServerError
	msg := "internal error"
	switch {
	case errors.Is(err, common.ErrNotFound):
		status = http.StatusNotFound
		msg = "not found"
	case errors.Is(err, common.ErrInvalidInput), errors.Is(err, common.ErrValidation):
		status = http.StatusBadRequest
		msg = err.Error()
	}
	if status == http.StatusInternalServerError && logger != nil {
		logger.Error("http.internal_error", "err", err)
	}
	respondJSON(w, status, errorBody{Error: msg})
}

func badRequest(w http.ResponseWriter, msg string) {
	respondJSON(w, http.StatusBadRequest, errorBody{Error: msg})
}
