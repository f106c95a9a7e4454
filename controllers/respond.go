package controllers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"go-pharmacy/apperrors"
)

// requestTimeout bounds every store round trip.
const requestTimeout = 5 * time.Second

type messageResponse struct {
	Message string `json:"message"`
}

type errorResponse struct {
	Error *apperrors.AppError `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// writeError maps workflow errors onto the HTTP response. Anything that
// is not an AppError is surfaced as a generic 500 without leaking the
// cause to the caller.
func writeError(w http.ResponseWriter, err error) {
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		appErr = apperrors.Internal(err)
	}
	if appErr.HTTPCode >= http.StatusInternalServerError {
		slog.Error("server error", "code", appErr.Code, "error", err)
	}
	writeJSON(w, appErr.HTTPCode, errorResponse{Error: appErr})
}
