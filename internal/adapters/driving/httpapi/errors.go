package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/custodia-labs/chronicle/internal/core/domain"
	"github.com/custodia-labs/chronicle/internal/logger"
)

// Error codes carried in error responses.
const (
	codeRunInProgress = "RUN_IN_PROGRESS"
	codeNotRunning    = "NOT_RUNNING"
	codeNoToken       = "NO_TOKEN"
	codeNoScopes      = "NO_SERVERS"
	codeAuthInvalid   = "AUTH_INVALID"
	codeInvalidInput  = "INVALID_INPUT"
	codeNotFound      = "NOT_FOUND"
	codeInternal      = "INTERNAL_ERROR"
)

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// statusFor maps a service error to an HTTP status and error code.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrRunInProgress):
		return http.StatusConflict, codeRunInProgress
	case errors.Is(err, domain.ErrNotRunning):
		return http.StatusConflict, codeNotRunning
	case errors.Is(err, domain.ErrNoToken):
		return http.StatusPreconditionFailed, codeNoToken
	case errors.Is(err, domain.ErrNoScopes):
		return http.StatusPreconditionFailed, codeNoScopes
	case errors.Is(err, domain.ErrAuthInvalid):
		return http.StatusPreconditionFailed, codeAuthInvalid
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest, codeInvalidInput
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, codeNotFound
	default:
		return http.StatusInternalServerError, codeInternal
	}
}

// handleServiceError writes err as a JSON error response.
func handleServiceError(w http.ResponseWriter, err error) {
	status, code := statusFor(err)
	if status == http.StatusInternalServerError {
		logger.Error("http: %v", err)
	}
	writeJSON(w, status, errorResponse{Code: code, Message: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("http: encode response: %v", err)
	}
}
