package response

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/diagnosis/studio16/internal/domain"
	"github.com/diagnosis/studio16/pkg/logger"
)

// ErrorResponse represents a structured JSON error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

// WriteJSON writes v with the given status.
func WriteJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("failed to encode response", "error", err)
	}
}

// WriteError writes a structured JSON error response
func WriteError(w http.ResponseWriter, statusCode int, message string, code string) {
	WriteJSON(w, statusCode, ErrorResponse{Error: message, Code: code})
}

// WriteErrorWithDetails writes a structured JSON error response with additional details
func WriteErrorWithDetails(w http.ResponseWriter, statusCode int, message, code, details string) {
	WriteJSON(w, statusCode, ErrorResponse{Error: message, Code: code, Details: details})
}

// Common error codes
const (
	CodeInvalidInput       = "INVALID_INPUT"
	CodeAccessDenied       = "ACCESS_DENIED"
	CodeNotFound           = "NOT_FOUND"
	CodeConflict           = "CONFLICT"
	CodeInternalError      = "INTERNAL_ERROR"
	CodeExpiredCode        = "EXPIRED_CODE"
	CodeTransmissionFailed = "TRANSMISSION_FAILED"
	CodeStorageError       = "STORAGE_ERROR"
)

func BadRequest(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, message, CodeInvalidInput)
}

func Forbidden(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusForbidden, message, CodeAccessDenied)
}

func NotFound(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusNotFound, message, CodeNotFound)
}

func InternalError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusInternalServerError, message, CodeInternalError)
}

func Conflict(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusConflict, message, CodeConflict)
}

// FromError maps the domain error taxonomy onto the envelope. Unknown errors are logged and
// reported as internal.
func FromError(ctx context.Context, w http.ResponseWriter, err error) {
	var (
		verr *domain.ValidationError
		eerr *domain.ExpiryError
		terr *domain.TransmissionError
		serr *domain.StorageError
	)
	switch {
	case errors.As(err, &verr):
		WriteErrorWithDetails(w, http.StatusBadRequest, verr.Message, CodeInvalidInput, verr.Field)
	case errors.Is(err, domain.ErrAccessDenied):
		Forbidden(w, "admin access required")
	case errors.Is(err, domain.ErrArtworkNotFound):
		NotFound(w, err.Error())
	case errors.Is(err, domain.ErrNoStagedEdit):
		Conflict(w, err.Error())
	case errors.As(err, &eerr):
		WriteError(w, http.StatusGone, eerr.Error(), CodeExpiredCode)
	case errors.As(err, &terr):
		logger.WarnContext(ctx, "hand-off failed", "error", err)
		WriteError(w, http.StatusBadGateway, "could not open WhatsApp", CodeTransmissionFailed)
	case errors.As(err, &serr):
		logger.ErrorContext(ctx, "device storage failed", "error", err, "op", serr.Op, "key", serr.Key)
		WriteError(w, http.StatusServiceUnavailable, "device storage unavailable", CodeStorageError)
	default:
		logger.ErrorContext(ctx, "request failed", "error", err)
		InternalError(w, "internal error")
	}
}
