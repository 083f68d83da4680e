package response

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diagnosis/studio16/internal/domain"
)

func TestFromError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"validation", &domain.ValidationError{Field: "code", Message: "bad"}, http.StatusBadRequest, CodeInvalidInput},
		{"denied", fmt.Errorf("toggle: %w", domain.ErrAccessDenied), http.StatusForbidden, CodeAccessDenied},
		{"not found", domain.ErrArtworkNotFound, http.StatusNotFound, CodeNotFound},
		{"no staged edit", domain.ErrNoStagedEdit, http.StatusConflict, CodeConflict},
		{"expired", &domain.ExpiryError{What: "access code"}, http.StatusGone, CodeExpiredCode},
		{"transmission", &domain.TransmissionError{Err: errors.New("x")}, http.StatusBadGateway, CodeTransmissionFailed},
		{"storage", &domain.StorageError{Op: "get", Key: "k", Err: errors.New("down")}, http.StatusServiceUnavailable, CodeStorageError},
		{"other", errors.New("boom"), http.StatusInternalServerError, CodeInternalError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			FromError(context.Background(), rr, tt.err)

			assert.Equal(t, tt.status, rr.Code)
			assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
			var body ErrorResponse
			require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
			assert.Equal(t, tt.code, body.Code)
		})
	}
}
