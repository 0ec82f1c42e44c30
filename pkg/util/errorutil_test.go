package util

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConstructorsCarryCodeAndStatus(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		code      string
		status    int
		retryable bool
	}{
		{"validation", NewValidationError("bad input", nil), CodeValidation, http.StatusBadRequest, false},
		{"not found", NewNotFound("ticket", nil), CodeNotFound, http.StatusNotFound, false},
		{"unauthorized", NewUnauthorized("no token"), CodeUnauthorized, http.StatusUnauthorized, false},
		{"permission denied", NewPermissionDenied("nope"), CodePermissionDenied, http.StatusForbidden, false},
		{"conflict", NewConflict("ticket closed", nil), CodeConflict, http.StatusConflict, false},
		{"cache recompute", NewCacheRecomputeError(errors.New("timeout")), CodeCacheRecompute, http.StatusServiceUnavailable, true},
		{"unavailable", NewUnavailable("store down", errors.New("dial refused")), CodeUnavailable, http.StatusServiceUnavailable, true},
		{"internal", NewInternalError(errors.New("boom")), CodeInternal, http.StatusInternalServerError, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			domainErr := ToDomainError(tt.err)
			require.NotNil(t, domainErr)
			assert.Equal(t, tt.code, domainErr.Code)
			assert.Equal(t, tt.status, domainErr.HTTPStatus)
			assert.Equal(t, tt.retryable, domainErr.Retryable)
			assert.True(t, IsCode(tt.err, tt.code))
			assert.Equal(t, tt.retryable, IsRetryable(tt.err))
		})
	}
}

func TestNotFoundMessage(t *testing.T) {
	assert.Equal(t, "ticket not found", ToDomainError(NewNotFound("ticket", nil)).Message)
}

func TestToDomainErrorWrapsUnknown(t *testing.T) {
	plain := errors.New("something broke")
	domainErr := ToDomainError(plain)
	assert.Equal(t, CodeInternal, domainErr.Code)
	assert.ErrorIs(t, domainErr, plain)
}

func TestToDomainErrorNil(t *testing.T) {
	assert.Nil(t, ToDomainError(nil))
	assert.NoError(t, MapError(nil))
}

func TestUnwrapThroughWrapping(t *testing.T) {
	cause := errors.New("root cause")
	wrapped := fmt.Errorf("context: %w", NewUnavailable("store down", cause))
	assert.True(t, IsCode(wrapped, CodeUnavailable))
	assert.True(t, IsRetryable(wrapped))
	assert.ErrorIs(t, wrapped, cause)
}
