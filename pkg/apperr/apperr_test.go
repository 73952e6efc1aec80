package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		code   Code
		status int
	}{
		{CodeUnauthenticated, http.StatusUnauthorized},
		{CodeForbidden, http.StatusForbidden},
		{CodeNotFound, http.StatusNotFound},
		{CodeConflict, http.StatusConflict},
		{CodeValidation, http.StatusBadRequest},
		{CodeInternal, http.StatusInternalServerError},
		{Code("unknown"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.status, HTTPStatus(tt.code))
		})
	}
}

func TestInternalHidesCause(t *testing.T) {
	cause := errors.New("pq: connection refused")
	err := Internal(cause)

	assert.Equal(t, "internal error", err.Message)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestFrom(t *testing.T) {
	t.Run("passes through classified errors", func(t *testing.T) {
		err := NotFound("group not found")
		classified := From(fmt.Errorf("handler: %w", err))
		require.Equal(t, CodeNotFound, classified.Code)
		assert.Equal(t, "group not found", classified.Message)
	})

	t.Run("wraps unclassified errors as internal", func(t *testing.T) {
		classified := From(errors.New("boom"))
		assert.Equal(t, CodeInternal, classified.Code)
		assert.Equal(t, "internal error", classified.Message)
	})
}

func TestClassificationHelpers(t *testing.T) {
	assert.True(t, IsNotFound(NotFound("gone")))
	assert.False(t, IsNotFound(Conflict("busy")))
	assert.True(t, IsConflict(fmt.Errorf("wrapped: %w", Conflict("busy"))))
	assert.False(t, IsConflict(errors.New("plain")))
}
