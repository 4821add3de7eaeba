package common

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServiceError_UnwrapMapsStatus(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusNotFound, ErrorNotFound},
		{http.StatusUnauthorized, ErrorUnauthorized},
		{http.StatusForbidden, ErrorUnauthorized},
		{http.StatusConflict, ErrAlreadyExists},
		{http.StatusBadRequest, ErrValidation},
		{http.StatusTooManyRequests, ErrRateLimited},
		{http.StatusBadGateway, ErrorInternal},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			err := fmt.Errorf("wrapped: %w", &ServiceError{Message: "x", StatusCode: tt.status})
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestServiceError_CauseWins(t *testing.T) {
	cause := errors.New("dial tcp: refused")
	err := NewServiceError(0, "unavailable", cause)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "unavailable", err.Error())
}

func TestServiceError_JSONShape(t *testing.T) {
	b, err := json.Marshal(&ServiceError{Message: "not found", StatusCode: 404})
	require.NoError(t, err)
	assert.JSONEq(t, `{"message":"not found","status_code":404}`, string(b))
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, StatusFor(fmt.Errorf("x: %w", ErrorNotFound)))
	assert.Equal(t, http.StatusUnauthorized, StatusFor(ErrTokenExpired))
	assert.Equal(t, http.StatusBadRequest, StatusFor(ErrUnknownField))
	assert.Equal(t, http.StatusConflict, StatusFor(ErrAlreadyExists))
	assert.Equal(t, http.StatusTeapot, StatusFor(&ServiceError{StatusCode: http.StatusTeapot}))
	assert.Equal(t, http.StatusInternalServerError, StatusFor(errors.New("boom")))
}
