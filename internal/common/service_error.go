package common

import (
	"errors"
	"fmt"
	"net/http"
)

// ServiceError is the failure shape of every entity API call. The server
// writes it as {"message": ..., "status_code": ...}; the client decodes it back.
// StatusCode 0 means the request never produced an HTTP response.
type ServiceError struct {
	Message    string `json:"message"`
	StatusCode int    `json:"status_code"`
	cause      error
}

// NewServiceError builds a ServiceError that unwraps to cause.
func NewServiceError(status int, msg string, cause error) *ServiceError {
	return &ServiceError{Message: msg, StatusCode: status, cause: cause}
}

func (e *ServiceError) Error() string {
	if e.StatusCode == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s (status %d)", e.Message, e.StatusCode)
}

// Unwrap exposes the sentinel matching the status code, so callers can write
// errors.Is(err, common.ErrorNotFound) regardless of transport.
func (e *ServiceError) Unwrap() error {
	if e.cause != nil {
		return e.cause
	}
	switch e.StatusCode {
	case http.StatusNotFound:
		return ErrorNotFound
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrorUnauthorized
	case http.StatusConflict:
		return ErrAlreadyExists
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return ErrValidation
	case http.StatusTooManyRequests:
		return ErrRateLimited
	}
	if e.StatusCode >= 500 {
		return ErrorInternal
	}
	return nil
}

// StatusFor maps an error to the HTTP status the server answers with.
func StatusFor(err error) int {
	var se *ServiceError
	switch {
	case errors.As(err, &se) && se.StatusCode != 0:
		return se.StatusCode
	case errors.Is(err, ErrorNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrorUnauthorized), errors.Is(err, ErrInvalidToken),
		errors.Is(err, ErrTokenExpired), errors.Is(err, ErrRefreshTokenExpired):
		return http.StatusUnauthorized
	case errors.Is(err, ErrAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, ErrValidation), errors.Is(err, ErrUnknownField), errors.Is(err, ErrNothingToUpdate):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnknownEntity):
		return http.StatusNotFound
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
