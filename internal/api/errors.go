package api

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes sent by the task service in the error_code field.
const (
	CodeNotFound         = "NOT_FOUND"
	CodeValidation       = "VALIDATION_ERROR"
	CodeNotAuthenticated = "NOT_AUTHENTICATED"
	CodeInvalidToken     = "INVALID_TOKEN"
	CodeTokenExpired     = "TOKEN_EXPIRED"
	CodeAccessDenied     = "ACCESS_DENIED"
	CodeInternal         = "INTERNAL_ERROR"
	CodeHTTP             = "HTTP_ERROR"
	CodeUnknown          = "UNKNOWN_ERROR"
)

const defaultErrorDetail = "An error occurred"

var (
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("validation error")
	ErrUnauthorized = errors.New("not authenticated")
	ErrForbidden    = errors.New("access denied")
	ErrInternal     = errors.New("internal error")
	ErrTransport    = errors.New("transport error")
)

// APIError is a non-2xx response from the task service.
type APIError struct {
	Message string `json:"detail"`
	Code    string `json:"error_code"`
	Status  int    `json:"-"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s (%s, status %d)", e.Message, e.Code, e.Status)
}

// Is lets callers match an APIError against the package sentinels.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.Status == http.StatusNotFound || e.Code == CodeNotFound
	case ErrValidation:
		return e.Code == CodeValidation || e.Status == http.StatusBadRequest || e.Status == http.StatusUnprocessableEntity
	case ErrUnauthorized:
		return e.Status == http.StatusUnauthorized
	case ErrForbidden:
		return e.Status == http.StatusForbidden
	case ErrInternal:
		return e.Status >= http.StatusInternalServerError
	}
	return false
}

// AsAPIError extracts the APIError from err, if any.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}
