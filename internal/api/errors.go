// errors.go - Structured error handling for API responses
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/docspace-portals/backend/internal/docspace"
	"github.com/docspace-portals/backend/internal/export"
	"github.com/docspace-portals/backend/internal/fillsign"
	"github.com/docspace-portals/backend/internal/storage"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

// APIError represents a structured API error response
type APIError struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"error"`
	Details string `json:"details,omitempty"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Error constructors for consistent error handling

// NewBadRequestError creates a 400 Bad Request error
func NewBadRequestError(message string, cause error) *APIError {
	err := &APIError{
		Status:  http.StatusBadRequest,
		Code:    "BAD_REQUEST",
		Message: message,
	}
	if cause != nil {
		err.Details = cause.Error()
	}
	return err
}

// NewValidationError creates a 400 validation error for a specific field
func NewValidationError(field string) *APIError {
	return &APIError{
		Status:  http.StatusBadRequest,
		Code:    "VALIDATION_ERROR",
		Message: fmt.Sprintf("validation failed for field: %s", field),
	}
}

// NewNotFoundError creates a 404 Not Found error
func NewNotFoundError(resource string, id string) *APIError {
	return &APIError{
		Status:  http.StatusNotFound,
		Code:    "NOT_FOUND",
		Message: fmt.Sprintf("%s not found: %s", resource, id),
	}
}

// NewConflictError creates a 409 Conflict error
func NewConflictError(message string) *APIError {
	return &APIError{
		Status:  http.StatusConflict,
		Code:    "CONFLICT",
		Message: message,
	}
}

// NewInternalError creates a 500 Internal Server Error
func NewInternalError(message string, cause error) *APIError {
	err := &APIError{
		Status:  http.StatusInternalServerError,
		Code:    "INTERNAL_ERROR",
		Message: message,
	}
	if cause != nil {
		err.Details = cause.Error()
	}
	return err
}

// NewBadGatewayError creates a 502 error for a failed platform call
func NewBadGatewayError(message string, details string) *APIError {
	return &APIError{
		Status:  http.StatusBadGateway,
		Code:    "PLATFORM_ERROR",
		Message: message,
		Details: details,
	}
}

// NewServiceUnavailableError creates a 503 Service Unavailable error
func NewServiceUnavailableError(message string) *APIError {
	return &APIError{
		Status:  http.StatusServiceUnavailable,
		Code:    "SERVICE_UNAVAILABLE",
		Message: message,
	}
}

// toAPIError maps domain errors onto API errors.
func toAPIError(err error, exposeDetails bool) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}

	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		return &APIError{
			Status:  httpErr.Code,
			Code:    "HTTP_ERROR",
			Message: fmt.Sprintf("%v", httpErr.Message),
		}
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return newValidationErrors(verrs)
	}

	var platformErr *docspace.Error
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return &APIError{Status: http.StatusNotFound, Code: "NOT_FOUND", Message: "resource not found", Details: err.Error()}
	case errors.Is(err, storage.ErrAlreadyExists):
		return &APIError{Status: http.StatusConflict, Code: "CONFLICT", Message: "resource already exists", Details: err.Error()}
	case errors.Is(err, fillsign.ErrFormsRoomUnavailable), errors.Is(err, docspace.ErrFormsRoomNotFound):
		return &APIError{Status: http.StatusServiceUnavailable, Code: "FORMS_ROOM_UNAVAILABLE", Message: "forms room is not available", Details: err.Error()}
	case errors.Is(err, export.ErrNotSelect):
		return NewBadRequestError("invalid export query", err)
	case errors.As(err, &platformErr):
		status := http.StatusBadGateway
		if platformErr.Status == http.StatusNotFound || platformErr.Status == http.StatusBadRequest {
			status = platformErr.Status
		}
		return &APIError{Status: status, Code: "PLATFORM_ERROR", Message: platformErr.Message, Details: platformErr.Details}
	case errors.Is(err, context.DeadlineExceeded):
		return &APIError{Status: http.StatusGatewayTimeout, Code: "TIMEOUT", Message: "request timed out"}
	}

	apiErr = &APIError{
		Status:  http.StatusInternalServerError,
		Code:    "UNKNOWN_ERROR",
		Message: "An unexpected error occurred",
	}
	if exposeDetails {
		apiErr.Details = err.Error()
	}
	return apiErr
}

// NewErrorHandler returns an echo error handler rendering APIError bodies.
// Details of unexpected errors are only included when exposeDetails is set.
func NewErrorHandler(exposeDetails bool) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		apiErr := toAPIError(err, exposeDetails)
		if c.Request().Method == http.MethodHead {
			c.NoContent(apiErr.Status)
			return
		}
		c.JSON(apiErr.Status, apiErr)
	}
}

// ErrorHandler is the error handler used in production.
// Usage: e.HTTPErrorHandler = api.ErrorHandler
var ErrorHandler = NewErrorHandler(false)

// RespondWithError is a helper to respond with an APIError
func RespondWithError(c echo.Context, err *APIError) error {
	return c.JSON(err.Status, err)
}
