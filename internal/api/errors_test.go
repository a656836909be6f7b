// errors_test.go - Tests for API error mapping
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/docspace-portals/backend/internal/docspace"
	"github.com/docspace-portals/backend/internal/fillsign"
	"github.com/docspace-portals/backend/internal/storage"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToAPIError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"api error passes through", NewConflictError("dup"), http.StatusConflict, "CONFLICT"},
		{"echo error", echo.NewHTTPError(http.StatusMethodNotAllowed, "nope"), http.StatusMethodNotAllowed, "HTTP_ERROR"},
		{"store not found", fmt.Errorf("patient x: %w", storage.ErrNotFound), http.StatusNotFound, "NOT_FOUND"},
		{"store conflict", fmt.Errorf("assignment x: %w", storage.ErrAlreadyExists), http.StatusConflict, "CONFLICT"},
		{"forms room", fmt.Errorf("%w: %w", fillsign.ErrFormsRoomUnavailable, docspace.ErrFormsRoomNotFound), http.StatusServiceUnavailable, "FORMS_ROOM_UNAVAILABLE"},
		{"platform not found", &docspace.Error{Status: 404, Message: "GetFileInfo failed"}, http.StatusNotFound, "PLATFORM_ERROR"},
		{"platform unauthorized", &docspace.Error{Status: 401, Message: "GetFileInfo failed"}, http.StatusBadGateway, "PLATFORM_ERROR"},
		{"platform down", fmt.Errorf("wrapped: %w", &docspace.Error{Status: 503}), http.StatusBadGateway, "PLATFORM_ERROR"},
		{"timeout", fmt.Errorf("call: %w", context.DeadlineExceeded), http.StatusGatewayTimeout, "TIMEOUT"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "UNKNOWN_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := toAPIError(tt.err, false)
			assert.Equal(t, tt.wantStatus, got.Status)
			assert.Equal(t, tt.wantCode, got.Code)
		})
	}
}

func TestErrorHandler_ResponseShape(t *testing.T) {
	e := echo.New()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	ErrorHandler(&docspace.Error{Status: 404, Message: "GetFileInfo failed", Details: "file missing"}, e.NewContext(req, rec))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "GetFileInfo failed", body["error"])
	assert.Equal(t, "file missing", body["details"])
	assert.EqualValues(t, 404, body["status"])
	assert.Equal(t, "PLATFORM_ERROR", body["code"])
}

func TestErrorHandler_HidesInternalDetails(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	rec := httptest.NewRecorder()
	NewErrorHandler(false)(errors.New("db password wrong"), e.NewContext(req, rec))
	assert.NotContains(t, rec.Body.String(), "password")

	rec = httptest.NewRecorder()
	NewErrorHandler(true)(errors.New("db password wrong"), e.NewContext(req, rec))
	assert.Contains(t, rec.Body.String(), "password")
}
