// handlers_export.go - Spreadsheet export script handler
package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// ExportHandlerImpl implements the ExportHandler interface
type ExportHandlerImpl struct {
	exporter ScriptExporter
}

// NewExportHandler creates a new export handler instance. exporter may be
// nil when no export database is configured.
func NewExportHandler(exporter ScriptExporter) ExportHandler {
	return &ExportHandlerImpl{exporter: exporter}
}

// HandleBuildScript runs the export query and returns the editor macro
func (h *ExportHandlerImpl) HandleBuildScript(c echo.Context) error {
	if h.exporter == nil {
		return NewServiceUnavailableError("spreadsheet export is not configured")
	}

	var req exportScriptRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid JSON body", err)
	}
	if err := validateRequest(&req); err != nil {
		return err
	}

	script, err := h.exporter.BuildScript(c.Request().Context(), req.Query, req.SheetName)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, script)
}

// Request types

type exportScriptRequest struct {
	Query     string `json:"query" validate:"required,max=10000"`
	SheetName string `json:"sheetName" validate:"omitempty,max=31"`
}
