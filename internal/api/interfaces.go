// interfaces.go - Handler interface definitions for clean separation of concerns
package api

import (
	"context"

	"github.com/docspace-portals/backend/internal/models"
	"github.com/labstack/echo/v4"
)

// PatientHandler handles the patient directory
type PatientHandler interface {
	HandleListPatients(c echo.Context) error
	HandleCreatePatient(c echo.Context) error
	HandleGetPatient(c echo.Context) error
}

// FillSignHandler handles fill-and-sign assignments
type FillSignHandler interface {
	HandleListAssignments(c echo.Context) error
	HandleCreateAssignment(c echo.Context) error
	HandleDeleteAssignment(c echo.Context) error
}

// TemplateHandler lists the form templates available for assignment
type TemplateHandler interface {
	HandleListTemplates(c echo.Context) error
}

// ExportHandler handles spreadsheet export scripts
type ExportHandler interface {
	HandleBuildScript(c echo.Context) error
}

// HealthHandler handles health check operations
type HealthHandler interface {
	HandleHealth(c echo.Context) error
}

// AssignmentResolver classifies stored assignments against the platform.
// This allows mocking in tests
type AssignmentResolver interface {
	ResolveAssignments(ctx context.Context, assignments []models.Assignment, patientName string) ([]models.ResolvedAssignment, error)
}

// FormsPlatform is the part of the DocSpace client the handlers call directly.
type FormsPlatform interface {
	RequireFormsRoom(ctx context.Context) (*models.Room, error)
	ListRoomFiles(ctx context.Context, roomID string) ([]models.FileInfo, error)
	GetFileInfo(ctx context.Context, fileID string) (*models.FileInfo, error)
	EnsureFillOutLink(ctx context.Context, fileID string) (*models.ShareLink, error)
}

// ScriptExporter builds spreadsheet export scripts
type ScriptExporter interface {
	BuildScript(ctx context.Context, query, sheetName string) (*models.ExportScript, error)
}
