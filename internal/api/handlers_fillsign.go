// handlers_fillsign.go - Fill-and-sign assignment handlers
package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/docspace-portals/backend/internal/models"
	"github.com/docspace-portals/backend/internal/storage"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// FillSignHandlerImpl implements the FillSignHandler interface
type FillSignHandlerImpl struct {
	store    storage.Store
	resolver AssignmentResolver
	platform FormsPlatform
	logger   *zap.Logger
	now      func() time.Time
}

// NewFillSignHandler creates a new fill-and-sign handler instance
func NewFillSignHandler(store storage.Store, resolver AssignmentResolver, platform FormsPlatform, logger *zap.Logger) FillSignHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FillSignHandlerImpl{
		store:    store,
		resolver: resolver,
		platform: platform,
		logger:   logger.Named("api"),
		now:      time.Now,
	}
}

// HandleListAssignments returns a patient's assignments with their current
// workflow status, most recent first
func (h *FillSignHandlerImpl) HandleListAssignments(c echo.Context) error {
	patientID, err := requireParam(c, "patientId")
	if err != nil {
		return err
	}
	ctx := c.Request().Context()

	patient, err := h.store.GetPatient(ctx, patientID)
	if err != nil {
		return err
	}
	stored, err := h.store.ListAssignments(ctx, patientID)
	if err != nil {
		return NewInternalError("failed to list assignments", err)
	}

	assignments := make([]models.Assignment, 0, len(stored))
	for _, a := range stored {
		assignments = append(assignments, *a)
	}

	resolved, err := h.resolver.ResolveAssignments(ctx, assignments, patient.FullName)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, newListResponse(resolved))
}

// HandleCreateAssignment sends a form template to a patient
func (h *FillSignHandlerImpl) HandleCreateAssignment(c echo.Context) error {
	patientID, err := requireParam(c, "patientId")
	if err != nil {
		return err
	}

	var req createAssignmentRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid JSON body", err)
	}
	req.normalize()
	if err := validateRequest(&req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	if _, err := h.store.GetPatient(ctx, patientID); err != nil {
		return err
	}

	title := req.TemplateTitle
	if title == "" {
		info, err := h.platform.GetFileInfo(ctx, req.TemplateFileID)
		if err != nil {
			return err
		}
		title = info.Title
	}

	link, err := h.platform.EnsureFillOutLink(ctx, req.TemplateFileID)
	if err != nil {
		return err
	}
	if link == nil || link.ShareLink == "" {
		return NewBadGatewayError("platform returned no fill-out link", req.TemplateFileID)
	}

	assignment := &models.Assignment{
		ID:             uuid.New().String(),
		PatientID:      patientID,
		TemplateFileID: req.TemplateFileID,
		TemplateTitle:  title,
		CreatedAt:      h.now().UTC(),
		RequestedBy:    req.RequestedBy,
		ShareLink:      link.ShareLink,
	}
	if err := h.store.PutAssignment(ctx, assignment); err != nil {
		return NewInternalError("failed to save assignment", err)
	}

	h.logger.Info("assignment created",
		zap.String("assignment_id", assignment.ID),
		zap.String("patient_id", patientID),
		zap.String("template_file_id", assignment.TemplateFileID))

	return c.JSON(http.StatusCreated, models.ResolvedAssignment{
		Assignment: *assignment,
		Status:     models.AssignmentStatusAction,
		OpenURL:    assignment.ShareLink,
	})
}

// HandleDeleteAssignment withdraws an assignment
func (h *FillSignHandlerImpl) HandleDeleteAssignment(c echo.Context) error {
	patientID, err := requireParam(c, "patientId")
	if err != nil {
		return err
	}
	assignmentID, err := requireParam(c, "assignmentId")
	if err != nil {
		return err
	}
	ctx := c.Request().Context()

	a, err := h.store.GetAssignment(ctx, assignmentID)
	if err != nil {
		return err
	}
	if a.PatientID != patientID {
		return NewNotFoundError("assignment", assignmentID)
	}
	if err := h.store.DeleteAssignment(ctx, assignmentID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return NewNotFoundError("assignment", assignmentID)
		}
		return NewInternalError("failed to delete assignment", err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Request types

type createAssignmentRequest struct {
	TemplateFileID string `json:"templateFileId" validate:"required,max=64"`
	TemplateTitle  string `json:"templateTitle" validate:"omitempty,max=255"`
	RequestedBy    string `json:"requestedBy" validate:"required,max=200"`
}

func (r *createAssignmentRequest) normalize() {
	r.TemplateFileID = strings.TrimSpace(r.TemplateFileID)
	r.TemplateTitle = strings.TrimSpace(r.TemplateTitle)
	r.RequestedBy = strings.TrimSpace(r.RequestedBy)
}
