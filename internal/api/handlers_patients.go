// handlers_patients.go - Patient directory handlers
package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/docspace-portals/backend/internal/models"
	"github.com/docspace-portals/backend/internal/storage"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// PatientHandlerImpl implements the PatientHandler interface
type PatientHandlerImpl struct {
	store storage.Store
	now   func() time.Time
}

// NewPatientHandler creates a new patient handler instance
func NewPatientHandler(store storage.Store) PatientHandler {
	return &PatientHandlerImpl{store: store, now: time.Now}
}

// HandleListPatients returns all patients
func (h *PatientHandlerImpl) HandleListPatients(c echo.Context) error {
	patients, err := h.store.ListPatients(c.Request().Context())
	if err != nil {
		return NewInternalError("failed to list patients", err)
	}
	return c.JSON(http.StatusOK, newListResponse(patients))
}

// HandleCreatePatient registers a patient
func (h *PatientHandlerImpl) HandleCreatePatient(c echo.Context) error {
	var req createPatientRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid JSON body", err)
	}
	req.normalize()
	if err := validateRequest(&req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	patient := &models.Patient{
		ID:        req.ID,
		FullName:  req.FullName,
		Email:     req.Email,
		CreatedAt: h.now().UTC(),
	}
	if patient.ID == "" {
		patient.ID = uuid.New().String()
	} else if _, err := h.store.GetPatient(ctx, patient.ID); err == nil {
		return NewConflictError("patient already exists: " + patient.ID)
	}

	if err := h.store.PutPatient(ctx, patient); err != nil {
		return NewInternalError("failed to save patient", err)
	}
	return c.JSON(http.StatusCreated, patient)
}

// HandleGetPatient returns a single patient
func (h *PatientHandlerImpl) HandleGetPatient(c echo.Context) error {
	id, err := requireParam(c, "patientId")
	if err != nil {
		return err
	}
	patient, err := h.store.GetPatient(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, patient)
}

// Request types

type createPatientRequest struct {
	ID       string `json:"id" validate:"omitempty,max=64,excludesall=/?#"`
	FullName string `json:"fullName" validate:"required,max=200"`
	Email    string `json:"email" validate:"omitempty,email"`
}

func (r *createPatientRequest) normalize() {
	r.ID = strings.TrimSpace(r.ID)
	r.FullName = strings.Join(strings.Fields(r.FullName), " ")
	r.Email = strings.TrimSpace(r.Email)
}
