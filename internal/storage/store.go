// Package storage persists portal patients and fill-and-sign assignments.
package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/docspace-portals/backend/internal/models"
	"go.uber.org/zap"
)

// Supported store drivers.
const (
	DriverMemory = "memory"
	DriverDuckDB = "duckdb"
)

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("storage: not found")
	// ErrAlreadyExists is returned when creating a record whose id is taken.
	ErrAlreadyExists = errors.New("storage: already exists")
)

// Store is the repository for patients and assignments.
type Store interface {
	PutPatient(ctx context.Context, p *models.Patient) error
	GetPatient(ctx context.Context, id string) (*models.Patient, error)
	ListPatients(ctx context.Context) ([]*models.Patient, error)

	// PutAssignment stores a new assignment. Assignments are immutable, so
	// an existing id yields ErrAlreadyExists.
	PutAssignment(ctx context.Context, a *models.Assignment) error
	GetAssignment(ctx context.Context, id string) (*models.Assignment, error)
	// ListAssignments returns a patient's assignments, most recent first.
	ListAssignments(ctx context.Context, patientID string) ([]*models.Assignment, error)
	DeleteAssignment(ctx context.Context, id string) error

	Close() error
}

// Flushable is implemented by stores that buffer writes.
type Flushable interface {
	Flush() error
}

// Open creates the store selected by driver. path is the snapshot file for
// the memory driver and the database file for duckdb.
func Open(driver, path string, logger *zap.Logger) (Store, error) {
	switch driver {
	case "", DriverMemory:
		return NewMemoryStore(path, logger)
	case DriverDuckDB:
		return NewDuckStore(path, logger)
	default:
		return nil, fmt.Errorf("unknown storage driver: %s", driver)
	}
}
