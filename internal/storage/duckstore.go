package storage

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/docspace-portals/backend/internal/models"
	"github.com/marcboeker/go-duckdb"
	"go.uber.org/zap"
)

var duckSchema = []string{
	`CREATE TABLE IF NOT EXISTS patients (
		id         VARCHAR PRIMARY KEY,
		full_name  VARCHAR NOT NULL,
		email      VARCHAR,
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS assignments (
		id               VARCHAR PRIMARY KEY,
		patient_id       VARCHAR NOT NULL,
		template_file_id VARCHAR NOT NULL,
		template_title   VARCHAR NOT NULL,
		created_at       TIMESTAMP NOT NULL,
		requested_by     VARCHAR,
		share_link       VARCHAR
	)`,
	`CREATE INDEX IF NOT EXISTS idx_assignments_patient ON assignments (patient_id)`,
}

// DuckStore implements Store on a DuckDB database file.
type DuckStore struct {
	db     *sql.DB
	dbPath string
	logger *zap.Logger
}

// NewDuckStore opens (or creates) the database at dbPath.
func NewDuckStore(dbPath string, logger *zap.Logger) (*DuckStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if dbPath != "" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("creating store directory: %w", err)
		}
	}

	connector, err := duckdb.NewConnector(dbPath, func(execer driver.ExecerContext) error {
		pragmas := []string{
			"PRAGMA threads=2",
			"PRAGMA enable_progress_bar=false",
		}
		for _, pragma := range pragmas {
			if _, err := execer.ExecContext(context.Background(), pragma, nil); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create DuckDB connector: %w", err)
	}

	db := sql.OpenDB(connector)
	for _, stmt := range duckSchema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to create schema: %w", err)
		}
	}

	logger.Named("store").Info("duckdb store opened", zap.String("path", dbPath))
	return &DuckStore{
		db:     db,
		dbPath: dbPath,
		logger: logger.Named("store"),
	}, nil
}

// PutPatient creates or replaces a patient.
func (s *DuckStore) PutPatient(ctx context.Context, p *models.Patient) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO patients (id, full_name, email, created_at) VALUES (?, ?, ?, ?)`,
		p.ID, p.FullName, p.Email, p.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("saving patient %s: %w", p.ID, err)
	}
	return nil
}

// GetPatient retrieves a patient by ID.
func (s *DuckStore) GetPatient(ctx context.Context, id string) (*models.Patient, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, full_name, COALESCE(email, ''), created_at FROM patients WHERE id = ?`, id)
	p, err := scanPatient(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("patient %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("loading patient %s: %w", id, err)
	}
	return p, nil
}

// ListPatients returns all patients ordered by name.
func (s *DuckStore) ListPatients(ctx context.Context) ([]*models.Patient, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, full_name, COALESCE(email, ''), created_at FROM patients ORDER BY full_name, id`)
	if err != nil {
		return nil, fmt.Errorf("listing patients: %w", err)
	}
	defer rows.Close()

	list := make([]*models.Patient, 0)
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning patient: %w", err)
		}
		list = append(list, p)
	}
	return list, rows.Err()
}

// PutAssignment stores a new assignment.
func (s *DuckStore) PutAssignment(ctx context.Context, a *models.Assignment) error {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO assignments (id, patient_id, template_file_id, template_title, created_at, requested_by, share_link)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING`,
		a.ID, a.PatientID, a.TemplateFileID, a.TemplateTitle, a.CreatedAt.UTC(), a.RequestedBy, a.ShareLink)
	if isDuplicateKey(err) {
		return fmt.Errorf("assignment %s: %w", a.ID, ErrAlreadyExists)
	}
	if err != nil {
		return fmt.Errorf("saving assignment %s: %w", a.ID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("assignment %s: %w", a.ID, ErrAlreadyExists)
	}
	return nil
}

// GetAssignment retrieves an assignment by ID.
func (s *DuckStore) GetAssignment(ctx context.Context, id string) (*models.Assignment, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, patient_id, template_file_id, template_title, created_at,
		       COALESCE(requested_by, ''), COALESCE(share_link, '')
		FROM assignments WHERE id = ?`, id)
	a, err := scanAssignment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("assignment %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("loading assignment %s: %w", id, err)
	}
	return a, nil
}

// ListAssignments returns a patient's assignments, most recent first.
func (s *DuckStore) ListAssignments(ctx context.Context, patientID string) ([]*models.Assignment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, patient_id, template_file_id, template_title, created_at,
		       COALESCE(requested_by, ''), COALESCE(share_link, '')
		FROM assignments WHERE patient_id = ?
		ORDER BY created_at DESC, id`, patientID)
	if err != nil {
		return nil, fmt.Errorf("listing assignments: %w", err)
	}
	defer rows.Close()

	var list []*models.Assignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning assignment: %w", err)
		}
		list = append(list, a)
	}
	return list, rows.Err()
}

// DeleteAssignment removes an assignment.
func (s *DuckStore) DeleteAssignment(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM assignments WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting assignment %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("assignment %s: %w", id, ErrNotFound)
	}
	return nil
}

// Close closes the database.
func (s *DuckStore) Close() error {
	return s.db.Close()
}

// isDuplicateKey reports a primary key violation. A concurrent insert of the
// same id surfaces as a commit conflict rather than a skipped row.
func isDuplicateKey(err error) bool {
	var duckErr *duckdb.Error
	if !errors.As(err, &duckErr) {
		return false
	}
	return duckErr.Type == duckdb.ErrorTypeConstraint || duckErr.Type == duckdb.ErrorTypeTransaction
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPatient(row scanner) (*models.Patient, error) {
	var p models.Patient
	var created time.Time
	if err := row.Scan(&p.ID, &p.FullName, &p.Email, &created); err != nil {
		return nil, err
	}
	p.CreatedAt = created.UTC()
	return &p, nil
}

func scanAssignment(row scanner) (*models.Assignment, error) {
	var a models.Assignment
	var created time.Time
	if err := row.Scan(&a.ID, &a.PatientID, &a.TemplateFileID, &a.TemplateTitle, &created, &a.RequestedBy, &a.ShareLink); err != nil {
		return nil, err
	}
	a.CreatedAt = created.UTC()
	return &a, nil
}
