package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/docspace-portals/backend/internal/metrics"
	"github.com/docspace-portals/backend/internal/models"
	"github.com/vmihailenco/msgpack/v5"
	"go.uber.org/zap"
)

const snapshotVersion = 1

// snapshot is the on-disk form of a MemoryStore.
type snapshot struct {
	Version     int                 `msgpack:"version"`
	Patients    []models.Patient    `msgpack:"patients"`
	Assignments []models.Assignment `msgpack:"assignments"`
}

// MemoryStore implements Store in memory with a write buffer. Mutations only
// mark the store dirty; Flush writes a msgpack snapshot to disk.
type MemoryStore struct {
	mu          sync.RWMutex
	path        string
	logger      *zap.Logger
	patients    map[string]*models.Patient
	assignments map[string]*models.Assignment

	// generation counts mutations; flushed is the generation last on disk.
	generation uint64
	flushed    uint64
	flushMu    sync.Mutex
}

// NewMemoryStore creates a MemoryStore. If path is non-empty an existing
// snapshot is loaded from it and Flush persists to it.
func NewMemoryStore(path string, logger *zap.Logger) (*MemoryStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &MemoryStore{
		path:        path,
		logger:      logger.Named("store"),
		patients:    make(map[string]*models.Patient),
		assignments: make(map[string]*models.Assignment),
	}
	if path == "" {
		return s, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating store directory: %w", err)
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *MemoryStore) load() error {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading snapshot: %w", err)
	}

	var snap snapshot
	if err := msgpack.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("decoding snapshot: %w", err)
	}
	if snap.Version != snapshotVersion {
		return fmt.Errorf("unsupported snapshot version: %d", snap.Version)
	}

	for i := range snap.Patients {
		p := snap.Patients[i]
		s.patients[p.ID] = &p
	}
	for i := range snap.Assignments {
		a := snap.Assignments[i]
		s.assignments[a.ID] = &a
	}
	s.logger.Info("snapshot loaded",
		zap.String("path", s.path),
		zap.Int("patients", len(s.patients)),
		zap.Int("assignments", len(s.assignments)))
	return nil
}

// PutPatient creates or replaces a patient.
func (s *MemoryStore) PutPatient(_ context.Context, p *models.Patient) error {
	cp := *p
	s.mu.Lock()
	defer s.mu.Unlock()
	s.patients[p.ID] = &cp
	s.generation++
	return nil
}

// GetPatient retrieves a patient by ID.
func (s *MemoryStore) GetPatient(_ context.Context, id string) (*models.Patient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.patients[id]
	if !ok {
		return nil, fmt.Errorf("patient %s: %w", id, ErrNotFound)
	}
	cp := *p
	return &cp, nil
}

// ListPatients returns all patients ordered by name.
func (s *MemoryStore) ListPatients(_ context.Context) ([]*models.Patient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := make([]*models.Patient, 0, len(s.patients))
	for _, p := range s.patients {
		cp := *p
		list = append(list, &cp)
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].FullName != list[j].FullName {
			return list[i].FullName < list[j].FullName
		}
		return list[i].ID < list[j].ID
	})
	return list, nil
}

// PutAssignment stores a new assignment.
func (s *MemoryStore) PutAssignment(_ context.Context, a *models.Assignment) error {
	cp := *a
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.assignments[a.ID]; ok {
		return fmt.Errorf("assignment %s: %w", a.ID, ErrAlreadyExists)
	}
	s.assignments[a.ID] = &cp
	s.generation++
	return nil
}

// GetAssignment retrieves an assignment by ID.
func (s *MemoryStore) GetAssignment(_ context.Context, id string) (*models.Assignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.assignments[id]
	if !ok {
		return nil, fmt.Errorf("assignment %s: %w", id, ErrNotFound)
	}
	cp := *a
	return &cp, nil
}

// ListAssignments returns a patient's assignments, most recent first.
func (s *MemoryStore) ListAssignments(_ context.Context, patientID string) ([]*models.Assignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var list []*models.Assignment
	for _, a := range s.assignments {
		if a.PatientID != patientID {
			continue
		}
		cp := *a
		list = append(list, &cp)
	}
	sort.Slice(list, func(i, j int) bool {
		if !list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].CreatedAt.After(list[j].CreatedAt)
		}
		return list[i].ID < list[j].ID
	})
	return list, nil
}

// DeleteAssignment removes an assignment.
func (s *MemoryStore) DeleteAssignment(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.assignments[id]; !ok {
		return fmt.Errorf("assignment %s: %w", id, ErrNotFound)
	}
	delete(s.assignments, id)
	s.generation++
	return nil
}

// Dirty reports whether there are mutations not yet flushed.
func (s *MemoryStore) Dirty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generation != s.flushed
}

// Flush writes a snapshot if the store changed since the last flush.
// The snapshot is written to a temp file and renamed into place.
func (s *MemoryStore) Flush() error {
	if s.path == "" {
		return nil
	}
	s.flushMu.Lock()
	defer s.flushMu.Unlock()

	s.mu.RLock()
	if s.generation == s.flushed {
		s.mu.RUnlock()
		return nil
	}
	gen := s.generation
	snap := snapshot{
		Version:     snapshotVersion,
		Patients:    make([]models.Patient, 0, len(s.patients)),
		Assignments: make([]models.Assignment, 0, len(s.assignments)),
	}
	for _, p := range s.patients {
		snap.Patients = append(snap.Patients, *p)
	}
	for _, a := range s.assignments {
		snap.Assignments = append(snap.Assignments, *a)
	}
	s.mu.RUnlock()

	data, err := msgpack.Marshal(&snap)
	if err != nil {
		metrics.RecordFlush("error")
		return fmt.Errorf("encoding snapshot: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		metrics.RecordFlush("error")
		return fmt.Errorf("writing snapshot: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		metrics.RecordFlush("error")
		return fmt.Errorf("replacing snapshot: %w", err)
	}

	s.mu.Lock()
	if gen > s.flushed {
		s.flushed = gen
	}
	s.mu.Unlock()

	metrics.RecordFlush("ok")
	s.logger.Debug("snapshot flushed", zap.String("path", s.path), zap.Uint64("generation", gen))
	return nil
}

// Close flushes any buffered writes.
func (s *MemoryStore) Close() error {
	return s.Flush()
}
