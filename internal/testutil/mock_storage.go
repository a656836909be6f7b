// mock_storage.go - Mock store implementation for testing
package testutil

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/docspace-portals/backend/internal/models"
	"github.com/docspace-portals/backend/internal/storage"
)

// MockStore implements storage.Store for testing
type MockStore struct {
	patients    map[string]*models.Patient
	assignments map[string]*models.Assignment
	mu          sync.RWMutex

	// Err, when set, is returned by every operation.
	Err error
}

// NewMockStore creates an empty mock store
func NewMockStore() *MockStore {
	return &MockStore{
		patients:    make(map[string]*models.Patient),
		assignments: make(map[string]*models.Assignment),
	}
}

func (m *MockStore) PutPatient(_ context.Context, p *models.Patient) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	cp := *p
	m.patients[p.ID] = &cp
	return nil
}

func (m *MockStore) GetPatient(_ context.Context, id string) (*models.Patient, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Err != nil {
		return nil, m.Err
	}
	p, ok := m.patients[id]
	if !ok {
		return nil, fmt.Errorf("patient %s: %w", id, storage.ErrNotFound)
	}
	cp := *p
	return &cp, nil
}

func (m *MockStore) ListPatients(_ context.Context) ([]*models.Patient, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Err != nil {
		return nil, m.Err
	}
	list := make([]*models.Patient, 0, len(m.patients))
	for _, p := range m.patients {
		cp := *p
		list = append(list, &cp)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list, nil
}

func (m *MockStore) PutAssignment(_ context.Context, a *models.Assignment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	if _, ok := m.assignments[a.ID]; ok {
		return fmt.Errorf("assignment %s: %w", a.ID, storage.ErrAlreadyExists)
	}
	cp := *a
	m.assignments[a.ID] = &cp
	return nil
}

func (m *MockStore) GetAssignment(_ context.Context, id string) (*models.Assignment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Err != nil {
		return nil, m.Err
	}
	a, ok := m.assignments[id]
	if !ok {
		return nil, fmt.Errorf("assignment %s: %w", id, storage.ErrNotFound)
	}
	cp := *a
	return &cp, nil
}

func (m *MockStore) ListAssignments(_ context.Context, patientID string) ([]*models.Assignment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Err != nil {
		return nil, m.Err
	}
	var list []*models.Assignment
	for _, a := range m.assignments {
		if a.PatientID == patientID {
			cp := *a
			list = append(list, &cp)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].CreatedAt.After(list[j].CreatedAt) })
	return list, nil
}

func (m *MockStore) DeleteAssignment(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	if _, ok := m.assignments[id]; !ok {
		return fmt.Errorf("assignment %s: %w", id, storage.ErrNotFound)
	}
	delete(m.assignments, id)
	return nil
}

func (m *MockStore) Close() error {
	return nil
}

var _ storage.Store = (*MockStore)(nil)
