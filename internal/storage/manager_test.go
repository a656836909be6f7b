// manager_test.go - Tests for the write-buffered memory store
package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/docspace-portals/backend/internal/models"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m, goleak.IgnoreTopFunction("database/sql.(*DB).connectionOpener"))
}

func createTestStore(t *testing.T) (*MemoryStore, string) {
	path := filepath.Join(t.TempDir(), "store", "portal.msgpack")
	store, err := NewMemoryStore(path, nil)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	return store, path
}

func testAssignment(id, patientID string, created time.Time) *models.Assignment {
	return &models.Assignment{
		ID:             id,
		PatientID:      patientID,
		TemplateFileID: "tpl-1",
		TemplateTitle:  "Consent Form.pdf",
		CreatedAt:      created,
		RequestedBy:    "dr-house",
		ShareLink:      "https://docspace.example/s/" + id,
	}
}

func TestNewMemoryStore(t *testing.T) {
	t.Run("creates store directory", func(t *testing.T) {
		_, path := createTestStore(t)
		if _, err := os.Stat(filepath.Dir(path)); os.IsNotExist(err) {
			t.Error("Expected store directory to be created")
		}
	})

	t.Run("works without persistence", func(t *testing.T) {
		store, err := NewMemoryStore("", nil)
		if err != nil {
			t.Fatalf("Failed to create store: %v", err)
		}
		if err := store.PutPatient(context.Background(), &models.Patient{ID: "p1", FullName: "John Smith"}); err != nil {
			t.Fatalf("Failed to put patient: %v", err)
		}
		if err := store.Flush(); err != nil {
			t.Errorf("Expected flush without path to be a no-op, got %v", err)
		}
	})

	t.Run("rejects corrupt snapshot", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.msgpack")
		if err := os.WriteFile(path, []byte{0xc1, 0xc1}, 0644); err != nil {
			t.Fatal(err)
		}
		if _, err := NewMemoryStore(path, nil); err == nil {
			t.Error("Expected error for corrupt snapshot")
		}
	})
}

func TestMemoryStore_Patients(t *testing.T) {
	ctx := context.Background()
	store, _ := createTestStore(t)

	for _, p := range []*models.Patient{
		{ID: "p2", FullName: "Jane Doe"},
		{ID: "p1", FullName: "John Smith"},
	} {
		if err := store.PutPatient(ctx, p); err != nil {
			t.Fatalf("Failed to put patient: %v", err)
		}
	}

	got, err := store.GetPatient(ctx, "p1")
	if err != nil {
		t.Fatalf("Failed to get patient: %v", err)
	}
	if got.FullName != "John Smith" {
		t.Errorf("Expected name 'John Smith', got %v", got.FullName)
	}

	list, err := store.ListPatients(ctx)
	if err != nil {
		t.Fatalf("Failed to list patients: %v", err)
	}
	if len(list) != 2 || list[0].ID != "p2" {
		t.Errorf("Expected patients sorted by name, got %+v", list)
	}

	if _, err := store.GetPatient(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStore_Assignments(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	t.Run("lists most recent first", func(t *testing.T) {
		store, _ := createTestStore(t)
		for i, id := range []string{"a1", "a2", "a3"} {
			if err := store.PutAssignment(ctx, testAssignment(id, "p1", base.Add(time.Duration(i)*time.Hour))); err != nil {
				t.Fatalf("Failed to put assignment: %v", err)
			}
		}
		if err := store.PutAssignment(ctx, testAssignment("other", "p2", base)); err != nil {
			t.Fatalf("Failed to put assignment: %v", err)
		}

		list, err := store.ListAssignments(ctx, "p1")
		if err != nil {
			t.Fatalf("Failed to list assignments: %v", err)
		}
		if len(list) != 3 {
			t.Fatalf("Expected 3 assignments, got %d", len(list))
		}
		if list[0].ID != "a3" || list[2].ID != "a1" {
			t.Errorf("Expected descending order, got %s..%s", list[0].ID, list[2].ID)
		}
	})

	t.Run("assignments are immutable", func(t *testing.T) {
		store, _ := createTestStore(t)
		if err := store.PutAssignment(ctx, testAssignment("a1", "p1", base)); err != nil {
			t.Fatalf("Failed to put assignment: %v", err)
		}
		err := store.PutAssignment(ctx, testAssignment("a1", "p1", base))
		if !errors.Is(err, ErrAlreadyExists) {
			t.Errorf("Expected ErrAlreadyExists, got %v", err)
		}
	})

	t.Run("returned records are copies", func(t *testing.T) {
		store, _ := createTestStore(t)
		if err := store.PutAssignment(ctx, testAssignment("a1", "p1", base)); err != nil {
			t.Fatal(err)
		}
		got, _ := store.GetAssignment(ctx, "a1")
		got.ShareLink = "mutated"
		again, _ := store.GetAssignment(ctx, "a1")
		if again.ShareLink == "mutated" {
			t.Error("Expected store to be isolated from caller mutation")
		}
	})

	t.Run("delete", func(t *testing.T) {
		store, _ := createTestStore(t)
		if err := store.PutAssignment(ctx, testAssignment("a1", "p1", base)); err != nil {
			t.Fatal(err)
		}
		if err := store.DeleteAssignment(ctx, "a1"); err != nil {
			t.Fatalf("Failed to delete: %v", err)
		}
		if _, err := store.GetAssignment(ctx, "a1"); !errors.Is(err, ErrNotFound) {
			t.Errorf("Expected ErrNotFound after delete, got %v", err)
		}
		if err := store.DeleteAssignment(ctx, "a1"); !errors.Is(err, ErrNotFound) {
			t.Errorf("Expected ErrNotFound deleting twice, got %v", err)
		}
	})
}

func TestMemoryStore_FlushAndReload(t *testing.T) {
	ctx := context.Background()
	store, path := createTestStore(t)
	created := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	if err := store.PutPatient(ctx, &models.Patient{ID: "p1", FullName: "John Smith", CreatedAt: created}); err != nil {
		t.Fatal(err)
	}
	if err := store.PutAssignment(ctx, testAssignment("a1", "p1", created)); err != nil {
		t.Fatal(err)
	}

	if !store.Dirty() {
		t.Fatal("Expected store to be dirty after writes")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatal("Expected no snapshot before flush")
	}

	if err := store.Flush(); err != nil {
		t.Fatalf("Failed to flush: %v", err)
	}
	if store.Dirty() {
		t.Error("Expected store to be clean after flush")
	}

	reloaded, err := NewMemoryStore(path, nil)
	if err != nil {
		t.Fatalf("Failed to reload store: %v", err)
	}
	a, err := reloaded.GetAssignment(ctx, "a1")
	if err != nil {
		t.Fatalf("Expected assignment after reload: %v", err)
	}
	if !a.CreatedAt.Equal(created) {
		t.Errorf("Expected createdAt %v, got %v", created, a.CreatedAt)
	}
	if a.ShareLink != "https://docspace.example/s/a1" {
		t.Errorf("Unexpected share link %q", a.ShareLink)
	}
	p, err := reloaded.GetPatient(ctx, "p1")
	if err != nil || p.FullName != "John Smith" {
		t.Errorf("Expected patient after reload, got %+v, %v", p, err)
	}
}

func TestMemoryStore_CloseFlushes(t *testing.T) {
	store, path := createTestStore(t)
	if err := store.PutPatient(context.Background(), &models.Patient{ID: "p1", FullName: "John Smith"}); err != nil {
		t.Fatal(err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Failed to close: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("Expected snapshot after close: %v", err)
	}
}

func TestMemoryStore_ConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	store, _ := createTestStore(t)
	base := time.Now()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := string(rune('a'+i%26)) + time.Duration(i).String()
			_ = store.PutAssignment(ctx, testAssignment(id, "p1", base.Add(time.Duration(i)*time.Second)))
			_, _ = store.ListAssignments(ctx, "p1")
			_ = store.Flush()
		}(i)
	}
	wg.Wait()

	list, err := store.ListAssignments(ctx, "p1")
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 20 {
		t.Errorf("Expected 20 assignments, got %d", len(list))
	}
	if err := store.Flush(); err != nil {
		t.Fatal(err)
	}
	if store.Dirty() {
		t.Error("Expected clean store after final flush")
	}
}
