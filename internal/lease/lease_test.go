package lease

import (
	"errors"
	"testing"

	"tagflow/internal/catalog"
)

func TestFileManager_Acquire(t *testing.T) {
	m, err := NewFileManager(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileManager() error = %v", err)
	}

	first, err := m.Acquire(1)
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}

	if _, err := m.Acquire(1); !errors.Is(err, catalog.ErrScanInProgress) {
		t.Errorf("second Acquire() error = %v, want ErrScanInProgress", err)
	}

	other, err := m.Acquire(2)
	if err != nil {
		t.Fatalf("Acquire(other library) error = %v", err)
	}
	defer other.Release()

	if err := first.Release(); err != nil {
		t.Fatalf("Release() error = %v", err)
	}
	if err := first.Release(); err != nil {
		t.Errorf("second Release() error = %v", err)
	}

	again, err := m.Acquire(1)
	if err != nil {
		t.Fatalf("Acquire() after Release() error = %v", err)
	}
	again.Release()
}

func TestFileManager_SharedDirectory(t *testing.T) {
	dir := t.TempDir()
	a, err := NewFileManager(dir)
	if err != nil {
		t.Fatalf("NewFileManager() error = %v", err)
	}
	b, err := NewFileManager(dir)
	if err != nil {
		t.Fatalf("NewFileManager() error = %v", err)
	}

	held, err := a.AcquireName("daemon")
	if err != nil {
		t.Fatalf("AcquireName() error = %v", err)
	}
	defer held.Release()

	if _, err := b.AcquireName("daemon"); !errors.Is(err, catalog.ErrScanInProgress) {
		t.Errorf("AcquireName() from second manager error = %v, want ErrScanInProgress", err)
	}
}

func TestMemoryManager(t *testing.T) {
	m := NewMemoryManager()

	l, err := m.Acquire(7)
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	if !m.Held(7) {
		t.Error("Held() = false while lease is taken")
	}
	if _, err := m.Acquire(7); !errors.Is(err, catalog.ErrScanInProgress) {
		t.Errorf("second Acquire() error = %v, want ErrScanInProgress", err)
	}

	l.Release()
	if m.Held(7) {
		t.Error("Held() = true after Release()")
	}
}
