package runlock

import (
	"errors"
	"path/filepath"
	"testing"
)

func TestAcquireAndRelease(t *testing.T) {
	lock, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := lock.Acquire(); err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if err := lock.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
	// Reacquirable after release.
	if err := lock.Acquire(); err != nil {
		t.Fatalf("reacquire: %v", err)
	}
	_ = lock.Release()
}

func TestSecondHolderGetsErrHeld(t *testing.T) {
	dir := t.TempDir()
	first, err := New(dir)
	if err != nil {
		t.Fatal(err)
	}
	if err := first.Acquire(); err != nil {
		t.Fatalf("first Acquire: %v", err)
	}
	defer first.Release()

	second, err := New(dir)
	if err != nil {
		t.Fatal(err)
	}
	if err := second.Acquire(); !errors.Is(err, ErrHeld) {
		t.Fatalf("second Acquire = %v, want ErrHeld", err)
	}
}

func TestNewCreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "locks")
	lock, err := New(dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if got := lock.Path(); filepath.Dir(got) != dir {
		t.Fatalf("Path = %s", got)
	}
}
