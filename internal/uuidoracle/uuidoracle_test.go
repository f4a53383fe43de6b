package uuidoracle

import (
	"os"
	"path/filepath"
	"testing"
)

func TestUUIDFor_NonEmpty(t *testing.T) {
	o := New()
	id, err := o.UUIDFor(t.TempDir())
	if err != nil {
		t.Fatalf("UUIDFor failed: %v", err)
	}
	if id == "" {
		t.Error("expected a non-empty uuid")
	}
}

func TestUUIDFor_Deterministic(t *testing.T) {
	dir := t.TempDir()
	o := New()

	first, err := o.UUIDFor(dir)
	if err != nil {
		t.Fatalf("UUIDFor failed: %v", err)
	}
	second, err := o.UUIDFor(dir)
	if err != nil {
		t.Fatalf("UUIDFor failed: %v", err)
	}
	if first != second {
		t.Errorf("expected the same mount point to yield the same uuid, got %q and %q", first, second)
	}
}

func TestUUIDFor_RelativeAndAbsoluteAgree(t *testing.T) {
	dir := t.TempDir()
	o := New()

	abs, err := o.UUIDFor(dir)
	if err != nil {
		t.Fatalf("UUIDFor(abs) failed: %v", err)
	}

	cwd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd failed: %v", err)
	}
	relPath, err := filepath.Rel(cwd, dir)
	if err != nil {
		t.Fatalf("Rel failed: %v", err)
	}

	rel, err := o.UUIDFor(relPath)
	if err != nil {
		t.Fatalf("UUIDFor(rel) failed: %v", err)
	}

	if abs != rel {
		t.Errorf("expected path resolution to normalize before hashing, got %q and %q", abs, rel)
	}
}
