package disk

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCreateOverlayValidation(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "base.qcow2")

	// Zero size fails before touching the filesystem.
	if err := CreateOverlay(base, filepath.Join(dir, "vm.qcow2"), 0); err == nil {
		t.Error("expected error for zero size")
	}

	// A missing base image is rejected without invoking qemu-img.
	if err := CreateOverlay(base, filepath.Join(dir, "vm.qcow2"), 10); err == nil {
		t.Error("expected error for missing base image")
	}
}

func TestRemove(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vm.qcow2")
	if err := os.WriteFile(path, []byte("disk"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := Remove(path); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("disk file still present")
	}

	// Removing again is a no-op.
	if err := Remove(path); err != nil {
		t.Errorf("second Remove() error = %v", err)
	}
}
