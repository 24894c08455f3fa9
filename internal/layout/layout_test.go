package layout

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestEnsureCreatesLayout(t *testing.T) {
	root := t.TempDir()

	p, err := Ensure(root)
	if err != nil {
		t.Fatalf("Ensure() error = %v", err)
	}

	for _, dir := range []string{p.ImagesDir, p.SeedDir, p.KeysDir, p.RawData} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Errorf("expected directory %s: %v", dir, err)
			continue
		}
		if !info.IsDir() {
			t.Errorf("%s is not a directory", dir)
		}
	}

	if p.RawData != filepath.Join(root, "results", "raw_data") {
		t.Errorf("RawData = %q", p.RawData)
	}
}

func TestEnsureIsIdempotent(t *testing.T) {
	root := t.TempDir()

	first, err := Ensure(root)
	if err != nil {
		t.Fatalf("first Ensure() error = %v", err)
	}

	// Drop a file into an existing directory, then re-run. The file must
	// survive and the returned paths must be identical.
	marker := filepath.Join(first.ImagesDir, "base.img")
	if err := os.WriteFile(marker, []byte("image"), 0o644); err != nil {
		t.Fatal(err)
	}

	second, err := Ensure(root)
	if err != nil {
		t.Fatalf("second Ensure() error = %v", err)
	}
	if *first != *second {
		t.Errorf("paths changed between calls: %+v vs %+v", first, second)
	}
	if _, err := os.Stat(marker); err != nil {
		t.Errorf("existing file lost: %v", err)
	}
}

func TestEnsurePermissionError(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("running as root, permission checks are not enforced")
	}

	root := t.TempDir()
	if err := os.Chmod(root, 0o555); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chmod(root, 0o755) })

	_, err := Ensure(root)
	if err == nil {
		t.Fatal("expected error for read-only root")
	}

	var permErr *PermissionError
	if !errors.As(err, &permErr) {
		t.Errorf("error = %T, want *PermissionError", err)
	}
}

func TestPathHelpers(t *testing.T) {
	p := &Paths{
		ImagesDir: "/work/images",
		SeedDir:   "/work/cloud-init",
	}

	if got := p.BaseImagePath("ubuntu-base.img"); got != "/work/images/ubuntu-base.img" {
		t.Errorf("BaseImagePath() = %q", got)
	}
	if got := p.DiskPath("vm1.qcow2"); got != "/work/images/vm1.qcow2" {
		t.Errorf("DiskPath() = %q", got)
	}
	if got := p.SeedPath("vm1-seed.iso"); got != "/work/cloud-init/vm1-seed.iso" {
		t.Errorf("SeedPath() = %q", got)
	}
}
