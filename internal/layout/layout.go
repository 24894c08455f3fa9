// Package layout resolves and creates the on-disk working layout shared
// by all provisioning runs: base and per-VM images, cloud-init seed media,
// key material and raw benchmark results.
package layout

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// DirPermissions are the permissions for created directories.
	DirPermissions = 0o775
)

// Paths holds the resolved directories of a working layout.
type Paths struct {
	Root      string
	ImagesDir string
	SeedDir   string
	KeysDir   string
	RawData   string
}

// PermissionError reports a directory that could not be created or made
// writable by the operating process.
type PermissionError struct {
	Path string
	Err  error
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("layout: cannot prepare %s: %v", e.Path, e.Err)
}

func (e *PermissionError) Unwrap() error { return e.Err }

// Ensure creates the working layout under rootDir if absent and returns
// the resolved paths. It is idempotent: existing directories are reused.
func Ensure(rootDir string) (*Paths, error) {
	root, err := filepath.Abs(rootDir)
	if err != nil {
		return nil, &PermissionError{Path: rootDir, Err: err}
	}

	p := &Paths{
		Root:      root,
		ImagesDir: filepath.Join(root, "images"),
		SeedDir:   filepath.Join(root, "cloud-init"),
		KeysDir:   filepath.Join(root, "keys"),
		RawData:   filepath.Join(root, "results", "raw_data"),
	}

	for _, dir := range []string{p.ImagesDir, p.SeedDir, p.KeysDir, p.RawData} {
		if err := ensureDir(dir); err != nil {
			return nil, err
		}
	}

	return p, nil
}

// ensureDir creates dir if absent and verifies it is a writable directory.
func ensureDir(dir string) error {
	if err := os.MkdirAll(dir, DirPermissions); err != nil {
		return &PermissionError{Path: dir, Err: err}
	}

	info, err := os.Stat(dir)
	if err != nil {
		return &PermissionError{Path: dir, Err: err}
	}
	if !info.IsDir() {
		return &PermissionError{Path: dir, Err: fmt.Errorf("not a directory")}
	}

	// MkdirAll leaves pre-existing directories untouched, so probe
	// writability directly rather than trusting the mode bits.
	probe, err := os.CreateTemp(dir, ".layout-probe-*")
	if err != nil {
		return &PermissionError{Path: dir, Err: err}
	}
	name := probe.Name()
	_ = probe.Close()
	_ = os.Remove(name)

	return nil
}

// BaseImagePath returns the path of the shared base image inside the layout.
func (p *Paths) BaseImagePath(fileName string) string {
	return filepath.Join(p.ImagesDir, fileName)
}

// DiskPath returns the path for a per-VM disk file inside the layout.
func (p *Paths) DiskPath(fileName string) string {
	return filepath.Join(p.ImagesDir, fileName)
}

// SeedPath returns the path for a per-VM seed ISO inside the layout.
func (p *Paths) SeedPath(fileName string) string {
	return filepath.Join(p.SeedDir, fileName)
}
