// Package naming provides the deterministic naming conventions for
// per-VM artifacts: disk overlays, cloud-init seed ISOs, result files
// and run-scoped VM names.
//
// Every path the provisioner creates is derived from these helpers, so
// teardown can reconstruct what to delete from the VM name alone.
package naming

import (
	"fmt"
	"regexp"
	"time"
)

// BaseImageFileName is the fixed file name of the shared base cloud image.
const BaseImageFileName = "ubuntu-base.img"

// vmNamePattern matches libvirt domain name requirements: must start and
// end with an alphanumeric character, hyphens and underscores allowed inside.
var vmNamePattern = regexp.MustCompile(`^[a-z0-9]([a-z0-9_-]*[a-z0-9])?$`)

// ValidateVMName checks that a VM name is usable as a libvirt domain name
// and as a component of the artifact file names below.
func ValidateVMName(name string) error {
	if name == "" {
		return fmt.Errorf("VM name is required")
	}
	if !vmNamePattern.MatchString(name) {
		return fmt.Errorf("VM name must start and end with alphanumeric characters and contain only alphanumeric, hyphens, or underscores, got %q", name)
	}
	return nil
}

// DiskFileName returns the file name for a VM's qcow2 overlay disk.
// Format: {vmName}.qcow2
func DiskFileName(vmName string) string {
	return fmt.Sprintf("%s.qcow2", vmName)
}

// SeedFileName returns the file name for a VM's cloud-init seed ISO.
// Format: {vmName}-seed.iso
func SeedFileName(vmName string) string {
	return fmt.Sprintf("%s-seed.iso", vmName)
}

// ResultFileName returns the file name for a raw benchmark result.
// Format: {vmName}_{benchmark}_{timestamp}.json
func ResultFileName(vmName, benchmark string, ts time.Time) string {
	return fmt.Sprintf("%s_%s_%s.json", vmName, benchmark, ts.Format("20060102_150405"))
}

// RunID returns a run identifier derived from the given time.
// Format: 20060102_150405 (matches result file timestamps)
func RunID(ts time.Time) string {
	return ts.Format("20060102_150405")
}

// MatrixVMName returns the VM name for a test-matrix entry.
// Format: benchmark-vm-{profile}-{runID}
func MatrixVMName(profile, runID string) string {
	return fmt.Sprintf("benchmark-vm-%s-%s", profile, runID)
}
