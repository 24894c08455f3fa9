// Package disk creates and removes per-VM qcow2 overlay disks.
//
// Overlays are created with qemu-img against the shared base image, so
// the base is never written to and each VM gets an independent
// copy-on-write disk sized from its profile.
package disk

import (
	"fmt"
	"os"
	"os/exec"
)

// CreateOverlay creates a qcow2 overlay at diskPath backed by basePath,
// with a virtual size of sizeGB. The backing image is assumed to be qcow2.
func CreateOverlay(basePath, diskPath string, sizeGB int) error {
	if sizeGB <= 0 {
		return fmt.Errorf("disk size must be > 0, got %d", sizeGB)
	}
	if _, err := os.Stat(basePath); err != nil {
		return fmt.Errorf("base image not available: %w", err)
	}

	cmd := exec.Command(
		"qemu-img", "create",
		"-f", "qcow2",
		"-b", basePath,
		"-F", "qcow2",
		diskPath,
		fmt.Sprintf("%dG", sizeGB),
	)

	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("qemu-img create failed: %w (output: %s)", err, string(output))
	}

	return nil
}

// Remove deletes a disk file. Removing an absent file is not an error,
// so teardown can run repeatedly.
func Remove(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove disk %s: %w", path, err)
	}
	return nil
}
