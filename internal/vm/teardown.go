package vm

import (
	"context"
	"fmt"
	"log"

	"github.com/vmbench/vmbench/internal/disk"
	"github.com/vmbench/vmbench/internal/naming"
)

// Domain state constants (from libvirt VIR_DOMAIN_* values).
const (
	domainStateRunning = 1
)

// Teardown releases everything the handle owns: force-stops the domain
// if running, undefines it, and removes the disk and seed files. Each
// step is attempted independently; one failing does not stop the rest.
// Step failures are aggregated into a CleanupError.
//
// Teardown is idempotent: a second call on a fully torn down handle
// does nothing and returns nil.
func (p *Provisioner) Teardown(ctx context.Context, h *Handle) error {
	if h == nil || h.State == StateTerminated {
		return nil
	}

	log.Printf("Tearing down VM %q...", h.Spec.Name)
	var stepErrs []error

	// Step 1: force-stop the domain if it is running.
	if h.domainDefined {
		state, _, err := p.lv.DomainGetState(h.Domain, 0)
		if err != nil {
			log.Printf("Note: could not query state of %q before stop: %v", h.Spec.Name, err)
			// Attempt the stop anyway; stopping a shut-off domain is
			// tolerated below.
			state = domainStateRunning
		}
		if state == domainStateRunning {
			if err := p.lv.DomainDestroy(h.Domain); err != nil {
				// The domain may have never started or already exited.
				log.Printf("Note: force-stop of %q: %v", h.Spec.Name, err)
			}
		}
	}

	// Step 2: remove the definition from the hypervisor.
	if h.domainDefined {
		if err := p.lv.DomainUndefine(h.Domain); err != nil {
			stepErrs = append(stepErrs, fmt.Errorf("undefine: %w", err))
			log.Printf("Warning: failed to undefine %q: %v", h.Spec.Name, err)
		} else {
			h.domainDefined = false
		}
	}

	// Step 3: delete the backing disk.
	if h.diskCreated {
		if err := disk.Remove(h.DiskPath); err != nil {
			stepErrs = append(stepErrs, fmt.Errorf("disk: %w", err))
			log.Printf("Warning: failed to remove disk of %q: %v", h.Spec.Name, err)
		} else {
			h.diskCreated = false
		}
	}

	// Step 4: delete the seed media.
	if h.seedCreated {
		if err := disk.Remove(h.SeedPath); err != nil {
			stepErrs = append(stepErrs, fmt.Errorf("seed: %w", err))
			log.Printf("Warning: failed to remove seed of %q: %v", h.Spec.Name, err)
		} else {
			h.seedCreated = false
		}
	}

	if len(stepErrs) > 0 {
		return &CleanupError{Name: h.Spec.Name, Errs: stepErrs}
	}

	h.State = StateTerminated
	log.Printf("VM %q torn down", h.Spec.Name)
	return nil
}

// TeardownByName reconstructs a handle for a previously provisioned VM
// from its name and tears it down. Used by the destroy command, where
// no in-memory handle survives.
func (p *Provisioner) TeardownByName(ctx context.Context, name string) error {
	h := &Handle{
		Spec:     Spec{Name: name},
		DiskPath: p.paths.DiskPath(naming.DiskFileName(name)),
		SeedPath: p.paths.SeedPath(naming.SeedFileName(name)),
		State:    StateFailed,
		// Artifact files may or may not exist; removal tolerates
		// absence, so claim both.
		diskCreated: true,
		seedCreated: true,
	}

	dom, err := p.lv.DomainLookupByName(name)
	if err == nil {
		h.Domain = dom
		h.domainDefined = true
	} else {
		log.Printf("Note: domain %q not defined, cleaning files only", name)
	}

	return p.Teardown(ctx, h)
}
