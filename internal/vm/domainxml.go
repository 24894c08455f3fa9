package vm

import (
	"github.com/vmbench/vmbench/internal/config"
	benchlibvirt "github.com/vmbench/vmbench/internal/libvirt"
)

// generateDomainXML builds the hypervisor-facing definition for a handle
// from its sizing profile and allocated artifact paths.
func generateDomainXML(h *Handle, profile config.Profile) (string, error) {
	return benchlibvirt.GenerateDomainXML(benchlibvirt.DomainSpec{
		Name:     h.Spec.Name,
		VCPUs:    profile.VCPUs,
		MemoryMB: profile.MemoryMB,
		DiskPath: h.DiskPath,
		SeedPath: h.SeedPath,
	})
}
