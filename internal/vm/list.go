package vm

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/digitalocean/go-libvirt"

	benchlibvirt "github.com/vmbench/vmbench/internal/libvirt"
)

// matrixVMPrefix marks domains created by matrix runs.
const matrixVMPrefix = "benchmark-vm-"

// VMInfo represents information about a VM.
type VMInfo struct {
	Name     string `json:"name" yaml:"name"`
	State    string `json:"state" yaml:"state"`
	Address  string `json:"address,omitempty" yaml:"address,omitempty"`
	CPUs     uint16 `json:"cpus" yaml:"cpus"`
	MemoryMB uint64 `json:"memory_mb" yaml:"memory_mb"`
}

// domainLister defines the libvirt operations listing needs.
type domainLister interface {
	ConnectListAllDomains(needResults int32, flags libvirt.ConnectListAllDomainsFlags) ([]libvirt.Domain, uint32, error)
	DomainGetState(dom libvirt.Domain, flags uint32) (int32, int32, error)
	DomainGetInfo(dom libvirt.Domain) (uint8, uint64, uint64, uint16, uint64, error)
	DomainInterfaceAddresses(dom libvirt.Domain, source uint32, flags uint32) ([]libvirt.DomainInterface, error)
}

// List lists benchmark VMs known to the hypervisor, running or stopped.
// With all set, every domain is included regardless of name.
func List(ctx context.Context, all bool) ([]VMInfo, error) {
	log.Printf("Connecting to libvirt...")
	client, err := benchlibvirt.ConnectWithContext(ctx, "", 0)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to libvirt: %w", err)
	}
	defer func() {
		if err := client.Close(); err != nil {
			log.Printf("Warning: failed to close libvirt connection: %v", err)
		}
	}()

	return listWithDeps(ctx, client.Libvirt(), all)
}

// listWithDeps lists VMs with injected dependencies.
func listWithDeps(_ context.Context, lv domainLister, all bool) ([]VMInfo, error) {
	// NeedResults: 1 populates the slice; flags 0 covers active and
	// inactive domains.
	domains, _, err := lv.ConnectListAllDomains(1, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to list domains: %w", err)
	}

	vms := make([]VMInfo, 0, len(domains))
	for _, domain := range domains {
		if !all && !strings.HasPrefix(domain.Name, matrixVMPrefix) {
			continue
		}
		info, err := getDomainInfo(lv, domain)
		if err != nil {
			log.Printf("Warning: failed to get info for domain %s: %v", domain.Name, err)
			continue
		}
		vms = append(vms, info)
	}

	return vms, nil
}

// getDomainInfo collects state, sizing and the leased address for one
// domain.
func getDomainInfo(lv domainLister, domain libvirt.Domain) (VMInfo, error) {
	state, _, err := lv.DomainGetState(domain, 0)
	if err != nil {
		return VMInfo{}, fmt.Errorf("failed to get domain state: %w", err)
	}

	_, _, memoryKiB, nrVirtCPU, _, err := lv.DomainGetInfo(domain)
	if err != nil {
		return VMInfo{}, fmt.Errorf("failed to get domain info: %w", err)
	}

	// A lease only exists while the domain runs; absence is not an error.
	address := ""
	if state == domainStateRunning {
		ifaces, err := lv.DomainInterfaceAddresses(domain, uint32(libvirt.DomainInterfaceAddressesSrcLease), 0)
		if err != nil {
			log.Printf("Warning: failed to query addresses for %s: %v", domain.Name, err)
		} else {
			address = firstIPv4(ifaces)
		}
	}

	return VMInfo{
		Name:     domain.Name,
		State:    stateToString(state),
		Address:  address,
		CPUs:     nrVirtCPU,
		MemoryMB: memoryKiB / 1024,
	}, nil
}

// firstIPv4 returns the first leased IPv4 address, or "".
func firstIPv4(ifaces []libvirt.DomainInterface) string {
	for _, iface := range ifaces {
		for _, addr := range iface.Addrs {
			if addr.Type == int32(libvirt.IPAddrTypeIpv4) {
				return addr.Addr
			}
		}
	}
	return ""
}

// stateToString converts libvirt domain state to human-readable string.
func stateToString(state int32) string {
	switch state {
	case 0:
		return "no state"
	case 1:
		return "running"
	case 2:
		return "blocked"
	case 3:
		return "paused"
	case 4:
		return "shutdown"
	case 5:
		return "shutoff"
	case 6:
		return "crashed"
	case 7:
		return "pmsuspended"
	default:
		return fmt.Sprintf("unknown(%d)", state)
	}
}
