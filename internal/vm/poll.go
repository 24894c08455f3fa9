package vm

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/digitalocean/go-libvirt"

	"github.com/vmbench/vmbench/internal/cloudinit"
)

// readinessCommand checks for the completion marker written by
// first-boot provisioning. Exit status 0 means the marker exists.
var readinessCommand = fmt.Sprintf("cat %s", cloudinit.MarkerPath)

// waitForAddress polls the hypervisor for a DHCP lease on the VM's
// interface until an IPv4 address appears or the bind timeout elapses.
// Transient query errors are logged and retried; only the timeout is
// surfaced. The loop honors ctx on every iteration.
func (p *Provisioner) waitForAddress(ctx context.Context, h *Handle) (string, error) {
	deadline := time.NewTimer(p.netBindTimeout)
	defer deadline.Stop()
	ticker := time.NewTicker(p.netPollInterval)
	defer ticker.Stop()

	for {
		addr, err := p.queryLease(h)
		if err != nil {
			log.Printf("Note: lease query for %q failed, will retry: %v", h.Spec.Name, err)
		} else if addr != "" {
			return addr, nil
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-deadline.C:
			return "", &NetworkTimeoutError{Name: h.Spec.Name, Timeout: p.netBindTimeout}
		case <-ticker.C:
		}
	}
}

// queryLease asks the hypervisor for leased addresses and returns the
// first IPv4 one, or "" if none is bound yet. Non-IPv4 leases are
// ignored.
func (p *Provisioner) queryLease(h *Handle) (string, error) {
	ifaces, err := p.lv.DomainInterfaceAddresses(h.Domain, uint32(libvirt.DomainInterfaceAddressesSrcLease), 0)
	if err != nil {
		return "", err
	}

	for _, iface := range ifaces {
		for _, addr := range iface.Addrs {
			if addr.Type == int32(libvirt.IPAddrTypeIpv4) {
				return addr.Addr, nil
			}
		}
	}

	return "", nil
}

// waitForReady polls the VM over SSH for the first-boot completion
// marker. Connection failures (refused, auth not yet available,
// timeout) and non-zero exits are swallowed and retried after the poll
// interval; the loop is bounded by the readiness timeout. Each attempt
// opens and closes its own session.
func (p *Provisioner) waitForReady(ctx context.Context, h *Handle) error {
	deadline := time.NewTimer(p.readyTimeout)
	defer deadline.Stop()
	ticker := time.NewTicker(p.readyInterval)
	defer ticker.Stop()

	for {
		result, err := p.runner.Execute(ctx, h.Address, readinessCommand)
		switch {
		case err != nil:
			log.Printf("Note: readiness check for %q not reachable yet: %v", h.Spec.Name, err)
		case result.ExitCode == 0:
			return nil
		default:
			log.Printf("Note: first boot of %q still running (marker missing)", h.Spec.Name)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline.C:
			return &ReadinessTimeoutError{Name: h.Spec.Name, Timeout: p.readyTimeout}
		case <-ticker.C:
		}
	}
}
