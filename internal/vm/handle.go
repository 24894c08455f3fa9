package vm

import (
	"github.com/digitalocean/go-libvirt"
)

// State is a lifecycle state of a benchmark VM.
type State string

const (
	// StateDefined means the domain definition was submitted to libvirt.
	StateDefined State = "Defined"

	// StateStarted means the domain is running but has no known address.
	StateStarted State = "Started"

	// StateNetworkBound means the domain holds a leased IPv4 address.
	StateNetworkBound State = "NetworkBound"

	// StateReady means first-boot provisioning completed; the VM accepts
	// benchmark sessions.
	StateReady State = "Ready"

	// StateFailed means provisioning failed; teardown follows.
	StateFailed State = "Failed"

	// StateTerminated means teardown completed.
	StateTerminated State = "Terminated"
)

// Spec identifies a VM to provision. Immutable after creation.
type Spec struct {
	// Name is the unique caller-assigned libvirt domain name.
	Name string

	// Profile is the sizing tier name the VM was built from.
	Profile string

	// ID is the generated unique identifier, used as the cloud-init
	// instance-id.
	ID string
}

// Handle tracks a VM and every resource allocated for it. It is owned
// by the provisioner that created it and mutated only by lifecycle
// transitions.
type Handle struct {
	Spec Spec

	// Domain is the hypervisor's reference, valid once defined.
	Domain libvirt.Domain

	// DiskPath and SeedPath are the on-disk artifacts teardown removes.
	DiskPath string
	SeedPath string

	// Address is the leased IPv4 address, set in StateNetworkBound.
	Address string

	State State

	// Allocation flags drive teardown: each step runs only for
	// resources that were actually created.
	diskCreated   bool
	seedCreated   bool
	domainDefined bool
}

// Ready reports whether the VM finished provisioning.
func (h *Handle) Ready() bool {
	return h.State == StateReady
}
