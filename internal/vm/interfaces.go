package vm

import (
	"context"

	"github.com/digitalocean/go-libvirt"

	"github.com/vmbench/vmbench/internal/remote"
)

// hypervisor defines the libvirt operations the lifecycle needs.
//
// In production this is satisfied by *libvirt.Libvirt directly.
// In tests it is satisfied by mock implementations.
type hypervisor interface {
	// DomainLookupByName looks up a domain by name
	DomainLookupByName(name string) (libvirt.Domain, error)

	// DomainDefineXML defines a domain from XML
	DomainDefineXML(xml string) (libvirt.Domain, error)

	// DomainCreate starts a domain
	DomainCreate(dom libvirt.Domain) error

	// DomainGetState gets the state of a domain
	DomainGetState(dom libvirt.Domain, flags uint32) (state int32, reason int32, err error)

	// DomainDestroy force-stops a domain
	DomainDestroy(dom libvirt.Domain) error

	// DomainUndefine removes a domain definition
	DomainUndefine(dom libvirt.Domain) error

	// DomainInterfaceAddresses queries addresses on the domain's interfaces
	DomainInterfaceAddresses(dom libvirt.Domain, source uint32, flags uint32) ([]libvirt.DomainInterface, error)
}

// commandRunner runs a command on a VM and reports its captured output.
// Satisfied by *remote.Executor.
type commandRunner interface {
	Execute(ctx context.Context, address, command string) (*remote.Result, error)
}

// imageEnsurer makes the shared base image available at a target path.
// Satisfied by *imagecache.Cache.
type imageEnsurer interface {
	Ensure(ctx context.Context, url, targetPath string) (string, error)
}
