package vm

import (
	"context"
	"fmt"
	"sync"

	"github.com/digitalocean/go-libvirt"

	"github.com/vmbench/vmbench/internal/remote"
)

// mockHypervisor is a mock implementation of the hypervisor interface
// with configurable behavior and call tracking.
type mockHypervisor struct {
	mu sync.Mutex

	// Configurable behavior
	domainLookupByNameFunc func(name string) (libvirt.Domain, error)
	domainDefineXMLFunc    func(xml string) (libvirt.Domain, error)
	domainCreateFunc       func(dom libvirt.Domain) error
	domainGetStateFunc     func(dom libvirt.Domain, flags uint32) (int32, int32, error)
	domainDestroyFunc      func(dom libvirt.Domain) error
	domainUndefineFunc     func(dom libvirt.Domain) error
	interfaceAddrsFunc     func(dom libvirt.Domain, source, flags uint32) ([]libvirt.DomainInterface, error)

	// Call tracking
	defineCalls    []string
	createCalls    []libvirt.Domain
	destroyCalls   []libvirt.Domain
	undefineCalls  []libvirt.Domain
	getStateCalls  int
	addrQueryCalls int
	lookupCalls    []string
}

// newMockHypervisor creates a mock whose defaults succeed: define
// returns a domain, start succeeds, the domain reports running, and a
// lease with one IPv4 address is available immediately.
func newMockHypervisor() *mockHypervisor {
	m := &mockHypervisor{}

	m.domainLookupByNameFunc = func(name string) (libvirt.Domain, error) {
		return libvirt.Domain{}, fmt.Errorf("domain not found: %s", name)
	}
	m.domainDefineXMLFunc = func(xml string) (libvirt.Domain, error) {
		return libvirt.Domain{Name: "test-vm"}, nil
	}
	m.domainCreateFunc = func(dom libvirt.Domain) error {
		return nil
	}
	m.domainGetStateFunc = func(dom libvirt.Domain, flags uint32) (int32, int32, error) {
		return domainStateRunning, 0, nil
	}
	m.domainDestroyFunc = func(dom libvirt.Domain) error {
		return nil
	}
	m.domainUndefineFunc = func(dom libvirt.Domain) error {
		return nil
	}
	m.interfaceAddrsFunc = func(dom libvirt.Domain, source, flags uint32) ([]libvirt.DomainInterface, error) {
		return []libvirt.DomainInterface{
			{
				Name: "vnet0",
				Addrs: []libvirt.DomainIPAddr{
					{Type: int32(libvirt.IPAddrTypeIpv4), Addr: "192.168.122.100", Prefix: 24},
				},
			},
		}, nil
	}

	return m
}

func (m *mockHypervisor) DomainLookupByName(name string) (libvirt.Domain, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lookupCalls = append(m.lookupCalls, name)
	return m.domainLookupByNameFunc(name)
}

func (m *mockHypervisor) DomainDefineXML(xml string) (libvirt.Domain, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.defineCalls = append(m.defineCalls, xml)
	return m.domainDefineXMLFunc(xml)
}

func (m *mockHypervisor) DomainCreate(dom libvirt.Domain) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createCalls = append(m.createCalls, dom)
	return m.domainCreateFunc(dom)
}

func (m *mockHypervisor) DomainGetState(dom libvirt.Domain, flags uint32) (int32, int32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getStateCalls++
	return m.domainGetStateFunc(dom, flags)
}

func (m *mockHypervisor) DomainDestroy(dom libvirt.Domain) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.destroyCalls = append(m.destroyCalls, dom)
	return m.domainDestroyFunc(dom)
}

func (m *mockHypervisor) DomainUndefine(dom libvirt.Domain) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.undefineCalls = append(m.undefineCalls, dom)
	return m.domainUndefineFunc(dom)
}

func (m *mockHypervisor) DomainInterfaceAddresses(dom libvirt.Domain, source, flags uint32) ([]libvirt.DomainInterface, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.addrQueryCalls++
	return m.interfaceAddrsFunc(dom, source, flags)
}

// mockRunner is a mock commandRunner. The exec function receives the
// 1-based attempt number so tests can script refuse-then-succeed
// sequences.
type mockRunner struct {
	mu       sync.Mutex
	attempts int
	execFunc func(attempt int, address, command string) (*remote.Result, error)
}

func (m *mockRunner) Execute(ctx context.Context, address, command string) (*remote.Result, error) {
	m.mu.Lock()
	m.attempts++
	attempt := m.attempts
	fn := m.execFunc
	m.mu.Unlock()
	return fn(attempt, address, command)
}

func (m *mockRunner) attemptCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.attempts
}

// mockCache is a mock imageEnsurer that records how often a download
// would have happened.
type mockCache struct {
	mu      sync.Mutex
	ensures int
	err     error
}

func (m *mockCache) Ensure(ctx context.Context, url, targetPath string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ensures++
	if m.err != nil {
		return "", m.err
	}
	return targetPath, nil
}
