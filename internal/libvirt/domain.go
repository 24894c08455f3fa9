package libvirt

import (
	"fmt"

	"github.com/google/uuid"
	"libvirt.org/go/libvirtxml"
)

// DefaultNetwork is the libvirt network every benchmark VM attaches to.
// Its DHCP leases are what network-bind polling queries.
const DefaultNetwork = "default"

// InvalidSpecError reports sizing values a domain definition cannot be
// built from.
type InvalidSpecError struct {
	Field string
	Value int
}

func (e *InvalidSpecError) Error() string {
	return fmt.Sprintf("libvirt: invalid domain spec: %s must be > 0, got %d", e.Field, e.Value)
}

// DomainSpec is the input to domain definition generation.
type DomainSpec struct {
	Name     string
	VCPUs    int
	MemoryMB int

	// DiskPath is the VM's read-write qcow2 overlay disk.
	DiskPath string

	// SeedPath is the read-only cloud-init seed ISO.
	SeedPath string
}

// GenerateDomainXML produces a complete KVM domain definition for a
// benchmark VM. It is a pure function apart from the freshly generated
// UUID, which differs on every call.
func GenerateDomainXML(spec DomainSpec) (string, error) {
	if spec.VCPUs <= 0 {
		return "", &InvalidSpecError{Field: "vcpus", Value: spec.VCPUs}
	}
	if spec.MemoryMB <= 0 {
		return "", &InvalidSpecError{Field: "memory_mb", Value: spec.MemoryMB}
	}

	domain := &libvirtxml.Domain{
		Type: "kvm",
		Name: spec.Name,
		UUID: uuid.New().String(),
		Memory: &libvirtxml.DomainMemory{
			Value: uint(spec.MemoryMB),
			Unit:  "MiB",
		},
		CurrentMemory: &libvirtxml.DomainCurrentMemory{
			Value: uint(spec.MemoryMB),
			Unit:  "MiB",
		},
		VCPU: &libvirtxml.DomainVCPU{
			Placement: "static",
			Value:     uint(spec.VCPUs),
		},
		OS: &libvirtxml.DomainOS{
			Type: &libvirtxml.DomainOSType{
				Arch:    "x86_64",
				Machine: "q35",
				Type:    "hvm",
			},
			BootDevices: []libvirtxml.DomainBootDevice{
				{Dev: "hd"},
			},
		},
		Features: &libvirtxml.DomainFeatureList{
			ACPI: &libvirtxml.DomainFeature{},
			APIC: &libvirtxml.DomainFeatureAPIC{},
		},
		CPU: &libvirtxml.DomainCPU{
			Mode: "host-model",
			Topology: &libvirtxml.DomainCPUTopology{
				Sockets: 1,
				Dies:    1,
				Cores:   spec.VCPUs,
				Threads: 1,
			},
		},
		OnPoweroff: "destroy",
		OnReboot:   "restart",
		OnCrash:    "restart",
		Devices: &libvirtxml.DomainDeviceList{
			Disks: []libvirtxml.DomainDisk{
				{
					Device: "disk",
					Driver: &libvirtxml.DomainDiskDriver{
						Name: "qemu",
						Type: "qcow2",
					},
					Source: &libvirtxml.DomainDiskSource{
						File: &libvirtxml.DomainDiskSourceFile{
							File: spec.DiskPath,
						},
					},
					Target: &libvirtxml.DomainDiskTarget{
						Dev: "vda",
						Bus: "virtio",
					},
				},
				{
					Device: "cdrom",
					Driver: &libvirtxml.DomainDiskDriver{
						Name: "qemu",
						Type: "raw",
					},
					Source: &libvirtxml.DomainDiskSource{
						File: &libvirtxml.DomainDiskSourceFile{
							File: spec.SeedPath,
						},
					},
					Target: &libvirtxml.DomainDiskTarget{
						Dev: "sda",
						Bus: "sata",
					},
					ReadOnly: &libvirtxml.DomainDiskReadOnly{},
				},
			},
			Interfaces: []libvirtxml.DomainInterface{
				{
					Source: &libvirtxml.DomainInterfaceSource{
						Network: &libvirtxml.DomainInterfaceSourceNetwork{
							Network: DefaultNetwork,
						},
					},
					Model: &libvirtxml.DomainInterfaceModel{
						Type: "virtio",
					},
				},
			},
			Serials: []libvirtxml.DomainSerial{
				{
					Source: &libvirtxml.DomainChardevSource{
						Pty: &libvirtxml.DomainChardevSourcePty{},
					},
					Target: &libvirtxml.DomainSerialTarget{
						Port: func() *uint { p := uint(0); return &p }(),
					},
				},
			},
			Consoles: []libvirtxml.DomainConsole{
				{
					Source: &libvirtxml.DomainChardevSource{
						Pty: &libvirtxml.DomainChardevSourcePty{},
					},
					Target: &libvirtxml.DomainConsoleTarget{
						Type: "serial",
						Port: func() *uint { p := uint(0); return &p }(),
					},
				},
			},
			MemBalloon: &libvirtxml.DomainMemBalloon{
				Model: "virtio",
			},
		},
	}

	xml, err := domain.Marshal()
	if err != nil {
		return "", fmt.Errorf("failed to marshal domain XML: %w", err)
	}

	return xml, nil
}
