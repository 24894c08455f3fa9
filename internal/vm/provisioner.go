package vm

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/vmbench/vmbench/internal/cloudinit"
	"github.com/vmbench/vmbench/internal/config"
	"github.com/vmbench/vmbench/internal/disk"
	"github.com/vmbench/vmbench/internal/layout"
	"github.com/vmbench/vmbench/internal/naming"
	"github.com/vmbench/vmbench/internal/sshkey"
)

// Provisioner drives the lifecycle of benchmark VMs against one
// hypervisor connection. Several Provision calls may run concurrently;
// the only shared state is the image cache and key material, both
// create-if-absent behind their own locks.
type Provisioner struct {
	lv     hypervisor
	runner commandRunner
	cache  imageEnsurer
	paths  *layout.Paths
	keys   *sshkey.KeyMaterial
	cfg    *config.Config

	netBindTimeout  time.Duration
	netPollInterval time.Duration
	readyTimeout    time.Duration
	readyInterval   time.Duration

	// Overridable for tests that must not shell out to qemu-img or
	// build real seed media.
	createDisk func(basePath, diskPath string, sizeGB int) error
	buildSeed  func(in cloudinit.Input, seedPath string) (string, error)
}

// New creates a Provisioner with production collaborators.
func New(lv hypervisor, runner commandRunner, cache imageEnsurer, paths *layout.Paths, keys *sshkey.KeyMaterial, cfg *config.Config) *Provisioner {
	return &Provisioner{
		lv:              lv,
		runner:          runner,
		cache:           cache,
		paths:           paths,
		keys:            keys,
		cfg:             cfg,
		netBindTimeout:  cfg.Timeouts.NetworkBind(),
		netPollInterval: cfg.Timeouts.NetworkPoll(),
		readyTimeout:    cfg.Timeouts.Readiness(),
		readyInterval:   cfg.Timeouts.ReadinessPoll(),
		createDisk:      disk.CreateOverlay,
		buildSeed:       cloudinit.BuildSeed,
	}
}

// Provision creates a VM named name from the given sizing profile and
// drives it to Ready. On any failure, or if ctx is cancelled, every
// resource allocated so far is torn down before the error is returned;
// the returned error is always the provisioning failure, never a
// cleanup failure.
func (p *Provisioner) Provision(ctx context.Context, name, profileName string) (handle *Handle, err error) {
	if err := naming.ValidateVMName(name); err != nil {
		return nil, phaseError(PhaseSetup, name, err)
	}
	profile, err := p.cfg.LookupProfile(profileName)
	if err != nil {
		return nil, phaseError(PhaseSetup, name, err)
	}

	h := &Handle{
		Spec: Spec{
			Name:    name,
			Profile: profileName,
			ID:      uuid.New().String(),
		},
	}

	// Teardown always runs on failure, however far provisioning got.
	// It uses a detached context so cancellation cannot leak a VM.
	defer func() {
		if err == nil {
			return
		}
		h.State = StateFailed
		if cleanupErr := p.Teardown(context.WithoutCancel(ctx), h); cleanupErr != nil {
			log.Printf("Warning: cleanup after failed provisioning of %q: %v", name, cleanupErr)
		}
	}()

	// Setup phase: base image, overlay disk, seed media.
	log.Printf("Ensuring base image for %q...", name)
	basePath, err := p.cache.Ensure(ctx, p.cfg.BaseImageURL, p.paths.BaseImagePath(naming.BaseImageFileName))
	if err != nil {
		return nil, phaseError(PhaseSetup, name, err)
	}

	log.Printf("Creating overlay disk for %q (%dGB)...", name, profile.DiskSizeGB)
	h.DiskPath = p.paths.DiskPath(naming.DiskFileName(name))
	if err := p.createDisk(basePath, h.DiskPath, profile.DiskSizeGB); err != nil {
		return nil, phaseError(PhaseSetup, name, err)
	}
	h.diskCreated = true

	log.Printf("Building cloud-init seed for %q...", name)
	authorizedKey, err := p.keys.AuthorizedKey()
	if err != nil {
		return nil, phaseError(PhaseSetup, name, err)
	}
	seedPath, err := p.buildSeed(cloudinit.Input{
		Name:          name,
		InstanceID:    h.Spec.ID,
		AuthorizedKey: authorizedKey,
		Packages:      p.cfg.Packages,
	}, p.paths.SeedPath(naming.SeedFileName(name)))
	if err != nil {
		return nil, phaseError(PhaseSetup, name, err)
	}
	h.SeedPath = seedPath
	h.seedCreated = true

	// Start phase: define and start the domain.
	if err := p.defineAndStart(h, profile); err != nil {
		return nil, phaseError(PhaseStart, name, err)
	}

	// Network-bind phase.
	log.Printf("Waiting for %q to acquire an IPv4 lease...", name)
	address, err := p.waitForAddress(ctx, h)
	if err != nil {
		return nil, phaseError(PhaseNetwork, name, err)
	}
	h.Address = address
	h.State = StateNetworkBound
	log.Printf("VM %q bound to %s", name, address)

	// Readiness phase.
	log.Printf("Waiting for first boot of %q to complete...", name)
	if err := p.waitForReady(ctx, h); err != nil {
		return nil, phaseError(PhaseReadiness, name, err)
	}
	h.State = StateReady
	log.Printf("VM %q is ready", name)

	return h, nil
}

// defineAndStart submits the domain definition and requests an
// immediate start.
func (p *Provisioner) defineAndStart(h *Handle, profile config.Profile) error {
	xml, err := generateDomainXML(h, profile)
	if err != nil {
		return err
	}

	log.Printf("Defining domain %q...", h.Spec.Name)
	dom, err := p.lv.DomainDefineXML(xml)
	if err != nil {
		return &ProvisioningError{Name: h.Spec.Name, Err: fmt.Errorf("define failed: %w", err)}
	}
	h.Domain = dom
	h.domainDefined = true
	h.State = StateDefined

	log.Printf("Starting domain %q...", h.Spec.Name)
	if err := p.lv.DomainCreate(dom); err != nil {
		return &ProvisioningError{Name: h.Spec.Name, Err: fmt.Errorf("start failed: %w", err)}
	}
	h.State = StateStarted

	return nil
}
