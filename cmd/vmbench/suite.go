package main

import (
	"fmt"
	"log"
	"time"

	"github.com/vmbench/vmbench/internal/cloudinit"
	"github.com/vmbench/vmbench/internal/config"
	"github.com/vmbench/vmbench/internal/imagecache"
	"github.com/vmbench/vmbench/internal/layout"
	benchlibvirt "github.com/vmbench/vmbench/internal/libvirt"
	"github.com/vmbench/vmbench/internal/remote"
	"github.com/vmbench/vmbench/internal/sshkey"
	"github.com/vmbench/vmbench/internal/vm"
)

// suite bundles the collaborators shared by the provisioning commands:
// loaded config, working directories, key material, the libvirt
// connection and the provisioner wired on top of them.
type suite struct {
	cfg    *config.Config
	paths  *layout.Paths
	client *benchlibvirt.Client
	runner *remote.Executor
	prov   *vm.Provisioner
}

// newSuite loads the configuration and connects everything a
// provisioning command needs. Callers must Close the suite.
func newSuite(configPath string) (*suite, error) {
	cfg, err := config.LoadFromFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	paths, err := layout.Ensure(cfg.RootDir)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare working directories: %w", err)
	}

	keys, err := sshkey.Ensure(paths.KeysDir)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare SSH key pair: %w", err)
	}
	signer, err := keys.Signer()
	if err != nil {
		return nil, fmt.Errorf("failed to load SSH key: %w", err)
	}

	client, err := benchlibvirt.Connect("", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to libvirt: %w", err)
	}

	runner := remote.NewExecutor(cloudinit.BenchmarkUser, signer)
	cache := imagecache.New(nil)
	prov := vm.New(client.Libvirt(), runner, cache, paths, keys, cfg)

	return &suite{
		cfg:    cfg,
		paths:  paths,
		client: client,
		runner: runner,
		prov:   prov,
	}, nil
}

// Close releases the libvirt connection.
func (s *suite) Close() {
	if err := s.client.Close(); err != nil {
		log.Printf("Warning: failed to close libvirt connection: %v", err)
	}
}
