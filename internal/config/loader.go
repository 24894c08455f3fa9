package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadFromFile loads and validates a suite configuration from a YAML file.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", path, err)
	}

	return LoadFromYAML(data)
}

// LoadFromYAML loads and validates a suite configuration from YAML bytes.
// Defaults are applied before validation.
func LoadFromYAML(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal YAML: %w", err)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	return &cfg, nil
}

// applyDefaults fills in fields that may be omitted from the YAML.
func applyDefaults(cfg *Config) {
	if cfg.RootDir == "" {
		cfg.RootDir = "."
	}
	if cfg.BaseImageURL == "" {
		cfg.BaseImageURL = DefaultBaseImageURL
	}
	if len(cfg.Packages) == 0 {
		cfg.Packages = append([]string(nil), DefaultPackages...)
	}

	b := &cfg.Benchmarks
	if b.CPU.MaxPrime == 0 {
		b.CPU.MaxPrime = 20000
	}
	if len(b.CPU.Threads) == 0 {
		b.CPU.Threads = []int{1, 2, 4}
	}
	if b.CPU.TimeSeconds == 0 {
		b.CPU.TimeSeconds = 60
	}

	if b.Memory.TotalSize == "" {
		b.Memory.TotalSize = "10G"
	}
	if len(b.Memory.BlockSizes) == 0 {
		b.Memory.BlockSizes = []string{"4K", "1M"}
	}
	if len(b.Memory.Threads) == 0 {
		b.Memory.Threads = []int{1, 2, 4}
	}
	if b.Memory.TimeSeconds == 0 {
		b.Memory.TimeSeconds = 60
	}

	if b.Disk.RuntimeSeconds == 0 {
		b.Disk.RuntimeSeconds = 60
	}
	if b.Disk.FileSize == "" {
		b.Disk.FileSize = "4G"
	}
	if len(b.Disk.Jobs) == 0 {
		b.Disk.Jobs = []FioJob{
			{Name: "random_read", RW: "randread", BlockSize: "4k"},
			{Name: "random_write", RW: "randwrite", BlockSize: "4k"},
		}
	}

	if b.Network.TimeSeconds == 0 {
		b.Network.TimeSeconds = 60
	}
	if b.Network.Parallel == 0 {
		b.Network.Parallel = 4
	}
}
