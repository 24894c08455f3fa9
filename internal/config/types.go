// Package config defines the suite configuration: sizing profiles, the
// test matrix, first-boot provisioning inputs and benchmark parameters.
package config

import (
	"fmt"
	"time"

	"github.com/vmbench/vmbench/internal/naming"
)

// DefaultBaseImageURL is the Ubuntu cloud image used when the config
// does not name one.
const DefaultBaseImageURL = "https://cloud-images.ubuntu.com/jammy/current/jammy-server-cloudimg-amd64.img"

// DefaultPackages are installed on every benchmark VM at first boot.
var DefaultPackages = []string{"sysbench", "fio", "iperf3", "sysstat"}

// Config is the top-level suite configuration.
type Config struct {
	// RootDir is the working directory that holds images/, cloud-init/,
	// keys/ and results/. Defaults to the current directory.
	RootDir string `yaml:"root_dir,omitempty"`

	// BaseImageURL is the cloud image downloaded once and shared as the
	// backing file of every VM disk.
	BaseImageURL string `yaml:"base_image_url,omitempty"`

	// Packages installed by cloud-init at first boot.
	Packages []string `yaml:"packages,omitempty"`

	// TestMatrix lists the profile names to provision, one VM per entry.
	TestMatrix []string `yaml:"test_matrix"`

	// Profiles maps tier names to VM sizing.
	Profiles map[string]Profile `yaml:"profiles"`

	Timeouts   Timeouts        `yaml:"timeouts,omitempty"`
	Benchmarks BenchmarkConfig `yaml:"benchmarks,omitempty"`
}

// Profile is a named sizing tier.
type Profile struct {
	VCPUs      int `yaml:"vcpus"`
	MemoryMB   int `yaml:"memory_mb"`
	DiskSizeGB int `yaml:"disk_size_gb"`
}

// Timeouts bounds the provisioning poll loops. Zero values take defaults.
type Timeouts struct {
	NetworkBindSeconds   int `yaml:"network_bind_seconds,omitempty"`
	NetworkPollSeconds   int `yaml:"network_poll_seconds,omitempty"`
	ReadinessSeconds     int `yaml:"readiness_seconds,omitempty"`
	ReadinessPollSeconds int `yaml:"readiness_poll_seconds,omitempty"`
}

// NetworkBind returns the total time to wait for a leased IPv4 address.
func (t Timeouts) NetworkBind() time.Duration {
	return secondsOr(t.NetworkBindSeconds, 300*time.Second)
}

// NetworkPoll returns the interval between lease queries.
func (t Timeouts) NetworkPoll() time.Duration {
	return secondsOr(t.NetworkPollSeconds, 5*time.Second)
}

// Readiness returns the total time to wait for first-boot completion.
func (t Timeouts) Readiness() time.Duration {
	return secondsOr(t.ReadinessSeconds, 300*time.Second)
}

// ReadinessPoll returns the backoff between readiness attempts.
func (t Timeouts) ReadinessPoll() time.Duration {
	return secondsOr(t.ReadinessPollSeconds, 10*time.Second)
}

func secondsOr(s int, def time.Duration) time.Duration {
	if s <= 0 {
		return def
	}
	return time.Duration(s) * time.Second
}

// BenchmarkConfig holds per-tool benchmark parameters.
type BenchmarkConfig struct {
	CPU     CPUBenchmark     `yaml:"cpu,omitempty"`
	Memory  MemoryBenchmark  `yaml:"memory,omitempty"`
	Disk    DiskBenchmark    `yaml:"disk,omitempty"`
	Network NetworkBenchmark `yaml:"network,omitempty"`
}

// CPUBenchmark parameterizes sysbench cpu runs.
type CPUBenchmark struct {
	MaxPrime    int   `yaml:"max_prime,omitempty"`
	Threads     []int `yaml:"threads,omitempty"`
	TimeSeconds int   `yaml:"time_seconds,omitempty"`
}

// MemoryBenchmark parameterizes sysbench memory runs.
type MemoryBenchmark struct {
	TotalSize   string   `yaml:"total_size,omitempty"`
	BlockSizes  []string `yaml:"block_sizes,omitempty"`
	Threads     []int    `yaml:"threads,omitempty"`
	TimeSeconds int      `yaml:"time_seconds,omitempty"`
}

// DiskBenchmark parameterizes fio runs.
type DiskBenchmark struct {
	RuntimeSeconds int      `yaml:"runtime_seconds,omitempty"`
	FileSize       string   `yaml:"file_size,omitempty"`
	Jobs           []FioJob `yaml:"jobs,omitempty"`
}

// FioJob is a single fio workload definition.
type FioJob struct {
	Name      string `yaml:"name"`
	RW        string `yaml:"rw"`
	BlockSize string `yaml:"bs"`
}

// NetworkBenchmark parameterizes iperf3 runs against a peer VM.
type NetworkBenchmark struct {
	TimeSeconds int `yaml:"time_seconds,omitempty"`
	Parallel    int `yaml:"parallel,omitempty"`
}

// Validate checks the configuration for errors. Does not validate
// hypervisor resources, only config structure.
func (c *Config) Validate() error {
	if len(c.Profiles) == 0 {
		return fmt.Errorf("at least one profile is required")
	}
	for name, p := range c.Profiles {
		if err := naming.ValidateVMName(name); err != nil {
			return fmt.Errorf("profiles[%s]: %w", name, err)
		}
		if err := p.Validate(); err != nil {
			return fmt.Errorf("profiles[%s]: %w", name, err)
		}
	}

	if len(c.TestMatrix) == 0 {
		return fmt.Errorf("test_matrix must name at least one profile")
	}
	for i, name := range c.TestMatrix {
		if _, ok := c.Profiles[name]; !ok {
			return fmt.Errorf("test_matrix[%d]: unknown profile %q", i, name)
		}
	}

	for i, job := range c.Benchmarks.Disk.Jobs {
		if job.Name == "" || job.RW == "" || job.BlockSize == "" {
			return fmt.Errorf("benchmarks.disk.jobs[%d]: name, rw and bs are required", i)
		}
	}

	return nil
}

// Validate checks a sizing profile.
func (p Profile) Validate() error {
	if p.VCPUs <= 0 {
		return fmt.Errorf("vcpus must be > 0, got %d", p.VCPUs)
	}
	if p.MemoryMB <= 0 {
		return fmt.Errorf("memory_mb must be > 0, got %d", p.MemoryMB)
	}
	if p.DiskSizeGB <= 0 {
		return fmt.Errorf("disk_size_gb must be > 0, got %d", p.DiskSizeGB)
	}
	return nil
}

// LookupProfile returns the named sizing profile.
func (c *Config) LookupProfile(name string) (Profile, error) {
	p, ok := c.Profiles[name]
	if !ok {
		return Profile{}, fmt.Errorf("unknown profile %q", name)
	}
	return p, nil
}
