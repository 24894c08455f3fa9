// Package cloudinit builds the first-boot configuration for benchmark VMs
// and packages it as a NoCloud seed ISO.
//
// The generated user-data creates an unprivileged sudo-capable account,
// authorizes the shared public key, installs the benchmark tooling and
// writes a completion marker. The marker path and content are a contract
// with readiness polling and must stay stable across versions.
//
// See https://cloudinit.readthedocs.io/en/latest/reference/datasources/nocloud.html
package cloudinit

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

const (
	// BenchmarkUser is the account created on every VM.
	BenchmarkUser = "benchmark"

	// MarkerPath is where first boot writes its completion marker.
	MarkerPath = "/var/log/cloud-init-complete.log"

	// MarkerContent is the exact content of the completion marker.
	MarkerContent = "Installation and configuration complete"
)

// Input carries the per-VM values the first-boot documents are built from.
type Input struct {
	// Name is the VM name, used as the guest hostname.
	Name string

	// InstanceID is the VM's generated unique identifier.
	InstanceID string

	// AuthorizedKey is the shared public key in authorized_keys format.
	AuthorizedKey string

	// Packages are installed at first boot.
	Packages []string
}

// UserData is the cloud-config user-data document.
//
// See https://cloudinit.readthedocs.io/en/latest/explanation/format.html#cloud-config-data
type UserData struct {
	Users          []User   `yaml:"users"`
	PackageUpdate  bool     `yaml:"package_update"`
	PackageUpgrade bool     `yaml:"package_upgrade"`
	Packages       []string `yaml:"packages,omitempty"`
	RunCmd         []string `yaml:"runcmd"`
}

// User is a cloud-config user entry.
type User struct {
	Name              string   `yaml:"name"`
	Sudo              string   `yaml:"sudo"`
	Shell             string   `yaml:"shell"`
	SSHAuthorizedKeys []string `yaml:"ssh_authorized_keys,omitempty"`
}

// MetaData is the NoCloud meta-data document.
type MetaData struct {
	InstanceID    string `yaml:"instance-id"`
	LocalHostname string `yaml:"local-hostname"`
}

// GenerateUserData renders the user-data document, including the
// "#cloud-config" header required by the cloud-init format.
func GenerateUserData(in Input) (string, error) {
	if in.AuthorizedKey == "" {
		return "", fmt.Errorf("authorized key is required")
	}

	userData := UserData{
		Users: []User{
			{
				Name:              BenchmarkUser,
				Sudo:              "ALL=(ALL) NOPASSWD:ALL",
				Shell:             "/bin/bash",
				SSHAuthorizedKeys: []string{in.AuthorizedKey},
			},
		},
		PackageUpdate:  true,
		PackageUpgrade: true,
		Packages:       in.Packages,
		RunCmd: []string{
			"systemctl enable ssh",
			"systemctl start ssh",
			fmt.Sprintf("echo %q > %s", MarkerContent, MarkerPath),
		},
	}

	yamlBytes, err := yaml.Marshal(&userData)
	if err != nil {
		return "", fmt.Errorf("failed to marshal user-data to YAML: %w", err)
	}

	return "#cloud-config\n" + string(yamlBytes), nil
}

// GenerateMetaData renders the meta-data document. The instance-id is the
// VM's generated unique identifier, so recreating a VM under the same name
// still triggers a fresh first boot.
func GenerateMetaData(in Input) (string, error) {
	if in.Name == "" {
		return "", fmt.Errorf("VM name is required")
	}
	if in.InstanceID == "" {
		return "", fmt.Errorf("instance ID is required")
	}

	metaData := MetaData{
		InstanceID:    in.InstanceID,
		LocalHostname: in.Name,
	}

	yamlBytes, err := yaml.Marshal(&metaData)
	if err != nil {
		return "", fmt.Errorf("failed to marshal meta-data to YAML: %w", err)
	}

	return string(yamlBytes), nil
}
