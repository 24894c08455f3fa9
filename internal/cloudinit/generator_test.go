package cloudinit

import (
	"fmt"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

const testAuthorizedKey = "ssh-ed25519 AAAAC3NzaC1lZDI1NTE5AAAAIIbJKZscbOLzBsgY5y2QupKW4A2kSDjMBQGPb1dChr+S vmbench"

func testInput() Input {
	return Input{
		Name:          "benchmark-vm-medium-20240315_103000",
		InstanceID:    "1f0e31c8-6f45-4f29-9c2a-5b8f6a3f9d11",
		AuthorizedKey: testAuthorizedKey,
		Packages:      []string{"sysbench", "fio", "iperf3", "sysstat"},
	}
}

func TestGenerateUserData(t *testing.T) {
	content, err := GenerateUserData(testInput())
	if err != nil {
		t.Fatalf("GenerateUserData() error = %v", err)
	}

	if !strings.HasPrefix(content, "#cloud-config\n") {
		t.Error("user-data must start with '#cloud-config'")
	}

	var userData UserData
	if err := yaml.Unmarshal([]byte(strings.TrimPrefix(content, "#cloud-config\n")), &userData); err != nil {
		t.Fatalf("failed to parse user-data YAML: %v", err)
	}

	if len(userData.Users) != 1 {
		t.Fatalf("expected one user, got %d", len(userData.Users))
	}
	user := userData.Users[0]
	if user.Name != BenchmarkUser {
		t.Errorf("user name = %q, want %q", user.Name, BenchmarkUser)
	}
	if user.Sudo != "ALL=(ALL) NOPASSWD:ALL" {
		t.Errorf("sudo = %q", user.Sudo)
	}
	if user.Shell != "/bin/bash" {
		t.Errorf("shell = %q", user.Shell)
	}
	if len(user.SSHAuthorizedKeys) != 1 || user.SSHAuthorizedKeys[0] != testAuthorizedKey {
		t.Errorf("ssh_authorized_keys = %v", user.SSHAuthorizedKeys)
	}

	if !userData.PackageUpdate || !userData.PackageUpgrade {
		t.Error("package_update and package_upgrade must be enabled")
	}
	if len(userData.Packages) != 4 || userData.Packages[0] != "sysbench" {
		t.Errorf("packages = %v", userData.Packages)
	}

	// The final runcmd entry writes the completion marker consumed by
	// readiness polling.
	if len(userData.RunCmd) == 0 {
		t.Fatal("runcmd is empty")
	}
	last := userData.RunCmd[len(userData.RunCmd)-1]
	want := fmt.Sprintf("echo %q > %s", MarkerContent, MarkerPath)
	if last != want {
		t.Errorf("marker runcmd = %q, want %q", last, want)
	}

	foundEnable := false
	for _, cmd := range userData.RunCmd {
		if cmd == "systemctl enable ssh" {
			foundEnable = true
		}
	}
	if !foundEnable {
		t.Error("runcmd must enable the ssh service")
	}
}

func TestGenerateUserDataRequiresKey(t *testing.T) {
	in := testInput()
	in.AuthorizedKey = ""
	if _, err := GenerateUserData(in); err == nil {
		t.Error("expected error for missing authorized key")
	}
}

func TestGenerateMetaData(t *testing.T) {
	content, err := GenerateMetaData(testInput())
	if err != nil {
		t.Fatalf("GenerateMetaData() error = %v", err)
	}

	var metaData MetaData
	if err := yaml.Unmarshal([]byte(content), &metaData); err != nil {
		t.Fatalf("failed to parse meta-data YAML: %v", err)
	}

	if metaData.InstanceID != "1f0e31c8-6f45-4f29-9c2a-5b8f6a3f9d11" {
		t.Errorf("instance-id = %q", metaData.InstanceID)
	}
	if metaData.LocalHostname != "benchmark-vm-medium-20240315_103000" {
		t.Errorf("local-hostname = %q", metaData.LocalHostname)
	}
}

func TestGenerateMetaDataErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Input)
	}{
		{
			name:   "missing name",
			mutate: func(in *Input) { in.Name = "" },
		},
		{
			name:   "missing instance ID",
			mutate: func(in *Input) { in.InstanceID = "" },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := testInput()
			tt.mutate(&in)
			if _, err := GenerateMetaData(in); err == nil {
				t.Error("expected error")
			}
		})
	}
}
