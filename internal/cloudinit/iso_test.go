package cloudinit

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kdomanski/iso9660"
)

func TestGenerateISO(t *testing.T) {
	isoBytes, err := GenerateISO(testInput())
	if err != nil {
		t.Fatalf("GenerateISO() error = %v", err)
	}

	img, err := iso9660.OpenImage(bytes.NewReader(isoBytes))
	if err != nil {
		t.Fatalf("failed to open ISO image: %v", err)
	}

	label, err := img.Label()
	if err != nil {
		t.Fatalf("failed to get volume label: %v", err)
	}
	if label != "CIDATA" {
		t.Errorf("ISO volume label = %q, want %q", label, "CIDATA")
	}

	rootDir, err := img.RootDir()
	if err != nil {
		t.Fatalf("failed to get root directory: %v", err)
	}
	children, err := rootDir.GetChildren()
	if err != nil {
		t.Fatalf("failed to get children: %v", err)
	}

	contents := map[string]string{}
	for _, child := range children {
		data, err := io.ReadAll(child.Reader())
		if err != nil {
			t.Fatalf("reading %s: %v", child.Name(), err)
		}
		contents[child.Name()] = string(data)
	}

	userData, ok := contents["user-data"]
	if !ok {
		t.Fatalf("user-data missing from ISO, got files %v", fileNames(children))
	}
	if !strings.HasPrefix(userData, "#cloud-config") {
		t.Error("packaged user-data lost its header")
	}

	metaData, ok := contents["meta-data"]
	if !ok {
		t.Fatalf("meta-data missing from ISO, got files %v", fileNames(children))
	}
	if !strings.Contains(metaData, "instance-id:") {
		t.Errorf("packaged meta-data = %q", metaData)
	}
}

func TestGenerateISOInvalidInput(t *testing.T) {
	in := testInput()
	in.AuthorizedKey = ""

	_, err := GenerateISO(in)
	if err == nil {
		t.Fatal("expected error")
	}
	var perr *PackagingError
	if !errors.As(err, &perr) {
		t.Errorf("error = %T, want *PackagingError", err)
	}
}

func TestBuildSeed(t *testing.T) {
	seedPath := filepath.Join(t.TempDir(), "vm-seed.iso")

	got, err := BuildSeed(testInput(), seedPath)
	if err != nil {
		t.Fatalf("BuildSeed() error = %v", err)
	}
	if got != seedPath {
		t.Errorf("BuildSeed() = %q, want %q", got, seedPath)
	}

	info, err := os.Stat(seedPath)
	if err != nil {
		t.Fatalf("seed file missing: %v", err)
	}
	if info.Size() == 0 {
		t.Error("seed file is empty")
	}
}

func TestBuildSeedWriteFailure(t *testing.T) {
	// Writing into a missing directory must surface a PackagingError.
	seedPath := filepath.Join(t.TempDir(), "missing", "vm-seed.iso")

	_, err := BuildSeed(testInput(), seedPath)
	if err == nil {
		t.Fatal("expected error")
	}
	var perr *PackagingError
	if !errors.As(err, &perr) {
		t.Errorf("error = %T, want *PackagingError", err)
	}
}

func fileNames(children []*iso9660.File) []string {
	names := make([]string, 0, len(children))
	for _, c := range children {
		names = append(names, c.Name())
	}
	return names
}
