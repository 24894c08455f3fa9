package cloudinit

import (
	"bytes"
	"fmt"
	"os"

	"github.com/kdomanski/iso9660"
)

// PackagingError reports a failure to package first-boot configuration
// into seed media. It is fatal for the VM's provisioning attempt.
type PackagingError struct {
	Name string
	Err  error
}

func (e *PackagingError) Error() string {
	return fmt.Sprintf("cloudinit: packaging seed for %s: %v", e.Name, e.Err)
}

func (e *PackagingError) Unwrap() error { return e.Err }

// GenerateISO builds the NoCloud seed ISO containing user-data and
// meta-data in the image root. The volume label "CIDATA" is required by
// the NoCloud datasource.
func GenerateISO(in Input) ([]byte, error) {
	userData, err := GenerateUserData(in)
	if err != nil {
		return nil, &PackagingError{Name: in.Name, Err: err}
	}

	metaData, err := GenerateMetaData(in)
	if err != nil {
		return nil, &PackagingError{Name: in.Name, Err: err}
	}

	writer, err := iso9660.NewWriter()
	if err != nil {
		return nil, &PackagingError{Name: in.Name, Err: fmt.Errorf("failed to create ISO writer: %w", err)}
	}
	defer func() {
		_ = writer.Cleanup()
	}()

	if err := writer.AddFile(bytes.NewReader([]byte(userData)), "user-data"); err != nil {
		return nil, &PackagingError{Name: in.Name, Err: fmt.Errorf("failed to add user-data: %w", err)}
	}
	if err := writer.AddFile(bytes.NewReader([]byte(metaData)), "meta-data"); err != nil {
		return nil, &PackagingError{Name: in.Name, Err: fmt.Errorf("failed to add meta-data: %w", err)}
	}

	var buf bytes.Buffer
	if err := writer.WriteTo(&buf, "CIDATA"); err != nil {
		return nil, &PackagingError{Name: in.Name, Err: fmt.Errorf("failed to write ISO image: %w", err)}
	}

	return buf.Bytes(), nil
}

// BuildSeed generates the seed ISO and writes it to seedPath, which is
// returned for the caller's handle. The file is read-only media for the
// guest and never modified after creation.
func BuildSeed(in Input, seedPath string) (string, error) {
	isoData, err := GenerateISO(in)
	if err != nil {
		return "", err
	}

	if err := os.WriteFile(seedPath, isoData, 0o644); err != nil {
		return "", &PackagingError{Name: in.Name, Err: err}
	}

	return seedPath, nil
}
