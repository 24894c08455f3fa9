package vm

import (
	"errors"
	"fmt"
	"time"
)

// Phase names the provisioning stage a failure occurred in.
type Phase string

const (
	PhaseSetup     Phase = "setup"
	PhaseStart     Phase = "start"
	PhaseNetwork   Phase = "network-bind"
	PhaseReadiness Phase = "readiness"
)

// ProvisioningError reports a hypervisor-level failure while defining or
// starting a domain. Fatal for the attempt.
type ProvisioningError struct {
	Name string
	Err  error
}

func (e *ProvisioningError) Error() string {
	return fmt.Sprintf("vm %s: provisioning failed: %v", e.Name, e.Err)
}

func (e *ProvisioningError) Unwrap() error { return e.Err }

// NetworkTimeoutError reports that no IPv4 lease appeared within the
// network-bind timeout.
type NetworkTimeoutError struct {
	Name    string
	Timeout time.Duration
}

func (e *NetworkTimeoutError) Error() string {
	return fmt.Sprintf("vm %s: no IPv4 lease within %v", e.Name, e.Timeout)
}

// ReadinessTimeoutError reports that the first-boot completion marker
// was not observed within the readiness timeout.
type ReadinessTimeoutError struct {
	Name    string
	Timeout time.Duration
}

func (e *ReadinessTimeoutError) Error() string {
	return fmt.Sprintf("vm %s: first-boot completion marker not observed within %v", e.Name, e.Timeout)
}

// CleanupError aggregates teardown step failures. Teardown is
// best-effort across all steps, so several may be reported at once. A
// CleanupError never replaces the provisioning error that triggered the
// teardown; it is only returned from explicit teardown requests.
type CleanupError struct {
	Name string
	Errs []error
}

func (e *CleanupError) Error() string {
	return fmt.Sprintf("vm %s: cleanup incomplete: %v", e.Name, errors.Join(e.Errs...))
}

func (e *CleanupError) Unwrap() []error { return e.Errs }

// phaseError tags an error with the provisioning phase it occurred in.
func phaseError(phase Phase, name string, err error) error {
	return fmt.Errorf("provisioning VM %q failed in %s phase: %w", name, phase, err)
}
