package output

import (
	"encoding/json"
	"fmt"

	"github.com/vmbench/vmbench/internal/vm"
)

// JSONFormatter formats VM listings as JSON.
type JSONFormatter struct{}

// FormatVMList formats a list of VMs as a JSON array.
func (f *JSONFormatter) FormatVMList(vms []vm.VMInfo) (string, error) {
	if len(vms) == 0 {
		return "[]\n", nil
	}

	data, err := json.MarshalIndent(vms, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal VMs to JSON: %w", err)
	}

	return string(data) + "\n", nil
}
