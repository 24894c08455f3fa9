package output

import (
	"bytes"
	"fmt"
	"text/tabwriter"

	"github.com/vmbench/vmbench/internal/vm"
)

// TableFormatter formats VM listings as human-readable tables.
type TableFormatter struct {
	// NoHeaders omits the header row.
	NoHeaders bool
}

// FormatVMList formats a list of VMs as a table.
func (f *TableFormatter) FormatVMList(vms []vm.VMInfo) (string, error) {
	if len(vms) == 0 {
		return "No VMs found\n", nil
	}

	var buf bytes.Buffer
	w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)

	if !f.NoHeaders {
		_, _ = fmt.Fprintln(w, "NAME\tSTATE\tIP\tCPUs\tMEMORY")
	}

	for _, info := range vms {
		address := info.Address
		if address == "" {
			address = "-"
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d MiB\n",
			info.Name, info.State, address, info.CPUs, info.MemoryMB)
	}

	_ = w.Flush()
	return buf.String(), nil
}
