package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "unknown"
)

// configPath is shared by every subcommand that needs the suite config.
var configPath string

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "vmbench",
	Short: "vmbench - VM performance benchmark suite",
	Long: `vmbench provisions benchmark VMs on libvirt/KVM, installs the
benchmark tooling via cloud-init, executes CPU, memory, disk and network
benchmarks over SSH, and collects the raw tool output.

VMs boot from a shared Ubuntu cloud image with per-VM qcow2 overlays and
are always torn down, whether a run succeeds or fails.`,
	Version: fmt.Sprintf("%s (commit: %s)", version, commit),
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "vmbench.yaml", "path to the suite configuration file")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(provisionCmd)
	rootCmd.AddCommand(destroyCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(testConnCmd)
}
