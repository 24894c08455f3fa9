package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var destroyCmd = &cobra.Command{
	Use:   "destroy <vm-name>",
	Short: "Destroy a benchmark VM",
	Long: `Destroy a benchmark VM by name.

This will:
- Force-stop the VM if running
- Undefine the domain
- Delete the overlay disk and cloud-init seed ISO

Artifacts that are already gone are skipped, so destroy can be re-run
after a partial failure.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]

		s, err := newSuite(configPath)
		if err != nil {
			return err
		}
		defer s.Close()

		fmt.Printf("Destroying VM: %s\n", name)
		if err := s.prov.TeardownByName(cmd.Context(), name); err != nil {
			return fmt.Errorf("failed to destroy VM: %w", err)
		}

		fmt.Printf("✓ VM %s destroyed\n", name)
		return nil
	},
}
