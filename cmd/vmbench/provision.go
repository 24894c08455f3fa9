package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/vmbench/vmbench/internal/cloudinit"
	"github.com/vmbench/vmbench/internal/sshkey"
)

var provisionProfile string

var provisionCmd = &cobra.Command{
	Use:   "provision <vm-name>",
	Short: "Provision a single benchmark VM",
	Long: `Provision one VM from a sizing profile and wait until it is ready.

The VM is left running for manual use; destroy it with the destroy
command when finished.

Example:
  vmbench provision my-test-vm --profile medium`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]

		s, err := newSuite(configPath)
		if err != nil {
			return err
		}
		defer s.Close()

		fmt.Printf("Provisioning VM %s (profile %s)...\n", name, provisionProfile)
		h, err := s.prov.Provision(cmd.Context(), name, provisionProfile)
		if err != nil {
			return fmt.Errorf("failed to provision VM: %w", err)
		}

		fmt.Printf("✓ VM %s is ready at %s\n", h.Spec.Name, h.Address)
		fmt.Printf("  ssh -i %s %s@%s\n",
			filepath.Join(s.paths.KeysDir, sshkey.PrivateKeyFileName), cloudinit.BenchmarkUser, h.Address)
		return nil
	},
}

func init() {
	provisionCmd.Flags().StringVarP(&provisionProfile, "profile", "p", "", "sizing profile to provision (required)")
	_ = provisionCmd.MarkFlagRequired("profile")
}
