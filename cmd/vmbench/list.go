package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vmbench/vmbench/internal/output"
	"github.com/vmbench/vmbench/internal/vm"
)

var (
	listFormat    string
	listAll       bool
	listNoHeaders bool
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List benchmark VMs",
	Long: `List benchmark VMs known to libvirt, running or stopped.

Shows VM name, state, leased IP address and resources. By default only
VMs created by benchmark runs are shown; use --all for every domain.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := output.ValidateFormat(listFormat); err != nil {
			return err
		}

		vms, err := vm.List(cmd.Context(), listAll)
		if err != nil {
			return fmt.Errorf("failed to list VMs: %w", err)
		}

		formatter, err := output.NewFormatter(output.Options{
			Format:    output.Format(listFormat),
			NoHeaders: listNoHeaders,
		})
		if err != nil {
			return err
		}

		text, err := formatter.FormatVMList(vms)
		if err != nil {
			return err
		}

		fmt.Print(text)
		return nil
	},
}

func init() {
	listCmd.Flags().StringVarP(&listFormat, "output", "o", "table", "output format (table, yaml, json)")
	listCmd.Flags().BoolVarP(&listAll, "all", "a", false, "include domains not created by benchmark runs")
	listCmd.Flags().BoolVar(&listNoHeaders, "no-headers", false, "omit headers in table output")
}
