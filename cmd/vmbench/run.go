package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/vmbench/vmbench/internal/bench"
	"github.com/vmbench/vmbench/internal/naming"
	"github.com/vmbench/vmbench/internal/vm"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Provision the test matrix and run the benchmark suite",
	Long: `Provision one VM per test-matrix entry, wait for each to become
ready, run the configured benchmarks on every VM, and tear everything
down.

VMs are provisioned concurrently. When the matrix has more than one
entry the first VM also serves as the iperf3 server for the network
benchmark. Raw tool output lands in results/raw_data/.

VMs are always torn down, whether the run succeeds or fails.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSuite(configPath)
		if err != nil {
			return err
		}
		defer s.Close()

		ctx := cmd.Context()
		runID := naming.RunID(time.Now())
		fmt.Printf("Starting benchmark run %s (%d VMs)\n", runID, len(s.cfg.TestMatrix))

		handles := make([]*vm.Handle, len(s.cfg.TestMatrix))

		// Every provisioned VM is torn down at the end, even when
		// provisioning or a benchmark failed partway.
		defer func() {
			for _, h := range handles {
				if h == nil {
					continue
				}
				if err := s.prov.Teardown(context.WithoutCancel(ctx), h); err != nil {
					log.Printf("Warning: teardown of %q: %v", h.Spec.Name, err)
				}
			}
		}()

		g, gctx := errgroup.WithContext(ctx)
		for i, profile := range s.cfg.TestMatrix {
			name := naming.MatrixVMName(profile, runID)
			g.Go(func() error {
				h, err := s.prov.Provision(gctx, name, profile)
				if err != nil {
					return err
				}
				handles[i] = h
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return fmt.Errorf("provisioning failed: %w", err)
		}

		runner := bench.NewRunner(s.runner, s.cfg.Benchmarks, s.paths.RawData)

		// First VM doubles as the iperf3 server for the others.
		serverAddress := ""
		if len(handles) > 1 {
			server := handles[0]
			if err := runner.StartNetworkServer(ctx, server.Spec.Name, server.Address); err != nil {
				return err
			}
			serverAddress = server.Address
		}

		total := 0
		for i, h := range handles {
			peer := serverAddress
			if i == 0 {
				peer = ""
			}
			results, err := runner.RunAll(ctx, h.Spec.Name, h.Address, peer)
			total += len(results)
			if err != nil {
				return err
			}
		}

		fmt.Printf("✓ Benchmark run %s complete: %d results in %s\n", runID, total, s.paths.RawData)
		return nil
	},
}
