// Package bench executes performance benchmarks on ready VMs over SSH
// and stores the raw tool output for later analysis.
//
// Tools exercised on the VM: sysbench (cpu, memory), fio (disk I/O)
// and iperf3 (network throughput against a peer VM).
package bench

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/vmbench/vmbench/internal/config"
	"github.com/vmbench/vmbench/internal/naming"
	"github.com/vmbench/vmbench/internal/remote"
)

// executor runs a command on a VM. Satisfied by *remote.Executor.
type executor interface {
	Execute(ctx context.Context, address, command string) (*remote.Result, error)
}

// Result is one completed benchmark invocation.
type Result struct {
	VMName    string
	Benchmark string
	Command   string
	Output    string
	Timestamp time.Time

	// Path of the raw output file under the results directory.
	Path string
}

// RunError reports a benchmark invocation that failed on the VM.
type RunError struct {
	VMName    string
	Benchmark string
	Err       error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("benchmark %q on VM %q failed: %v", e.Benchmark, e.VMName, e.Err)
}

func (e *RunError) Unwrap() error {
	return e.Err
}

// Runner executes the configured benchmark suite against one VM at a
// time. Raw tool output is written to rawDir, one file per invocation.
type Runner struct {
	exec   executor
	cfg    config.BenchmarkConfig
	rawDir string

	now func() time.Time
}

// NewRunner creates a Runner that stores raw results under rawDir.
func NewRunner(exec executor, cfg config.BenchmarkConfig, rawDir string) *Runner {
	return &Runner{
		exec:   exec,
		cfg:    cfg,
		rawDir: rawDir,
		now:    time.Now,
	}
}

// RunCPU runs the sysbench cpu benchmark once per configured thread
// count.
func (r *Runner) RunCPU(ctx context.Context, vmName, address string) ([]Result, error) {
	var results []Result
	for _, threads := range r.cfg.CPU.Threads {
		command := fmt.Sprintf("sysbench cpu --cpu-max-prime=%d --threads=%d --time=%d run",
			r.cfg.CPU.MaxPrime, threads, r.cfg.CPU.TimeSeconds)
		res, err := r.run(ctx, vmName, address, fmt.Sprintf("cpu_t%d", threads), command)
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}

// RunMemory runs the sysbench memory benchmark for every block size
// and thread count combination.
func (r *Runner) RunMemory(ctx context.Context, vmName, address string) ([]Result, error) {
	var results []Result
	for _, blockSize := range r.cfg.Memory.BlockSizes {
		for _, threads := range r.cfg.Memory.Threads {
			command := fmt.Sprintf("sysbench memory --memory-total-size=%s --memory-block-size=%s --threads=%d --time=%d run",
				r.cfg.Memory.TotalSize, blockSize, threads, r.cfg.Memory.TimeSeconds)
			res, err := r.run(ctx, vmName, address, fmt.Sprintf("memory_%s_t%d", blockSize, threads), command)
			if err != nil {
				return results, err
			}
			results = append(results, res)
		}
	}
	return results, nil
}

// RunDisk runs each configured fio job with JSON output.
func (r *Runner) RunDisk(ctx context.Context, vmName, address string) ([]Result, error) {
	var results []Result
	for _, job := range r.cfg.Disk.Jobs {
		command := fmt.Sprintf("fio --name=%s --rw=%s --bs=%s --size=%s --runtime=%d --time_based --directory=/tmp --output-format=json",
			job.Name, job.RW, job.BlockSize, r.cfg.Disk.FileSize, r.cfg.Disk.RuntimeSeconds)
		res, err := r.run(ctx, vmName, address, fmt.Sprintf("disk_%s", job.Name), command)
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}

// StartNetworkServer starts a daemonized iperf3 server on the VM so a
// peer can run the client side against it.
func (r *Runner) StartNetworkServer(ctx context.Context, vmName, address string) error {
	res, err := r.exec.Execute(ctx, address, "iperf3 -s -D")
	if err != nil {
		return &RunError{VMName: vmName, Benchmark: "network_server", Err: err}
	}
	if res.ExitCode != 0 {
		return &RunError{VMName: vmName, Benchmark: "network_server",
			Err: fmt.Errorf("exit %d: %s", res.ExitCode, res.Stderr)}
	}
	return nil
}

// RunNetwork runs the iperf3 client on the VM against serverAddress.
func (r *Runner) RunNetwork(ctx context.Context, vmName, address, serverAddress string) ([]Result, error) {
	command := fmt.Sprintf("iperf3 -c %s -t %d -P %d -J",
		serverAddress, r.cfg.Network.TimeSeconds, r.cfg.Network.Parallel)
	res, err := r.run(ctx, vmName, address, "network", command)
	if err != nil {
		return nil, err
	}
	return []Result{res}, nil
}

// RunAll executes the whole suite on one VM. If serverAddress is
// non-empty the network benchmark runs against it; otherwise the
// network benchmark is skipped.
func (r *Runner) RunAll(ctx context.Context, vmName, address, serverAddress string) ([]Result, error) {
	var all []Result

	log.Printf("Running CPU benchmarks on %q...", vmName)
	results, err := r.RunCPU(ctx, vmName, address)
	all = append(all, results...)
	if err != nil {
		return all, err
	}

	log.Printf("Running memory benchmarks on %q...", vmName)
	results, err = r.RunMemory(ctx, vmName, address)
	all = append(all, results...)
	if err != nil {
		return all, err
	}

	log.Printf("Running disk benchmarks on %q...", vmName)
	results, err = r.RunDisk(ctx, vmName, address)
	all = append(all, results...)
	if err != nil {
		return all, err
	}

	if serverAddress != "" {
		log.Printf("Running network benchmark on %q against %s...", vmName, serverAddress)
		results, err = r.RunNetwork(ctx, vmName, address, serverAddress)
		all = append(all, results...)
		if err != nil {
			return all, err
		}
	}

	log.Printf("Completed %d benchmark runs on %q", len(all), vmName)
	return all, nil
}

// run executes one benchmark command and persists its stdout.
func (r *Runner) run(ctx context.Context, vmName, address, benchmark, command string) (Result, error) {
	log.Printf("Running %s on %q: %s", benchmark, vmName, command)

	res, err := r.exec.Execute(ctx, address, command)
	if err != nil {
		return Result{}, &RunError{VMName: vmName, Benchmark: benchmark, Err: err}
	}
	if res.ExitCode != 0 {
		return Result{}, &RunError{VMName: vmName, Benchmark: benchmark,
			Err: fmt.Errorf("exit %d: %s", res.ExitCode, res.Stderr)}
	}

	ts := r.now()
	path := filepath.Join(r.rawDir, naming.ResultFileName(vmName, benchmark, ts))
	if err := os.WriteFile(path, []byte(res.Stdout), 0o644); err != nil {
		return Result{}, &RunError{VMName: vmName, Benchmark: benchmark,
			Err: fmt.Errorf("failed to store result: %w", err)}
	}

	return Result{
		VMName:    vmName,
		Benchmark: benchmark,
		Command:   command,
		Output:    res.Stdout,
		Timestamp: ts,
		Path:      path,
	}, nil
}
