// Package remote executes commands on benchmark VMs over SSH.
//
// Every call opens a fresh authenticated session and closes it before
// returning, so polling callers never leak connections. Host keys are
// trusted on first contact; the benchmark network is not a security
// boundary in this system.
package remote

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"time"

	"golang.org/x/crypto/ssh"
)

// DefaultDialTimeout bounds a single connection attempt.
const DefaultDialTimeout = 10 * time.Second

// ConnectionError reports that a command could not be run at all:
// host unreachable, connection refused, or authentication rejected.
// It is distinct from a command that ran and exited non-zero.
type ConnectionError struct {
	Address string
	Err     error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("remote: connect %s: %v", e.Address, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// Result carries the fully captured output of a remote command.
// ExitCode is exposed rather than turned into an error; "ran but
// reported non-success" is a normal outcome for callers to inspect.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Executor opens per-call SSH sessions as a fixed user with a fixed key.
type Executor struct {
	User        string
	Signer      ssh.Signer
	DialTimeout time.Duration
}

// NewExecutor creates an Executor for the given user and key.
func NewExecutor(user string, signer ssh.Signer) *Executor {
	return &Executor{
		User:        user,
		Signer:      signer,
		DialTimeout: DefaultDialTimeout,
	}
}

// Execute connects to address (host or host:port, port 22 by default),
// runs command, and returns its captured output and exit status. The
// session is closed before returning regardless of outcome.
func (e *Executor) Execute(ctx context.Context, address, command string) (*Result, error) {
	hostPort := address
	if _, _, err := net.SplitHostPort(address); err != nil {
		hostPort = net.JoinHostPort(address, "22")
	}

	timeout := e.DialTimeout
	if timeout == 0 {
		timeout = DefaultDialTimeout
	}

	clientConfig := &ssh.ClientConfig{
		User: e.User,
		Auth: []ssh.AuthMethod{
			ssh.PublicKeys(e.Signer),
		},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         timeout,
	}

	dialer := net.Dialer{Timeout: timeout}
	conn, err := dialer.DialContext(ctx, "tcp", hostPort)
	if err != nil {
		return nil, &ConnectionError{Address: hostPort, Err: err}
	}

	sshConn, chans, reqs, err := ssh.NewClientConn(conn, hostPort, clientConfig)
	if err != nil {
		_ = conn.Close()
		return nil, &ConnectionError{Address: hostPort, Err: err}
	}
	client := ssh.NewClient(sshConn, chans, reqs)
	defer func() {
		_ = client.Close()
	}()

	session, err := client.NewSession()
	if err != nil {
		return nil, &ConnectionError{Address: hostPort, Err: fmt.Errorf("failed to open session: %w", err)}
	}
	defer func() {
		_ = session.Close()
	}()

	var stdoutBuf, stderrBuf bytes.Buffer
	session.Stdout = &stdoutBuf
	session.Stderr = &stderrBuf

	doneCh := make(chan error, 1)
	go func() {
		doneCh <- session.Run(command)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		_ = session.Signal(ssh.SIGKILL)
		return nil, &ConnectionError{Address: hostPort, Err: ctx.Err()}
	case runErr = <-doneCh:
	}

	result := &Result{
		Stdout: stdoutBuf.String(),
		Stderr: stderrBuf.String(),
	}

	if runErr != nil {
		exitErr, ok := runErr.(*ssh.ExitError)
		if !ok {
			// The command never ran to completion (lost connection,
			// missing exit status).
			return nil, &ConnectionError{Address: hostPort, Err: runErr}
		}
		result.ExitCode = exitErr.ExitStatus()
	}

	return result, nil
}
