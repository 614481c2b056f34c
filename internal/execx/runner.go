// Package execx runs external commands synchronously with context
// cancellation and structured tracing. Every command the provisioner spawns
// (apt-get, systemctl, usermod, gpg, journalctl, ...) goes through a Runner
// so tests can substitute a scripted fake.
package execx

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/rs/zerolog"
)

// Runner executes external commands.
type Runner interface {
	// Run executes the command and discards stdout. Stderr is included in
	// the returned error when the command fails.
	Run(ctx context.Context, name string, args ...string) error
	// Output executes the command and returns its stdout.
	Output(ctx context.Context, name string, args ...string) ([]byte, error)
	// LookPath reports the absolute path of name, or an error when absent.
	LookPath(name string) (string, error)
}

// Real executes commands on the host.
type Real struct {
	Log zerolog.Logger
}

// Run implements Runner.
func (r Real) Run(ctx context.Context, name string, args ...string) error {
	r.Log.Debug().Str("cmd", name).Strs("args", args).Msg("exec")
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return commandError(name, err, stderr.Bytes())
	}
	return nil
}

// Output implements Runner.
func (r Real) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	r.Log.Debug().Str("cmd", name).Strs("args", args).Msg("exec")
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return out, commandError(name, err, stderr.Bytes())
	}
	return out, nil
}

// LookPath implements Runner.
func (r Real) LookPath(name string) (string, error) {
	return exec.LookPath(name)
}

// commandError wraps a command failure with a trimmed stderr excerpt so the
// operator sees what the tool itself reported.
func commandError(name string, err error, stderr []byte) error {
	msg := strings.TrimSpace(string(stderr))
	if msg == "" {
		return fmt.Errorf("%s: %w", name, err)
	}
	return fmt.Errorf("%s: %w: %s", name, err, msg)
}

// ExitCode returns the process exit code carried by err, or -1 when err does
// not wrap an *exec.ExitError.
func ExitCode(err error) int {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}
