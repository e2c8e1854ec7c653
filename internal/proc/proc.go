// Package proc runs external command-line tools and captures their output.
package proc

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
)

// Runner executes a command and returns what it wrote to stdout and stderr.
// A non-zero exit is reported as an error that ExitCode understands.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)
}

// ExecRunner runs commands on the host via os/exec.
type ExecRunner struct{}

// Run starts the command and waits for it. The process is killed when ctx is done.
func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}

// ExitCode extracts the process exit code from an error returned by Run.
// It returns -1 when the error did not come from a process exit.
func ExitCode(err error) int {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}

// Tail returns at most the last n bytes of out as a trimmed string.
func Tail(out []byte, n int) string {
	out = bytes.TrimSpace(out)
	if len(out) > n {
		out = out[len(out)-n:]
	}
	return string(out)
}
