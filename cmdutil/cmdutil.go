// Package cmdutil runs external commands, capturing stdout and monitoring
// stderr line-by-line.
package cmdutil

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"
)

// DefaultTimeout is the default timeout for command execution.
const DefaultTimeout = 10 * time.Minute

// stderrTailLines is how many trailing stderr lines an ExitError keeps.
const stderrTailLines = 10

// OutputLineHandler is a callback for processing output lines in real-time.
type OutputLineHandler func(line string)

// Command describes a single external process invocation.
type Command struct {
	Name string
	Args []string
	Dir  string
	// Env is appended to the parent environment.
	Env   []string
	Stdin io.Reader
	// Timeout caps the run. Zero means DefaultTimeout; negative disables it.
	Timeout time.Duration
	// Echo receives stderr as it is produced. Nil discards it.
	Echo io.Writer
	// OnStderrLine is called for every complete stderr line.
	OnStderrLine OutputLineHandler
}

// Result holds what a finished command produced.
type Result struct {
	Stdout   []byte
	ExitCode int
}

// ExitError reports a command that ran but exited non-zero.
type ExitError struct {
	Name     string
	ExitCode int
	Stderr   []string
}

func (e *ExitError) Error() string {
	msg := fmt.Sprintf("%s exited with code %d", e.Name, e.ExitCode)
	if len(e.Stderr) > 0 {
		msg += ": " + e.Stderr[len(e.Stderr)-1]
	}
	return msg
}

// Run runs the command to completion. Stdout is buffered into the Result;
// stderr is passed to OnStderrLine one line at a time.
func Run(ctx context.Context, c Command) (*Result, error) {
	if c.Name == "" {
		return nil, errors.New("command name is required")
	}

	timeout := c.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Dir = c.Dir
	cmd.Env = append(os.Environ(), c.Env...)
	cmd.Stdin = c.Stdin

	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	stderr := newLineWriter(c.Echo, c.OnStderrLine)
	cmd.Stderr = stderr

	err := cmd.Run()
	stderr.Flush()

	res := &Result{Stdout: stdout.Bytes()}
	if cmd.ProcessState != nil {
		res.ExitCode = cmd.ProcessState.ExitCode()
	}
	if err == nil {
		return res, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return res, fmt.Errorf("%s: %w", c.Name, ctxErr)
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return res, &ExitError{Name: c.Name, ExitCode: res.ExitCode, Stderr: stderr.Tail()}
	}
	return res, fmt.Errorf("failed to run %s: %w", c.Name, err)
}

// RunCommandWithOutput runs a command and returns its combined output,
// trimmed of surrounding whitespace.
func RunCommandWithOutput(ctx context.Context, name string, args []string, dir string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	cmd.Env = os.Environ()

	output, err := cmd.CombinedOutput()
	if err != nil {
		return strings.TrimSpace(string(output)), fmt.Errorf("command failed: %w", err)
	}

	return strings.TrimSpace(string(output)), nil
}

// LookPath resolves name to an executable path.
func LookPath(name string) (string, error) {
	path, err := exec.LookPath(name)
	if err != nil {
		return "", fmt.Errorf("executable %q not found: %w", name, err)
	}
	return path, nil
}
