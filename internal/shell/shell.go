// Package shell runs external commands for the release steps.
package shell

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/charmbracelet/log"
)

// Command describes a process invocation. Dir is always explicit; the
// process working directory of the releaser itself never changes.
type Command struct {
	Name string
	Args []string
	Dir  string
	Env  []string

	// Quiet discards the child's stdout. Stderr is still captured for the
	// error message.
	Quiet bool
}

// String renders the command line for logs.
func (c Command) String() string {
	return strings.TrimSpace(c.Name + " " + strings.Join(c.Args, " "))
}

// Runner executes commands and blocks until they exit.
type Runner interface {
	Run(ctx context.Context, cmd Command) error
	Output(ctx context.Context, cmd Command) (string, error)
}

// ExitError reports a command that ran but exited non-zero.
type ExitError struct {
	Command string
	Code    int
	Stderr  string
}

func (e *ExitError) Error() string {
	msg := fmt.Sprintf("%s: exit status %d", e.Command, e.Code)
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	return msg
}

// Exec runs commands with os/exec.
type Exec struct {
	Stdout io.Writer
	Stderr io.Writer
}

// NewExec returns a runner that streams child output to the terminal.
func NewExec() *Exec {
	return &Exec{Stdout: os.Stdout, Stderr: os.Stderr}
}

// Run executes cmd, streaming its output.
func (r *Exec) Run(ctx context.Context, cmd Command) error {
	log.Info("Running command", "cmd", cmd.String(), "dir", cmd.Dir)

	c := r.command(ctx, cmd)
	var stderr tailBuffer
	if !cmd.Quiet {
		c.Stdout = r.Stdout
		c.Stderr = io.MultiWriter(r.Stderr, &stderr)
	} else {
		c.Stderr = &stderr
	}

	return wrap(cmd, c.Run(), stderr.String())
}

// Output executes cmd and returns its stdout.
func (r *Exec) Output(ctx context.Context, cmd Command) (string, error) {
	log.Debug("Running command", "cmd", cmd.String(), "dir", cmd.Dir)

	c := r.command(ctx, cmd)
	var stdout bytes.Buffer
	var stderr tailBuffer
	c.Stdout = &stdout
	c.Stderr = &stderr

	if err := wrap(cmd, c.Run(), stderr.String()); err != nil {
		return "", err
	}
	return stdout.String(), nil
}

func (r *Exec) command(ctx context.Context, cmd Command) *exec.Cmd {
	c := exec.CommandContext(ctx, cmd.Name, cmd.Args...)
	c.Dir = cmd.Dir
	c.Env = append(os.Environ(), cmd.Env...)
	return c
}

func wrap(cmd Command, err error, stderr string) error {
	if err == nil {
		return nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return &ExitError{Command: cmd.String(), Code: exitErr.ExitCode(), Stderr: strings.TrimSpace(stderr)}
	}
	return fmt.Errorf("%s: %w", cmd.String(), err)
}

const tailSize = 4096

// tailBuffer keeps the last tailSize bytes written to it.
type tailBuffer struct {
	buf []byte
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.buf = append(t.buf, p...)
	if len(t.buf) > tailSize {
		t.buf = t.buf[len(t.buf)-tailSize:]
	}
	return len(p), nil
}

func (t *tailBuffer) String() string {
	return string(t.buf)
}
