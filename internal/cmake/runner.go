package cmake

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
)

// Command describes a single external process invocation.
type Command struct {
	// Path is the program to run, either a bare name looked up in PATH or
	// a path to an executable.
	Path string

	// Args are the arguments passed to the program, without the program name.
	Args []string

	// Dir is the working directory. Empty means the current directory.
	Dir string

	// Env holds extra KEY=VALUE entries added on top of the inherited
	// environment. Later entries win over earlier ones.
	Env []string
}

// String renders the command line, quoting arguments that contain spaces.
func (c Command) String() string {
	parts := make([]string, 0, len(c.Args)+1)
	parts = append(parts, c.Path)
	for _, arg := range c.Args {
		if arg == "" || strings.ContainsAny(arg, " \t\"'") {
			arg = strconv.Quote(arg)
		}
		parts = append(parts, arg)
	}
	return strings.Join(parts, " ")
}

// Runner runs a command to completion. Implementations block until the
// process exits and return an error when it cannot be started or exits
// with a non-zero status (reported as *ExitError).
type Runner interface {
	Run(ctx context.Context, cmd Command) error
}

// ExitError reports a process that ran but exited with a non-zero status.
type ExitError struct {
	// Command is the program that failed.
	Command string

	// Code is the process exit status.
	Code int
}

// Error satisfies the error interface.
func (e *ExitError) Error() string {
	return fmt.Sprintf("%s exited with status %d", e.Command, e.Code)
}

// ExecRunner runs commands as local subprocesses.
// Process output is streamed to Stdout and Stderr as it is produced.
type ExecRunner struct {
	// Stdout receives the process standard output. Nil discards it.
	Stdout io.Writer

	// Stderr receives the process standard error. Nil discards it.
	Stderr io.Writer

	// Logger receives the command lines being run. Nil disables logging.
	Logger logrus.FieldLogger
}

// Run starts cmd and waits for it to exit.
func (r *ExecRunner) Run(ctx context.Context, c Command) error {
	if r.Logger != nil {
		r.Logger.WithField("dir", c.Dir).Infof("running %s", c)
	}

	// #nosec G204 -- the command line is assembled from configuration
	cmd := exec.CommandContext(ctx, c.Path, c.Args...)
	cmd.Dir = c.Dir
	cmd.Env = append(os.Environ(), c.Env...)
	cmd.Stdout = r.Stdout
	cmd.Stderr = r.Stderr

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() >= 0 {
			return &ExitError{Command: c.Path, Code: exitErr.ExitCode()}
		}
		return fmt.Errorf("run %s: %w", c.Path, err)
	}
	return nil
}
