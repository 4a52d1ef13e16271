// Package model defines the domain types for the chipdo CLI.
//
// All entities in this package are transient: they are derived once from
// the command line and the project layout at startup and discarded when
// the process exits. Nothing here is persisted.
package model

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// Action identifies one of the top-level operations chipdo can perform.
type Action string

const (
	// ActionClean deletes the contents of every required directory.
	ActionClean Action = "clean"

	// ActionBuild runs the CMake configure step followed by the compile step.
	ActionBuild Action = "build"
)

// String returns the string representation of Action.
func (a Action) String() string {
	return string(a)
}

// Options holds the actions requested on the command line.
// It is built once during argument parsing and never mutated afterwards.
type Options struct {
	// Clean requests deletion of all build artifacts.
	Clean bool

	// Build requests a CMake configure + compile run.
	Build bool

	// Tests is a modifier: when set, the configure step enables
	// compilation of the unit test targets.
	Tests bool
}

// Validate checks that at least one action was requested.
// A run without any action is a usage error, raised before any side effect.
func (o Options) Validate() error {
	if !o.Clean && !o.Build {
		return NewCLIError(KindUsage, "no action requested, please select one of the available actions (--clean, --build)")
	}
	return nil
}

// Actions returns the requested actions in execution order.
// Clean always precedes build so stale artifacts never leak into a fresh build.
func (o Options) Actions() []Action {
	var actions []Action
	if o.Clean {
		actions = append(actions, ActionClean)
	}
	if o.Build {
		actions = append(actions, ActionBuild)
	}
	return actions
}

// ProjectPaths holds the absolute project root and the ordered list of
// required directory names relative to it.
type ProjectPaths struct {
	// Root is the absolute path to the project root.
	Root string

	// Directories lists the required directories in creation order.
	// Clean walks this list in reverse.
	Directories []string
}

// NewProjectPaths resolves root to an absolute path and validates the
// directory names with ValidateDirectories.
func NewProjectPaths(root string, directories []string) (ProjectPaths, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return ProjectPaths{}, fmt.Errorf("resolve project root %q: %w", root, err)
	}

	if err := ValidateDirectories(directories); err != nil {
		return ProjectPaths{}, err
	}

	dirs := make([]string, 0, len(directories))
	for _, d := range directories {
		dirs = append(dirs, filepath.Clean(d))
	}
	return ProjectPaths{Root: abs, Directories: dirs}, nil
}

// ValidateDirectories checks a required directory list: at least one
// entry, every name valid per ValidateDirectoryName, no duplicates, and no
// entry inside another. Clean empties each directory but keeps it, which
// cannot hold for a required directory nested in another one.
func ValidateDirectories(directories []string) error {
	if len(directories) == 0 {
		return errors.New("at least one required directory must be configured")
	}

	cleaned := make([]string, 0, len(directories))
	for _, d := range directories {
		if err := ValidateDirectoryName(d); err != nil {
			return err
		}
		clean := filepath.Clean(d)
		for i, prev := range cleaned {
			if prev == clean {
				return fmt.Errorf("required directory %q is listed more than once", d)
			}
			if isWithin(prev, clean) || isWithin(clean, prev) {
				return fmt.Errorf("required directories %q and %q overlap, one contains the other",
					directories[i], d)
			}
		}
		cleaned = append(cleaned, clean)
	}
	return nil
}

// isWithin reports whether the relative path child lies strictly inside
// parent.
func isWithin(parent, child string) bool {
	rel, err := filepath.Rel(parent, child)
	if err != nil {
		return false
	}
	return rel != "." && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// ValidateDirectoryName rejects names that are empty, absolute, the root
// itself, or that escape the project root.
func ValidateDirectoryName(name string) error {
	if name == "" {
		return errors.New("required directory name must not be empty")
	}
	if filepath.IsAbs(name) {
		return fmt.Errorf("required directory %q must be relative to the project root", name)
	}
	clean := filepath.Clean(name)
	if clean == "." || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return fmt.Errorf("required directory %q must stay inside the project root", name)
	}
	return nil
}

// Path returns the absolute path of a required directory.
func (p ProjectPaths) Path(name string) string {
	return filepath.Join(p.Root, name)
}

// StepResult records the outcome of one completed action.
type StepResult struct {
	// Action is the action that ran.
	Action Action

	// Took is the wall-clock time the whole action took.
	Took time.Duration
}

// ErrorKind classifies fatal errors so they can be reported consistently.
type ErrorKind string

const (
	// KindUsage indicates invalid command-line input. Raised before any side effect.
	KindUsage ErrorKind = "usage"

	// KindFilesystem indicates a directory could not be created or cleaned.
	KindFilesystem ErrorKind = "filesystem"

	// KindConfig indicates the configuration could not be loaded or is invalid.
	KindConfig ErrorKind = "config"

	// KindExternalTool indicates the external build tool exited with a
	// non-zero status or could not be started.
	KindExternalTool ErrorKind = "external-tool"
)

// String returns the string representation of ErrorKind.
func (k ErrorKind) String() string {
	return string(k)
}

// ExitCode defines the process exit codes.
type ExitCode int

const (
	// ExitSuccess indicates every requested action completed.
	ExitSuccess ExitCode = 0

	// ExitGeneralError is used for every fatal error, whatever its kind.
	ExitGeneralError ExitCode = 1
)

// CLIError is a custom error type that carries an error kind.
// This allows the CLI layer to report every failure through a single
// handler while keeping the underlying cause available to errors.Is/As.
type CLIError struct {
	// Kind classifies the failure.
	Kind ErrorKind

	// Message is the human-readable error description.
	Message string

	// Err is the underlying error, if any.
	Err error
}

// Error satisfies the error interface. It returns the human-readable
// error message, optionally including the underlying error.
func (e *CLIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error for use with errors.Is/errors.As.
func (e *CLIError) Unwrap() error {
	return e.Err
}

// Code returns the process exit code for this error.
func (e *CLIError) Code() ExitCode {
	return ExitGeneralError
}

// NewCLIError creates a new CLIError with the given kind and message.
func NewCLIError(kind ErrorKind, message string) *CLIError {
	return &CLIError{Kind: kind, Message: message}
}

// WrapCLIError creates a new CLIError that wraps an existing error.
func WrapCLIError(kind ErrorKind, message string, err error) *CLIError {
	return &CLIError{Kind: kind, Message: message, Err: err}
}

// IsKind reports whether err is, or wraps, a CLIError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var cliErr *CLIError
	return errors.As(err, &cliErr) && cliErr.Kind == kind
}
