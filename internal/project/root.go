package project

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
)

// MarkerFile is the file that marks a project root, provided it declares
// a CMake project.
const MarkerFile = "CMakeLists.txt"

// ErrNoProject is returned by FindRoot when no project root is found.
var ErrNoProject = errors.New("no CMake project found")

// errNotRepository is returned by gitTopLevel when dir is not inside a Git
// working tree, or when git itself is unavailable.
var errNotRepository = errors.New("not inside a git repository")

// projectCommand matches a top-level project() call. Subdirectory
// CMakeLists.txt files usually only add targets, so they do not match.
var projectCommand = regexp.MustCompile(`(?im)^[ \t]*project[ \t]*\(`)

// FindRoot returns the project root for dir: the nearest directory, dir
// itself included, whose MarkerFile declares a project().
//
// The search never leaves the Git working tree that contains dir, so a
// project vendored inside a larger repository cannot resolve to the outer
// repository. Outside a repository (or without a git binary on PATH) the
// search continues up to the filesystem root. When nothing is found the
// error wraps ErrNoProject. The result is absolute with symlinks resolved.
func FindRoot(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolve %q: %w", dir, err)
	}
	// git reports the top level with symlinks resolved; the walk must use
	// the same form to recognize it.
	start, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", fmt.Errorf("resolve %q: %w", dir, err)
	}

	boundary := ""
	top, err := gitTopLevel(start)
	switch {
	case err == nil:
		boundary = top
	case errors.Is(err, errNotRepository):
	default:
		return "", err
	}

	current := start
	for {
		found, err := isProjectRoot(current)
		if err != nil {
			return "", err
		}
		if found {
			return current, nil
		}

		parent := filepath.Dir(current)
		if current == boundary || parent == current {
			break
		}
		current = parent
	}

	return "", fmt.Errorf("%w: no %s declaring a project() in %s or its parents up to %s",
		ErrNoProject, MarkerFile, start, current)
}

// isProjectRoot reports whether dir holds a MarkerFile with a project()
// call.
func isProjectRoot(dir string) (bool, error) {
	path := filepath.Join(dir, MarkerFile)
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return false, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return false, fmt.Errorf("read %s: %w", path, err)
	}
	return projectCommand.Match(data), nil
}

// gitTopLevel asks git for the top-level directory of the working tree
// containing dir.
func gitTopLevel(dir string) (string, error) {
	if _, err := exec.LookPath("git"); err != nil {
		return "", errNotRepository
	}

	output, err := runGit(dir, "rev-parse", "--show-toplevel")
	if err != nil {
		return "", err
	}

	top := strings.TrimSpace(output)
	if top == "" {
		return "", errNotRepository
	}
	return filepath.FromSlash(top), nil
}

// notRepositoryMessages are git stderr fragments meaning dir has no
// working tree: outside any repository, inside a .git directory, or in a
// bare repository.
var notRepositoryMessages = []string{
	"not a git repository",
	"must be run in a work tree",
}

// runGit executes a git command with the given arguments in the specified
// directory and returns its stdout.
//
// The directory is passed via -C so the process working directory is never
// changed. A missing working tree is reported as errNotRepository; any
// other failure includes git's stderr in the error.
func runGit(dir string, args ...string) (string, error) {
	fullArgs := append([]string{"-C", dir}, args...)

	// #nosec G204 -- args are constructed internally, not from user input
	cmd := exec.Command("git", fullArgs...)

	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		stderrStr := strings.TrimSpace(stderr.String())
		for _, msg := range notRepositoryMessages {
			if strings.Contains(stderrStr, msg) {
				return "", errNotRepository
			}
		}
		message := fmt.Sprintf("git %s failed", strings.Join(args, " "))
		if stderrStr != "" {
			message = fmt.Sprintf("%s: %s", message, stderrStr)
		}
		return "", fmt.Errorf("%s: %w", message, err)
	}

	return stdout.String(), nil
}
