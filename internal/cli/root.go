// Package cli implements the cobra-based command line of chipdo.
//
// chipdo has a single root command whose flags select the actions:
// -c/--clean deletes build artifacts, -b/--build configures and compiles
// the project with CMake, and --tests adds the unit test targets to the
// build. This file defines the root command, its flags and the top-level
// error handler that turns any failure into exit code 1.
package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/shinji-kodama/chipdo/internal/model"
)

// version, commit, and date are set at build time via ldflags.
// They are injected from the main package to display version information.
var (
	// Version is the semantic version of the binary (e.g., "1.0.0").
	Version = "dev"

	// Commit is the Git commit hash the binary was built from.
	Commit = "none"

	// Date is the build timestamp.
	Date = "unknown"
)

// rootFlags holds the flag values of the root command.
type rootFlags struct {
	clean bool // -c/--clean: delete build artifacts
	build bool // -b/--build: configure and compile
	tests bool // --tests: include unit test targets

	root       string // --root: project root override
	configPath string // --config: explicit config file

	jsonOutput bool // --json: machine-readable output
	verbose    bool // -v/--verbose: debug logging
}

// NewRootCommand creates the root cobra command wired to the real
// filesystem, subprocesses and clock.
func NewRootCommand() *cobra.Command {
	return newRootCommand(defaultEnvironment())
}

// newRootCommand creates the root command with the given collaborators.
// Tests substitute fakes through env.
func newRootCommand(env *environment) *cobra.Command {
	flags := &rootFlags{}

	rootCmd := &cobra.Command{
		// Use is the one-line usage pattern shown in help output.
		Use:   "chipdo",
		Short: "Build and clean the 8chip project",
		Long: `chipdo wraps the long CMake invocations of the project.

At least one action is required. The project root is the nearest directory
whose CMakeLists.txt declares a project(), searched upwards from the working
directory without leaving its Git repository. Required directories (bin/ and
build/ by default) are created first; clean always runs before build.

Examples:
  chipdo --build
  chipdo -c -b --tests
  chipdo --clean --root ~/src/8chip`,

		// Actions are flags, so any positional argument is a mistake.
		Args: cobra.NoArgs,

		// SilenceUsage and SilenceErrors stop cobra from printing on its
		// own. Execute prints errors (text or JSON based on --json) and the
		// usage text, so every failure goes through the same handler.
		SilenceUsage:  true,
		SilenceErrors: true,

		// Version is displayed when --version flag is used.
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, Date),

		// RunE returns errors instead of exiting, so Execute decides the
		// exit code. cmd.OutOrStdout/ErrOrStderr honour SetOut/SetErr.
		RunE: func(cmd *cobra.Command, args []string) error {
			a := newApp(env, flags, cmd.OutOrStdout(), cmd.ErrOrStderr())
			return a.run(cmd.Context())
		},
	}

	// Actions. At least one of them is required; --tests only modifies
	// --build.
	rootCmd.Flags().BoolVarP(&flags.clean, "clean", "c", false, "ACTION: clean all build artifacts")
	rootCmd.Flags().BoolVarP(&flags.build, "build", "b", false, "ACTION: build the project, in debug mode")
	rootCmd.Flags().BoolVar(&flags.tests, "tests", false, "MODIFIER: also configure and build the unit tests")

	// Location overrides. Without them the project root is discovered from
	// the working directory and the config file from the project root.
	rootCmd.Flags().StringVar(&flags.root, "root", "", "Project root (default: git top-level of the working directory)")
	rootCmd.Flags().StringVar(&flags.configPath, "config", "", "Config file (default: chipdo.{toml,yaml,yml,json,jsonc} in the project root)")

	// Output flags: --json keeps stdout machine-readable, --verbose turns
	// on debug logging on stderr.
	rootCmd.Flags().BoolVar(&flags.jsonOutput, "json", false, "Output in JSON format")
	rootCmd.Flags().BoolVarP(&flags.verbose, "verbose", "v", false, "Enable verbose output")

	// Unknown flags and malformed values are usage errors like a missing
	// action, so they share its reporting path.
	rootCmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return model.WrapCLIError(model.KindUsage, "invalid arguments", err)
	})

	return rootCmd
}

// Execute runs the root command and returns the process exit code.
//
// Every error ends up here: it is printed to stderr (as text or JSON,
// depending on --json) followed by a termination notice, and the exit
// code is 1. Usage errors also print the usage text.
func Execute(rootCmd *cobra.Command) int {
	err := rootCmd.Execute()
	if err == nil {
		return int(model.ExitSuccess)
	}

	// The flag may be unparsed when parsing itself failed; false is the
	// right default then.
	jsonOutput, _ := rootCmd.Flags().GetBool("json")
	stderr := rootCmd.ErrOrStderr()

	var cliErr *model.CLIError
	if !errors.As(err, &cliErr) {
		// Errors raised by cobra itself (e.g. positional arguments) are
		// usage errors too.
		cliErr = model.WrapCLIError(model.KindUsage, "invalid arguments", err)
	}

	printError(stderr, jsonOutput, cliErr)
	if !jsonOutput {
		if cliErr.Kind == model.KindUsage {
			fmt.Fprintln(stderr)
			fmt.Fprint(stderr, rootCmd.UsageString())
		}
		fmt.Fprintln(stderr, "Terminating.")
	}
	return int(cliErr.Code())
}

// printError outputs an error in the appropriate format.
func printError(w io.Writer, jsonOutput bool, cliErr *model.CLIError) {
	if jsonOutput {
		errObj := map[string]interface{}{
			"error": map[string]interface{}{
				"kind":    cliErr.Kind.String(),
				"message": cliErr.Message,
			},
		}
		if cliErr.Err != nil {
			if errMap, ok := errObj["error"].(map[string]interface{}); ok {
				errMap["detail"] = cliErr.Err.Error()
			}
		}
		// MarshalIndent cannot fail on a map of strings.
		data, _ := json.MarshalIndent(errObj, "", "  ")
		fmt.Fprintln(w, string(data))
		return
	}

	if cliErr.Err != nil {
		// The cause goes on the same line so a single grep finds both.
		fmt.Fprintf(w, "Error: %s: %v\n", cliErr.Message, cliErr.Err)
	} else {
		fmt.Fprintf(w, "Error: %s\n", cliErr.Message)
	}
}
