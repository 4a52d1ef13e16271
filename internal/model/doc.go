// Package model defines the domain types and value objects for the
// chipdo CLI.
//
// This package contains pure data structures with no external dependencies.
// Options and ProjectPaths are computed once per invocation and are
// read-only afterwards; there is no persistent state.
//
// The package also defines exit codes (ExitCode) and a custom error type
// (CLIError) that classifies failures for the top-level error handler.
package model
