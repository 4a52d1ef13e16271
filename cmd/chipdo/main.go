// Package main is the entry point for the chipdo CLI.
//
// chipdo builds and cleans the 8chip project by driving CMake. It delegates
// all functionality to the internal/cli package, which defines the cobra
// root command.
//
// Build-time variables (version, commit, date) are injected via ldflags
// during the release process. During development, they default to "dev",
// "none", and "unknown" respectively.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/shinji-kodama/chipdo/internal/cli"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	cli.Version = version
	cli.Commit = commit
	cli.Date = date

	// An interrupt cancels the context, which kills the running build tool.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	rootCmd := cli.NewRootCommand()
	rootCmd.SetContext(ctx)
	code := cli.Execute(rootCmd)

	stop()
	os.Exit(code)
}
