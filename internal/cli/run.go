package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/shinji-kodama/chipdo/internal/cmake"
	"github.com/shinji-kodama/chipdo/internal/config"
	"github.com/shinji-kodama/chipdo/internal/docker"
	"github.com/shinji-kodama/chipdo/internal/model"
	"github.com/shinji-kodama/chipdo/internal/project"
	"github.com/shinji-kodama/chipdo/internal/timefmt"
)

// runnerFactory creates the process runner for a build. The returned
// function releases any resources the runner holds.
type runnerFactory func(ctx context.Context, req runnerRequest) (cmake.Runner, func(), error)

// runnerRequest carries what a runnerFactory needs to know.
type runnerRequest struct {
	cfg    config.Config
	root   string
	stdout io.Writer
	stderr io.Writer
	logger logrus.FieldLogger
}

// environment holds the process-wide side effects of a run. Production
// code uses defaultEnvironment; tests replace individual members.
type environment struct {
	getwd     func() (string, error)
	findRoot  func(dir string) (string, error)
	fs        project.FileSystem
	newRunner runnerFactory
	now       func() time.Time
}

func defaultEnvironment() *environment {
	return &environment{
		getwd:     os.Getwd,
		findRoot:  project.FindRoot,
		fs:        project.OSFileSystem{},
		newRunner: newProcessRunner,
		now:       time.Now,
	}
}

// newProcessRunner returns a local subprocess runner, or a container
// runner when a container image is configured.
func newProcessRunner(ctx context.Context, req runnerRequest) (cmake.Runner, func(), error) {
	if !req.cfg.Container.Enabled() {
		return &cmake.ExecRunner{Stdout: req.stdout, Stderr: req.stderr, Logger: req.logger}, func() {}, nil
	}

	c, err := docker.NewClient()
	if err != nil {
		return nil, nil, err
	}
	if err := c.Ping(ctx); err != nil {
		c.Close()
		return nil, nil, err
	}

	runner := docker.NewRunner(c.API(), docker.RunnerOptions{
		Image:   req.cfg.Container.Image,
		Pull:    req.cfg.Container.Pull,
		User:    req.cfg.Container.User,
		Root:    req.root,
		Project: req.cfg.ProjectName,
		Stdout:  req.stdout,
		Stderr:  req.stderr,
		Logger:  req.logger,
	})
	return runner, func() { c.Close() }, nil
}

// app is a single invocation of the root command.
type app struct {
	env   *environment
	flags *rootFlags

	// stdout carries the final report. progress carries the human-readable
	// step messages: stdout in text mode, stderr with --json so stdout stays
	// machine-readable.
	stdout   io.Writer
	stderr   io.Writer
	progress io.Writer

	logger *logrus.Logger
}

func newApp(env *environment, flags *rootFlags, stdout, stderr io.Writer) *app {
	a := &app{
		env:      env,
		flags:    flags,
		stdout:   stdout,
		stderr:   stderr,
		progress: stdout,
		logger:   newLogger(stderr, flags.verbose, flags.jsonOutput),
	}
	if flags.jsonOutput {
		a.progress = stderr
	}
	return a
}

// newLogger creates the diagnostics logger. Info messages describe
// filesystem and subprocess activity; --verbose adds debug detail.
func newLogger(w io.Writer, verbose, jsonOutput bool) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(w)
	if jsonOutput {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	}
	if verbose {
		logger.SetLevel(logrus.DebugLevel)
	}
	return logger
}

// run performs the requested actions in order: required directories,
// then clean, then build. The first error aborts the run.
func (a *app) run(ctx context.Context) error {
	// Step 1: Reject a run without any action before touching anything.
	opts := model.Options{Clean: a.flags.clean, Build: a.flags.build, Tests: a.flags.tests}
	if err := opts.Validate(); err != nil {
		return err
	}

	// Step 2: Locate the project. Every path below is relative to it.
	root, err := a.resolveRoot()
	if err != nil {
		return err
	}

	// Step 3: Load the layered configuration (defaults, config file,
	// CHIPDO_* environment).
	cfg, cfgPath, err := config.Load(root, a.flags.configPath)
	if err != nil {
		return model.WrapCLIError(model.KindConfig, "failed to load configuration", err)
	}

	paths, err := model.NewProjectPaths(root, cfg.Directories)
	if err != nil {
		return model.WrapCLIError(model.KindConfig, "invalid project layout", err)
	}

	log := a.logger.WithField("root", paths.Root)
	if cfgPath != "" {
		log = log.WithField("config", cfgPath)
	}
	log.WithField("actions", opts.Actions()).Debug("starting")

	// Step 4: Create the required directories. Both actions depend on
	// them, so this runs even for a clean-only invocation.
	layout := project.NewLayout(paths, a.env.fs, a.logger)
	if err := layout.Ensure(); err != nil {
		return err
	}

	// Step 5: Run the actions. Actions() orders clean before build.
	results := make([]model.StepResult, 0, 2)
	for _, action := range opts.Actions() {
		var (
			result model.StepResult
			err    error
		)
		switch action {
		case model.ActionClean:
			result, err = a.clean(layout)
		case model.ActionBuild:
			result, err = a.build(ctx, cfg, paths, opts.Tests)
		}
		if err != nil {
			return err
		}
		results = append(results, result)
	}

	// Step 6: Confirm success, as text or as the JSON report.
	a.report(paths, cfgPath, results)
	return nil
}

// resolveRoot determines the project root. An explicit --root is taken as
// given; otherwise the root is discovered from the working directory.
func (a *app) resolveRoot() (string, error) {
	if a.flags.root != "" {
		root, err := filepath.Abs(a.flags.root)
		if err != nil {
			return "", model.WrapCLIError(model.KindFilesystem, "invalid --root", err)
		}
		return root, nil
	}

	wd, err := a.env.getwd()
	if err != nil {
		return "", model.WrapCLIError(model.KindFilesystem, "failed to get current directory", err)
	}

	root, err := a.env.findRoot(wd)
	if err != nil {
		return "", model.WrapCLIError(model.KindFilesystem,
			"failed to determine project root, run chipdo inside the project or pass --root", err)
	}
	return root, nil
}

// clean deletes the contents of every required directory.
func (a *app) clean(layout *project.Layout) (model.StepResult, error) {
	fmt.Fprintln(a.progress, "Cleaning all previous builds")
	start := a.env.now()

	if err := layout.Clean(); err != nil {
		return model.StepResult{}, err
	}

	took := a.env.now().Sub(start)
	fmt.Fprintf(a.progress, "Clean finished, took %s\n", timefmt.Format(took))
	return model.StepResult{Action: model.ActionClean, Took: took}, nil
}

// build configures and compiles the project. The reported time covers the
// whole action, configure and compile together.
func (a *app) build(ctx context.Context, cfg config.Config, paths model.ProjectPaths, tests bool) (model.StepResult, error) {
	fmt.Fprintf(a.progress, "Building the %s project\n", cfg.ProjectName)
	start := a.env.now()

	buildEnv, err := cfg.BuildEnv(paths.Root)
	if err != nil {
		return model.StepResult{}, model.WrapCLIError(model.KindConfig, "failed to load build environment", err)
	}

	// Tool output must not mix with the JSON report on stdout.
	toolStdout := a.stdout
	if a.flags.jsonOutput {
		toolStdout = a.stderr
	}

	runner, release, err := a.env.newRunner(ctx, runnerRequest{
		cfg:    cfg,
		root:   paths.Root,
		stdout: toolStdout,
		stderr: a.stderr,
		logger: a.logger,
	})
	if err != nil {
		return model.StepResult{}, model.WrapCLIError(model.KindExternalTool, "failed to prepare build runner", err)
	}
	defer release()

	builder := cmake.NewBuilder(runner, paths.Root, paths.Path(cfg.BuildDir), cmake.Settings{
		CMake:       cfg.CMake,
		Generator:   cfg.Generator,
		BuildType:   cfg.BuildType,
		TestsOption: cfg.TestsOption,
		Parallelism: cfg.Parallelism,
		Env:         buildEnv,
	}, a.logger)

	if err := builder.Build(ctx, tests); err != nil {
		return model.StepResult{}, err
	}

	took := a.env.now().Sub(start)
	fmt.Fprintf(a.progress, "Build finished, took %s\n", timefmt.Format(took))
	return model.StepResult{Action: model.ActionBuild, Took: took}, nil
}
