package cmake

import (
	"context"
	"fmt"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/shinji-kodama/chipdo/internal/model"
)

// Settings controls how CMake is invoked.
type Settings struct {
	// CMake is the cmake executable.
	CMake string

	// Generator is the CMake generator passed with -G.
	Generator string

	// BuildType is passed as CMAKE_BUILD_TYPE. Empty omits the option.
	BuildType string

	// TestsOption is the project's boolean cache variable that toggles the
	// unit test targets.
	TestsOption string

	// Parallelism is the number of concurrent compile jobs.
	Parallelism int

	// Env holds extra KEY=VALUE entries for both CMake invocations.
	Env []string
}

// Builder runs the configure and compile steps for one project.
type Builder struct {
	runner   Runner
	root     string
	buildDir string
	settings Settings
	logger   logrus.FieldLogger
}

// NewBuilder creates a Builder for the project at root, generating build
// files into buildDir. Both paths should be absolute.
func NewBuilder(runner Runner, root, buildDir string, settings Settings, logger logrus.FieldLogger) *Builder {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Builder{
		runner:   runner,
		root:     root,
		buildDir: buildDir,
		settings: settings,
		logger:   logger,
	}
}

// ConfigureCommand returns the configure step command line:
//
//	cmake -S <root> -B <buildDir> -G <generator> [-DCMAKE_BUILD_TYPE=<type>] -D<option>:BOOL=ON|OFF
func (b *Builder) ConfigureCommand(tests bool) Command {
	args := []string{
		"-S", b.root,
		"-B", b.buildDir,
		"-G", b.settings.Generator,
	}
	if b.settings.BuildType != "" {
		args = append(args, "-DCMAKE_BUILD_TYPE="+b.settings.BuildType)
	}
	args = append(args, fmt.Sprintf("-D%s:BOOL=%s", b.settings.TestsOption, onOff(tests)))

	return Command{
		Path: b.settings.CMake,
		Args: args,
		Dir:  b.root,
		Env:  b.settings.Env,
	}
}

// CompileCommand returns the compile step command line:
//
//	cmake --build <buildDir> --parallel <n>
func (b *Builder) CompileCommand() Command {
	return Command{
		Path: b.settings.CMake,
		Args: []string{"--build", b.buildDir, "--parallel", strconv.Itoa(b.settings.Parallelism)},
		Dir:  b.root,
		Env:  b.settings.Env,
	}
}

// Configure runs the configure step.
func (b *Builder) Configure(ctx context.Context, tests bool) error {
	b.logger.WithField("tests", tests).Debug("configuring")
	if err := b.runner.Run(ctx, b.ConfigureCommand(tests)); err != nil {
		return model.WrapCLIError(model.KindExternalTool, "configuration failed", err)
	}
	return nil
}

// Compile runs the compile step against the configured build directory.
func (b *Builder) Compile(ctx context.Context) error {
	b.logger.WithField("parallelism", b.settings.Parallelism).Debug("compiling")
	if err := b.runner.Run(ctx, b.CompileCommand()); err != nil {
		return model.WrapCLIError(model.KindExternalTool, "compilation/linking failed", err)
	}
	return nil
}

// Build configures and then compiles. The compile step is skipped when
// configuration fails; nothing is rolled back.
func (b *Builder) Build(ctx context.Context, tests bool) error {
	if err := b.Configure(ctx, tests); err != nil {
		return err
	}
	return b.Compile(ctx)
}

func onOff(v bool) string {
	if v {
		return "ON"
	}
	return "OFF"
}
