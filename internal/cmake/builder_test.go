package cmake

import (
	"context"
	"errors"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shinji-kodama/chipdo/internal/model"
)

// fakeRunner records every command and returns scripted results in order.
type fakeRunner struct {
	commands []Command
	results  []error
}

func (f *fakeRunner) Run(_ context.Context, cmd Command) error {
	f.commands = append(f.commands, cmd)
	if len(f.results) == 0 {
		return nil
	}
	err := f.results[0]
	f.results = f.results[1:]
	return err
}

func defaultSettings() Settings {
	return Settings{
		CMake:       "cmake",
		Generator:   "Unix Makefiles",
		BuildType:   "Debug",
		TestsOption: "MOIRAI_BUILD_TESTS",
		Parallelism: 10,
	}
}

func newTestBuilder(runner Runner, settings Settings) *Builder {
	logger, _ := test.NewNullLogger()
	return NewBuilder(runner, "/proj", "/proj/build", settings, logger)
}

// TestConfigureCommand verifies the configure command line for both
// values of the tests modifier.
func TestConfigureCommand(t *testing.T) {
	b := newTestBuilder(&fakeRunner{}, defaultSettings())

	tests := []struct {
		name   string
		tests  bool
		option string
	}{
		{"tests disabled", false, "-DMOIRAI_BUILD_TESTS:BOOL=OFF"},
		{"tests enabled", true, "-DMOIRAI_BUILD_TESTS:BOOL=ON"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := b.ConfigureCommand(tt.tests)
			assert.Equal(t, "cmake", cmd.Path)
			assert.Equal(t, "/proj", cmd.Dir)
			assert.Equal(t, []string{
				"-S", "/proj",
				"-B", "/proj/build",
				"-G", "Unix Makefiles",
				"-DCMAKE_BUILD_TYPE=Debug",
				tt.option,
			}, cmd.Args)
		})
	}
}

// TestConfigureCommand_NoBuildType verifies that an empty build type
// omits CMAKE_BUILD_TYPE entirely.
func TestConfigureCommand_NoBuildType(t *testing.T) {
	settings := defaultSettings()
	settings.BuildType = ""
	settings.Env = []string{"CC=clang"}

	cmd := newTestBuilder(&fakeRunner{}, settings).ConfigureCommand(false)
	assert.NotContains(t, cmd.Args, "-DCMAKE_BUILD_TYPE=")
	assert.Len(t, cmd.Args, 7)
	assert.Equal(t, []string{"CC=clang"}, cmd.Env)
}

// TestCompileCommand verifies the compile command line and parallelism.
func TestCompileCommand(t *testing.T) {
	cmd := newTestBuilder(&fakeRunner{}, defaultSettings()).CompileCommand()
	assert.Equal(t, "cmake", cmd.Path)
	assert.Equal(t, []string{"--build", "/proj/build", "--parallel", "10"}, cmd.Args)
}

// TestBuild_Success verifies configure runs before compile.
func TestBuild_Success(t *testing.T) {
	runner := &fakeRunner{}
	b := newTestBuilder(runner, defaultSettings())

	require.NoError(t, b.Build(context.Background(), true))
	require.Len(t, runner.commands, 2)
	assert.Equal(t, "-S", runner.commands[0].Args[0])
	assert.Equal(t, "--build", runner.commands[1].Args[0])
}

// TestBuild_ConfigureFailure verifies that a failed configure step is an
// external tool error and the compile step never runs.
func TestBuild_ConfigureFailure(t *testing.T) {
	runner := &fakeRunner{results: []error{&ExitError{Command: "cmake", Code: 1}}}
	b := newTestBuilder(runner, defaultSettings())

	err := b.Build(context.Background(), false)
	require.Error(t, err)
	assert.True(t, model.IsKind(err, model.KindExternalTool))
	assert.Contains(t, err.Error(), "configuration failed")
	assert.Len(t, runner.commands, 1, "compile must not run after a failed configure")

	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 1, exitErr.Code)
}

// TestBuild_CompileFailure verifies the compile-stage error message.
func TestBuild_CompileFailure(t *testing.T) {
	runner := &fakeRunner{results: []error{nil, errors.New("killed")}}
	b := newTestBuilder(runner, defaultSettings())

	err := b.Build(context.Background(), false)
	require.Error(t, err)
	assert.True(t, model.IsKind(err, model.KindExternalTool))
	assert.Contains(t, err.Error(), "compilation/linking failed")
	assert.Len(t, runner.commands, 2)
}

// TestCommandString verifies quoting of arguments with spaces.
func TestCommandString(t *testing.T) {
	cmd := Command{Path: "cmake", Args: []string{"-G", "Unix Makefiles", "-S", "/proj"}}
	assert.Equal(t, `cmake -G "Unix Makefiles" -S /proj`, cmd.String())
	assert.Equal(t, `cmake ""`, Command{Path: "cmake", Args: []string{""}}.String())
}
