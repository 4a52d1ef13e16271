package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeConfig writes content to name inside dir and returns its path.
func writeConfig(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// TestDefault verifies the built-in values match the project's layout and
// build conventions.
func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, []string{"bin", "build"}, cfg.Directories)
	assert.Equal(t, "build", cfg.BuildDir)
	assert.Equal(t, "cmake", cfg.CMake)
	assert.Equal(t, "Unix Makefiles", cfg.Generator)
	assert.Equal(t, "Debug", cfg.BuildType)
	assert.Equal(t, "MOIRAI_BUILD_TESTS", cfg.TestsOption)
	assert.Equal(t, 10, cfg.Parallelism)
	assert.False(t, cfg.Container.Enabled())
	assert.NoError(t, cfg.Validate())
}

// TestLoad_NoFile verifies that a project without a config file gets the
// defaults.
func TestLoad_NoFile(t *testing.T) {
	root := t.TempDir()

	cfg, used, err := Load(root, "")
	require.NoError(t, err)
	assert.Empty(t, used)
	assert.Equal(t, Default(), cfg)
}

// TestLoad_Formats verifies that the same settings load identically from
// every supported format, and that unspecified keys keep their defaults.
func TestLoad_Formats(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{
			name: "toml",
			file: "chipdo.toml",
			content: `
directories = ["bin", "build", "docs"]
parallelism = 4
generator = "Ninja"

[container]
image = "gcc:14"
pull = true
`,
		},
		{
			name: "yaml",
			file: "chipdo.yaml",
			content: `
directories: [bin, build, docs]
parallelism: 4
generator: Ninja
container:
  image: gcc:14
  pull: true
`,
		},
		{
			name: "yml",
			file: "chipdo.yml",
			content: `
directories:
  - bin
  - build
  - docs
parallelism: 4
generator: Ninja
container: {image: "gcc:14", pull: true}
`,
		},
		{
			name: "jsonc",
			file: "chipdo.jsonc",
			content: `{
  // required directories, in creation order
  "directories": ["bin", "build", "docs"],
  "parallelism": 4,
  "generator": "Ninja", /* faster than make */
  "container": {"image": "gcc:14", "pull": true,},
}`,
		},
		{
			name:    "json",
			file:    "chipdo.json",
			content: `{"directories": ["bin", "build", "docs"], "parallelism": 4, "generator": "Ninja", "container": {"image": "gcc:14", "pull": true}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := t.TempDir()
			path := writeConfig(t, root, tt.file, tt.content)

			cfg, used, err := Load(root, "")
			require.NoError(t, err)
			assert.Equal(t, path, used)

			assert.Equal(t, []string{"bin", "build", "docs"}, cfg.Directories)
			assert.Equal(t, 4, cfg.Parallelism)
			assert.Equal(t, "Ninja", cfg.Generator)
			assert.Equal(t, "gcc:14", cfg.Container.Image)
			assert.True(t, cfg.Container.Pull)
			assert.True(t, cfg.Container.Enabled())

			// Untouched keys keep their defaults.
			assert.Equal(t, "build", cfg.BuildDir)
			assert.Equal(t, "MOIRAI_BUILD_TESTS", cfg.TestsOption)
			assert.Equal(t, "Debug", cfg.BuildType)
		})
	}
}

// TestLoad_CandidatePriority verifies TOML wins over YAML when both exist.
func TestLoad_CandidatePriority(t *testing.T) {
	root := t.TempDir()
	tomlPath := writeConfig(t, root, "chipdo.toml", "parallelism = 2\n")
	writeConfig(t, root, "chipdo.yaml", "parallelism: 3\n")

	cfg, used, err := Load(root, "")
	require.NoError(t, err)
	assert.Equal(t, tomlPath, used)
	assert.Equal(t, 2, cfg.Parallelism)
}

// TestLoad_ExplicitPath verifies an explicit file outside the root is used
// and that a missing explicit file is an error.
func TestLoad_ExplicitPath(t *testing.T) {
	root := t.TempDir()
	other := writeConfig(t, t.TempDir(), "release.yaml", "build_type: Release\n")

	cfg, used, err := Load(root, other)
	require.NoError(t, err)
	assert.Equal(t, other, used)
	assert.Equal(t, "Release", cfg.BuildType)

	_, _, err = Load(root, filepath.Join(root, "missing.toml"))
	assert.Error(t, err)
}

// TestLoad_EnvironmentOverrides verifies CHIPDO_* variables win over the
// config file.
func TestLoad_EnvironmentOverrides(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, "chipdo.toml", "parallelism = 2\ngenerator = \"Ninja\"\n")

	t.Setenv("CHIPDO_PARALLELISM", "32")
	t.Setenv("CHIPDO_BUILD_TYPE", "RelWithDebInfo")
	t.Setenv("CHIPDO_CMAKE", "/opt/cmake/bin/cmake")
	t.Setenv("CHIPDO_DIRECTORIES", "bin,build,dist")
	t.Setenv("CHIPDO_CONTAINER_IMAGE", "ubuntu:24.04")

	cfg, _, err := Load(root, "")
	require.NoError(t, err)
	assert.Equal(t, 32, cfg.Parallelism)
	assert.Equal(t, "Ninja", cfg.Generator, "file value survives when no env override exists")
	assert.Equal(t, "RelWithDebInfo", cfg.BuildType)
	assert.Equal(t, "/opt/cmake/bin/cmake", cfg.CMake)
	assert.Equal(t, []string{"bin", "build", "dist"}, cfg.Directories)
	assert.Equal(t, "ubuntu:24.04", cfg.Container.Image)
}

// TestLoad_InvalidEnvironment verifies malformed env values are reported.
func TestLoad_InvalidEnvironment(t *testing.T) {
	t.Setenv("CHIPDO_PARALLELISM", "many")

	_, _, err := Load(t.TempDir(), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "envconfig")
}

// TestLoadFile_Errors covers malformed files and unknown extensions.
func TestLoadFile_Errors(t *testing.T) {
	dir := t.TempDir()

	tests := map[string]string{
		"broken.toml": "parallelism = = 3",
		"broken.yaml": "directories: [bin",
		"broken.json": `{"parallelism": "ten"}`,
		"chipdo.ini":  "parallelism=3",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := LoadFile(writeConfig(t, dir, name, content))
			assert.Error(t, err)
		})
	}
}

// TestValidate covers every rejected configuration.
func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"no directories", func(c *Config) { c.Directories = nil }, "at least one"},
		{"absolute directory", func(c *Config) { c.Directories = []string{"/bin", "build"} }, "relative"},
		{"escaping directory", func(c *Config) { c.Directories = []string{"../bin", "build"} }, "inside the project root"},
		{"duplicate directory", func(c *Config) { c.Directories = []string{"bin", "build", "bin/"} }, "more than once"},
		{"nested directory", func(c *Config) { c.Directories = []string{"bin", "build", "build/sub"} }, "overlap"},
		{"parent after child", func(c *Config) { c.Directories = []string{"out/bin", "out", "build"} }, "overlap"},
		{"empty build dir", func(c *Config) { c.BuildDir = "" }, "build_dir"},
		{"build dir not listed", func(c *Config) { c.BuildDir = "out" }, "must be one of"},
		{"empty cmake", func(c *Config) { c.CMake = "" }, "cmake"},
		{"empty generator", func(c *Config) { c.Generator = "" }, "generator"},
		{"bad tests option", func(c *Config) { c.TestsOption = "BUILD TESTS" }, "tests_option"},
		{"zero parallelism", func(c *Config) { c.Parallelism = 0 }, "parallelism"},
		{"negative parallelism", func(c *Config) { c.Parallelism = -2 }, "parallelism"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

// TestValidate_SiblingPrefix verifies directories sharing a name prefix
// are not mistaken for nested ones.
func TestValidate_SiblingPrefix(t *testing.T) {
	cfg := Default()
	cfg.Directories = []string{"bin", "build", "build-tests", "out/build"}
	assert.NoError(t, cfg.Validate())
}

// TestValidate_BuildDirNormalized verifies "build/" matches "build".
func TestValidate_BuildDirNormalized(t *testing.T) {
	cfg := Default()
	cfg.BuildDir = "build/"
	assert.NoError(t, cfg.Validate())
}
