// Package config loads chipdo's configuration.
//
// Values are layered, later layers winning:
//
//  1. built-in defaults (Default)
//  2. an optional project config file in TOML, YAML or JSON with comments
//  3. CHIPDO_* environment variables
//
// Every file format uses the same snake_case keys, e.g.
//
//	# chipdo.toml
//	directories = ["bin", "build"]
//	parallelism = 16
//
//	[container]
//	image = "gcc:14"
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"github.com/pelletier/go-toml"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/shinji-kodama/chipdo/internal/model"
)

// EnvPrefix is the prefix of every environment variable override.
const EnvPrefix = "chipdo"

// FileCandidates are the config file names looked up in the project root,
// in priority order.
var FileCandidates = []string{
	"chipdo.toml",
	"chipdo.yaml",
	"chipdo.yml",
	"chipdo.json",
	"chipdo.jsonc",
}

// Config is the complete chipdo configuration.
type Config struct {
	// ProjectName is only used in progress messages.
	ProjectName string `toml:"project_name" yaml:"project_name" json:"project_name" split_words:"true"`

	// Directories lists the required directories relative to the project
	// root, in creation order. Clean walks them in reverse.
	Directories []string `toml:"directories" yaml:"directories" json:"directories"`

	// BuildDir is the CMake binary directory. It must be one of Directories.
	BuildDir string `toml:"build_dir" yaml:"build_dir" json:"build_dir" split_words:"true"`

	// CMake is the cmake executable name or path.
	CMake string `toml:"cmake" yaml:"cmake" json:"cmake"`

	// Generator is the CMake generator.
	Generator string `toml:"generator" yaml:"generator" json:"generator"`

	// BuildType is the CMAKE_BUILD_TYPE passed at configure time.
	BuildType string `toml:"build_type" yaml:"build_type" json:"build_type" split_words:"true"`

	// TestsOption is the boolean cache variable toggling unit test targets.
	TestsOption string `toml:"tests_option" yaml:"tests_option" json:"tests_option" split_words:"true"`

	// Parallelism is the number of concurrent compile jobs.
	Parallelism int `toml:"parallelism" yaml:"parallelism" json:"parallelism"`

	// EnvFile is a dotenv file, relative to the project root, whose
	// variables are added to the build tool's environment.
	EnvFile string `toml:"env_file" yaml:"env_file" json:"env_file" split_words:"true"`

	// Container optionally runs the build tool inside a Docker container.
	Container Container `toml:"container" yaml:"container" json:"container"`
}

// Container configures containerized builds.
type Container struct {
	// Image is the image to run CMake in. Empty disables containerized builds.
	Image string `toml:"image" yaml:"image" json:"image"`

	// Pull pulls the image before the first command.
	Pull bool `toml:"pull" yaml:"pull" json:"pull"`

	// User is the user (name or uid[:gid]) the commands run as.
	User string `toml:"user" yaml:"user" json:"user"`
}

// Enabled reports whether containerized builds are configured.
func (c Container) Enabled() bool {
	return c.Image != ""
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		ProjectName: "8chip",
		Directories: []string{"bin", "build"},
		BuildDir:    "build",
		CMake:       "cmake",
		Generator:   "Unix Makefiles",
		BuildType:   "Debug",
		TestsOption: "MOIRAI_BUILD_TESTS",
		Parallelism: 10,
		EnvFile:     ".env",
	}
}

// Load builds the configuration for the project at root.
//
// When path is empty the project root is searched for one of
// FileCandidates; finding none is not an error. When path is set the file
// must exist. Relative paths are resolved against the working directory.
// The second return value is the config file that was used, if any.
func Load(root, path string) (Config, string, error) {
	cfg := Default()

	if path == "" {
		found, err := Find(root)
		if err != nil {
			return Config{}, "", err
		}
		path = found
	}

	if path != "" {
		fileCfg, err := LoadFile(path)
		if err != nil {
			return Config{}, "", err
		}
		cfg.merge(fileCfg)
	}

	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return Config{}, "", fmt.Errorf("envconfig: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, "", err
	}

	return cfg, path, nil
}

// Find returns the first of FileCandidates present in root, or "" when
// there is none.
func Find(root string) (string, error) {
	for _, name := range FileCandidates {
		candidate := filepath.Join(root, name)
		info, err := os.Stat(candidate)
		if err == nil {
			if info.IsDir() {
				continue
			}
			return candidate, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("stat %s: %w", candidate, err)
		}
	}
	return "", nil
}

// LoadFile decodes a single config file. The format is chosen by extension:
// .toml, .yaml/.yml, or .json/.jsonc (comments and trailing commas allowed).
// Keys absent from the file are left at their zero value.
func LoadFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		if err := toml.NewDecoder(bytes.NewReader(data)).Decode(&cfg); err != nil {
			return Config{}, fmt.Errorf("load toml %s: %w", path, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("load yaml %s: %w", path, err)
		}
	case ".json", ".jsonc":
		if err := json.Unmarshal(jsonc.ToJSON(data), &cfg); err != nil {
			return Config{}, fmt.Errorf("load json %s: %w", path, err)
		}
	default:
		return Config{}, fmt.Errorf("unsupported config file extension %q (valid: .toml, .yaml, .yml, .json, .jsonc)", ext)
	}
	return cfg, nil
}

// merge overlays every non-zero field of other onto cfg.
func (cfg *Config) merge(other Config) {
	setString(&cfg.ProjectName, other.ProjectName)
	setString(&cfg.BuildDir, other.BuildDir)
	setString(&cfg.CMake, other.CMake)
	setString(&cfg.Generator, other.Generator)
	setString(&cfg.BuildType, other.BuildType)
	setString(&cfg.TestsOption, other.TestsOption)
	setString(&cfg.EnvFile, other.EnvFile)
	setString(&cfg.Container.Image, other.Container.Image)
	setString(&cfg.Container.User, other.Container.User)

	if len(other.Directories) > 0 {
		cfg.Directories = append([]string(nil), other.Directories...)
	}
	if other.Parallelism != 0 {
		cfg.Parallelism = other.Parallelism
	}
	if other.Container.Pull {
		cfg.Container.Pull = true
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// cacheVariable matches a valid CMake cache variable name.
var cacheVariable = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Validate checks the configuration for sanity.
func (cfg *Config) Validate() error {
	if err := model.ValidateDirectories(cfg.Directories); err != nil {
		return fmt.Errorf("directories: %w", err)
	}
	buildListed := false
	for _, d := range cfg.Directories {
		if filepath.Clean(d) == filepath.Clean(cfg.BuildDir) {
			buildListed = true
		}
	}
	if cfg.BuildDir == "" {
		return errors.New("build_dir must not be empty")
	}
	if !buildListed {
		return fmt.Errorf("build_dir %q must be one of the required directories %v", cfg.BuildDir, cfg.Directories)
	}
	if cfg.CMake == "" {
		return errors.New("cmake must not be empty")
	}
	if cfg.Generator == "" {
		return errors.New("generator must not be empty")
	}
	if !cacheVariable.MatchString(cfg.TestsOption) {
		return fmt.Errorf("tests_option %q is not a valid CMake variable name", cfg.TestsOption)
	}
	if cfg.Parallelism < 1 {
		return fmt.Errorf("parallelism must be at least 1, got %d", cfg.Parallelism)
	}
	return nil
}
