package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/joho/godotenv"
)

// BuildEnv reads the configured dotenv file from the project root and
// returns its variables as sorted KEY=VALUE entries, ready to be appended
// to a subprocess environment. A missing file yields no entries.
func (cfg *Config) BuildEnv(root string) ([]string, error) {
	if cfg.EnvFile == "" {
		return nil, nil
	}

	path := cfg.EnvFile
	if !filepath.IsAbs(path) {
		path = filepath.Join(root, path)
	}

	vars, err := godotenv.Read(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read env file %s: %w", path, err)
	}

	keys := make([]string, 0, len(vars))
	for k := range vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	env := make([]string, 0, len(keys))
	for _, k := range keys {
		env = append(env, k+"="+vars[k])
	}
	return env, nil
}
