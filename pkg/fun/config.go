package fun

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
)

// ProjectConfigFile is the name of the project configuration file.
const ProjectConfigFile = "fun.toml"

// ProjectConfig represents a fun.toml project configuration file.
type ProjectConfig struct {
	Eval    EvalConfig    `toml:"eval"`
	Prelude PreludeConfig `toml:"prelude"`
}

// EvalConfig configures evaluation.
type EvalConfig struct {
	// Fuel is the step limit for a single evaluation. Zero means unlimited.
	Fuel int `toml:"fuel"`

	// Trace logs every reduction at debug level.
	Trace bool `toml:"trace"`
}

// PreludeConfig lists library files loaded before every program.
type PreludeConfig struct {
	// Files are paths relative to fun.toml.
	Files []string `toml:"files"`
}

// LoadProjectConfig loads a fun.toml file from the given path.
func LoadProjectConfig(path string) (*ProjectConfig, error) {
	var config ProjectConfig
	if _, err := toml.DecodeFile(path, &config); err != nil {
		return nil, errors.Wrapf(err, "parsing %s", path)
	}
	if config.Eval.Fuel < 0 {
		return nil, errors.Errorf("%s: eval.fuel must not be negative, got %d", path, config.Eval.Fuel)
	}
	return &config, nil
}

// FindProjectConfig searches for a fun.toml file starting from dir and
// walking up to parent directories. Returns the path to fun.toml and the
// parsed config, or ("", nil, nil) if not found.
func FindProjectConfig(dir string) (string, *ProjectConfig, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", nil, err
	}
	for {
		path := filepath.Join(dir, ProjectConfigFile)
		if _, err := os.Stat(path); err == nil {
			config, err := LoadProjectConfig(path)
			if err != nil {
				return "", nil, err
			}
			return path, config, nil
		}

		// Stop at .git boundary
		if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
			return "", nil, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil, nil
		}
		dir = parent
	}
}

// ApplyEnv overrides config values from FUN_FUEL and FUN_TRACE when set.
func (c *ProjectConfig) ApplyEnv() error {
	if v := os.Getenv("FUN_FUEL"); v != "" {
		fuel, err := strconv.Atoi(v)
		if err != nil || fuel < 0 {
			return errors.Errorf("FUN_FUEL must be a non-negative integer, got %q", v)
		}
		c.Eval.Fuel = fuel
	}
	if v := os.Getenv("FUN_TRACE"); v != "" {
		trace, err := strconv.ParseBool(v)
		if err != nil {
			return errors.Wrap(err, "FUN_TRACE")
		}
		c.Eval.Trace = trace
	}
	return nil
}

// LoadPrelude parses the configured prelude files. Relative paths are
// resolved against configDir.
func (c *ProjectConfig) LoadPrelude(configDir string) ([]*Program, error) {
	var libs []*Program
	for _, file := range c.Prelude.Files {
		path := file
		if !filepath.IsAbs(path) {
			path = filepath.Join(configDir, path)
		}
		lib, err := ParseLibraryFile(path)
		if err != nil {
			return nil, errors.Wrap(err, "loading prelude")
		}
		libs = append(libs, lib)
	}
	return libs, nil
}
