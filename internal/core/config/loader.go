package config

import (
	stderrors "errors"
	"io/fs"
	"os"

	"github.com/BurntSushi/toml"

	"mymake/internal/core/errors"
)

// Load reads, defaults, overrides from the environment and validates the
// config file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeValidationError, "decode config"), errors.CtxPath, path)
	}

	return finish(&cfg)
}

// LoadOptional behaves like Load but falls back to the defaults when path
// does not exist. Environment overrides apply in both cases.
func LoadOptional(path string) (*Config, error) {
	cfg, err := Load(path)
	if err == nil {
		return cfg, nil
	}
	if !stderrors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	return finish(&Config{})
}

func finish(cfg *Config) (*Config, error) {
	applyDefaults(cfg)
	ApplyEnvOverrides(cfg)
	normalize(cfg)

	if err := validateMake(cfg); err != nil {
		return nil, err
	}
	if err := validateWatch(cfg); err != nil {
		return nil, err
	}
	if err := validateHistory(cfg); err != nil {
		return nil, err
	}
	if err := validateLog(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
