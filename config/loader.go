package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
)

// Load builds the effective configuration: optional .env file, then
// defaults, then the YAML file at path (if any), then environment
// overrides. A missing file at the default path is not an error; an
// explicitly named file that is missing or malformed is.
func Load(path string, logger *slog.Logger) (*Config, error) {
	if logger == nil {
		logger = slog.Default()
	}

	// Best effort: a missing .env is the normal case outside dev.
	if err := godotenv.Load(); err == nil {
		logger.Debug("Loaded .env file")
	}

	cfg := DefaultConfig()

	explicit := path != ""
	if !explicit {
		path = defaultConfigPath()
	}

	if path != "" {
		loaded, err := LoadFromFile(path)
		switch {
		case err == nil:
			cfg = loaded
			logger.Debug("Loaded config file", "path", path)
		case !explicit && errors.Is(err, os.ErrNotExist):
			// No config file; defaults plus env is a valid setup.
		default:
			return nil, fmt.Errorf("load config %s: %w", path, err)
		}
	}

	cfg.ApplyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// defaultConfigPath returns the conventional config location, or ""
// when it cannot be determined.
func defaultConfigPath() string {
	if v := os.Getenv("TRIAGENT_CONFIG"); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return home + "/.triagent/config.yaml"
}
