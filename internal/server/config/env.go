package config

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// dotEnvFile is loaded before the environment is parsed. Variables already
// present in the process environment win over the file.
var dotEnvFile = ".env"

// parseEnv overlays Config with environment variables. Unset variables keep
// the values collected from defaults, JSON and flags.
func parseEnv(config *Config) error {
	if err := godotenv.Load(dotEnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", dotEnvFile, err)
	}
	if err := env.Parse(config); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}
