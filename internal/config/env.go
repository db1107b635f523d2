package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// applyEnv overlays TRAWL_* environment variables on values read from the file.
func (c *Config) applyEnv() error {
	if err := env.Parse(c); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}
