package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Env carries the process-level settings that select which files the server
// loads. Everything tunable beyond file locations lives in the JSON config.
type Env struct {
	ConfigPath    string `env:"DUAT_CONFIG" envDefault:"duat_config.json"`
	DatabasePath  string `env:"DUAT_DB" envDefault:"duat.db"`
	EncountersDir string `env:"DUAT_ENCOUNTERS" envDefault:"encounters"`
	// Address overrides the config file server address when set.
	Address string `env:"DUAT_ADDR"`
}

// ParseEnv reads the DUAT_* environment variables.
func ParseEnv() (Env, error) {
	var e Env
	if err := env.Parse(&e); err != nil {
		return Env{}, fmt.Errorf("failed to parse environment: %w", err)
	}
	return e, nil
}
