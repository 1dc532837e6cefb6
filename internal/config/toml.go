// Package config provides configuration helpers and TOML parsing.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// FileConfig represents the TOML configuration file.
type FileConfig struct {
	Game  GameConfig  `toml:"game"`
	Paths PathsConfig `toml:"paths"`
}

// GameConfig maps game-related settings. Nil fields were not set.
type GameConfig struct {
	NBack        *int    `toml:"n" env:"NBACK_N"`
	Events       *int    `toml:"events" env:"NBACK_EVENTS"`
	IntervalMs   *int    `toml:"interval-ms" env:"NBACK_INTERVAL_MS"`
	GridSize     *int    `toml:"grid-size" env:"NBACK_GRID_SIZE"`
	Letters      *int    `toml:"letters" env:"NBACK_LETTERS"`
	MatchPercent *int    `toml:"match-percent" env:"NBACK_MATCH_PERCENT"`
	Mode         *string `toml:"mode" env:"NBACK_MODE"`
}

// PathsConfig overrides default file locations.
type PathsConfig struct {
	DB  *string `toml:"db" env:"NBACK_DB_PATH"`
	Log *string `toml:"log" env:"NBACK_LOG_PATH"`
}

// LoadConfig reads a TOML config from the given path. Missing file is not an error.
func LoadConfig(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, fmt.Errorf("config path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, nil
		}
		return FileConfig{}, fmt.Errorf("failed to stat config: %w", err)
	}
	var cfg FileConfig
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	return cfg, nil
}
