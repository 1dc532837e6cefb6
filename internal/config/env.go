package config

import (
	"fmt"

	"github.com/caarlos0/env/v10"
)

// LoadEnv reads NBACK_* overrides from the environment.
func LoadEnv() (FileConfig, error) {
	return loadEnv(env.Options{})
}

func loadEnv(opts env.Options) (FileConfig, error) {
	var cfg FileConfig
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return FileConfig{}, fmt.Errorf("failed to parse environment: %w", err)
	}
	return cfg, nil
}

// Merge layers override on top of base; set fields in override win.
func Merge(base, override FileConfig) FileConfig {
	out := base
	pickInt(&out.Game.NBack, override.Game.NBack)
	pickInt(&out.Game.Events, override.Game.Events)
	pickInt(&out.Game.IntervalMs, override.Game.IntervalMs)
	pickInt(&out.Game.GridSize, override.Game.GridSize)
	pickInt(&out.Game.Letters, override.Game.Letters)
	pickInt(&out.Game.MatchPercent, override.Game.MatchPercent)
	pickString(&out.Game.Mode, override.Game.Mode)
	pickString(&out.Paths.DB, override.Paths.DB)
	pickString(&out.Paths.Log, override.Paths.Log)
	return out
}

func pickInt(target **int, value *int) {
	if value != nil {
		*target = value
	}
}

func pickString(target **string, value *string) {
	if value != nil {
		*target = value
	}
}
