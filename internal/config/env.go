package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Environment variable names. Values set here win over config.toml.
const (
	EnvHome     = "TAMA_DECK_HOME"
	EnvEndpoint = "TAMA_DECK_ENDPOINT"
	EnvTheme    = "TAMA_DECK_THEME"
	EnvDebug    = "TAMA_DECK_DEBUG"
	EnvLogLevel = "TAMA_DECK_LOG_LEVEL"
)

type envOverrides struct {
	Endpoint string `env:"TAMA_DECK_ENDPOINT"`
	Theme    string `env:"TAMA_DECK_THEME"`
	Debug    *bool  `env:"TAMA_DECK_DEBUG"`
	LogLevel string `env:"TAMA_DECK_LOG_LEVEL"`
}

func applyEnv(cfg *Config) error {
	var o envOverrides
	if err := env.Parse(&o); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	if o.Endpoint != "" {
		cfg.Analyzer.Endpoint = o.Endpoint
	}
	if o.Theme != "" {
		cfg.UI.Theme = o.Theme
	}
	if o.Debug != nil {
		cfg.Logs.Debug = *o.Debug
	}
	if o.LogLevel != "" {
		cfg.Logs.Level = o.LogLevel
	}
	return nil
}
