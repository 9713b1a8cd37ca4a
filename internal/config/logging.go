package config

import "github.com/caarlos0/env/v11"

// LogConfig is shared by every binary. Session servers inherit the lobby's
// stdout, so Service tells their lines apart.
type LogConfig struct {
	Level       string `env:"LOG_LEVEL" envDefault:"info"`
	Pretty      bool   `env:"LOG_PRETTY" envDefault:"false"`
	SampleEvery int    `env:"LOG_SAMPLE_EVERY" envDefault:"0"`
	File        string `env:"LOG_FILE"`
	MaxMB       int    `env:"LOG_MAX_MB" envDefault:"10"`
	Service     string `env:"LOG_SERVICE"`
}

// LoadLog reads the log settings, naming the service fallback when
// LOG_SERVICE is unset.
func LoadLog(fallback string) (LogConfig, error) {
	var cfg LogConfig
	if err := env.Parse(&cfg); err != nil {
		return cfg, err
	}
	if cfg.Service == "" {
		cfg.Service = fallback
	}
	return cfg, nil
}
