package config

import "github.com/caarlos0/env/v11"

// TestConfig points integration tests at external backends. Empty fields
// mean the backend is unavailable and dependent tests skip.
type TestConfig struct {
	PostgresDSN string `env:"TEST_POSTGRES_DSN"`
}

func LoadTest() (TestConfig, error) {
	var cfg TestConfig
	err := env.Parse(&cfg)
	return cfg, err
}
