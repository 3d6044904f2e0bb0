package config

import "github.com/caarlos0/env/v11"

// TestConfig points the Postgres store tests at a disposable database.
// The suite skips those tests when TEST_POSTGRES_DSN is unset.
type TestConfig struct {
	TestPostgresDSN string `env:"TEST_POSTGRES_DSN,required,notEmpty"`
}

func LoadTest() (TestConfig, error) {
	var cfg TestConfig
	err := env.Parse(&cfg)
	return cfg, err
}
