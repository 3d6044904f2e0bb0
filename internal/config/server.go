package config

import "github.com/caarlos0/env/v11"

type ServerConfig struct {
	StoreDriver string `env:"STORE_DRIVER" envDefault:"postgres"`
	PostgresDSN string `env:"POSTGRES_DSN"`
	SQLitePath  string `env:"SQLITE_PATH" envDefault:"./data/clawpulse.db"`
	HTTPAddr    string `env:"HTTP_ADDR" envDefault:":8080"`

	// Challenge TTL in seconds.
	ChallengeTTLSecs int `env:"CHALLENGE_TTL_SECONDS" envDefault:"60"`

	// Registration rate limit: at most RegistrationBurst agents sharing a
	// 4-char name prefix per trailing window.
	RegistrationWindowMins int `env:"REGISTRATION_WINDOW_MINUTES" envDefault:"60"`
	RegistrationBurst      int `env:"REGISTRATION_BURST" envDefault:"5"`

	LeaderboardMaxLimit int `env:"LEADERBOARD_MAX_LIMIT" envDefault:"100"`

	RollupEnabled bool   `env:"ROLLUP_ENABLED" envDefault:"true"`
	RollupCron    string `env:"ROLLUP_CRON" envDefault:"5 0 * * *"`
	RollupOnStart bool   `env:"ROLLUP_ON_START" envDefault:"false"`
}

func LoadServer() (ServerConfig, error) {
	var cfg ServerConfig
	err := env.Parse(&cfg)
	return cfg, err
}
