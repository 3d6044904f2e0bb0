package config

import "testing"

func TestLoadServerDefaults(t *testing.T) {
	t.Setenv("STORE_DRIVER", "")
	t.Setenv("POSTGRES_DSN", "")
	cfg, err := LoadServer()
	if err != nil {
		t.Fatalf("load server config: %v", err)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Fatalf("expected default addr :8080, got %q", cfg.HTTPAddr)
	}
	if cfg.ChallengeTTLSecs != 60 {
		t.Fatalf("expected 60s challenge TTL, got %d", cfg.ChallengeTTLSecs)
	}
	if cfg.RegistrationBurst != 5 || cfg.RegistrationWindowMins != 60 {
		t.Fatalf("unexpected registration limits: %d per %dm", cfg.RegistrationBurst, cfg.RegistrationWindowMins)
	}
	if cfg.LeaderboardMaxLimit != 100 {
		t.Fatalf("expected leaderboard cap 100, got %d", cfg.LeaderboardMaxLimit)
	}
}

func TestLoadServerOverrides(t *testing.T) {
	t.Setenv("STORE_DRIVER", "sqlite")
	t.Setenv("SQLITE_PATH", "/tmp/pulse.db")
	t.Setenv("CHALLENGE_TTL_SECONDS", "15")
	cfg, err := LoadServer()
	if err != nil {
		t.Fatalf("load server config: %v", err)
	}
	if cfg.StoreDriver != "sqlite" || cfg.SQLitePath != "/tmp/pulse.db" {
		t.Fatalf("store override not applied: %+v", cfg)
	}
	if cfg.ChallengeTTLSecs != 15 {
		t.Fatalf("ttl override not applied: %d", cfg.ChallengeTTLSecs)
	}
}

func TestLoadLogDefaults(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")
	cfg, err := LoadLog()
	if err != nil {
		t.Fatalf("load log config: %v", err)
	}
	if cfg.Level != "info" || cfg.Pretty {
		t.Fatalf("unexpected log defaults: %+v", cfg)
	}
}
