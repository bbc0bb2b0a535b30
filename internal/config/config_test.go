package config

import "testing"

func validConfig() *Config {
	return &Config{
		Env:           "production",
		DatabaseURL:   "postgres://localhost/pharmacy",
		DBMaxConns:    20,
		DBMinConns:    5,
		JWTSecret:     "secret",
		TokenTTLHours: 12,
	}
}

func TestValidate(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_MissingSecretOutsideDev(t *testing.T) {
	cfg := validConfig()
	cfg.JWTSecret = ""
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for missing JWT secret in production")
	}

	cfg.Env = "development"
	if err := cfg.Validate(); err != nil {
		t.Errorf("development should run without a secret: %v", err)
	}
}

func TestValidate_TokenTTL(t *testing.T) {
	cfg := validConfig()
	cfg.TokenTTLHours = 0
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for zero token TTL")
	}
}

func TestValidate_ConnBounds(t *testing.T) {
	cfg := validConfig()
	cfg.DBMaxConns = 2
	cfg.DBMinConns = 5
	if err := cfg.Validate(); err == nil {
		t.Error("expected error when max conns below min conns")
	}
}

func TestEnvPredicates(t *testing.T) {
	cfg := &Config{Env: "development"}
	if !cfg.IsDev() || cfg.IsProduction() {
		t.Error("expected development predicates")
	}
	cfg.Env = "production"
	if cfg.IsDev() || !cfg.IsProduction() {
		t.Error("expected production predicates")
	}
}
