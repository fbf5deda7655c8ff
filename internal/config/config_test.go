package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadAppliesDefaults(t *testing.T) {
	configViper := NewViper()
	configViper.Set("auth.signing_secret", "secret")

	cfg, err := Load(configViper)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.HTTPAddress != defaultHTTPAddress {
		t.Fatalf("unexpected address %q", cfg.HTTPAddress)
	}
	if cfg.DatabaseDriver != "sqlite" || cfg.DatabasePath != defaultDatabasePath {
		t.Fatalf("unexpected database settings %q %q", cfg.DatabaseDriver, cfg.DatabasePath)
	}
	if cfg.TokenTTL != 30*time.Minute {
		t.Fatalf("unexpected token ttl %v", cfg.TokenTTL)
	}
	if !cfg.ReconcileEnabled || cfg.ReconcileSchedule != "@every 15m" {
		t.Fatalf("unexpected reconcile settings %v %q", cfg.ReconcileEnabled, cfg.ReconcileSchedule)
	}
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("DEVFLOW_AUTH_SIGNING_SECRET", "from-env")
	t.Setenv("DEVFLOW_DATABASE_DRIVER", "Postgres")
	t.Setenv("DEVFLOW_DATABASE_DSN", "postgres://devflow@localhost/devflow")
	t.Setenv("DEVFLOW_AUTH_TOKEN_TTL_MINUTES", "5")

	cfg, err := Load(NewViper())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.SigningSecret != "from-env" {
		t.Fatalf("unexpected secret %q", cfg.SigningSecret)
	}
	if cfg.DatabaseDriver != "postgres" {
		t.Fatalf("expected driver to be normalized, got %q", cfg.DatabaseDriver)
	}
	if cfg.TokenTTL != 5*time.Minute {
		t.Fatalf("unexpected token ttl %v", cfg.TokenTTL)
	}
}

func TestLoadRejectsInvalidConfiguration(t *testing.T) {
	tests := []struct {
		name    string
		values  map[string]any
		wantErr string
	}{
		{name: "missing-secret", values: map[string]any{}, wantErr: "auth.signing_secret"},
		{name: "unknown-driver", values: map[string]any{"auth.signing_secret": "s", "database.driver": "mysql"}, wantErr: "database.driver"},
		{name: "postgres-without-dsn", values: map[string]any{"auth.signing_secret": "s", "database.driver": "postgres"}, wantErr: "database.dsn"},
		{name: "empty-path", values: map[string]any{"auth.signing_secret": "s", "database.path": " "}, wantErr: "database.path"},
		{name: "non-positive-ttl", values: map[string]any{"auth.signing_secret": "s", "auth.token_ttl_minutes": 0}, wantErr: "auth.token_ttl_minutes"},
		{name: "empty-schedule", values: map[string]any{"auth.signing_secret": "s", "reconcile.schedule": ""}, wantErr: "reconcile.schedule"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			configViper := NewViper()
			for key, value := range tt.values {
				configViper.Set(key, value)
			}
			_, err := Load(configViper)
			if err == nil {
				t.Fatalf("expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}
