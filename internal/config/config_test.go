package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("expected default port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Auth.BcryptCost != 10 {
		t.Errorf("expected default bcrypt cost 10, got %d", cfg.Auth.BcryptCost)
	}
	if cfg.Auth.SessionTTL != 7*24*time.Hour {
		t.Errorf("expected default session TTL of 7 days, got %v", cfg.Auth.SessionTTL)
	}
	if cfg.Auth.CookieName != "taskhub_session" {
		t.Errorf("expected default cookie name, got %q", cfg.Auth.CookieName)
	}
	if cfg.RateLimit.Login != 10 || cfg.RateLimit.Window != time.Minute {
		t.Errorf("expected default login limit 10/min, got %d/%v", cfg.RateLimit.Login, cfg.RateLimit.Window)
	}
	if cfg.Activity.BatchSize != 100 {
		t.Errorf("expected default activity batch size 100, got %d", cfg.Activity.BatchSize)
	}
}

func TestLoad_FromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "taskhub.yaml")
	content := `
server:
  port: 9090
  read_timeout: 5s
auth:
  bcrypt_cost: 12
  session_ttl: 24h
cors:
  allowed_origins:
    - http://localhost:3000
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout != 5*time.Second {
		t.Errorf("expected read timeout 5s, got %v", cfg.Server.ReadTimeout)
	}
	if cfg.Auth.BcryptCost != 12 {
		t.Errorf("expected bcrypt cost 12, got %d", cfg.Auth.BcryptCost)
	}
	if cfg.Auth.SessionTTL != 24*time.Hour {
		t.Errorf("expected session TTL 24h, got %v", cfg.Auth.SessionTTL)
	}
	if len(cfg.CORS.AllowedOrigins) != 1 || cfg.CORS.AllowedOrigins[0] != "http://localhost:3000" {
		t.Errorf("unexpected CORS origins: %v", cfg.CORS.AllowedOrigins)
	}
	// Unset fields keep their defaults.
	if cfg.Auth.CookieName != "taskhub_session" {
		t.Errorf("expected default cookie name to survive partial config, got %q", cfg.Auth.CookieName)
	}
}

func TestLoad_ExpandsEnvVars(t *testing.T) {
	t.Setenv("TEST_DB_URL", "postgres://u:p@db:5432/taskhub")

	dir := t.TempDir()
	path := filepath.Join(dir, "taskhub.yaml")
	content := "database:\n  url: ${TEST_DB_URL}\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Database.URL != "postgres://u:p@db:5432/taskhub" {
		t.Errorf("expected env-expanded URL, got %q", cfg.Database.URL)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("TASKHUB_DATABASE_URL", "postgres://override")
	t.Setenv("TASKHUB_PORT", "7070")
	t.Setenv("TASKHUB_CORS_ORIGIN", "https://a.example,https://b.example")
	t.Setenv("TASKHUB_SECURE_COOKIES", "true")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Database.URL != "postgres://override" {
		t.Errorf("expected env override for database URL, got %q", cfg.Database.URL)
	}
	if cfg.Server.Port != 7070 {
		t.Errorf("expected env override port 7070, got %d", cfg.Server.Port)
	}
	if len(cfg.CORS.AllowedOrigins) != 2 {
		t.Errorf("expected 2 CORS origins, got %v", cfg.CORS.AllowedOrigins)
	}
	if !cfg.Auth.SecureCookies {
		t.Error("expected secure cookies to be enabled via env")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/taskhub.yaml"); err == nil {
		t.Fatal("expected an error for a missing config file")
	}
}

func TestDatabaseURLForMigrate(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want string
	}{
		{
			name: "adds sslmode",
			url:  "postgres://u:p@db/taskhub",
			want: "postgres://u:p@db/taskhub?sslmode=disable",
		},
		{
			name: "appends to existing query",
			url:  "postgres://u:p@db/taskhub?connect_timeout=5",
			want: "postgres://u:p@db/taskhub?connect_timeout=5&sslmode=disable",
		},
		{
			name: "respects existing sslmode",
			url:  "postgres://u:p@db/taskhub?sslmode=require",
			want: "postgres://u:p@db/taskhub?sslmode=require",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Database: DatabaseConfig{URL: tt.url}}
			if got := cfg.DatabaseURLForMigrate(); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}
