package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeTOML(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "collider.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestDefaults_Valid(t *testing.T) {
	cfg := Defaults()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestLoad_FileAndEnv(t *testing.T) {
	path := writeTOML(t, `
policy = "alpha"
log_level = "debug"

[server]
port = "9090"

[redis]
url = "redis://localhost:6379/0"
quote_ttl = "2m"
`)
	t.Setenv("COLLIDER_PORT", "7070")
	t.Setenv("COLLIDER_DATABASE_URL", "postgres://localhost/collider")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != "7070" {
		t.Errorf("env should override file port, got %q", cfg.Server.Port)
	}
	if cfg.Policy != "alpha" {
		t.Errorf("expected alpha policy, got %q", cfg.Policy)
	}
	if cfg.Redis.QuoteTTL != 2*time.Minute {
		t.Errorf("expected quote ttl 2m, got %s", cfg.Redis.QuoteTTL)
	}
	if cfg.Redis.StoreTTL != 30*time.Second {
		t.Errorf("unset fields should keep defaults, got %s", cfg.Redis.StoreTTL)
	}
	if cfg.Database.URL != "postgres://localhost/collider" {
		t.Errorf("unexpected database url %q", cfg.Database.URL)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected valid config: %v", err)
	}
}

func TestLoad_NoFile(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Market.AntiMint == "" {
		t.Error("expected default anti mint")
	}
}

func TestValidate_Errors(t *testing.T) {
	cfg := Defaults()
	cfg.Server.Port = "http"
	cfg.Policy = "gamma"
	cfg.LogLevel = "loud"
	cfg.Market.ProMint = ""

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"server.port", "unknown distribution policy", "log_level", "pro_mint"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q should mention %q", err, want)
		}
	}
}
