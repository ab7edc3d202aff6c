package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "taskhub.yml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Addr != ":8080" || cfg.Server.BasePath != "/v1" {
		t.Fatalf("server defaults: %+v", cfg.Server)
	}
	if cfg.Auth.TokenTTLMinutes != 60 {
		t.Fatalf("ttl default: %d", cfg.Auth.TokenTTLMinutes)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "taskhub.yml")
	body := "server:\n  addr: \":9090\"\nauth:\n  jwt_secret: hush\n  token_ttl_minutes: 15\nlogging:\n  level: debug\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Addr != ":9090" || cfg.Auth.JWTSecret != "hush" || cfg.Auth.TokenTTLMinutes != 15 {
		t.Fatalf("overrides: %+v", cfg)
	}
	if cfg.Server.BasePath != "/v1" {
		t.Fatalf("absent fields should keep defaults: %s", cfg.Server.BasePath)
	}
}

func TestValidateRejectsBadLevel(t *testing.T) {
	if _, err := FromYAML([]byte("logging:\n  level: loud\n")); err == nil {
		t.Fatal("expected bad level to fail validation")
	}
	if _, err := FromYAML([]byte("auth:\n  token_ttl_minutes: -1\n")); err == nil {
		t.Fatal("expected negative ttl to fail validation")
	}
}
