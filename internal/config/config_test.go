package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaultsFromEnvironment(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("INTERNAL_AUTH_TOKEN", "internal")

	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.ServerPort != "8080" || cfg.DatabaseURL != "hunnydu.db" || cfg.LogDir != "logs" {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.DigestInterval() != 12*time.Hour {
		t.Fatalf("expected 12h digest interval, got %v", cfg.DigestInterval())
	}
	if cfg.IsProduction() {
		t.Fatal("default environment should not be production")
	}
}

func TestLoadReadsDotEnv(t *testing.T) {
	dir := t.TempDir()
	content := "JWT_SECRET=fromfile\nINTERNAL_AUTH_TOKEN=tok\nSERVER_PORT=9090\nDIGEST_INTERVAL_HOURS=0\n"
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.JWTSecret != "fromfile" || cfg.ServerPort != "9090" {
		t.Fatalf("values from .env not applied: %+v", cfg)
	}
	if cfg.DigestInterval() != 0 {
		t.Fatalf("expected digests disabled, got %v", cfg.DigestInterval())
	}
}

func TestLoadRequiresSecrets(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("INTERNAL_AUTH_TOKEN", "internal")
	if _, err := Load(t.TempDir()); err == nil {
		t.Fatal("expected error without JWT_SECRET")
	}
}
