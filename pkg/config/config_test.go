package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

type mode string

type testConfig struct {
	Name     string        `yaml:"name" env:"APP_NAME"`
	Port     int           `yaml:"port" env:"APP_PORT"`
	Debug    bool          `yaml:"debug" env:"APP_DEBUG"`
	Interval time.Duration `yaml:"interval" env:"APP_INTERVAL"`
	Origins  []string      `yaml:"origins" env:"APP_ORIGINS"`
	Mode     mode          `yaml:"mode" env:"APP_MODE"`
	Database struct {
		DSN string `yaml:"dsn" env:"DATABASE_URL"`
	} `yaml:"database"`
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
name: test-app
port: 8080
debug: false
interval: 90m
origins: [https://a.test]
database:
  dsn: cache.db
`)

	var cfg testConfig
	if err := Load(path, &cfg); err != nil {
		t.Fatal(err)
	}

	if cfg.Name != "test-app" {
		t.Fatalf("expected 'test-app', got '%s'", cfg.Name)
	}
	if cfg.Port != 8080 {
		t.Fatalf("expected 8080, got %d", cfg.Port)
	}
	if cfg.Debug {
		t.Fatal("expected debug to be false")
	}
	if cfg.Interval != 90*time.Minute {
		t.Fatalf("expected 90m, got %s", cfg.Interval)
	}
	if cfg.Database.DSN != "cache.db" {
		t.Fatalf("expected nested dsn, got %q", cfg.Database.DSN)
	}
}

func TestEnvOverride(t *testing.T) {
	path := writeConfig(t, `
name: default
port: 3000
`)

	t.Setenv("APP_NAME", "from-env")
	t.Setenv("APP_PORT", "9090")
	t.Setenv("APP_DEBUG", "true")
	t.Setenv("APP_INTERVAL", "1h")
	t.Setenv("APP_ORIGINS", "https://a.test, https://b.test,")
	t.Setenv("APP_MODE", "search")
	t.Setenv("DATABASE_URL", "postgres://x")

	var cfg testConfig
	if err := Load(path, &cfg); err != nil {
		t.Fatal(err)
	}

	if cfg.Name != "from-env" {
		t.Fatalf("expected 'from-env', got '%s'", cfg.Name)
	}
	if cfg.Port != 9090 {
		t.Fatalf("expected 9090, got %d", cfg.Port)
	}
	if !cfg.Debug {
		t.Fatal("expected debug to be true from env")
	}
	if cfg.Interval != time.Hour {
		t.Fatalf("expected 1h, got %s", cfg.Interval)
	}
	if !reflect.DeepEqual(cfg.Origins, []string{"https://a.test", "https://b.test"}) {
		t.Fatalf("unexpected origins %v", cfg.Origins)
	}
	if cfg.Mode != "search" {
		t.Fatalf("expected named string type to be set, got %q", cfg.Mode)
	}
	if cfg.Database.DSN != "postgres://x" {
		t.Fatalf("expected nested env override, got %q", cfg.Database.DSN)
	}
}

func TestApplyEnv_InvalidValue(t *testing.T) {
	t.Setenv("APP_PORT", "not-a-number")
	t.Setenv("APP_INTERVAL", "soon")

	cfg := testConfig{Port: 3001}
	if err := ApplyEnv(&cfg); err == nil {
		t.Fatal("expected error for unparsable values")
	}
	if cfg.Port != 3001 {
		t.Fatalf("port should keep its value, got %d", cfg.Port)
	}
}

func TestLoadOrDefault_MissingFile(t *testing.T) {
	t.Setenv("APP_NAME", "env-only")

	cfg := testConfig{Port: 3001}
	if err := LoadOrDefault("/nonexistent/config.yaml", &cfg); err != nil {
		t.Fatalf("expected no error for missing file, got: %v", err)
	}
	if cfg.Port != 3001 {
		t.Fatalf("expected default port to survive, got %d", cfg.Port)
	}
	if cfg.Name != "env-only" {
		t.Fatalf("expected env override without a file, got '%s'", cfg.Name)
	}
}

func TestSplitList(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"a", []string{"a"}},
		{" a , ,b ", []string{"a", "b"}},
	}
	for _, tt := range tests {
		if got := SplitList(tt.in); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("SplitList(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
