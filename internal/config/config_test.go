package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/RobinCoderZhao/solana-news/internal/sources"
	"github.com/RobinCoderZhao/solana-news/pkg/llm"
	"github.com/RobinCoderZhao/solana-news/pkg/storage"
)

// clearEnv unsets every variable Load reads so the host environment
// cannot leak into a test.
func clearEnv(t *testing.T) {
	for _, k := range []string{
		"PORT", "REFRESH_SECRET_KEY", "CORS_ALLOWED_ORIGINS", "CACHE_FILE", "HTTP_WRITE_TIMEOUT",
		"REFRESH_INTERVAL", "REFRESH_SKIP_IF_RUNNING", "NEWS_MODE", "NEWS_QUERIES", "NEWS_COUNT",
		"SERP_API_KEY", "SERP_BASE_URL", "SERP_RECENCY", "LLM_PROVIDER", "LLM_MODEL", "LLM_API_KEY",
		"GEMINI_API_KEY", "OPENAI_API_KEY", "HISTORY_ENABLED", "HISTORY_KEEP", "HISTORY_DRIVER",
		"HISTORY_DSN", "NOTIFY_WEBHOOK_URL", "TELEGRAM_BOT_TOKEN", "TELEGRAM_CHANNEL_ID",
		"LOG_LEVEL", "LOG_FORMAT",
	} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Port != "3001" || cfg.RefreshSecret != "dipesh6366" || cfg.CacheFile != "cache.json" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.Refresh.Interval != 3*time.Hour || !cfg.Refresh.SkipIfRunning {
		t.Fatalf("unexpected refresh defaults: %+v", cfg.Refresh)
	}
	if cfg.News.Mode != sources.ModeGenerative || cfg.LLM.Provider != llm.Gemini {
		t.Fatalf("unexpected provider defaults: %+v %+v", cfg.News.Mode, cfg.LLM.Provider)
	}
	if len(cfg.CORSOrigins) != 0 {
		t.Fatalf("expected open CORS by default, got %v", cfg.CORSOrigins)
	}
}

func TestLoad_FileThenEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "solana-news.yaml")
	content := `
port: "8080"
refresh:
  interval: 1h
news:
  mode: fallback
  search:
    api_key: ${TEST_SERP_KEY}
history:
  enabled: true
  driver: postgres
  dsn: postgres://localhost/news
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("TEST_SERP_KEY", "serp-from-file")
	t.Setenv("PORT", "9000")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.test,https://b.test")
	t.Setenv("GEMINI_API_KEY", "gem")

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Port != "9000" {
		t.Fatalf("env should win over file, got %q", cfg.Port)
	}
	if cfg.Refresh.Interval != time.Hour {
		t.Fatalf("expected 1h from file, got %s", cfg.Refresh.Interval)
	}
	if cfg.News.Mode != sources.ModeFallback || cfg.News.Search.APIKey != "serp-from-file" {
		t.Fatalf("unexpected news config %+v", cfg.News)
	}
	if cfg.News.Search.Engine != "google" {
		t.Fatalf("defaults under the file should survive, got engine %q", cfg.News.Search.Engine)
	}
	if !cfg.History.Enabled || cfg.History.Driver != storage.Postgres || cfg.History.Keep != 500 {
		t.Fatalf("unexpected history config %+v", cfg.History)
	}
	if len(cfg.CORSOrigins) != 2 {
		t.Fatalf("unexpected origins %v", cfg.CORSOrigins)
	}
	if cfg.LLM.APIKey != "gem" {
		t.Fatalf("expected gemini key, got %q", cfg.LLM.APIKey)
	}
}

func TestLoad_APIKeyByProvider(t *testing.T) {
	clearEnv(t)
	t.Setenv("LLM_PROVIDER", "openai")
	t.Setenv("LLM_MODEL", "gpt-4o-mini")
	t.Setenv("GEMINI_API_KEY", "gem")
	t.Setenv("OPENAI_API_KEY", "oai")

	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.LLM.Provider != llm.OpenAI || cfg.LLM.Model != "gpt-4o-mini" || cfg.LLM.APIKey != "oai" {
		t.Fatalf("unexpected llm config %+v", cfg.LLM)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"defaults", func(c *Config) {}, true},
		{"no port", func(c *Config) { c.Port = "" }, false},
		{"no secret", func(c *Config) { c.RefreshSecret = "" }, false},
		{"zero interval", func(c *Config) { c.Refresh.Interval = 0 }, false},
		{"bad mode", func(c *Config) { c.News.Mode = "rss" }, false},
		{"bad history driver", func(c *Config) {
			c.History.Enabled = true
			c.History.Driver = "mysql"
		}, false},
		{"history disabled ignores driver", func(c *Config) { c.History.Driver = "mysql" }, true},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.ok && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !tt.ok && err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestLoadDotEnv(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("REFRESH_SECRET_KEY=from-dotenv\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("REFRESH_SECRET_KEY", "")
	os.Unsetenv("REFRESH_SECRET_KEY")

	if err := LoadDotEnv(filepath.Join(dir, "missing.env"), path); err != nil {
		t.Fatal(err)
	}
	if got := os.Getenv("REFRESH_SECRET_KEY"); got != "from-dotenv" {
		t.Fatalf("expected value from .env, got %q", got)
	}
}
