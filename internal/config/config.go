// Package config provides the solana-news server configuration.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/RobinCoderZhao/solana-news/internal/sources"
	appconfig "github.com/RobinCoderZhao/solana-news/pkg/config"
	"github.com/RobinCoderZhao/solana-news/pkg/llm"
	"github.com/RobinCoderZhao/solana-news/pkg/notify"
	"github.com/RobinCoderZhao/solana-news/pkg/storage"
)

// DefaultPath is the config file read when --config is not given.
const DefaultPath = "solana-news.yaml"

// Config is the main configuration.
type Config struct {
	Port          string   `yaml:"port" env:"PORT"`
	RefreshSecret string   `yaml:"refresh_secret" env:"REFRESH_SECRET_KEY"`
	CORSOrigins   []string `yaml:"cors_origins" env:"CORS_ALLOWED_ORIGINS"` // empty allows any origin
	CacheFile     string   `yaml:"cache_file" env:"CACHE_FILE"`

	Server  ServerConfig    `yaml:"server"`
	Refresh RefreshConfig   `yaml:"refresh"`
	News    sources.Options `yaml:"news"`
	LLM     llm.Config      `yaml:"llm"`
	History HistoryConfig   `yaml:"history"`
	Notify  NotifyConfig    `yaml:"notify"`
	Log     LogConfig       `yaml:"log"`
}

// ServerConfig holds HTTP server timeouts. Zero disables a timeout.
type ServerConfig struct {
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout"`
	WriteTimeout      time.Duration `yaml:"write_timeout" env:"HTTP_WRITE_TIMEOUT"`
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout"`
}

// RefreshConfig controls the periodic refresh.
type RefreshConfig struct {
	Interval      time.Duration `yaml:"interval" env:"REFRESH_INTERVAL"`
	SkipIfRunning bool          `yaml:"skip_if_running" env:"REFRESH_SKIP_IF_RUNNING"`
}

// HistoryConfig controls the snapshot archive.
type HistoryConfig struct {
	Enabled        bool `yaml:"enabled" env:"HISTORY_ENABLED"`
	Keep           int  `yaml:"keep" env:"HISTORY_KEEP"`
	storage.Config `yaml:",inline"`
}

// NotifyConfig holds the optional change notifiers. A channel is active
// when its URL or token is set.
type NotifyConfig struct {
	Webhook  notify.WebhookConfig  `yaml:"webhook"`
	Telegram notify.TelegramConfig `yaml:"telegram"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `yaml:"level" env:"LOG_LEVEL"`   // debug, info, warn, error
	Format string `yaml:"format" env:"LOG_FORMAT"` // text or json
}

// Default returns the production defaults.
func Default() Config {
	return Config{
		Port:          "3001",
		RefreshSecret: "dipesh6366",
		CacheFile:     "cache.json",
		Server: ServerConfig{
			ReadHeaderTimeout: 10 * time.Second,
			WriteTimeout:      3 * time.Minute,
			ShutdownTimeout:   5 * time.Second,
		},
		Refresh: RefreshConfig{
			Interval:      3 * time.Hour,
			SkipIfRunning: true,
		},
		News: sources.DefaultOptions(),
		LLM:  llm.DefaultConfig(),
		History: HistoryConfig{
			Keep:   500,
			Config: storage.Config{Driver: storage.SQLite, DSN: "history.db"},
		},
		Log: LogConfig{Level: "info", Format: "text"},
	}
}

// LoadDotEnv loads the given .env files into the process environment.
// Missing files are skipped; variables already set are not overwritten.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// Load reads path over the defaults, then applies environment overrides.
// A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()
	if err := appconfig.LoadOrDefault(path, &cfg); err != nil {
		return cfg, err
	}

	// LLM settings have no env tags in pkg/llm; map them here.
	if p := os.Getenv("LLM_PROVIDER"); p != "" {
		cfg.LLM.Provider = llm.Provider(p)
	}
	if m := os.Getenv("LLM_MODEL"); m != "" {
		cfg.LLM.Model = m
	}
	if key := os.Getenv("LLM_API_KEY"); key != "" {
		cfg.LLM.APIKey = key
	}
	if cfg.LLM.APIKey == "" {
		switch cfg.LLM.Provider {
		case llm.OpenAI:
			cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
		default:
			cfg.LLM.APIKey = os.Getenv("GEMINI_API_KEY")
		}
	}

	return cfg, cfg.Validate()
}

// Validate checks the settings every command relies on. Provider keys are
// checked when the provider chain is built, since "show" needs none.
func (c Config) Validate() error {
	var errs []error
	if c.Port == "" {
		errs = append(errs, errors.New("port is required"))
	}
	if c.RefreshSecret == "" {
		errs = append(errs, errors.New("refresh secret is required"))
	}
	if c.Refresh.Interval <= 0 {
		errs = append(errs, fmt.Errorf("refresh interval must be positive, got %s", c.Refresh.Interval))
	}
	switch c.News.Mode {
	case sources.ModeGenerative, sources.ModeSearch, sources.ModeFallback, sources.ModeExtract:
	default:
		errs = append(errs, fmt.Errorf("unknown news mode %q", c.News.Mode))
	}
	if c.History.Enabled {
		switch c.History.Driver {
		case storage.SQLite, storage.Postgres:
		default:
			errs = append(errs, fmt.Errorf("unsupported history driver %q", c.History.Driver))
		}
		if c.History.DSN == "" {
			errs = append(errs, errors.New("history dsn is required when history is enabled"))
		}
	}
	switch c.Log.Format {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("unknown log format %q", c.Log.Format))
	}
	return errors.Join(errs...)
}
