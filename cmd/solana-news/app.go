package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/RobinCoderZhao/solana-news/internal/cache"
	"github.com/RobinCoderZhao/solana-news/internal/config"
	"github.com/RobinCoderZhao/solana-news/internal/history"
	"github.com/RobinCoderZhao/solana-news/internal/logging"
	"github.com/RobinCoderZhao/solana-news/internal/metrics"
	"github.com/RobinCoderZhao/solana-news/internal/refresher"
	"github.com/RobinCoderZhao/solana-news/internal/sources"
	"github.com/RobinCoderZhao/solana-news/pkg/llm"
	"github.com/RobinCoderZhao/solana-news/pkg/notify"
	"github.com/RobinCoderZhao/solana-news/pkg/storage"
)

// app wires the components a command needs. Fields are nil when the
// command did not ask for them.
type app struct {
	cfg       config.Config
	logger    *slog.Logger
	store     *cache.Store
	metrics   *metrics.Metrics
	history   *history.Store
	refresher *refresher.Refresher
	closers   []func() error
}

// loadConfig reads .env, the config file and the environment, then installs
// the logger.
func loadConfig(path string) (config.Config, *slog.Logger, error) {
	if err := config.LoadDotEnv(); err != nil {
		return config.Config{}, nil, err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := logging.Setup(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return cfg, nil, fmt.Errorf("setup logging: %w", err)
	}
	return cfg, logger, nil
}

// newApp loads the cache and opens history. When withRefresher is set it
// also builds the provider chain and the refresher.
func newApp(ctx context.Context, cfg config.Config, logger *slog.Logger, withRefresher bool) (*app, error) {
	a := &app{
		cfg:     cfg,
		logger:  logger,
		store:   cache.New(cfg.CacheFile),
		metrics: metrics.New(),
	}

	if err := a.store.Load(); err != nil {
		// a bad file must not stop the server; the next refresh overwrites it
		logger.Warn("failed to load cache file, starting empty", "error", err)
	}
	a.metrics.CacheSize(a.store.Len())

	if cfg.History.Enabled {
		db, err := storage.Open(ctx, cfg.History.Config)
		if err != nil {
			return nil, fmt.Errorf("open history: %w", err)
		}
		h, err := history.New(ctx, db, cfg.History.Keep)
		if err != nil {
			db.Close()
			return nil, err
		}
		a.history = h
		a.closers = append(a.closers, h.Close)
	}

	if !withRefresher {
		return a, nil
	}

	var client llm.Client
	if cfg.News.Mode != sources.ModeSearch {
		c, err := llm.NewClient(cfg.LLM)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("create LLM client: %w", err)
		}
		client = c
		a.closers = append(a.closers, c.Close)
	}

	chain, err := sources.BuildChain(cfg.News, client, a.metrics)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("build provider chain: %w", err)
	}
	logger.Info("provider chain ready", "mode", cfg.News.Mode, "providers", chain.Names())

	opts := []refresher.Option{
		refresher.WithRecorder(a.metrics),
		refresher.SkipIfRunning(cfg.Refresh.SkipIfRunning),
	}
	if a.history != nil {
		opts = append(opts, refresher.WithArchive(a.history))
	}
	if d := newDispatcher(cfg.Notify); d.Len() > 0 {
		opts = append(opts, refresher.WithNotifier(d))
	}
	a.refresher = refresher.New(chain, a.store, opts...)
	return a, nil
}

func newDispatcher(cfg config.NotifyConfig) *notify.Dispatcher {
	d := notify.NewDispatcher()
	if cfg.Webhook.URL != "" {
		d.Register(notify.NewWebhookNotifier(cfg.Webhook))
	}
	if cfg.Telegram.BotToken != "" && cfg.Telegram.ChannelID != "" {
		d.Register(notify.NewTelegramNotifier(cfg.Telegram))
	}
	return d
}

// Close releases what newApp opened, most recent first.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
