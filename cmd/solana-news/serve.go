package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/RobinCoderZhao/solana-news/internal/api"
	"github.com/RobinCoderZhao/solana-news/internal/scheduler"
)

func serveCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the news cache and refresh it periodically",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(*cfgPath)
		},
	}
}

func runServe(cfgPath string) error {
	cfg, logger, err := loadConfig(cfgPath)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := newApp(ctx, cfg, logger, true)
	if err != nil {
		return err
	}
	defer a.Close()

	sched := scheduler.NewScheduler()
	sched.SetLogger(logger)
	sched.Add(scheduler.Job{Name: "refresh-solana-news", Fn: a.refresher.Run})
	go sched.Start(ctx, cfg.Refresh.Interval)
	defer sched.Stop()

	opts := []api.Option{
		api.WithMetrics(a.metrics.Handler()),
		api.WithCORSOrigins(cfg.CORSOrigins),
		api.WithLogger(logger),
	}
	if a.history != nil {
		opts = append(opts, api.WithHistory(a.history))
	}
	server := api.NewServer(a.store, a.refresher, cfg.RefreshSecret, opts...)

	srv := &http.Server{
		Addr:              net.JoinHostPort("", cfg.Port),
		Handler:           server.Routes(),
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("Starting Solana news server", "port", cfg.Port, "mode", cfg.News.Mode, "interval", cfg.Refresh.Interval)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case <-quit:
	case err, ok := <-serveErr:
		if ok {
			return fmt.Errorf("http server: %w", err)
		}
	}
	logger.Info("Shutting down server...")
	cancel()

	shutdownCtx, stop := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}
	return nil
}
