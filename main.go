package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-logr/logr"

	"github.com/evanofslack/dynaflare/internal/config"
	"github.com/evanofslack/dynaflare/internal/logger"
	"github.com/evanofslack/dynaflare/internal/metrics"
	"github.com/evanofslack/dynaflare/internal/provider/cloudflare"
	"github.com/evanofslack/dynaflare/internal/publicip"
	"github.com/evanofslack/dynaflare/internal/reconcile"
	"github.com/evanofslack/dynaflare/internal/report"
	"github.com/evanofslack/dynaflare/internal/state"
	"github.com/evanofslack/dynaflare/internal/watch"
)

var Version = "dev"

func main() {
	logger.Configure("info", "")

	cfg, err := config.Load(config.Path())
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	logger.Configure(cfg.Log.Level, cfg.Log.Env)

	if err := cfg.Validate(); err != nil {
		slog.Error("Invalid config", "error", err)
		os.Exit(1)
	}

	slog.Info("Starting dynaflare", "version", Version)
	if len(cfg.Records) == 0 {
		slog.Warn("No records provided, nothing to do")
		return
	}

	if err := run(cfg); err != nil {
		slog.Error("Reconciliation failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	log := logger.Logr()
	metrics := metrics.New(true)

	stateManager, err := state.New(metrics)
	if err != nil {
		return err
	}
	defer stateManager.Close()

	cf, err := cloudflare.New(cfg.Cloudflare, log.WithName("cloudflare"), metrics)
	if err != nil {
		return err
	}
	resolver := publicip.New(cfg.PublicIP, log.WithName("publicip"), metrics)
	engine := reconcile.NewEngine(cf, resolver, cfg, metrics, log.WithName("reconcile"))

	// Graceful shutdown handling
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	results, err := engine.Reconcile(ctx, cfg.Records)
	if err != nil {
		return err
	}

	if cfg.Interval == 0 {
		slog.Info("No interval configured, exiting")
		return nil
	}

	watchLog := log.WithName("watch")
	reporter := report.New(watchLog, metrics, cfg.Grouping())
	watcher := watch.New(results, resolver, cf, reporter, stateManager, metrics, watchLog)
	watcher.SaveSnapshot(ctx)

	server := startServer(cfg.MetricsAddress(), metrics, stateManager, log.WithName("status"))

	wg := &sync.WaitGroup{}
	wg.Add(1)
	go func() {
		defer wg.Done()
		watcher.Run(ctx, cfg.Interval)
	}()

	<-ctx.Done()
	slog.Info("Shutdown signal received")

	if server != nil {
		shutdownCtx, cancelServer := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancelServer()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("Metrics server shutdown error", "error", err)
		}
	}

	// Wait for watch loop to finish
	wg.Wait()
	slog.Info("Service shutdown complete")
	return nil
}

func startServer(addr string, metrics *metrics.Metrics, stateManager state.Manager, log logr.Logger) *http.Server {
	if addr == "" {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.Handle("/status", state.Handler(stateManager, log))

	server := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	// Start http server in background
	go func() {
		slog.Info("Starting metrics server", "address", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Metrics server failed", "error", err)
		}
	}()
	return server
}
