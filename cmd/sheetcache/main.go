package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	"sheetcache/internal/auditlog"
	"sheetcache/internal/cache"
	"sheetcache/internal/config"
	"sheetcache/internal/fetch"
	"sheetcache/internal/httpapi"
	"sheetcache/internal/registry"
	"sheetcache/internal/scheduler"
	"sheetcache/internal/storage"
	logx "sheetcache/pkg/logx"
)

func main() {
	var cfgPath string
	flag.StringVar(&cfgPath, "config", "./config.yaml", "path to config file (yaml or json)")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfgPath); err != nil {
		fmt.Println("fatal:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfgPath string) error {
	mgr := config.NewManager(cfgPath)
	cfg, err := mgr.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logSvc, log := logx.New(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	})
	defer logSvc.Close()
	mgr.SetLogger(log.With(logx.String("comp", "config")))

	log.Info("starting sheetcache",
		logx.Int("reports", len(cfg.Reports)),
		logx.String("config", cfgPath),
	)

	reg := registry.New(cfg.Reports, cfg.Schemas)

	fetchTimeout, _ := config.ParseDurationOrDefault("ingest.fetch_timeout", cfg.Ingest.FetchTimeout, fetch.DefaultTimeout)
	retryDelay, _ := config.ParseDurationOrDefault("ingest.retry_delay", cfg.Ingest.RetryDelay, fetch.DefaultDelay)
	fetcher := fetch.New(fetch.Options{
		Timeout:  fetchTimeout,
		Attempts: cfg.Ingest.RetryAttempts,
		Delay:    retryDelay,
	}, log.With(logx.String("comp", "fetch")))

	var store storage.Store
	if cfg.Storage != nil {
		busy, _ := config.ParseDurationOrDefault("storage.busy_timeout", cfg.Storage.BusyTimeout, 0)
		store, err = storage.Open(storage.Config{
			Driver:      cfg.Storage.Driver,
			Path:        cfg.Storage.Path,
			BusyTimeout: busy,
		}, log.With(logx.String("comp", "storage")))
		if err != nil {
			return fmt.Errorf("open storage: %w", err)
		}
	}
	if store != nil {
		defer store.Close()
	}

	audit := auditlog.New(log.With(logx.String("comp", "auditlog")))
	svc := cache.New(reg, fetcher, store, audit, log.With(logx.String("comp", "cache")))

	if cfg.Ingest.ReloadOnStart == nil || *cfg.Ingest.ReloadOnStart {
		if _, err := svc.Reload(ctx); err != nil {
			log.Warn("initial load incomplete", logx.Err(err))
		}
	}

	interval, _ := config.ParseDurationOrDefault("ingest.interval", cfg.Ingest.Interval, scheduler.DefaultInterval)
	sched := scheduler.New(scheduler.Config{Interval: interval}, svc, log.With(logx.String("comp", "scheduler")))
	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	defer sched.Stop()

	readTO, _ := config.ParseDurationOrDefault("server.read_timeout", cfg.Server.ReadTimeout, 0)
	writeTO, _ := config.ParseDurationOrDefault("server.write_timeout", cfg.Server.WriteTimeout, 0)
	idleTO, _ := config.ParseDurationOrDefault("server.idle_timeout", cfg.Server.IdleTimeout, 0)

	handlers := httpapi.NewHandlers(svc, log.With(logx.String("comp", "http")))
	srv := httpapi.NewServer(httpapi.ServerConfig{
		Addr:         cfg.Server.Addr,
		ReadTimeout:  readTO,
		WriteTimeout: writeTO,
		IdleTimeout:  idleTO,
		RatePerSec:   cfg.Server.RatePerSec,
		RateBurst:    cfg.Server.RateBurst,
	}, handlers, log.With(logx.String("comp", "http")))
	srv.Start()

	// Hot-apply logging changes; registry/server changes need a restart
	// and are only logged.
	sub := mgr.Subscribe(1)
	defer mgr.Unsubscribe(sub)
	go func() {
		for next := range sub {
			if next == nil {
				continue
			}
			logSvc.Apply(logx.Config{
				Level:   next.Logging.Level,
				Console: next.Logging.Console,
				File: logx.FileConfig{
					Enabled: next.Logging.File.Enabled,
					Path:    next.Logging.File.Path,
				},
			})
			sections, fields := config.SummarizeChange(cfg, next)
			if len(sections) > 0 {
				log.Info("config updated", fields...)
			}
			cfg = next
		}
	}()
	go func() {
		if err := mgr.Watch(ctx); err != nil && ctx.Err() == nil {
			log.Warn("config watcher stopped", logx.Err(err))
		}
	}()

	_, _ = daemon.SdNotify(false, daemon.SdNotifyReady)

	<-ctx.Done()
	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
