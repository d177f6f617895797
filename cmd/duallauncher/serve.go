package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ShenMinX/duallauncher/internal/config"
	"github.com/ShenMinX/duallauncher/internal/engine"
	"github.com/ShenMinX/duallauncher/internal/history"
	"github.com/ShenMinX/duallauncher/internal/history/factory"
	"github.com/ShenMinX/duallauncher/internal/hooks"
	"github.com/ShenMinX/duallauncher/internal/metrics"
	"github.com/ShenMinX/duallauncher/internal/profile"
	"github.com/ShenMinX/duallauncher/internal/server"
	"github.com/ShenMinX/duallauncher/internal/trigger"

	"github.com/prometheus/client_golang/prometheus"
)

func createServeCommand(globalFlags *GlobalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve [daemon.toml]",
		Short: "Run the supervision daemon",
		Long: `Run the daemon: load launch.conf, auto-start eligible profiles, watch
for crashes, reconcile externally-driven groups, and serve the control API.

Examples:
  duallauncher serve
  duallauncher serve daemon.toml
  duallauncher serve --config=daemon.toml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath := globalFlags.ConfigPath
			if len(args) > 0 {
				configPath = args[0]
			}
			return runServe(configPath)
		},
	}
	return cmd
}

func runServe(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	cfg.Log.Setup()

	store := profile.NewStore(cfg.LaunchConf)
	if err := store.Load(); err != nil {
		return fmt.Errorf("load profiles: %w", err)
	}

	var sink history.Sink
	if cfg.HistoryDSN != "" {
		sink, err = factory.NewSinkFromDSN(cfg.HistoryDSN)
		if err != nil {
			return fmt.Errorf("history sink: %w", err)
		}
		defer func() { _ = sink.Close() }()
	}

	var engineHooks []engine.Hook
	if cfg.Hooks.WindowHelper != "" {
		engineHooks = append(engineHooks, &hooks.WindowMove{
			Helper:      cfg.Hooks.WindowHelper,
			SettleDelay: cfg.Hooks.SettleDelay,
		})
	}
	if cfg.Hooks.OpenBrowser {
		engineHooks = append(engineHooks, &hooks.Browser{SettleDelay: cfg.Hooks.SettleDelay})
	}

	eng := engine.New(engine.Config{
		Store:     store,
		Launcher:  &engine.OSLauncher{Log: cfg.Log},
		History:   sink,
		Hooks:     engineHooks,
		StopGrace: cfg.StopGrace,
	})

	runCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Metrics.Listen != "" {
		if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
			slog.Warn("metrics registration failed", "err", err)
		} else {
			go func() {
				mux := http.NewServeMux()
				mux.Handle("/metrics", metrics.Handler())
				slog.Info("metrics listening", "addr", cfg.Metrics.Listen)
				srv := &http.Server{Addr: cfg.Metrics.Listen, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					slog.Error("metrics server failed", "err", err)
				}
			}()
		}
	}

	if cfg.WatchLaunchConf {
		if err := store.Watch(runCtx, nil); err != nil {
			slog.Warn("launch.conf watch unavailable", "err", err)
		}
	}

	eng.StartMonitors(runCtx)
	eng.AutoStart()

	src := trigger.NewRedisSource(store.RedisSettings())
	defer func() { _ = src.Close() }()
	rec := trigger.New(src, eng, cfg.TriggerPollInterval)
	go rec.Run(runCtx)

	httpSrv, err := server.NewServer(cfg.Server.Listen, cfg.Server.BasePath, eng)
	if err != nil {
		return fmt.Errorf("control API: %w", err)
	}
	slog.Info("control API listening", "addr", cfg.Server.Listen, "base", cfg.Server.BasePath)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	slog.Info("shutting down", "signal", sig.String())

	cancel()
	shutdownCtx, stop := context.WithTimeout(context.Background(), cfg.StopGrace+5*time.Second)
	defer stop()
	eng.Shutdown(shutdownCtx)
	_ = httpSrv.Close()
	return nil
}
