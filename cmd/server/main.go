// Command server runs the scrubgate interception gateway.
//
// Configuration can be provided via:
//   - YAML config file (--config flag, SCRUB_CONFIG env, ./config.yaml, /etc/scrubgate/config.yaml)
//   - Environment variables with SCRUB_ prefix (override config file values)
//   - Legacy unprefixed vars from spec §6: LLM_BASE_URL, LLM_TIMEOUT,
//     SCRUB_PROMPT_LIMIT_KB, SCRUB_FILE_LIMIT_KB, SCRUB_DATA_PATH, OPENWEBUI_URL
//
// See package pkg/config for the available settings and their defaults.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rhuss/scrubgate/pkg/activity"
	"github.com/rhuss/scrubgate/pkg/config"
	"github.com/rhuss/scrubgate/pkg/debug"
	"github.com/rhuss/scrubgate/pkg/detector"
	"github.com/rhuss/scrubgate/pkg/gateway"
	"github.com/rhuss/scrubgate/pkg/observerbus"
	"github.com/rhuss/scrubgate/pkg/sandbox"
	"github.com/rhuss/scrubgate/pkg/toolserver"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	debug.Init("", "")

	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	bus, err := createObserverBus(cfg)
	if err != nil {
		return fmt.Errorf("creating observer bus: %w", err)
	}
	defer bus.Close()

	sb, err := sandbox.New(cfg.Sandbox.Root)
	if err != nil {
		return fmt.Errorf("creating sandbox: %w", err)
	}

	monitor := activity.New(bus)

	detectorModel := cfg.LLM.DetectorModel
	det := detector.New(cfg.LLM.BackendURL, cfg.LLM.APIKey, detectorModel, monitor)

	toolChannel := toolserver.NewChannel(cfg.ToolServer.Command, cfg.ToolServer.Args...)
	defer toolChannel.Close()

	gw := gateway.New(
		cfg.LLM.BackendURL,
		cfg.LLM.APIKey,
		det,
		toolChannel,
		bus,
		monitor,
		sb,
		gateway.Config{
			RequestIDHeader:  cfg.Server.RequestIDHeader,
			PromptLimitBytes: cfg.Scrubbing.PromptLimitBytes,
			FileLimitBytes:   cfg.Upload.MaxBytes,
			SniffBytes:       cfg.Upload.SniffBytes,
			PassthroughURL:   cfg.Upload.PassthroughURL,
			LLMTimeout:       cfg.LLM.Timeout,
		},
		cfg.Scrubbing.EnabledByDefault,
	)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      gw.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting",
			"port", cfg.Server.Port,
			"backend", cfg.LLM.BackendURL,
			"scrubbing_enabled_by_default", cfg.Scrubbing.EnabledByDefault,
			"observer_bus", cfg.ObserverBus.Backend,
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutting down gracefully")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

// createObserverBus selects the Observer Bus backend from config.
func createObserverBus(cfg *config.Config) (observerbus.Bus, error) {
	switch cfg.ObserverBus.Backend {
	case "redis":
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		bus, err := observerbus.NewRedisBus(ctx, cfg.ObserverBus.RedisAddr)
		if err != nil {
			return nil, fmt.Errorf("connecting to redis at %s: %w", cfg.ObserverBus.RedisAddr, err)
		}
		slog.Info("observer bus backend", "type", "redis", "addr", cfg.ObserverBus.RedisAddr)
		return bus, nil

	case "memory", "":
		slog.Info("observer bus backend", "type", "memory")
		return observerbus.NewMemoryBus(), nil

	default:
		return nil, fmt.Errorf("unknown observer bus backend %q (supported: memory, redis)", cfg.ObserverBus.Backend)
	}
}
