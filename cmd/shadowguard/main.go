// Package main — cmd/shadowguard/main.go
//
// shadowguard entrypoint.
//
// Startup sequence:
//  1. Load and validate config from /etc/shadowguard/config.yaml.
//  2. Initialize structured logger (zap, JSON format).
//  3. Build every core component (broker, graph, audit ledger,
//     quarantine registry, identity/classifier/DLP/anomaly/technique,
//     alert store, SOAR engine).
//  4. Start the Prometheus metrics server (127.0.0.1:9091).
//  5. Start the Analyzer Pipeline subscription.
//  6. Block on SIGINT/SIGTERM for graceful shutdown.
//
// Shutdown sequence (on SIGINT/SIGTERM):
//  1. Cancel the root context (propagates to the broker subscription).
//  2. Stop the broker, letting its dispatcher loops drain.
//  3. Close the quarantine registry and audit ledger.
//  4. Flush the logger.
//  5. Exit 0.
//
// On config validation failure: exit 1 immediately.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/octoreflex/shadowguard/internal/config"
	"github.com/octoreflex/shadowguard/internal/core"
	"github.com/octoreflex/shadowguard/internal/pipeline"
)

func main() {
	configPath := flag.String("config", "/etc/shadowguard/config.yaml", "Path to config.yaml")
	version := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *version {
		fmt.Printf("shadowguard %s (commit=%s built=%s)\n",
			config.Version, config.GitCommit, config.BuildTime)
		os.Exit(0)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: config load failed: %v\n", err)
		os.Exit(1)
	}

	log, err := buildLogger(cfg.Observability.LogLevel, cfg.Observability.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync() //nolint:errcheck

	log.Info("shadowguard starting",
		zap.String("version", config.Version),
		zap.String("commit", config.GitCommit),
		zap.String("built", config.BuildTime),
		zap.String("node_id", cfg.NodeID),
		zap.String("config", *configPath),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	services, err := core.Build(cfg, log)
	if err != nil {
		log.Fatal("failed to build core services", zap.Error(err))
	}
	defer func() {
		if err := services.Close(); err != nil {
			log.Error("error while closing core services", zap.Error(err))
		}
	}()

	go func() {
		if err := services.Metrics.Serve(ctx, cfg.Observability.MetricsAddr); err != nil {
			log.Error("metrics server error", zap.Error(err))
		}
	}()
	log.Info("metrics server started", zap.String("addr", cfg.Observability.MetricsAddr))

	privacyMode := cfg.Privacy.Mode == "strict"
	p := pipeline.New(
		services.Broker, services.Graph, services.Quarantine, services.Identity,
		services.Classifier, services.DLP, services.Anomaly, services.Technique,
		services.Alerts, services.SOAR, services.Metrics, privacyMode, log,
	)
	p.Start(ctx)
	log.Info("analyzer pipeline started", zap.Bool("privacy_mode", privacyMode))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.Info("shutdown signal received", zap.String("signal", sig.String()))

	cancel()

	shutdownTimer := time.NewTimer(5 * time.Second)
	defer shutdownTimer.Stop()
	drained := make(chan struct{})
	go func() {
		services.Broker.Stop()
		close(drained)
	}()
	select {
	case <-shutdownTimer.C:
		log.Warn("shutdown drain timeout — forcing exit")
	case <-drained:
		log.Info("broker drained")
	}

	log.Info("shadowguard shutdown complete")
}

// buildLogger constructs a zap.Logger with the given level and format.
func buildLogger(level, format string) (*zap.Logger, error) {
	var zapLevel zapcore.Level
	if err := zapLevel.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	var cfg zap.Config
	if format == "console" {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(zapLevel)

	return cfg.Build()
}
