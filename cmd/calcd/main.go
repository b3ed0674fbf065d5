// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

// Command calcd serves evaluation, config, history and memory over HTTP.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"nickandperla.net/calcpad/internal/config"
	"nickandperla.net/calcpad/internal/provider"
	"nickandperla.net/calcpad/internal/server"
	"nickandperla.net/calcpad/internal/store"
	"nickandperla.net/calcpad/internal/telemetry"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig reads the file and environment once, applies command-line
// overrides, then validates the result.
func loadConfig(args []string, environ map[string]string) (config.Config, error) {
	fs := flag.NewFlagSet("calcd", flag.ContinueOnError)
	var (
		configPath = fs.String("config", "", "YAML config file (default: $"+config.FileEnv+")")
		addr       = fs.String("addr", "", "Listen address (overrides config)")
		dbPath     = fs.String("db", "", "SQLite database path (overrides config)")
		logLevel   = fs.String("log-level", "", "debug, info, warn or error (overrides config)")
	)
	if err := fs.Parse(args); err != nil {
		return config.Config{}, err
	}

	cfg, err := config.Read(environ, *configPath)
	if err != nil {
		return config.Config{}, err
	}
	if *addr != "" {
		cfg.ListenAddr = *addr
	}
	if *dbPath != "" {
		cfg.DBPath = *dbPath
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func run() error {
	cfg, err := loadConfig(os.Args[1:], config.Environ())
	if err != nil {
		return err
	}

	level, err := config.ParseLogLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, telemetry.Options{
		ServiceName:    "calcd",
		ServiceVersion: server.Version,
		Endpoint:       cfg.OTelEndpoint,
		Enabled:        cfg.TracingEnabled(),
	})
	if err != nil {
		return fmt.Errorf("setup tracing: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logger.Warn("tracing shutdown failed", "error", err)
		}
	}()

	st, err := store.NewSQLite(cfg.DBPath,
		store.WithMaxHistory(cfg.MaxHistory),
		store.WithDefaultSettings(cfg.Settings().Normalize()),
	)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	backend := provider.NewLocal(st, provider.WithLocalLogger(logger))
	srv := server.New(backend, server.Config{
		Address:   cfg.ListenAddr,
		RateLimit: cfg.RateLimit,
		RateBurst: cfg.RateBurst,
		Logger:    logger,
	})

	logger.Info("calcd starting",
		"version", server.Version,
		"addr", cfg.ListenAddr,
		"db", cfg.DBPath,
		"tracing", cfg.TracingEnabled(),
	)
	return srv.Run(ctx)
}
