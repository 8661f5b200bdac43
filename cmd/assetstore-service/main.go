// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/bureau-foundation/assetstore/lib/assetstore"
	"github.com/bureau-foundation/assetstore/lib/config"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath string
		socketPath string
	)
	flag.StringVar(&configPath, "config", "", "path to the YAML config file (or set ASSETSTORE_CONFIG)")
	flag.StringVar(&socketPath, "socket", "", "Unix socket path (overrides service.socket from the config)")
	flag.Parse()

	logger := newLogger()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if socketPath == "" {
		socketPath = cfg.Service.Socket
	}
	if socketPath == "" {
		return fmt.Errorf("no socket path: set service.socket or pass --socket")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	options := cfg.StoreOptions()
	options.Logger = logger
	store, err := assetstore.NewStore(cfg.Storage.Root, options)
	if err != nil {
		return fmt.Errorf("creating asset store: %w", err)
	}

	service := &AssetService{
		store:  store,
		logger: logger,
	}

	logger.Info("asset service starting",
		"root", cfg.Storage.Root,
		"codec", cfg.Storage.Compression.Codec,
		"socket", socketPath,
	)

	// serve blocks until ctx is cancelled and all active connections
	// have drained.
	if err := service.serve(ctx, socketPath); err != nil {
		return err
	}
	logger.Info("shut down")
	return nil
}

// newLogger creates the process-wide structured logger: JSON to
// stderr at Info level.
func newLogger() *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)
	return logger
}
