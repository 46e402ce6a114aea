// Copyright 2026 The AI-Collab Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/wyn0001/ai-collab-mcp/lib/clock"
	"github.com/wyn0001/ai-collab-mcp/lib/collab"
	"github.com/wyn0001/ai-collab-mcp/lib/config"
	"github.com/wyn0001/ai-collab-mcp/lib/process"
	"github.com/wyn0001/ai-collab-mcp/lib/schema"
	"github.com/wyn0001/ai-collab-mcp/lib/service"
	"github.com/wyn0001/ai-collab-mcp/lib/store"
	"github.com/wyn0001/ai-collab-mcp/lib/version"
)

func main() {
	if err := run(); err != nil {
		process.Fatal(err)
	}
}

func run() error {
	var (
		configPath  string
		showVersion bool
	)
	pflag.StringVar(&configPath, "config", "", "path to the configuration file (overrides COLLAB_CONFIG)")
	pflag.BoolVar(&showVersion, "version", false, "print version information and exit")
	pflag.Parse()

	if showVersion {
		version.Print("collab-service")
		return nil
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var cfg *config.Config
	var err error
	if configPath != "" {
		cfg, err = config.LoadFile(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := cfg.EnsurePaths(); err != nil {
		return err
	}

	// An absent roster file is allowed: role-dispatched actions will
	// reject every agent until a roster is configured, but the task
	// graph, missions, and plans remain fully usable.
	var roster schema.Roster
	if cfg.Roles.File != "" {
		roster, err = config.LoadRoster(cfg.Roles.File)
		if err != nil {
			return err
		}
		logger.Info("roster loaded", "file", cfg.Roles.File, "agents", len(roster))
	} else {
		logger.Warn("no roster file configured; role-dispatched actions will find no agents")
	}

	recordStore, err := store.Open(store.Config{
		Path:     cfg.DatabasePath(),
		PoolSize: cfg.Service.PoolSize,
		Clock:    clock.Real(),
		Logger:   logger,
	})
	if err != nil {
		return err
	}
	defer recordStore.Close()

	collabService, err := NewCollabService(ctx, ServiceConfig{
		Clock:       clock.Real(),
		Logger:      logger,
		Store:       recordStore,
		Roster:      roster,
		Renderer:    collab.TextRenderer{},
		SnapshotDir: cfg.Paths.Snapshots,

		DefaultLoopInterval:      cfg.Loop.DefaultIntervalSeconds,
		DefaultLoopMaxIterations: cfg.Loop.DefaultMaxIterations,
	})
	if err != nil {
		return err
	}

	socketServer := service.NewSocketServer(cfg.Service.SocketPath, logger)
	collabService.registerActions(socketServer)

	socketDone := make(chan error, 1)
	go func() {
		socketDone <- socketServer.Serve(ctx)
	}()

	logger.Info("collab service running",
		"socket", cfg.Service.SocketPath,
		"database", cfg.DatabasePath(),
		"environment", string(cfg.Environment),
	)

	// Wait for shutdown signal, then for the socket server to drain
	// active connections.
	<-ctx.Done()
	logger.Info("shutting down")

	if err := <-socketDone; err != nil {
		logger.Error("socket server error", "error", err)
	}
	return nil
}
