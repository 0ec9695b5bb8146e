// Accord - Skin band reconciliation for consultation desks.
// Copyright (c) 2025 clearskin
// Licensed under the Apache License 2.0

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

	"github.com/clearskin/accord/internal/api"
	"github.com/clearskin/accord/internal/bus"
	"github.com/clearskin/accord/internal/cache"
	"github.com/clearskin/accord/internal/catalog"
	"github.com/clearskin/accord/internal/domain"
	"github.com/clearskin/accord/internal/engine"
	"github.com/clearskin/accord/internal/history"
	"github.com/clearskin/accord/internal/report"
	"github.com/clearskin/accord/internal/repository"
	"github.com/clearskin/accord/internal/worker"
)

// Version information (set via ldflags)
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

func main() {
	// Initialize structured logger
	logLevel := slog.LevelInfo
	if os.Getenv("ACCORD_DEBUG") == "true" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	// Log startup
	slog.Info("starting accord",
		"version", Version,
		"commit", Commit,
		"build_date", BuildDate,
	)

	// Load configuration
	cfg := domain.DefaultConfig()

	// Check for Pro tier via environment
	if os.Getenv("ACCORD_TIER") == "pro" {
		cfg = domain.ProConfig()
		slog.Info("running in Pro tier mode")
	}

	slog.Info("configuration loaded",
		"tier", cfg.Tier,
		"repository", cfg.Repository.Driver,
		"cache", cfg.Cache.Type,
		"eventbus", cfg.EventBus.Type,
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		slog.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Initialize Repository
	repo, err := repository.New(cfg.Repository)
	if err != nil {
		slog.Error("failed to initialize repository", "error", err)
		os.Exit(1)
	}
	defer repo.Close()
	slog.Info("repository initialized", "driver", cfg.Repository.Driver)

	// Initialize Cache
	cacheImpl, err := cache.New(cfg.Cache)
	if err != nil {
		slog.Error("failed to initialize cache", "error", err)
		os.Exit(1)
	}
	defer cacheImpl.Close()
	slog.Info("cache initialized", "type", cfg.Cache.Type)

	// Initialize EventBus
	busImpl, err := bus.New(cfg.EventBus)
	if err != nil {
		slog.Error("failed to initialize event bus", "error", err)
		os.Exit(1)
	}
	defer busImpl.Close()
	slog.Info("event bus initialized", "type", cfg.EventBus.Type)

	// Initialize History Service
	historySvc := history.NewService(repo, cacheImpl)
	slog.Info("history service initialized")

	// Load the rule catalog and surface authoring diagnostics
	rules := catalog.Default()
	for _, diag := range engine.ValidateCatalog(rules) {
		slog.Warn("catalog diagnostic",
			"rule_id", diag.RuleID,
			"message", diag.Message,
		)
	}

	// Initialize Reconciliation Engine
	eng := engine.New(rules)
	slog.Info("reconciliation engine initialized", "rules_count", eng.RulesCount())

	// Initialize Report Processor
	processor := report.NewProcessor()
	slog.Info("report processor initialized", "engine_version", report.EngineVersion)

	// Initialize async Worker (Pro tier)
	var asyncWorker *worker.Worker
	if cfg.Tier == domain.TierPro || os.Getenv("ACCORD_ASYNC_WORKER") == "true" {
		asyncWorker = worker.NewWorker(busImpl, repo, eng, processor, historySvc)

		// Get clinic IDs to process (from environment or default)
		clinicIDs := []string{}
		if envClinics := os.Getenv("ACCORD_CLINICS"); envClinics != "" {
			// Could parse comma-separated list here
			clinicIDs = []string{envClinics}
		}

		workerCfg := worker.Config{
			ClinicIDs:   clinicIDs,
			WorkerCount: 5,
		}

		if err := asyncWorker.Start(workerCfg); err != nil {
			slog.Error("failed to start async worker", "error", err)
		} else {
			slog.Info("async worker started", "clinic_count", len(clinicIDs))
		}
	}

	// Initialize Server
	srv := api.NewServer(cfg.Server, repo, cacheImpl, busImpl, eng, processor, historySvc, Version)

	// Start Server in goroutine
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("accord is ready",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
	)

	printBanner(cfg, Version)

	// Wait for shutdown signal
	<-ctx.Done()
	slog.Info("shutting down...")

	// Stop async worker first
	if asyncWorker != nil {
		if err := asyncWorker.Stop(); err != nil {
			slog.Error("failed to stop async worker", "error", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}

	slog.Info("accord shutdown complete")
}

func printBanner(cfg *domain.Config, version string) {
	fmt.Println()
	fmt.Println("  ==============================================")
	fmt.Println("                  ACCORD")
	fmt.Println("       Skin Band Reconciliation Engine")
	fmt.Println("     When the machine and the mirror differ.")
	fmt.Println("  ==============================================")
	fmt.Println()
	fmt.Printf("  Version:  %s\n", version)
	fmt.Printf("  Tier:     %s\n", cfg.Tier)
	fmt.Printf("  Server:   http://%s:%d\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Println()
	fmt.Println("  Endpoints:")
	fmt.Println("    POST /match                   - Match rules for band readings")
	fmt.Println("    POST /resolve                 - Resolve a single rule decision")
	fmt.Println("    POST /reconcile               - Run the aggregate pipeline")
	fmt.Println("    GET  /reconciliations/{id}    - Get reconciliation by ID")
	fmt.Println("    POST /sessions                - Store a consultation session")
	fmt.Println("    GET  /sessions/{id}           - Get session by ID")
	fmt.Println("    GET  /rules                   - List catalog rules")
	fmt.Println("    GET  /rules/{id}              - Get rule by ID")
	fmt.Println("    GET  /advisories/sensitivity  - Static sensitivity advisory")
	fmt.Println("    GET  /health                  - Health check")
	fmt.Println()
}
