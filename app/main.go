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

	"github.com/leandeep/marker-comb/app/api"
	"github.com/leandeep/marker-comb/app/cfg"
	"github.com/leandeep/marker-comb/app/database"
	"github.com/leandeep/marker-comb/app/marker"
	"github.com/leandeep/marker-comb/app/report"
	"github.com/leandeep/marker-comb/app/store"
	"github.com/leandeep/marker-comb/app/tasks"
)

func main() {
	appCfg, err := cfg.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	if appCfg == nil {
		// Help was shown, exit gracefully
		return
	}

	logLevel := slog.LevelInfo
	if appCfg.Debug {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})))

	slog.Info("Starting Marker Comb server", "version", appCfg.Version)

	if _, err := os.Stat(appCfg.MarkerDir); err != nil {
		slog.Error("Marker directory is not accessible", "dir", appCfg.MarkerDir, "error", err)
		os.Exit(1)
	}
	for _, dir := range []string{appCfg.OutputDir, appCfg.QuarantineDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			slog.Error("Failed to create directory", "dir", dir, "error", err)
			os.Exit(1)
		}
	}

	db, err := database.NewConnection(appCfg.DBPath)
	if err != nil {
		slog.Error("Failed to open database", "path", appCfg.DBPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("Database ready", "path", appCfg.DBPath, "migration_version", version, "dirty", dirty)

	markerRepo := database.NewMarkerRepository(db)
	resultRepo := database.NewResultRepository(db)

	scanner := marker.NewSourceScanner(appCfg.MarkerDir)
	markerParser := marker.NewParser()
	normalizer := marker.NewNormalizer(appCfg.MinExamples)
	validator := marker.NewValidator(appCfg.MinExamples)
	qualifier := marker.NewQualifier(validator, appCfg.MinExamples)

	accepted := store.NewAcceptedStore(appCfg.OutputDir)
	quarantine := store.NewQuarantineStore(appCfg.QuarantineDir)
	reportWriter := report.NewWriter(appCfg.ReportPath, appCfg.AppendReport)

	slog.Info("Starting background scheduler", "workers", appCfg.WorkerCount, "interval_seconds", appCfg.SchedulerInterval)
	scheduler := tasks.NewScheduler(scanner, markerParser, normalizer, qualifier,
		accepted, quarantine, reportWriter, markerRepo, resultRepo)
	scheduler.Start()
	defer scheduler.Stop()

	apiHandler := api.NewHandler(markerRepo, resultRepo, accepted, quarantine, qualifier,
		reportWriter, scheduler)
	server := api.NewServer(apiHandler, appCfg.APIAccessKey)

	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("Starting HTTP server", "port", appCfg.Port, "api_enabled", appCfg.APIAccessKey != "")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig.String())
	case err := <-serverErrChan:
		slog.Error("Server error", "error", err)
	}

	slog.Info("Shutting down gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	// Scheduler is stopped via defer
	slog.Info("Marker Comb server shutdown complete")
}
