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

	"tmd-viewer/app/api"
	"tmd-viewer/app/archive"
	"tmd-viewer/app/cfg"
	"tmd-viewer/app/database"
	"tmd-viewer/app/tasks"
	"tmd-viewer/app/thumbnail"
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
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))

	slog.Info("Starting TMD Viewer", "version", appCfg.Version, "data_dir", appCfg.DataDir())

	store := database.NewStore(appCfg.DataDir())
	defer store.Close()

	loc := time.FixedZone("", appCfg.TimeOffset*3600)

	archiveRepo := database.NewArchiveRepository(store)
	mediaRepo := database.NewMediaRepository(store)
	feedRepo := database.NewFeedRepository(store, mediaRepo, loc)

	catalog := archive.NewCatalog(archiveRepo, appCfg.DataDir)
	scanner := archive.NewScanner(archiveRepo, feedRepo, archive.NewReconciler(loc), appCfg.DataDir)
	generator := thumbnail.NewGenerator(mediaRepo, appCfg.DataDir)

	runner := tasks.NewRunner(appCfg.ScannerCountLimit)
	defer runner.Stop()

	handler := api.NewHandler(appCfg, store, archiveRepo, feedRepo, mediaRepo,
		catalog, scanner, generator, runner)
	server := api.NewServer(handler, appCfg.Debug)

	httpServer := &http.Server{
		Addr:         appCfg.BindAddress,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "address", appCfg.BindAddress)
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

	slog.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	// Runner and store are stopped via defer
	slog.Info("Shutdown complete")
}
