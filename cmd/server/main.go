package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/garnizeh/prepwise/api"
	dbfs "github.com/garnizeh/prepwise/db"
	"github.com/garnizeh/prepwise/internal/ai"
	"github.com/garnizeh/prepwise/internal/config"
	"github.com/garnizeh/prepwise/internal/db"
	"github.com/garnizeh/prepwise/internal/repository/sqlite"
	"github.com/garnizeh/prepwise/internal/voice"
	"github.com/garnizeh/prepwise/internal/webhook"
	"github.com/garnizeh/prepwise/pkg/ollama"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	var configPath = flag.String("config", "", "Path to config YAML file")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	api.SetLogger(logger)
	ai.SetLogger(logger)
	ollama.SetLogger(logger)

	if err := run(*configPath, logger); err != nil {
		logger.Error("server exited with error", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(configPath string, logger *slog.Logger) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger.Info("starting prepwise server", slog.String("version", version), slog.String("build_time", buildTime))

	ctx := context.Background()

	database, err := db.New(ctx, cfg.DatabasePath, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := database.Close(); err != nil {
			logger.Error("close db", slog.Any("error", err))
		}
	}()
	if err := db.Migrate(ctx, database, dbfs.Migrations, dbfs.SeedFiles); err != nil {
		return err
	}

	repo := sqlite.New(database, logger)

	gen, closeGen, err := ai.NewGenerator(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeGen()

	engine, err := ai.NewEngine(ctx, gen, cfg.EngineConfig, repo, repo)
	if err != nil {
		return err
	}

	voiceClient := voice.NewClient(cfg.Voice, nil)
	defer voiceClient.Close()

	handler := api.SetupRoutes(cfg, version, buildTime, api.Deps{
		Repo:     repo,
		Engine:   engine,
		Verifier: webhook.NewVerifier(cfg.Webhook.Secret, cfg.Webhook.Tolerance),
		Voice:    voiceClient,
	})

	server := &http.Server{
		Addr:         cfg.Addr,
		Handler:      handler,
		ReadTimeout:  cfg.APITimeout,
		WriteTimeout: cfg.APITimeout,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", slog.String("addr", cfg.Addr), slog.String("provider", gen.Provider()))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errCh:
		return err
	}
	logger.Info("shutting down server")

	// Give outstanding requests 30 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}

	logger.Info("server exited")
	return nil
}
