package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dvloznov/fintrack/internal/api/handlers"
	"github.com/dvloznov/fintrack/internal/api/middleware"
	"github.com/dvloznov/fintrack/internal/config"
	"github.com/dvloznov/fintrack/internal/gcsuploader"
	"github.com/dvloznov/fintrack/internal/importer"
	"github.com/dvloznov/fintrack/internal/insights"
	"github.com/dvloznov/fintrack/internal/logger"
	"github.com/dvloznov/fintrack/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log := logger.New()
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	port := flag.String("port", cfg.Port, "HTTP server port (or FINTRACK_PORT)")
	flag.Parse()

	log := logger.NewWithOptions(logger.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})
	ctx := logger.WithContext(context.Background(), log)

	kv, closeKV, err := store.OpenBackend(ctx, cfg.DataDir, cfg.GCSBucket, cfg.GCSPrefix)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open storage backend")
	}
	defer closeKV()

	st, err := store.Open(ctx, kv)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load data")
	}

	im := importer.New(st, gcsuploader.NewGCSStorageService(), importer.Options{})

	var svc *insights.Service
	if cfg.GeminiAPIKey != "" {
		client, err := insights.NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create Gemini client")
		}
		svc = insights.NewService(client, st)
	} else {
		log.Warn().Msg("No Gemini API key configured - insights and receipt scanning are disabled")
	}

	mux := http.NewServeMux()
	handlers.New(st, im, svc).Register(mux)

	server := &http.Server{
		Addr:         ":" + *port,
		Handler:      middleware.Chain(mux, log, cfg.APIToken),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("port", *port).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}
