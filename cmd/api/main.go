package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jwebster45206/immersion-engine/internal/config"
	"github.com/jwebster45206/immersion-engine/internal/handlers"
	"github.com/jwebster45206/immersion-engine/internal/logger"
	"github.com/jwebster45206/immersion-engine/internal/middleware"
	"github.com/jwebster45206/immersion-engine/internal/runtime"
	"github.com/jwebster45206/immersion-engine/internal/services/events"
	"github.com/jwebster45206/immersion-engine/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	log := logger.Setup(cfg)

	log.Info("Starting Immersion Engine API",
		"port", cfg.Port,
		"environment", cfg.Environment,
		"data_dir", cfg.DataDir,
		"arrival_threshold", cfg.ArrivalThreshold,
		"animation_frames", cfg.AnimationFrames)

	store, err := storage.NewRedisStorage(cfg.RedisURL, cfg.DataDir, cfg.SessionTTL, log)
	if err != nil {
		log.Error("Failed to create storage", "error", err)
		os.Exit(1)
	}

	storageCtx, storageCancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer storageCancel()
	if err := store.WaitForConnection(storageCtx, 10, 3*time.Second); err != nil {
		log.Error("Failed to connect to storage", "error", err)
		os.Exit(1)
	}
	log.Info("Storage connection established successfully")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.WatchImmersions {
		go func() {
			if err := store.WatchImmersions(ctx, nil); err != nil {
				log.Warn("Immersion watcher stopped", "error", err)
			}
		}()
	}

	broadcaster := events.NewBroadcaster(store.Client(), log)
	hub := runtime.NewHub(store, broadcaster, runtime.Settings{
		ArrivalThreshold: cfg.ArrivalThreshold,
		AnimationFrames:  cfg.AnimationFrames,
		FreeRoam:         cfg.FreeRoam,
		SessionTTL:       cfg.SessionTTL,
	}, log)
	go hub.Sweep(ctx, time.Minute, cfg.SessionIdle)

	mux := http.NewServeMux()

	healthHandler := handlers.NewHealthHandler(store, hub, log)
	mux.Handle("/health", healthHandler)

	immersionHandler := handlers.NewImmersionHandler(log, store)
	mux.Handle("/v1/immersions", immersionHandler)
	mux.Handle("/v1/immersions/", immersionHandler)

	sessionHandler := handlers.NewSessionHandler(log, hub)
	mux.Handle("/v1/sessions", sessionHandler)
	mux.Handle("/v1/sessions/", sessionHandler)

	eventsHandler := handlers.NewEventsHandler(store.Client(), log)
	mux.Handle("/v1/events/sessions/", eventsHandler)

	handler := middleware.Logger(mux)
	server := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     handler,
		ReadTimeout: 15 * time.Second,
		// WriteTimeout removed to enable streaming - streaming endpoints handle their own timeouts
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		log.Info("Server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Server is shutting down...")
	cancel()

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
	}

	if err := store.Close(); err != nil {
		log.Error("Error closing storage connection", "error", err)
	}

	log.Info("Server exited", "live_sessions", hub.Len())
}
