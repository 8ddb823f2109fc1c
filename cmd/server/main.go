package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/cesargomez89/iptvcatalog/internal/app"
	"github.com/cesargomez89/iptvcatalog/internal/catalog"
	"github.com/cesargomez89/iptvcatalog/internal/config"
	"github.com/cesargomez89/iptvcatalog/internal/constants"
	httpapp "github.com/cesargomez89/iptvcatalog/internal/http"
	"github.com/cesargomez89/iptvcatalog/internal/httpclient"
	"github.com/cesargomez89/iptvcatalog/internal/logger"
	"github.com/cesargomez89/iptvcatalog/internal/source"
	"github.com/cesargomez89/iptvcatalog/internal/store"
	"github.com/cesargomez89/iptvcatalog/internal/worker"
)

func main() {
	cfg := config.Load()

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	// Initialize Logger
	appLogger := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
	})

	// Initialize DB
	handle := store.NewSQLiteHandle(cfg.DBPath)
	db, err := handle.Get(context.Background())
	if err != nil {
		appLogger.Error("Failed to init DB", "error", err)
		os.Exit(1)
	}
	defer handle.Close()

	// Initialize playlist source
	client := httpclient.NewClient(&http.Client{Timeout: cfg.PlaylistTimeout}, constants.DefaultRequestRate).
		WithRetry(constants.DefaultRetryCount, constants.DefaultRetryBase)
	playlist := source.NewPlaylistClient(client)

	// Initialize Services
	gate := catalog.NewGate()
	importService := app.NewImportService(db, playlist, gate, source.Credentials{
		URL:      cfg.PlaylistURL,
		Username: cfg.PlaylistUsername,
		Password: cfg.PlaylistPassword,
	}, appLogger)
	queryService := catalog.NewQueryService(db, gate)

	// Initialize Worker
	w := worker.NewWorker(db, importService, appLogger)
	w.Start()
	defer w.Stop()

	if cfg.ImportOnStart {
		if _, err := importService.Enqueue(context.Background(), false); err != nil {
			appLogger.Error("Failed to enqueue startup import", "error", err)
		} else {
			w.Notify()
		}
	}

	// Initialize Router
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Routes
	h := httpapp.NewHandler(importService, queryService, w, appLogger)
	h.RegisterRoutes(r)

	// Start Server
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		log.Printf("Server listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exiting")
}
