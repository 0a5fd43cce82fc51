package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/kevinaaaquil/transcribe/config"
	"github.com/kevinaaaquil/transcribe/handlers"
	"github.com/kevinaaaquil/transcribe/logging"
	"github.com/kevinaaaquil/transcribe/service"
	"github.com/kevinaaaquil/transcribe/store"
	"github.com/kevinaaaquil/transcribe/utils"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("config: ", err)
	}
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stdout)
	if err != nil {
		log.Fatal("logging: ", err)
	}
	slog.SetDefault(logger)

	ctx := context.Background()
	backend, err := store.Open(ctx, cfg)
	if err != nil {
		logger.Error("storage", "backend", cfg.StorageBackend, "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := backend.Close(context.Background()); err != nil {
			logger.Warn("storage close", "error", err)
		}
	}()

	observers := []service.ReleaseObserver{service.LogObserver{Logger: logger}}
	var directory handlers.NameDirectory
	if backend.DB != nil {
		observers = append(observers, service.RecordingObserver{Recorder: backend.DB})
		directory = service.NewCachedDirectory(backend.DB, utils.NewTTLCache[string, string](cfg.UserCacheTTL.Std()))
	} else {
		logger.Info("MONGODB_URI not set; display names come from tokens and releases are only logged")
	}

	census := service.NewCensus(backend.Blobs, cfg.ImagePrefix, logger)
	manager := service.NewManager(backend.Blobs, census, service.Options{
		LedgerPrefix:     cfg.LedgerPrefix,
		MaxWriteAttempts: cfg.MaxWriteAttempts,
		Logger:           logger,
		Observers:        observers,
	})

	router := handlers.NewRouter(handlers.RouterConfig{
		JWTSecret:      cfg.JWTSecret,
		CORSOrigins:    cfg.CORSOrigins,
		Pages:          &handlers.PagesHandler{Ledger: manager, Directory: directory},
		Blobs:          &handlers.BlobsHandler{Blobs: backend.Blobs, ImagePrefix: cfg.ImagePrefix},
		RequestLogging: true,
	})

	server := &http.Server{Addr: ":" + cfg.Port, Handler: router, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		logger.Info("server listening", "port", cfg.Port, "backend", cfg.StorageBackend)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown", "error", err)
	}
}
