package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/timmy/mediafetch/internal/api"
	"github.com/timmy/mediafetch/internal/archive"
	"github.com/timmy/mediafetch/internal/config"
	"github.com/timmy/mediafetch/internal/domain"
	"github.com/timmy/mediafetch/internal/fetcher"
	"github.com/timmy/mediafetch/internal/logger"
	"github.com/timmy/mediafetch/internal/ratelimit"
	"github.com/timmy/mediafetch/internal/repository"
	"github.com/timmy/mediafetch/internal/service"
	"github.com/timmy/mediafetch/internal/storage"
)

func main() {
	appLogger := logger.NewDefault()
	logger.SetDefaultLogger(appLogger)
	defer logger.Sync()

	// Support CONFIG_PATH environment variable for production deployments
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to load config")
	}

	if err := os.MkdirAll(cfg.Jobs.DataDir, 0o755); err != nil {
		appLogger.WithError(err).Fatal("Failed to create data directory")
	}

	// Runners and the cleaner live on this context; it is cancelled after the
	// HTTP server has drained.
	baseCtx, cancelRunners := context.WithCancel(context.Background())
	defer cancelRunners()

	var history service.HistoryStore
	if cfg.Database.Enabled {
		db, err := repository.InitDB(cfg.Database)
		if err != nil {
			appLogger.WithError(err).Fatal("Failed to initialize database")
		}
		history = repository.NewHistoryRepository(db)
		appLogger.WithField("driver", cfg.Database.Driver).Info("Job history enabled")
	}

	var mirror *archive.Mirror
	if cfg.Storage.Enabled {
		objectStorage, err := storage.NewStorage(baseCtx, cfg.Storage)
		if err != nil {
			appLogger.WithError(err).Fatal("Failed to initialize storage")
		}
		if err := objectStorage.EnsureBucket(baseCtx); err != nil {
			appLogger.WithError(err).Fatal("Failed to ensure storage bucket")
		}
		mirror = archive.NewMirror(objectStorage, cfg.Storage.Prefix)
		appLogger.WithField("bucket", cfg.Storage.Bucket).Info("Archive mirror enabled")
	}

	var limiter *ratelimit.TokenBucket
	if cfg.RateLimit.Enabled {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RateLimit.RedisAddr,
			Password: cfg.RateLimit.RedisPassword,
		})
		defer redisClient.Close()
		limiter = ratelimit.NewTokenBucket(redisClient, cfg.RateLimit.Capacity, cfg.RateLimit.RefillPerSecond, cfg.RateLimit.KeyTTL)
		appLogger.WithField("redis_addr", cfg.RateLimit.RedisAddr).Info("Submission rate limit enabled")
	}

	store := repository.NewJobStore(domain.SystemClock)
	runner := service.NewRunner(store, fetcher.New(cfg.Fetcher), history, service.RunnerConfig{
		DataDir:       cfg.Jobs.DataDir,
		MaxConcurrent: cfg.Jobs.MaxConcurrent,
	})

	var remover service.ArchiveRemover
	if mirror != nil {
		remover = mirror
	}
	artifacts := service.NewArtifacts(cfg.Jobs.DataDir, remover)
	jobService := service.NewJobService(baseCtx, store, runner, artifacts, history, cfg.Jobs)

	cleaner := service.NewCleaner(store, artifacts, domain.SystemClock, service.CleanerConfig{
		TTL:      cfg.Jobs.JobTTL(),
		Interval: cfg.Jobs.CleanupInterval(),
	})
	cleaner.Start(appLogger.WithContext(baseCtx))

	deps := api.Dependencies{
		Jobs:    jobService,
		Builder: archive.NewBuilder(cfg.Jobs.DataDir),
		Mirror:  mirror,
		Logger:  appLogger,
	}
	if limiter != nil {
		deps.Limiter = limiter
	}
	router := api.SetupRouter(deps, cfg)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		appLogger.WithFields(logger.Fields{
			"port":     cfg.Server.Port,
			"mode":     cfg.Server.Mode,
			"data_dir": cfg.Jobs.DataDir,
		}).Info("Starting API server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.WithError(err).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.WithError(err).Error("Server forced to shutdown")
	}

	cancelRunners()
	cleaner.Stop()
	jobService.Wait()

	appLogger.Info("Server exited")
}
