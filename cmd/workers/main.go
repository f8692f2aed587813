package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"agronity/agronity-backend/internal/auth"
	"agronity/agronity-backend/internal/config"
	"agronity/agronity-backend/internal/history"
	"agronity/agronity-backend/internal/reports"
	"agronity/agronity-backend/pkg/storage"
)

func main() {
	once := flag.Bool("once", false, "purge and snapshot immediately, then exit")
	configPath := flag.String("config", "config.json", "path to the configuration file")
	tokenSubject := flag.String("issue-token", "", "print an API bearer token for this subject, then exit")
	tokenRole := flag.String("token-role", "user", "role claim for -issue-token")
	tokenTTL := flag.Duration("token-ttl", 24*time.Hour, "lifetime of the token printed by -issue-token")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath, ".env")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := config.NewLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if *tokenSubject != "" {
		token, err := issueToken(cfg.Security.JWTSecret, *tokenSubject, *tokenRole, *tokenTTL)
		if err != nil {
			logger.Fatal("Failed to issue token", zap.Error(err))
		}
		fmt.Println(token)
		return
	}

	if !cfg.Database.Enabled {
		logger.Fatal("History worker requires database.enabled")
	}

	gormDB, err := history.Open(cfg.Database.GetDatabaseURL(), history.PoolOptions{
		MaxOpenConns: 2,
		MaxIdleConns: 1,
	})
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	repo := history.NewGormRepository(gormDB)
	if err := repo.Migrate(); err != nil {
		logger.Fatal("Failed to migrate history", zap.Error(err))
	}
	logger.Info("Connected to database")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var store storage.ObjectStore
	if cfg.Storage.Backend == config.StorageS3 {
		client, err := storage.NewS3Client(ctx, storage.S3Options{
			Region:          cfg.Storage.S3.Region,
			Endpoint:        cfg.Storage.S3.Endpoint,
			AccessKeyID:     cfg.Storage.S3.AccessKeyID,
			SecretAccessKey: cfg.Storage.S3.SecretAccessKey,
			UsePathStyle:    cfg.Storage.S3.UsePathStyle,
		})
		if err != nil {
			logger.Fatal("Failed to create S3 client", zap.Error(err))
		}
		store = storage.NewS3Store(client, cfg.Storage.S3.Bucket, cfg.Storage.S3.Prefix)
	} else {
		logger.Info("Storage backend is not s3, history snapshots disabled")
	}

	workerConfig := DefaultHistoryWorkerConfig()
	workerConfig.PurgeSchedule = cfg.Retention.Schedule
	workerConfig.MaxAge = cfg.Retention.MaxAge
	workerConfig.SnapshotSchedule = cfg.Retention.SnapshotSchedule
	workerConfig.SnapshotPrefix = cfg.Retention.SnapshotPrefix

	worker, err := NewHistoryWorker(history.NewService(repo, logger), reports.NewService(logger), store, workerConfig, logger)
	if err != nil {
		logger.Fatal("Failed to create history worker", zap.Error(err))
	}

	if *once {
		if err := worker.RunOnce(ctx); err != nil {
			logger.Fatal("History maintenance failed", zap.Error(err))
		}
		return
	}

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("Shutdown signal received")
		cancel()
	}()

	if err := worker.Start(ctx); err != nil {
		logger.Error("Worker error", zap.Error(err))
	}
}

// issueToken signs a token the API middleware accepts.
func issueToken(secret, subject, role string, ttl time.Duration) (string, error) {
	a := auth.NewAuthenticator(secret, auth.Issuer)
	if a == nil {
		return "", errors.New("security.jwt_secret is not set")
	}
	return a.Issue(subject, role, ttl)
}
