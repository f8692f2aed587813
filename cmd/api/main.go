package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"agronity/agronity-backend/internal/analysis"
	"agronity/agronity-backend/internal/auth"
	"agronity/agronity-backend/internal/config"
	"agronity/agronity-backend/internal/dataset"
	"agronity/agronity-backend/internal/diagnosis"
	"agronity/agronity-backend/internal/feasibility"
	"agronity/agronity-backend/internal/history"
	"agronity/agronity-backend/internal/metrics"
	"agronity/agronity-backend/internal/notifications"
	"agronity/agronity-backend/internal/notifications/websocket"
	"agronity/agronity-backend/internal/registry"
	"agronity/agronity-backend/internal/reports"
	"agronity/agronity-backend/pkg/storage"
)

func main() {
	cfg, err := config.LoadConfig("config.json", ".env")
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

	ctx := context.Background()

	// Database is optional: it backs history and the postgres dataset source
	var db *sqlx.DB
	if cfg.Database.Enabled {
		db, err = sqlx.Connect("postgres", cfg.Database.GetDatabaseURL())
		if err != nil {
			logger.Fatal("Failed to connect to database", zap.Error(err))
		}
		defer db.Close()
		logger.Info("Connected to database", zap.String("host", cfg.Database.Host), zap.String("db", cfg.Database.DBName))
	}

	// Datasets
	data, err := dataset.Load(ctx, dataset.Sources{
		CSVPaths:      cfg.Data.CSVPaths,
		ExcelPath:     cfg.Data.ExcelPath,
		ExcelSheet:    cfg.Data.ExcelSheet,
		PostgresTable: cfg.Data.PostgresTable,
	}, db)
	if err != nil {
		logger.Fatal("Failed to load dataset", zap.Error(err))
	}
	var regional *dataset.Dataset
	if len(cfg.Data.RegionalCSVPaths) > 0 {
		if regional, err = dataset.LoadCSVFiles(cfg.Data.RegionalCSVPaths...); err != nil {
			logger.Fatal("Failed to load regional dataset", zap.Error(err))
		}
	}
	logger.Info("Datasets loaded", zap.Int("rows", data.Len()), zap.Int("regional_rows", regional.Len()))

	// Models
	models := registry.Load(registry.Options{
		PreprocessorPath: cfg.Models.PreprocessorPath,
		ClassifierPath:   cfg.Models.ClassifierPath,
		RegressorPath:    cfg.Models.RegressorPath,
		RegionalPath:     cfg.Models.RegionalPath,
		VisionEndpoint:   cfg.Models.VisionEndpoint,
		VisionTimeout:    cfg.Models.VisionTimeout,
	}, logger)

	images, err := newImageStore(ctx, cfg.Storage)
	if err != nil {
		logger.Fatal("Failed to initialize image store", zap.Error(err))
	}

	historyService, err := newHistory(cfg, db, logger)
	if err != nil {
		logger.Fatal("Failed to initialize history", zap.Error(err))
	}

	var publisher notifications.Publisher
	if cfg.Notifications.Enabled {
		region := cfg.Notifications.Region
		if region == "" {
			region = cfg.Storage.S3.Region
		}
		awsCfg, err := storage.LoadAWSConfig(ctx, region, cfg.Storage.S3.AccessKeyID, cfg.Storage.S3.SecretAccessKey)
		if err != nil {
			logger.Fatal("Failed to load AWS configuration", zap.Error(err))
		}
		publisher = notifications.NewSNSPublisher(notifications.NewSNSClient(awsCfg), cfg.Notifications.SNSTopicARN)
	}

	var collector *metrics.Metrics
	if cfg.Metrics.Enabled {
		collector = metrics.New()
	}

	classifier := diagnosis.NewClassifier(data, models.Vision, images, logger)
	classifier.SetMaxImageBytes(cfg.Server.MaxUploadBytes)

	// The stream answers analyze messages through the service built below.
	var analysisService *analysis.Service
	streams := websocket.NewManager(func(ctx context.Context, msg notifications.WebSocketMessage) (notifications.WebSocketMessage, error) {
		return analysisService.HandleStreamMessage(ctx, msg)
	}, logger)
	defer streams.Close()

	analysisService = analysis.NewService(analysis.Dependencies{
		Engine:     feasibility.NewEngine(data, regional, models, cfg.Scoring),
		Classifier: classifier,
		Models:     models,
		History:    historyService,
		Reports:    reports.NewService(logger),
		Notifier:   notifications.NewService(publisher, streams, logger),
		Images:     images,
		Metrics:    collector,
	}, logger)
	analysisHandler := analysis.NewHandler(analysisService, cfg.Server.MaxUploadBytes, logger)

	// Setup Router
	gin.SetMode(cfg.Server.Mode)
	router := gin.New()
	router.Use(gin.Recovery())
	if collector != nil {
		router.Use(collector.Middleware())
		router.GET(cfg.Metrics.Path, gin.WrapH(collector.Handler()))
	}

	// CORS Middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	// Register Routes
	api := router.Group("/api/v1")
	api.Use(auth.NewAuthenticator(cfg.Security.JWTSecret, auth.Issuer).Middleware())
	{
		analysisHandler.RegisterRoutes(api)
		api.GET("/ws", func(c *gin.Context) {
			if _, err := streams.HandleConnection(c.Writer, c.Request); err != nil {
				logger.Warn("Websocket connection rejected", zap.Error(err))
			}
		})
	}

	// Health Check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":      "healthy",
			"timestamp":   time.Now(),
			"models":      models.Availability(),
			"connections": streams.GetConnectionCount(),
		})
	})

	// Start Server
	srv := &http.Server{
		Addr:         cfg.Server.GetServerAddr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	logger.Info("Server started", zap.String("addr", srv.Addr))

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exiting")
}

func newImageStore(ctx context.Context, cfg config.StorageConfig) (storage.ObjectStore, error) {
	if cfg.Backend != config.StorageS3 {
		return storage.NewLocalStore(cfg.LocalDir)
	}
	client, err := storage.NewS3Client(ctx, storage.S3Options{
		Region:          cfg.S3.Region,
		Endpoint:        cfg.S3.Endpoint,
		AccessKeyID:     cfg.S3.AccessKeyID,
		SecretAccessKey: cfg.S3.SecretAccessKey,
		UsePathStyle:    cfg.S3.UsePathStyle,
	})
	if err != nil {
		return nil, err
	}
	return storage.NewS3Store(client, cfg.S3.Bucket, cfg.S3.Prefix), nil
}

// newHistory keeps history in PostgreSQL when the database is enabled and
// in memory otherwise.
func newHistory(cfg *config.Config, db *sqlx.DB, logger *zap.Logger) (*history.Service, error) {
	if db == nil {
		logger.Info("Database disabled, keeping evaluation history in memory")
		return history.NewService(history.NewMemoryRepository(0), logger), nil
	}

	gormDB, err := history.Open(cfg.Database.GetDatabaseURL(), history.PoolOptions{
		MaxOpenConns:    cfg.Database.MaxConnections,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.MaxLifetime,
	})
	if err != nil {
		return nil, err
	}
	repo := history.NewGormRepository(gormDB)
	if err := repo.Migrate(); err != nil {
		return nil, err
	}
	return history.NewService(repo, logger), nil
}
