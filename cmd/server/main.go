package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"viralpik/asset-service/internal/api"
	"viralpik/asset-service/internal/cache"
	"viralpik/asset-service/internal/config"
	"viralpik/asset-service/internal/inference"
	"viralpik/asset-service/internal/logging"
	"viralpik/asset-service/internal/repository"
	"viralpik/asset-service/internal/repository/memory"
	"viralpik/asset-service/internal/repository/mongo"
	"viralpik/asset-service/internal/repository/postgres"
	"viralpik/asset-service/internal/service"
	"viralpik/asset-service/internal/storage"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// @title ViralPik Asset API
// @version 1.0
// @description Download entitlements, signed uploads and AI enrichment for the ViralPik marketplace.
// @host localhost:8080
// @BasePath /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the session access token.
func main() {
	// --- Configuration ---
	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("FATAL: Could not load config: %v", err)
	}

	logger, err := logging.New(cfg.Log.Level, !cfg.Server.IsProduction())
	if err != nil {
		log.Fatalf("FATAL: Could not build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
	logger.Info("Server exiting.")
}

func run(cfg config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("Starting ViralPik asset service...",
		zap.String("env", cfg.Server.Env),
		zap.String("db_driver", cfg.Database.Driver))

	// --- Database Connection ---
	repos, err := openRepositories(ctx, cfg.Database, logger)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := repos.Close(closeCtx); err != nil {
			logger.Error("Failed to close database", zap.Error(err))
		}
	}()

	// --- Initialize Storage ---
	fileStorage, err := storage.NewS3Storage(ctx, cfg.R2, logger)
	if err != nil {
		return fmt.Errorf("initialize object storage: %w", err)
	}
	if cfg.Redis.Addr != "" {
		urlCache, err := cache.NewRedis(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			// Signed URLs work without the cache, only slower.
			logger.Warn("Redis unavailable, signed URLs will not be cached", zap.Error(err))
		} else {
			defer urlCache.Close()
			fileStorage = storage.NewCachedStorage(fileStorage, urlCache, cfg.Redis.URLTTL, logger)
			logger.Info("Signed URL cache enabled", zap.String("addr", cfg.Redis.Addr))
		}
	}

	// --- Inference ---
	var ai service.InferenceClient
	if cfg.AI.Enabled() {
		client := inference.NewClient(cfg.AI, logger)
		ai = client
		logger.Info("AI enrichment enabled", zap.Bool("nsfwScoring", client.ScoresNSFW()))
	} else {
		logger.Info("AI enrichment disabled: inference API not configured")
	}

	// --- Initialize Services ---
	enrichmentService := service.NewEnrichmentService(repos.Assets, ai, logger)
	services := api.Services{
		Downloads: service.NewDownloadService(repos, fileStorage, service.DownloadOptions{
			AllowAnonymous: cfg.Downloads.AllowAnonymous,
			URLTTL:         cfg.Downloads.URLTTL,
		}, logger),
		Uploads:    service.NewUploadService(repos.Assets, fileStorage, logger),
		Enrichment: enrichmentService,
		Assets:     service.NewAssetService(repos.Assets, fileStorage, enrichmentService, logger),
	}

	// --- Initialize Gin Engine ---
	if cfg.Server.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(api.Recovery(logger), api.RequestLogger(logger))

	limiter := api.NewIPRateLimiter(ctx, cfg.RateLimit.PerMinute, cfg.RateLimit.Burst, logger)
	api.SetupRoutes(router, api.RouteConfig{
		JWTSecret:      cfg.Auth.JWTSecret,
		CookieName:     cfg.Auth.CookieName,
		AllowAnonymous: cfg.Downloads.AllowAnonymous,
		ExposeDetails:  !cfg.Server.IsProduction(),
	}, services, limiter, logger)

	// --- Start HTTP Server ---
	server := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("Server starting", zap.String("addr", cfg.Server.Address))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	// --- Graceful Shutdown ---
	select {
	case err := <-serveErr:
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
	}
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	return nil
}

// openRepositories connects the configured backend.
func openRepositories(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (*repository.Repositories, error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		db, err := postgres.Open(ctx, cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		if cfg.Migrate {
			logger.Info("Applying database migrations...")
			if err := postgres.RunMigrations(ctx, db); err != nil {
				_ = db.Close()
				return nil, err
			}
		}
		logger.Info("Database connection established.", zap.String("driver", cfg.Driver))
		return postgres.NewRepositories(db), nil

	case config.DriverMongo:
		client, err := mongo.ConnectDB(ctx, cfg.MongoURI)
		if err != nil {
			return nil, fmt.Errorf("connect mongodb: %w", err)
		}
		appDB := client.Database(cfg.Name)

		indexCtx, cancel := context.WithTimeout(ctx, time.Minute)
		defer cancel()
		if err := mongo.EnsureIndexes(indexCtx, appDB); err != nil {
			_ = mongo.DisconnectDB(context.Background(), client)
			return nil, fmt.Errorf("ensure indexes: %w", err)
		}
		logger.Info("Database connection established.", zap.String("driver", cfg.Driver), zap.String("db", cfg.Name))
		return mongo.NewRepositories(client, appDB), nil

	case config.DriverMemory:
		logger.Warn("Using in-memory store; data is lost on restart")
		return memory.NewStore().Repositories(), nil

	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}
