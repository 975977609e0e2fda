package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"

	"catalog-service/internal/displayinfo"
	"catalog-service/internal/handler"
	mid "catalog-service/internal/middleware"
	"catalog-service/internal/repository"
	"catalog-service/internal/service"
	"catalog-service/internal/upload"
	"catalog-service/pkg/config"
	"catalog-service/pkg/database"
	"catalog-service/pkg/jwtutil"
	"catalog-service/pkg/logger"
	"catalog-service/pkg/password"
	"catalog-service/prometheus"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	appConfig, err := config.Load()
	if err != nil {
		// Can't use structured logger yet since it's not initialized
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	if err := logger.InitLogger(&logger.LogConfig{
		Level:       appConfig.Log.Level,
		Environment: appConfig.Server.Env,
		ServiceName: appConfig.ServiceName,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	log := logger.GetLogger()

	log.Info("Starting "+appConfig.ServiceName, appConfig.LogConfig()...)

	// Initialize Prometheus metrics
	registry := promclient.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := prometheus.NewMetrics(appConfig.Metrics.Prefix, registry)
	log.Info("Prometheus metrics initialized", zap.String("metrics_prefix", appConfig.Metrics.Prefix))

	// Initialize database
	ctx := context.Background()
	db, err := database.Connect(ctx, &appConfig.Mongo)
	if err != nil {
		log.Fatal("Failed to initialize database", zap.Error(err))
	}
	if err := db.EnsureIndexes(ctx); err != nil {
		log.Fatal("Failed to create database indexes", zap.Error(err))
	}

	// Initialize upload storage
	var storage upload.Storage
	switch appConfig.Upload.Backend {
	case config.UploadBackendS3:
		storage, err = upload.NewS3Storage(ctx, &appConfig.Upload)
		if err != nil {
			log.Fatal("Failed to initialize S3 storage", zap.Error(err))
		}
	default:
		if err := os.MkdirAll(appConfig.Upload.Dir, 0o755); err != nil {
			log.Fatal("Failed to create upload directory", zap.Error(err))
		}
		storage = upload.NewLocalStorage(appConfig.Upload.Dir)
	}
	files := upload.NewManager(storage, metrics)
	cleaner := upload.NewCleaner(files, upload.DefaultCleanupTimeout, metrics)

	// Wire services
	hasher := password.NewHasher(appConfig.Password.BcryptCost)
	tokens := jwtutil.NewJWTUtil(jwtutil.JWTConfig{
		SigningKey: appConfig.JWT.SigningKey,
		Expiration: appConfig.JWT.Expiration,
		Issuer:     appConfig.JWT.Issuer,
	})

	userRepo := repository.NewUserRepository(db.Collection(database.UsersCollection), metrics)
	productRepo := repository.NewProductRepository(db.Collection(database.ProductsCollection), metrics)

	userService := service.NewUserService(userRepo, hasher, files, cleaner, metrics)
	productService := service.NewProductService(productRepo, files, cleaner, displayinfo.NewGenerator(nil), metrics)
	authService := service.NewAuthService(userRepo, hasher, tokens, metrics)

	// Initialize Echo instance
	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = handler.ErrorHandler

	// Middleware
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: appConfig.Server.CORSAllowedOrigins,
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))
	e.Use(middleware.BodyLimit(fmt.Sprintf("%dB", appConfig.Upload.MaxBytes)))
	e.Use(mid.RequestIDMiddleware)
	e.Use(logger.Middleware())
	e.Use(metrics.Middleware())

	// Routes
	e.GET("/metrics", echo.WrapHandler(metrics.Handler()))
	if appConfig.Upload.Backend == config.UploadBackendLocal {
		e.Static("/"+upload.RefPrefix, appConfig.Upload.Dir)
	}
	handler.RegisterRoutes(e, handler.Handlers{
		Auth:     handler.NewAuthHandler(authService),
		Users:    handler.NewUserHandler(userService),
		Products: handler.NewProductHandler(productService),
		Health:   handler.NewHealthHandler(db),
	}, mid.AuthMiddleware(authService, metrics))

	// Start server
	port := appConfig.Server.Port
	go func() {
		log.Info("Starting server", zap.String("port", port))
		if err := e.Start(":" + port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Server error", zap.Error(err))
		}
	}()

	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		appConfig.Server.ShutdownTimeout,
		map[string]gfshutdown.Operation{
			// stop accepting requests, then let pending file deletions finish
			// before the database goes away
			appConfig.ServiceName: func(ctx context.Context) error {
				log.Info("Graceful shutdown initiated")
				err := e.Shutdown(ctx)
				err = multierr.Append(err, cleaner.Wait(ctx))
				err = multierr.Append(err, db.Disconnect(ctx))
				return err
			},
		},
	)

	exitCode := <-wait
	log.Info("Service exited", zap.Int("code", exitCode))
	_ = log.Sync()
	os.Exit(exitCode)
}
