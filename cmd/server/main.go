package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chucheritas/config"
	"chucheritas/internal/delivery"
	grpcHandler "chucheritas/internal/delivery/grpc"
	"chucheritas/internal/events"
	"chucheritas/internal/middleware"
	"chucheritas/internal/repository"
	"chucheritas/internal/security"
	"chucheritas/internal/usecase"
	"chucheritas/pkg/db"
	"chucheritas/pkg/metrics"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
)

func main() {
	logger := setupLogger("info", "text")

	cfg, err := config.LoadConfig(logger)
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}
	logger = setupLogger(cfg.LogLevel, cfg.LogFormat)
	logger.Info("Starting Chucheritas storefront...")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	database, err := db.Connect(ctx, cfg.DatabaseURL, db.Options{
		ConnectTimeout:  cfg.DBConnectTimeout,
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
	}, logger)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer func() {
		if err := database.Close(); err != nil {
			logger.Errorf("Error closing database connection: %v", err)
		} else {
			logger.Info("Database connection closed.")
		}
	}()

	if cfg.DBRunMigrations {
		if err := db.ApplyMigrations(ctx, database); err != nil {
			logger.Fatalf("Failed to apply migrations: %v", err)
		}
		logger.Info("Database migrations applied.")
	}

	// --- Dependency Injection ---
	principalRepo := repository.NewPostgresPrincipalRepository(database, logger)
	sessionRepo := repository.NewPostgresSessionRepository(database, logger)
	productRepo := repository.NewPostgresProductRepository(database, logger)
	categoryRepo := repository.NewPostgresCategoryRepository(database, logger)
	locationRepo := repository.NewPostgresLocationRepository(database, logger)
	cartRepo := repository.NewPostgresCartRepository(database, logger)
	orderRepo := repository.NewPostgresOrderRepository(database, logger)
	logger.Info("Repositories initialized.")

	publisher := events.New(cfg.KafkaBrokers, cfg.KafkaOrderTopic, logger)
	defer func() {
		if err := publisher.Close(); err != nil {
			logger.Errorf("Error closing event publisher: %v", err)
		}
	}()

	authUseCase := usecase.NewAuthUseCase(principalRepo, sessionRepo, security.NewBcryptHasher(cfg.BcryptCost), cfg.SessionTTL, logger)
	catalogUseCase := usecase.NewCatalogUseCase(productRepo, categoryRepo, cfg.LowStockThreshold, logger)
	orderUseCase := usecase.NewOrderUseCase(orderRepo, productRepo, locationRepo, publisher, logger)
	cartUseCase := usecase.NewCartUseCase(cartRepo, productRepo, orderUseCase, logger)
	logger.Info("Use cases initialized.")

	ping := func(ctx context.Context) error { return db.Ping(ctx, database, cfg.DBConnectTimeout) }

	loginLimiter := middleware.NewRateLimiter(cfg.LoginRatePerSecond, cfg.LoginBurst, logger)
	loginLimiter.StartCleanup(10*time.Minute, ctx.Done())

	gin.SetMode(gin.ReleaseMode)
	router := delivery.NewRouter(delivery.RouterDeps{
		Auth:         authUseCase,
		Catalog:      catalogUseCase,
		Cart:         cartUseCase,
		Orders:       orderUseCase,
		Ping:         ping,
		ProbeTimeout: cfg.DBConnectTimeout,
		Cookie: delivery.CookieOptions{
			Name:   cfg.SessionCookieName,
			TTL:    cfg.SessionTTL,
			Secure: cfg.SessionSecure,
		},
		Metrics:      metrics.New(),
		LoginLimiter: loginLimiter,
		Logger:       logger,
	})
	logger.Info("Routes registered.")

	httpServer := &http.Server{
		Addr:              cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Infof("HTTP server listening on %s", cfg.HTTPPort)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("Failed to serve HTTP: %v", err)
		}
	}()

	var grpcServer *grpc.Server
	if cfg.GrpcPort != "" {
		reporter := grpcHandler.NewHealthReporter(ping, cfg.DBConnectTimeout, logger)
		grpcServer = reporter.NewServer()
		lis, err := net.Listen("tcp", cfg.GrpcPort)
		if err != nil {
			logger.Fatalf("Failed to listen on port %s: %v", cfg.GrpcPort, err)
		}
		go reporter.Run(ctx, cfg.HealthProbeInterval)
		go func() {
			logger.Infof("gRPC health server listening on %s", cfg.GrpcPort)
			if err := grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
				logger.Fatalf("Failed to serve gRPC: %v", err)
			}
		}()
	}

	<-ctx.Done()
	logger.Warn("Shutdown signal received...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("HTTP server shutdown failed: %v", err)
	}
	if grpcServer != nil {
		grpcServer.GracefulStop()
		logger.Info("gRPC server gracefully stopped.")
	}
	logger.Info("Chucheritas storefront shut down gracefully.")
}

func setupLogger(level, format string) *logrus.Logger {
	logger := logrus.New()
	if format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}
	logger.SetOutput(os.Stdout)

	logLevel, err := logrus.ParseLevel(level)
	if err != nil {
		logger.Warnf("Invalid log level '%s', using default 'info'. Error: %v", level, err)
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)
	return logger
}
