package main

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/joegr/ReTurni/internal/api"
	"github.com/joegr/ReTurni/internal/config"
	"github.com/joegr/ReTurni/internal/database"
	"github.com/joegr/ReTurni/internal/dispatch"
	"github.com/joegr/ReTurni/internal/handlers"
	"github.com/joegr/ReTurni/internal/logging"
	"github.com/joegr/ReTurni/internal/metrics"
	"github.com/joegr/ReTurni/internal/middleware"
	"github.com/joegr/ReTurni/internal/proxy"
	"github.com/joegr/ReTurni/internal/ratelimit"
	"github.com/joegr/ReTurni/internal/repository"
	"github.com/joegr/ReTurni/internal/services"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

const version = "1.0.0"

// NOTE: At least one .sql file must exist in migrations/ for embedding to work.
// Make sure to build from the project root so the path is correct.
//
//go:embed migrations/*.sql
var migrationsFS embed.FS

func runMigrations(cfg *config.Config) error {
	dsn := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		cfg.Database.User,
		cfg.Database.Password,
		cfg.Database.Host,
		cfg.Database.Port,
		cfg.Database.DBName,
		cfg.Database.SSLMode,
	)
	d, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return err
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return err
	}
	defer db.Close()
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return err
	}
	m, err := migrate.NewWithInstance("iofs", d, "postgres", driver)
	if err != nil {
		return err
	}
	err = m.Up()
	if err != nil && err != migrate.ErrNoChange {
		return err
	}
	fmt.Println("Migrations applied successfully.")
	return nil
}

func main() {
	// CLI flags
	configPath := pflag.StringP("config", "c", "config.yaml", "Path to config file")
	migrateFlag := pflag.BoolP("migrate", "m", false, "Run database migrations and exit")
	versionFlag := pflag.BoolP("version", "v", false, "Print version and exit")
	port := pflag.IntP("port", "p", 8080, "HTTP server listen port")
	logLevel := pflag.StringP("log-level", "l", "info", "Log level (debug, info, warn, error)")
	jwtSecret := pflag.String("jwt-secret", "", "Override JWT secret from config")

	pflag.Parse()

	if *versionFlag {
		fmt.Println("returni-gateway version " + version)
		os.Exit(0)
	}

	// Load configuration
	cfg, err := config.LoadWithPath(*configPath)
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	if *migrateFlag {
		if err := runMigrations(cfg); err != nil {
			fmt.Fprintf(os.Stderr, "Migration failed: %v\n", err)
			os.Exit(1)
		}
		os.Exit(0)
	}

	// Override config with CLI flags if set
	if pflag.Lookup("port").Changed {
		cfg.Server.Port = *port
	}
	if pflag.Lookup("log-level").Changed {
		cfg.Logging.Level = *logLevel
	}
	if pflag.Lookup("jwt-secret").Changed && *jwtSecret != "" {
		cfg.Auth.JWTSecret = *jwtSecret
	}

	// Initialize logger
	logger, err := logging.InitLogger(logging.LoggingConfig(cfg.Logging))
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer logger.Sync()

	logger.Info("Configuration loaded",
		zap.String("environment", cfg.Environment),
		zap.Int("services", len(cfg.Services)),
	)

	policies, err := middleware.ParsePolicies(cfg.Policies)
	if err != nil {
		logger.Fatal("Invalid route policy configuration", zap.Error(err))
	}

	// Initialize database connection
	db, err := database.Connect(cfg.Database.ToDBConfig())
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	// Initialize Redis client
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	// Initialize repositories
	userRepo := repository.NewUserRepository(db)
	sessionRepo := repository.NewSessionRepository(redisClient, cfg.Auth.SessionTTL, logger)
	revocationRepo := repository.NewRevocationRepository(redisClient, logger)

	// Initialize services
	tokenService := services.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL, cfg.Auth.RefreshTokenTTL, revocationRepo)
	authService := services.NewAuthService(tokenService, sessionRepo, logger)
	hmacService := services.NewHMACService(cfg.Audit.SigningSecret)

	// Initialize shared infrastructure
	gatewayMetrics := metrics.New()
	limiter := ratelimit.NewLimiter(redisClient, cfg.RateLimit.FailOpen, logger)
	serviceRouter := proxy.NewRouter(cfg.Services, cfg.Proxy.Timeout, cfg.Proxy.HealthTimeout, gatewayMetrics, logger)

	// Gateway events flow to the audit service when one is routed.
	auditURL := ""
	if base, ok := cfg.Services["audit"]; ok {
		auditURL = base + "/api/v1/audit/events"
	}
	dispatcher := dispatch.NewDispatcher(auditURL, hmacService, logger)

	// Initialize router
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	api.SetupRoutes(router, api.Dependencies{
		Logger:          logger,
		Version:         version,
		AllowedOrigins:  cfg.Server.AllowedOrigins,
		Metrics:         gatewayMetrics,
		Limiter:         limiter,
		RateLimitCount:  cfg.RateLimit.Requests,
		RateLimitWindow: cfg.RateLimit.Window,
		Auth:            authService,
		Policies:        policies,
		Dispatcher:      dispatcher,
		AuthHandler:     handlers.NewAuthHandler(userRepo, tokenService, authService, sessionRepo, dispatcher),
		HealthHandler:   handlers.NewHealthHandler(redisClient, serviceRouter),
		ProxyHandler:    handlers.NewProxyHandler(serviceRouter),
		WSHandler:       handlers.NewWSHandler(dispatcher),
	})

	// Start HTTP server
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	// Start event dispatcher in background
	dispatchCtx, stopDispatch := context.WithCancel(context.Background())
	go func() {
		if err := dispatcher.Run(dispatchCtx); err != nil && err != context.Canceled {
			logger.Error("Dispatcher error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		logger.Info("Shutting down server...")

		stopDispatch()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			logger.Fatal("Server forced to shutdown", zap.Error(err))
		}
	}()

	logger.Info("Starting server", zap.Int("port", cfg.Server.Port))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal("Server error", zap.Error(err))
	}
}
