// Package main provides the main entry point for the Sexto Andar authentication service
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/redis/go-redis/v9"
	"gopkg.in/natefinch/lumberjack.v2"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/sexto-andar/auth-service/app/handlers"
	"github.com/sexto-andar/auth-service/app/middleware"
	"github.com/sexto-andar/auth-service/app/router"
	"github.com/sexto-andar/auth-service/app/services"
	businessflow "github.com/sexto-andar/auth-service/business_flow"
	"github.com/sexto-andar/auth-service/config"
	"github.com/sexto-andar/auth-service/models"
	"github.com/sexto-andar/auth-service/repository"
)

// Application represents the main application structure
type Application struct {
	router    *router.FiberRouter
	config    *config.ProductionConfig
	server    *fiber.App
	stopFuncs []func()
}

func main() {
	log.Println("Starting auth service...")

	cfg, err := config.LoadProductionConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	setupLogging(cfg.Logging)

	app, err := initializeApplication(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	app.router.SetupRoutes()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		address := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		log.Printf("Server starting on %s", address)

		if err := app.server.Listen(address); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-sigChan
	log.Println("Shutting down gracefully...")

	for _, fn := range app.stopFuncs {
		fn()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := app.server.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}

	log.Println("Server stopped")
}

// setupLogging routes the standard logger to a rotating file when configured
func setupLogging(cfg config.LoggingConfig) {
	if cfg.Output == "stdout" || cfg.FilePath == "" {
		return
	}

	rotator := &lumberjack.Logger{
		Filename:   cfg.FilePath,
		MaxSize:    cfg.MaxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge,
		Compress:   cfg.Compress,
	}

	if cfg.Output == "both" {
		log.SetOutput(io.MultiWriter(os.Stdout, rotator))
		return
	}
	log.SetOutput(rotator)
}

// initializeDatabase initializes the database connection with connection pooling
func initializeDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name, cfg.SSLMode)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := db.AutoMigrate(&models.Account{}, &models.AuditLog{}); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	log.Printf("Database connection established with %d max open connections, %d max idle connections",
		cfg.MaxOpenConns, cfg.MaxIdleConns)

	return db, nil
}

// initializeCache initializes the Redis client backing token revocation
func initializeCache(cfg config.CacheConfig) (*redis.Client, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	opt.DB = cfg.RedisDB
	if cfg.RedisPassword != "" {
		opt.Password = cfg.RedisPassword
	}

	rc := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rc.Ping(ctx).Err(); err != nil {
		_ = rc.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	log.Printf("Redis connection established to %s (db=%d)", cfg.RedisURL, cfg.RedisDB)
	return rc, nil
}

// startCacheHealthMonitor starts a background goroutine that periodically pings Redis
// to detect connectivity issues. The returned cancel function stops the monitor.
func startCacheHealthMonitor(parent context.Context, client *redis.Client, interval time.Duration) func() {
	monitorCtx, cancel := context.WithCancel(parent)
	if interval <= 0 {
		interval = 30 * time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-monitorCtx.Done():
				return
			case <-ticker.C:
				ctx, c := context.WithTimeout(context.Background(), 3*time.Second)
				if err := client.Ping(ctx).Err(); err != nil {
					log.Printf("Redis healthcheck failed: %v", err)
				}
				c()
			}
		}
	}()
	return cancel
}

// initializeApplication initializes the main application components
func initializeApplication(cfg *config.ProductionConfig) (*Application, error) {
	var stopFuncs []func()

	db, err := initializeDatabase(cfg.Database)
	if err != nil {
		return nil, err
	}

	rc, err := initializeCache(cfg.Cache)
	if err != nil {
		return nil, err
	}

	var revocations services.RevocationStore
	if rc != nil {
		revocations = services.NewRedisRevocationStore(rc)
		cancel := startCacheHealthMonitor(context.Background(), rc, 30*time.Second)
		stopFuncs = append(stopFuncs, cancel)
	} else {
		log.Println("Token revocation store disabled, logout will not invalidate tokens before expiry")
	}

	// Repositories
	accountRepo := repository.NewAccountRepository(db)
	auditRepo := repository.NewAuditLogRepository(db)

	// Services
	passwordService := services.NewPasswordService(cfg.Security.BcryptCost)

	tokenService, err := services.NewTokenService(
		cfg.JWT.AccessTokenTTL,
		cfg.JWT.Issuer,
		cfg.JWT.Audience,
		cfg.JWT.UseRSAKeys,
		cfg.JWT.PrivateKey,
		cfg.JWT.PublicKey,
		cfg.JWT.SecretKey,
		revocations,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize token service: %w", err)
	}
	log.Printf("Token service initialized with issuer: %s, audience: %s", cfg.JWT.Issuer, cfg.JWT.Audience)

	relationService := services.NewPropertyRelationService(
		cfg.Properties.BaseURL,
		cfg.Properties.InternalSecret,
		cfg.Properties.Timeout,
	)
	webhookService := services.NewWebhookService(
		cfg.Properties.BaseURL,
		cfg.Properties.InternalSecret,
		cfg.Properties.WebhookTimeout,
	)

	// Seed the first administrator before serving traffic
	if err := ensureAdminAccount(db, accountRepo, passwordService, cfg.Bootstrap); err != nil {
		return nil, err
	}

	// Flows
	registrationFlow := businessflow.NewRegistrationFlow(accountRepo, auditRepo, passwordService, db)
	loginFlow := businessflow.NewLoginFlow(accountRepo, auditRepo, tokenService, passwordService, db)
	profileFlow := businessflow.NewProfileFlow(accountRepo, auditRepo, passwordService, db)
	adminFlow := businessflow.NewAdminAccountFlow(accountRepo, auditRepo, passwordService, relationService, webhookService, db)

	// Handlers
	authHandler := handlers.NewAuthHandler(registrationFlow, loginFlow, tokenService, handlers.CookieSettings{
		Secure: cfg.Security.CookieSecure,
		Domain: cfg.Security.CookieDomain,
	})
	profileHandler := handlers.NewProfileHandler(profileFlow)
	adminHandler := handlers.NewAdminHandler(adminFlow)

	authMiddleware := middleware.NewAuthMiddleware(tokenService, accountRepo)

	appRouter := router.NewFiberRouter(
		router.Config{
			BasePath:               cfg.Server.BasePath,
			AllowedOrigins:         cfg.Security.AllowedOrigins,
			RateLimitPerMinute:     cfg.Security.GlobalRateLimit,
			AuthRateLimitPerMinute: cfg.Security.AuthRateLimit,
		},
		db,
		authHandler,
		profileHandler,
		adminHandler,
		authMiddleware,
	)

	fiberRouter := appRouter.(*router.FiberRouter)
	application := &Application{
		router:    fiberRouter,
		config:    cfg,
		server:    fiberRouter.GetApp(),
		stopFuncs: stopFuncs,
	}

	return application, nil
}

// ensureAdminAccount creates the bootstrap administrator when none of the
// configured identifiers exist yet.
func ensureAdminAccount(
	db *gorm.DB,
	accountRepo repository.AccountRepository,
	passwordService services.PasswordService,
	cfg config.BootstrapConfig,
) error {
	if cfg.AdminUsername == "" {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return repository.WithTransaction(ctx, db, func(txCtx context.Context) error {
		existing, err := accountRepo.ByUsername(txCtx, cfg.AdminUsername)
		if err != nil {
			return fmt.Errorf("failed to look up bootstrap admin: %w", err)
		}
		if existing != nil {
			return nil
		}

		byEmail, err := accountRepo.ByEmail(txCtx, cfg.AdminEmail)
		if err != nil {
			return fmt.Errorf("failed to look up bootstrap admin email: %w", err)
		}
		if byEmail != nil {
			return nil
		}

		hash, err := passwordService.Hash(cfg.AdminPassword)
		if err != nil {
			return fmt.Errorf("failed to hash bootstrap admin password: %w", err)
		}

		admin, err := models.NewAccount(cfg.AdminUsername, cfg.AdminFullName, cfg.AdminEmail, nil, hash, models.RoleAdmin)
		if err != nil {
			return fmt.Errorf("invalid bootstrap admin configuration: %w", err)
		}

		if err := accountRepo.Save(txCtx, admin); err != nil {
			return fmt.Errorf("failed to create bootstrap admin: %w", err)
		}

		log.Printf("Bootstrap admin account %q created", cfg.AdminUsername)
		return nil
	})
}
