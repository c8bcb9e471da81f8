// Package router provides HTTP routing, middleware configuration, and server setup for the web application
package router

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"log"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/gofiber/fiber/v3/middleware/compress"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/helmet"
	"github.com/gofiber/fiber/v3/middleware/limiter"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/gofiber/fiber/v3/middleware/requestid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/sexto-andar/auth-service/app/dto"
	"github.com/sexto-andar/auth-service/app/handlers"
	"github.com/sexto-andar/auth-service/app/middleware"
	"github.com/sexto-andar/auth-service/utils"
)

// Config carries the routing knobs read from the service configuration
type Config struct {
	BasePath               string
	AllowedOrigins         []string
	RateLimitPerMinute     int
	AuthRateLimitPerMinute int
}

// Router interface for HTTP routing
type Router interface {
	SetupRoutes()
	Start(address string) error
	GetApp() *fiber.App
}

// FiberRouter implements Router using Fiber v3
type FiberRouter struct {
	app            *fiber.App
	cfg            Config
	db             *gorm.DB
	authHandler    *handlers.AuthHandler
	profileHandler *handlers.ProfileHandler
	adminHandler   *handlers.AdminHandler
	authMW         *middleware.AuthMiddleware
}

// NewFiberRouter creates a new Fiber router
func NewFiberRouter(
	cfg Config,
	db *gorm.DB,
	authHandler *handlers.AuthHandler,
	profileHandler *handlers.ProfileHandler,
	adminHandler *handlers.AdminHandler,
	authMW *middleware.AuthMiddleware,
) Router {
	if cfg.BasePath == "" {
		cfg.BasePath = "/api"
	}
	if cfg.RateLimitPerMinute <= 0 {
		cfg.RateLimitPerMinute = 2000
	}
	if cfg.AuthRateLimitPerMinute <= 0 {
		cfg.AuthRateLimitPerMinute = 20
	}

	app := fiber.New(fiber.Config{
		AppName:      "Sexto Andar Auth API",
		ServerHeader: "sexto-andar-auth",
		ErrorHandler: errorHandler,
		// Profile pictures are capped at 5 MiB; leave headroom for the
		// multipart envelope.
		BodyLimit:    6 * 1024 * 1024,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
		JSONEncoder:  json.Marshal,
		JSONDecoder:  json.Unmarshal,
	})

	return &FiberRouter{
		app:            app,
		cfg:            cfg,
		db:             db,
		authHandler:    authHandler,
		profileHandler: profileHandler,
		adminHandler:   adminHandler,
		authMW:         authMW,
	}
}

// SetupRoutes configures all application routes
func (r *FiberRouter) SetupRoutes() {
	log.Println("Setting up routes...")

	r.setupMiddleware()

	r.app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	api := r.app.Group(r.cfg.BasePath)
	api.Get("/health", r.healthCheck)

	healthPath := r.cfg.BasePath + "/health"

	api.Use(limiter.New(limiter.Config{
		Max:        r.cfg.RateLimitPerMinute,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: rateLimitReached,
		Next: func(c fiber.Ctx) bool {
			return c.Path() == healthPath
		},
	}))

	// Credential endpoints get a much tighter budget than the rest of the
	// API so password guessing stays slow.
	credentialLimiter := limiter.New(limiter.Config{
		Max:        r.cfg.AuthRateLimitPerMinute,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: rateLimitReached,
	})

	auth := api.Group("/auth")

	// Route handlers run in registration order, so middleware always goes
	// before the terminal handler.
	authenticated := r.authMW.Authenticate()

	auth.Post("/register/user", credentialLimiter, r.authHandler.RegisterUser)
	auth.Post("/register/property-owner", credentialLimiter, r.authHandler.RegisterPropertyOwner)
	auth.Post("/login", credentialLimiter, r.authHandler.Login)
	auth.Post("/logout", r.authMW.OptionalAuth(), r.authHandler.Logout)
	auth.Post("/introspect", r.authHandler.Introspect)

	auth.Get("/me", authenticated, r.authHandler.Me)

	auth.Put("/profile", authenticated, r.profileHandler.UpdateProfile)
	auth.Delete("/profile", authenticated, r.profileHandler.DeleteProfile)
	auth.Post("/profile/picture", authenticated, r.profileHandler.UploadPicture)
	auth.Get("/profile/picture", authenticated, r.profileHandler.GetPicture)
	auth.Get("/profile/picture/preview", authenticated, r.profileHandler.PicturePreview)
	auth.Delete("/profile/picture", authenticated, r.profileHandler.DeletePicture)

	// GET /admin/users/:user_id is authenticated-only; the flow applies the
	// role rules so property owners can read related tenants. Everything else
	// under /admin requires the admin role outright.
	admin := auth.Group("/admin", authenticated)
	adminOnly := r.authMW.RequireAdmin()

	admin.Get("/users", adminOnly, r.adminHandler.ListUsers)
	admin.Get("/users/export", adminOnly, r.adminHandler.ExportUsers)
	admin.Get("/users/:user_id", r.adminHandler.UserInfo)
	admin.Put("/users/:user_id", adminOnly, r.adminHandler.UpdateUser)
	admin.Delete("/users/:user_id", adminOnly, r.adminHandler.DeleteUser)
	admin.Put("/users/:user_id/password", adminOnly, r.adminHandler.SetUserPassword)
	admin.Post("/create-admin", adminOnly, r.adminHandler.CreateAdmin)
	admin.Post("/delete-admin/:admin_id", adminOnly, r.adminHandler.DeleteAdmin)

	r.app.Use(r.notFoundHandler)

	log.Println("Routes configured successfully")
}

// setupMiddleware configures global middleware
func (r *FiberRouter) setupMiddleware() {
	// Request ID middleware - must be first
	r.app.Use(requestid.New(requestid.Config{
		Header: "X-Request-ID",
		Generator: func() string {
			return generateRequestID()
		},
	}))

	r.app.Use(helmet.New(helmet.Config{
		XSSProtection:         "1; mode=block",
		ContentTypeNosniff:    "nosniff",
		XFrameOptions:         "DENY",
		HSTSMaxAge:            31536000,
		HSTSExcludeSubdomains: false,
		ContentSecurityPolicy: "default-src 'self'; frame-ancestors 'none';",
		ReferrerPolicy:        "strict-origin-when-cross-origin",
		XDNSPrefetchControl:   "off",
		XDownloadOptions:      "noopen",
		XPermittedCrossDomain: "none",
	}))

	r.app.Use(cors.New(cors.Config{
		AllowOrigins: r.cfg.AllowedOrigins,
		AllowMethods: []string{
			"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS",
		},
		AllowHeaders: []string{
			"Origin",
			"Content-Type",
			"Accept",
			"Authorization",
			"X-Requested-With",
			"X-Request-ID",
			"Cache-Control",
		},
		ExposeHeaders: []string{
			"X-Request-ID",
			"Content-Disposition",
		},
		AllowCredentials: true,
		MaxAge:           utils.CORSMaxAge,
	}))

	r.app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
		Next: func(c fiber.Ctx) bool {
			contentType := c.Get("Content-Type")
			return hasPrefixAny(contentType, "image/", "video/", "audio/")
		},
	}))

	healthPath := r.cfg.BasePath + "/health"
	r.app.Use(logger.New(logger.Config{
		Format:     `{"time":"${time}","pid":"${pid}","request_id":"${respHeader:X-Request-ID}","level":"info","method":"${method}","path":"${path}","protocol":"${protocol}","ip":"${ip}","user_agent":"${ua}","status":${status},"latency":"${latency}","bytes_in":${bytesReceived},"bytes_out":${bytesSent},"referer":"${referer}"}` + "\n",
		TimeFormat: time.RFC3339,
		TimeZone:   "UTC",
		Next: func(c fiber.Ctx) bool {
			return c.Path() == healthPath || c.Path() == "/metrics"
		},
	}))

	r.app.Use(middleware.Metrics())

	r.app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
		StackTraceHandler: func(c fiber.Ctx, e interface{}) {
			log.Printf(`{"time":"%s","level":"error","request_id":"%s","event":"panic","error":"%v","path":"%s","method":"%s","ip":"%s"}`,
				utils.UTCNow().Format(time.RFC3339),
				requestid.FromContext(c),
				e,
				c.Path(),
				c.Method(),
				c.IP(),
			)
		},
	}))
}

// Start starts the HTTP server
func (r *FiberRouter) Start(address string) error {
	log.Printf("Starting server on %s", address)
	return r.app.Listen(address)
}

// GetApp returns the Fiber app instance
func (r *FiberRouter) GetApp() *fiber.App {
	return r.app
}

// healthCheck reports liveness and database reachability
func (r *FiberRouter) healthCheck(c fiber.Ctx) error {
	dbStatus := "ok"
	if r.db != nil {
		ctx, cancel := context.WithTimeout(c.Context(), 2*time.Second)
		defer cancel()

		sqlDB, err := r.db.DB()
		if err == nil {
			err = sqlDB.PingContext(ctx)
		}
		if err != nil {
			dbStatus = "unreachable"
		}
	}

	status := fiber.StatusOK
	if dbStatus != "ok" {
		status = fiber.StatusServiceUnavailable
	}

	return c.Status(status).JSON(dto.APIResponse{
		Success: dbStatus == "ok",
		Message: "Service health",
		Data: fiber.Map{
			"status":    dbStatus,
			"timestamp": utils.UTCNow().Unix(),
			"service":   "auth-service",
		},
	})
}

// notFoundHandler handles unmatched routes
func (r *FiberRouter) notFoundHandler(c fiber.Ctx) error {
	requestID := requestid.FromContext(c)

	return c.Status(fiber.StatusNotFound).JSON(dto.APIResponse{
		Success: false,
		Message: "The requested resource was not found",
		Error: dto.ErrorDetail{
			Code: "NOT_FOUND",
			Details: fiber.Map{
				"path":       c.Path(),
				"method":     c.Method(),
				"request_id": requestID,
			},
		},
	})
}

func rateLimitReached(c fiber.Ctx) error {
	return c.Status(fiber.StatusTooManyRequests).JSON(dto.APIResponse{
		Success: false,
		Message: "Too many requests. Please try again later.",
		Error: dto.ErrorDetail{
			Code: "RATE_LIMIT_EXCEEDED",
		},
	})
}

// errorHandler is the global Fiber error handler
func errorHandler(c fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}

	log.Printf("Error %d: %v", code, err)

	requestID := requestid.FromContext(c)

	return c.Status(code).JSON(dto.APIResponse{
		Success: false,
		Message: "An internal server error occurred",
		Error: dto.ErrorDetail{
			Code: "INTERNAL_ERROR",
			Details: fiber.Map{
				"timestamp":  utils.UTCNow().Unix(),
				"request_id": requestID,
			},
		},
	})
}

// generateRequestID creates a unique request ID
func generateRequestID() string {
	bytes := make([]byte, 8)
	rand.Read(bytes)
	return hex.EncodeToString(bytes)
}

func hasPrefixAny(s string, prefixes ...string) bool {
	for _, prefix := range prefixes {
		if len(s) >= len(prefix) && s[:len(prefix)] == prefix {
			return true
		}
	}
	return false
}
