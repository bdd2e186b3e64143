package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/tourbook/tour-booking-backend/internal/cache"
	"github.com/tourbook/tour-booking-backend/internal/config"
	"github.com/tourbook/tour-booking-backend/internal/database"
	"github.com/tourbook/tour-booking-backend/internal/handlers"
	"github.com/tourbook/tour-booking-backend/internal/middleware"
	"github.com/tourbook/tour-booking-backend/internal/queue"
	"github.com/tourbook/tour-booking-backend/internal/services"
	"github.com/tourbook/tour-booking-backend/pkg/jwt"
	"github.com/tourbook/tour-booking-backend/pkg/validator"
)

var (
	version   = "1.0.0"
	buildTime = "unknown"
)

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	logger.Info("Starting TourBook Booking Backend")
	logger.Infof("Version: %s, Build Time: %s", version, buildTime)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	// Set log level
	logLevel, err := logrus.ParseLevel(cfg.Server.LogLevel)
	if err != nil {
		logger.Warn("Invalid log level, using INFO")
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	// Set Gin mode
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	// Initialize database connection
	logger.Info("Connecting to database...")
	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	logger.Info("Database connection established")

	// Initialize Redis cache (optional)
	redisClient := cache.NewRedisClient(cfg.Cache)
	packageCache := cache.NewPackageCache(redisClient, cfg.Cache.TTL, logger)
	if redisClient != nil {
		defer redisClient.Close()
		logger.Info("Package cache enabled")
	} else {
		logger.Info("Package cache disabled, serving from database")
	}

	// Initialize event publisher (optional)
	publisher := queue.NewPublisher(cfg.Queue.URL, logger)
	if publisher.Enabled() {
		logger.Info("Booking event publisher enabled")
	} else {
		logger.Info("Booking event publisher disabled")
	}

	// Initialize repositories
	userRepo := database.NewUserRepository(db)
	sessionRepo := database.NewSessionRepository(db)
	packageRepo := database.NewPackageRepository(db)
	bookingRepo := database.NewBookingRepository(db)
	feedbackRepo := database.NewFeedbackRepository(db)
	auditRepo := database.NewPaymentAuditRepository(db, logger)

	// Initialize services
	logger.Info("Initializing services...")
	jwtService := jwt.NewService(
		cfg.JWT.Secret,
		cfg.JWT.RefreshSecret,
		cfg.JWT.AccessTokenExpiry,
		cfg.JWT.RefreshTokenExpiry,
	)
	cardValidator := validator.NewCardValidator()
	rateLimitService := services.NewRateLimitService(db, cfg.RateLimit)
	authService := services.NewAuthService(userRepo, sessionRepo, rateLimitService, jwtService, cfg.Security.BcryptCost, logger)
	packageService := services.NewPackageService(packageRepo, feedbackRepo, packageCache, logger)
	bookingService := services.NewBookingService(db, bookingRepo, packageRepo, auditRepo, cardValidator, publisher, logger)
	feedbackService := services.NewFeedbackService(bookingRepo, feedbackRepo, logger)
	recommendationService := services.NewRecommendationService(db, packageRepo)
	logger.Info("Services initialized")

	// Start background maintenance jobs
	cronService := services.NewCronService(rateLimitService, logger)
	if err := cronService.Start(); err != nil {
		logger.Fatalf("Failed to start cron service: %v", err)
	}

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService)
	packageHandler := handlers.NewPackageHandler(packageService, recommendationService)
	bookingHandler := handlers.NewBookingHandler(bookingService, bookingRepo)
	feedbackHandler := handlers.NewFeedbackHandler(feedbackService)
	adminHandler := handlers.NewAdminHandler(packageService, bookingService, bookingRepo, userRepo, auditRepo)

	// Initialize Gin router
	router := gin.New()

	// Middleware
	router.Use(gin.Recovery())
	router.Use(requestLogger(logger))

	// CORS configuration
	corsConfig := cors.Config{
		AllowOrigins:     cfg.CORS.AllowedOrigins,
		AllowMethods:     cfg.CORS.AllowedMethods,
		AllowHeaders:     cfg.CORS.AllowedHeaders,
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	router.Use(cors.New(corsConfig))

	// Health check endpoint
	router.GET("/health", healthCheckHandler(db))

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		// Authentication routes (public)
		auth := v1.Group("/auth")
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
			auth.POST("/refresh", authHandler.Refresh)

			authProtected := auth.Group("")
			authProtected.Use(middleware.AuthMiddleware(jwtService))
			{
				authProtected.GET("/me", authHandler.GetProfile)
				authProtected.GET("/sessions", authHandler.ListSessions)
			}
		}

		// Package browsing (public, recommendations require auth)
		packages := v1.Group("/packages")
		{
			packages.GET("", packageHandler.ListPackages)

			packagesProtected := packages.Group("")
			packagesProtected.Use(middleware.AuthMiddleware(jwtService))
			{
				packagesProtected.GET("/recommendations", packageHandler.GetRecommendations)
			}

			packages.GET("/:id", packageHandler.GetPackage)
		}

		// Booking lifecycle (all protected)
		bookings := v1.Group("/bookings")
		bookings.Use(middleware.AuthMiddleware(jwtService))
		{
			bookings.POST("", bookingHandler.CreateBooking)
			bookings.GET("", bookingHandler.ListMyBookings)
			bookings.GET("/:id", bookingHandler.GetBooking)
			bookings.POST("/:id/payment", bookingHandler.ConfirmPayment)
			bookings.POST("/:id/cancel", bookingHandler.CancelBooking)
		}

		// Feedback (all protected)
		feedback := v1.Group("/feedback")
		feedback.Use(middleware.AuthMiddleware(jwtService))
		{
			feedback.POST("", feedbackHandler.SubmitFeedback)
			feedback.GET("", feedbackHandler.ListMyFeedback)
		}

		// Admin surface (protected, admin role required)
		admin := v1.Group("/admin")
		admin.Use(middleware.AuthMiddleware(jwtService))
		admin.Use(middleware.RequireAdmin())
		{
			admin.GET("/packages", adminHandler.ListPackages)
			admin.POST("/packages", adminHandler.CreatePackage)
			admin.PUT("/packages/:id", adminHandler.UpdatePackage)
			admin.PATCH("/packages/:id/active", adminHandler.SetPackageActive)

			admin.GET("/bookings", adminHandler.ListBookings)
			admin.PATCH("/bookings/:id/status", adminHandler.SetBookingStatus)
			admin.GET("/bookings/:id/audit", adminHandler.GetBookingAudit)

			admin.GET("/users", adminHandler.ListUsers)
			admin.PATCH("/users/:id/role", adminHandler.SetUserType)

			admin.GET("/stats", adminHandler.GetStats)
		}
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Infof("Server starting on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	cronService.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
	}

	logger.Info("Server exited successfully")
}

// requestLogger middleware for logging HTTP requests
func requestLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)

		fields := logrus.Fields{
			"status":     c.Writer.Status(),
			"method":     c.Request.Method,
			"path":       path,
			"query":      query,
			"ip":         c.ClientIP(),
			"latency_ms": latency.Milliseconds(),
			"user_agent": c.Request.UserAgent(),
		}

		if userCtx, exists := middleware.GetUserContext(c); exists {
			fields["user_id"] = userCtx.UserID
		}

		entry := logger.WithFields(fields)

		switch status := c.Writer.Status(); {
		case status >= 500:
			entry.Error("Request completed with server error")
		case status >= 400:
			entry.Warn("Request completed with client error")
		default:
			entry.Info("Request completed successfully")
		}
	}
}

// healthCheckHandler returns a health check endpoint
func healthCheckHandler(db database.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"database": "unhealthy",
				"error":    err.Error(),
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"database":  "healthy",
			"version":   version,
			"timestamp": time.Now().Unix(),
		})
	}
}
