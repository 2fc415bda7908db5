package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/smarttransit/interline-booking-backend/internal/cache"
	"github.com/smarttransit/interline-booking-backend/internal/config"
	"github.com/smarttransit/interline-booking-backend/internal/database"
	"github.com/smarttransit/interline-booking-backend/internal/handlers"
	"github.com/smarttransit/interline-booking-backend/internal/middleware"
	"github.com/smarttransit/interline-booking-backend/internal/models"
	"github.com/smarttransit/interline-booking-backend/internal/provider"
	"github.com/smarttransit/interline-booking-backend/internal/refdata"
	"github.com/smarttransit/interline-booking-backend/internal/services"
	"github.com/smarttransit/interline-booking-backend/internal/wizard"
	"github.com/smarttransit/interline-booking-backend/pkg/jwt"
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

	logger.Info("Starting Interline Booking Backend")
	logger.Infof("Version: %s, Build Time: %s", version, buildTime)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	logLevel, err := logrus.ParseLevel(cfg.Server.LogLevel)
	if err != nil {
		logger.Warn("Invalid log level, using INFO")
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	// Database holds booking records, agent balances and search logs only.
	// Search and booking sessions live in memory.
	connectCtx, cancelConnect := context.WithTimeout(context.Background(), 30*time.Second)
	db, err := database.NewConnection(connectCtx, cfg.Database, logger)
	cancelConnect()
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	logger.Info("Database connection established")

	if cfg.Database.RunMigrations {
		if err := database.RunMigrations(db.DB.DB, logger); err != nil {
			logger.Fatalf("Failed to run migrations: %v", err)
		}
	}

	// Initialize services
	logger.Info("Initializing services...")
	jwtService := jwt.NewService(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.AccessTokenExpiry)

	catalog, err := refdata.LoadFile(cfg.Booking.ReferenceDataFile)
	if err != nil {
		logger.Fatalf("Failed to load country reference data: %v", err)
	}

	interline := newProvider(cfg, logger)

	bookingRecords := database.NewBookingRecordRepository(db)
	agentAccounts := database.NewAgentAccountRepository(db)
	searchLogs := database.NewSearchLogRepository(db)

	orchestrator := services.NewBookingOrchestratorService(
		interline,
		wizard.NewMachine(catalog),
		services.NewBookingAssembler(catalog),
		bookingRecords,
		agentAccounts,
		searchLogs,
		services.BookingOrchestratorConfig{
			SearchTimeout:     cfg.Booking.SearchTimeout,
			SubmissionTimeout: cfg.Booking.SubmissionTimeout,
			CheckAgentBalance: cfg.Booking.CheckAgentBalance,
			DefaultCurrency:   cfg.Booking.DefaultCurrency,
		},
		logger,
	)

	cronService := services.NewCronService(orchestrator, cfg.Booking.SweepSchedule, cfg.Booking.SessionIdleTTL, logger)
	if err := cronService.Start(); err != nil {
		logger.Fatalf("Failed to start cron service: %v", err)
	}
	logger.Info("✓ Cron service started - idle session sweep enabled")

	logger.Info("Services initialized")

	// Initialize handlers
	searchSessionHandler := handlers.NewSearchSessionHandler(orchestrator, logger)
	bookingSessionHandler := handlers.NewBookingSessionHandler(orchestrator, logger)
	bookingHistoryHandler := handlers.NewBookingHistoryHandler(orchestrator, logger)
	popularRoutesHandler := handlers.NewPopularRoutesHandler(searchLogs, logger)
	referenceHandler := handlers.NewReferenceHandler(catalog)

	router := gin.New()
	router.Use(gin.Recovery())
	if cfg.Security.EnableRequestLog {
		router.Use(requestLogger(logger))
	}

	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORS.AllowedOrigins,
		AllowMethods:     cfg.CORS.AllowedMethods,
		AllowHeaders:     cfg.CORS.AllowedHeaders,
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: !containsWildcard(cfg.CORS.AllowedOrigins),
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/health", healthCheckHandler(db, interline))

	v1 := router.Group("/api/v1")
	{
		reference := v1.Group("/reference")
		{
			reference.GET("/countries", referenceHandler.Countries)
			reference.GET("/countries/:code/cities", referenceHandler.Cities)
			reference.GET("/nationalities", referenceHandler.Nationalities)
		}

		protected := v1.Group("")
		protected.Use(middleware.AuthMiddleware(jwtService, logger))
		{
			searches := protected.Group("/search-sessions")
			{
				searches.POST("", searchSessionHandler.Create)
				searches.GET("/:id", searchSessionHandler.Get)
				searches.POST("/:id/search", searchSessionHandler.Search)
				searches.POST("/:id/sort", searchSessionHandler.Sort)
				searches.POST("/:id/filters", searchSessionHandler.Filter)
				searches.POST("/:id/page", searchSessionHandler.SetPage)
				searches.POST("/:id/select", searchSessionHandler.Select)
				searches.POST("/:id/booking", searchSessionHandler.StartBooking)
				searches.DELETE("/:id", searchSessionHandler.Delete)
			}

			protected.GET("/searches/popular", popularRoutesHandler.List)

			bookings := protected.Group("/booking-sessions")
			{
				bookings.GET("/:id", bookingSessionHandler.Get)
				bookings.PATCH("/:id/passengers/:index", bookingSessionHandler.UpdatePassenger)
				bookings.PATCH("/:id/contact", bookingSessionHandler.UpdateContact)
				bookings.POST("/:id/advance", bookingSessionHandler.Advance)
				bookings.POST("/:id/retreat", bookingSessionHandler.Retreat)
				bookings.POST("/:id/submit", bookingSessionHandler.Submit)
				bookings.POST("/:id/reset", bookingSessionHandler.Reset)
				bookings.GET("/:id/fare", bookingSessionHandler.Fare)
				bookings.DELETE("/:id", bookingSessionHandler.Abandon)
			}

			protected.GET("/bookings", bookingHistoryHandler.List)
			protected.GET("/bookings/:pnr", bookingHistoryHandler.GetByPNR)

			admin := protected.Group("/admin")
			admin.Use(middleware.RequireRole("admin"))
			{
				admin.POST("/sessions/sweep", func(c *gin.Context) {
					cronService.RunSweepNow()
					c.JSON(http.StatusOK, gin.H{"message": "Idle session sweep triggered"})
				})
				admin.GET("/cron/status", func(c *gin.Context) {
					c.JSON(http.StatusOK, cronService.GetJobStatus())
				})
			}
		}
	}

	// Submission may legitimately run up to the provider timeout
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.Booking.SubmissionTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

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

	logger.Info("Stopping cron service...")
	cronService.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
	}

	logger.Info("Server exited successfully")
}

// newProvider builds the interline provider chain: retries inside rate
// limiting, with search results cached in Redis or in process.
func newProvider(cfg *config.Config, logger *logrus.Logger) provider.Provider {
	var base provider.Provider
	switch cfg.Provider.Mode {
	case config.ProviderModeLive:
		logger.WithField("base_url", cfg.Provider.BaseURL).Info("Using live interline provider")
		base = provider.NewHTTPProvider(cfg.Provider.BaseURL, cfg.Provider.APIKey, cfg.Provider.Timeout, logger)
	default:
		logger.Info("Using mock interline provider (fixtures, no real bookings)")
		base = provider.NewMockProvider(cfg.Provider.MockFixture, cfg.Provider.MockDelay, logger)
	}

	p := provider.NewRetryingProvider(base, cfg.Provider.MaxRetries)
	p = provider.NewRateLimitedProvider(p, cfg.Provider.RateLimit)

	if cfg.Cache.SearchTTL <= 0 {
		return p
	}

	var store cache.Store[[]models.Itinerary]
	if cfg.Cache.RedisURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		rdb, err := cache.NewRedisClient(ctx, cfg.Cache.RedisURL)
		if err != nil {
			logger.WithError(err).Warn("Redis unavailable, caching searches in process")
		} else {
			logger.Info("Caching searches in Redis")
			store = cache.NewRedisStore[[]models.Itinerary](rdb, "interline:search:", logger)
		}
	}
	if store == nil {
		store = cache.NewMemory(models.CloneItineraries)
	}

	return provider.NewCachedProvider(p, store, cfg.Cache.SearchTTL)
}

func containsWildcard(origins []string) bool {
	for _, o := range origins {
		if o == "*" {
			return true
		}
	}
	return false
}

// requestLogger middleware for logging HTTP requests
func requestLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		fields := logrus.Fields{
			"status":     c.Writer.Status(),
			"method":     c.Request.Method,
			"path":       path,
			"query":      query,
			"ip":         c.ClientIP(),
			"latency_ms": time.Since(start).Milliseconds(),
			"user_agent": c.Request.UserAgent(),
			"has_auth":   c.GetHeader("Authorization") != "",
		}

		if agent, ok := middleware.GetAgentContext(c); ok {
			fields["agent_id"] = agent.AgentID
			fields["pos"] = agent.POS
		}

		entry := logger.WithFields(fields)

		if len(c.Errors) > 0 {
			for i, err := range c.Errors {
				entry = entry.WithField(fmt.Sprintf("error_%d", i), err.Error())
			}
			entry.Error("Request failed with errors")
			return
		}

		status := c.Writer.Status()
		if status >= 500 {
			entry.Error("Request completed with server error")
		} else if status >= 400 {
			entry.Warn("Request completed with client error")
		} else {
			entry.Info("Request completed successfully")
		}
	}
}

// dbChecker is satisfied by *database.PostgresDB
type dbChecker interface {
	Check(ctx context.Context, timeout time.Duration) (sql.DBStats, error)
}

// healthCheckHandler reports database reachability
func healthCheckHandler(db dbChecker, p provider.Provider) gin.HandlerFunc {
	return func(c *gin.Context) {
		stats, err := db.Check(c.Request.Context(), 2*time.Second)
		if err != nil {
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
			"db_open":   stats.OpenConnections,
			"db_in_use": stats.InUse,
			"provider":  p.Name(),
			"version":   version,
			"timestamp": time.Now().Unix(),
		})
	}
}
