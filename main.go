// api/main.go
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"lightfolio/api/analytics"
	"lightfolio/api/database"
	"lightfolio/api/geo"
	"lightfolio/api/handlers"
	"lightfolio/api/middleware"
	"lightfolio/api/notify"
	"lightfolio/api/store"
)

// appConfig collects the tunables the analytics engine and notifier take as
// explicit configuration rather than compiled-in constants.
type appConfig struct {
	SessionTimeout   time.Duration
	TopItems         int
	SlackEnabled     bool
	SlackWebhookURL  string
	DashboardBaseURL string
}

func loadAppConfig() appConfig {
	cfg := appConfig{
		SessionTimeout:   analytics.DefaultSessionTimeout,
		TopItems:         analytics.DefaultTopItems,
		SlackEnabled:     os.Getenv("SLACK_ENABLED") == "true",
		SlackWebhookURL:  os.Getenv("SLACK_WEBHOOK_URL"),
		DashboardBaseURL: "http://localhost:3000",
	}
	if v := os.Getenv("SESSION_TIMEOUT_MINUTES"); v != "" {
		if minutes, err := strconv.Atoi(v); err == nil && minutes > 0 {
			cfg.SessionTimeout = time.Duration(minutes) * time.Minute
		}
	}
	if v := os.Getenv("TOP_ITEMS_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.TopItems = n
		}
	}
	if v := os.Getenv("DASHBOARD_BASE_URL"); v != "" {
		cfg.DashboardBaseURL = v
	}
	return cfg
}

func main() {
	// Load .env first so GIN_MODE and connection settings are visible below.
	// Missing .env is fine; deployments set real environment variables.
	_ = godotenv.Load()

	var logger *zap.Logger
	var err error
	if os.Getenv("GIN_MODE") == "release" {
		gin.SetMode(gin.ReleaseMode)
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	cfg := loadAppConfig()

	// --- Initialize PostgreSQL (users, lightboxes, share links, notifications) ---
	dbClient, err := database.NewPostgresDB(logger)
	if err != nil {
		logger.Fatal("failed to initialize PostgreSQL", zap.Error(err))
	}
	defer dbClient.Close()

	// --- Initialize ClickHouse (raw analytics events) ---
	chClient, err := database.NewClickHouseDB(logger)
	if err != nil {
		logger.Fatal("failed to initialize ClickHouse", zap.Error(err))
	}
	defer chClient.Close()

	// --- Initialize Stores ---
	userStore := store.NewUserStore(dbClient.DB)
	lightboxStore := store.NewLightboxStore(dbClient.DB)
	notificationStore := store.NewNotificationStore(dbClient.DB)
	eventStore := store.NewEventStore(chClient, logger)

	// --- Initialize collaborators ---
	geoClient := geo.NewClient(os.Getenv("GEO_API_URL"))
	slack := notify.NewSlackNotifier(cfg.SlackEnabled, cfg.SlackWebhookURL)
	visitNotifier := notify.NewVisitNotifier(
		notificationStore,
		userStore,
		eventStore,
		slack,
		cfg.SessionTimeout,
		cfg.DashboardBaseURL,
		logger,
	)
	aggregator := analytics.NewAggregator(cfg.SessionTimeout, cfg.TopItems)

	// --- Initialize Handlers ---
	authHandlers := handlers.NewAuthHandlers(userStore, logger)
	trackHandlers := handlers.NewTrackHandlers(eventStore, lightboxStore, geoClient, visitNotifier, logger)
	statsHandlers := handlers.NewStatsHandlers(eventStore, lightboxStore, aggregator, logger)
	notificationHandlers := handlers.NewNotificationHandlers(notificationStore, logger)

	r := gin.Default()

	r.Use(middleware.CORSMiddleware())

	api := r.Group("/api")
	{
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})

		// Authentication endpoints (no authentication required)
		api.POST("/signup", authHandlers.Signup)
		api.POST("/login", authHandlers.Login)
		api.POST("/logout", authHandlers.Logout)

		// Viewer-facing endpoints (viewers are unauthenticated)
		api.POST("/track", trackHandlers.TrackEvent)
		api.POST("/share-links/:id/verify", trackHandlers.VerifySharePassword)

		// Protected routes (require a valid JWT token)
		protected := api.Group("/")
		protected.Use(middleware.AuthRequired(logger))
		{
			protected.GET("/share-links/:id/stats", statsHandlers.GetShareLinkStats)
			protected.GET("/share-links/:id/events.csv", statsHandlers.ExportShareLinkEvents)
			protected.GET("/lightboxes/:id/stats", statsHandlers.GetLightboxStats)

			protected.GET("/notifications", notificationHandlers.List)
			protected.PATCH("/notifications/:id", notificationHandlers.MarkSeen)
		}
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}

	go func() {
		logger.Info("API server starting", zap.String("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("API server failed to start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced to shutdown", zap.Error(err))
	}

	logger.Info("server exiting")
}
