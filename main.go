package main

import (
	"os"
	"time"

	"birdhouse-viewer/be/config"
	"birdhouse-viewer/be/database"
	"birdhouse-viewer/be/handlers"
	"birdhouse-viewer/be/logs"
	"birdhouse-viewer/be/middleware"
	"birdhouse-viewer/be/services"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		logs.Logger.Info("No .env file found, using environment variables")
	}

	// Load configuration
	cfg := config.Load()
	logs.Init(cfg.Logging.Level, cfg.Logging.Format)

	// Initialize database
	db, err := database.Initialize(cfg.Database)
	if err != nil {
		logs.Logger.Fatalf("Failed to initialize database: %v", err)
	}

	sessionDuration, err := time.ParseDuration(cfg.Session.Duration)
	if err != nil {
		logs.Logger.Warnf("Invalid SESSION_DURATION %q, using 60s", cfg.Session.Duration)
		sessionDuration = 60 * time.Second
	}

	// Core services
	accessService := services.NewAccessService(db)
	sharingService := services.NewSharingService(db, accessService)
	sessionService := services.NewSessionService(db, accessService, sessionDuration)
	pushSender := services.NewWebPushSender(cfg.Push)
	notificationService := services.NewNotificationService(db, sharingService, pushSender)
	streamHub := services.NewStreamHub()
	videoStore := services.NewFileVideoStore(cfg.Video.StoragePath)
	identityProvider := services.NewGoogleProvider(cfg.OAuth)

	// Device ingest over MQTT
	mqttService := services.NewMQTTService(cfg.MQTT, db, notificationService, streamHub)
	if err := mqttService.Connect(); err != nil {
		logs.Logger.Fatalf("Failed to connect to MQTT broker: %v", err)
	}
	defer mqttService.Disconnect()

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(db, identityProvider, cfg.JWT)
	deviceHandler := handlers.NewDeviceHandler(db, accessService)
	shareHandler := handlers.NewShareHandler(sharingService)
	sessionHandler := handlers.NewSessionHandler(sessionService)
	subscriptionHandler := handlers.NewSubscriptionHandler(db, notificationService)
	streamHandler := handlers.NewStreamHandler(db, accessService, sessionService, streamHub)
	videoHandler := handlers.NewVideoHandler(db, accessService, videoStore)

	// Setup router
	router := setupRouter(authHandler, deviceHandler, shareHandler, sessionHandler,
		subscriptionHandler, streamHandler, videoHandler, cfg)

	// Start server
	port := cfg.Server.Port
	if port == "" {
		port = "8080"
	}

	logs.Logger.Infof("Server starting on port %s", port)
	if err := router.Run(":" + port); err != nil {
		logs.Logger.Fatalf("Failed to start server: %v", err)
	}
}

func setupRouter(
	authHandler *handlers.AuthHandler,
	deviceHandler *handlers.DeviceHandler,
	shareHandler *handlers.ShareHandler,
	sessionHandler *handlers.SessionHandler,
	subscriptionHandler *handlers.SubscriptionHandler,
	streamHandler *handlers.StreamHandler,
	videoHandler *handlers.VideoHandler,
	cfg *config.Config,
) *gin.Engine {
	// Set Gin mode
	if os.Getenv("GIN_MODE") == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()

	// CORS configuration
	// Allow all localhost origins for development
	router.Use(cors.New(cors.Config{
		AllowOriginFunc: func(origin string) bool {
			if origin == "" {
				return true
			}
			return origin == "http://localhost:8080" ||
				origin == "http://localhost:5173" ||
				origin == "http://localhost:3000" ||
				origin == "http://127.0.0.1:8080" ||
				origin == "http://127.0.0.1:5173" ||
				origin == "http://127.0.0.1:3000"
		},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           12 * 3600, // 12 hours
	}))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Public routes
	api := router.Group("/api/v1")
	{
		auth := api.Group("/auth")
		{
			auth.POST("/login", authHandler.Login)
		}
	}

	// Protected routes
	protected := api.Group("")
	protected.Use(middleware.AuthMiddleware(cfg.JWT.Secret))
	{
		// Auth routes
		protected.GET("/auth/me", authHandler.GetMe)
		protected.POST("/auth/logout", authHandler.Logout)

		// Device routes
		devices := protected.Group("/devices")
		{
			devices.GET("", deviceHandler.GetDevices)
			devices.POST("", deviceHandler.RegisterDevice)
			devices.GET("/:id", deviceHandler.GetDevice)
			devices.PUT("/:id", deviceHandler.UpdateDevice)
			devices.DELETE("/:id", deviceHandler.DeleteDevice)

			// Sharing
			devices.GET("/:id/shares", shareHandler.ListShares)
			devices.POST("/:id/shares", shareHandler.CreateShare)
			devices.DELETE("/:id/shares/:userId", shareHandler.DeleteShare)

			// Stream sessions
			devices.GET("/:id/session", sessionHandler.GetActiveSession)
			devices.POST("/:id/session", sessionHandler.StartSession)

			// Live stream (WebSocket; token via ?token=)
			devices.GET("/:id/live", streamHandler.LiveStream)

			// Motion videos
			devices.GET("/:id/videos", videoHandler.ListVideos)
		}

		protected.DELETE("/sessions/:id", sessionHandler.StopSession)
		protected.GET("/videos/:id", videoHandler.GetVideo)

		// Push notifications
		notifications := protected.Group("/notifications")
		{
			notifications.POST("/subscribe", subscriptionHandler.Subscribe)
			notifications.POST("/unsubscribe", subscriptionHandler.Unsubscribe)
		}

		protected.POST("/admin/broadcast", subscriptionHandler.Broadcast)
	}

	return router
}
