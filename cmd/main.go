package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"configurator-service/internal/clients"
	"configurator-service/internal/config"
	"configurator-service/internal/events"
	"configurator-service/internal/handlers"
	"configurator-service/internal/middleware"
	"configurator-service/internal/repository"
	"configurator-service/internal/services"
)

// @title Product Configurator API
// @version 1.0.0
// @description Product configuration and pricing resolution service for custom-print storefronts

// @contact.name Configurator API Support
// @contact.url http://www.example.com/support
// @contact.email support@example.com

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8093
// @BasePath /api/v1

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	cfg := config.Load()

	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	if cfg.Environment == "production" {
		logger.SetLevel(logrus.InfoLevel)
	} else {
		logger.SetLevel(logrus.DebugLevel)
	}

	// Initialize Redis client for descriptor caching
	var redisClient *redis.Client
	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Printf("WARNING: Failed to parse Redis URL: %v (continuing without cache)", err)
	} else {
		redisClient = redis.NewClient(redisOpts)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Printf("WARNING: Failed to connect to Redis: %v (caching will be disabled)", err)
			redisClient = nil
		} else {
			log.Println("✓ Redis connected successfully")
		}
		cancel()
	}

	// Initialize clients
	catalogClient := clients.NewCatalogClient(cfg.ProductsServiceURL, redisClient, cfg.CatalogCacheTTL, logger)
	cartClient := clients.NewCartClient(cfg.OrdersServiceURL, logger)

	// Initialize event publisher only if NATS_URL is set
	var publisher *events.Publisher
	if cfg.NATSURL != "" {
		publisher, err = events.NewPublisher(cfg.NATSURL, logger)
		if err != nil {
			log.Printf("WARNING: Failed to initialize events publisher: %v (continuing without event publishing)", err)
		} else {
			log.Println("✓ Events publisher initialized (NATS connected)")
		}
	} else {
		log.Println("NATS_URL not set, skipping event publishing initialization")
	}
	defer publisher.Close()

	// Session store and configurator service. The store's eviction hook
	// releases the per-session compiled rule sets.
	var configuratorService *services.ConfiguratorService
	sessionStore := repository.NewSessionStore(cfg.SessionTTL, func(sessionID string) {
		if configuratorService != nil {
			configuratorService.DropSessionRules(sessionID)
		}
	}, logger)
	configuratorService = services.NewConfiguratorService(sessionStore, catalogClient, cartClient, publisher, logger)

	stopSweeper := make(chan struct{})
	sessionStore.StartSweeper(cfg.SessionSweepInterval, stopSweeper)

	// Subscribe to product events to invalidate cached descriptors
	subscriberCtx, cancelSubscriber := context.WithCancel(context.Background())
	defer cancelSubscriber()
	if cfg.NATSURL != "" {
		subscriber, err := events.NewProductSubscriber(cfg.NATSURL, configuratorService, logger)
		if err != nil {
			log.Printf("WARNING: Failed to initialize product subscriber: %v (cache invalidation disabled)", err)
		} else if err := subscriber.Start(subscriberCtx); err != nil {
			log.Printf("WARNING: Failed to start product subscriber: %v", err)
		}
	}

	configuratorHandler := handlers.NewConfiguratorHandler(configuratorService)

	// Initialize Gin router
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS())

	// Health check endpoints (no tenant required)
	router.GET("/health", handlers.HealthCheck)
	router.GET("/ready", handlers.ReadyCheck(redisClient))

	// Public storefront endpoints: tenant context only, no auth
	api := router.Group("/api/v1")
	api.Use(middleware.TenantMiddleware())
	{
		sessions := api.Group("/configurator/sessions")
		{
			sessions.POST("", configuratorHandler.StartSession)
			sessions.GET("/:id", configuratorHandler.GetSession)
			sessions.PUT("/:id/option", configuratorHandler.SetOption)
			sessions.PUT("/:id/material", configuratorHandler.SetMaterial)
			sessions.PUT("/:id/print-method", configuratorHandler.SetPrintMethod)
			sessions.PUT("/:id/finishing", configuratorHandler.SetFinishing)
			sessions.PUT("/:id/quantity", configuratorHandler.SetQuantity)
			sessions.PUT("/:id/dimension", configuratorHandler.SetDimension)
			sessions.POST("/:id/validate", configuratorHandler.Validate)
			sessions.POST("/:id/commit", configuratorHandler.Commit)
			sessions.GET("/:id/upsells", configuratorHandler.Upsells)
			sessions.DELETE("/:id", configuratorHandler.DeleteSession)
		}
	}

	// Swagger documentation
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Graceful shutdown handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("Configurator service starting on port %s", cfg.Port)
		if err := router.Run(":" + cfg.Port); err != nil {
			log.Fatal("Failed to start server:", err)
		}
	}()

	<-quit
	log.Println("Shutting down configurator-service...")
	close(stopSweeper)
	cancelSubscriber()
	log.Println("Configurator service stopped")
}
