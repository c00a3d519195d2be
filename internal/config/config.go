package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	// Server
	Port        string
	Environment string

	// Redis
	RedisURL string

	// NATS
	NATSURL string

	// Services
	ProductsServiceURL string
	OrdersServiceURL   string

	// Sessions
	SessionTTL           time.Duration
	SessionSweepInterval time.Duration

	// Catalog cache
	CatalogCacheTTL time.Duration
}

func Load() *Config {
	return &Config{
		Port:        getEnv("PORT", "8093"),
		Environment: getEnv("ENVIRONMENT", "development"),

		RedisURL: getEnv("REDIS_URL", "redis://redis.redis-marketplace.svc.cluster.local:6379/0"),
		NATSURL:  os.Getenv("NATS_URL"),

		ProductsServiceURL: getEnv("PRODUCTS_SERVICE_URL", "http://products-service:8080"),
		OrdersServiceURL:   getEnv("ORDERS_SERVICE_URL", "http://orders-service:8080"),

		SessionTTL:           time.Duration(getMinutes("SESSION_TTL_MINUTES", 30)) * time.Minute,
		SessionSweepInterval: time.Duration(getMinutes("SESSION_SWEEP_INTERVAL_MINUTES", 5)) * time.Minute,
		CatalogCacheTTL:      time.Duration(getMinutes("CATALOG_CACHE_TTL_MINUTES", 10)) * time.Minute,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getMinutes(key string, defaultMinutes int) int {
	if value := os.Getenv(key); value != "" {
		if minutes, err := strconv.Atoi(value); err == nil && minutes > 0 {
			return minutes
		}
	}
	return defaultMinutes
}
