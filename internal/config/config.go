// Package config loads application configuration from environment
// variables.  Required values are enforced with must(); optional ones
// fall back to defaults suitable for local development.
package config

import (
	"log"
	"os"
	"strconv"
	"time"
)

// Config holds all runtime configuration.  Each field corresponds to
// an environment variable.
type Config struct {
	Env  string // application environment (e.g. "dev", "prod")
	Port string // HTTP port to listen on

	DBUser string
	DBPass string // optional
	DBHost string
	DBPort string
	DBName string

	JWTSecret string // shared secret for verifying staff/admin tokens

	AMQPURL    string // RabbitMQ URL for the event forwarder; empty disables it
	EventQueue string // queue the forwarder publishes into

	PriceLookupTimeout time.Duration // bound on catalog price resolution during order placement
	RetryBackoff       time.Duration // pause before the single transient-store retry
	HubBuffer          int           // per-subscriber event buffer
	CatalogCacheTTL    time.Duration // Redis TTL for cached catalog responses
}

// Load reads configuration values from environment variables and
// returns a Config.  Missing required variables cause the program to
// exit with a fatal log message.
func Load() Config {
	return Config{
		Env:                getenv("APP_ENV", "dev"),
		Port:               getenv("APP_PORT", "8080"),
		DBUser:             must("DB_USER"),
		DBPass:             os.Getenv("DB_PASS"), // empty allowed
		DBHost:             must("DB_HOST"),
		DBPort:             must("DB_PORT"),
		DBName:             must("DB_NAME"),
		JWTSecret:          must("JWT_SECRET"),
		AMQPURL:            os.Getenv("AMQP_URL"),
		EventQueue:         getenv("EVENT_QUEUE", "restaurant.events"),
		PriceLookupTimeout: getdur("PRICE_LOOKUP_TIMEOUT", 2*time.Second),
		RetryBackoff:       getdur("STORE_RETRY_BACKOFF", 100*time.Millisecond),
		HubBuffer:          getint("HUB_BUFFER", 64),
		CatalogCacheTTL:    getdur("CATALOG_CACHE_TTL", 30*time.Second),
	}
}

// must retrieves the value of a required environment variable.  If
// the variable is unset or empty, the application logs a fatal error
// and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getint(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, v)
	}
	return n
}

func getdur(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Fatalf("invalid duration for %s: %q", key, v)
	}
	return d
}
