package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const defaultReapInterval = 15 * time.Second

// Config holds all runtime configuration for the application.
type Config struct {
	DatabasePath string
	JWTSecretKey string
	ServerPort   int
	ReapInterval time.Duration
}

// Load reads configuration from environment variables, optionally picking up
// a .env file for local development.
func Load() (*Config, error) {
	_ = godotenv.Load()

	dbPath := os.Getenv("DATABASE_PATH")
	if dbPath == "" {
		dbPath = "./database/transcendence.db"
	}

	jwtKey := os.Getenv("JWT_SECRET_KEY")
	if jwtKey == "" {
		return nil, fmt.Errorf("JWT_SECRET_KEY environment variable is not set")
	}

	portStr := os.Getenv("SERVER_PORT")
	if portStr == "" {
		portStr = "8080"
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT environment variable: %w", err)
	}
	if port <= 0 || port > 65535 {
		return nil, fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", port)
	}

	reapInterval := defaultReapInterval
	if intervalStr := os.Getenv("REAP_INTERVAL_SECONDS"); intervalStr != "" {
		seconds, err := strconv.Atoi(intervalStr)
		if err != nil || seconds <= 0 {
			return nil, fmt.Errorf("invalid REAP_INTERVAL_SECONDS environment variable: %q", intervalStr)
		}
		reapInterval = time.Duration(seconds) * time.Second
	}

	return &Config{
		DatabasePath: dbPath,
		JWTSecretKey: jwtKey,
		ServerPort:   port,
		ReapInterval: reapInterval,
	}, nil
}
