// Package config loads application configuration from the environment.
//
// A .env file is loaded first if present (local development); real
// environments set variables directly. Everything has a development-safe
// default except the JWT secret, which the server refuses to start without.
package config

import (
	"errors"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every tunable the server reads at startup.
type Config struct {
	Port   int
	DBPath string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	JWTSecret  string
	AccessTTL  time.Duration
	RefreshTTL time.Duration

	GoogleClientID string
	AppleClientID  string // the app's bundle/service ID, used as token audience
	KakaoClientID  string

	OAuthTimeout time.Duration
}

// Load reads the environment (and .env, if one exists) into a Config.
func Load(logger *slog.Logger) (*Config, error) {
	if err := godotenv.Load(); err == nil {
		logger.Debug("loaded environment from .env file")
	}

	secret := getEnv("JWT_SECRET", "")
	if secret == "" {
		return nil, errors.New("config: JWT_SECRET must be set")
	}

	cfg := &Config{
		Port:   getEnvAsInt("PORT", 8080, logger),
		DBPath: getEnv("DB_PATH", "data/planner.db"),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0, logger),

		JWTSecret:  secret,
		AccessTTL:  time.Duration(getEnvAsInt("ACCESS_TOKEN_TTL_MINUTES", 15, logger)) * time.Minute,
		RefreshTTL: time.Duration(getEnvAsInt("REFRESH_TOKEN_TTL_DAYS", 14, logger)) * 24 * time.Hour,

		GoogleClientID: getEnv("GOOGLE_CLIENT_ID", ""),
		AppleClientID:  getEnv("APPLE_CLIENT_ID", ""),
		KakaoClientID:  getEnv("KAKAO_CLIENT_ID", ""),

		OAuthTimeout: time.Duration(getEnvAsInt("OAUTH_TIMEOUT_SECONDS", 5, logger)) * time.Second,
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int, logger *slog.Logger) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		logger.Warn("invalid integer in environment, using default",
			slog.String("key", key),
			slog.String("value", valueStr),
			slog.Int("default", defaultValue),
		)
		return defaultValue
	}
	return value
}
