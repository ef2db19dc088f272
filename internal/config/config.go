package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"
)

type Config struct {
	AppEnv            string
	AppName           string
	AppPort           string
	MetricsPort       string
	CoordinatorURL    string
	GatewayID         string
	JWTSecret         string
	LogLevel          string
	WSAllowedOrigins  string
	RedisHost         string
	RedisPort         string
	RedisPassword     string
	RedisDB           int
	RedisPoolSize     int
	RedisMinIdleConns int
	RedisMaxRetries   int
	ProfileCacheTTL   time.Duration
}

func Load() (*Config, error) {
	cfg := &Config{
		AppEnv:           os.Getenv("APP_ENV"),
		AppName:          os.Getenv("APP_NAME"),
		AppPort:          os.Getenv("APP_PORT"),
		MetricsPort:      os.Getenv("METRICS_PORT"),
		CoordinatorURL:   os.Getenv("COORDINATOR_URL"),
		GatewayID:        os.Getenv("GATEWAY_ID"),
		JWTSecret:        os.Getenv("JWT_SECRET"),
		LogLevel:         os.Getenv("LOG_LEVEL"),
		WSAllowedOrigins: os.Getenv("WS_ALLOWED_ORIGINS"),
		RedisHost:        os.Getenv("REDIS_HOST"),
		RedisPort:        os.Getenv("REDIS_PORT"),
		RedisPassword:    os.Getenv("REDIS_PASSWORD"),
	}
	if cfg.AppName == "" {
		cfg.AppName = "quizgate"
	}
	if cfg.AppPort == "" {
		cfg.AppPort = "8090"
	}
	if cfg.MetricsPort == "" {
		cfg.MetricsPort = "9090"
	}
	if cfg.GatewayID == "" {
		cfg.GatewayID = uuid.NewString()
	}
	if cfg.RedisPort == "" {
		cfg.RedisPort = "6379"
	}
	cfg.ProfileCacheTTL = 5 * time.Minute
	var err error
	if v := os.Getenv("PROFILE_CACHE_TTL"); v != "" {
		cfg.ProfileCacheTTL, err = time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid PROFILE_CACHE_TTL: %w", err)
		}
	}
	if v := os.Getenv("REDIS_DB"); v != "" {
		cfg.RedisDB, err = strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
		}
	}
	if v := os.Getenv("REDIS_POOL_SIZE"); v != "" {
		cfg.RedisPoolSize, err = strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid REDIS_POOL_SIZE: %w", err)
		}
	}
	if v := os.Getenv("REDIS_MIN_IDLE_CONNS"); v != "" {
		cfg.RedisMinIdleConns, err = strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid REDIS_MIN_IDLE_CONNS: %w", err)
		}
	}
	if v := os.Getenv("REDIS_MAX_RETRIES"); v != "" {
		cfg.RedisMaxRetries, err = strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid REDIS_MAX_RETRIES: %w", err)
		}
	}
	if cfg.CoordinatorURL == "" || cfg.JWTSecret == "" {
		return nil, fmt.Errorf("missing required environment variables")
	}
	return cfg, nil
}
