package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/tosho-dev/tosho-backend/internal/repository"
)

// Config はアプリケーション全体の設定を保持します
type Config struct {
	DB       *repository.DBConfig
	HTTPAddr string
	JWT      struct {
		Secret string
		TTL    time.Duration
	}
	SFN struct {
		TaskToken string
	}
	SchemaPath    string
	EnableTracing bool
}

// Load は環境変数から設定を読み込みます
// .envファイルが存在する場合は先に読み込みます
func Load(taskToken string) (*Config, error) {
	// .envは任意。存在しない場合は環境変数のみで動作する
	if err := godotenv.Load(); err == nil {
		log.Println("Loaded configuration from .env file")
	}

	cfg := &Config{
		DB: &repository.DBConfig{
			Host:     getEnvOrDefault("DB_HOST", "localhost"),
			Port:     getEnvAsIntOrDefault("DB_PORT", 5432),
			UserName: getEnvOrDefault("DB_USERNAME", "toshoapp"),
			Password: getEnvOrDefault("DB_PASSWORD", "password"),
			DBName:   getEnvOrDefault("DB_NAME", "toshoapp"),
		},
		HTTPAddr:   getEnvOrDefault("HTTP_ADDR", ":8080"),
		SchemaPath: getEnvOrDefault("SCHEMA_PATH", ""),
	}

	cfg.JWT.Secret = getEnvOrDefault("JWT_SECRET", "dev_secret_change_me")
	cfg.JWT.TTL = getEnvAsDurationOrDefault("JWT_TTL", 24*time.Hour)
	cfg.SFN.TaskToken = taskToken

	// 環境変数[TOSHO_ENABLE_TRACING]を見てトレースを有効にする。対応しているTracingはAWS_XRAYのみ。
	// 環境変数[AWS_XRAY_SDK_DISABLED]がtrueの場合は必ずトレースを無効にする。
	enableKey := os.Getenv("TOSHO_ENABLE_TRACING")
	if !sdkDisabled() && (strings.ToLower(enableKey) == "true" || enableKey == "1") {
		os.Setenv("AWS_XRAY_SDK_DISABLED", "FALSE")
		cfg.EnableTracing = true
	} else {
		os.Setenv("AWS_XRAY_SDK_DISABLED", "TRUE")
		cfg.EnableTracing = false
	}

	return cfg, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	log.Printf("Environment variable %s is not set, using default value", key)
	return defaultValue
}

func getEnvAsIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// Check if SDK is disabled
func sdkDisabled() bool {
	disableKey := os.Getenv("AWS_XRAY_SDK_DISABLED")
	return strings.ToLower(disableKey) == "true"
}
