// Package config loads service settings from the environment, an optional
// .env file and an optional config file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"go-realtime-template/internal/infrastructure/logger"
)

var ErrInsecureSecret = errors.New("JWT_SECRET_KEY must be set to a strong value in production")

var insecureSecrets = map[string]struct{}{
	"":                  {},
	"dev-secret":        {},
	"change-me-in-prod": {},
}

type Config struct {
	Environment string `mapstructure:"environment" validate:"required"`
	HTTPAddr    string `mapstructure:"http_addr" validate:"required"`
	DatabaseURL string `mapstructure:"database_url" validate:"required"`

	JWTSecretKey             string `mapstructure:"jwt_secret_key"`
	JWTAlgorithm             string `mapstructure:"jwt_algorithm" validate:"oneof=HS256 HS384 HS512"`
	AccessTokenExpireMinutes int    `mapstructure:"access_token_expire_minutes" validate:"min=1"`
	PasswordHashCost         int    `mapstructure:"password_hash_cost" validate:"min=0,max=31"`

	LogLevel    string `mapstructure:"log_level"`
	LogFormat   string `mapstructure:"log_format" validate:"oneof=json text console"`
	LogOutput   string `mapstructure:"log_output" validate:"oneof=stdout stderr file discard"`
	LogFilePath string `mapstructure:"log_file_path" validate:"required_if=LogOutput file"`

	RealtimeRedisURL     string `mapstructure:"realtime_redis_url"`
	RealtimeRedisChannel string `mapstructure:"realtime_redis_channel" validate:"required"`
	SSEKeepaliveSeconds  int    `mapstructure:"sse_keepalive_seconds" validate:"min=1"`
	SSEQueueSize         int    `mapstructure:"sse_queue_size" validate:"min=1"`

	ShutdownTimeoutSeconds int `mapstructure:"shutdown_timeout_seconds" validate:"min=1"`
}

var defaults = map[string]any{
	"environment":                 "local",
	"http_addr":                   ":8080",
	"database_url":                "sqlite://app.db",
	"jwt_secret_key":              "dev-secret",
	"jwt_algorithm":               "HS256",
	"access_token_expire_minutes": 60,
	"password_hash_cost":          0,
	"log_level":                   "INFO",
	"log_format":                  "console",
	"log_output":                  "stdout",
	"log_file_path":               "",
	"realtime_redis_url":          "",
	"realtime_redis_channel":      "realtime:events",
	"sse_keepalive_seconds":       15,
	"sse_queue_size":              100,
	"shutdown_timeout_seconds":    5,
}

// Load reads .env (when present) and the optional config file at path, then
// overlays environment variables. Environment variables always win.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			return nil, fmt.Errorf("load .env: %w", err)
		}
	}

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.RealtimeRedisURL = strings.TrimSpace(cfg.RealtimeRedisURL)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if _, err := logger.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.IsProduction() {
		if _, weak := insecureSecrets[c.JWTSecretKey]; weak {
			return ErrInsecureSecret
		}
	}
	return nil
}

func (c *Config) IsProduction() bool {
	env := strings.ToLower(c.Environment)
	return env == "prod" || env == "production"
}

func (c *Config) AccessTokenTTL() time.Duration {
	return time.Duration(c.AccessTokenExpireMinutes) * time.Minute
}

func (c *Config) SSEKeepalive() time.Duration {
	return time.Duration(c.SSEKeepaliveSeconds) * time.Second
}

func (c *Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.ShutdownTimeoutSeconds) * time.Second
}

// LoggerConfig maps the logging settings onto the logger package.
func (c *Config) LoggerConfig() (*logger.Config, error) {
	return logger.NewConfig(c.LogLevel, c.LogFormat, c.LogOutput, c.LogFilePath, c.Environment)
}
