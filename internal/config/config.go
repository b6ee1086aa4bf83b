package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config keeps runtime settings for the server.
type Config struct {
	Environment       string `mapstructure:"ENVIRONMENT"`
	ServerPort        string `mapstructure:"SERVER_PORT"`
	DatabaseURL       string `mapstructure:"DATABASE_URL"`
	JWTSecret         string `mapstructure:"JWT_SECRET"`
	InternalAuthToken string `mapstructure:"INTERNAL_AUTH_TOKEN"`

	// TelegramToken is optional; notifications are only logged without it.
	TelegramToken       string `mapstructure:"TELEGRAM_TOKEN"`
	DigestIntervalHours int    `mapstructure:"DIGEST_INTERVAL_HOURS"`

	// DigestAt (HH:MM) sends one digest a day instead of every interval.
	DigestAt string `mapstructure:"DIGEST_AT"`

	LogDir string `mapstructure:"LOG_DIR"`
}

var defaults = map[string]interface{}{
	"ENVIRONMENT":           "development",
	"SERVER_PORT":           "8080",
	"DATABASE_URL":          "hunnydu.db",
	"JWT_SECRET":            "",
	"INTERNAL_AUTH_TOKEN":   "",
	"TELEGRAM_TOKEN":        "",
	"DIGEST_INTERVAL_HOURS": 12,
	"DIGEST_AT":             "",
	"LOG_DIR":               "logs",
}

// Load reads an optional .env file in dir, then the environment, with sane defaults.
func Load(dir string) (Config, error) {
	v := viper.New()
	v.AddConfigPath(dir)
	v.SetConfigName(".env")
	v.SetConfigType("env")
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.TelegramToken = strings.TrimSpace(cfg.TelegramToken)

	if cfg.JWTSecret == "" {
		return cfg, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.InternalAuthToken == "" {
		return cfg, fmt.Errorf("INTERNAL_AUTH_TOKEN is required")
	}
	return cfg, nil
}

func (c Config) IsProduction() bool {
	return c.Environment == "production"
}

// DigestInterval is zero when digests are disabled.
func (c Config) DigestInterval() time.Duration {
	if c.DigestIntervalHours <= 0 {
		return 0
	}
	return time.Duration(c.DigestIntervalHours) * time.Hour
}
