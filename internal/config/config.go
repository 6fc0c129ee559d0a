package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Telegram Telegram `mapstructure:"telegram"`
	Logger   Logger   `mapstructure:"logger"`
	Server   Server   `mapstructure:"server"`
	Database Database `mapstructure:"database"`
}

// Telegram holds the configuration for the Telegram Bot API.
type Telegram struct {
	Token          string  `mapstructure:"token"`
	APIURL         string  `mapstructure:"api_url"`
	WebhookURL     string  `mapstructure:"webhook_url"`
	RateLimit      float64 `mapstructure:"rate_limit"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst"`
	TimeoutSeconds int     `mapstructure:"timeout_seconds"`
}

// Server holds the configuration for the webhook server.
type Server struct {
	Port        int    `mapstructure:"port"`
	WebhookPath string `mapstructure:"webhook_path"`
}

// Database holds the configuration for the trade ledger.
type Database struct {
	Driver string `mapstructure:"driver"` // "sqlite" or "postgres"
	DSN    string `mapstructure:"dsn"`
}

// Logger holds the configuration for the logger.
type Logger struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ErrMissingToken is returned by Validate when no bot token is configured.
var ErrMissingToken = errors.New("telegram token is not set (TELEGRAM_BOT_TOKEN)")

// LoadConfig reads configuration from a .env file, the config file in path and
// environment variables, in increasing order of precedence. A missing config
// file is not an error: hosted deployments usually configure through env only.
func LoadConfig(path string) (config Config, err error) {
	// .env is optional
	_ = godotenv.Load()

	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yml")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	if err = v.BindEnv("telegram.token", "TELEGRAM_BOT_TOKEN", "TELEGRAM_TOKEN"); err != nil {
		return
	}

	setDefaults(v)

	if err = v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			err = fmt.Errorf("failed to read config: %w", err)
			return
		}
		err = nil
	}

	err = v.Unmarshal(&config)
	return
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("telegram.api_url", "https://api.telegram.org")
	v.SetDefault("telegram.rate_limit", 30) // messages per second
	v.SetDefault("telegram.rate_limit_burst", 5)
	v.SetDefault("telegram.timeout_seconds", 10)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.webhook_path", "/webhook")
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "/tmp/trades.db")
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "json")
}

// Validate checks the settings required to talk to Telegram.
func (c Config) Validate() error {
	if c.Telegram.Token == "" {
		return ErrMissingToken
	}
	return nil
}
