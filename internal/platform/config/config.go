package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const minDefaultSecretLength = 16

type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Hive        HiveConfig        `mapstructure:"hive"`
	Webhooks    WebhooksConfig    `mapstructure:"webhooks"`
	RateLimit   RateLimitConfig   `mapstructure:"rate_limit"`
	Logging     LoggingConfig     `mapstructure:"logging"`
	Errors      ErrorsConfig      `mapstructure:"errors"`
	DeliveryLog DeliveryLogConfig `mapstructure:"delivery_log"`
}

type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type HiveConfig struct {
	BaseURL              string        `mapstructure:"base_url"`
	Timeout              time.Duration `mapstructure:"timeout"`
	PageConcurrency      int           `mapstructure:"page_concurrency"`
	OrganizationCacheTTL time.Duration `mapstructure:"organization_cache_ttl"`
}

type WebhooksConfig struct {
	DefaultSecret string        `mapstructure:"default_secret"`
	Timeout       time.Duration `mapstructure:"timeout"`
	UserAgent     string        `mapstructure:"user_agent"`
}

// RateLimitConfig values are requests per minute per client.
type RateLimitConfig struct {
	GlobalPerMinute  int `mapstructure:"global_per_minute"`
	RoadmapPerMinute int `mapstructure:"roadmap_per_minute"`
	WebhookPerMinute int `mapstructure:"webhook_per_minute"`
}

type LoggingConfig struct {
	Level    string `mapstructure:"level"`
	Format   string `mapstructure:"format"`
	Output   string `mapstructure:"output"`
	FilePath string `mapstructure:"file_path"`
}

type ErrorsConfig struct {
	ExposeDetails bool `mapstructure:"expose_details"`
}

type DeliveryLogConfig struct {
	DSN            string        `mapstructure:"dsn"`
	MaxConnections int           `mapstructure:"max_connections"`
	Retention      time.Duration `mapstructure:"retention"`
	PruneInterval  time.Duration `mapstructure:"prune_interval"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8095)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 60*time.Second)
	v.SetDefault("server.idle_timeout", 120*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("hive.base_url", "https://updates.playhive.com")
	v.SetDefault("hive.timeout", 15*time.Second)
	v.SetDefault("hive.page_concurrency", 10)
	v.SetDefault("hive.organization_cache_ttl", 0)

	v.SetDefault("webhooks.default_secret", "")
	v.SetDefault("webhooks.timeout", 5*time.Second)
	v.SetDefault("webhooks.user_agent", "hive-roadmap-api-webhook/1.0")

	v.SetDefault("rate_limit.global_per_minute", 600)
	v.SetDefault("rate_limit.roadmap_per_minute", 60)
	v.SetDefault("rate_limit.webhook_per_minute", 60)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
	v.SetDefault("logging.file_path", "")

	v.SetDefault("errors.expose_details", false)

	v.SetDefault("delivery_log.dsn", ":memory:")
	v.SetDefault("delivery_log.max_connections", 4)
	v.SetDefault("delivery_log.retention", 168*time.Hour)
	v.SetDefault("delivery_log.prune_interval", time.Hour)
}

// Load reads .env (if present), then the optional YAML file at path, then the
// environment. An empty path or a missing file falls back to defaults.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	// PORT is what most hosting platforms inject.
	_ = v.BindEnv("server.port", "SERVER_PORT", "PORT")

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.Is(err, os.ErrNotExist) && !errors.As(err, &notFound) {
				return nil, err
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.Hive.BaseURL == "" {
		return errors.New("hive.base_url is required")
	}
	if c.Webhooks.DefaultSecret != "" && len(c.Webhooks.DefaultSecret) < minDefaultSecretLength {
		return fmt.Errorf("webhooks.default_secret must be at least %d characters", minDefaultSecretLength)
	}
	if c.Hive.Timeout <= 0 {
		return errors.New("hive.timeout must be positive")
	}
	if c.Webhooks.Timeout <= 0 {
		return errors.New("webhooks.timeout must be positive")
	}
	if c.Hive.PageConcurrency < 0 {
		return errors.New("hive.page_concurrency must not be negative")
	}
	return nil
}
