package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Content   ContentConfig   `mapstructure:"content"`
	Gallery   GalleryConfig   `mapstructure:"gallery"`
	Downloads DownloadsConfig `mapstructure:"downloads"`
	Forms     FormsConfig     `mapstructure:"forms"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Log       LogConfig       `mapstructure:"log"`
}

type ServerConfig struct {
	Port            int    `mapstructure:"port"`
	Host            string `mapstructure:"host"`
	ShutdownTimeout int    `mapstructure:"shutdown_timeout"`
}

// ContentConfig describes the hosted content API
type ContentConfig struct {
	ProjectID            string `mapstructure:"project_id"`
	Dataset              string `mapstructure:"dataset"`
	APIVersion           string `mapstructure:"api_version"`
	Token                string `mapstructure:"token"`
	Timeout              int    `mapstructure:"timeout"`
	MaxRequestsPerSecond int    `mapstructure:"max_requests_per_second"`
	CircuitBreakerDelay  int    `mapstructure:"circuit_breaker_delay"`

	// BaseURL overrides the host derived from ProjectID (used against local fakes).
	BaseURL string `mapstructure:"base_url"`
}

type GalleryConfig struct {
	PageSize         int `mapstructure:"page_size"`
	IncrementTimeout int `mapstructure:"increment_timeout"`
}

// DownloadsConfig selects how remote download increments are issued
type DownloadsConfig struct {
	Mode       string `mapstructure:"mode"` // "direct" or "queue"
	MaxWorkers int    `mapstructure:"max_workers"`
}

type FormsConfig struct {
	SuccessPath string `mapstructure:"success_path"`
	ForwardURL  string `mapstructure:"forward_url"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Name     string `mapstructure:"name"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
}

// RedisConfig holds Redis connection details
type RedisConfig struct {
	Host          string `mapstructure:"host"`
	Port          int    `mapstructure:"port"`
	Password      string `mapstructure:"password"`
	Database      int    `mapstructure:"database"`
	ConsumerGroup string `mapstructure:"consumer_group"`
	MinIdleTime   int    `mapstructure:"min_idle_time"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // "text" or "json"
}

const (
	DownloadModeDirect = "direct"
	DownloadModeQueue  = "queue"
)

// Load loads configuration from YAML file with environment variable overrides.
// A missing config.yaml is not an error: defaults and environment still apply.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	setDefaults(v)

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	return decode(v)
}

func decode(v *viper.Viper) (*Config, error) {
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate reports the first setting that would make the application unusable
func (c *Config) Validate() error {
	if c.Content.ProjectID == "" && c.Content.BaseURL == "" {
		return fmt.Errorf("content.project_id is required")
	}
	if c.Content.MaxRequestsPerSecond <= 0 {
		return fmt.Errorf("content.max_requests_per_second must be positive, got %d", c.Content.MaxRequestsPerSecond)
	}
	if c.Gallery.PageSize <= 0 {
		return fmt.Errorf("gallery.page_size must be positive, got %d", c.Gallery.PageSize)
	}
	switch c.Downloads.Mode {
	case DownloadModeDirect, DownloadModeQueue:
	default:
		return fmt.Errorf("downloads.mode must be %q or %q, got %q", DownloadModeDirect, DownloadModeQueue, c.Downloads.Mode)
	}
	if c.Downloads.MaxWorkers <= 0 {
		return fmt.Errorf("downloads.max_workers must be positive, got %d", c.Downloads.MaxWorkers)
	}
	return nil
}

func (c ContentConfig) RequestTimeout() time.Duration {
	return time.Duration(c.Timeout) * time.Second
}

func (c GalleryConfig) IncrementTimeoutDuration() time.Duration {
	return time.Duration(c.IncrementTimeout) * time.Second
}

func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		c.Host, c.Port, c.User, c.Password, c.Name)
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.shutdown_timeout", 15)

	v.SetDefault("content.project_id", "")
	v.SetDefault("content.dataset", "production")
	v.SetDefault("content.api_version", "2024-01-01")
	v.SetDefault("content.token", "")
	v.SetDefault("content.timeout", 30)
	v.SetDefault("content.max_requests_per_second", 25)
	v.SetDefault("content.circuit_breaker_delay", 60)
	v.SetDefault("content.base_url", "")

	v.SetDefault("gallery.page_size", 12)
	v.SetDefault("gallery.increment_timeout", 10)

	v.SetDefault("downloads.mode", DownloadModeDirect)
	v.SetDefault("downloads.max_workers", 4)

	v.SetDefault("forms.success_path", "/thank-you")
	v.SetDefault("forms.forward_url", "")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "storefront")
	v.SetDefault("database.user", "storefront_user")
	v.SetDefault("database.password", "storefront_pass")

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.database", 0)
	v.SetDefault("redis.consumer_group", "storefront_downloads")
	v.SetDefault("redis.min_idle_time", 120)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}
