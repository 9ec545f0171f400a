package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration
type Config struct {
	// Deployment environment: development, test or production
	Env string

	// Server configuration
	Server ServerConfig

	// Database configuration
	Database DatabaseConfig

	// Identity provider configuration
	Auth AuthConfig

	// Object storage configuration
	Storage StorageConfig

	// Logging configuration
	Log LogConfig
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port            string        `envconfig:"PORT" default:"8080"`
	ReadTimeout     time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `envconfig:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`
	AllowedOrigins  []string      `envconfig:"ALLOWED_ORIGINS" default:"http://localhost:3000"`
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host           string        `envconfig:"DB_HOST" default:"localhost"`
	Port           string        `envconfig:"DB_PORT" default:"5432"`
	User           string        `envconfig:"DB_USER" default:"postgres"`
	Password       string        `envconfig:"DB_PASSWORD" default:"postgres"`
	Name           string        `envconfig:"DB_NAME" default:"portfolio_blog"`
	SSLMode        string        `envconfig:"DB_SSLMODE" default:"disable"`
	MaxOpenConns   int           `envconfig:"DB_MAX_OPEN_CONNS" default:"25"`
	MaxIdleConns   int           `envconfig:"DB_MAX_IDLE_CONNS" default:"5"`
	MaxLifetime    time.Duration `envconfig:"DB_MAX_LIFETIME" default:"5m"`
	MigrationsPath string        `envconfig:"MIGRATIONS_PATH" default:"./migrations"`
}

// AuthConfig holds identity provider settings. ServiceKey is optional;
// without it the admin user endpoints report "admin client not configured".
type AuthConfig struct {
	URL         string `envconfig:"AUTH_URL"`
	AnonKey     string `envconfig:"AUTH_ANON_KEY"`
	ServiceKey  string `envconfig:"AUTH_SERVICE_KEY"`
	JWTSecret   string `envconfig:"AUTH_JWT_SECRET"`
	DefaultRole string `envconfig:"DEFAULT_ROLE" default:"editor"`
}

// StorageConfig holds S3-compatible object storage settings for article images
type StorageConfig struct {
	Endpoint     string `envconfig:"S3_ENDPOINT"`
	Region       string `envconfig:"S3_REGION" default:"us-east-1"`
	Bucket       string `envconfig:"S3_BUCKET"`
	AccessKey    string `envconfig:"S3_ACCESS_KEY"`
	SecretKey    string `envconfig:"S3_SECRET_KEY"`
	PublicURL    string `envconfig:"S3_PUBLIC_URL"`
	MaxImageSize int64  `envconfig:"MAX_IMAGE_SIZE" default:"10485760"` // 10MB
}

// LogConfig holds logging settings
type LogConfig struct {
	Level  string `envconfig:"LOG_LEVEL" default:"info"`
	Format string `envconfig:"LOG_FORMAT" default:"json"` // "json" or "pretty"
}

// Load reads configuration from an optional .env file and the environment
func Load() (*Config, error) {
	// A missing .env file is normal outside local development
	_ = godotenv.Load()

	var app struct {
		Env string `envconfig:"APP_ENV" default:"production"`
	}
	if err := envconfig.Process("", &app); err != nil {
		return nil, fmt.Errorf("failed to read app config: %w", err)
	}

	cfg := &Config{Env: strings.ToLower(strings.TrimSpace(app.Env))}
	sections := []struct {
		name   string
		target interface{}
	}{
		{"server", &cfg.Server},
		{"database", &cfg.Database},
		{"auth", &cfg.Auth},
		{"storage", &cfg.Storage},
		{"log", &cfg.Log},
	}
	for _, s := range sections {
		if err := envconfig.Process("", s.target); err != nil {
			return nil, fmt.Errorf("failed to read %s config: %w", s.name, err)
		}
	}

	// Validate required configuration
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Database.Host == "" {
		return fmt.Errorf("DB_HOST is required")
	}
	if c.Database.Name == "" {
		return fmt.Errorf("DB_NAME is required")
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("AUTH_JWT_SECRET is required")
	}
	if c.IsProduction() && len(c.Auth.JWTSecret) < 32 {
		return fmt.Errorf("AUTH_JWT_SECRET must be at least 32 characters in production")
	}
	switch c.Auth.DefaultRole {
	case "admin", "editor", "viewer":
	default:
		return fmt.Errorf("DEFAULT_ROLE must be one of: admin, editor, viewer")
	}
	return nil
}

// IsDevelopment reports whether internal error details may be returned to callers
func (c *Config) IsDevelopment() bool {
	return c.Env == "development" || c.Env == "dev"
}

// IsProduction reports whether the strict production checks apply
func (c *Config) IsProduction() bool {
	return c.Env == "production" || c.Env == "prod"
}

// AdminConfigured reports whether privileged identity-provider calls are possible
func (c *AuthConfig) AdminConfigured() bool {
	return c.URL != "" && c.ServiceKey != ""
}

// Configured reports whether image uploads can be stored
func (c *StorageConfig) Configured() bool {
	return c.Bucket != "" && c.AccessKey != "" && c.SecretKey != ""
}

// GetDSN returns the PostgreSQL connection string
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}
