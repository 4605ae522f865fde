package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Store drivers
const (
	StoreDriverPostgres = "postgres"
	StoreDriverMongo    = "mongo"
	StoreDriverMemory   = "memory"
)

// Token strategies
const (
	TokenStrategyJWT    = "jwt"
	TokenStrategyPaseto = "paseto"
)

// Password hashers
const (
	PasswordHasherBcrypt = "bcrypt"
	PasswordHasherArgon2 = "argon2"
)

// Upload backends
const (
	UploadBackendLocal = "local"
	UploadBackendS3    = "s3"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Mongo     MongoConfig
	Redis     RedisConfig
	Auth      AuthConfig
	Uploads   UploadConfig
	Telemetry TelemetryConfig
}

type ServerConfig struct {
	Port            string        `env:"SERVER_PORT" envDefault:"5000"`
	Env             string        `env:"APP_ENV" envDefault:"dev"` // dev or prod
	ReadTimeout     time.Duration `env:"SERVER_READ_TIMEOUT" envDefault:"10s"`
	WriteTimeout    time.Duration `env:"SERVER_WRITE_TIMEOUT" envDefault:"10s"`
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" envDefault:"15s"`
	TrustedOrigins  []string      `env:"TRUSTED_ORIGINS" envDefault:"*" envSeparator:","`
}

type DatabaseConfig struct {
	Driver         string `env:"STORE_DRIVER" envDefault:"postgres"`
	Host           string `env:"DB_HOST" envDefault:"localhost"`
	Port           string `env:"DB_PORT" envDefault:"5432"`
	User           string `env:"DB_USER" envDefault:"postgres"`
	Password       string `env:"DB_PASSWORD" envDefault:"postgres"`
	DBName         string `env:"DB_NAME" envDefault:"accounts"`
	SSLMode        string `env:"DB_SSLMODE" envDefault:"disable"`
	ChannelBinding string `env:"DB_CHANNEL_BINDING"` // "require" for Neon DB, empty for local
	AutoMigrate    bool   `env:"DB_AUTO_MIGRATE" envDefault:"true"`
}

type MongoConfig struct {
	URI        string `env:"MONGO_URI" envDefault:"mongodb://localhost:27017"`
	Database   string `env:"MONGO_DATABASE" envDefault:"accounts"`
	Collection string `env:"MONGO_COLLECTION" envDefault:"users"`
}

type RedisConfig struct {
	Enabled  bool          `env:"REDIS_ENABLED" envDefault:"false"`
	Host     string        `env:"REDIS_HOST" envDefault:"localhost"`
	Port     string        `env:"REDIS_PORT" envDefault:"6379"`
	Password string        `env:"REDIS_PASSWORD"`
	DB       int           `env:"REDIS_DB" envDefault:"0"`
	CacheTTL time.Duration `env:"USERS_CACHE_TTL" envDefault:"30s"`
}

type AuthConfig struct {
	TokenStrategy string `env:"TOKEN_STRATEGY" envDefault:"jwt"`
	JWTSecret     string `env:"JWT_SECRET"`
	// PASETO symmetric key (must be 32 bytes for v4.local)
	PasetoKey string `env:"PASETO_KEY"`

	TokenDuration  time.Duration `env:"TOKEN_TTL" envDefault:"168h"`
	PasswordHasher string        `env:"PASSWORD_HASHER" envDefault:"bcrypt"`
	BcryptCost     int           `env:"BCRYPT_COST" envDefault:"12"`
}

type UploadConfig struct {
	Backend     string `env:"UPLOAD_BACKEND" envDefault:"local"`
	Dir         string `env:"UPLOAD_DIR" envDefault:"uploads/images"`
	MaxBytes    int64  `env:"UPLOAD_MAX_BYTES" envDefault:"5242880"`
	S3Bucket    string `env:"S3_BUCKET"`
	S3Region    string `env:"S3_REGION" envDefault:"us-east-1"`
	S3Endpoint  string `env:"S3_ENDPOINT"`
	S3AccessKey string `env:"S3_ACCESS_KEY"`
	S3SecretKey string `env:"S3_SECRET_KEY"`
}

type TelemetryConfig struct {
	Endpoint    string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	Insecure    bool   `env:"OTEL_INSECURE" envDefault:"false"`
	ServiceName string `env:"SERVICE_NAME" envDefault:"accounts-api"`
}

// Load reads configuration from environment variables.
// A .env file in the working directory is loaded first when present.
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks cross-field constraints that struct tags cannot express.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case StoreDriverPostgres, StoreDriverMongo, StoreDriverMemory:
	default:
		return fmt.Errorf("unsupported STORE_DRIVER %q", c.Database.Driver)
	}

	switch c.Auth.TokenStrategy {
	case TokenStrategyJWT:
		if len(c.Auth.JWTSecret) < 32 {
			return fmt.Errorf("JWT_SECRET must be at least 32 bytes, got %d", len(c.Auth.JWTSecret))
		}
	case TokenStrategyPaseto:
		// Validate PASETO key length (must be 32 bytes for v4.local)
		if len(c.Auth.PasetoKey) != 32 {
			return fmt.Errorf("PASETO_KEY must be exactly 32 bytes, got %d", len(c.Auth.PasetoKey))
		}
	default:
		return fmt.Errorf("unsupported TOKEN_STRATEGY %q", c.Auth.TokenStrategy)
	}

	if c.Auth.TokenDuration <= 0 {
		return errors.New("TOKEN_TTL must be positive")
	}

	switch c.Auth.PasswordHasher {
	case PasswordHasherBcrypt, PasswordHasherArgon2:
	default:
		return fmt.Errorf("unsupported PASSWORD_HASHER %q", c.Auth.PasswordHasher)
	}

	switch c.Uploads.Backend {
	case UploadBackendLocal:
	case UploadBackendS3:
		if c.Uploads.S3Bucket == "" {
			return errors.New("S3_BUCKET is required when UPLOAD_BACKEND=s3")
		}
	default:
		return fmt.Errorf("unsupported UPLOAD_BACKEND %q", c.Uploads.Backend)
	}

	if c.Uploads.MaxBytes <= 0 {
		return errors.New("UPLOAD_MAX_BYTES must be positive")
	}

	return nil
}

func (c *DatabaseConfig) ConnectionString() string {
	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)

	// Add channel_binding if configured (required for Neon DB)
	if c.ChannelBinding != "" {
		connStr += fmt.Sprintf(" channel_binding=%s", c.ChannelBinding)
	}

	return connStr
}

// Address returns Redis connection address (host:port)
func (c *RedisConfig) Address() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// IsDevelopment returns true if the environment is set to dev
func (c *ServerConfig) IsDevelopment() bool {
	return c.Env == "dev"
}
