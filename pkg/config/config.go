package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// Upload backends
const (
	UploadBackendLocal = "local"
	UploadBackendS3    = "s3"
)

// ServerConfig holds server configuration
type ServerConfig struct {
	Port               string
	Env                string
	ShutdownTimeout    time.Duration
	CORSAllowedOrigins []string
}

// MongoConfig holds document store configuration
type MongoConfig struct {
	URI            string
	Database       string
	ConnectTimeout time.Duration
	MaxPoolSize    uint64
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	SigningKey string
	Expiration time.Duration
	Issuer     string
}

// PasswordConfig holds password hashing configuration
type PasswordConfig struct {
	BcryptCost int
}

// UploadConfig holds file upload configuration
type UploadConfig struct {
	Backend     string
	Dir         string
	MaxBytes    int64
	S3Bucket    string
	S3Region    string
	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string
}

// MetricsConfig holds metrics configuration
type MetricsConfig struct {
	Prefix string
}

// Config holds all configuration
type Config struct {
	ServiceName string
	Server      ServerConfig
	Mongo       MongoConfig
	JWT         JWTConfig
	Password    PasswordConfig
	Upload      UploadConfig
	Log         LogConfig
	Metrics     MetricsConfig
}

// Load loads configuration from an optional .env file and environment variables
func Load() (*Config, error) {
	// .env file is optional
	if err := godotenv.Load(); err != nil {
		fmt.Printf("Warning: .env file not found, using environment variables\n")
	}

	config := &Config{
		ServiceName: getEnv("SERVICE_NAME", "catalog-service"),
		Server: ServerConfig{
			Port:               getEnv("SERVER_PORT", "2500"),
			Env:                getEnv("APP_ENV", "development"),
			ShutdownTimeout:    getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
			CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"*"}),
		},
		Mongo: MongoConfig{
			URI:            getEnv("MONGODB_URL", ""),
			Database:       getEnv("MONGODB_DATABASE", "catalog"),
			ConnectTimeout: getEnvAsDuration("MONGODB_CONNECT_TIMEOUT", 10*time.Second),
			MaxPoolSize:    uint64(getEnvAsInt("MONGODB_MAX_POOL_SIZE", 100)),
		},
		JWT: JWTConfig{
			SigningKey: getEnv("JWT_SECRET_KEY", ""),
			Expiration: time.Duration(getEnvAsInt("JWT_ACCESS_TOKEN_EXPIRE_MINUTES", 30)) * time.Minute,
			Issuer:     getEnv("JWT_ISSUER", "catalog-service"),
		},
		Password: PasswordConfig{
			BcryptCost: getEnvAsInt("BCRYPT_COST", bcrypt.DefaultCost),
		},
		Upload: UploadConfig{
			Backend:     strings.ToLower(getEnv("UPLOAD_BACKEND", UploadBackendLocal)),
			Dir:         getEnv("UPLOAD_DIR", "uploads"),
			MaxBytes:    getEnvAsInt64("UPLOAD_MAX_BYTES", 10<<20),
			S3Bucket:    getEnv("UPLOAD_S3_BUCKET", ""),
			S3Region:    getEnv("UPLOAD_S3_REGION", "us-east-1"),
			S3Endpoint:  getEnv("UPLOAD_S3_ENDPOINT", ""),
			S3AccessKey: getEnv("UPLOAD_S3_ACCESS_KEY", ""),
			S3SecretKey: getEnv("UPLOAD_S3_SECRET_KEY", ""),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Metrics: MetricsConfig{
			Prefix: getEnv("METRICS_PREFIX", "catalog"),
		},
	}

	if err := config.validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func (c *Config) validate() error {
	var err error
	if c.Mongo.URI == "" {
		err = multierr.Append(err, errors.New("MONGODB_URL is required"))
	}
	if c.JWT.SigningKey == "" {
		err = multierr.Append(err, errors.New("JWT_SECRET_KEY is required"))
	}
	if c.JWT.Expiration <= 0 {
		err = multierr.Append(err, errors.New("JWT_ACCESS_TOKEN_EXPIRE_MINUTES must be positive"))
	}
	switch c.Upload.Backend {
	case UploadBackendLocal:
	case UploadBackendS3:
		if c.Upload.S3Bucket == "" {
			err = multierr.Append(err, errors.New("UPLOAD_S3_BUCKET is required for the s3 upload backend"))
		}
	default:
		err = multierr.Append(err, fmt.Errorf("unknown UPLOAD_BACKEND %q", c.Upload.Backend))
	}
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// IsProduction reports whether the service runs in the production environment
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}

// LogConfig returns the configuration as a zap logger-friendly format
func (c *Config) LogConfig() []zap.Field {
	return []zap.Field{
		zap.String("service", c.ServiceName),
		zap.String("environment", c.Server.Env),
		zap.String("server_port", c.Server.Port),
		zap.String("mongo_database", c.Mongo.Database),
		zap.Duration("token_expiration", c.JWT.Expiration),
		zap.String("upload_backend", c.Upload.Backend),
		zap.Int64("upload_max_bytes", c.Upload.MaxBytes),
	}
}

// Helper function to get environment variables with defaults
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// Helper function to get environment variables as integers
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseInt(valueStr, 10, 64); err == nil {
		return value
	}
	return defaultValue
}

// Helper function to get environment variables as durations
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// Helper function to get comma separated environment variables
func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
