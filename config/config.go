package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	DatabaseURL string
	Port        string
	GoEnv       string
	LogLevel    string

	// Session tokens issued after a successful identity resolution
	JWTSecret   string
	JWTIssuer   string
	JWTAudience string
	SessionTTL  time.Duration

	// AllowUserIDHeader lets X-User-Id stand in for a bearer token. Development only.
	AllowUserIDHeader bool

	GoogleClientID          string
	GoogleTokenInfoURL      string
	IdentityProviderTimeout time.Duration

	// RedisURL backs the SMS code store; empty means in-process storage
	RedisURL string

	AuthRateLimit float64
	AuthRateBurst int

	AWSRegion          string
	AWSS3Bucket        string
	AWSAccessKeyID     string
	AWSSecretAccessKey string
}

var appConfig *Config

// Load loads the configuration from environment variables
// It automatically determines which .env file to load based on GO_ENV
func Load() (*Config, error) {
	env := os.Getenv("GO_ENV")
	if env == "" {
		env = "development"
	}

	envFile := fmt.Sprintf(".env.%s", env)
	if err := godotenv.Load(envFile); err != nil {
		if err := godotenv.Load(); err != nil {
			// Deployed environments set variables directly
			log.Printf("No .env file found, using system environment variables")
		}
	} else {
		log.Printf("Loaded configuration from %s", envFile)
	}

	config := &Config{
		DatabaseURL:             getEnv("DATABASE_URL", ""),
		Port:                    getEnv("PORT", "8080"),
		GoEnv:                   getEnv("GO_ENV", "development"),
		LogLevel:                getEnv("LOG_LEVEL", "info"),
		JWTSecret:               getEnv("JWT_SECRET", ""),
		JWTIssuer:               getEnv("JWT_ISSUER", "freelancehub"),
		JWTAudience:             getEnv("JWT_AUDIENCE", "freelancehub-api"),
		SessionTTL:              getEnvDuration("SESSION_TTL", 72*time.Hour),
		AllowUserIDHeader:       getEnvBool("ALLOW_USER_ID_HEADER", false),
		GoogleClientID:          getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleTokenInfoURL:      getEnv("GOOGLE_TOKENINFO_URL", "https://oauth2.googleapis.com/tokeninfo"),
		IdentityProviderTimeout: getEnvDuration("IDENTITY_PROVIDER_TIMEOUT", 5*time.Second),
		RedisURL:                getEnv("REDIS_URL", ""),
		AuthRateLimit:           getEnvFloat("AUTH_RATE_LIMIT", 5),
		AuthRateBurst:           getEnvInt("AUTH_RATE_BURST", 10),
		AWSRegion:               getEnv("AWS_REGION", "us-east-1"),
		AWSS3Bucket:             getEnv("AWS_S3_BUCKET", ""),
		AWSAccessKeyID:          getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:      getEnv("AWS_SECRET_ACCESS_KEY", ""),
	}

	if config.JWTSecret == "" && !config.IsProduction() {
		config.JWTSecret = "dev-secret-change-me"
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	appConfig = config
	return config, nil
}

// Validate checks that all required configuration values are set
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.IsProduction() && c.AllowUserIDHeader {
		return fmt.Errorf("ALLOW_USER_ID_HEADER must not be enabled in production")
	}
	return nil
}

// IsProduction returns true if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.GoEnv == "production"
}

// IsTest returns true if the application is running in test mode
func (c *Config) IsTest() bool {
	return c.GoEnv == "test"
}

// IsDevelopment returns true if the application is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.GoEnv == "development"
}

// HasS3 reports whether avatar uploads should go to S3
func (c *Config) HasS3() bool {
	return c.AWSS3Bucket != ""
}

// GetConfig returns the configuration produced by the last Load or SetConfig
func GetConfig() *Config {
	return appConfig
}

// SetConfig replaces the active configuration (primarily for testing)
func SetConfig(cfg *Config) {
	appConfig = cfg
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	value, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvFloat(key string, defaultValue float64) float64 {
	value, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return value
}
