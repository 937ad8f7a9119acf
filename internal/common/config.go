package common

import (
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	OCR      OCRConfig
	Compress CompressConfig
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	DSN              string
	MaxConns         int32
	MinConns         int32
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration
	DialTimeout      time.Duration
	StatementTimeout time.Duration
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	HTTPAddr  string
	UploadDir string
}

// OCRConfig holds OCR.space API configuration
type OCRConfig struct {
	APIKey      string
	Endpoint    string
	Language    string
	Engine      int
	MinInterval time.Duration
	MaxRetries  int
	Timeout     time.Duration
}

// CompressConfig holds Compresto API configuration
type CompressConfig struct {
	APIKey   string
	Endpoint string
	Timeout  time.Duration
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			DSN:              getEnv("DB_URL", ""),
			MaxConns:         getEnvAsInt32("DB_MAX_CONNS", 20),
			MinConns:         getEnvAsInt32("DB_MIN_CONNS", 5),
			MaxConnLifetime:  getEnvAsDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute),
			MaxConnIdleTime:  getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 5*time.Minute),
			DialTimeout:      getEnvAsDuration("DB_DIAL_TIMEOUT", 3*time.Second),
			StatementTimeout: getEnvAsDuration("DB_STATEMENT_TIMEOUT", 0),
		},
		Server: ServerConfig{
			HTTPAddr:  getEnv("HTTP_ADDR", ":8080"),
			UploadDir: getEnv("UPLOAD_DIR", "uploads"),
		},
		OCR: OCRConfig{
			APIKey:      getEnv("OCR_API_KEY", ""),
			Endpoint:    getEnv("OCR_ENDPOINT", "https://api.ocr.space/parse/image"),
			Language:    getEnv("OCR_LANGUAGE", "eng"),
			Engine:      getEnvAsInt("OCR_ENGINE", 2),
			MinInterval: getEnvAsDuration("OCR_RATE_LIMIT", 2*time.Second),
			MaxRetries:  getEnvAsInt("OCR_MAX_RETRIES", 3),
			Timeout:     getEnvAsDuration("OCR_TIMEOUT", 60*time.Second),
		},
		Compress: CompressConfig{
			APIKey:   getEnv("COMPRESTO_API_KEY", ""),
			Endpoint: getEnv("COMPRESTO_ENDPOINT", "https://api.compresto.app/v1/compress"),
			Timeout:  getEnvAsDuration("COMPRESTO_TIMEOUT", 60*time.Second),
		},
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	if c.Database.DSN == "" {
		return NewAppError("CONFIG_ERROR", "DB_URL is required", ErrInvalidInput)
	}
	if c.OCR.APIKey == "" {
		return NewAppError("CONFIG_ERROR", "OCR_API_KEY is required", ErrInvalidInput)
	}
	if c.Server.HTTPAddr == "" {
		return NewAppError("CONFIG_ERROR", "HTTP_ADDR is required", ErrInvalidInput)
	}
	return nil
}
