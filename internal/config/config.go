package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config represents the full application configuration surface.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Auth      AuthConfig
	Log       LogConfig
	Redis     RedisConfig
	MongoDB   MongoDBConfig
	Sheets    SheetsConfig
	WhatsApp  WhatsAppConfig
	Reporting ReportingConfig
}

// ServerConfig holds HTTP server related options.
type ServerConfig struct {
	Port        string
	Env         string
	CORSOrigins []string
}

// DatabaseConfig holds the relational store connection options.
type DatabaseConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	LogLevel        string
}

// AuthConfig holds bearer token settings.
type AuthConfig struct {
	JWTSecret string
	TokenTTL  time.Duration
}

// LogConfig controls the zap logger.
type LogConfig struct {
	Level    string
	Encoding string
}

// RedisConfig holds settings for the grid count cache.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	CountTTL time.Duration
}

// Enabled reports whether a redis address was configured.
func (c RedisConfig) Enabled() bool { return c.Addr != "" }

// MongoDBConfig holds settings for the report archive.
type MongoDBConfig struct {
	URI    string
	DBName string
}

// Enabled reports whether the report archive is configured.
func (c MongoDBConfig) Enabled() bool { return c.URI != "" }

// SheetsConfig contains configuration required to interact with Google Sheets.
type SheetsConfig struct {
	CredentialsPath string
	SpreadsheetID   string
}

// Enabled reports whether spreadsheet export is configured.
func (c SheetsConfig) Enabled() bool { return c.CredentialsPath != "" && c.SpreadsheetID != "" }

// WhatsAppConfig contains credentials and options for the Meta WhatsApp Cloud API.
type WhatsAppConfig struct {
	AccessToken   string
	PhoneNumberID string
	VerifyToken   string
	BaseURL       string
	APIVersion    string
}

// Enabled reports whether outbound messaging is configured.
func (c WhatsAppConfig) Enabled() bool { return c.AccessToken != "" && c.PhoneNumberID != "" }

// ReportingConfig holds scheduler-related settings.
type ReportingConfig struct {
	CronSchedule string
	Timezone     string
	RecipientID  string
}

// Load reads environment variables (optionally from the provided file) and
// materializes a Config instance.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed loading env file %s: %w", envFile, err)
			}
		}
	} else {
		// Missing .env files are fine when the environment carries everything.
		_ = godotenv.Load()
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:        getenvWithDefault("APP_PORT", "8080"),
			Env:         getenvWithDefault("APP_ENV", "production"),
			CORSOrigins: getenvList("CORS_ALLOWED_ORIGINS", []string{"*"}),
		},
		Database: DatabaseConfig{
			DSN:             os.Getenv("DATABASE_DSN"),
			MaxOpenConns:    getenvInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getenvInt("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getenvDuration("DATABASE_CONN_MAX_LIFETIME", 5*time.Minute),
			LogLevel:        getenvWithDefault("DATABASE_LOG_LEVEL", "warn"),
		},
		Auth: AuthConfig{
			JWTSecret: os.Getenv("JWT_SECRET"),
			TokenTTL:  getenvDuration("JWT_TOKEN_TTL", 12*time.Hour),
		},
		Log: LogConfig{
			Level:    getenvWithDefault("LOG_LEVEL", "info"),
			Encoding: getenvWithDefault("LOG_ENCODING", "json"),
		},
		Redis: RedisConfig{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       getenvInt("REDIS_DB", 0),
			CountTTL: getenvDuration("REDIS_COUNT_TTL", 30*time.Second),
		},
		MongoDB: MongoDBConfig{
			URI:    os.Getenv("MONGODB_URI"),
			DBName: getenvWithDefault("MONGODB_DB_NAME", "farmdesk"),
		},
		Sheets: SheetsConfig{
			CredentialsPath: os.Getenv("GOOGLE_SHEETS_CREDENTIALS_PATH"),
			SpreadsheetID:   os.Getenv("GOOGLE_SHEET_REPORT_ID"),
		},
		WhatsApp: WhatsAppConfig{
			AccessToken:   os.Getenv("WHATSAPP_TOKEN"),
			PhoneNumberID: os.Getenv("WHATSAPP_PHONE_NUMBER_ID"),
			VerifyToken:   os.Getenv("META_VERIFY_TOKEN"),
			BaseURL:       getenvWithDefault("WHATSAPP_BASE_URL", "https://graph.facebook.com"),
			APIVersion:    getenvWithDefault("WHATSAPP_API_VERSION", "v20.0"),
		},
		Reporting: ReportingConfig{
			CronSchedule: getenvWithDefault("REPORT_CRON_SCHEDULE", "0 20 * * *"),
			Timezone:     getenvWithDefault("TIMEZONE", "Asia/Jakarta"),
			RecipientID:  os.Getenv("REPORT_RECIPIENT_ID"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate ensures that required configuration fields are populated.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}

	if c.Server.Port == "" {
		return errors.New("APP_PORT must be provided")
	}

	if c.Database.DSN == "" {
		return errors.New("DATABASE_DSN must be provided")
	}

	if c.Auth.JWTSecret == "" {
		return errors.New("JWT_SECRET must be provided")
	}
	if c.Auth.TokenTTL <= 0 {
		return errors.New("JWT_TOKEN_TTL must be positive")
	}

	if c.Reporting.CronSchedule == "" {
		return errors.New("REPORT_CRON_SCHEDULE must be provided")
	}

	if c.Reporting.Timezone == "" {
		return errors.New("TIMEZONE must be provided")
	}
	if _, err := time.LoadLocation(c.Reporting.Timezone); err != nil {
		return fmt.Errorf("TIMEZONE %q is invalid: %w", c.Reporting.Timezone, err)
	}

	if c.WhatsApp.Enabled() {
		if c.WhatsApp.BaseURL == "" {
			return errors.New("WHATSAPP_BASE_URL must not be empty")
		}
		if c.WhatsApp.APIVersion == "" {
			return errors.New("WHATSAPP_API_VERSION must not be empty")
		}
	}

	return nil
}

func getenvWithDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func getenvList(key string, fallback []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
