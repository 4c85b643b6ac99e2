package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config holds all configuration for the application.
type Config struct {
	Port        string
	Env         string
	LogLevel    string
	StoreDriver string
	DatabaseURL string
	RedisURL    string
	RabbitMQURL string

	TwilioAccountSID string
	TwilioAuthToken  string
	TwilioFromNumber string
	PublicBaseURL    string

	MailHost string
	MailPort int
	MailUser string
	MailPass string
	MailFrom string

	GeminiAPIKey    string
	GeminiModel     string
	AIParserTimeout time.Duration

	KommoAPIToken string
	KommoBaseURL  string

	DashboardURL     string
	BookingLink      string
	ReviewLink       string
	WelcomeMessage   string
	Timezone         string
	IdempotencyGrace time.Duration
	MessageRetention time.Duration
}

// Load reads configuration from environment variables.
// In development, it loads from .env file if present.
// In production, it panics on missing required variables.
func Load() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		Env:         getEnv("ENV", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		StoreDriver: getEnv("STORE_DRIVER", DriverPostgres),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		RedisURL:    os.Getenv("REDIS_URL"),
		RabbitMQURL: os.Getenv("RABBITMQ_URL"),

		TwilioAccountSID: os.Getenv("TWILIO_ACCOUNT_SID"),
		TwilioAuthToken:  os.Getenv("TWILIO_AUTH_TOKEN"),
		TwilioFromNumber: os.Getenv("TWILIO_FROM_NUMBER"),
		PublicBaseURL:    os.Getenv("PUBLIC_BASE_URL"),

		MailHost: os.Getenv("MAIL_HOST"),
		MailPort: getEnvInt("MAIL_PORT", 587),
		MailUser: os.Getenv("MAIL_USER"),
		MailPass: os.Getenv("MAIL_PASS"),
		MailFrom: os.Getenv("MAIL_FROM"),

		GeminiAPIKey:    os.Getenv("GEMINI_API_KEY"),
		GeminiModel:     os.Getenv("GEMINI_MODEL"),
		AIParserTimeout: getEnvDuration("AI_PARSER_TIMEOUT", 4*time.Second),

		KommoAPIToken: os.Getenv("KOMMO_API_TOKEN"),
		KommoBaseURL:  os.Getenv("KOMMO_BASE_URL"),

		DashboardURL:     getEnv("DASHBOARD_URL", "http://localhost:3000/dashboard"),
		BookingLink:      os.Getenv("BOOKING_LINK"),
		ReviewLink:       os.Getenv("REVIEW_LINK"),
		WelcomeMessage:   os.Getenv("WELCOME_MESSAGE"),
		Timezone:         getEnv("TIMEZONE", "UTC"),
		IdempotencyGrace: getEnvDuration("IDEMPOTENCY_GRACE", 60*time.Second),
		MessageRetention: getEnvDuration("MESSAGE_RETENTION", 168*time.Hour),
	}

	if cfg.Env == "production" {
		if cfg.DatabaseURL == "" {
			panic("DATABASE_URL is required in production")
		}
		if cfg.RabbitMQURL == "" {
			panic("RABBITMQ_URL is required in production")
		}
		if cfg.StoreDriver == DriverMemory {
			panic("STORE_DRIVER=memory is not allowed in production")
		}
	}

	return cfg
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// Location falls back to UTC for an unknown zone name.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if n, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return n
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if d, err := time.ParseDuration(os.Getenv(key)); err == nil && d > 0 {
		return d
	}
	return defaultValue
}
