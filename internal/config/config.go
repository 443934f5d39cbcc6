package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	Port     string
	Env      string
	LogLevel string

	LogFile           string
	LogFileMaxMB      int
	LogFileMaxBackups int
	LogFileMaxAgeDays int

	DatabaseURL   string
	RedisAddr     string
	RedisPassword string
	RedisTLS      bool

	// Business calendar
	Timezone         string
	PhoneCountryCode string
	CancelMatchMode  string

	// Green API (WhatsApp) gateway
	WhatsAppEnabled     bool
	WhatsAppDryRun      bool
	GreenAPIURL         string
	GreenAPIInstanceID  string
	GreenAPIToken       string
	GreenAPIMaxAttempts int

	// Reminder sweep
	ReminderWorkerEnabled bool
	ReminderSweepInterval time.Duration
	ReminderConcurrency   int
	ReminderSendTimeout   time.Duration
	CronSecret            string

	// Inbound events
	UseMemoryQueue  bool
	InboundQueueURL string
	InboundWorkers  int
	EventsBackend   string
	EventsTable     string

	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string

	// Email confirmations
	EmailProvider    string
	SendGridAPIKey   string
	EmailFromAddress string
	EmailFromName    string
	EmailReplyTo     string
	SESConfigSet     string

	RateLimitRPS       float64
	RateLimitBurst     int
	CORSAllowedOrigins []string
}

// Load reads configuration from environment variables. A .env file in the
// working directory is applied first without overriding the real environment.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:     getEnv("PORT", "8080"),
		Env:      getEnv("ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		LogFile:           getEnv("LOG_FILE", ""),
		LogFileMaxMB:      getEnvAsInt("LOG_FILE_MAX_MB", 10),
		LogFileMaxBackups: getEnvAsInt("LOG_FILE_MAX_BACKUPS", 7),
		LogFileMaxAgeDays: getEnvAsInt("LOG_FILE_MAX_AGE_DAYS", 28),

		DatabaseURL:   getEnv("DATABASE_URL", ""),
		RedisAddr:     getEnv("REDIS_ADDR", "redis:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),

		Timezone:         getEnv("TIMEZONE", "Asia/Almaty"),
		PhoneCountryCode: getEnv("PHONE_COUNTRY_CODE", "7"),
		CancelMatchMode:  strings.ToLower(strings.TrimSpace(getEnv("CANCEL_MATCH_MODE", "exact"))),

		WhatsAppEnabled:     getEnvAsBool("WHATSAPP_ENABLED", false),
		WhatsAppDryRun:      getEnvAsBool("WHATSAPP_DRY_RUN", false),
		GreenAPIURL:         strings.TrimRight(getEnv("GREEN_API_URL", "https://api.green-api.com"), "/"),
		GreenAPIInstanceID:  strings.TrimSpace(getEnv("GREEN_API_INSTANCE_ID", "")),
		GreenAPIToken:       strings.TrimSpace(getEnv("GREEN_API_TOKEN", "")),
		GreenAPIMaxAttempts: getEnvAsInt("GREEN_API_MAX_ATTEMPTS", 3),

		ReminderWorkerEnabled: getEnvAsBool("REMINDER_WORKER_ENABLED", true),
		ReminderSweepInterval: getEnvAsDuration("REMINDER_SWEEP_INTERVAL", 15*time.Minute),
		ReminderConcurrency:   getEnvAsInt("REMINDER_CONCURRENCY", 4),
		ReminderSendTimeout:   getEnvAsDuration("REMINDER_SEND_TIMEOUT", 20*time.Second),
		CronSecret:            getEnv("CRON_SECRET", ""),

		UseMemoryQueue:  getEnvAsBool("USE_MEMORY_QUEUE", false),
		InboundQueueURL: getEnv("INBOUND_QUEUE_URL", ""),
		InboundWorkers:  getEnvAsInt("INBOUND_WORKERS", 2),
		EventsBackend:   strings.ToLower(strings.TrimSpace(getEnv("EVENTS_BACKEND", "postgres"))),
		EventsTable:     getEnv("EVENTS_TABLE", "processed_events"),

		AWSRegion:           getEnv("AWS_REGION", "eu-central-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),

		EmailProvider:    strings.ToLower(strings.TrimSpace(getEnv("EMAIL_PROVIDER", "none"))),
		SendGridAPIKey:   getEnv("SENDGRID_API_KEY", ""),
		EmailFromAddress: getEnv("EMAIL_FROM_ADDRESS", ""),
		EmailFromName:    getEnv("EMAIL_FROM_NAME", "Запись на приём"),
		EmailReplyTo:     getEnv("EMAIL_REPLY_TO", ""),
		SESConfigSet:     getEnv("SES_CONFIGURATION_SET", ""),

		RateLimitRPS:       getEnvAsFloat("RATE_LIMIT_RPS", 5),
		RateLimitBurst:     getEnvAsInt("RATE_LIMIT_BURST", 20),
		CORSAllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS", nil),
	}
}

// GreenAPIConfigured reports whether outbound WhatsApp credentials are present.
func (c *Config) GreenAPIConfigured() bool {
	return c.GreenAPIInstanceID != "" && c.GreenAPIToken != ""
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsSlice(key string, defaultValue []string) []string {
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
	return out
}
