// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// =============================================================================
// Module-Specific Config Interfaces (Principle of Least Privilege)
// =============================================================================

// DatabaseConfig provides database connection settings.
type DatabaseConfig interface {
	GetDatabaseURL() string
}

// JWTConfig provides JWT validation settings for middleware.
type JWTConfig interface {
	GetJWTAccessSecret() string
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
	GetCORSAllowCreds() bool
}

// SchedulerConfig provides settings for the asynq task queue.
type SchedulerConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
}

// RedisConfig provides settings for the plain redis client.
type RedisConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
}

// WhatsAppConfig provides settings for the Twilio WhatsApp channel.
type WhatsAppConfig interface {
	GetTwilioAccountSID() string
	GetTwilioAuthToken() string
	GetTwilioAPIBaseURL() string
	GetDefaultPhoneRegion() string
}

// WebhookConfig provides settings for the inbound webhook.
type WebhookConfig interface {
	GetTwilioAuthToken() string
	GetTwilioValidateSignature() bool
	GetPublicWebhookURL() string
	GetWebhookRateLimit() float64
}

// LLMConfig provides settings for the text-generation backend.
type LLMConfig interface {
	GetLLMAPIKey() string
	GetLLMBaseURL() string
	GetLLMModel() string
	GetLLMTimeout() time.Duration
}

// MinIOConfig provides settings for MinIO S3-compatible storage.
type MinIOConfig interface {
	GetMinIOEndpoint() string
	GetMinIOAccessKey() string
	GetMinIOSecretKey() string
	GetMinIOUseSSL() bool
	GetMinioBucketCatalogPhotos() string
	GetPhotoURLTTL() time.Duration
	IsMinIOEnabled() bool
}

// SMTPConfig provides settings for owner alert emails.
type SMTPConfig interface {
	GetSMTPHost() string
	GetSMTPPort() int
	GetSMTPUsername() string
	GetSMTPPassword() string
	GetSMTPFromEmail() string
	GetSMTPFromName() string
	IsSMTPEnabled() bool
}

// ConversationConfig provides the tunables of the conversation engine.
type ConversationConfig interface {
	GetHumanOverrideTimeout() time.Duration
	GetHistoryWindow() int
	GetDefaultTimezone() string
}

// BusinessSourceConfig selects where business snapshots are read from.
type BusinessSourceConfig interface {
	GetBusinessConfigFile() string
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env                      string
	HTTPAddr                 string
	DatabaseURL              string
	MigrationsEnabled        bool
	JWTAccessSecret          string
	CORSAllowAll             bool
	CORSOrigins              []string
	CORSAllowCreds           bool
	RedisURL                 string
	RedisTLSInsecure         bool
	AsynqQueueName           string
	AsynqConcurrency         int
	TwilioAccountSID         string
	TwilioAuthToken          string
	TwilioAPIBaseURL         string
	TwilioValidateSignature  bool
	PublicWebhookURL         string
	WebhookRateLimit         float64
	LLMAPIKey                string
	LLMBaseURL               string
	LLMModel                 string
	LLMTimeout               time.Duration
	MinIOEndpoint            string
	MinIOAccessKey           string
	MinIOSecretKey           string
	MinIOUseSSL              bool
	MinioBucketCatalogPhotos string
	PhotoURLTTL              time.Duration
	SMTPHost                 string
	SMTPPort                 int
	SMTPUsername             string
	SMTPPassword             string
	SMTPFromEmail            string
	SMTPFromName             string
	HumanOverrideTimeout     time.Duration
	HistoryWindow            int
	DefaultPhoneRegion       string
	DefaultTimezone          string
	BusinessConfigFile       string
}

// =============================================================================
// Interface Implementations
// =============================================================================

// DatabaseConfig implementation
func (c *Config) GetDatabaseURL() string { return c.DatabaseURL }

// JWTConfig implementation
func (c *Config) GetJWTAccessSecret() string { return c.JWTAccessSecret }

// HTTPConfig implementation
func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool    { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }
func (c *Config) GetCORSAllowCreds() bool  { return c.CORSAllowCreds }

// SchedulerConfig implementation
func (c *Config) GetRedisURL() string       { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool { return c.RedisTLSInsecure }
func (c *Config) GetAsynqQueueName() string { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int  { return c.AsynqConcurrency }

// WhatsAppConfig implementation
func (c *Config) GetTwilioAccountSID() string      { return c.TwilioAccountSID }
func (c *Config) GetTwilioAuthToken() string       { return c.TwilioAuthToken }
func (c *Config) GetTwilioAPIBaseURL() string      { return c.TwilioAPIBaseURL }
func (c *Config) GetDefaultPhoneRegion() string    { return c.DefaultPhoneRegion }
func (c *Config) GetTwilioValidateSignature() bool { return c.TwilioValidateSignature }
func (c *Config) GetPublicWebhookURL() string      { return c.PublicWebhookURL }
func (c *Config) GetWebhookRateLimit() float64     { return c.WebhookRateLimit }

// LLMConfig implementation
func (c *Config) GetLLMAPIKey() string         { return c.LLMAPIKey }
func (c *Config) GetLLMBaseURL() string        { return c.LLMBaseURL }
func (c *Config) GetLLMModel() string          { return c.LLMModel }
func (c *Config) GetLLMTimeout() time.Duration { return c.LLMTimeout }

// MinIOConfig implementation
func (c *Config) GetMinIOEndpoint() string            { return c.MinIOEndpoint }
func (c *Config) GetMinIOAccessKey() string           { return c.MinIOAccessKey }
func (c *Config) GetMinIOSecretKey() string           { return c.MinIOSecretKey }
func (c *Config) GetMinIOUseSSL() bool                { return c.MinIOUseSSL }
func (c *Config) GetMinioBucketCatalogPhotos() string { return c.MinioBucketCatalogPhotos }
func (c *Config) GetPhotoURLTTL() time.Duration       { return c.PhotoURLTTL }
func (c *Config) IsMinIOEnabled() bool                { return c.MinIOEndpoint != "" }

// SMTPConfig implementation
func (c *Config) GetSMTPHost() string      { return c.SMTPHost }
func (c *Config) GetSMTPPort() int         { return c.SMTPPort }
func (c *Config) GetSMTPUsername() string  { return c.SMTPUsername }
func (c *Config) GetSMTPPassword() string  { return c.SMTPPassword }
func (c *Config) GetSMTPFromEmail() string { return c.SMTPFromEmail }
func (c *Config) GetSMTPFromName() string  { return c.SMTPFromName }
func (c *Config) IsSMTPEnabled() bool      { return c.SMTPHost != "" && c.SMTPFromEmail != "" }

// ConversationConfig implementation
func (c *Config) GetHumanOverrideTimeout() time.Duration { return c.HumanOverrideTimeout }
func (c *Config) GetHistoryWindow() int                  { return c.HistoryWindow }
func (c *Config) GetDefaultTimezone() string             { return c.DefaultTimezone }

// BusinessSourceConfig implementation
func (c *Config) GetBusinessConfigFile() string { return c.BusinessConfigFile }

// Load reads configuration from the environment (and .env when present).
func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "http://localhost:3000"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	cfg := &Config{
		Env:                      getEnv("APP_ENV", "development"),
		HTTPAddr:                 getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:              getEnv("DATABASE_URL", ""),
		MigrationsEnabled:        strings.EqualFold(getEnv("MIGRATIONS_ENABLED", "true"), "true"),
		JWTAccessSecret:          getEnv("JWT_ACCESS_SECRET", ""),
		CORSAllowAll:             corsAllowAll,
		CORSOrigins:              corsOrigins,
		CORSAllowCreds:           strings.EqualFold(getEnv("CORS_ALLOW_CREDENTIALS", "true"), "true"),
		RedisURL:                 getEnv("REDIS_URL", ""),
		RedisTLSInsecure:         strings.EqualFold(getEnv("REDIS_TLS_INSECURE", "false"), "true"),
		AsynqQueueName:           getEnv("ASYNQ_QUEUE_NAME", "default"),
		AsynqConcurrency:         mustInt(getEnv("ASYNQ_CONCURRENCY", "10")),
		TwilioAccountSID:         getEnv("TWILIO_ACCOUNT_SID", ""),
		TwilioAuthToken:          getEnv("TWILIO_AUTH_TOKEN", ""),
		TwilioAPIBaseURL:         getEnv("TWILIO_API_BASE_URL", "https://api.twilio.com"),
		TwilioValidateSignature:  strings.EqualFold(getEnv("TWILIO_VALIDATE_SIGNATURE", "false"), "true"),
		PublicWebhookURL:         getEnv("PUBLIC_WEBHOOK_URL", ""),
		WebhookRateLimit:         mustFloat(getEnv("WEBHOOK_RATE_LIMIT", "5")),
		LLMAPIKey:                getEnv("LLM_API_KEY", ""),
		LLMBaseURL:               getEnv("LLM_BASE_URL", "https://api.openai.com/v1"),
		LLMModel:                 getEnv("LLM_MODEL", "gpt-4o-mini"),
		LLMTimeout:               mustDuration(getEnv("LLM_TIMEOUT", "30s")),
		MinIOEndpoint:            getEnv("MINIO_ENDPOINT", ""),
		MinIOAccessKey:           getEnv("MINIO_ACCESS_KEY", ""),
		MinIOSecretKey:           getEnv("MINIO_SECRET_KEY", ""),
		MinIOUseSSL:              strings.EqualFold(getEnv("MINIO_USE_SSL", "false"), "true"),
		MinioBucketCatalogPhotos: getEnv("MINIO_BUCKET_CATALOG_PHOTOS", "catalog-photos"),
		PhotoURLTTL:              mustDuration(getEnv("PHOTO_URL_TTL", "24h")),
		SMTPHost:                 getEnv("SMTP_HOST", ""),
		SMTPPort:                 mustInt(getEnv("SMTP_PORT", "587")),
		SMTPUsername:             getEnv("SMTP_USERNAME", ""),
		SMTPPassword:             getEnv("SMTP_PASSWORD", ""),
		SMTPFromEmail:            getEnv("SMTP_FROM_EMAIL", ""),
		SMTPFromName:             getEnv("SMTP_FROM_NAME", "Asistente de ventas"),
		HumanOverrideTimeout:     mustDuration(getEnv("HUMAN_OVERRIDE_TIMEOUT", "30m")),
		HistoryWindow:            mustInt(getEnv("HISTORY_WINDOW", "10")),
		DefaultPhoneRegion:       getEnv("DEFAULT_PHONE_REGION", "CO"),
		DefaultTimezone:          getEnv("DEFAULT_TIMEZONE", "America/Bogota"),
		BusinessConfigFile:       getEnv("BUSINESS_CONFIG_FILE", ""),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.JWTAccessSecret == "" {
		return nil, fmt.Errorf("JWT_ACCESS_SECRET is required")
	}
	if cfg.TwilioAccountSID == "" || cfg.TwilioAuthToken == "" {
		return nil, fmt.Errorf("TWILIO_ACCOUNT_SID and TWILIO_AUTH_TOKEN are required")
	}
	if cfg.TwilioValidateSignature && cfg.PublicWebhookURL == "" {
		return nil, fmt.Errorf("PUBLIC_WEBHOOK_URL is required when TWILIO_VALIDATE_SIGNATURE is true")
	}
	if cfg.LLMAPIKey == "" {
		return nil, fmt.Errorf("LLM_API_KEY is required")
	}
	if cfg.HumanOverrideTimeout <= 0 {
		return nil, fmt.Errorf("HUMAN_OVERRIDE_TIMEOUT must be a positive duration")
	}
	if cfg.HistoryWindow < 1 {
		cfg.HistoryWindow = 10
	}
	if _, err := time.LoadLocation(cfg.DefaultTimezone); err != nil {
		return nil, fmt.Errorf("DEFAULT_TIMEZONE: %w", err)
	}
	if cfg.CORSAllowAll && cfg.CORSAllowCreds {
		return nil, fmt.Errorf("CORS_ALLOW_CREDENTIALS cannot be true when CORS_ALLOW_ALL is true")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func mustDuration(value string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0
	}
	return d
}

func mustInt(value string) int {
	result, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0
	}
	return result
}

func mustFloat(value string) float64 {
	result, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return 0
	}
	return result
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	results := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			results = append(results, trimmed)
		}
	}
	return results
}

func containsWildcard(values []string) bool {
	for _, value := range values {
		if value == "*" {
			return true
		}
	}
	return false
}
