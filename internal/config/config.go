package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/joho/godotenv"
)

// LLM providers.
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// History backends.
const (
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
)

type Config struct {
	// Server
	Port string
	Env  string

	// Database
	DatabaseURL    string
	HistoryBackend string
	SQLitePath     string

	// Redis
	RedisURL             string
	SubscriptionCacheTTL time.Duration

	// JWT
	JWTSecret string

	// LLM
	LLMProvider       string
	LLMAPIKey         string
	LLMBaseURL        string
	LLMModel          string
	LLMTimeout        time.Duration
	LLMConcurrentReqs int

	// Free tier
	FreeDailyLimit   int
	QuotaTimezone    string
	MaxQuizQuestions int

	// Uploads
	MaxUploadMB int

	// Frontend
	FrontendURL string
}

func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	cfg := &Config{
		Port:                 getEnvOrDefault("PORT", "8080"),
		Env:                  getEnvOrDefault("ENV", "development"),
		DatabaseURL:          getEnvOrDefault("DATABASE_URL", ""),
		HistoryBackend:       getEnvOrDefault("HISTORY_BACKEND", BackendPostgres),
		SQLitePath:           getEnvOrDefault("SQLITE_PATH", "./revisia.db"),
		RedisURL:             getEnvOrDefault("REDIS_URL", ""),
		SubscriptionCacheTTL: getEnvAsDurationOrDefault("SUBSCRIPTION_CACHE_TTL", 5*time.Minute),
		JWTSecret:            mustGetEnv("JWT_SECRET"),
		LLMProvider:          getEnvOrDefault("LLM_PROVIDER", ProviderOpenAI),
		LLMAPIKey:            mustGetEnv("LLM_API_KEY"),
		LLMBaseURL:           getEnvOrDefault("LLM_BASE_URL", ""),
		LLMModel:             getEnvOrDefault("LLM_MODEL", ""),
		LLMTimeout:           getEnvAsDurationOrDefault("LLM_TIMEOUT", 60*time.Second),
		LLMConcurrentReqs:    getEnvAsIntOrDefault("LLM_CONCURRENT_REQUESTS", 5),
		FreeDailyLimit:       getEnvAsIntOrDefault("FREE_DAILY_LIMIT", 3),
		QuotaTimezone:        getEnvOrDefault("QUOTA_TIMEZONE", "Local"),
		MaxQuizQuestions:     getEnvAsIntOrDefault("MAX_QUIZ_QUESTIONS", 30),
		MaxUploadMB:          getEnvAsIntOrDefault("MAX_UPLOAD_MB", 20),
		FrontendURL:          getEnvOrDefault("FRONTEND_URL", "http://localhost:5173"),
	}

	return cfg
}

// Validate checks cross-field constraints that env parsing cannot express.
func (c *Config) Validate() error {
	err := validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required),
		validation.Field(&c.HistoryBackend, validation.Required, validation.In(BackendPostgres, BackendSQLite)),
		validation.Field(&c.DatabaseURL, validation.When(c.HistoryBackend == BackendPostgres, validation.Required)),
		validation.Field(&c.SQLitePath, validation.When(c.HistoryBackend == BackendSQLite, validation.Required)),
		validation.Field(&c.LLMProvider, validation.Required, validation.In(ProviderOpenAI, ProviderGemini)),
		validation.Field(&c.LLMTimeout, validation.Required, validation.Min(time.Second)),
		validation.Field(&c.LLMConcurrentReqs, validation.Required, validation.Min(1)),
		validation.Field(&c.FreeDailyLimit, validation.Min(0)),
		validation.Field(&c.MaxQuizQuestions, validation.Required, validation.Min(1)),
		validation.Field(&c.MaxUploadMB, validation.Required, validation.Min(1)),
	)
	if err != nil {
		return err
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("QUOTA_TIMEZONE: %w", err)
	}
	return nil
}

// Location resolves the timezone whose midnight resets the daily quota.
func (c *Config) Location() (*time.Location, error) {
	if c.QuotaTimezone == "" || c.QuotaTimezone == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(c.QuotaTimezone)
}

func (c *Config) IsProduction() bool {
	switch strings.ToLower(c.Env) {
	case "prod", "production":
		return true
	}
	return false
}

func mustGetEnv(key string) string {
	val := os.Getenv(key)
	if val == "" {
		panic(fmt.Sprintf("required environment variable %s is not set", key))
	}
	return val
}

func getEnvOrDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func getEnvAsIntOrDefault(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return n
}

func getEnvAsDurationOrDefault(key string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return defaultVal
	}
	return d
}
