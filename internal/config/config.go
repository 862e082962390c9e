// Package config loads application configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// Telegram settings
	TelegramToken     string
	TelegramChannelID string
	AdminChatID       int64
	AllowedUsers      []int64

	// AI backends
	GeminiAPIKey string
	GeminiModel  string
	OpenAIAPIKey string // optional, enables the fallback backend
	OpenAIModel  string

	// Rewrite engine
	MaxRetries     int
	RetryBaseDelay time.Duration
	RateLimitDelay time.Duration // flat wait after quota errors

	// RSS settings
	FeedsConfigPath string
	NewsMaxAge      time.Duration

	// Pipeline
	PipelineInterval    time.Duration
	SimilarityThreshold float64
	LanguageThreshold   float64
	MinTags             int
	PublishWindow       time.Duration

	// Promo filter thresholds (tunable heuristics, see internal/filter)
	PromoWeakThreshold   int
	PromoStrongThreshold int

	// Persisted stores
	DedupFilePath    string
	DedupTTL         time.Duration
	LedgerFilePath   string
	LedgerTTL        time.Duration
	RewriteCachePath string
	ModeFilePath     string

	// App settings
	LogLevel       string
	RequestTimeout time.Duration
}

func Load() (*Config, error) {
	cfg := &Config{
		// Default values
		GeminiModel:          "gemini-2.5-flash",
		OpenAIModel:          "gpt-4o-mini",
		MaxRetries:           4,
		RetryBaseDelay:       2 * time.Second,
		RateLimitDelay:       45 * time.Second,
		FeedsConfigPath:      "configs/feeds.yaml",
		NewsMaxAge:           3 * time.Hour,
		PipelineInterval:     3 * time.Hour,
		SimilarityThreshold:  0.85,
		LanguageThreshold:    0.8,
		MinTags:              2,
		PublishWindow:        120 * time.Minute,
		PromoWeakThreshold:   3,
		PromoStrongThreshold: 1,
		DedupFilePath:        "data/news_urls.json",
		DedupTTL:             24 * time.Hour,
		LedgerFilePath:       "data/published_news.json",
		LedgerTTL:            14 * 24 * time.Hour,
		RewriteCachePath:     "data/rewrite_cache.json",
		ModeFilePath:         "data/mode.json",
		LogLevel:             "info",
		RequestTimeout:       30 * time.Second,
	}

	cfg.TelegramToken = os.Getenv("TELEGRAM_TOKEN")
	cfg.TelegramChannelID = os.Getenv("TELEGRAM_CHANNEL_ID")
	cfg.GeminiAPIKey = os.Getenv("GEMINI_API_KEY")
	cfg.OpenAIAPIKey = os.Getenv("OPENAI_API_KEY")

	if v := os.Getenv("ADMIN_CHAT_ID"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid ADMIN_CHAT_ID %q: %w", v, err)
		}
		cfg.AdminChatID = id
	}

	if raw := os.Getenv("ALLOWED_USERS"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			s = strings.TrimSpace(s)
			if s == "" {
				continue
			}
			uid, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid user ID %q in ALLOWED_USERS: %w", s, err)
			}
			cfg.AllowedUsers = append(cfg.AllowedUsers, uid)
		}
	}

	if v := os.Getenv("GEMINI_MODEL"); v != "" {
		cfg.GeminiModel = v
	}
	if v := os.Getenv("OPENAI_MODEL"); v != "" {
		cfg.OpenAIModel = v
	}
	if v := os.Getenv("FEEDS_CONFIG_PATH"); v != "" {
		cfg.FeedsConfigPath = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}

	cfg.MaxRetries = getEnvIntOrDefault("MAX_RETRIES", cfg.MaxRetries)
	cfg.MinTags = getEnvIntOrDefault("MIN_TAGS", cfg.MinTags)
	cfg.PromoWeakThreshold = getEnvIntOrDefault("PROMO_WEAK_THRESHOLD", cfg.PromoWeakThreshold)
	cfg.PromoStrongThreshold = getEnvIntOrDefault("PROMO_STRONG_THRESHOLD", cfg.PromoStrongThreshold)

	cfg.NewsMaxAge = getEnvDurationOrDefault("NEWS_MAX_AGE", cfg.NewsMaxAge)
	cfg.PipelineInterval = getEnvDurationOrDefault("PIPELINE_INTERVAL", cfg.PipelineInterval)
	cfg.PublishWindow = getEnvDurationOrDefault("PUBLISH_WINDOW", cfg.PublishWindow)
	cfg.DedupTTL = getEnvDurationOrDefault("DEDUP_TTL", cfg.DedupTTL)
	cfg.LedgerTTL = getEnvDurationOrDefault("LEDGER_TTL", cfg.LedgerTTL)
	cfg.RetryBaseDelay = getEnvDurationOrDefault("RETRY_BASE_DELAY", cfg.RetryBaseDelay)
	cfg.RateLimitDelay = getEnvDurationOrDefault("RATE_LIMIT_DELAY", cfg.RateLimitDelay)

	cfg.SimilarityThreshold = getEnvFloatOrDefault("SIMILARITY_THRESHOLD", cfg.SimilarityThreshold)
	cfg.LanguageThreshold = getEnvFloatOrDefault("LANGUAGE_THRESHOLD", cfg.LanguageThreshold)

	cfg.DedupFilePath = getEnvOrDefault("DEDUP_FILE_PATH", cfg.DedupFilePath)
	cfg.LedgerFilePath = getEnvOrDefault("LEDGER_FILE_PATH", cfg.LedgerFilePath)
	cfg.RewriteCachePath = getEnvOrDefault("REWRITE_CACHE_PATH", cfg.RewriteCachePath)
	cfg.ModeFilePath = getEnvOrDefault("MODE_FILE_PATH", cfg.ModeFilePath)

	return cfg, cfg.Validate()
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil && intValue > 0 {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil && f > 0 && f <= 1 {
			return f
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil && d > 0 {
			return d
		}
	}
	return defaultValue
}

func (c *Config) Validate() error {
	if c.TelegramToken == "" {
		return fmt.Errorf("TELEGRAM_TOKEN is required")
	}
	if c.TelegramChannelID == "" {
		return fmt.Errorf("TELEGRAM_CHANNEL_ID is required")
	}
	if c.AdminChatID == 0 {
		return fmt.Errorf("ADMIN_CHAT_ID is required")
	}
	if c.GeminiAPIKey == "" {
		return fmt.Errorf("GEMINI_API_KEY is required")
	}
	return nil
}

// IsUserAllowed checks whether a user ID may drive the review flow.
// The admin is always allowed; an empty list allows only the admin.
func (c *Config) IsUserAllowed(userID int64) bool {
	if userID == c.AdminChatID {
		return true
	}
	for _, id := range c.AllowedUsers {
		if id == userID {
			return true
		}
	}
	return false
}
