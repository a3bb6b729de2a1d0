// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Port   string
	DBPath string

	Telegram TelegramConfig
	LLM      LLMConfig
	RAG      RAGConfig

	// RouterRulesPath optionally points at a YAML file overriding the
	// built-in routing keyword tables.
	RouterRulesPath string

	// SessionStaleAfter is how long an abandoned flow survives before
	// the janitor resets it to idle.
	SessionStaleAfter time.Duration

	// InterviewQuestions is how many questions an interview generates.
	InterviewQuestions int

	// PlanWeeks is the default learning plan duration.
	PlanWeeks int

	// RateLimitPerMinute caps inbound messages per user.
	RateLimitPerMinute int
}

// TelegramConfig controls the bot transport.
type TelegramConfig struct {
	Token         string
	APIURL        string
	Mode          string // "poll" or "webhook"
	WebhookURL    string
	WebhookSecret string
	PollTimeout   time.Duration
}

// LLMConfig selects the model endpoint.
type LLMConfig struct {
	Provider    string // "gigachat" or "openai"
	Model       string
	BaseURL     string
	Timeout     time.Duration
	MaxAttempts int
	BackoffBase time.Duration
	InsecureTLS bool
}

// RAGConfig controls knowledge base retrieval. Retrieval is optional:
// with no API key the bot runs without context enrichment.
type RAGConfig struct {
	Enabled        bool
	PineconeAPIKey string
	IndexName      string
	Namespace      string
	TopK           int
	EmbedModel     string
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Port:   getEnv("PORT", "8080"),
		DBPath: getEnv("DB_PATH", "./data/interprep.db"),
		Telegram: TelegramConfig{
			Token:         getEnv("TELEGRAM_BOT_TOKEN", ""),
			APIURL:        getEnv("TELEGRAM_API_URL", "https://api.telegram.org"),
			Mode:          getEnv("TELEGRAM_MODE", "poll"),
			WebhookURL:    getEnv("TELEGRAM_WEBHOOK_URL", ""),
			WebhookSecret: getEnv("TELEGRAM_WEBHOOK_SECRET", ""),
			PollTimeout:   getEnvDuration("TELEGRAM_POLL_TIMEOUT", 50*time.Second),
		},
		LLM: LLMConfig{
			Provider:    getEnv("LLM_PROVIDER", "gigachat"),
			Model:       getEnv("LLM_MODEL", "GigaChat"),
			BaseURL:     getEnv("LLM_BASE_URL", ""),
			Timeout:     getEnvDuration("LLM_TIMEOUT", 60*time.Second),
			MaxAttempts: getEnvInt("LLM_MAX_ATTEMPTS", 3),
			BackoffBase: getEnvDuration("LLM_BACKOFF_BASE", 2*time.Second),
			InsecureTLS: getEnvBool("LLM_INSECURE_TLS", false),
		},
		RAG: RAGConfig{
			Enabled:        getEnvBool("RAG_ENABLED", os.Getenv("PINECONE_API_KEY") != ""),
			PineconeAPIKey: getEnv("PINECONE_API_KEY", ""),
			IndexName:      getEnv("PINECONE_INDEX", "interprep-knowledge"),
			Namespace:      getEnv("PINECONE_NAMESPACE", ""),
			TopK:           getEnvInt("RAG_TOP_K", 3),
			EmbedModel:     getEnv("RAG_EMBED_MODEL", "text-embedding-3-small"),
		},
		RouterRulesPath:    getEnv("ROUTER_RULES_PATH", ""),
		SessionStaleAfter:  getEnvDuration("SESSION_STALE_AFTER", 30*time.Minute),
		InterviewQuestions: getEnvInt("INTERVIEW_QUESTIONS", 3),
		PlanWeeks:          getEnvInt("PLAN_WEEKS", 4),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 10),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.DBPath == "" {
		return fmt.Errorf("DB_PATH cannot be empty")
	}
	switch c.Telegram.Mode {
	case "poll", "webhook", "off":
	default:
		return fmt.Errorf("TELEGRAM_MODE must be poll, webhook or off, got %q", c.Telegram.Mode)
	}
	if c.Telegram.Mode != "off" && c.Telegram.Token == "" {
		return fmt.Errorf("TELEGRAM_BOT_TOKEN is required when TELEGRAM_MODE=%s", c.Telegram.Mode)
	}
	if c.Telegram.Mode == "webhook" && c.Telegram.WebhookURL == "" {
		return fmt.Errorf("TELEGRAM_WEBHOOK_URL is required in webhook mode")
	}
	if c.LLM.Provider == "" {
		return fmt.Errorf("LLM_PROVIDER cannot be empty")
	}
	if c.LLM.Model == "" {
		return fmt.Errorf("LLM_MODEL cannot be empty")
	}
	if c.LLM.MaxAttempts <= 0 {
		return fmt.Errorf("LLM_MAX_ATTEMPTS must be > 0")
	}
	if c.RAG.Enabled && c.RAG.PineconeAPIKey == "" {
		return fmt.Errorf("PINECONE_API_KEY is required when RAG_ENABLED=true")
	}
	if c.InterviewQuestions <= 0 {
		return fmt.Errorf("INTERVIEW_QUESTIONS must be > 0")
	}
	if c.PlanWeeks <= 0 {
		return fmt.Errorf("PLAN_WEEKS must be > 0")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return d
}
