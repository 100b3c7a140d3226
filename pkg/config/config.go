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

var (
	ErrMissingCredential = errors.New("missing credential")
	ErrInvalidThresholds = errors.New("invalid similarity thresholds")
	ErrDuplicateProvider = errors.New("duplicate insight provider")
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	JWT       JWTConfig
	OpenAI    OpenAIConfig
	Anthropic AnthropicConfig
	Gemini    GeminiConfig
	GigaChat  GigaChatConfig
	Matching  MatchingConfig
	Insights  InsightsConfig
	Logger    LoggerConfig
}

type LoggerConfig struct {
	Level string
}

type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type JWTConfig struct {
	SecretKey  string
	Expiration time.Duration
}

type OpenAIConfig struct {
	APIKey              string
	BaseURL             string
	EmbeddingModel      string
	EmbeddingDimensions int
	ChatModel           string
}

type AnthropicConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

type GeminiConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

type GigaChatConfig struct {
	APIKey             string
	Scope              string
	Model              string
	InsecureSkipVerify bool
}

// MatchingConfig holds identity matching parameters. Thresholds are ascending.
type MatchingConfig struct {
	LowThreshold    float64
	MediumThreshold float64
	HighThreshold   float64
	TopK            int
	ExternalTopK    int
	PacingInterval  time.Duration
	RetryBackoff    time.Duration
	BackfillWorkers int
}

type InsightsConfig struct {
	MinConfidence float64
	MinValue      float64
	TargetValue   float64
	ExpiryDays    int
	SourceTimeout time.Duration
	Providers     []string
	IncludeLocal  bool
}

func Load() (*Config, error) {
	// .env is optional; plain environment variables work for Docker/K8s
	envFiles := []string{".env", "../.env", "../../.env"}
	for _, envFile := range envFiles {
		if err := godotenv.Load(envFile); err == nil {
			break
		}
	}

	return &Config{
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", "8080"),
			ReadTimeout:  time.Duration(getEnvInt("SERVER_READ_TIMEOUT", 30)) * time.Second,
			WriteTimeout: time.Duration(getEnvInt("SERVER_WRITE_TIMEOUT", 30)) * time.Second,
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "keeper"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		JWT: JWTConfig{
			SecretKey:  getEnv("JWT_SECRET_KEY", ""),
			Expiration: time.Duration(getEnvInt("JWT_EXPIRATION_HOURS", 24)) * time.Hour,
		},
		OpenAI: OpenAIConfig{
			APIKey:              getEnv("OPENAI_API_KEY", ""),
			BaseURL:             getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
			EmbeddingModel:      getEnv("OPENAI_EMBEDDING_MODEL", "text-embedding-3-large"),
			EmbeddingDimensions: getEnvInt("OPENAI_EMBEDDING_DIMENSIONS", 3072),
			ChatModel:           getEnv("OPENAI_CHAT_MODEL", "gpt-4"),
		},
		Anthropic: AnthropicConfig{
			APIKey:  getEnv("ANTHROPIC_API_KEY", ""),
			BaseURL: getEnv("ANTHROPIC_BASE_URL", "https://api.anthropic.com/v1"),
			Model:   getEnv("ANTHROPIC_MODEL", "claude-3-sonnet-20240229"),
		},
		Gemini: GeminiConfig{
			APIKey:  getEnv("GEMINI_API_KEY", ""),
			BaseURL: getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),
			Model:   getEnv("GEMINI_MODEL", "gemini-pro"),
		},
		GigaChat: GigaChatConfig{
			APIKey:             getEnv("GIGACHAT_API_KEY", ""),
			Scope:              getEnv("GIGACHAT_SCOPE", "GIGACHAT_API_PERS"),
			Model:              getEnv("GIGACHAT_MODEL", "GigaChat"),
			InsecureSkipVerify: getEnv("GIGACHAT_INSECURE_SKIP_VERIFY", "false") == "true",
		},
		Matching: MatchingConfig{
			LowThreshold:    getEnvFloat("MATCH_LOW_THRESHOLD", 0.65),
			MediumThreshold: getEnvFloat("MATCH_MEDIUM_THRESHOLD", 0.75),
			HighThreshold:   getEnvFloat("MATCH_HIGH_THRESHOLD", 0.85),
			TopK:            getEnvInt("MATCH_TOP_K", 5),
			ExternalTopK:    getEnvInt("MATCH_EXTERNAL_TOP_K", 3),
			PacingInterval:  time.Duration(getEnvInt("EMBEDDING_PACING_MS", 50)) * time.Millisecond,
			RetryBackoff:    time.Duration(getEnvInt("EMBEDDING_RETRY_BACKOFF_MS", 1000)) * time.Millisecond,
			BackfillWorkers: getEnvInt("EMBEDDING_BACKFILL_WORKERS", 4),
		},
		Insights: InsightsConfig{
			MinConfidence: getEnvFloat("INSIGHT_MIN_CONFIDENCE", 0.75),
			MinValue:      getEnvFloat("INSIGHT_MIN_VALUE", 100),
			TargetValue:   getEnvFloat("INSIGHT_TARGET_VALUE", 3000),
			ExpiryDays:    getEnvInt("INSIGHT_EXPIRY_DAYS", 30),
			SourceTimeout: time.Duration(getEnvInt("CONSENSUS_SOURCE_TIMEOUT_SECONDS", 30)) * time.Second,
			Providers:     getEnvList("CONSENSUS_PROVIDERS", []string{"openai", "anthropic", "gemini"}),
			IncludeLocal:  getEnv("CONSENSUS_INCLUDE_LOCAL", "true") == "true",
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}, nil
}

// Validate reports configuration problems that must stop the process before
// any matching or detection work begins.
func (c *Config) Validate() error {
	var errs []error

	if c.Database.Host == "" {
		errs = append(errs, fmt.Errorf("%w: DB_HOST", ErrMissingCredential))
	}
	if c.Database.Password == "" {
		errs = append(errs, fmt.Errorf("%w: DB_PASSWORD", ErrMissingCredential))
	}
	if c.JWT.SecretKey == "" {
		errs = append(errs, fmt.Errorf("%w: JWT_SECRET_KEY", ErrMissingCredential))
	}
	if c.OpenAI.APIKey == "" {
		errs = append(errs, fmt.Errorf("%w: OPENAI_API_KEY", ErrMissingCredential))
	}
	if c.OpenAI.EmbeddingDimensions <= 0 {
		errs = append(errs, fmt.Errorf("embedding dimensions must be positive, got %d", c.OpenAI.EmbeddingDimensions))
	}

	m := c.Matching
	if !(0 <= m.LowThreshold && m.LowThreshold <= m.MediumThreshold && m.MediumThreshold <= m.HighThreshold && m.HighThreshold <= 1) {
		errs = append(errs, fmt.Errorf("%w: %.2f/%.2f/%.2f", ErrInvalidThresholds, m.LowThreshold, m.MediumThreshold, m.HighThreshold))
	}

	seen := make(map[string]bool, len(c.Insights.Providers))
	for _, p := range c.Insights.Providers {
		if seen[p] {
			errs = append(errs, fmt.Errorf("%w: %q", ErrDuplicateProvider, p))
			continue
		}
		seen[p] = true
		if key := c.providerKey(p); key == "" {
			errs = append(errs, fmt.Errorf("%w: provider %q enabled without API key", ErrMissingCredential, p))
		}
	}

	return errors.Join(errs...)
}

func (c *Config) providerKey(name string) string {
	switch name {
	case "openai":
		return c.OpenAI.APIKey
	case "anthropic":
		return c.Anthropic.APIKey
	case "gemini":
		return c.Gemini.APIKey
	case "gigachat":
		return c.GigaChat.APIKey
	default:
		return ""
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	v, err := strconv.Atoi(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return v
}

func getEnvFloat(key string, defaultValue float64) float64 {
	v, err := strconv.ParseFloat(getEnv(key, ""), 64)
	if err != nil {
		return defaultValue
	}
	return v
}

func getEnvList(key string, defaultValue []string) []string {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue
	}
	if raw == "none" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.ToLower(strings.TrimSpace(part)); part != "" {
			out = append(out, part)
		}
	}
	return out
}
