// Package config loads application configuration from environment variables.
// All variables use the TOS_ prefix. A .env file, when present, is read
// first; variables already set in the environment win.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Store drivers.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig
	Store      StoreConfig
	Database   DatabaseConfig
	Cache      CacheConfig
	AI         AIConfig
	Generation GenerationConfig
	Log        LogConfig
	ExamPath   string
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int
	Host string
}

// StoreConfig selects where blueprints are kept.
type StoreConfig struct {
	Driver string // "memory" or "postgres"
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	URL      string
	MaxConns int
	MinConns int
}

// CacheConfig holds Redis connection settings. The cache backs shared token
// budgets.
type CacheConfig struct {
	Enabled bool
	URL     string
}

// AIConfig holds configuration for the question-drafting providers.
type AIConfig struct {
	Google GoogleConfig
	OpenAI OpenAIConfig
	// TokenBudget is the per-author token allowance per BudgetWindowHours.
	// Zero means unlimited.
	TokenBudget       int64
	BudgetWindowHours int
}

// GoogleConfig holds Google Gemini provider settings.
type GoogleConfig struct {
	APIKey string
	Model  string
}

// OpenAIConfig holds OpenAI provider settings. BaseURL may point at any
// OpenAI-compatible endpoint.
type OpenAIConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

// GenerationConfig holds blueprint and drafting defaults.
type GenerationConfig struct {
	Drafting  bool
	Shuffle   bool
	Seed      int64 // 0 picks a random seed per blueprint
	MaxTokens int
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string
	Format string
}

// Load reads configuration from environment variables with TOS_ prefix.
func Load() (*Config, error) {
	if err := loadDotEnv(envStr("TOS_ENV_FILE", ".env")); err != nil {
		return nil, err
	}

	cfg := &Config{
		Server: ServerConfig{
			Port: envInt("TOS_SERVER_PORT", 8080),
			Host: envStr("TOS_SERVER_HOST", "0.0.0.0"),
		},
		Store: StoreConfig{
			Driver: envStr("TOS_STORE_DRIVER", StoreMemory),
		},
		Database: DatabaseConfig{
			URL:      envStr("TOS_DATABASE_URL", ""),
			MaxConns: envInt("TOS_DATABASE_MAX_CONNS", 10),
			MinConns: envInt("TOS_DATABASE_MIN_CONNS", 2),
		},
		Cache: CacheConfig{
			Enabled: envBool("TOS_CACHE_ENABLED", false),
			URL:     envStr("TOS_CACHE_URL", "redis://localhost:6379"),
		},
		AI: AIConfig{
			Google: GoogleConfig{
				APIKey: envStr("TOS_AI_GOOGLE_API_KEY", ""),
				Model:  envStr("TOS_AI_GOOGLE_MODEL", "gemini-2.5-flash"),
			},
			OpenAI: OpenAIConfig{
				APIKey:  envStr("TOS_AI_OPENAI_API_KEY", ""),
				Model:   envStr("TOS_AI_OPENAI_MODEL", "gpt-4o-mini"),
				BaseURL: envStr("TOS_AI_OPENAI_BASE_URL", ""),
			},
			TokenBudget:       envInt64("TOS_AI_TOKEN_BUDGET", 0),
			BudgetWindowHours: envInt("TOS_AI_BUDGET_WINDOW_HOURS", 24),
		},
		Generation: GenerationConfig{
			Drafting:  envBool("TOS_GENERATION_DRAFTING", false),
			Shuffle:   envBool("TOS_GENERATION_SHUFFLE", false),
			Seed:      envInt64("TOS_GENERATION_SEED", 0),
			MaxTokens: envInt("TOS_GENERATION_MAX_TOKENS", 4096),
		},
		Log: LogConfig{
			Level:  envStr("TOS_LOG_LEVEL", "info"),
			Format: envStr("TOS_LOG_FORMAT", "json"),
		},
		ExamPath: envStr("TOS_EXAM_PATH", "./exams"),
	}

	return cfg, nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case StoreMemory:
	case StorePostgres:
		if c.Database.URL == "" {
			return fmt.Errorf("TOS_DATABASE_URL is required when TOS_STORE_DRIVER is %q", StorePostgres)
		}
	default:
		return fmt.Errorf("TOS_STORE_DRIVER must be %q or %q, got %q", StoreMemory, StorePostgres, c.Store.Driver)
	}

	if !slices.Contains([]string{"debug", "info", "warn", "error"}, strings.ToLower(c.Log.Level)) {
		return fmt.Errorf("TOS_LOG_LEVEL must be debug, info, warn or error, got %q", c.Log.Level)
	}
	if c.Log.Format != "json" && c.Log.Format != "text" {
		return fmt.Errorf("TOS_LOG_FORMAT must be 'json' or 'text', got %q", c.Log.Format)
	}

	if c.Generation.Drafting && !c.HasAIProvider() {
		return fmt.Errorf("TOS_GENERATION_DRAFTING requires at least one AI provider")
	}
	if c.Generation.MaxTokens <= 0 {
		return fmt.Errorf("TOS_GENERATION_MAX_TOKENS must be positive, got %d", c.Generation.MaxTokens)
	}
	if c.AI.TokenBudget < 0 {
		return fmt.Errorf("TOS_AI_TOKEN_BUDGET cannot be negative, got %d", c.AI.TokenBudget)
	}
	if c.AI.TokenBudget > 0 && c.AI.BudgetWindowHours <= 0 {
		return fmt.Errorf("TOS_AI_BUDGET_WINDOW_HOURS must be positive, got %d", c.AI.BudgetWindowHours)
	}

	return nil
}

// HasAIProvider returns true if at least one AI provider is configured.
func (c *Config) HasAIProvider() bool {
	return c.AI.Google.APIKey != "" || c.AI.OpenAI.APIKey != ""
}

func loadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			return i
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		return strings.EqualFold(v, "true") || v == "1"
	}
	return fallback
}
