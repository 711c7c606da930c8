package infra

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv         string
	LogLevel       string
	Port           string
	DatabaseURL    string
	DBMaxConns     int
	StoragePath    string
	StorageBaseURL string
	GeoIPDBPath    string
	DefaultLocale  string

	GeminiAPIKey             string
	GeminiBaseURL            string
	GeminiImageModel         string
	GeminiImageFallbackModel string
	GeminiChatModel          string
	GeminiChatFallbackModel  string
	GenAITimeout             time.Duration

	NegativePromptBaseline string
	BatchConcurrency       int
	BatchConfirmThreshold  int
	AgentMaxLoops          int
	AgentUsePrimary        bool
	CanvasWidth            int
	CanvasHeight           int

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	RateLimitPerMin  int
	CORSOrigins      []string
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:         getEnv("APP_ENV", "development"),
		LogLevel:       os.Getenv("LOG_LEVEL"),
		Port:           getEnv("PORT", "8080"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		DBMaxConns:     getEnvInt("DB_MAX_CONNS", 10),
		StoragePath:    getEnv("STORAGE_PATH", "./data/assets"),
		StorageBaseURL: getEnv("STORAGE_BASE_URL", "http://localhost:8080/static"),
		GeoIPDBPath:    os.Getenv("GEOIP_DB_PATH"),
		DefaultLocale:  getEnv("DEFAULT_LOCALE", "en"),

		GeminiAPIKey:             os.Getenv("GEMINI_API_KEY"),
		GeminiBaseURL:            getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),
		GeminiImageModel:         getEnv("GEMINI_IMAGE_MODEL", "gemini-3-pro-image-preview"),
		GeminiImageFallbackModel: getEnv("GEMINI_IMAGE_FALLBACK_MODEL", "gemini-2.5-flash-image"),
		GeminiChatModel:          getEnv("GEMINI_CHAT_MODEL", "gemini-3-pro-preview"),
		GeminiChatFallbackModel:  getEnv("GEMINI_CHAT_FALLBACK_MODEL", "gemini-2.5-flash"),
		GenAITimeout:             time.Second * time.Duration(getEnvInt("GENAI_TIMEOUT_SECONDS", 120)),

		NegativePromptBaseline: os.Getenv("NEGATIVE_PROMPT_BASELINE"),
		BatchConcurrency:       getEnvInt("BATCH_CONCURRENCY", 3),
		BatchConfirmThreshold:  getEnvInt("BATCH_CONFIRM_THRESHOLD", 50),
		AgentMaxLoops:          getEnvInt("AGENT_MAX_LOOPS", 8),
		AgentUsePrimary:        getEnvBool("AGENT_USE_PRIMARY", true),
		CanvasWidth:            getEnvInt("CANVAS_WIDTH", 1080),
		CanvasHeight:           getEnvInt("CANVAS_HEIGHT", 1080),

		HTTPReadTimeout:  time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout: time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 300)),
		HTTPIdleTimeout:  time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:  getEnvInt("RATE_LIMIT_PER_MINUTE", 30),
		CORSOrigins:      getEnvList("CORS_ALLOWED_ORIGINS", "http://localhost:3000"),
	}

	if cfg.BatchConcurrency < 1 {
		return nil, fmt.Errorf("BATCH_CONCURRENCY must be positive")
	}
	if cfg.AgentMaxLoops < 1 {
		return nil, fmt.Errorf("AGENT_MAX_LOOPS must be positive")
	}
	if cfg.CanvasWidth <= 0 || cfg.CanvasHeight <= 0 {
		return nil, fmt.Errorf("canvas dimensions must be positive")
	}

	return cfg, nil
}

// RequireDatabase fails when DATABASE_URL is unset. Only the queue worker
// and the enqueue command need it.
func (c *Config) RequireDatabase() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	return nil
}

// IsNoRows reports whether err signals an empty single-row result.
func IsNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvList(key, fallback string) []string {
	var out []string
	for _, part := range strings.Split(getEnv(key, fallback), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
