package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	Port string
	Env  string

	// Optional backends; empty means in-memory / disabled
	DatabaseURL   string
	RedisURL      string
	MigrationsDir string // empty uses the migrations built into the binary

	// Client tokens
	JWTSecret      string
	ClientTokenTTL time.Duration

	// Gemini AI
	GeminiAPIKey         string
	GeminiModel          string
	GeminiTemperature    float32
	GeminiConcurrentReqs int

	// Worksheets
	DailyLimit           int // 0 means use the profile's value, then 10
	QuotaTimezone        string
	ProfilePath          string
	PromptTemplatePath   string
	QuestionCounts       []int
	DefaultQuestionCount int
	SessionTTL           time.Duration

	// PDF export font; empty uses the embedded DejaVu Sans
	PDFFontPath     string
	PDFFontBoldPath string

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
		RedisURL:             getEnvOrDefault("REDIS_URL", ""),
		MigrationsDir:        getEnvOrDefault("MIGRATIONS_DIR", ""),
		JWTSecret:            mustGetEnv("JWT_SECRET"),
		ClientTokenTTL:       time.Duration(getEnvAsIntOrDefault("CLIENT_TOKEN_TTL_HOURS", 720)) * time.Hour,
		GeminiAPIKey:         mustGetEnv("GEMINI_API_KEY"),
		GeminiModel:          getEnvOrDefault("GEMINI_MODEL", "gemini-2.5-flash"),
		GeminiTemperature:    getEnvAsFloatOrDefault("GEMINI_TEMPERATURE", 0.7),
		GeminiConcurrentReqs: getEnvAsIntOrDefault("GEMINI_CONCURRENT_REQUESTS", 5),
		DailyLimit:           getEnvAsIntOrDefault("DAILY_LIMIT", 0),
		QuotaTimezone:        getEnvOrDefault("QUOTA_TIMEZONE", ""),
		ProfilePath:          getEnvOrDefault("PROFILE_PATH", ""),
		PromptTemplatePath:   getEnvOrDefault("PROMPT_TEMPLATE_PATH", ""),
		QuestionCounts:       getEnvAsIntListOrDefault("QUESTION_COUNTS", []int{5, 10, 15, 20}),
		DefaultQuestionCount: getEnvAsIntOrDefault("DEFAULT_QUESTION_COUNT", 10),
		SessionTTL:           time.Duration(getEnvAsIntOrDefault("SESSION_TTL_MINUTES", 120)) * time.Minute,
		PDFFontPath:          getEnvOrDefault("PDF_FONT_PATH", ""),
		PDFFontBoldPath:      getEnvOrDefault("PDF_FONT_BOLD_PATH", ""),
		FrontendURL:          getEnvOrDefault("FRONTEND_URL", "http://localhost:5173"),
	}

	return cfg
}

// Location resolves QuotaTimezone; empty means the server's local zone.
func (c *Config) Location() (*time.Location, error) {
	if c.QuotaTimezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.QuotaTimezone)
	if err != nil {
		return nil, fmt.Errorf("invalid QUOTA_TIMEZONE %q: %w", c.QuotaTimezone, err)
	}
	return loc, nil
}

// ResolveDailyLimit picks DAILY_LIMIT, then the profile's limit, then 10.
func (c *Config) ResolveDailyLimit(profileLimit int) int {
	switch {
	case c.DailyLimit > 0:
		return c.DailyLimit
	case profileLimit > 0:
		return profileLimit
	default:
		return 10
	}
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

func getEnvAsFloatOrDefault(key string, defaultVal float32) float32 {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	f, err := strconv.ParseFloat(val, 32)
	if err != nil {
		return defaultVal
	}
	return float32(f)
}

// getEnvAsIntListOrDefault parses "5,10,15,20". Any bad or non-positive
// entry falls back to the default list.
func getEnvAsIntListOrDefault(key string, defaultVal []int) []int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	var out []int
	for _, part := range strings.Split(val, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || n < 1 {
			return defaultVal
		}
		out = append(out, n)
	}
	return out
}
