package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds process-level configuration for the recap service
// ⭐ SSOT: 모든 환경변수는 여기서만 읽음
//
// Pipeline tuning (instruments, thresholds, retry policy) lives in the
// universe YAML file, not here.
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// Universe
	UniverseFile string
	OutputDir    string

	// External sources
	Yahoo YahooConfig
	News  NewsConfig

	HTTPTimeout time.Duration
	UserAgent   string

	// Scheduling
	Schedule      string
	JobRetries    int // 실패한 스케줄 실행의 재실행 횟수
	JobRetryDelay time.Duration

	// Logging
	LogLevel  string
	LogFormat string

	// Monitoring
	MetricsEnabled bool
}

// YahooConfig holds the price source configuration
type YahooConfig struct {
	BaseURL string
}

// NewsConfig holds the news feed configuration
type NewsConfig struct {
	BaseURL  string
	Language string
	Region   string
}

// Load reads configuration from environment variables
// ⭐ SSOT: 이 함수만 os.Getenv()를 호출함
func Load() (*Config, error) {
	loadEnvFile()

	cfg := &Config{
		Port: getEnv("PORT", "8089"),
		Env:  getEnv("ENV", "development"),

		UniverseFile: getEnv("UNIVERSE_FILE", ""),
		OutputDir:    getEnv("OUTPUT_DIR", ""),

		Yahoo: YahooConfig{
			BaseURL: getEnv("YAHOO_BASE_URL", "https://query1.finance.yahoo.com"),
		},
		News: NewsConfig{
			BaseURL:  getEnv("GNEWS_BASE_URL", "https://news.google.com"),
			Language: getEnv("GNEWS_LANGUAGE", "en-US"),
			Region:   getEnv("GNEWS_REGION", "US"),
		},

		HTTPTimeout: getEnvAsDuration("HTTP_TIMEOUT", "30s"),
		UserAgent:   getEnv("USER_AGENT", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36"),

		// 평일 장 마감 후 (뉴욕 기준 18:30)
		Schedule:      getEnv("RECAP_SCHEDULE", "0 30 18 * * MON-FRI"),
		JobRetries:    getEnvAsInt("RECAP_JOB_RETRIES", 0),
		JobRetryDelay: getEnvAsDuration("RECAP_JOB_RETRY_DELAY", "5m"),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		MetricsEnabled: getEnvAsBool("METRICS_ENABLED", true),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if required configuration values are set
func (c *Config) validate() error {
	if c.Env != "development" && c.Env != "staging" && c.Env != "production" && c.Env != "test" {
		return fmt.Errorf("ENV must be one of: development, staging, production, test")
	}

	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("HTTP_TIMEOUT must be positive")
	}

	if c.JobRetries < 0 {
		return fmt.Errorf("RECAP_JOB_RETRIES must not be negative")
	}

	if c.Yahoo.BaseURL == "" {
		return fmt.Errorf("YAHOO_BASE_URL is required")
	}

	return nil
}

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	paths := []string{
		".env",
		"backend/.env",
	}

	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}
