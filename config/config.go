package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application-level configuration
type Config struct {
	// Storage
	StoreDriver    string // "postgres" or "sqlite"
	DatabaseURL    string
	SQLitePath     string
	DBMaxOpenConns int
	DBMaxIdleConns int

	// Search fan-out
	MaxWorkers       int
	RateLimitDelay   int // milliseconds of cooldown after each term
	RequestInterval  int // milliseconds between outbound source requests
	MaxRetries       int
	SocketTimeout    time.Duration
	MaxVideosPerTerm int
	PublishedWithin  int // years, Data API publishedAfter window
	YouTubeAPIKeys   []string
	RedisURL         string
	CacheTTL         time.Duration

	// Pipeline
	BatchSize       int
	MinQualityScore float64
	ScoringPolicy   string

	// Output
	LogMode     string
	CSVFilePath string

	// Catalog
	ToolsConfigPath string // empty uses the embedded catalog
}

// Load reads configuration from environment variables or falls back to defaults
func Load() *Config {
	return &Config{
		StoreDriver:      getEnv("STORE_DRIVER", "postgres"),
		DatabaseURL:      getEnv("DATABASE_URL", "postgres://postgres@localhost:5432/workflow_automation?sslmode=disable"),
		SQLitePath:       getEnv("SQLITE_PATH", "data/videos.db"),
		DBMaxOpenConns:   getEnvInt("DB_MAX_OPEN_CONNS", 10),
		DBMaxIdleConns:   getEnvInt("DB_MAX_IDLE_CONNS", 2),
		MaxWorkers:       getEnvInt("MAX_WORKERS", 3),
		RateLimitDelay:   getEnvInt("RATE_LIMIT_DELAY_MS", 1500),
		RequestInterval:  getEnvInt("REQUEST_INTERVAL_MS", 500),
		MaxRetries:       getEnvInt("MAX_RETRIES", 3),
		SocketTimeout:    time.Duration(getEnvInt("SOCKET_TIMEOUT_SECONDS", 30)) * time.Second,
		MaxVideosPerTerm: getEnvInt("MAX_VIDEOS_PER_TERM", 10),
		PublishedWithin:  getEnvInt("PUBLISHED_WITHIN_YEARS", 5),
		YouTubeAPIKeys:   getEnvList("YOUTUBE_API_KEYS"),
		RedisURL:         getEnv("REDIS_URL", ""),
		CacheTTL:         getEnvDuration("CACHE_TTL", 6*time.Hour),
		BatchSize:        getEnvInt("BATCH_INSERT_SIZE", 50),
		MinQualityScore:  getEnvFloat("MIN_QUALITY_SCORE", 40),
		ScoringPolicy:    getEnv("SCORING_POLICY", "composite"),
		LogMode:          getEnv("LOG_MODE", "development"),
		CSVFilePath:      getEnv("CSV_FILE_PATH", "output/videos.csv"),
		ToolsConfigPath:  getEnv("TOOLS_CONFIG", ""),
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}

// getEnvList splits a comma separated variable, dropping blanks
func getEnvList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
