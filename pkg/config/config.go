package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Missing data policies
const (
	MissingDataFail = "fail"
	MissingDataSkip = "skip"
)

// Config holds all configuration for the application
// ⭐ SSOT: 모든 환경변수는 여기서만 읽음
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// Database (optional run archive)
	Database DatabaseConfig

	// Redis (optional rate limit + response cache)
	Redis RedisConfig

	// Price cache
	Cache CacheConfig

	// Factor / scoring pipeline
	Analytics AnalyticsConfig

	// Series provider
	Provider ProviderConfig

	// Profiles / journal
	ProfilesDir string
	JournalPath string

	// Scheduled cache warm-up
	Watchlist WatchlistConfig

	// Logging
	LogLevel  string
	LogFormat string

	// Monitoring
	MetricsEnabled bool
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	URL      string

	// Connection Pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// Enabled reports whether a database URL was configured
func (d DatabaseConfig) Enabled() bool {
	return d.URL != ""
}

// CacheConfig holds the on-disk price cache settings
type CacheConfig struct {
	Dir          string
	TTL          time.Duration
	ForceRefresh bool
}

// AnalyticsConfig holds pipeline defaults
type AnalyticsConfig struct {
	RiskFreeRate      float64 // annual, e.g. 0.02
	Benchmark         string
	Workers           int
	FetchTimeout      time.Duration
	MissingDataPolicy string // fail | skip
}

// ProviderConfig holds the price provider endpoints and resilience knobs
type ProviderConfig struct {
	ChartURL    string
	QuoteURL    string
	RPS         int
	MaxAttempts int
	Backoff     time.Duration
	Timeout     time.Duration
}

// WatchlistConfig drives the cache_refresh job
type WatchlistConfig struct {
	Symbols   []string
	Schedule  string // cron with seconds
	Timeframe string
	Frequency string
}

// Load reads configuration from environment variables
// ⭐ SSOT: 이 함수만 os.Getenv()를 호출함
func Load() (*Config, error) {
	// Try multiple paths for .env file
	loadEnvFile()

	cfg := &Config{
		// Server
		Port: getEnv("PORT", "8089"),
		Env:  getEnv("ENV", "development"),

		// Database
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "5432"),
			Name:            getEnv("DB_NAME", "investor_coach"),
			User:            getEnv("DB_USER", "investor_coach"),
			Password:        getEnv("DB_PASSWORD", ""),
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 10),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 1),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		// Redis
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
		},

		Cache: CacheConfig{
			Dir:          getEnv("CACHE_DIR", filepath.Join("data", "cache")),
			TTL:          time.Duration(getEnvAsFloat("CACHE_TTL_DAYS", 3) * float64(24*time.Hour)),
			ForceRefresh: getEnvAsBool("FORCE_REFRESH", false),
		},

		Analytics: AnalyticsConfig{
			RiskFreeRate:      getEnvAsFloat("RISK_FREE_RATE", 0.02),
			Benchmark:         strings.ToUpper(getEnv("BENCHMARK", "SPY")),
			Workers:           getEnvAsInt("FETCH_WORKERS", 4),
			FetchTimeout:      getEnvAsDuration("FETCH_TIMEOUT", "60s"),
			MissingDataPolicy: strings.ToLower(getEnv("MISSING_DATA_POLICY", MissingDataFail)),
		},

		Provider: ProviderConfig{
			ChartURL:    getEnv("PROVIDER_CHART_URL", "https://query1.finance.yahoo.com/v8/finance/chart"),
			QuoteURL:    getEnv("PROVIDER_QUOTE_URL", "https://finance.yahoo.com/quote"),
			RPS:         getEnvAsInt("PROVIDER_RPS", 5),
			MaxAttempts: getEnvAsInt("PROVIDER_MAX_ATTEMPTS", 3),
			Backoff:     getEnvAsDuration("PROVIDER_BACKOFF", "500ms"),
			Timeout:     getEnvAsDuration("PROVIDER_TIMEOUT", "20s"),
		},

		ProfilesDir: getEnv("PROFILES_DIR", filepath.Join("data", "profiles")),
		JournalPath: getEnv("JOURNAL_PATH", filepath.Join("data", "decisions", "decisions.csv")),

		Watchlist: WatchlistConfig{
			Symbols:   getEnvAsList("WATCHLIST"),
			Schedule:  getEnv("WATCHLIST_SCHEDULE", "0 30 6 * * 1-5"), // 평일 06:30
			Timeframe: getEnv("WATCHLIST_TIMEFRAME", "3y"),
			Frequency: getEnv("WATCHLIST_FREQ", "D"),
		},

		// Logging
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "console"),

		// Monitoring
		MetricsEnabled: getEnvAsBool("METRICS_ENABLED", true),
	}

	// Validate configuration
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks configuration values for consistency
func (c *Config) validate() error {
	// Validate environment
	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	if c.Cache.TTL < 0 {
		return fmt.Errorf("CACHE_TTL_DAYS must not be negative")
	}

	if c.Analytics.Workers < 1 {
		return fmt.Errorf("FETCH_WORKERS must be at least 1")
	}

	if c.Analytics.MissingDataPolicy != MissingDataFail && c.Analytics.MissingDataPolicy != MissingDataSkip {
		return fmt.Errorf("MISSING_DATA_POLICY must be one of: fail, skip")
	}

	if c.Analytics.RiskFreeRate < -1 || c.Analytics.RiskFreeRate > 1 {
		return fmt.Errorf("RISK_FREE_RATE must be within [-1, 1]")
	}

	if c.Provider.MaxAttempts < 1 {
		return fmt.Errorf("PROVIDER_MAX_ATTEMPTS must be at least 1")
	}

	return nil
}

// Helper functions (private, only used within this file)

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	paths := []string{".env"}

	// Also try relative to executable
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

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
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
		// Fallback to default
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}

// getEnvAsList splits a comma separated value, dropping blanks
func getEnvAsList(key string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return nil
	}

	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, strings.ToUpper(p))
		}
	}
	return out
}
