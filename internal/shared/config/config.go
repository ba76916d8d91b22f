package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	KurrentDB KurrentDBConfig
	Auth      AuthConfig
	Search    SearchConfig
	Sectoral  SectoralConfig
	Log       LogConfig
}

type ServerConfig struct {
	Port int
	Env  string
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Database, d.SSLMode,
	)
}

// RedisConfig holds configuration for the search result cache.
type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
}

// KurrentDBConfig holds configuration for KurrentDB (EventStoreDB).
type KurrentDBConfig struct {
	Enabled bool
	// Host is the KurrentDB server hostname
	Host string
	// Port is the gRPC/HTTP port (default 2113)
	Port int
	// Insecure disables TLS (for development)
	Insecure bool
	Username string
	Password string
}

type AuthConfig struct {
	JWTSecret string
	Issuer    string
}

// SearchConfig controls the PSGC/PSOC typeahead endpoints.
type SearchConfig struct {
	// MinQueryLength is the shortest query that reaches storage
	MinQueryLength int
	// DefaultLimit and MaxLimit bound the number of returned records
	DefaultLimit int
	MaxLimit     int
	// DebounceDelay is used by typeahead clients (CLI pick command)
	DebounceDelay time.Duration
	// CacheTTL is the lifetime of cached search results
	CacheTTL time.Duration
	// RateLimit is requests per second per client IP on search routes
	RateLimit int
	RateBurst int
}

// SectoralConfig points to the classification rules file.
type SectoralConfig struct {
	// RulesPath is a YAML file; empty means built-in defaults
	RulesPath string
}

type LogConfig struct {
	Level  string
	Format string
}

func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port: getEnvInt("SERVER_PORT", 8080),
			Env:  getEnv("ENV", "development"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "rbi"),
			Password: getEnv("DB_PASSWORD", "rbi"),
			Database: getEnv("DB_NAME", "rbi"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Enabled:  getEnvBool("REDIS_ENABLED", true),
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		KurrentDB: KurrentDBConfig{
			Enabled:  getEnvBool("KURRENTDB_ENABLED", false),
			Host:     getEnv("KURRENTDB_HOST", "localhost"),
			Port:     getEnvInt("KURRENTDB_PORT", 2113),
			Insecure: getEnvBool("KURRENTDB_INSECURE", true),
			Username: getEnv("KURRENTDB_USERNAME", ""),
			Password: getEnv("KURRENTDB_PASSWORD", ""),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", "dev-secret-change-in-prod"),
			Issuer:    getEnv("JWT_ISSUER", ""),
		},
		Search: SearchConfig{
			MinQueryLength: getEnvInt("SEARCH_MIN_QUERY_LENGTH", 2),
			DefaultLimit:   getEnvInt("SEARCH_DEFAULT_LIMIT", 20),
			MaxLimit:       getEnvInt("SEARCH_MAX_LIMIT", 100),
			DebounceDelay:  getEnvDuration("SEARCH_DEBOUNCE_DELAY", 300*time.Millisecond),
			CacheTTL:       getEnvDuration("SEARCH_CACHE_TTL", 10*time.Minute),
			RateLimit:      getEnvInt("SEARCH_RATE_LIMIT", 20),
			RateBurst:      getEnvInt("SEARCH_RATE_BURST", 40),
		},
		Sectoral: SectoralConfig{
			RulesPath: getEnv("SECTORAL_RULES_PATH", ""),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	if cfg.Search.MinQueryLength < 0 {
		return nil, fmt.Errorf("SEARCH_MIN_QUERY_LENGTH must not be negative")
	}
	if cfg.Search.DefaultLimit <= 0 || cfg.Search.MaxLimit < cfg.Search.DefaultLimit {
		return nil, fmt.Errorf("invalid search limits: default=%d max=%d", cfg.Search.DefaultLimit, cfg.Search.MaxLimit)
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

// getEnvDuration accepts Go durations ("350ms") or bare milliseconds ("350").
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if ms, err := strconv.Atoi(value); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	return defaultValue
}
