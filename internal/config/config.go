package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application level configuration loaded from environment variables.
type Config struct {
	ServerPort  string
	MySQLDSN    string
	RedisAddr   string
	RedisDB     int
	RedisPass   string
	JWTSecret   string
	SwaggerHost string

	// Authorization controls. These are inputs to the validators, not
	// something the engine computes.
	MaxTransactionsPerWindow  int
	RateLimitWindow           time.Duration
	AllowedMerchantCategories []string
	AddressCaseSensitive      bool
	RepositoryTimeout         time.Duration

	// Backend selection for the shared mutable state.
	LedgerBackend    string // mysql | memory
	RateLimitBackend string // redis | memory
}

// Load builds Config from environment with sensible defaults.
func Load() *Config {
	return &Config{
		ServerPort:  getEnv("SERVER_PORT", "8080"),
		MySQLDSN:    getEnv("MYSQL_DSN", "user:password@tcp(localhost:3306)/app?charset=utf8mb4&parseTime=True&loc=Local"),
		RedisAddr:   getEnv("REDIS_ADDR", "localhost:6379"),
		RedisDB:     getEnvInt("REDIS_DB", 0),
		RedisPass:   os.Getenv("REDIS_PASSWORD"),
		JWTSecret:   getEnv("JWT_SECRET", "change-me"),
		SwaggerHost: os.Getenv("SWAGGER_HOST"),

		MaxTransactionsPerWindow:  getEnvInt("AUTH_MAX_TRANSACTIONS", 5),
		RateLimitWindow:           getEnvDuration("AUTH_RATE_LIMIT_WINDOW", 60*time.Minute),
		AllowedMerchantCategories: getEnvList("AUTH_ALLOWED_MCCS", []string{"5411", "5812", "5999"}),
		AddressCaseSensitive:      getEnvBool("ADDRESS_CASE_SENSITIVE", false),
		RepositoryTimeout:         getEnvDuration("REPOSITORY_TIMEOUT", 5*time.Second),

		LedgerBackend:    getEnv("LEDGER_BACKEND", "mysql"),
		RateLimitBackend: getEnv("RATE_LIMIT_BACKEND", "redis"),
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			return parsed
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			return parsed
		}
	}
	return def
}

func getEnvList(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
