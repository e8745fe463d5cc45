package config

import (
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Price providers understood by the server.
const (
	ProviderRandom = "random"
	ProviderYahoo  = "yahoo"
)

// Config holds application level configuration loaded from environment variables.
type Config struct {
	Port              string
	DBURL             string
	UseInMemoryStore  bool
	RedisURL          string
	PriceProvider     string
	PriceTTL          time.Duration
	HistoryTTL        time.Duration
	OracleTimeout     time.Duration
	OracleConcurrency int
	BenchmarkTicker   string
	Environment       string
	LogLevel          string
}

// Load reads configuration from environment variables. A .env file is loaded
// if present to simplify local development. We look in bin/.env so the file
// can live alongside a built binary, and fall back to .env in the project
// root for compatibility.
func Load() Config {
	loadDotEnv()

	cfg := Config{
		Port:              getString("PORT", "8080"),
		DBURL:             getString("DATABASE_URL", ""),
		RedisURL:          getString("REDIS_URL", ""),
		PriceProvider:     strings.ToLower(getString("PRICE_PROVIDER", ProviderRandom)),
		PriceTTL:          getDuration("PRICE_TTL_MINUTES", 60, time.Minute),
		HistoryTTL:        getDuration("HISTORY_TTL_HOURS", 24, time.Hour),
		OracleTimeout:     getDuration("ORACLE_TIMEOUT_SECONDS", 8, time.Second),
		OracleConcurrency: getInt("ORACLE_CONCURRENCY", 8),
		BenchmarkTicker:   strings.ToUpper(getString("BENCHMARK_TICKER", "SPY")),
		Environment:       getString("ENVIRONMENT", "local"),
		LogLevel:          getString("LOG_LEVEL", ""),
	}

	cfg.UseInMemoryStore = cfg.DBURL == ""
	if cfg.OracleConcurrency < 1 {
		cfg.OracleConcurrency = 1
	}
	return cfg
}

func loadDotEnv() {
	candidates := []string{
		filepath.Join("bin", ".env"),
		".env",
	}

	if exePath, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exePath)
		candidates = append([]string{
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "bin", ".env"),
		}, candidates...)
	}

	for _, path := range candidates {
		if err := godotenv.Load(path); err == nil {
			return
		}
	}
}

func getString(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		log.Printf("invalid value for %s, using fallback: %v", key, err)
		return fallback
	}
	return n
}

// getDuration reads an integer count of unit from key.
func getDuration(key string, fallback int, unit time.Duration) time.Duration {
	return time.Duration(getInt(key, fallback)) * unit
}
