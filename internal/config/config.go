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

type Config struct {
	Host         string
	Port         int
	AllowOrigins []string
	LogLevel     string
	MaxUploadMB  int
	LogFile      string

	DataDir     string
	MarketsFile string
	CacheFile   string

	MatchThreshold  int
	StrictThreshold int

	SearchBaseURL     string
	SearchDomain      string
	SearchTimeout     time.Duration
	SearchRPS         float64
	SearchConcurrency int
}

// Load reads the environment; a .env file in the working directory is
// applied first without overriding variables that are already set.
func Load() Config {
	_ = godotenv.Load()

	dataDir := getenv("DATA_DIR", "data")
	return Config{
		Host:         getenv("HOST", "127.0.0.1"),
		Port:         atoi(getenv("PORT", "8082"), 8082),
		AllowOrigins: strings.Split(getenv("ALLOW_ORIGINS", "*"), ","),
		LogLevel:     getenv("LOG_LEVEL", "info"),
		MaxUploadMB:  atoi(getenv("MAX_UPLOAD_MB", "32"), 32),
		LogFile:      getenv("LOG_FILE", "logs/theater-recon.log"),

		DataDir:     dataDir,
		MarketsFile: getenv("MARKETS_FILE", filepath.Join(dataDir, "markets.json")),
		CacheFile:   getenv("CACHE_FILE", filepath.Join(dataDir, "theater_cache.json")),

		MatchThreshold:  atoi(getenv("MATCH_THRESHOLD", "80"), 80),
		StrictThreshold: atoi(getenv("STRICT_THRESHOLD", "98"), 98),

		SearchBaseURL:     getenv("SEARCH_BASE_URL", "https://www.fandango.com"),
		SearchDomain:      getenv("SEARCH_DOMAIN", "fandango.com"),
		SearchTimeout:     duration(getenv("SEARCH_TIMEOUT", "15s"), 15*time.Second),
		SearchRPS:         float(getenv("SEARCH_RPS", "2"), 2),
		SearchConcurrency: atoi(getenv("SEARCH_CONCURRENCY", "6"), 6),
	}
}

func (c Config) Addr() string { return fmt.Sprintf("%s:%d", c.Host, c.Port) }

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func atoi(s string, def int) int {
	i, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return def
	}
	return i
}

func float(s string, def float64) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || f <= 0 {
		return def
	}
	return f
}

func duration(s string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil || d <= 0 {
		return def
	}
	return d
}
