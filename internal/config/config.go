package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	"vct-predictor/internal/constants"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

const (
	defaultStageURL      = "https://www.vlr.gg/event/standings/2025-americas-stage-2"
	defaultPriorStageURL = "https://www.vlr.gg/event/standings/2025-americas-stage-1"
	defaultUserAgent     = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"
)

type Config struct {
	DBPath     string
	ServerPort string
	LogLevel   string
	LogFormat  string

	BaseURL        string
	StandingsURLs  []string
	DiscoverURLs   bool
	DiscoverPages  []string
	DiscoverTokens []string
	UserAgent      string
	CFClearance    string
	FetchTimeout   time.Duration
	FetchRate      float64

	IngestTimeout     time.Duration
	ScrapeSchedule    string
	ScrapeOnStart     bool
	FallbackOverwrite bool

	GroupLabels      []string
	GroupSize        int
	RecentWindowDays int
}

func Load(logger zerolog.Logger) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Debug().Msg(".env file not found, using environment variables or defaults")
	}

	cfg := &Config{
		DBPath:     getEnv("DB_PATH", "vct.db"),
		ServerPort: getEnv("SERVER_PORT", "8080"),
		LogLevel:   getEnv("LOG_LEVEL", "info"),
		LogFormat:  getEnv("LOG_FORMAT", "json"),

		BaseURL:        strings.TrimRight(getEnv("VLR_BASE_URL", "https://www.vlr.gg"), "/"),
		StandingsURLs:  getList("STANDINGS_URLS", []string{defaultStageURL, defaultPriorStageURL}),
		DiscoverURLs:   getBool("DISCOVER_URLS", false),
		DiscoverPages:  getList("DISCOVER_PAGES", []string{"/events", "/events/americas"}),
		DiscoverTokens: getList("DISCOVER_TOKENS", []string{"2025", "americas", "stage"}),
		UserAgent:      getEnv("USER_AGENT", defaultUserAgent),
		CFClearance:    getEnv("CF_CLEARANCE", ""),
		FetchTimeout:   getDuration("FETCH_TIMEOUT", 20*time.Second),
		FetchRate:      getFloat("FETCH_RATE", 1),

		IngestTimeout:     getDuration("INGEST_TIMEOUT", 2*time.Minute),
		ScrapeSchedule:    getEnv("SCRAPE_SCHEDULE", "0 3 * * *"),
		ScrapeOnStart:     getBool("SCRAPE_ON_START", false),
		FallbackOverwrite: getBool("FALLBACK_OVERWRITE", false),

		GroupLabels:      getList("GROUP_LABELS", []string{"Alpha", "Omega"}),
		GroupSize:        getInt("GROUP_SIZE", 6),
		RecentWindowDays: getInt("RECENT_WINDOW_DAYS", 30),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger.Info().
		Str("db_path", cfg.DBPath).
		Str("server_port", cfg.ServerPort).
		Str("log_level", cfg.LogLevel).
		Strs("standings_urls", cfg.StandingsURLs).
		Dur("fetch_timeout", cfg.FetchTimeout).
		Str("scrape_schedule", cfg.ScrapeSchedule).
		Bool("fallback_overwrite", cfg.FallbackOverwrite).
		Msg("configuration loaded")

	return cfg, nil
}

// Validate clamps the fetch timeout into 10-30s and rejects settings the
// pipeline cannot run with.
func (c *Config) Validate() error {
	if len(c.StandingsURLs) == 0 {
		return fmt.Errorf("STANDINGS_URLS must list at least one url")
	}
	if c.FetchTimeout < constants.FetchTimeoutMin {
		c.FetchTimeout = constants.FetchTimeoutMin
	}
	if c.FetchTimeout > constants.FetchTimeoutMax {
		c.FetchTimeout = constants.FetchTimeoutMax
	}
	if c.FetchRate <= 0 {
		return fmt.Errorf("FETCH_RATE must be positive, got %v", c.FetchRate)
	}
	if c.IngestTimeout <= 0 {
		return fmt.Errorf("INGEST_TIMEOUT must be positive, got %v", c.IngestTimeout)
	}
	if c.ScrapeSchedule != "" {
		if _, err := cron.ParseStandard(c.ScrapeSchedule); err != nil {
			return fmt.Errorf("invalid SCRAPE_SCHEDULE %q: %w", c.ScrapeSchedule, err)
		}
	}
	if len(c.GroupLabels) == 0 {
		return fmt.Errorf("GROUP_LABELS must list at least one label")
	}
	if c.GroupSize <= 0 {
		return fmt.Errorf("GROUP_SIZE must be positive, got %d", c.GroupSize)
	}
	if c.RecentWindowDays <= 0 {
		return fmt.Errorf("RECENT_WINDOW_DAYS must be positive, got %d", c.RecentWindowDays)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getBool(key string, fallback bool) bool {
	if v, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}

func getFloat(key string, fallback float64) float64 {
	if v, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}

var Module = fx.Provide(Load)
