// Package config loads the process configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/text/language"
)

// Translator backend names accepted in TRANSLATOR.
const (
	TranslatorGoogle = "google"
	TranslatorOpenAI = "openai"
	TranslatorGemini = "gemini"
	TranslatorNone   = "none"
)

type Config struct {
	// Sources and output
	SourcesPath    string
	OutputPath     string
	OutputJSONPath string
	DigestTitle    string
	RefreshSeconds int

	// Aggregation
	PageSize       int // 0 = unlimited
	MaxPerCategory int // 0 = unlimited
	RecencyWindow  time.Duration
	Timezone       string

	// Fetching
	FetchTimeout     time.Duration
	DiscoveryTimeout time.Duration
	RunDeadline      time.Duration
	FetchWorkers     int
	UserAgent        string
	DefaultSelector  string

	// Translation
	Translators          []string
	TargetLang           string
	TranslateRPS         float64
	TranslateConcurrency int
	MaxTranslations      int // per run, 0 = unlimited
	TranslateCacheTTL    time.Duration
	OpenAIAPIKey         string
	OpenAIBaseURL        string
	GeminiAPIKey         string
	GoogleEndpoint       string

	// App settings
	RunInterval          time.Duration // 0 = single run
	EnableHTTPMonitoring bool
	MonitoringPort       string
	Debug                bool
	LogFormat            string

	location *time.Location
	target   language.Tag
}

// LoadDotEnv seeds the environment from the given files, .env by default.
// Variables already set win. Missing files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	var existing []string
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			existing = append(existing, p)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	if err := godotenv.Load(existing...); err != nil {
		return fmt.Errorf("failed to load %s: %w", strings.Join(existing, ", "), err)
	}
	return nil
}

func Load() (*Config, error) {
	cfg := &Config{
		SourcesPath:      getEnvOrDefault("SOURCES_PATH", "configs/sources.yaml"),
		OutputPath:       getEnvOrDefault("OUTPUT_PATH", "output/index.html"),
		OutputJSONPath:   os.Getenv("OUTPUT_JSON_PATH"),
		DigestTitle:      getEnvOrDefault("DIGEST_TITLE", "News digest"),
		RefreshSeconds:   getEnvIntOrDefault("REFRESH_SECONDS", 600),
		PageSize:         getEnvIntOrDefault("PAGE_SIZE", 20),
		MaxPerCategory:   getEnvIntOrDefault("MAX_PER_CATEGORY", 0),
		RecencyWindow:    getEnvDurationOrDefault("RECENCY_WINDOW", 24*time.Hour),
		Timezone:         os.Getenv("TIMEZONE"),
		FetchTimeout:     getEnvDurationOrDefault("FETCH_TIMEOUT", 15*time.Second),
		DiscoveryTimeout: getEnvDurationOrDefault("DISCOVERY_TIMEOUT", 10*time.Second),
		RunDeadline:      getEnvDurationOrDefault("RUN_DEADLINE", 2*time.Minute),
		FetchWorkers:     getEnvIntOrDefault("FETCH_WORKERS", 8),
		UserAgent:        getEnvOrDefault("USER_AGENT", "Mozilla/5.0 (compatible; newsdigest/1.0)"),
		DefaultSelector:  getEnvOrDefault("DEFAULT_SELECTOR", "a"),

		Translators:          splitList(getEnvOrDefault("TRANSLATOR", TranslatorGoogle)),
		TargetLang:           getEnvOrDefault("TARGET_LANG", "it"),
		TranslateRPS:         getEnvFloatOrDefault("TRANSLATE_RPS", 2),
		TranslateConcurrency: getEnvIntOrDefault("TRANSLATE_CONCURRENCY", 2),
		MaxTranslations:      getEnvIntOrDefault("MAX_TRANSLATIONS", 0),
		TranslateCacheTTL:    getEnvDurationOrDefault("TRANSLATE_CACHE_TTL", 6*time.Hour),
		OpenAIAPIKey:         os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL:        os.Getenv("OPENAI_BASE_URL"),
		GeminiAPIKey:         os.Getenv("GEMINI_API_KEY"),
		GoogleEndpoint:       os.Getenv("GOOGLE_TRANSLATE_ENDPOINT"),

		RunInterval:          getEnvDurationOrDefault("RUN_INTERVAL", 0),
		EnableHTTPMonitoring: getEnvBool("ENABLE_HTTP_MONITORING"),
		MonitoringPort:       getEnvOrDefault("MONITORING_PORT", "8080"),
		Debug:                getEnvBool("DEBUG"),
		LogFormat:            getEnvOrDefault("LOG_FORMAT", "text"),
	}

	return cfg, cfg.Validate()
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(strings.TrimSpace(value), 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// getEnvDurationOrDefault accepts Go durations ("90s", "24h") or a plain
// number of seconds.
func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}

func getEnvBool(key string) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(os.Getenv(key)))
	return err == nil && b
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.ToLower(strings.TrimSpace(part)); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (c *Config) Validate() error {
	var errs []error

	if c.SourcesPath == "" {
		errs = append(errs, errors.New("SOURCES_PATH is required"))
	}
	if c.OutputPath == "" {
		errs = append(errs, errors.New("OUTPUT_PATH is required"))
	}
	if c.PageSize < 0 {
		errs = append(errs, errors.New("PAGE_SIZE must be >= 0"))
	}
	if c.MaxPerCategory < 0 {
		errs = append(errs, errors.New("MAX_PER_CATEGORY must be >= 0"))
	}
	if c.RecencyWindow <= 0 {
		errs = append(errs, errors.New("RECENCY_WINDOW must be positive"))
	}
	if c.FetchTimeout <= 0 || c.DiscoveryTimeout <= 0 || c.RunDeadline <= 0 {
		errs = append(errs, errors.New("FETCH_TIMEOUT, DISCOVERY_TIMEOUT and RUN_DEADLINE must be positive"))
	}
	if c.FetchWorkers <= 0 {
		errs = append(errs, errors.New("FETCH_WORKERS must be positive"))
	}
	if c.TranslateConcurrency <= 0 {
		errs = append(errs, errors.New("TRANSLATE_CONCURRENCY must be positive"))
	}
	if c.MaxTranslations < 0 {
		errs = append(errs, errors.New("MAX_TRANSLATIONS must be >= 0"))
	}
	if c.RunInterval < 0 {
		errs = append(errs, errors.New("RUN_INTERVAL must be >= 0"))
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		errs = append(errs, errors.New("LOG_FORMAT must be 'text' or 'json'"))
	}

	loc := time.Local
	if c.Timezone != "" {
		l, err := time.LoadLocation(c.Timezone)
		if err != nil {
			errs = append(errs, fmt.Errorf("TIMEZONE: %w", err))
		} else {
			loc = l
		}
	}
	c.location = loc

	tag, err := language.Parse(c.TargetLang)
	if err != nil {
		errs = append(errs, fmt.Errorf("TARGET_LANG %q: %w", c.TargetLang, err))
	}
	c.target = tag

	if len(c.Translators) == 0 {
		c.Translators = []string{TranslatorNone}
	}
	for _, name := range c.Translators {
		switch name {
		case TranslatorGoogle, TranslatorNone:
		case TranslatorOpenAI:
			if c.OpenAIAPIKey == "" {
				errs = append(errs, errors.New("OPENAI_API_KEY is required for the openai translator"))
			}
		case TranslatorGemini:
			if c.GeminiAPIKey == "" {
				errs = append(errs, errors.New("GEMINI_API_KEY is required for the gemini translator"))
			}
		default:
			errs = append(errs, fmt.Errorf("TRANSLATOR: unknown backend %q", name))
		}
	}

	return errors.Join(errs...)
}

// Location is the zone runs are expressed in.
func (c *Config) Location() *time.Location {
	if c.location == nil {
		return time.Local
	}
	return c.location
}

// Target is the parsed TARGET_LANG.
func (c *Config) Target() language.Tag {
	return c.target
}
