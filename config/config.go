package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Browser   BrowserConfig
	Harvest   HarvestConfig
	Extract   ExtractConfig
	Sink      SinkConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Cache     CacheConfig
	Log       LogConfig
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Host string // default: "0.0.0.0"
	Port int    // default: 8080
	Mode string // "debug", "release", "test"; default: "release"
}

// BrowserConfig controls the Rod browser instance.
type BrowserConfig struct {
	// Headless controls whether the browser runs headless.
	Headless bool // default: true

	// MaxPages caps concurrent harvests (one tab each).
	MaxPages int // default: 4

	// DefaultProxy is the default proxy URL for all requests.
	DefaultProxy string

	// NoSandbox disables Chrome's sandbox (needed in Docker).
	NoSandbox bool // default: false

	// BrowserBin overrides the Chromium binary path.
	BrowserBin string

	// ControlURL connects to an already running browser over CDP
	// instead of launching one.
	ControlURL string
}

// HarvestConfig controls the page harvester.
type HarvestConfig struct {
	// URL is the catalog page harvested by default.
	URL string

	// ReadySelector is the CSS selector of the first product container.
	ReadySelector string

	// StepTimeout bounds navigation and the readiness wait.
	StepTimeout time.Duration // default: 10s

	// ScrollTimeout bounds each wait for the page to grow.
	ScrollTimeout time.Duration // default: 5s

	// MaxScrolls caps scroll iterations.
	MaxScrolls int // default: 200

	// ScrollBudget caps total time spent scrolling.
	ScrollBudget time.Duration // default: 5m

	// Stealth injects anti-automation evasions.
	Stealth bool // default: true

	// AcceptLanguage is sent with every browser request.
	AcceptLanguage string // default: "ru-RU,ru;q=0.9,en;q=0.8"

	// BlockedResourceTypes lists resource types to block.
	// Stylesheets are never blocked by default: layout drives lazy loading.
	BlockedResourceTypes []string // default: ["Image", "Font", "Media"]

	// BlockAds drops requests to known ad and tracking domains.
	BlockAds bool // default: true

	// FetchMode is "browser" or "http".
	FetchMode string // default: "browser"
}

// ExtractConfig overrides the structural patterns of the extractor.
// Empty values keep the built-in profile.
type ExtractConfig struct {
	ContainerTag     string
	ContainerPattern string
	LinkTag          string
	LinkPattern      string
	PriceTag         string
	PricePattern     string
	HrefMarker       string
	CategoryLabel    string
	Currency         string
}

// SinkConfig holds connection settings for every sink.
type SinkConfig struct {
	// Default is the sink used when none is requested.
	Default string // default: "stdout"

	// Destination is the default table / stream / file / URL.
	Destination string

	// Dir is the directory API callers' csv and json files are written to.
	// Callers only name the file; the path is always joined under Dir.
	Dir string // default: "."

	PostgresURL   string
	SQLitePath    string // default: "products.db"
	RedisAddr     string // default: "localhost:6379"
	RedisPassword string
	RedisDB       int
	RedisMaxLen   int64 // default: 10000
	WebhookURL    string
	WebhookSecret string
}

// AuthConfig controls API key authentication.
type AuthConfig struct {
	// Enabled toggles API key authentication.
	Enabled bool // default: true

	// APIKeys is the list of valid API keys.
	APIKeys []string
}

// RateLimitConfig controls per-key rate limiting.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate per API key.
	RequestsPerSecond float64 // default: 0.5

	// Burst is the maximum burst size per API key.
	Burst int // default: 2
}

// CacheConfig controls the harvest response cache.
type CacheConfig struct {
	// MaxEntries is the maximum number of cached responses.
	MaxEntries int // default: 100
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "json"
}

// DefaultCatalogURL is the catalog harvested when none is configured.
const DefaultCatalogURL = "https://www.citilink.ru/catalog/processory/?sorting=price_desc"

// DefaultReadySelector matches the first product card by a stable
// fragment of its generated class name.
const DefaultReadySelector = `div[class*="StyledSnippetProductVerticalLayout"]`

// LoadDotEnv reads a .env file into the process environment if present.
// Variables already set are left untouched.
func LoadDotEnv(paths ...string) {
	_ = godotenv.Load(paths...)
}

// Load reads configuration from environment variables with sane defaults.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Host: envOr("CATALOGER_HOST", "0.0.0.0"),
			Port: envIntOr("CATALOGER_PORT", 8080),
			Mode: envOr("CATALOGER_MODE", "release"),
		},
		Browser: BrowserConfig{
			Headless:     envBoolOr("CATALOGER_HEADLESS", true),
			MaxPages:     envIntOr("CATALOGER_MAX_PAGES", 4),
			DefaultProxy: os.Getenv("CATALOGER_PROXY"),
			NoSandbox:    envBoolOr("CATALOGER_NO_SANDBOX", false),
			BrowserBin:   os.Getenv("CATALOGER_BROWSER_BIN"),
			ControlURL:   os.Getenv("CATALOGER_CDP_URL"),
		},
		Harvest: HarvestConfig{
			URL:            envOr("CATALOGER_URL", DefaultCatalogURL),
			ReadySelector:  envOr("CATALOGER_READY_SELECTOR", DefaultReadySelector),
			StepTimeout:    envDurationOr("CATALOGER_STEP_TIMEOUT", 10*time.Second),
			ScrollTimeout:  envDurationOr("CATALOGER_SCROLL_TIMEOUT", 5*time.Second),
			MaxScrolls:     envIntOr("CATALOGER_MAX_SCROLLS", 200),
			ScrollBudget:   envDurationOr("CATALOGER_SCROLL_BUDGET", 5*time.Minute),
			Stealth:        envBoolOr("CATALOGER_STEALTH", true),
			AcceptLanguage: envOr("CATALOGER_ACCEPT_LANGUAGE", "ru-RU,ru;q=0.9,en;q=0.8"),
			BlockedResourceTypes: envSliceOr("CATALOGER_BLOCKED_RESOURCES", []string{
				"Image", "Font", "Media",
			}),
			BlockAds:  envBoolOr("CATALOGER_BLOCK_ADS", true),
			FetchMode: envOr("CATALOGER_FETCH_MODE", "browser"),
		},
		Extract: ExtractConfig{
			ContainerTag:     os.Getenv("CATALOGER_CONTAINER_TAG"),
			ContainerPattern: os.Getenv("CATALOGER_CONTAINER_PATTERN"),
			LinkTag:          os.Getenv("CATALOGER_LINK_TAG"),
			LinkPattern:      os.Getenv("CATALOGER_LINK_PATTERN"),
			PriceTag:         os.Getenv("CATALOGER_PRICE_TAG"),
			PricePattern:     os.Getenv("CATALOGER_PRICE_PATTERN"),
			HrefMarker:       os.Getenv("CATALOGER_HREF_MARKER"),
			CategoryLabel:    os.Getenv("CATALOGER_CATEGORY_LABEL"),
			Currency:         os.Getenv("CATALOGER_CURRENCY"),
		},
		Sink: SinkConfig{
			Default:       envOr("CATALOGER_SINK", "stdout"),
			Destination:   os.Getenv("CATALOGER_DESTINATION"),
			Dir:           envOr("CATALOGER_SINK_DIR", "."),
			PostgresURL:   os.Getenv("CATALOGER_POSTGRES_URL"),
			SQLitePath:    envOr("CATALOGER_SQLITE_PATH", "products.db"),
			RedisAddr:     envOr("CATALOGER_REDIS_ADDR", "localhost:6379"),
			RedisPassword: os.Getenv("CATALOGER_REDIS_PASSWORD"),
			RedisDB:       envIntOr("CATALOGER_REDIS_DB", 0),
			RedisMaxLen:   int64(envIntOr("CATALOGER_REDIS_MAXLEN", 10000)),
			WebhookURL:    os.Getenv("CATALOGER_WEBHOOK_URL"),
			WebhookSecret: os.Getenv("CATALOGER_WEBHOOK_SECRET"),
		},
		Auth: AuthConfig{
			Enabled: envBoolOr("CATALOGER_AUTH_ENABLED", true),
			APIKeys: envSliceOr("CATALOGER_API_KEYS", nil),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: envFloatOr("CATALOGER_RATE_RPS", 0.5),
			Burst:             envIntOr("CATALOGER_RATE_BURST", 2),
		},
		Cache: CacheConfig{
			MaxEntries: envIntOr("CATALOGER_CACHE_MAX_ENTRIES", 100),
		},
		Log: LogConfig{
			Level:  envOr("CATALOGER_LOG_LEVEL", "info"),
			Format: envOr("CATALOGER_LOG_FORMAT", "json"),
		},
	}
}

// --- helper functions ---

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envSliceOr(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return fallback
}
