package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kiranshivaraju/a1gen/pkg/models"
)

// Built-in profile defaults, overridden by A1_* environment variables.
const (
	DefaultAppID     = "1993493056371286017"
	DefaultVersionID = "1993493056375480321"
	DefaultCnetID    = "17641207566093602"
	DefaultCnetPath  = "/assets/application/app_1993493056371286017/form/"
	DefaultBaseURL   = "https://a1.art/open-api/v1/a1"
	DefaultProfile   = "DEFAULT"
)

// Config holds all configuration for the a1gen server.
type Config struct {
	Server   ServerConfig
	A1       A1Config
	Poll     PollConfig
	Profiles Profiles
	History  HistoryConfig
	Proxy    ProxyConfig
}

type ServerConfig struct {
	Port int
	Env  string
}

type A1Config struct {
	BaseURL       string
	UploadTimeout time.Duration
	SubmitTimeout time.Duration
	PollTimeout   time.Duration
}

// PollConfig holds the fixed polling constants shared by every generation run.
type PollConfig struct {
	Interval time.Duration
	Timeout  time.Duration
}

type HistoryConfig struct {
	Backend     string
	File        string
	ImageDir    string
	DatabaseURL string
	RedisURL    string
}

type ProxyConfig struct {
	APIKey            string
	APIKeyHash        string
	RateLimitPerMin   int
	RedisURL          string
	TrustProxyHeaders bool
}

var validBackends = map[string]bool{
	"file":     true,
	"redis":    true,
	"postgres": true,
}

// Load reads configuration from the environment, after loading .env files when present.
// Returns an error with a descriptive message if any required value is missing or invalid.
func Load() (*Config, error) {
	// Missing .env files are not an error.
	_ = godotenv.Load(".env", ".env.local")
	return FromEnv()
}

// FromEnv builds a validated Config from the current process environment only.
func FromEnv() (*Config, error) {
	redisURL := os.Getenv("REDIS_URL")
	cfg := &Config{
		Server: ServerConfig{
			Port: envInt("A1GEN_PORT", 7860),
			Env:  envString("A1GEN_ENV", "development"),
		},
		A1: A1Config{
			BaseURL:       strings.TrimRight(envString("A1_BASE_URL", DefaultBaseURL), "/"),
			UploadTimeout: envDuration("A1_UPLOAD_TIMEOUT", 60*time.Second),
			SubmitTimeout: envDuration("A1_SUBMIT_TIMEOUT", 30*time.Second),
			PollTimeout:   envDuration("A1_POLL_TICK_TIMEOUT", 30*time.Second),
		},
		Poll: PollConfig{
			Interval: envDuration("A1_POLL_INTERVAL", 3*time.Second),
			Timeout:  envDuration("A1_POLL_TIMEOUT", 45*time.Second),
		},
		Profiles: loadProfiles(),
		History: HistoryConfig{
			Backend:     envString("HISTORY_BACKEND", "file"),
			File:        envString("HISTORY_FILE", "history.json"),
			ImageDir:    envString("HISTORY_DIR", "history"),
			DatabaseURL: os.Getenv("DATABASE_URL"),
			RedisURL:    redisURL,
		},
		Proxy: ProxyConfig{
			APIKey:            os.Getenv("PROXY_API_KEY"),
			APIKeyHash:        os.Getenv("PROXY_API_KEY_HASH"),
			RateLimitPerMin:   envInt("RATE_LIMIT_PER_MINUTE", 30),
			RedisURL:          redisURL,
			TrustProxyHeaders: envBool("TRUST_PROXY_HEADERS", false),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if !strings.HasPrefix(c.A1.BaseURL, "http://") && !strings.HasPrefix(c.A1.BaseURL, "https://") {
		return fmt.Errorf("A1_BASE_URL must start with http:// or https://, got %q", c.A1.BaseURL)
	}

	if c.Poll.Interval <= 0 {
		return fmt.Errorf("A1_POLL_INTERVAL must be positive, got %s", c.Poll.Interval)
	}
	if c.Poll.Timeout <= 0 {
		return fmt.Errorf("A1_POLL_TIMEOUT must be positive, got %s", c.Poll.Timeout)
	}

	if !validBackends[c.History.Backend] {
		return fmt.Errorf("HISTORY_BACKEND must be one of file, redis, postgres; got %q", c.History.Backend)
	}
	if c.History.Backend == "postgres" && c.History.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required when HISTORY_BACKEND is postgres")
	}
	if c.History.Backend == "redis" && c.History.RedisURL == "" {
		return fmt.Errorf("REDIS_URL is required when HISTORY_BACKEND is redis")
	}
	if c.History.Backend == "file" && c.History.File == "" {
		return fmt.Errorf("HISTORY_FILE must not be empty")
	}

	if c.Proxy.RateLimitPerMin < 0 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE must not be negative, got %d", c.Proxy.RateLimitPerMin)
	}

	return nil
}

// IsDevelopment reports whether the server runs in the development environment.
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development"
}

// BaseProfile returns the built-in fallback values used for blank profile fields.
func BaseProfile() models.Profile {
	return models.Profile{
		Name:      DefaultProfile,
		AppID:     envString("A1_APP_ID", DefaultAppID),
		APIKey:    os.Getenv("A1_API_KEY"),
		VersionID: envString("A1_VERSION_ID", DefaultVersionID),
		CnetID:    envString("A1_CNET_ID", DefaultCnetID),
		CnetPath:  envString("A1_CNET_PATH", DefaultCnetPath),
	}
}

func envString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func envBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal
	}
	return b
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		// Bare integers are read as seconds.
		secs, convErr := strconv.Atoi(v)
		if convErr != nil {
			return defaultVal
		}
		return time.Duration(secs) * time.Second
	}
	return d
}
