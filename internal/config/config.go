package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	perrors "github.com/hpungsan/followpick/internal/errors"
)

// Environment variables read by ApplyEnv.
const (
	EnvAPIKey         = "FOLLOWPICK_API_KEY"
	EnvAPIKeyFallback = "RAPIDAPI_KEY"
	EnvCallBudget     = "FOLLOWPICK_CALL_BUDGET"
	EnvLogLevel       = "FOLLOWPICK_LOG_LEVEL"
	EnvHome           = "FOLLOWPICK_HOME"
)

// Config holds application configuration.
type Config struct {
	// APIKey is the provider credential. Usually supplied through the
	// environment or a .env file rather than the config file.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// APIHost is sent as the x-rapidapi-host header
	APIHost string `json:"api_host,omitempty" yaml:"api_host,omitempty"`

	// BaseURL is the provider endpoint root
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty"`

	// CallBudgetSeconds bounds each provider call, retries included.
	CallBudgetSeconds int `json:"call_budget_seconds,omitempty" yaml:"call_budget_seconds,omitempty"`

	// MaxFetch is the single-page ceiling for follower fetches used in
	// orientation mode and full baselines.
	MaxFetch int `json:"max_fetch,omitempty" yaml:"max_fetch,omitempty"`

	// DefaultCount and MaxCount bound general-mode picks.
	DefaultCount int `json:"default_count,omitempty" yaml:"default_count,omitempty"`
	MaxCount     int `json:"max_count,omitempty" yaml:"max_count,omitempty"`

	// RateLimitRPS and RateLimitBurst configure the provider rate limiter.
	RateLimitRPS   float64 `json:"rate_limit_rps,omitempty" yaml:"rate_limit_rps,omitempty"`
	RateLimitBurst int     `json:"rate_limit_burst,omitempty" yaml:"rate_limit_burst,omitempty"`

	// MaxAttempts is the retry ceiling for 429/5xx provider responses.
	MaxAttempts int `json:"max_attempts,omitempty" yaml:"max_attempts,omitempty"`

	// BaselinePolicy is the default orientation policy:
	// "nearest", "within_window" or "always_capture".
	BaselinePolicy string `json:"baseline_policy,omitempty" yaml:"baseline_policy,omitempty"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `json:"log_level,omitempty" yaml:"log_level,omitempty"`

	// DBMaxOpenConns limits the maximum number of open database connections.
	// 0 means use sql.DB default (unlimited).
	DBMaxOpenConns int `json:"db_max_open_conns,omitempty" yaml:"db_max_open_conns,omitempty"`

	// DBMaxIdleConns limits the maximum number of idle database connections.
	DBMaxIdleConns int `json:"db_max_idle_conns,omitempty" yaml:"db_max_idle_conns,omitempty"`

	// DisabledTools is a list of MCP tool names to exclude from registration.
	DisabledTools []string `json:"disabled_tools,omitempty" yaml:"disabled_tools,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		APIHost:           "instagram-social-api.p.rapidapi.com",
		BaseURL:           "https://instagram-social-api.p.rapidapi.com",
		CallBudgetSeconds: 60,
		MaxFetch:          400,
		DefaultCount:      50,
		MaxCount:          200,
		RateLimitRPS:      2,
		RateLimitBurst:    5,
		MaxAttempts:       3,
		BaselinePolicy:    "nearest",
		LogLevel:          "info",
	}
}

// CallBudget returns the provider call budget as a duration.
func (c *Config) CallBudget() time.Duration {
	return time.Duration(c.CallBudgetSeconds) * time.Second
}

// Validate reports startup configuration problems. A missing credential is
// a configuration error, not a per-call error.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return perrors.NewConfig("provider API key is not configured")
	}
	if c.BaseURL == "" {
		return perrors.NewConfig("provider base_url is empty")
	}
	if c.CallBudgetSeconds <= 0 {
		return perrors.NewConfig("call_budget_seconds must be positive")
	}
	switch c.BaselinePolicy {
	case "nearest", "within_window", "always_capture":
	default:
		return perrors.NewConfig("baseline_policy must be one of: nearest, within_window, always_capture")
	}
	return nil
}

// BaseDir returns the data directory: $FOLLOWPICK_HOME or ~/.followpick.
func BaseDir() (string, error) {
	if dir := os.Getenv(EnvHome); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".followpick"), nil
}

// Load loads configuration from baseDir/config.json (or config.yaml), then
// overlays environment variables, including those from .env files in the
// working directory and baseDir. Missing files are not an error.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.followpick.
func Load(baseDir string) (*Config, error) {
	fileCfg, err := loadFileRaw(findConfigFile(baseDir))
	if err != nil {
		return nil, err
	}

	if err := LoadDotEnv(baseDir); err != nil {
		return nil, err
	}

	cfg := Merge(DefaultConfig(), fileCfg)
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// findConfigFile returns the first existing config file in baseDir.
// JSON wins over YAML when both exist.
func findConfigFile(baseDir string) string {
	for _, name := range []string{"config.json", "config.yaml", "config.yml"} {
		p := filepath.Join(baseDir, name)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// LoadDotEnv loads .env from the working directory and baseDir, if present.
// Variables already set in the environment are not overridden.
func LoadDotEnv(baseDir string) error {
	for _, p := range []string{".env", filepath.Join(baseDir, ".env")} {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return err
		}
	}
	return nil
}

// ApplyEnv overlays environment variables onto the config.
func (c *Config) ApplyEnv() error {
	if v := os.Getenv(EnvAPIKey); v != "" {
		c.APIKey = v
	} else if c.APIKey == "" {
		c.APIKey = os.Getenv(EnvAPIKeyFallback)
	}

	if v := os.Getenv(EnvCallBudget); v != "" {
		secs, err := strconv.Atoi(v)
		if err != nil || secs <= 0 {
			return perrors.NewConfig(EnvCallBudget + " must be a positive number of seconds")
		}
		c.CallBudgetSeconds = secs
	}

	if v := os.Getenv(EnvLogLevel); v != "" {
		c.LogLevel = strings.ToLower(v)
	}
	return nil
}

// loadFileRaw loads configuration from a specific file path.
// Returns zero-valued config if the path is empty or the file doesn't exist.
func loadFileRaw(configPath string) (*Config, error) {
	if configPath == "" {
		return &Config{}, nil
	}
	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}

	cfg := &Config{}
	switch filepath.Ext(configPath) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	default:
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// Merge combines base and overlay configs.
// Overlay values take precedence for scalars; arrays are merged and deduplicated.
func Merge(base, overlay *Config) *Config {
	result := &Config{}

	result.APIKey = firstString(overlay.APIKey, base.APIKey)
	result.APIHost = firstString(overlay.APIHost, base.APIHost)
	result.BaseURL = firstString(overlay.BaseURL, base.BaseURL)
	result.BaselinePolicy = firstString(overlay.BaselinePolicy, base.BaselinePolicy)
	result.LogLevel = firstString(overlay.LogLevel, base.LogLevel)

	result.CallBudgetSeconds = firstInt(overlay.CallBudgetSeconds, base.CallBudgetSeconds)
	result.MaxFetch = firstInt(overlay.MaxFetch, base.MaxFetch)
	result.DefaultCount = firstInt(overlay.DefaultCount, base.DefaultCount)
	result.MaxCount = firstInt(overlay.MaxCount, base.MaxCount)
	result.RateLimitBurst = firstInt(overlay.RateLimitBurst, base.RateLimitBurst)
	result.MaxAttempts = firstInt(overlay.MaxAttempts, base.MaxAttempts)
	result.DBMaxOpenConns = firstInt(overlay.DBMaxOpenConns, base.DBMaxOpenConns)
	result.DBMaxIdleConns = firstInt(overlay.DBMaxIdleConns, base.DBMaxIdleConns)

	result.RateLimitRPS = overlay.RateLimitRPS
	if result.RateLimitRPS == 0 {
		result.RateLimitRPS = base.RateLimitRPS
	}

	result.DisabledTools = mergeStringSlice(base.DisabledTools, overlay.DisabledTools)

	return result
}

func firstString(overlay, base string) string {
	if strings.TrimSpace(overlay) != "" {
		return overlay
	}
	return base
}

func firstInt(overlay, base int) int {
	if overlay != 0 {
		return overlay
	}
	return base
}

// mergeStringSlice combines two slices, trims whitespace, and removes duplicates.
func mergeStringSlice(a, b []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(a)+len(b))

	for _, s := range a {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}
	for _, s := range b {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}

	if len(result) == 0 {
		return nil
	}
	return result
}
