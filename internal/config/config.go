package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the khoji API configuration.
type Config struct {
	HTTP        HTTPConfig        `yaml:"http"`
	Database    DatabaseConfig    `yaml:"database"`
	Storage     StorageConfig     `yaml:"storage"`
	Search      SearchConfig      `yaml:"search"`
	Suggestions SuggestionsConfig `yaml:"suggestions"`
	Analytics   AnalyticsConfig   `yaml:"analytics"`
	Maintenance MaintenanceConfig `yaml:"maintenance"`
	Auth        AuthConfig        `yaml:"auth"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	Addrs            []string `yaml:"addrs"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	DB               int      `yaml:"db"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// StorageConfig holds storage settings.
type StorageConfig struct {
	KeyPrefix string `yaml:"key_prefix"`
}

// SearchConfig tunes the search orchestrator.
type SearchConfig struct {
	SnippetLength int `yaml:"snippet_length"`
	FacetScanCap  int `yaml:"facet_scan_cap"`
	// URLTemplates maps content types to result URL templates with a
	// {contentId} placeholder.
	URLTemplates map[string]string `yaml:"url_templates"`
}

// SuggestionsConfig tunes the suggestion engine.
type SuggestionsConfig struct {
	RetentionDays int   `yaml:"retention_days"`
	MinFrequency  int64 `yaml:"min_frequency"`
	MaxResults    int   `yaml:"max_results"`
}

// AnalyticsConfig tunes the query-log aggregator.
type AnalyticsConfig struct {
	RetentionDays int `yaml:"retention_days"`
	TopQueries    int `yaml:"top_queries"`
}

// MaintenanceConfig holds the background job schedule.
type MaintenanceConfig struct {
	Enabled                bool `yaml:"enabled"`
	SuggestionCleanupHours int  `yaml:"suggestion_cleanup_interval_hours"`
	QueryLogPurgeHours     int  `yaml:"querylog_purge_interval_hours"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 10
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Storage.KeyPrefix == "" {
		c.Storage.KeyPrefix = "khoji:"
	}
	if c.Search.SnippetLength <= 0 {
		c.Search.SnippetLength = 160
	}
	if c.Search.FacetScanCap <= 0 {
		c.Search.FacetScanCap = 1000
	}
	if c.Suggestions.RetentionDays <= 0 {
		c.Suggestions.RetentionDays = 30
	}
	if c.Suggestions.MinFrequency <= 0 {
		c.Suggestions.MinFrequency = 2
	}
	if c.Suggestions.MaxResults <= 0 {
		c.Suggestions.MaxResults = 10
	}
	if c.Analytics.RetentionDays <= 0 {
		c.Analytics.RetentionDays = 90
	}
	if c.Analytics.TopQueries <= 0 {
		c.Analytics.TopQueries = 10
	}
	if c.Maintenance.SuggestionCleanupHours <= 0 {
		c.Maintenance.SuggestionCleanupHours = 24
	}
	if c.Maintenance.QueryLogPurgeHours <= 0 {
		c.Maintenance.QueryLogPurgeHours = 24
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if len(c.Database.Addrs) == 0 {
		return fmt.Errorf("database.addrs is required")
	}
	if !strings.HasSuffix(c.Storage.KeyPrefix, ":") {
		return fmt.Errorf("storage.key_prefix must end with a colon, got %q", c.Storage.KeyPrefix)
	}
	for ct, tpl := range c.Search.URLTemplates {
		if !strings.Contains(tpl, "{contentId}") {
			return fmt.Errorf(
				"search.url_templates.%s must contain a {contentId} placeholder, got %q",
				ct, tpl,
			)
		}
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
