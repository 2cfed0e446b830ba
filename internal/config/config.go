package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration.
type Config struct {
	Storage StorageConfig `toml:"storage"`
	Clients ClientsConfig `toml:"clients"`
	Cache   CacheConfig   `toml:"cache"`
	Updater UpdaterConfig `toml:"updater"`
	Logging LoggingConfig `toml:"logging"`
}

// StorageConfig contains storage layer settings.
type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig contains BadgerDB-specific settings.
type BadgerConfig struct {
	Path string `toml:"path"`
	// InMemory runs Badger without a backing directory. Used by tests.
	InMemory bool `toml:"in_memory"`
}

// ClientsConfig holds upstream API client configurations.
type ClientsConfig struct {
	AlphaVantage AlphaVantageConfig `toml:"alphavantage"`
}

// AlphaVantageConfig holds Alpha Vantage API configuration.
type AlphaVantageConfig struct {
	BaseURL string `toml:"base_url"`
	APIKey  string `toml:"api_key"`
	// UseDelayed requests 15-minute-delayed data, which carries a higher
	// upstream rate limit than realtime entitlement.
	UseDelayed bool   `toml:"use_delayed"`
	Timeout    string `toml:"timeout"`
}

// GetTimeout parses and returns the upstream request timeout.
func (c *AlphaVantageConfig) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil || d <= 0 {
		return 10 * time.Second
	}
	return d
}

// CacheConfig holds TTL settings for the quote and candlestick caches.
type CacheConfig struct {
	QuoteTTL  string `toml:"quote_ttl"`
	SeriesTTL string `toml:"series_ttl"`
}

// GetQuoteTTL parses the quote cache TTL.
func (c *CacheConfig) GetQuoteTTL() time.Duration {
	d, err := time.ParseDuration(c.QuoteTTL)
	if err != nil || d <= 0 {
		return 5 * time.Minute
	}
	return d
}

// GetSeriesTTL parses the candlestick cache TTL.
func (c *CacheConfig) GetSeriesTTL() time.Duration {
	d, err := time.ParseDuration(c.SeriesTTL)
	if err != nil || d <= 0 {
		return time.Hour
	}
	return d
}

// UpdaterConfig holds the top-movers updater settings.
type UpdaterConfig struct {
	// Schedule is a cron expression; default fires at the top of every hour.
	Schedule string `toml:"schedule"`
	LeaseTTL string `toml:"lease_ttl"`
	// RunOnStart triggers one capture immediately when the daemon starts.
	RunOnStart bool `toml:"run_on_start"`
}

// GetLeaseTTL parses the updater lease TTL.
func (c *UpdaterConfig) GetLeaseTTL() time.Duration {
	d, err := time.ParseDuration(c.LeaseTTL)
	if err != nil || d <= 0 {
		return 30 * time.Minute
	}
	return d
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level    string `toml:"level"`
	FilePath string `toml:"file_path"`
}

// LoadFromFile loads configuration with priority: defaults -> file -> env.
func LoadFromFile(path string) (*Config, error) {
	if path == "" {
		return LoadFromFiles()
	}
	return LoadFromFiles(path)
}

// LoadFromFiles loads configuration from multiple files with priority:
// defaults -> file1 -> file2 -> ... -> env.
// Later files override earlier files.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		err = toml.Unmarshal(data, config)
		if err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies MYSTOCK_* environment variable overrides to config.
func applyEnvOverrides(config *Config) {
	if badgerPath := os.Getenv("MYSTOCK_BADGER_PATH"); badgerPath != "" {
		config.Storage.Badger.Path = badgerPath
	}
	if apiKey := os.Getenv("ALPHA_VANTAGE_API_KEY"); apiKey != "" {
		config.Clients.AlphaVantage.APIKey = apiKey
	}
	if delayed := os.Getenv("ALPHA_VANTAGE_USE_DELAYED"); delayed != "" {
		if b, err := strconv.ParseBool(delayed); err == nil {
			config.Clients.AlphaVantage.UseDelayed = b
		}
	}
	if schedule := os.Getenv("MYSTOCK_UPDATER_SCHEDULE"); schedule != "" {
		config.Updater.Schedule = schedule
	}
	if level := os.Getenv("MYSTOCK_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
}

// Validate returns a list of configuration problems, empty when the config is usable.
func (c *Config) Validate() []string {
	var issues []string
	if c.Clients.AlphaVantage.APIKey == "" {
		issues = append(issues, "clients.alphavantage.api_key is required (or set ALPHA_VANTAGE_API_KEY)")
	}
	if !c.Storage.Badger.InMemory && c.Storage.Badger.Path == "" {
		issues = append(issues, "storage.badger.path is required")
	}
	return issues
}
