package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix for every environment override, e.g. QUICKPIC_LOGGING_LEVEL
const EnvPrefix = "QUICKPIC"

// Config holds all configuration options for the downloader
type Config struct {
	// Remote service settings
	Cloud CloudConfig `yaml:"cloud" json:"cloud"`

	// Download settings
	Download DownloadConfig `yaml:"download" json:"download"`

	// Retry pacing
	Retry RetryConfig `yaml:"retry" json:"retry"`

	// Rate limiting configuration
	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit" split_words:"true"`

	// Notification preferences
	Notifications NotificationConfig `yaml:"notifications" json:"notifications"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// CloudConfig describes how to reach the CM Cloud service
type CloudConfig struct {
	BaseURL   string        `yaml:"base_url" json:"base_url" split_words:"true"`
	UserAgent string        `yaml:"user_agent" json:"user_agent" split_words:"true"`
	Timeout   time.Duration `yaml:"timeout" json:"timeout"`
}

// DownloadConfig holds download-specific configuration
type DownloadConfig struct {
	OutputDir   string `yaml:"output_dir" json:"output_dir" split_words:"true"`
	PageSize    int    `yaml:"page_size" json:"page_size" split_words:"true"`
	MaxAttempts int    `yaml:"max_attempts" json:"max_attempts" split_words:"true"`
}

// RetryConfig controls the pause between a failed attempt and the next one.
// The re-login always happens; the delay is optional.
type RetryConfig struct {
	Delay      time.Duration `yaml:"delay" json:"delay"`
	MaxDelay   time.Duration `yaml:"max_delay" json:"max_delay" split_words:"true"`
	Multiplier float64       `yaml:"multiplier" json:"multiplier"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	RequestsPerMinute int `yaml:"requests_per_minute" json:"requests_per_minute" split_words:"true"`
}

// NotificationConfig holds notification preferences
type NotificationConfig struct {
	Enabled    bool `yaml:"enabled" json:"enabled"`
	OnComplete bool `yaml:"on_complete" json:"on_complete" split_words:"true"`
	OnError    bool `yaml:"on_error" json:"on_error" split_words:"true"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// DefaultConfig returns a Config instance with the values the service expects
func DefaultConfig() *Config {
	return &Config{
		Cloud: CloudConfig{
			BaseURL:   "https://cloud.cmcm.com/",
			UserAgent: "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36",
			Timeout:   0, // transport default
		},
		Download: DownloadConfig{
			OutputDir:   ".",
			PageSize:    100,
			MaxAttempts: 9,
		},
		Retry: RetryConfig{
			Delay:      0,
			MaxDelay:   30 * time.Second,
			Multiplier: 1.0,
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: 0, // unlimited
		},
		Notifications: NotificationConfig{
			Enabled:    false,
			OnComplete: true,
			OnError:    true,
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  "",
		},
	}
}

// LoadFromEnv overrides fields from QUICKPIC_* environment variables.
// Variables that are not set leave the current value untouched.
func (c *Config) LoadFromEnv() error {
	if err := envconfig.Process(EnvPrefix, c); err != nil {
		return fmt.Errorf("failed to process environment: %w", err)
	}
	return nil
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	// If path is empty, try default locations
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil // No config file found, not an error
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for config file in standard locations
func (c *Config) findConfigFile() string {
	home, _ := os.UserHomeDir()
	locations := []string{
		".quickpic.yaml",
		".quickpic.yml",
		filepath.Join(home, ".config", "quickpic", "config.yaml"),
		filepath.Join(home, ".config", "quickpic", "config.yml"),
		filepath.Join(home, ".quickpic.yaml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	if c.Cloud.BaseURL == "" {
		errs = append(errs, errors.New("cloud base URL is required"))
	} else if u, err := url.Parse(c.Cloud.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("cloud base URL %q is not an absolute URL", c.Cloud.BaseURL))
	}
	if c.Cloud.Timeout < 0 {
		errs = append(errs, errors.New("cloud timeout cannot be negative"))
	}

	if c.Download.OutputDir == "" {
		errs = append(errs, errors.New("output directory is required"))
	}
	if c.Download.PageSize <= 0 {
		errs = append(errs, errors.New("page size must be positive"))
	}
	if c.Download.MaxAttempts <= 0 {
		errs = append(errs, errors.New("max attempts must be positive"))
	}

	if c.Retry.Delay < 0 {
		errs = append(errs, errors.New("retry delay cannot be negative"))
	}
	if c.Retry.Multiplier < 1 {
		errs = append(errs, errors.New("retry multiplier must be at least 1"))
	}

	if c.RateLimit.RequestsPerMinute < 0 {
		errs = append(errs, errors.New("requests per minute cannot be negative"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, fmt.Errorf("invalid log level %q", c.Logging.Level))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if outputDir, ok := flags["output"].(string); ok && outputDir != "" {
		c.Download.OutputDir = outputDir
	}
	if baseURL, ok := flags["base-url"].(string); ok && baseURL != "" {
		c.Cloud.BaseURL = baseURL
	}
	if pageSize, ok := flags["page-size"].(int); ok && pageSize > 0 {
		c.Download.PageSize = pageSize
	}
	if attempts, ok := flags["max-attempts"].(int); ok && attempts > 0 {
		c.Download.MaxAttempts = attempts
	}
	if timeout, ok := flags["timeout"].(time.Duration); ok && timeout > 0 {
		c.Cloud.Timeout = timeout
	}
	if delay, ok := flags["retry-delay"].(time.Duration); ok && delay > 0 {
		c.Retry.Delay = delay
	}
	if rpm, ok := flags["rate-limit"].(int); ok && rpm > 0 {
		c.RateLimit.RequestsPerMinute = rpm
	}
	if enabled, ok := flags["notifications"].(bool); ok {
		c.Notifications.Enabled = enabled
	}
	if logLevel, ok := flags["log-level"].(string); ok && logLevel != "" {
		c.Logging.Level = logLevel
	}
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	// .env files are optional
	home, _ := os.UserHomeDir()
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(home, ".quickpic.env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeCommandLineFlags(flags)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
