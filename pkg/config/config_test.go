package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	assert.Equal(t, "https://cloud.cmcm.com/", config.Cloud.BaseURL)
	assert.Equal(t, time.Duration(0), config.Cloud.Timeout)
	assert.Equal(t, ".", config.Download.OutputDir)
	assert.Equal(t, 100, config.Download.PageSize)
	assert.Equal(t, 9, config.Download.MaxAttempts)
	assert.Equal(t, time.Duration(0), config.Retry.Delay)
	assert.Equal(t, 0, config.RateLimit.RequestsPerMinute)
	assert.False(t, config.Notifications.Enabled)
	assert.Equal(t, "info", config.Logging.Level)

	require.NoError(t, config.Validate())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("QUICKPIC_CLOUD_BASE_URL", "http://localhost:8080/")
	t.Setenv("QUICKPIC_CLOUD_TIMEOUT", "45s")
	t.Setenv("QUICKPIC_DOWNLOAD_OUTPUT_DIR", "/tmp/photos")
	t.Setenv("QUICKPIC_DOWNLOAD_PAGE_SIZE", "50")
	t.Setenv("QUICKPIC_RATE_LIMIT_REQUESTS_PER_MINUTE", "30")
	t.Setenv("QUICKPIC_NOTIFICATIONS_ENABLED", "true")
	t.Setenv("QUICKPIC_LOGGING_LEVEL", "debug")

	config := DefaultConfig()
	require.NoError(t, config.LoadFromEnv())

	assert.Equal(t, "http://localhost:8080/", config.Cloud.BaseURL)
	assert.Equal(t, 45*time.Second, config.Cloud.Timeout)
	assert.Equal(t, "/tmp/photos", config.Download.OutputDir)
	assert.Equal(t, 50, config.Download.PageSize)
	assert.Equal(t, 30, config.RateLimit.RequestsPerMinute)
	assert.True(t, config.Notifications.Enabled)
	assert.Equal(t, "debug", config.Logging.Level)

	// untouched fields keep their defaults
	assert.Equal(t, 9, config.Download.MaxAttempts)
}

func TestLoadFromEnvInvalidValue(t *testing.T) {
	t.Setenv("QUICKPIC_DOWNLOAD_PAGE_SIZE", "lots")

	config := DefaultConfig()
	assert.Error(t, config.LoadFromEnv())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(c *Config)
		wantError bool
	}{
		{
			name:      "defaults",
			mutate:    func(c *Config) {},
			wantError: false,
		},
		{
			name:      "missing base URL",
			mutate:    func(c *Config) { c.Cloud.BaseURL = "" },
			wantError: true,
		},
		{
			name:      "relative base URL",
			mutate:    func(c *Config) { c.Cloud.BaseURL = "cmbpc/" },
			wantError: true,
		},
		{
			name:      "zero page size",
			mutate:    func(c *Config) { c.Download.PageSize = 0 },
			wantError: true,
		},
		{
			name:      "zero attempts",
			mutate:    func(c *Config) { c.Download.MaxAttempts = 0 },
			wantError: true,
		},
		{
			name:      "negative retry delay",
			mutate:    func(c *Config) { c.Retry.Delay = -time.Second },
			wantError: true,
		},
		{
			name:      "negative rate limit",
			mutate:    func(c *Config) { c.RateLimit.RequestsPerMinute = -1 },
			wantError: true,
		},
		{
			name:      "invalid log level",
			mutate:    func(c *Config) { c.Logging.Level = "verbose" },
			wantError: true,
		},
		{
			name:      "empty output dir",
			mutate:    func(c *Config) { c.Download.OutputDir = "" },
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			tt.mutate(config)
			err := config.Validate()
			if tt.wantError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateJoinsErrors(t *testing.T) {
	config := DefaultConfig()
	config.Download.PageSize = 0
	config.Logging.Level = "loud"

	err := config.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "page size must be positive")
	assert.Contains(t, err.Error(), "invalid log level")
}

func TestSaveAndLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	original := DefaultConfig()
	original.Download.OutputDir = "/srv/quickpic"
	original.Download.PageSize = 25
	original.Retry.Delay = 2 * time.Second
	require.NoError(t, original.Save(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded := DefaultConfig()
	require.NoError(t, loaded.LoadFromFile(path))
	assert.Equal(t, "/srv/quickpic", loaded.Download.OutputDir)
	assert.Equal(t, 25, loaded.Download.PageSize)
	assert.Equal(t, 2*time.Second, loaded.Retry.Delay)
}

func TestLoadFromFileErrors(t *testing.T) {
	dir := t.TempDir()

	config := DefaultConfig()
	assert.Error(t, config.LoadFromFile(filepath.Join(dir, "missing.yaml")))

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("download: [unclosed"), 0644))
	assert.Error(t, config.LoadFromFile(bad))
}

func TestLoadPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yamlContent := `
download:
  output_dir: /from/file
  page_size: 10
logging:
  level: warn
`
	require.NoError(t, os.WriteFile(path, []byte(yamlContent), 0644))

	t.Setenv("QUICKPIC_DOWNLOAD_PAGE_SIZE", "20")

	config, err := Load(path, map[string]interface{}{
		"output": "/from/flag",
	})
	require.NoError(t, err)

	assert.Equal(t, "/from/flag", config.Download.OutputDir)
	assert.Equal(t, 20, config.Download.PageSize)
	assert.Equal(t, "warn", config.Logging.Level)
}

func TestLoadRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("download:\n  max_attempts: -3\n"), 0644))

	_, err := Load(path, nil)
	assert.Error(t, err)
}

func TestMergeCommandLineFlags(t *testing.T) {
	config := DefaultConfig()
	config.MergeCommandLineFlags(map[string]interface{}{
		"base-url":      "http://127.0.0.1:9999/",
		"page-size":     7,
		"max-attempts":  3,
		"timeout":       10 * time.Second,
		"retry-delay":   time.Second,
		"rate-limit":    120,
		"notifications": true,
		"log-level":     "error",
	})

	assert.Equal(t, "http://127.0.0.1:9999/", config.Cloud.BaseURL)
	assert.Equal(t, 7, config.Download.PageSize)
	assert.Equal(t, 3, config.Download.MaxAttempts)
	assert.Equal(t, 10*time.Second, config.Cloud.Timeout)
	assert.Equal(t, time.Second, config.Retry.Delay)
	assert.Equal(t, 120, config.RateLimit.RequestsPerMinute)
	assert.True(t, config.Notifications.Enabled)
	assert.Equal(t, "error", config.Logging.Level)
}
