package logger

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"quickpic/pkg/config"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *config.LoggingConfig
		wantErr bool
	}{
		{
			name:    "valid config with info level",
			cfg:     &config.LoggingConfig{Level: "info"},
			wantErr: false,
		},
		{
			name:    "valid config with debug level",
			cfg:     &config.LoggingConfig{Level: "debug"},
			wantErr: false,
		},
		{
			name:    "invalid log level",
			cfg:     &config.LoggingConfig{Level: "invalid"},
			wantErr: true,
		},
		{
			name:    "config with file output",
			cfg:     &config.LoggingConfig{Level: "info", File: filepath.Join(t.TempDir(), "logs", "quickpic.log")},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := New(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, logger)
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		level    string
		expected zerolog.Level
		wantErr  bool
	}{
		{"debug", zerolog.DebugLevel, false},
		{"DEBUG", zerolog.DebugLevel, false},
		{"info", zerolog.InfoLevel, false},
		{"warn", zerolog.WarnLevel, false},
		{"warning", zerolog.WarnLevel, false},
		{"error", zerolog.ErrorLevel, false},
		{"disabled", zerolog.Disabled, false},
		{"invalid", zerolog.InfoLevel, true},
		{"", zerolog.InfoLevel, true},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			level, err := parseLogLevel(tt.level)
			assert.Equal(t, tt.wantErr, err != nil)
			assert.Equal(t, tt.expected, level)
		})
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, zerolog.WarnLevel)

	logger.Debug("debug message")
	logger.Info("info message")
	logger.Warn("warn message")
	logger.Error("error message")

	output := buf.String()
	assert.NotContains(t, output, "debug message")
	assert.NotContains(t, output, "info message")
	assert.Contains(t, output, "warn message")
	assert.Contains(t, output, "error message")
}

func TestWithFieldsAndChaining(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, zerolog.DebugLevel)

	logger.
		WithField("file", "IMG_0001.jpg").
		WithFields(map[string]interface{}{
			"offset":  100,
			"resumed": true,
		}).
		Info("chained fields")

	output := buf.String()
	assert.Contains(t, output, "chained fields")
	assert.Contains(t, output, `"file":"IMG_0001.jpg"`)
	assert.Contains(t, output, `"offset":100`)
	assert.Contains(t, output, `"resumed":true`)
	assert.Contains(t, output, `"app":"quickpic"`)
}

func TestWithError(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, zerolog.DebugLevel)

	assert.Same(t, logger, logger.WithError(nil))

	logger.WithError(errors.New("connection reset")).Error("error occurred")
	output := buf.String()
	assert.Contains(t, output, "error occurred")
	assert.Contains(t, output, "connection reset")
}

func TestStructuredLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, zerolog.DebugLevel)

	logger.InfoWithFields("operation completed", map[string]interface{}{
		"date_group": "2016-05-01",
		"count":      10,
		"elapsed":    5 * time.Second,
	})

	output := buf.String()
	assert.Contains(t, output, "operation completed")
	assert.Contains(t, output, `"date_group":"2016-05-01"`)
	assert.Contains(t, output, `"count":10`)
}

func TestGlobalLogger(t *testing.T) {
	require.NoError(t, Initialize(&config.LoggingConfig{Level: "debug"}))
	t.Cleanup(func() { globalLogger = nil })

	assert.NotNil(t, GetLogger())

	// convenience functions must not panic
	Debug("debug message")
	Info("info message")
	Warn("warn message")
	Error("error message")
	WithField("key", "value").Info("with field")
	WithFields(map[string]interface{}{"k1": "v1"}).Info("with fields")
	WithError(errors.New("boom")).Error("with error")
}

func TestHelpers(t *testing.T) {
	log := NewTestLogger()

	LogRetry(log, "Metadata fetch", "offset=100", 2, 9, errors.New("ret=1"))
	LogDownload(log, "IMG_0001.jpg", "2016-05-01", 2048, nil)
	LogDownload(log, "IMG_0002.jpg", "2016-05-01", 0, errors.New("bad bytes"))
	LogPageProgress(log, 100, 150, 50)
	LogRequest(log, "POST", "https://cloud.cmcm.com/cmbpc/disk/file", 503, time.Second)
	LogRunSummary(log, 3, 1, 4096, time.Minute)

	assert.True(t, log.HasMessage("Metadata fetch attempt #2 failed, will retry..."))
	assert.True(t, log.HasMessage("Download completed"))
	assert.True(t, log.HasMessage("Metadata page fetched"))
	assert.True(t, log.HasMessage("Run finished"))
	assert.True(t, log.HasError())

	warns := log.GetMessagesByLevel("WARN")
	require.Len(t, warns, 1)
	assert.Equal(t, "offset=100", warns[0].Fields["target"])
	assert.EqualValues(t, 2, warns[0].Fields["attempt"])

	errs := log.GetMessagesByLevel("ERROR")
	require.Len(t, errs, 2)
	assert.True(t, strings.Contains(log.String(), "bad bytes"))

	log.Clear()
	assert.Empty(t, log.GetMessages())
}

func TestNopLogger(t *testing.T) {
	log := NewNopLogger()
	log.WithField("a", 1).WithError(errors.New("x")).Error("ignored")
	assert.NotNil(t, log.GetZerolog())
}
